package api

import (
	"net/http"

	"github.com/Domenick1991/garagebooking/config"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/securecookie"
)

const visitorKey = "visitor_id"

// Sessions issues and reads the signed visitor cookie that keys staged
// selections.
type Sessions struct {
	sc     *securecookie.SecureCookie
	name   string
	secure bool
	maxAge int
}

func NewSessions(cfg config.SessionConfig, hashKey []byte) *Sessions {
	sc := securecookie.New(hashKey, nil)
	maxAge := int(cfg.TTL.Seconds())
	sc.MaxAge(maxAge)
	return &Sessions{sc: sc, name: cfg.CookieName, secure: cfg.Secure, maxAge: maxAge}
}

// Visitor makes sure the request carries a visitor id, issuing a new
// cookie when the current one is missing or fails verification.
func (s *Sessions) Visitor() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := s.read(c.Request)
		if !ok {
			id = uuid.NewString()
			if encoded, err := s.sc.Encode(s.name, map[string]string{"vid": id}); err == nil {
				http.SetCookie(c.Writer, &http.Cookie{
					Name:     s.name,
					Value:    encoded,
					Path:     "/",
					MaxAge:   s.maxAge,
					HttpOnly: true,
					Secure:   s.secure,
					SameSite: http.SameSiteLaxMode,
				})
			}
		}
		c.Set(visitorKey, id)
		c.Next()
	}
}

func (s *Sessions) read(r *http.Request) (string, bool) {
	cookie, err := r.Cookie(s.name)
	if err != nil {
		return "", false
	}
	value := map[string]string{}
	if err := s.sc.Decode(s.name, cookie.Value, &value); err != nil {
		return "", false
	}
	if _, err := uuid.Parse(value["vid"]); err != nil {
		return "", false
	}
	return value["vid"], true
}

func visitorID(c *gin.Context) string {
	return c.GetString(visitorKey)
}
