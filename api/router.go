package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// NewRouter wires the middleware chain and the booking routes under /api.
func NewRouter(handler *BookingHandler, sessions *Sessions, log logrus.FieldLogger) *gin.Engine {
	router := gin.New()
	router.Use(RequestID(), Logger(log), Recovery(log))

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	group := router.Group("/api", sessions.Visitor())
	handler.Register(group)
	return router
}
