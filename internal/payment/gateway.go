// Package payment wraps the hosted payment-intent API. Every remote failure
// is returned as a structured error; nothing here panics or blocks beyond
// the configured timeout.
package payment

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Domenick1991/garagebooking/config"
	"github.com/Domenick1991/garagebooking/internal/domain"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
)

type Status string

const (
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

type Intent struct {
	ID           string `json:"intent_id"`
	ClientSecret string `json:"client_secret"`
}

type Verification struct {
	IntentID       string
	Status         Status
	RemoteStatus   string
	AmountReceived int64
	Currency       string
	Message        string
}

type Gateway interface {
	CreateIntent(ctx context.Context, amountMinor int64, currency string) (Intent, error)
	VerifyIntent(ctx context.Context, intentID string) (Verification, error)
}

// intentAPI is the part of the Stripe client the gateway calls.
type intentAPI interface {
	New(params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
	Get(id string, params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
}

type StripeGateway struct {
	intents   intentAPI
	minAmount int64
	timeout   time.Duration
}

// NewStripeGateway returns a gateway that reports ErrNotConfigured on every
// call when no secret key is set.
func NewStripeGateway(cfg config.PaymentConfig) *StripeGateway {
	g := &StripeGateway{minAmount: cfg.MinAmount, timeout: cfg.Timeout}
	if !cfg.Configured() {
		return g
	}
	backend := stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
		HTTPClient:        &http.Client{Timeout: cfg.Timeout},
		MaxNetworkRetries: stripe.Int64(0),
	})
	sc := &client.API{}
	sc.Init(cfg.SecretKey, &stripe.Backends{API: backend, Connect: backend, Uploads: backend})
	g.intents = sc.PaymentIntents
	return g
}

func (g *StripeGateway) CreateIntent(ctx context.Context, amountMinor int64, currency string) (Intent, error) {
	if g.intents == nil {
		return Intent{}, domain.ErrNotConfigured
	}
	if amountMinor < g.minAmount {
		return Intent{}, fmt.Errorf("%w: %d is below the minimum of %d", domain.ErrInvalidAmount, amountMinor, g.minAmount)
	}

	ctx, cancel := g.withTimeout(ctx)
	defer cancel()
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(amountMinor),
		Currency: stripe.String(strings.ToLower(currency)),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx

	pi, err := g.intents.New(params)
	if err != nil {
		return Intent{}, fmt.Errorf("%w: create intent: %s", domain.ErrLookupFailed, gatewayMessage(err))
	}
	return Intent{ID: pi.ID, ClientSecret: pi.ClientSecret}, nil
}

func (g *StripeGateway) VerifyIntent(ctx context.Context, intentID string) (Verification, error) {
	if g.intents == nil {
		return Verification{}, domain.ErrNotConfigured
	}
	if strings.TrimSpace(intentID) == "" {
		return Verification{}, fmt.Errorf("%w: empty intent id", domain.ErrLookupFailed)
	}

	ctx, cancel := g.withTimeout(ctx)
	defer cancel()
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx

	pi, err := g.intents.Get(intentID, params)
	if err != nil {
		return Verification{}, fmt.Errorf("%w: retrieve intent: %s", domain.ErrLookupFailed, gatewayMessage(err))
	}
	return toVerification(pi), nil
}

func toVerification(pi *stripe.PaymentIntent) Verification {
	v := Verification{
		IntentID:       pi.ID,
		RemoteStatus:   string(pi.Status),
		AmountReceived: pi.AmountReceived,
		Currency:       string(pi.Currency),
	}
	if pi.Status == stripe.PaymentIntentStatusSucceeded {
		v.Status = StatusSucceeded
		return v
	}
	v.Status = StatusFailed
	if pi.LastPaymentError != nil && pi.LastPaymentError.Msg != "" {
		v.Message = pi.LastPaymentError.Msg
	} else {
		v.Message = "payment not completed (status: " + string(pi.Status) + ")"
	}
	return v
}

func (g *StripeGateway) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if g.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, g.timeout)
}

func gatewayMessage(err error) string {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) && stripeErr.Msg != "" {
		return stripeErr.Msg
	}
	return err.Error()
}

var _ Gateway = (*StripeGateway)(nil)
