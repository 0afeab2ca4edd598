package payment

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Domenick1991/garagebooking/config"
	"github.com/Domenick1991/garagebooking/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v76"
)

type MockIntentAPI struct {
	mock.Mock
}

func (m *MockIntentAPI) New(params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
	args := m.Called(params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*stripe.PaymentIntent), args.Error(1)
}

func (m *MockIntentAPI) Get(id string, params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
	args := m.Called(id, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*stripe.PaymentIntent), args.Error(1)
}

func newTestGateway(api intentAPI) *StripeGateway {
	return &StripeGateway{intents: api, minAmount: 50, timeout: time.Second}
}

func TestStripeGateway_NotConfigured(t *testing.T) {
	g := NewStripeGateway(config.PaymentConfig{MinAmount: 50, Timeout: time.Second})

	_, err := g.CreateIntent(context.Background(), 4000, "gbp")
	assert.ErrorIs(t, err, domain.ErrNotConfigured)

	_, err = g.VerifyIntent(context.Background(), "pi_123")
	assert.ErrorIs(t, err, domain.ErrNotConfigured)
}

func TestStripeGateway_CreateIntent_BelowMinimum(t *testing.T) {
	api := &MockIntentAPI{}
	g := newTestGateway(api)

	_, err := g.CreateIntent(context.Background(), 30, "gbp")

	assert.ErrorIs(t, err, domain.ErrInvalidAmount)
	api.AssertNotCalled(t, "New", mock.Anything)
}

func TestStripeGateway_CreateIntent_Success(t *testing.T) {
	api := &MockIntentAPI{}
	g := newTestGateway(api)

	api.On("New", mock.MatchedBy(func(p *stripe.PaymentIntentParams) bool {
		return *p.Amount == 4000 && *p.Currency == "gbp" && p.Context != nil
	})).Return(&stripe.PaymentIntent{ID: "pi_123", ClientSecret: "pi_123_secret_abc"}, nil).Once()

	intent, err := g.CreateIntent(context.Background(), 4000, "GBP")

	require.NoError(t, err)
	assert.Equal(t, Intent{ID: "pi_123", ClientSecret: "pi_123_secret_abc"}, intent)
	api.AssertExpectations(t)
}

func TestStripeGateway_CreateIntent_RemoteError(t *testing.T) {
	api := &MockIntentAPI{}
	g := newTestGateway(api)

	api.On("New", mock.Anything).Return(nil, &stripe.Error{Msg: "Invalid API Key provided"}).Once()

	_, err := g.CreateIntent(context.Background(), 4000, "gbp")

	assert.ErrorIs(t, err, domain.ErrLookupFailed)
	assert.Contains(t, err.Error(), "Invalid API Key provided")
}

func TestStripeGateway_VerifyIntent(t *testing.T) {
	testCases := []struct {
		name    string
		intent  *stripe.PaymentIntent
		status  Status
		message string
	}{
		{
			name:   "succeeded",
			intent: &stripe.PaymentIntent{ID: "pi_1", Status: stripe.PaymentIntentStatusSucceeded, AmountReceived: 4000, Currency: "gbp"},
			status: StatusSucceeded,
		},
		{
			name: "declined with gateway message",
			intent: &stripe.PaymentIntent{
				ID:               "pi_2",
				Status:           stripe.PaymentIntentStatusRequiresPaymentMethod,
				LastPaymentError: &stripe.Error{Msg: "Your card was declined."},
			},
			status:  StatusFailed,
			message: "Your card was declined.",
		},
		{
			name:    "still processing",
			intent:  &stripe.PaymentIntent{ID: "pi_3", Status: stripe.PaymentIntentStatusProcessing},
			status:  StatusFailed,
			message: "payment not completed (status: processing)",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			api := &MockIntentAPI{}
			g := newTestGateway(api)
			api.On("Get", tc.intent.ID, mock.Anything).Return(tc.intent, nil).Once()

			v, err := g.VerifyIntent(context.Background(), tc.intent.ID)

			require.NoError(t, err)
			assert.Equal(t, tc.status, v.Status)
			assert.Equal(t, tc.message, v.Message)
			assert.Equal(t, tc.intent.AmountReceived, v.AmountReceived)
		})
	}
}

func TestStripeGateway_VerifyIntent_LookupFailed(t *testing.T) {
	api := &MockIntentAPI{}
	g := newTestGateway(api)

	api.On("Get", "pi_404", mock.Anything).Return(nil, errors.New("context deadline exceeded")).Once()

	_, err := g.VerifyIntent(context.Background(), "pi_404")
	assert.ErrorIs(t, err, domain.ErrLookupFailed)

	_, err = g.VerifyIntent(context.Background(), " ")
	assert.ErrorIs(t, err, domain.ErrLookupFailed)
	api.AssertNumberOfCalls(t, "Get", 1)
}
