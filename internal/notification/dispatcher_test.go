package notification

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Domenick1991/garagebooking/config"
	"github.com/Domenick1991/garagebooking/internal/domain"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockChannel struct {
	mock.Mock
}

func (m *MockChannel) Deliver(ctx context.Context, msg Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

type staticNames map[string]string

func (s staticNames) ServiceName(key string) string {
	if name, ok := s[key]; ok {
		return name
	}
	return key
}

func testConfig() config.NotificationConfig {
	return config.NotificationConfig{
		From:        "bookings@garage.example",
		GarageName:  "Northside Motors",
		GaragePhone: "0161 555 0100",
		GarageEmail: "desk@garage.example",
		Address:     "1 Station Road, Manchester",
		Timeout:     time.Second,
		Location:    "Europe/London",
	}
}

func testBooking() *domain.Booking {
	return &domain.Booking{
		ID:          7,
		Reference:   "GB-7K2Q9X",
		ServiceType: "full",
		Date:        "2025-09-01",
		Time:        "09:00",
		Vehicle: domain.VehicleAttributes{
			Registration: "AB12CDE",
			Make:         "FORD",
			Model:        "FOCUS",
		},
		Customer:      domain.Customer{Name: "Jane Driver", Email: "jane@example.com"},
		Price:         23400,
		Currency:      "gbp",
		PaymentStatus: domain.PaymentStatusPaid,
	}
}

func TestDispatcher_Build(t *testing.T) {
	logger, _ := test.NewNullLogger()
	d := NewDispatcher(nil, testConfig(), staticNames{"full": "Full Service"}, logger)

	msg, err := d.Build(testBooking())

	require.NoError(t, err)
	assert.Equal(t, "jane@example.com", msg.To)
	assert.Equal(t, "GB-7K2Q9X", msg.Reference)
	assert.Equal(t, int64(7), msg.BookingID)
	assert.Contains(t, msg.Subject, "GB-7K2Q9X")
	assert.Contains(t, msg.Body, "Dear Jane Driver")
	assert.Contains(t, msg.Body, "Full Service")
	assert.Contains(t, msg.Body, "Monday, 1 September 2025")
	assert.Contains(t, msg.Body, "9:00 AM")
	assert.Contains(t, msg.Body, "FORD FOCUS (AB12CDE)")
	assert.Contains(t, msg.Body, "£234.00")
	assert.Contains(t, msg.Body, "Payment received")
	assert.Contains(t, msg.Body, "1 Station Road, Manchester")
	assert.Contains(t, msg.Body, "0161 555 0100")
}

func TestDispatcher_Build_UnparseableDateKept(t *testing.T) {
	logger, _ := test.NewNullLogger()
	d := NewDispatcher(nil, testConfig(), nil, logger)
	b := testBooking()
	b.Date = "next week"
	b.Time = "morning"
	b.PaymentStatus = domain.PaymentStatusPending

	msg, err := d.Build(b)

	require.NoError(t, err)
	assert.Contains(t, msg.Body, "next week")
	assert.Contains(t, msg.Body, "morning")
	assert.Contains(t, msg.Body, "Payment is due")
	assert.Contains(t, msg.Body, "full")
}

func TestDispatcher_Send_Success(t *testing.T) {
	logger, _ := test.NewNullLogger()
	ch := &MockChannel{}
	d := NewDispatcher(ch, testConfig(), nil, logger)

	ch.On("Deliver", mock.Anything, mock.MatchedBy(func(m Message) bool {
		return m.To == "jane@example.com"
	})).Return(nil).Once()

	assert.True(t, d.Send(context.Background(), testBooking()))
	ch.AssertExpectations(t)
}

func TestDispatcher_Send_GarageCopy(t *testing.T) {
	logger, _ := test.NewNullLogger()
	ch := &MockChannel{}
	cfg := testConfig()
	cfg.GarageCopy = true
	d := NewDispatcher(ch, cfg, nil, logger)

	ch.On("Deliver", mock.Anything, mock.MatchedBy(func(m Message) bool { return m.To == "jane@example.com" })).Return(nil).Once()
	ch.On("Deliver", mock.Anything, mock.MatchedBy(func(m Message) bool {
		return m.To == "desk@garage.example" && m.Subject == "New booking GB-7K2Q9X"
	})).Return(errors.New("mailbox full")).Once()

	assert.True(t, d.Send(context.Background(), testBooking()))
	ch.AssertExpectations(t)
}

func TestDispatcher_Send_FailureIsLogged(t *testing.T) {
	logger, hook := test.NewNullLogger()
	ch := &MockChannel{}
	d := NewDispatcher(ch, testConfig(), nil, logger)

	ch.On("Deliver", mock.Anything, mock.Anything).Return(errors.New("connection refused")).Once()

	assert.False(t, d.Send(context.Background(), testBooking()))
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
	assert.Equal(t, "GB-7K2Q9X", hook.LastEntry().Data["reference"])
}

func TestDispatcher_Send_NoChannel(t *testing.T) {
	logger, _ := test.NewNullLogger()
	d := NewDispatcher(nil, testConfig(), nil, logger)

	assert.False(t, d.Send(context.Background(), testBooking()))
}
