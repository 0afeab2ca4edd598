package main

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/Domenick1991/garagebooking/internal/kafka"
	"github.com/Domenick1991/garagebooking/internal/notification"
	kafkaGo "github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockChannel struct {
	mock.Mock
}

func (m *MockChannel) Deliver(ctx context.Context, msg notification.Message) error {
	return m.Called(ctx, msg).Error(0)
}

func record(t *testing.T, msg notification.Message) kafkaGo.Message {
	data, err := json.Marshal(kafka.NotificationEvent{ID: "evt-1", Type: kafka.EventBookingConfirmation, Message: msg})
	require.NoError(t, err)
	return kafkaGo.Message{Offset: 3, Value: data}
}

func TestHandler_Delivers(t *testing.T) {
	ch := &MockChannel{}
	logger, _ := test.NewNullLogger()
	msg := notification.Message{To: "jane@example.com", Subject: "Booking confirmation", Reference: "GB-7K2Q9X"}
	ch.On("Deliver", mock.Anything, msg).Return(nil).Once()

	err := newHandler(ch, time.Second, logger)(context.Background(), record(t, msg))

	require.NoError(t, err)
	ch.AssertExpectations(t)
}

func TestHandler_SkipsUndecodable(t *testing.T) {
	ch := &MockChannel{}
	logger, hook := test.NewNullLogger()

	err := newHandler(ch, time.Second, logger)(context.Background(), kafkaGo.Message{Value: []byte("garbage")})

	require.NoError(t, err)
	ch.AssertNotCalled(t, "Deliver", mock.Anything, mock.Anything)
	assert.Equal(t, "skipping notification", hook.LastEntry().Message)
}

func TestHandler_StopsWhenCancelled(t *testing.T) {
	ch := &MockChannel{}
	logger, _ := test.NewNullLogger()
	ch.On("Deliver", mock.Anything, mock.Anything).Return(errors.New("smtp down")).Once()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := newHandler(ch, time.Second, logger)(ctx, record(t, notification.Message{To: "jane@example.com"}))

	assert.ErrorIs(t, err, context.Canceled)
	ch.AssertNumberOfCalls(t, "Deliver", 1)
}
