package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Domenick1991/garagebooking/internal/notification"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

const EventBookingConfirmation = "booking.confirmation"

type NotificationEvent struct {
	ID        string               `json:"id"`
	Type      string               `json:"type"`
	Message   notification.Message `json:"message"`
	CreatedAt time.Time            `json:"created_at"`
}

// NotificationQueue is a notification channel that hands messages to the
// worker through a topic instead of sending them inline.
type NotificationQueue struct {
	producer publisher
	topic    string
	retries  int
}

type publisher interface {
	PublishWithRetry(ctx context.Context, topic, key string, payload any, maxRetries int) error
}

func NewNotificationQueue(producer *Producer, topic string) *NotificationQueue {
	return &NotificationQueue{producer: producer, topic: topic, retries: 3}
}

func (q *NotificationQueue) Deliver(ctx context.Context, msg notification.Message) error {
	event := NotificationEvent{
		ID:        uuid.NewString(),
		Type:      EventBookingConfirmation,
		Message:   msg,
		CreatedAt: time.Now().UTC(),
	}
	return q.producer.PublishWithRetry(ctx, q.topic, msg.Reference, event, q.retries)
}

// DecodeNotification parses a consumed record into the message to send.
func DecodeNotification(m kafka.Message) (NotificationEvent, error) {
	var event NotificationEvent
	if err := json.Unmarshal(m.Value, &event); err != nil {
		return NotificationEvent{}, fmt.Errorf("decode notification at offset %d: %w", m.Offset, err)
	}
	if event.Message.To == "" {
		return NotificationEvent{}, fmt.Errorf("notification %s has no recipient", event.ID)
	}
	return event, nil
}

var _ notification.Channel = (*NotificationQueue)(nil)
