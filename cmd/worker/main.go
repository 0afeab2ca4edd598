package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Domenick1991/garagebooking/config"
	"github.com/Domenick1991/garagebooking/internal/email"
	"github.com/Domenick1991/garagebooking/internal/kafka"
	"github.com/Domenick1991/garagebooking/internal/logging"
	"github.com/Domenick1991/garagebooking/internal/notification"
	kafkaGo "github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

const deliveryAttempts = 3

func main() {
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	log, err := logging.New(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	if !cfg.Kafka.Enabled() {
		log.Fatal("kafka.brokers and kafka.notifications_topic are required for the worker")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.NotificationsTopic)
	defer consumer.Close()

	sender := email.NewSender(cfg.SMTP, cfg.Notification.From)
	handle := newHandler(sender, cfg.Notification.Timeout, log)

	log.WithField("topic", cfg.Kafka.NotificationsTopic).Info("notification worker started")
	if err := consumer.Consume(ctx, handle); err != nil {
		log.WithError(err).Fatal("consumer stopped")
	}
	log.Info("notification worker stopped")
}

// newHandler sends each queued notification, retrying a few times before
// giving up on it. Undecodable or undeliverable messages are logged and
// skipped so one bad record cannot stall the partition.
func newHandler(channel notification.Channel, timeout time.Duration, log logrus.FieldLogger) func(context.Context, kafkaGo.Message) error {
	return func(ctx context.Context, m kafkaGo.Message) error {
		event, err := kafka.DecodeNotification(m)
		if err != nil {
			log.WithError(err).WithField("offset", m.Offset).Error("skipping notification")
			return nil
		}
		entry := log.WithFields(logrus.Fields{
			"event_id":   event.ID,
			"booking_id": event.Message.BookingID,
			"reference":  event.Message.Reference,
		})

		for attempt := 1; attempt <= deliveryAttempts; attempt++ {
			err = deliver(ctx, channel, event.Message, timeout)
			if err == nil {
				entry.Info("notification delivered")
				return nil
			}
			if errors.Is(err, context.Canceled) {
				return err
			}
			entry.WithError(err).WithField("attempt", attempt).Warn("notification delivery failed")
			if attempt == deliveryAttempts {
				break
			}

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(attempt) * time.Second):
			}
		}
		entry.WithError(err).Error("giving up on notification")
		return nil
	}
}

func deliver(ctx context.Context, channel notification.Channel, msg notification.Message, timeout time.Duration) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return channel.Deliver(ctx, msg)
}
