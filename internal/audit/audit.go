// Package audit records booking lifecycle events. Writes never fail the
// caller.
package audit

import (
	"context"
	"time"

	"github.com/Domenick1991/garagebooking/config"
	"github.com/Domenick1991/garagebooking/internal/domain"
	"github.com/Domenick1991/garagebooking/internal/repository"
	"github.com/sirupsen/logrus"
)

const (
	ActionBookingCreated     = "booking_created"
	ActionVehicleFallback    = "vehicle_data_fallback"
	ActionPaymentSucceeded   = "payment_succeeded"
	ActionPaymentFailed      = "payment_failed"
	ActionPaymentPending     = "payment_pending"
	ActionPaymentMismatch    = "payment_amount_mismatch"
	ActionPaymentReused      = "payment_intent_reused"
	ActionNotificationSent   = "notification_sent"
	ActionNotificationFailed = "notification_failed"
	ActionTransitionRejected = "payment_transition_rejected"
)

type Log struct {
	repo    repository.AuditRepository
	actor   string
	timeout time.Duration
	log     logrus.FieldLogger
}

func New(repo repository.AuditRepository, cfg config.AuditConfig, log logrus.FieldLogger) *Log {
	actor := cfg.Actor
	if actor == "" {
		actor = "system"
	}
	return &Log{repo: repo, actor: actor, timeout: cfg.Timeout, log: log}
}

func (l *Log) Append(ctx context.Context, bookingID int64, action, details string) {
	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}
	err := l.repo.Append(ctx, domain.AuditEntry{
		BookingID: bookingID,
		Action:    action,
		Details:   details,
		Actor:     l.actor,
	})
	if err != nil {
		l.log.WithError(err).WithFields(logrus.Fields{"booking_id": bookingID, "action": action}).Warn("audit write failed")
	}
}

// History returns the recorded entries for a booking, oldest first.
func (l *Log) History(ctx context.Context, bookingID int64) ([]domain.AuditEntry, error) {
	return l.repo.ListByBooking(ctx, bookingID)
}
