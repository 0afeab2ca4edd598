// Package ledger owns booking rows: it validates new bookings, allocates
// their reference and guards payment status changes.
package ledger

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/Domenick1991/garagebooking/config"
	"github.com/Domenick1991/garagebooking/internal/domain"
	"github.com/Domenick1991/garagebooking/internal/repository"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
)

const (
	referenceAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	referenceLength   = 6
)

type Ledger struct {
	bookings repository.BookingRepository
	validate *validator.Validate
	prefix   string
	attempts int
	log      logrus.FieldLogger
	newCode  func() (string, error)
}

func New(bookings repository.BookingRepository, cfg config.BookingConfig, log logrus.FieldLogger) *Ledger {
	attempts := cfg.ReferenceAttempts
	if attempts <= 0 {
		attempts = 5
	}
	return &Ledger{
		bookings: bookings,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		prefix:   strings.ToUpper(cfg.ReferencePrefix),
		attempts: attempts,
		log:      log,
		newCode:  randomCode,
	}
}

// Create validates and stores a new pending booking. Validation happens
// before anything touches the store; errors wrap ErrValidationFailed or
// ErrPersistenceFailed.
func (l *Ledger) Create(ctx context.Context, in domain.NewBooking) (*domain.Booking, error) {
	in.Customer.Name = strings.TrimSpace(in.Customer.Name)
	in.Customer.Email = strings.TrimSpace(in.Customer.Email)
	in.Customer.Phone = strings.TrimSpace(in.Customer.Phone)
	in.ServiceType = strings.TrimSpace(in.ServiceType)
	in.Date = strings.TrimSpace(in.Date)
	in.Time = strings.TrimSpace(in.Time)

	if err := l.Validate(in); err != nil {
		return nil, err
	}

	b := &domain.Booking{
		ServiceType:   in.ServiceType,
		Date:          in.Date,
		Time:          in.Time,
		Vehicle:       in.Vehicle,
		Customer:      domain.Customer{Name: in.Customer.Name, Email: in.Customer.Email, Phone: in.Customer.Phone},
		Price:         in.Price,
		Currency:      in.Currency,
		PaymentStatus: domain.PaymentStatusPending,
		BookingStatus: domain.BookingStatusConfirmed,
		Notes:         in.Notes,
	}

	for attempt := 1; attempt <= l.attempts; attempt++ {
		code, err := l.newCode()
		if err != nil {
			return nil, fmt.Errorf("%w: generate reference: %v", domain.ErrPersistenceFailed, err)
		}
		b.Reference = l.prefix + "-" + code

		err = l.bookings.Insert(ctx, b)
		if err == nil {
			return b, nil
		}
		if errors.Is(err, repository.ErrDuplicateReference) {
			l.log.WithFields(logrus.Fields{"reference": b.Reference, "attempt": attempt}).Warn("booking reference collision, retrying")
			continue
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrPersistenceFailed, err)
	}
	return nil, fmt.Errorf("%w: no unique reference after %d attempts", domain.ErrPersistenceFailed, l.attempts)
}

// Validate checks the required booking fields without storing anything.
func (l *Ledger) Validate(in domain.NewBooking) error {
	err := l.validate.Struct(in)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", domain.ErrValidationFailed, err)
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fieldName(fe.Namespace())] = describe(fe)
	}
	return &domain.ValidationError{Fields: fields}
}

// UpdatePaymentStatus allows pending→paid and pending→failed only. Any
// other request, including one against a booking that already left
// pending, returns false and changes nothing. A payment reference already
// held by another booking is rejected with ErrPaymentReused.
func (l *Ledger) UpdatePaymentStatus(ctx context.Context, bookingID int64, status domain.PaymentStatus, paymentReference string) (bool, error) {
	if status != domain.PaymentStatusPaid && status != domain.PaymentStatusFailed {
		return false, nil
	}
	ok, err := l.bookings.UpdatePaymentStatus(ctx, bookingID, domain.PaymentStatusPending, status, paymentReference)
	if errors.Is(err, repository.ErrDuplicatePaymentReference) {
		return false, fmt.Errorf("%w: %s", domain.ErrPaymentReused, paymentReference)
	}
	if err != nil {
		return false, fmt.Errorf("%w: %v", domain.ErrPersistenceFailed, err)
	}
	if !ok {
		l.log.WithFields(logrus.Fields{"booking_id": bookingID, "status": status}).Info("payment status transition rejected")
	}
	return ok, nil
}

func (l *Ledger) Get(ctx context.Context, bookingID int64) (*domain.Booking, error) {
	b, err := l.bookings.GetByID(ctx, bookingID)
	return b, readError(err)
}

func (l *Ledger) GetByReference(ctx context.Context, reference string) (*domain.Booking, error) {
	b, err := l.bookings.GetByReference(ctx, strings.ToUpper(strings.TrimSpace(reference)))
	return b, readError(err)
}

func readError(err error) error {
	if err == nil || errors.Is(err, domain.ErrNotFound) {
		return err
	}
	return fmt.Errorf("%w: %v", domain.ErrPersistenceFailed, err)
}

func randomCode() (string, error) {
	max := big.NewInt(int64(len(referenceAlphabet)))
	out := make([]byte, referenceLength)
	for i := range out {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		out[i] = referenceAlphabet[n.Int64()]
	}
	return string(out), nil
}

// fieldName turns "NewBooking.Customer.Email" into "customer_email".
func fieldName(namespace string) string {
	parts := strings.Split(namespace, ".")
	if len(parts) > 1 {
		parts = parts[1:]
	}
	name := strings.Join(parts, "_")
	var b strings.Builder
	for i, r := range name {
		if r >= 'A' && r <= 'Z' {
			if i > 0 && name[i-1] != '_' {
				b.WriteByte('_')
			}
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "datetime":
		return "must match " + fe.Param()
	case "max":
		return "is too long"
	default:
		return "is invalid (" + fe.Tag() + ")"
	}
}
