// Package booking runs the booking pipeline: resolve the vehicle, price the
// job, store the booking, take payment and send the confirmation.
package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Domenick1991/garagebooking/internal/audit"
	"github.com/Domenick1991/garagebooking/internal/domain"
	"github.com/Domenick1991/garagebooking/internal/payment"
	"github.com/Domenick1991/garagebooking/internal/pricing"
	"github.com/sirupsen/logrus"
)

type BookingUseCase interface {
	Catalog() []pricing.Service
	ResolveVehicle(ctx context.Context, registration string) domain.VehicleAttributes
	StageSelection(ctx context.Context, visitorID, serviceType string, combo bool) (domain.ServiceSelection, error)
	GetSelection(ctx context.Context, visitorID string) (*domain.ServiceSelection, error)
	Quote(ctx context.Context, input QuoteInput) (*QuoteResult, error)
	CreatePaymentIntent(ctx context.Context, amount domain.Money) (payment.Intent, error)
	Submit(ctx context.Context, input SubmitInput) (*Result, error)
	GetBooking(ctx context.Context, reference string) (*domain.Booking, error)
	ConfirmPayment(ctx context.Context, reference, intentID string) (*Result, error)
}

type VehicleResolver interface {
	Resolve(ctx context.Context, registration string) domain.VehicleAttributes
}

type Pricer interface {
	ServiceKey(serviceType string) (string, error)
	ServiceName(key string) string
	Catalog() []pricing.Service
	Quote(serviceType string, engineCapacity int, fuel domain.FuelType, selection *domain.ServiceSelection) (domain.Money, error)
	StageSelection(serviceType string, combo bool) (domain.ServiceSelection, error)
}

type Ledger interface {
	Create(ctx context.Context, in domain.NewBooking) (*domain.Booking, error)
	UpdatePaymentStatus(ctx context.Context, bookingID int64, status domain.PaymentStatus, paymentReference string) (bool, error)
	GetByReference(ctx context.Context, reference string) (*domain.Booking, error)
}

type Notifier interface {
	Send(ctx context.Context, b *domain.Booking) bool
}

type AuditLog interface {
	Append(ctx context.Context, bookingID int64, action, details string)
}

// SelectionStore keeps the per-visitor service selection between requests.
type SelectionStore interface {
	StageSelection(ctx context.Context, visitorID string, sel domain.ServiceSelection) error
	GetSelection(ctx context.Context, visitorID string) (*domain.ServiceSelection, error)
	ClearSelection(ctx context.Context, visitorID string) error
}

type BookingService struct {
	vehicles   VehicleResolver
	pricer     Pricer
	ledger     Ledger
	payments   payment.Gateway
	notifier   Notifier
	audit      AuditLog
	selections SelectionStore
	currency   string
	log        logrus.FieldLogger
	now        func() time.Time
}

type BookingServiceOption func(*BookingService)

// WithSelectionStore enables staged selections. Without one, combo pricing
// only comes from the submitted input.
func WithSelectionStore(store SelectionStore) BookingServiceOption {
	return func(s *BookingService) {
		s.selections = store
	}
}

// WithClock replaces time.Now for selection timestamps.
func WithClock(now func() time.Time) BookingServiceOption {
	return func(s *BookingService) {
		s.now = now
	}
}

func NewBookingService(
	vehicles VehicleResolver,
	pricer Pricer,
	ledger Ledger,
	payments payment.Gateway,
	notifier Notifier,
	auditLog AuditLog,
	currency string,
	log logrus.FieldLogger,
	opts ...BookingServiceOption,
) *BookingService {
	s := &BookingService{
		vehicles: vehicles,
		pricer:   pricer,
		ledger:   ledger,
		payments: payments,
		notifier: notifier,
		audit:    auditLog,
		currency: strings.ToLower(currency),
		log:      log,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type SubmitInput struct {
	VisitorID       string          `json:"-"`
	ServiceType     string          `json:"service_type"`
	Combo           bool            `json:"combo"`
	Date            string          `json:"date"`
	Time            string          `json:"time"`
	Registration    string          `json:"registration"`
	Customer        domain.Customer `json:"customer"`
	Notes           string          `json:"notes"`
	PaymentIntentID string          `json:"payment_intent_id"`
}

type Result struct {
	BookingID        int64                    `json:"booking_id"`
	Reference        string                   `json:"reference"`
	ServiceType      string                   `json:"service_type"`
	Price            domain.Money             `json:"price"`
	PriceDisplay     string                   `json:"price_display"`
	Currency         string                   `json:"currency"`
	PaymentStatus    domain.PaymentStatus     `json:"payment_status"`
	PaymentMessage   string                   `json:"payment_message,omitempty"`
	NotificationSent bool                     `json:"notification_sent"`
	UsingMockData    bool                     `json:"using_mock_data"`
	Vehicle          domain.VehicleAttributes `json:"vehicle"`
}

type QuoteInput struct {
	VisitorID    string `json:"-"`
	ServiceType  string `json:"service_type"`
	Registration string `json:"registration"`
	Combo        bool   `json:"combo"`
}

type QuoteResult struct {
	ServiceKey    string                   `json:"service_key"`
	ServiceName   string                   `json:"service_name"`
	Combo         bool                     `json:"combo"`
	Price         domain.Money             `json:"price"`
	PriceDisplay  string                   `json:"price_display"`
	Currency      string                   `json:"currency"`
	UsingMockData bool                     `json:"using_mock_data"`
	Vehicle       domain.VehicleAttributes `json:"vehicle"`
}

func (s *BookingService) Catalog() []pricing.Service {
	return s.pricer.Catalog()
}

func (s *BookingService) ResolveVehicle(ctx context.Context, registration string) domain.VehicleAttributes {
	return s.vehicles.Resolve(ctx, registration)
}

func (s *BookingService) StageSelection(ctx context.Context, visitorID, serviceType string, combo bool) (domain.ServiceSelection, error) {
	sel, err := s.pricer.StageSelection(serviceType, combo)
	if err != nil {
		return domain.ServiceSelection{}, serviceError(err)
	}
	sel.StagedAt = s.now().UTC()
	if s.selections == nil {
		return sel, nil
	}
	if err := s.selections.StageSelection(ctx, visitorID, sel); err != nil {
		return domain.ServiceSelection{}, fmt.Errorf("%w: stage selection: %v", domain.ErrPersistenceFailed, err)
	}
	return sel, nil
}

func (s *BookingService) GetSelection(ctx context.Context, visitorID string) (*domain.ServiceSelection, error) {
	if s.selections == nil {
		return nil, nil
	}
	sel, err := s.selections.GetSelection(ctx, visitorID)
	if err != nil {
		return nil, fmt.Errorf("%w: read selection: %v", domain.ErrPersistenceFailed, err)
	}
	return sel, nil
}

// Quote resolves the vehicle and prices the service without storing
// anything.
func (s *BookingService) Quote(ctx context.Context, input QuoteInput) (*QuoteResult, error) {
	key, err := s.pricer.ServiceKey(input.ServiceType)
	if err != nil {
		return nil, serviceError(err)
	}
	vehicle := s.vehicles.Resolve(ctx, input.Registration)
	sel := s.effectiveSelection(ctx, input.VisitorID, key, input.Combo)

	price, err := s.pricer.Quote(key, vehicle.EngineCapacity, vehicle.FuelType, sel)
	if err != nil {
		return nil, serviceError(err)
	}
	return &QuoteResult{
		ServiceKey:    key,
		ServiceName:   s.pricer.ServiceName(key),
		Combo:         sel != nil && sel.Combo,
		Price:         price,
		PriceDisplay:  price.Format(s.currency),
		Currency:      s.currency,
		UsingMockData: vehicle.UsingMockData,
		Vehicle:       vehicle,
	}, nil
}

func (s *BookingService) CreatePaymentIntent(ctx context.Context, amount domain.Money) (payment.Intent, error) {
	return s.payments.CreateIntent(ctx, amount.MinorUnits(), s.currency)
}

func (s *BookingService) GetBooking(ctx context.Context, reference string) (*domain.Booking, error) {
	return s.ledger.GetByReference(ctx, reference)
}

// Submit turns a reservation request into a stored booking. Only
// validation and storage failures are returned as errors; once the booking
// exists, payment and notification problems are reported in the Result.
func (s *BookingService) Submit(ctx context.Context, input SubmitInput) (*Result, error) {
	vehicle := s.vehicles.Resolve(ctx, input.Registration)

	serviceType := strings.TrimSpace(input.ServiceType)
	var sel *domain.ServiceSelection
	if serviceType != "" {
		key, err := s.pricer.ServiceKey(serviceType)
		if err != nil {
			return nil, serviceError(err)
		}
		serviceType = key
		sel = s.effectiveSelection(ctx, input.VisitorID, key, input.Combo)
	}

	price, err := s.pricer.Quote(serviceType, vehicle.EngineCapacity, vehicle.FuelType, sel)
	if err != nil {
		return nil, serviceError(err)
	}

	b, err := s.ledger.Create(ctx, domain.NewBooking{
		ServiceType: serviceType,
		Date:        input.Date,
		Time:        input.Time,
		Vehicle:     vehicle,
		Customer: domain.NewCustomer{
			Name:  input.Customer.Name,
			Email: input.Customer.Email,
			Phone: input.Customer.Phone,
		},
		Price:    price,
		Currency: s.currency,
		Notes:    input.Notes,
	})
	if err != nil {
		return nil, err
	}
	// The booking is stored; finish the pipeline even if the caller goes away.
	ctx = context.WithoutCancel(ctx)

	entry := s.log.WithFields(logrus.Fields{"booking_id": b.ID, "reference": b.Reference})
	entry.WithFields(logrus.Fields{"service": b.ServiceType, "price": b.Price.String()}).Info("booking created")

	details := fmt.Sprintf("service=%s price=%s", b.ServiceType, b.Price.Format(b.Currency))
	if sel != nil && sel.Combo {
		details += " combo"
	}
	s.audit.Append(ctx, b.ID, audit.ActionBookingCreated, details)
	if vehicle.UsingMockData {
		s.audit.Append(ctx, b.ID, audit.ActionVehicleFallback, "registration="+vehicle.Registration)
	}

	result := &Result{}
	if intentID := strings.TrimSpace(input.PaymentIntentID); intentID != "" {
		result.PaymentMessage = s.settlePayment(ctx, b, intentID)
	}

	result.NotificationSent = s.notifier.Send(ctx, b)
	if result.NotificationSent {
		s.audit.Append(ctx, b.ID, audit.ActionNotificationSent, "to="+b.Customer.Email)
	} else {
		s.audit.Append(ctx, b.ID, audit.ActionNotificationFailed, "to="+b.Customer.Email)
	}

	if s.selections != nil && input.VisitorID != "" {
		if err := s.selections.ClearSelection(ctx, input.VisitorID); err != nil {
			entry.WithError(err).Warn("clear staged selection")
		}
	}

	fillResult(result, b)
	return result, nil
}

// ConfirmPayment verifies an intent for a booking that was stored before
// the customer paid. A booking that already left pending is returned as is.
func (s *BookingService) ConfirmPayment(ctx context.Context, reference, intentID string) (*Result, error) {
	if strings.TrimSpace(intentID) == "" {
		return nil, &domain.ValidationError{Fields: map[string]string{"payment_intent_id": "is required"}}
	}
	b, err := s.ledger.GetByReference(ctx, reference)
	if err != nil {
		return nil, err
	}

	result := &Result{}
	if b.PaymentStatus != domain.PaymentStatusPending {
		result.PaymentMessage = "payment already recorded as " + string(b.PaymentStatus)
	} else {
		result.PaymentMessage = s.settlePayment(context.WithoutCancel(ctx), b, strings.TrimSpace(intentID))
	}
	fillResult(result, b)
	return result, nil
}

// settlePayment verifies the intent and records the outcome on b. It
// returns a message for the customer when the payment did not go through.
// A succeeded intent only marks b paid when it covers the price in the
// booking currency; otherwise b stays pending for manual follow-up.
func (s *BookingService) settlePayment(ctx context.Context, b *domain.Booking, intentID string) string {
	entry := s.log.WithFields(logrus.Fields{"booking_id": b.ID, "reference": b.Reference, "intent_id": intentID})

	v, err := s.payments.VerifyIntent(ctx, intentID)
	if err != nil {
		entry.WithError(err).Warn("payment verification unavailable, booking left pending")
		s.audit.Append(ctx, b.ID, audit.ActionPaymentPending, err.Error())
		if errors.Is(err, domain.ErrNotConfigured) {
			return "online payment is not available; payment is due on the day"
		}
		return "we could not confirm your payment yet; payment status is pending"
	}

	target := domain.PaymentStatusFailed
	if v.Status == payment.StatusSucceeded {
		if !coversPrice(v, b) {
			entry.WithFields(logrus.Fields{
				"amount_received": v.AmountReceived,
				"currency":        v.Currency,
				"price":           b.Price.MinorUnits(),
			}).Warn("payment does not cover booking price, booking left pending")
			s.audit.Append(ctx, b.ID, audit.ActionPaymentMismatch, fmt.Sprintf("intent=%s received=%d %s expected=%d %s",
				intentID, v.AmountReceived, strings.ToLower(v.Currency), b.Price.MinorUnits(), b.Currency))
			return "your payment does not match the booking price; payment status is pending"
		}
		target = domain.PaymentStatusPaid
	}

	ok, err := s.ledger.UpdatePaymentStatus(ctx, b.ID, target, intentID)
	if errors.Is(err, domain.ErrPaymentReused) {
		entry.WithError(err).Warn("payment intent already recorded on another booking")
		s.audit.Append(ctx, b.ID, audit.ActionPaymentReused, "intent="+intentID)
		return "this payment has already been used for another booking; payment status is pending"
	}
	if err != nil {
		entry.WithError(err).Error("record payment status")
		return "payment outcome could not be recorded; payment status is pending"
	}
	if !ok {
		s.audit.Append(ctx, b.ID, audit.ActionTransitionRejected, fmt.Sprintf("%s -> %s", b.PaymentStatus, target))
		return "payment already recorded"
	}
	b.PaymentStatus = target
	b.PaymentReference = intentID

	if target == domain.PaymentStatusFailed {
		entry.WithField("remote_status", v.RemoteStatus).Info("payment failed")
		s.audit.Append(ctx, b.ID, audit.ActionPaymentFailed, v.Message)
		return v.Message
	}

	s.audit.Append(ctx, b.ID, audit.ActionPaymentSucceeded, fmt.Sprintf("intent=%s amount=%d", intentID, v.AmountReceived))
	return ""
}

func coversPrice(v payment.Verification, b *domain.Booking) bool {
	return strings.EqualFold(v.Currency, b.Currency) && v.AmountReceived >= b.Price.MinorUnits()
}

// effectiveSelection picks the combo choice for key: the visitor's staged
// selection when it is for the same service, otherwise the explicit flag.
func (s *BookingService) effectiveSelection(ctx context.Context, visitorID, key string, combo bool) *domain.ServiceSelection {
	if s.selections != nil && visitorID != "" {
		staged, err := s.selections.GetSelection(ctx, visitorID)
		if err != nil {
			s.log.WithError(err).Warn("read staged selection")
		} else if staged != nil && staged.ServiceKey == key {
			if combo && !staged.Combo {
				staged.Combo = true
			}
			return staged
		}
	}
	if combo {
		return &domain.ServiceSelection{ServiceKey: key, Combo: true}
	}
	return nil
}

func fillResult(r *Result, b *domain.Booking) {
	r.BookingID = b.ID
	r.Reference = b.Reference
	r.ServiceType = b.ServiceType
	r.Price = b.Price
	r.PriceDisplay = b.Price.Format(b.Currency)
	r.Currency = b.Currency
	r.PaymentStatus = b.PaymentStatus
	r.UsingMockData = b.Vehicle.UsingMockData
	r.Vehicle = b.Vehicle
}

func serviceError(err error) error {
	if errors.Is(err, domain.ErrUnknownService) {
		return &domain.ValidationError{Fields: map[string]string{"service_type": "is not a known service"}}
	}
	return err
}

var _ BookingUseCase = (*BookingService)(nil)
