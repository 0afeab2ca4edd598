package domain

import "time"

type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusFailed   PaymentStatus = "failed"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

type BookingStatus string

const (
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCompleted BookingStatus = "completed"
	BookingStatusCancelled BookingStatus = "cancelled"
	BookingStatusNoShow    BookingStatus = "no_show"
)

type Customer struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

type Booking struct {
	ID               int64
	Reference        string
	ServiceType      string
	Date             string
	Time             string
	Vehicle          VehicleAttributes
	Customer         Customer
	Price            Money
	Currency         string
	PaymentStatus    PaymentStatus
	PaymentReference string
	BookingStatus    BookingStatus
	Notes            string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// NewBooking is the caller-supplied part of a booking. Reference, status and
// timestamps are assigned by the ledger.
type NewBooking struct {
	ServiceType string            `validate:"required"`
	Date        string            `validate:"required,datetime=2006-01-02"`
	Time        string            `validate:"required,datetime=15:04"`
	Vehicle     VehicleAttributes `validate:"-"`
	Customer    NewCustomer
	Price       Money  `validate:"gte=0"`
	Currency    string `validate:"required,len=3,lowercase"`
	Notes       string `validate:"max=2000"`
}

type NewCustomer struct {
	Name  string `validate:"required,max=200"`
	Email string `validate:"required,email"`
	Phone string `validate:"max=40"`
}
