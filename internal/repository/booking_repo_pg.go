package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/Domenick1991/garagebooking/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ErrDuplicateReference means the generated reference is already taken.
var ErrDuplicateReference = errors.New("booking reference already exists")

// ErrDuplicatePaymentReference means the payment is already recorded on
// another booking.
var ErrDuplicatePaymentReference = errors.New("payment reference already used")

const (
	uniqueViolation      = "23505"
	referenceConstraint  = "bookings_reference_key"
	paymentRefConstraint = "bookings_payment_reference_key"
	bookingSelectColumns = `id, reference, service_type, to_char(booking_date, 'YYYY-MM-DD'), to_char(booking_time, 'HH24:MI'),
		registration, make, model, year, engine_capacity, fuel_type, using_mock_data,
		customer_name, customer_email, customer_phone, price_minor, currency,
		payment_status, payment_reference, booking_status, notes, created_at, updated_at`
)

// DB is the subset of pgxpool.Pool the repositories use.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type BookingRepository interface {
	Insert(ctx context.Context, booking *domain.Booking) error
	GetByID(ctx context.Context, id int64) (*domain.Booking, error)
	GetByReference(ctx context.Context, reference string) (*domain.Booking, error)
	UpdatePaymentStatus(ctx context.Context, id int64, from, to domain.PaymentStatus, paymentReference string) (bool, error)
}

type PGBookingRepository struct {
	db DB
}

func NewBookingRepository(db DB) BookingRepository {
	return &PGBookingRepository{db: db}
}

// Insert writes the booking in a single statement, so either the row with
// its reference exists afterwards or nothing does.
func (r *PGBookingRepository) Insert(ctx context.Context, b *domain.Booking) error {
	err := r.db.QueryRow(ctx, `INSERT INTO bookings (
			reference, service_type, booking_date, booking_time,
			registration, make, model, year, engine_capacity, fuel_type, using_mock_data,
			customer_name, customer_email, customer_phone, price_minor, currency,
			payment_status, booking_status, notes)
		VALUES ($1, $2, $3::text::date, $4::text::time, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
		RETURNING id, created_at, updated_at`,
		b.Reference, b.ServiceType, b.Date, b.Time,
		b.Vehicle.Registration, b.Vehicle.Make, b.Vehicle.Model, b.Vehicle.Year, b.Vehicle.EngineCapacity, string(b.Vehicle.FuelType), b.Vehicle.UsingMockData,
		b.Customer.Name, b.Customer.Email, b.Customer.Phone, int64(b.Price), b.Currency,
		string(b.PaymentStatus), string(b.BookingStatus), b.Notes,
	).Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation && pgErr.ConstraintName == referenceConstraint {
			return ErrDuplicateReference
		}
		return err
	}
	return nil
}

func (r *PGBookingRepository) GetByID(ctx context.Context, id int64) (*domain.Booking, error) {
	return scanBooking(r.db.QueryRow(ctx, `SELECT `+bookingSelectColumns+` FROM bookings WHERE id=$1`, id))
}

func (r *PGBookingRepository) GetByReference(ctx context.Context, reference string) (*domain.Booking, error) {
	return scanBooking(r.db.QueryRow(ctx, `SELECT `+bookingSelectColumns+` FROM bookings WHERE reference=$1`, reference))
}

// UpdatePaymentStatus moves payment_status from one value to another. It
// reports false when the booking was not in the from state, and returns
// ErrDuplicatePaymentReference when another booking already holds
// paymentReference.
func (r *PGBookingRepository) UpdatePaymentStatus(ctx context.Context, id int64, from, to domain.PaymentStatus, paymentReference string) (bool, error) {
	cmd, err := r.db.Exec(ctx, `UPDATE bookings
		SET payment_status=$1,
			payment_reference=CASE WHEN $2 = '' THEN payment_reference ELSE $2 END,
			updated_at=now()
		WHERE id=$3 AND payment_status=$4`, string(to), paymentReference, id, string(from))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation && pgErr.ConstraintName == paymentRefConstraint {
			return false, ErrDuplicatePaymentReference
		}
		return false, err
	}
	return cmd.RowsAffected() == 1, nil
}

func scanBooking(row pgx.Row) (*domain.Booking, error) {
	var (
		b       domain.Booking
		fuel    string
		price   int64
		payment string
		status  string
	)
	err := row.Scan(&b.ID, &b.Reference, &b.ServiceType, &b.Date, &b.Time,
		&b.Vehicle.Registration, &b.Vehicle.Make, &b.Vehicle.Model, &b.Vehicle.Year, &b.Vehicle.EngineCapacity, &fuel, &b.Vehicle.UsingMockData,
		&b.Customer.Name, &b.Customer.Email, &b.Customer.Phone, &price, &b.Currency,
		&payment, &b.PaymentReference, &status, &b.Notes, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("booking %w", domain.ErrNotFound)
		}
		return nil, err
	}
	b.Vehicle.FuelType = domain.FuelType(fuel)
	b.Price = domain.Money(price)
	b.PaymentStatus = domain.PaymentStatus(payment)
	b.BookingStatus = domain.BookingStatus(status)
	return &b, nil
}

var _ BookingRepository = (*PGBookingRepository)(nil)
