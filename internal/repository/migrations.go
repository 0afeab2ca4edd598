package repository

import "context"

// schemaSQL is safe to run repeatedly.
const schemaSQL = `
CREATE TABLE IF NOT EXISTS bookings (
	id BIGSERIAL PRIMARY KEY,
	reference TEXT NOT NULL,
	service_type TEXT NOT NULL,
	booking_date DATE NOT NULL,
	booking_time TIME NOT NULL,
	registration TEXT NOT NULL DEFAULT '',
	make TEXT NOT NULL DEFAULT '',
	model TEXT NOT NULL DEFAULT '',
	year INTEGER NOT NULL DEFAULT 0,
	engine_capacity INTEGER NOT NULL DEFAULT 0,
	fuel_type TEXT NOT NULL DEFAULT '',
	using_mock_data BOOLEAN NOT NULL DEFAULT FALSE,
	customer_name TEXT NOT NULL,
	customer_email TEXT NOT NULL,
	customer_phone TEXT NOT NULL DEFAULT '',
	price_minor BIGINT NOT NULL CHECK (price_minor >= 0),
	currency TEXT NOT NULL,
	payment_status TEXT NOT NULL DEFAULT 'pending'
		CHECK (payment_status IN ('pending', 'paid', 'failed', 'refunded')),
	payment_reference TEXT NOT NULL DEFAULT '',
	booking_status TEXT NOT NULL DEFAULT 'confirmed'
		CHECK (booking_status IN ('confirmed', 'completed', 'cancelled', 'no_show')),
	notes TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	CONSTRAINT bookings_reference_key UNIQUE (reference)
);

CREATE INDEX IF NOT EXISTS idx_bookings_booking_date ON bookings(booking_date, booking_time);

CREATE UNIQUE INDEX IF NOT EXISTS bookings_payment_reference_key ON bookings(payment_reference)
	WHERE payment_reference <> '';

CREATE TABLE IF NOT EXISTS booking_audit (
	id BIGSERIAL PRIMARY KEY,
	booking_id BIGINT NOT NULL,
	action TEXT NOT NULL,
	details TEXT NOT NULL DEFAULT '',
	actor TEXT NOT NULL DEFAULT 'system',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_booking_audit_booking_id ON booking_audit(booking_id);
`

func Migrate(ctx context.Context, db DB) error {
	_, err := db.Exec(ctx, schemaSQL)
	return err
}
