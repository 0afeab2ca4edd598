package repository

import (
	"context"

	"github.com/Domenick1991/garagebooking/internal/domain"
)

type AuditRepository interface {
	Append(ctx context.Context, entry domain.AuditEntry) error
	ListByBooking(ctx context.Context, bookingID int64) ([]domain.AuditEntry, error)
}

type PGAuditRepository struct {
	db DB
}

func NewAuditRepository(db DB) AuditRepository {
	return &PGAuditRepository{db: db}
}

func (r *PGAuditRepository) Append(ctx context.Context, e domain.AuditEntry) error {
	_, err := r.db.Exec(ctx, `INSERT INTO booking_audit (booking_id, action, details, actor) VALUES ($1, $2, $3, $4)`,
		e.BookingID, e.Action, e.Details, e.Actor)
	return err
}

func (r *PGAuditRepository) ListByBooking(ctx context.Context, bookingID int64) ([]domain.AuditEntry, error) {
	rows, err := r.db.Query(ctx, `SELECT id, booking_id, action, details, actor, created_at FROM booking_audit WHERE booking_id=$1 ORDER BY id`, bookingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []domain.AuditEntry
	for rows.Next() {
		var e domain.AuditEntry
		if err := rows.Scan(&e.ID, &e.BookingID, &e.Action, &e.Details, &e.Actor, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

var _ AuditRepository = (*PGAuditRepository)(nil)
