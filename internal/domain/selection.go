package domain

import "time"

// ServiceSelection is what a visitor picked before their vehicle is known.
// Prices here are indicative only; the booking is priced again once the
// vehicle has been resolved.
type ServiceSelection struct {
	ServiceKey string    `json:"service_key"`
	Combo      bool      `json:"combo"`
	UnitPrice  Money     `json:"unit_price"`
	TotalPrice Money     `json:"total_price"`
	StagedAt   time.Time `json:"staged_at"`
}

type AuditEntry struct {
	ID        int64
	BookingID int64
	Action    string
	Details   string
	Actor     string
	CreatedAt time.Time
}
