package models

import "time"

// AdCost is a manually entered marketing expense, consumed by the analytics
// aggregation as a cost input.
type AdCost struct {
	ID          int64     `json:"id"`
	AmountCents int       `json:"amount_cents"`
	Description string    `json:"description"`
	SpentOn     time.Time `json:"spent_on"`
	CreatedAt   time.Time `json:"created_at"`
}
