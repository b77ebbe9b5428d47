package models

import (
	"encoding/json"
	"time"
)

// Payment is an append-only ledger row. Reference is unique across the table.
type Payment struct {
	ID        string          `json:"id"`
	Reference string          `json:"reference"`
	BookingID string          `json:"booking_id"`
	Amount    int64           `json:"amount"` // minor units
	Currency  string          `json:"currency"`
	Status    PaymentStatus   `json:"status"`
	Raw       json.RawMessage `json:"raw,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}
