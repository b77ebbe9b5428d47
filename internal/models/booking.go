package models

import "time"

type BookingStatus string

const (
	BookingPending   BookingStatus = "PENDING"
	BookingApproved  BookingStatus = "APPROVED"
	BookingRejected  BookingStatus = "REJECTED"
	BookingCancelled BookingStatus = "CANCELLED"
)

type PaymentStatus string

const (
	PaymentNone      PaymentStatus = "NONE"
	PaymentInitiated PaymentStatus = "INITIATED"
	PaymentSuccess   PaymentStatus = "SUCCESS"
	PaymentFailed    PaymentStatus = "FAILED"
)

// Booking carries two independent state machines: Status (host/guest decision)
// and PaymentStatus (settlement). They meet only when a settlement succeeds,
// which forces Status to APPROVED.
type Booking struct {
	ID            string        `json:"id"`
	PropertyID    string        `json:"property_id"`
	GuestID       string        `json:"guest_id"`
	HostID        string        `json:"host_id"`
	StartDate     time.Time     `json:"start_date"`
	EndDate       time.Time     `json:"end_date"`
	Status        BookingStatus `json:"status"`
	PaymentRef    *string       `json:"payment_ref,omitempty"`
	Amount        *int64        `json:"amount,omitempty"` // minor units
	Currency      *string       `json:"currency,omitempty"`
	PaymentStatus PaymentStatus `json:"payment_status"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// Nights is the whole number of nights between check-in and check-out.
func (b Booking) Nights() int64 {
	return int64(b.EndDate.Sub(b.StartDate).Hours() / 24)
}

// CanTransition reports whether Status may move to target. Every edge starts at PENDING.
func (s BookingStatus) CanTransition(target BookingStatus) bool {
	if s != BookingPending {
		return false
	}
	switch target {
	case BookingApproved, BookingRejected, BookingCancelled:
		return true
	}
	return false
}

func (s BookingStatus) Valid() bool {
	switch s {
	case BookingPending, BookingApproved, BookingRejected, BookingCancelled:
		return true
	}
	return false
}
