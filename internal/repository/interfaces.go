package repository

import (
	"context"
	"errors"

	"github.com/baharkarakas/averulo-backend/internal/models"
)

var (
	ErrNotFound = errors.New("record not found")
	// ErrConflict means a compare-and-set write found the row in another state.
	ErrConflict = errors.New("record changed concurrently")
)

type Users interface {
	Create(ctx context.Context, email, role string) (models.User, error)
	GetByID(ctx context.Context, id string) (models.User, error)
	GetByEmail(ctx context.Context, email string) (models.User, error)
}

type PropertyFilter struct {
	City   string
	Status models.PropertyStatus
	Limit  int
	Offset int
}

type Properties interface {
	Create(ctx context.Context, p models.Property) (models.Property, error)
	GetByID(ctx context.Context, id string) (models.Property, error)
	List(ctx context.Context, f PropertyFilter) ([]models.Property, int, error)
}

type Bookings interface {
	Create(ctx context.Context, b models.Booking) (models.Booking, error)
	GetByID(ctx context.Context, id string) (models.Booking, error)
	GetByPaymentRef(ctx context.Context, ref string) (models.Booking, error)
	// Newest first.
	ListByGuest(ctx context.Context, guestID string) ([]models.Booking, error)
	// Empty hostID lists every booking. Newest first.
	ListForHost(ctx context.Context, hostID string) ([]models.Booking, error)
	// UpdateStatus moves status from -> to and returns ErrConflict when the row is no longer in from.
	UpdateStatus(ctx context.Context, id string, from, to models.BookingStatus) (models.Booking, error)
	// SetPaymentInit assigns the payment reference once; ErrConflict if one is already set.
	SetPaymentInit(ctx context.Context, id, ref string, amount int64, currency string) (models.Booking, error)
}

type Payments interface {
	// RecordSettlement inserts p unless a row with p.Reference exists, in which case the
	// existing row is returned with created=false.
	RecordSettlement(ctx context.Context, p models.Payment) (row models.Payment, created bool, err error)
	Exists(ctx context.Context, ref string) (bool, error)
	ListByGuest(ctx context.Context, guestID string) ([]models.Payment, error)
	ListByBooking(ctx context.Context, bookingID string) ([]models.Payment, error)
}

type AuditLogs interface {
	Create(ctx context.Context, l models.AuditLog) error
}

// Tx is the write surface available inside Store.WithTx. Everything done through
// it commits or rolls back as one unit.
type Tx interface {
	GetBookingForUpdate(ctx context.Context, id string) (models.Booking, error)
	// MarkBookingPaid sets payment_status=SUCCESS and status=APPROVED. It is a write to a
	// fixed target state, so repeating it is harmless.
	MarkBookingPaid(ctx context.Context, id string) (models.Booking, error)
	RecordSettlement(ctx context.Context, p models.Payment) (models.Payment, bool, error)
	CreateAudit(ctx context.Context, l models.AuditLog) error
}

type Store interface {
	WithTx(ctx context.Context, fn func(Tx) error) error
}

type Repositories struct {
	Users      Users
	Properties Properties
	Bookings   Bookings
	Payments   Payments
	AuditLogs  AuditLogs
	Store      Store
}
