package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/baharkarakas/averulo-backend/internal/models"
	"github.com/baharkarakas/averulo-backend/internal/repository"
)

type bookingsRepo struct{ q querier }

const bookingCols = `id, property_id, guest_id, host_id, start_date, end_date, status,
	payment_ref, amount, currency, payment_status, created_at, updated_at`

func scanBooking(row interface{ Scan(...any) error }) (models.Booking, error) {
	var b models.Booking
	err := row.Scan(
		&b.ID, &b.PropertyID, &b.GuestID, &b.HostID, &b.StartDate, &b.EndDate, &b.Status,
		&b.PaymentRef, &b.Amount, &b.Currency, &b.PaymentStatus, &b.CreatedAt, &b.UpdatedAt,
	)
	return b, err
}

func collectBookings(rows pgx.Rows, err error) ([]models.Booking, error) {
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.Booking{}
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *bookingsRepo) Create(ctx context.Context, b models.Booking) (models.Booking, error) {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	return scanBooking(r.q.QueryRow(ctx,
		`INSERT INTO bookings(id, property_id, guest_id, host_id, start_date, end_date, status, payment_status)
		 VALUES($1,$2,$3,$4,$5,$6,$7,$8)
		 RETURNING `+bookingCols,
		b.ID, b.PropertyID, b.GuestID, b.HostID, b.StartDate, b.EndDate, models.BookingPending, models.PaymentNone,
	))
}

func (r *bookingsRepo) GetByID(ctx context.Context, id string) (models.Booking, error) {
	return getBooking(ctx, r.q, `SELECT `+bookingCols+` FROM bookings WHERE id=$1`, id)
}

func (r *bookingsRepo) GetByPaymentRef(ctx context.Context, ref string) (models.Booking, error) {
	return getBooking(ctx, r.q, `SELECT `+bookingCols+` FROM bookings WHERE payment_ref=$1`, ref)
}

func getBooking(ctx context.Context, q querier, sql string, arg string) (models.Booking, error) {
	b, err := scanBooking(q.QueryRow(ctx, sql, arg))
	return b, mapErr(err)
}

func (r *bookingsRepo) ListByGuest(ctx context.Context, guestID string) ([]models.Booking, error) {
	return collectBookings(r.q.Query(ctx,
		`SELECT `+bookingCols+` FROM bookings WHERE guest_id=$1 ORDER BY created_at DESC`, guestID))
}

func (r *bookingsRepo) ListForHost(ctx context.Context, hostID string) ([]models.Booking, error) {
	if hostID == "" {
		return collectBookings(r.q.Query(ctx,
			`SELECT `+bookingCols+` FROM bookings ORDER BY created_at DESC`))
	}
	return collectBookings(r.q.Query(ctx,
		`SELECT `+bookingCols+` FROM bookings WHERE host_id=$1 ORDER BY created_at DESC`, hostID))
}

func (r *bookingsRepo) UpdateStatus(ctx context.Context, id string, from, to models.BookingStatus) (models.Booking, error) {
	b, err := scanBooking(r.q.QueryRow(ctx,
		`UPDATE bookings SET status=$3, updated_at=now()
		  WHERE id=$1 AND status=$2
		  RETURNING `+bookingCols,
		id, from, to,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Booking{}, r.conflictOrMissing(ctx, id)
	}
	return b, mapErr(err)
}

func (r *bookingsRepo) SetPaymentInit(ctx context.Context, id, ref string, amount int64, currency string) (models.Booking, error) {
	b, err := scanBooking(r.q.QueryRow(ctx,
		`UPDATE bookings
		    SET payment_ref=$2, amount=$3, currency=$4, payment_status=$5, updated_at=now()
		  WHERE id=$1 AND payment_ref IS NULL
		  RETURNING `+bookingCols,
		id, ref, amount, currency, models.PaymentInitiated,
	))
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return models.Booking{}, r.conflictOrMissing(ctx, id)
	case pgCode(err) == codeUniqueViolation:
		return models.Booking{}, repository.ErrConflict
	}
	return b, mapErr(err)
}

func (r *bookingsRepo) conflictOrMissing(ctx context.Context, id string) error {
	if _, err := r.GetByID(ctx, id); err != nil {
		return err
	}
	return repository.ErrConflict
}
