package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/baharkarakas/averulo-backend/internal/models"
	"github.com/baharkarakas/averulo-backend/internal/repository"
)

const maxTxAttempts = 3

type store struct{ pool *pgxpool.Pool }

// WithTx runs fn in a single READ COMMITTED transaction. Serialization failures and
// deadlocks are retried; fn must therefore be safe to run more than once.
func (s *store) WithTx(ctx context.Context, fn func(repository.Tx) error) error {
	return retryTx(func() error {
		return pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{
			IsoLevel:   pgx.ReadCommitted,
			AccessMode: pgx.ReadWrite,
		}, func(tx pgx.Tx) error {
			return fn(&pgTx{tx: tx})
		})
	})
}

// retryTx reruns run while it fails with a serialization failure or deadlock, up to
// maxTxAttempts times. Any other result is returned as is.
func retryTx(run func() error) error {
	var err error
	for attempt := 1; attempt <= maxTxAttempts; attempt++ {
		err = run()
		switch pgCode(err) {
		case codeSerializationFail, codeDeadlockDetected:
			continue
		}
		return err
	}
	return fmt.Errorf("transaction retries exhausted: %w", err)
}

type pgTx struct{ tx pgx.Tx }

func (t *pgTx) GetBookingForUpdate(ctx context.Context, id string) (models.Booking, error) {
	return getBooking(ctx, t.tx, `SELECT `+bookingCols+` FROM bookings WHERE id=$1 FOR UPDATE`, id)
}

func (t *pgTx) MarkBookingPaid(ctx context.Context, id string) (models.Booking, error) {
	b, err := scanBooking(t.tx.QueryRow(ctx,
		`UPDATE bookings
		    SET payment_status=$2, status=$3, updated_at=now()
		  WHERE id=$1
		  RETURNING `+bookingCols,
		id, models.PaymentSuccess, models.BookingApproved,
	))
	return b, mapErr(err)
}

func (t *pgTx) RecordSettlement(ctx context.Context, p models.Payment) (models.Payment, bool, error) {
	return recordSettlement(ctx, t.tx, p)
}

func (t *pgTx) CreateAudit(ctx context.Context, l models.AuditLog) error {
	return insertAudit(ctx, t.tx, l)
}
