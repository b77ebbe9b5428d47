package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/baharkarakas/averulo-backend/internal/models"
	"github.com/baharkarakas/averulo-backend/internal/notify"
	repo "github.com/baharkarakas/averulo-backend/internal/repository"
)

func TestReconciler_Settle(t *testing.T) {
	ctx := context.Background()

	t.Run("Given one reference When settled concurrently Then exactly one ledger row", func(t *testing.T) {
		f := newFixture(t)
		b, ref := f.initiated(t)

		const n = 16
		var created int32
		var wg sync.WaitGroup
		errs := make(chan error, n)
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				res, err := f.rec.Settle(ctx, Settlement{Reference: ref, BookingID: b.ID, Amount: 30000, Currency: "NGN"}, "test")
				if err != nil {
					errs <- err
					return
				}
				if res.Created {
					atomic.AddInt32(&created, 1)
				}
			}()
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			t.Fatalf("settle: %v", err)
		}

		if created != 1 {
			t.Fatalf("created reported %d times", created)
		}
		if ps := f.ledger(t, b.ID); len(ps) != 1 {
			t.Fatalf("ledger rows = %d", len(ps))
		}
		got := f.reload(t, b.ID)
		if got.Status != models.BookingApproved || got.PaymentStatus != models.PaymentSuccess {
			t.Fatalf("unexpected state: %s/%s", got.Status, got.PaymentStatus)
		}

		f.flush()
		if evs := f.notifier.byKind(notify.PaymentSucceeded); len(evs) != 1 || evs[0].Reference != ref || evs[0].Amount != 30000 {
			t.Fatalf("expected one payment.succeeded, got %+v", evs)
		}
	})

	t.Run("Given a settled reference When settled again Then not created and state unchanged", func(t *testing.T) {
		f := newFixture(t)
		b, ref := f.initiated(t)
		first, err := f.rec.Settle(ctx, Settlement{Reference: ref, BookingID: b.ID}, "test")
		if err != nil || !first.Created {
			t.Fatalf("first settle: %+v, %v", first, err)
		}
		second, err := f.rec.Settle(ctx, Settlement{Reference: ref, BookingID: b.ID}, "test")
		if err != nil || second.Created {
			t.Fatalf("second settle: %+v, %v", second, err)
		}
		if second.Payment.ID != first.Payment.ID {
			t.Fatalf("second settle returned a different row")
		}
	})

	t.Run("Given a ledger row without booking update When settled Then the booking converges", func(t *testing.T) {
		f := newFixture(t)
		b, ref := f.initiated(t)
		if _, _, err := f.repos.Payments.RecordSettlement(ctx, models.Payment{Reference: ref, BookingID: b.ID, Amount: 30000, Currency: "NGN"}); err != nil {
			t.Fatalf("seed ledger: %v", err)
		}
		res, err := f.rec.Settle(ctx, Settlement{Reference: ref, BookingID: b.ID}, "test")
		if err != nil || res.Created {
			t.Fatalf("settle: %+v, %v", res, err)
		}
		got := f.reload(t, b.ID)
		if got.Status != models.BookingApproved || got.PaymentStatus != models.PaymentSuccess {
			t.Fatalf("booking did not converge: %s/%s", got.Status, got.PaymentStatus)
		}
	})

	t.Run("Given a REJECTED booking When payment settles Then status is forced to APPROVED", func(t *testing.T) {
		f := newFixture(t)
		b, ref := f.initiated(t)
		if _, err := f.bookings.Reject(ctx, as(f.host), b.ID); err != nil {
			t.Fatalf("reject: %v", err)
		}
		if _, err := f.rec.Settle(ctx, Settlement{Reference: ref, BookingID: b.ID}, "test"); err != nil {
			t.Fatalf("settle: %v", err)
		}
		if got := f.reload(t, b.ID); got.Status != models.BookingApproved {
			t.Fatalf("status = %s", got.Status)
		}
	})

	t.Run("Given a failing step When settling Then nothing is written", func(t *testing.T) {
		f := newFixture(t)
		b, ref := f.initiated(t)
		failing := NewReconciler(failingStore{f.store}, nil, "NGN", f.rec.log)
		if _, err := failing.Settle(ctx, Settlement{Reference: ref, BookingID: b.ID}, "test"); err == nil {
			t.Fatalf("expected error")
		}
		if ps := f.ledger(t, b.ID); len(ps) != 0 {
			t.Fatalf("ledger rows = %d", len(ps))
		}
		if got := f.reload(t, b.ID); got.PaymentStatus != models.PaymentInitiated {
			t.Fatalf("booking mutated: %s", got.PaymentStatus)
		}
	})

	t.Run("Given a missing booking When settling Then ErrNotFound", func(t *testing.T) {
		f := newFixture(t)
		if _, err := f.rec.Settle(ctx, Settlement{Reference: "r", BookingID: "missing"}, "test"); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}

// failingStore runs the real transaction but fails its audit write, which comes
// after both the booking and ledger writes.
type failingStore struct{ inner repo.Store }

func (s failingStore) WithTx(ctx context.Context, fn func(repo.Tx) error) error {
	return s.inner.WithTx(ctx, func(tx repo.Tx) error { return fn(failingAuditTx{tx}) })
}

type failingAuditTx struct{ repo.Tx }

func (failingAuditTx) CreateAudit(context.Context, models.AuditLog) error {
	return errors.New("audit table unavailable")
}
