package postgres

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/baharkarakas/averulo-backend/internal/db"
	"github.com/baharkarakas/averulo-backend/internal/models"
	"github.com/baharkarakas/averulo-backend/internal/repository"
)

// Set AVERULO_TEST_DATABASE_URL to a scratch database to run these.
const testDatabaseEnv = "AVERULO_TEST_DATABASE_URL"

func newTestRepos(t *testing.T) repository.Repositories {
	t.Helper()
	url := os.Getenv(testDatabaseEnv)
	if url == "" {
		t.Skipf("%s not set", testDatabaseEnv)
	}
	ctx := context.Background()
	pool, err := db.NewPool(ctx, url)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(pool.Close)
	if err := db.RunMigrations(ctx, pool); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return NewRepositories(pool)
}

// seedBooking creates fresh users, a property and a PENDING booking so runs never collide.
func seedBooking(t *testing.T, r repository.Repositories) models.Booking {
	t.Helper()
	ctx := context.Background()
	tag := uuid.NewString()
	guest, err := r.Users.Create(ctx, "guest-"+tag+"@x.io", models.RoleUser)
	if err != nil {
		t.Fatalf("seed guest: %v", err)
	}
	host, err := r.Users.Create(ctx, "host-"+tag+"@x.io", models.RoleHost)
	if err != nil {
		t.Fatalf("seed host: %v", err)
	}
	p, err := r.Properties.Create(ctx, models.Property{HostID: host.ID, Title: "Loft", City: "Lagos", NightlyPrice: 100})
	if err != nil {
		t.Fatalf("seed property: %v", err)
	}
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	b, err := r.Bookings.Create(ctx, models.Booking{
		PropertyID: p.ID, GuestID: guest.ID, HostID: host.ID,
		StartDate: start, EndDate: start.AddDate(0, 0, 3),
	})
	if err != nil {
		t.Fatalf("seed booking: %v", err)
	}
	return b
}

func settle(ctx context.Context, r repository.Repositories, bookingID, ref string) (bool, error) {
	var created bool
	err := r.Store.WithTx(ctx, func(tx repository.Tx) error {
		b, err := tx.GetBookingForUpdate(ctx, bookingID)
		if err != nil {
			return err
		}
		if _, err := tx.MarkBookingPaid(ctx, b.ID); err != nil {
			return err
		}
		_, created, err = tx.RecordSettlement(ctx, models.Payment{Reference: ref, BookingID: b.ID, Amount: 30000, Currency: "NGN"})
		return err
	})
	return created, err
}

func TestStore_ConcurrentSettleRecordsOnce(t *testing.T) {
	r := newTestRepos(t)
	ctx := context.Background()
	b := seedBooking(t, r)
	ref := "pay_" + b.ID
	if _, err := r.Bookings.SetPaymentInit(ctx, b.ID, ref, 30000, "NGN"); err != nil {
		t.Fatalf("init: %v", err)
	}

	const n = 16
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created int
		errs    []error
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c, err := settle(ctx, r, b.ID, ref)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
			}
			if c {
				created++
			}
		}()
	}
	wg.Wait()

	if len(errs) != 0 {
		t.Fatalf("settle errors: %v", errs)
	}
	if created != 1 {
		t.Fatalf("created = %d, want 1", created)
	}
	ps, err := r.Payments.ListByBooking(ctx, b.ID)
	if err != nil || len(ps) != 1 {
		t.Fatalf("ledger rows = %d, %v", len(ps), err)
	}
	got, _ := r.Bookings.GetByID(ctx, b.ID)
	if got.Status != models.BookingApproved || got.PaymentStatus != models.PaymentSuccess {
		t.Fatalf("unexpected state: %s/%s", got.Status, got.PaymentStatus)
	}
}

func TestStore_WithTxRollsBackBookingWrite(t *testing.T) {
	r := newTestRepos(t)
	ctx := context.Background()
	b := seedBooking(t, r)

	fail := errors.New("ledger down")
	err := r.Store.WithTx(ctx, func(tx repository.Tx) error {
		if _, err := tx.MarkBookingPaid(ctx, b.ID); err != nil {
			return err
		}
		return fail
	})
	if !errors.Is(err, fail) {
		t.Fatalf("expected fn error, got %v", err)
	}
	got, _ := r.Bookings.GetByID(ctx, b.ID)
	if got.Status != models.BookingPending || got.PaymentStatus != models.PaymentNone {
		t.Fatalf("write survived rollback: %s/%s", got.Status, got.PaymentStatus)
	}
}

func TestBookings_CompareAndSet(t *testing.T) {
	r := newTestRepos(t)
	ctx := context.Background()

	t.Run("Given an initiated booking When initiating again Then ErrConflict", func(t *testing.T) {
		b := seedBooking(t, r)
		if _, err := r.Bookings.SetPaymentInit(ctx, b.ID, "pay_a_"+b.ID, 100, "NGN"); err != nil {
			t.Fatalf("first init: %v", err)
		}
		if _, err := r.Bookings.SetPaymentInit(ctx, b.ID, "pay_b_"+b.ID, 100, "NGN"); !errors.Is(err, repository.ErrConflict) {
			t.Fatalf("expected ErrConflict, got %v", err)
		}
	})

	t.Run("Given a decided booking When updating from PENDING Then ErrConflict", func(t *testing.T) {
		b := seedBooking(t, r)
		if _, err := r.Bookings.UpdateStatus(ctx, b.ID, models.BookingPending, models.BookingRejected); err != nil {
			t.Fatalf("reject: %v", err)
		}
		if _, err := r.Bookings.UpdateStatus(ctx, b.ID, models.BookingPending, models.BookingApproved); !errors.Is(err, repository.ErrConflict) {
			t.Fatalf("expected ErrConflict, got %v", err)
		}
	})

	t.Run("Given a missing id Then ErrNotFound rather than ErrConflict", func(t *testing.T) {
		id := uuid.NewString()
		if _, err := r.Bookings.UpdateStatus(ctx, id, models.BookingPending, models.BookingApproved); !errors.Is(err, repository.ErrNotFound) {
			t.Errorf("UpdateStatus: expected ErrNotFound, got %v", err)
		}
		if _, err := r.Bookings.SetPaymentInit(ctx, id, "pay_"+uuid.NewString(), 1, "NGN"); !errors.Is(err, repository.ErrNotFound) {
			t.Errorf("SetPaymentInit: expected ErrNotFound, got %v", err)
		}
	})
}

func TestPayments_RecordSettlementReturnsExisting(t *testing.T) {
	r := newTestRepos(t)
	ctx := context.Background()
	b := seedBooking(t, r)
	ref := "pay_dup_" + b.ID

	first, created, err := r.Payments.RecordSettlement(ctx, models.Payment{Reference: ref, BookingID: b.ID, Amount: 100, Currency: "NGN"})
	if err != nil || !created {
		t.Fatalf("first: created=%v err=%v", created, err)
	}
	again, created, err := r.Payments.RecordSettlement(ctx, models.Payment{Reference: ref, BookingID: b.ID, Amount: 999, Currency: "USD"})
	if err != nil || created {
		t.Fatalf("second: created=%v err=%v", created, err)
	}
	if again.ID != first.ID || again.Amount != 100 {
		t.Fatalf("expected the existing row, got %+v", again)
	}
}
