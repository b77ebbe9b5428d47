package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/baharkarakas/averulo-backend/internal/gateway"
	"github.com/baharkarakas/averulo-backend/internal/logger"
	"github.com/baharkarakas/averulo-backend/internal/models"
	"github.com/baharkarakas/averulo-backend/internal/notify"
	repo "github.com/baharkarakas/averulo-backend/internal/repository"
	"github.com/baharkarakas/averulo-backend/internal/repository/memory"
	"github.com/baharkarakas/averulo-backend/internal/worker"
)

const webhookSecret = "sk_test_webhook"

type mockGateway struct {
	mu          sync.Mutex
	initCalls   int
	verifyCalls int
	lastInit    gateway.InitRequest

	InitiateFunc func(ctx context.Context, in gateway.InitRequest) (gateway.InitResult, error)
	VerifyFunc   func(ctx context.Context, ref string) (gateway.VerifyResult, error)
}

func (m *mockGateway) Initiate(ctx context.Context, in gateway.InitRequest) (gateway.InitResult, error) {
	m.mu.Lock()
	m.initCalls++
	m.lastInit = in
	m.mu.Unlock()
	if m.InitiateFunc != nil {
		return m.InitiateFunc(ctx, in)
	}
	return gateway.InitResult{
		AuthorizationURL: "https://checkout.test/" + in.Reference,
		AccessCode:       "ac_" + in.Reference,
		Reference:        in.Reference,
	}, nil
}

func (m *mockGateway) Verify(ctx context.Context, ref string) (gateway.VerifyResult, error) {
	m.mu.Lock()
	m.verifyCalls++
	m.mu.Unlock()
	if m.VerifyFunc != nil {
		return m.VerifyFunc(ctx, ref)
	}
	return gateway.VerifyResult{Reference: ref, Status: gateway.StatusPending}, nil
}

func (m *mockGateway) calls() (initiate, verify int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.initCalls, m.verifyCalls
}

type mockNotifier struct {
	mu         sync.Mutex
	events     []notify.Event
	NotifyFunc func(ev notify.Event) error
}

func (m *mockNotifier) Notify(_ context.Context, ev notify.Event) error {
	m.mu.Lock()
	m.events = append(m.events, ev)
	m.mu.Unlock()
	if m.NotifyFunc != nil {
		return m.NotifyFunc(ev)
	}
	return nil
}

func (m *mockNotifier) byKind(k notify.Kind) []notify.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []notify.Event
	for _, ev := range m.events {
		if ev.Kind == k {
			out = append(out, ev)
		}
	}
	return out
}

type fixture struct {
	store    *memory.Store
	repos    repo.Repositories
	gw       *mockGateway
	notifier *mockNotifier
	wp       *worker.Pool

	guest, other, host, otherHost, admin models.User
	prop, inactive                       models.Property

	bookings *BookingService
	payments *PaymentService
	rec      *Reconciler
	webhook  *WebhookService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	log := logger.Discard()

	f := &fixture{store: memory.New(), gw: &mockGateway{}, notifier: &mockNotifier{}, wp: worker.NewPool(2)}
	t.Cleanup(f.wp.Stop)
	f.repos = f.store.Repositories()

	mustUser := func(email, role string) models.User {
		u, err := f.repos.Users.Create(ctx, email, role)
		if err != nil {
			t.Fatalf("seed user: %v", err)
		}
		return u
	}
	f.guest = mustUser("guest@x.io", models.RoleUser)
	f.other = mustUser("other@x.io", models.RoleUser)
	f.host = mustUser("host@x.io", models.RoleHost)
	f.otherHost = mustUser("host2@x.io", models.RoleHost)
	f.admin = mustUser("admin@x.io", models.RoleAdmin)

	var err error
	f.prop, err = f.repos.Properties.Create(ctx, models.Property{HostID: f.host.ID, Title: "Lekki Loft", City: "Lagos", NightlyPrice: 100})
	if err != nil {
		t.Fatalf("seed property: %v", err)
	}
	f.inactive, err = f.repos.Properties.Create(ctx, models.Property{HostID: f.host.ID, Title: "Closed", City: "Abuja", NightlyPrice: 50, Status: models.PropertyInactive})
	if err != nil {
		t.Fatalf("seed property: %v", err)
	}

	notes := NewNotifications(f.notifier, f.repos.Users, f.repos.Properties, f.wp, log)
	f.rec = NewReconciler(f.repos.Store, notes, "NGN", log)
	f.bookings = NewBookingService(f.repos, notes, log)
	f.payments = NewPaymentService(f.repos, f.gw, f.rec, PaymentConfig{Currency: "NGN"}, log)
	f.webhook = NewWebhookService(webhookSecret, f.repos, f.rec, log)
	return f
}

func as(u models.User) Actor { return Actor{ID: u.ID, Email: u.Email, Role: u.Role} }

func day(s string) time.Time {
	d, err := time.Parse(time.DateOnly, s)
	if err != nil {
		panic(err)
	}
	return d
}

// book creates a PENDING 2024-03-01 → 2024-03-04 booking for the fixture guest.
func (f *fixture) book(t *testing.T) models.Booking {
	t.Helper()
	b, err := f.bookings.Create(context.Background(), as(f.guest), CreateBookingInput{
		PropertyID: f.prop.ID,
		CheckIn:    day("2024-03-01"),
		CheckOut:   day("2024-03-04"),
	})
	if err != nil {
		t.Fatalf("create booking: %v", err)
	}
	return b
}

// initiated creates a booking and starts its payment, returning the reference.
func (f *fixture) initiated(t *testing.T) (models.Booking, string) {
	t.Helper()
	b := f.book(t)
	res, err := f.payments.Init(context.Background(), as(f.guest), b.ID)
	if err != nil {
		t.Fatalf("init payment: %v", err)
	}
	return b, res.Reference
}

func (f *fixture) reload(t *testing.T, id string) models.Booking {
	t.Helper()
	b, err := f.repos.Bookings.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("reload booking: %v", err)
	}
	return b
}

func (f *fixture) ledger(t *testing.T, bookingID string) []models.Payment {
	t.Helper()
	ps, err := f.repos.Payments.ListByBooking(context.Background(), bookingID)
	if err != nil {
		t.Fatalf("list payments: %v", err)
	}
	return ps
}

// flush waits for queued notifications to be delivered.
func (f *fixture) flush() { f.wp.Stop() }

func chargeSuccessBody(ref string) []byte {
	return []byte(fmt.Sprintf(`{"event":"charge.success","data":{"reference":%q,"status":"success","amount":30000,"currency":"NGN"}}`, ref))
}
