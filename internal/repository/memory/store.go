// Package memory is a process-local implementation of the repository interfaces.
// It keeps the same uniqueness guarantees as the Postgres schema (one ledger row per
// reference, one payment_ref per booking) and is used for local runs and tests.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/baharkarakas/averulo-backend/internal/models"
	"github.com/baharkarakas/averulo-backend/internal/repository"
)

type state struct {
	users      map[string]models.User
	properties map[string]models.Property
	bookings   map[string]models.Booking
	payments   map[string]models.Payment // by reference
	audits     []models.AuditLog
}

func (s *state) clone() *state {
	c := &state{
		users:      make(map[string]models.User, len(s.users)),
		properties: make(map[string]models.Property, len(s.properties)),
		bookings:   make(map[string]models.Booking, len(s.bookings)),
		payments:   make(map[string]models.Payment, len(s.payments)),
		audits:     append([]models.AuditLog(nil), s.audits...),
	}
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.properties {
		c.properties[k] = v
	}
	for k, v := range s.bookings {
		c.bookings[k] = v
	}
	for k, v := range s.payments {
		c.payments[k] = v
	}
	return c
}

type Store struct {
	mu   sync.Mutex
	st   *state
	now  func() time.Time
	last time.Time
}

func New() *Store {
	return &Store{
		st: &state{
			users:      map[string]models.User{},
			properties: map[string]models.Property{},
			bookings:   map[string]models.Booking{},
			payments:   map[string]models.Payment{},
		},
		now: time.Now,
	}
}

// stamp returns a strictly increasing timestamp so newest-first ordering is stable.
// Callers hold s.mu.
func (s *Store) stamp() time.Time {
	t := s.now()
	if !t.After(s.last) {
		t = s.last.Add(time.Nanosecond)
	}
	s.last = t
	return t
}

// Repositories exposes the store through the repository interfaces.
func (s *Store) Repositories() repository.Repositories {
	return repository.Repositories{
		Users:      usersRepo{s},
		Properties: propertiesRepo{s},
		Bookings:   bookingsRepo{s},
		Payments:   paymentsRepo{s},
		AuditLogs:  auditRepo{s},
		Store:      s,
	}
}

// AuditLogs returns a copy of every audit row written so far.
func (s *Store) AuditLogs() []models.AuditLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.AuditLog(nil), s.st.audits...)
}

// WithTx runs fn against a private copy of the state and publishes it only on success.
func (s *Store) WithTx(ctx context.Context, fn func(repository.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.st.clone()
	if err := fn(&tx{st: work, now: s.stamp}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.st = work
	return nil
}

type tx struct {
	st  *state
	now func() time.Time
}

func (t *tx) GetBookingForUpdate(_ context.Context, id string) (models.Booking, error) {
	b, ok := t.st.bookings[id]
	if !ok {
		return models.Booking{}, repository.ErrNotFound
	}
	return b, nil
}

func (t *tx) MarkBookingPaid(_ context.Context, id string) (models.Booking, error) {
	b, ok := t.st.bookings[id]
	if !ok {
		return models.Booking{}, repository.ErrNotFound
	}
	b.PaymentStatus = models.PaymentSuccess
	b.Status = models.BookingApproved
	b.UpdatedAt = t.now()
	t.st.bookings[id] = b
	return b, nil
}

func (t *tx) RecordSettlement(_ context.Context, p models.Payment) (models.Payment, bool, error) {
	return recordSettlement(t.st, p, t.now())
}

func (t *tx) CreateAudit(_ context.Context, l models.AuditLog) error {
	appendAudit(t.st, l, t.now())
	return nil
}

func recordSettlement(st *state, p models.Payment, now time.Time) (models.Payment, bool, error) {
	if existing, ok := st.payments[p.Reference]; ok {
		return existing, false, nil
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.Status == "" {
		p.Status = models.PaymentSuccess
	}
	p.CreatedAt = now
	st.payments[p.Reference] = p
	return p, true, nil
}

func appendAudit(st *state, l models.AuditLog, now time.Time) {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	l.CreatedAt = now
	st.audits = append(st.audits, l)
}

// ---------- users ----------

type usersRepo struct{ s *Store }

func (r usersRepo) Create(_ context.Context, email, role string) (models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	email = strings.ToLower(strings.TrimSpace(email))
	for _, u := range r.s.st.users {
		if u.Email == email {
			return u, nil
		}
	}
	now := r.s.stamp()
	u := models.User{ID: uuid.NewString(), Email: email, Role: role, CreatedAt: now, UpdatedAt: now}
	r.s.st.users[u.ID] = u
	return u, nil
}

func (r usersRepo) GetByID(_ context.Context, id string) (models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.st.users[id]
	if !ok {
		return models.User{}, repository.ErrNotFound
	}
	return u, nil
}

func (r usersRepo) GetByEmail(_ context.Context, email string) (models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	email = strings.ToLower(strings.TrimSpace(email))
	for _, u := range r.s.st.users {
		if u.Email == email {
			return u, nil
		}
	}
	return models.User{}, repository.ErrNotFound
}

// ---------- properties ----------

type propertiesRepo struct{ s *Store }

func (r propertiesRepo) Create(_ context.Context, p models.Property) (models.Property, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.Status == "" {
		p.Status = models.PropertyActive
	}
	p.CreatedAt = r.s.stamp()
	r.s.st.properties[p.ID] = p
	return p, nil
}

func (r propertiesRepo) GetByID(_ context.Context, id string) (models.Property, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.st.properties[id]
	if !ok {
		return models.Property{}, repository.ErrNotFound
	}
	return p, nil
}

func (r propertiesRepo) List(_ context.Context, f repository.PropertyFilter) ([]models.Property, int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var all []models.Property
	for _, p := range r.s.st.properties {
		if f.City != "" && !strings.Contains(strings.ToLower(p.City), strings.ToLower(f.City)) {
			continue
		}
		if f.Status != "" && p.Status != f.Status {
			continue
		}
		all = append(all, p)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })

	total := len(all)
	if f.Offset >= total {
		return []models.Property{}, total, nil
	}
	end := total
	if f.Limit > 0 && f.Offset+f.Limit < total {
		end = f.Offset + f.Limit
	}
	return all[f.Offset:end], total, nil
}

// ---------- bookings ----------

type bookingsRepo struct{ s *Store }

func (r bookingsRepo) Create(_ context.Context, b models.Booking) (models.Booking, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	now := r.s.stamp()
	b.Status = models.BookingPending
	b.PaymentStatus = models.PaymentNone
	b.PaymentRef, b.Amount, b.Currency = nil, nil, nil
	b.CreatedAt, b.UpdatedAt = now, now
	r.s.st.bookings[b.ID] = b
	return b, nil
}

func (r bookingsRepo) GetByID(_ context.Context, id string) (models.Booking, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	b, ok := r.s.st.bookings[id]
	if !ok {
		return models.Booking{}, repository.ErrNotFound
	}
	return b, nil
}

func (r bookingsRepo) GetByPaymentRef(_ context.Context, ref string) (models.Booking, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, b := range r.s.st.bookings {
		if b.PaymentRef != nil && *b.PaymentRef == ref {
			return b, nil
		}
	}
	return models.Booking{}, repository.ErrNotFound
}

func (r bookingsRepo) ListByGuest(_ context.Context, guestID string) ([]models.Booking, error) {
	return r.list(func(b models.Booking) bool { return b.GuestID == guestID }), nil
}

func (r bookingsRepo) ListForHost(_ context.Context, hostID string) ([]models.Booking, error) {
	return r.list(func(b models.Booking) bool { return hostID == "" || b.HostID == hostID }), nil
}

func (r bookingsRepo) list(keep func(models.Booking) bool) []models.Booking {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []models.Booking{}
	for _, b := range r.s.st.bookings {
		if keep(b) {
			out = append(out, b)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (r bookingsRepo) UpdateStatus(_ context.Context, id string, from, to models.BookingStatus) (models.Booking, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	b, ok := r.s.st.bookings[id]
	if !ok {
		return models.Booking{}, repository.ErrNotFound
	}
	if b.Status != from {
		return models.Booking{}, repository.ErrConflict
	}
	b.Status = to
	b.UpdatedAt = r.s.stamp()
	r.s.st.bookings[id] = b
	return b, nil
}

func (r bookingsRepo) SetPaymentInit(_ context.Context, id, ref string, amount int64, currency string) (models.Booking, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	b, ok := r.s.st.bookings[id]
	if !ok {
		return models.Booking{}, repository.ErrNotFound
	}
	if b.PaymentRef != nil {
		return models.Booking{}, repository.ErrConflict
	}
	for _, other := range r.s.st.bookings {
		if other.PaymentRef != nil && *other.PaymentRef == ref {
			return models.Booking{}, repository.ErrConflict
		}
	}
	b.PaymentRef, b.Amount, b.Currency = &ref, &amount, &currency
	b.PaymentStatus = models.PaymentInitiated
	b.UpdatedAt = r.s.stamp()
	r.s.st.bookings[id] = b
	return b, nil
}

// ---------- payments ----------

type paymentsRepo struct{ s *Store }

func (r paymentsRepo) RecordSettlement(_ context.Context, p models.Payment) (models.Payment, bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return recordSettlement(r.s.st, p, r.s.stamp())
}

func (r paymentsRepo) Exists(_ context.Context, ref string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	_, ok := r.s.st.payments[ref]
	return ok, nil
}

func (r paymentsRepo) ListByGuest(_ context.Context, guestID string) ([]models.Payment, error) {
	return r.list(func(p models.Payment, st *state) bool {
		return st.bookings[p.BookingID].GuestID == guestID
	}), nil
}

func (r paymentsRepo) ListByBooking(_ context.Context, bookingID string) ([]models.Payment, error) {
	return r.list(func(p models.Payment, _ *state) bool { return p.BookingID == bookingID }), nil
}

func (r paymentsRepo) list(keep func(models.Payment, *state) bool) []models.Payment {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []models.Payment{}
	for _, p := range r.s.st.payments {
		if keep(p, r.s.st) {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

// ---------- audit ----------

type auditRepo struct{ s *Store }

func (r auditRepo) Create(_ context.Context, l models.AuditLog) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	appendAudit(r.s.st, l, r.s.stamp())
	return nil
}
