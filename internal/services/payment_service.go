package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/baharkarakas/averulo-backend/internal/gateway"
	"github.com/baharkarakas/averulo-backend/internal/models"
	repo "github.com/baharkarakas/averulo-backend/internal/repository"
)

// Gateway is the outbound side of the payment provider.
type Gateway interface {
	Initiate(ctx context.Context, in gateway.InitRequest) (gateway.InitResult, error)
	Verify(ctx context.Context, reference string) (gateway.VerifyResult, error)
}

type PaymentConfig struct {
	Currency    string
	CallbackURL string
}

type PaymentService struct {
	bookings repo.Bookings
	props    repo.Properties
	users    repo.Users
	payments repo.Payments
	audits   repo.AuditLogs
	gw       Gateway
	rec      *Reconciler
	cfg      PaymentConfig
	now      func() time.Time
	log      *slog.Logger
}

func NewPaymentService(r repo.Repositories, gw Gateway, rec *Reconciler, cfg PaymentConfig, log *slog.Logger) *PaymentService {
	if cfg.Currency == "" {
		cfg.Currency = "NGN"
	}
	return &PaymentService{
		bookings: r.Bookings,
		props:    r.Properties,
		users:    r.Users,
		payments: r.Payments,
		audits:   r.AuditLogs,
		gw:       gw,
		rec:      rec,
		cfg:      cfg,
		now:      time.Now,
		log:      log,
	}
}

// Init starts a charge for the guest's PENDING booking. The provider is called
// first; the reference is persisted only once it has accepted the charge, so a
// provider failure leaves the booking untouched.
func (s *PaymentService) Init(ctx context.Context, actor Actor, bookingID string) (gateway.InitResult, error) {
	b, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return gateway.InitResult{}, notFound("booking", err)
	}
	if b.GuestID != actor.ID {
		return gateway.InitResult{}, ErrForbidden
	}
	if b.Status != models.BookingPending {
		return gateway.InitResult{}, fmt.Errorf("%w: booking is %s", ErrInvalidTransition, b.Status)
	}
	if b.PaymentRef != nil {
		return gateway.InitResult{}, ErrAlreadyInitiated
	}
	nights := b.Nights()
	if nights <= 0 {
		return gateway.InitResult{}, ErrInvalidRange
	}
	p, err := s.props.GetByID(ctx, b.PropertyID)
	if err != nil {
		return gateway.InitResult{}, notFound("property", err)
	}

	amount := nights * p.NightlyPrice * 100
	ref := fmt.Sprintf("pay_%s_%d", b.ID, s.now().UnixMilli())

	res, err := s.gw.Initiate(ctx, gateway.InitRequest{
		Reference:   ref,
		Amount:      amount,
		Currency:    s.cfg.Currency,
		Email:       s.payerEmail(ctx, actor),
		CallbackURL: s.cfg.CallbackURL,
	})
	if err != nil {
		s.log.Warn("payment init failed", "booking_id", b.ID, "ref", ref, "err", err)
		return gateway.InitResult{}, fmt.Errorf("%w: %v", ErrProviderError, err)
	}

	if _, err := s.bookings.SetPaymentInit(ctx, b.ID, ref, amount, s.cfg.Currency); err != nil {
		if errors.Is(err, repo.ErrConflict) {
			s.log.Warn("payment init lost race, provider reference orphaned", "booking_id", b.ID, "ref", ref)
			return gateway.InitResult{}, ErrAlreadyInitiated
		}
		return gateway.InitResult{}, notFound("booking", err)
	}

	audit(ctx, s.audits, s.log, "booking", b.ID, "payment_initiated", map[string]any{
		"reference": ref,
		"amount":    amount,
		"currency":  s.cfg.Currency,
	})
	res.Reference = ref
	return res, nil
}

func (s *PaymentService) payerEmail(ctx context.Context, actor Actor) string {
	if actor.Email != "" {
		return actor.Email
	}
	if u, err := s.users.GetByID(ctx, actor.ID); err == nil && u.Email != "" {
		return u.Email
	}
	return "guest@example.com"
}

type VerifyResult struct {
	Reference      string         `json:"reference"`
	ProviderStatus gateway.Status `json:"providerStatus"`
	Synced         bool           `json:"synced"`
}

// Verify polls the provider and settles locally when it reports success and the
// booking is not yet paid. Otherwise it only reads.
func (s *PaymentService) Verify(ctx context.Context, actor Actor, reference string) (VerifyResult, error) {
	b, err := s.bookings.GetByPaymentRef(ctx, reference)
	if err != nil {
		return VerifyResult{}, notFound("booking", err)
	}
	if !actor.canSee(b) {
		return VerifyResult{}, ErrForbidden
	}

	v, err := s.gw.Verify(ctx, reference)
	if err != nil {
		s.log.Warn("payment verify failed", "ref", reference, "err", err)
		return VerifyResult{}, fmt.Errorf("%w: %v", ErrProviderError, err)
	}

	if v.Status == gateway.StatusSuccess && b.PaymentStatus != models.PaymentSuccess {
		res, err := s.rec.Settle(ctx, Settlement{
			Reference: reference,
			BookingID: b.ID,
			Amount:    v.Amount,
			Currency:  v.Currency,
			Raw:       v.Raw,
		}, "verify")
		if err != nil {
			return VerifyResult{}, err
		}
		b = res.Booking
	}

	return VerifyResult{
		Reference:      reference,
		ProviderStatus: v.Status,
		Synced:         b.PaymentStatus == models.PaymentSuccess,
	}, nil
}

func (s *PaymentService) ListForGuest(ctx context.Context, actor Actor) ([]models.Payment, error) {
	return s.payments.ListByGuest(ctx, actor.ID)
}

func (s *PaymentService) ListForBooking(ctx context.Context, actor Actor, bookingID string) ([]models.Payment, error) {
	b, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, notFound("booking", err)
	}
	if !actor.canSee(b) {
		return nil, ErrForbidden
	}
	return s.payments.ListByBooking(ctx, b.ID)
}
