package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/baharkarakas/averulo-backend/internal/metrics"
	"github.com/baharkarakas/averulo-backend/internal/models"
	"github.com/baharkarakas/averulo-backend/internal/notify"
	repo "github.com/baharkarakas/averulo-backend/internal/repository"
)

type BookingService struct {
	bookings repo.Bookings
	props    repo.Properties
	audits   repo.AuditLogs
	notes    *Notifications
	log      *slog.Logger
}

func NewBookingService(r repo.Repositories, notes *Notifications, log *slog.Logger) *BookingService {
	return &BookingService{
		bookings: r.Bookings,
		props:    r.Properties,
		audits:   r.AuditLogs,
		notes:    notes,
		log:      log,
	}
}

type CreateBookingInput struct {
	PropertyID string
	CheckIn    time.Time
	CheckOut   time.Time
}

// Create opens a PENDING booking for actor on an ACTIVE property.
func (s *BookingService) Create(ctx context.Context, actor Actor, in CreateBookingInput) (models.Booking, error) {
	if !in.CheckOut.After(in.CheckIn) {
		return models.Booking{}, ErrInvalidRange
	}
	p, err := s.props.GetByID(ctx, in.PropertyID)
	if err != nil {
		return models.Booking{}, notFound("property", err)
	}
	if !p.Bookable() {
		return models.Booking{}, ErrNotBookable
	}

	b, err := s.bookings.Create(ctx, models.Booking{
		PropertyID: p.ID,
		GuestID:    actor.ID,
		HostID:     p.HostID,
		StartDate:  in.CheckIn,
		EndDate:    in.CheckOut,
	})
	if err != nil {
		return models.Booking{}, fmt.Errorf("create booking: %w", err)
	}

	metrics.BookingTransitions.WithLabelValues(string(models.BookingPending)).Inc()
	audit(ctx, s.audits, s.log, "booking", b.ID, "created", map[string]any{"property_id": p.ID, "guest_id": actor.ID})
	s.notes.bookingEvent(notify.BookingCreated, b)
	return b, nil
}

func (s *BookingService) GetByID(ctx context.Context, actor Actor, id string) (models.Booking, error) {
	b, err := s.bookings.GetByID(ctx, id)
	if err != nil {
		return models.Booking{}, notFound("booking", err)
	}
	if !actor.canSee(b) {
		return models.Booking{}, ErrForbidden
	}
	return b, nil
}

func (s *BookingService) ListByGuest(ctx context.Context, actor Actor) ([]models.Booking, error) {
	return s.bookings.ListByGuest(ctx, actor.ID)
}

// ListForHost returns bookings on the host's properties; admins see every booking.
func (s *BookingService) ListForHost(ctx context.Context, actor Actor) ([]models.Booking, error) {
	switch {
	case actor.IsAdmin():
		return s.bookings.ListForHost(ctx, "")
	case actor.IsHost():
		return s.bookings.ListForHost(ctx, actor.ID)
	}
	return nil, ErrForbidden
}

func (s *BookingService) Approve(ctx context.Context, actor Actor, id string) (models.Booking, error) {
	return s.Transition(ctx, actor, id, models.BookingApproved)
}

func (s *BookingService) Reject(ctx context.Context, actor Actor, id string) (models.Booking, error) {
	return s.Transition(ctx, actor, id, models.BookingRejected)
}

func (s *BookingService) Cancel(ctx context.Context, actor Actor, id string) (models.Booking, error) {
	return s.Transition(ctx, actor, id, models.BookingCancelled)
}

// Transition moves a PENDING booking to target. Authority is checked before the
// current status, so a stranger gets ErrForbidden even on a settled booking.
func (s *BookingService) Transition(ctx context.Context, actor Actor, id string, target models.BookingStatus) (models.Booking, error) {
	b, err := s.bookings.GetByID(ctx, id)
	if err != nil {
		return models.Booking{}, notFound("booking", err)
	}

	switch target {
	case models.BookingCancelled:
		if actor.ID != b.GuestID {
			return models.Booking{}, ErrForbidden
		}
	case models.BookingApproved, models.BookingRejected:
		if !actor.IsAdmin() && !(actor.IsHost() && actor.ID == b.HostID) {
			return models.Booking{}, ErrForbidden
		}
	default:
		return models.Booking{}, fmt.Errorf("%w: unsupported target status %q", ErrValidation, target)
	}

	if !b.Status.CanTransition(target) {
		return models.Booking{}, fmt.Errorf("%w: booking is %s", ErrInvalidTransition, b.Status)
	}
	updated, err := s.bookings.UpdateStatus(ctx, b.ID, models.BookingPending, target)
	if errors.Is(err, repo.ErrConflict) {
		return models.Booking{}, fmt.Errorf("%w: booking changed concurrently", ErrInvalidTransition)
	}
	if err != nil {
		return models.Booking{}, notFound("booking", err)
	}

	metrics.BookingTransitions.WithLabelValues(string(target)).Inc()
	audit(ctx, s.audits, s.log, "booking", b.ID, "status_change", map[string]any{
		"from":     string(b.Status),
		"to":       string(target),
		"actor_id": actor.ID,
	})
	s.notes.bookingEvent(kindFor(target), updated)
	return updated, nil
}

func kindFor(s models.BookingStatus) notify.Kind {
	switch s {
	case models.BookingApproved:
		return notify.BookingApproved
	case models.BookingRejected:
		return notify.BookingRejected
	}
	return notify.BookingCancelled
}
