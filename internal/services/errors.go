package services

import (
	"errors"
	"fmt"

	"github.com/baharkarakas/averulo-backend/internal/models"
	repo "github.com/baharkarakas/averulo-backend/internal/repository"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrForbidden         = errors.New("forbidden")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrInvalidRange      = errors.New("check-out must be after check-in")
	ErrAlreadyInitiated  = errors.New("payment already initiated")
	ErrProviderError     = errors.New("payment provider error")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrValidation        = errors.New("validation failed")
	ErrNotBookable       = errors.New("property is not bookable")
)

// notFound turns a repository miss into ErrNotFound and wraps anything else.
func notFound(what string, err error) error {
	if errors.Is(err, repo.ErrNotFound) {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return fmt.Errorf("load %s: %w", what, err)
}

// Actor is the authenticated caller of a service operation.
type Actor struct {
	ID    string
	Email string
	Role  string
}

func (a Actor) IsAdmin() bool { return a.Role == models.RoleAdmin }
func (a Actor) IsHost() bool  { return a.Role == models.RoleHost }

// canSee reports whether a may read b: its guest, its host, or an admin.
func (a Actor) canSee(b models.Booking) bool {
	return a.IsAdmin() || a.ID == b.GuestID || a.ID == b.HostID
}
