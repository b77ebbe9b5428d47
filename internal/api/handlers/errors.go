package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/baharkarakas/averulo-backend/internal/api/httpx"
	"github.com/baharkarakas/averulo-backend/internal/api/validate"
	"github.com/baharkarakas/averulo-backend/internal/middleware"
	"github.com/baharkarakas/averulo-backend/internal/services"
)

// writeServiceError maps the service error taxonomy onto HTTP.
func writeServiceError(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error) {
	var verrs validate.Errs
	switch {
	case errors.As(err, &verrs):
		httpx.WriteError(w, http.StatusBadRequest, "validation_error", "validation failed", verrs)
	case errors.Is(err, services.ErrNotFound):
		httpx.WriteError(w, http.StatusNotFound, "not_found", err.Error(), nil)
	case errors.Is(err, services.ErrForbidden):
		httpx.WriteError(w, http.StatusForbidden, "forbidden", err.Error(), nil)
	case errors.Is(err, services.ErrInvalidTransition):
		httpx.WriteError(w, http.StatusBadRequest, "invalid_transition", err.Error(), nil)
	case errors.Is(err, services.ErrInvalidRange):
		httpx.WriteError(w, http.StatusBadRequest, "invalid_range", err.Error(), nil)
	case errors.Is(err, services.ErrNotBookable):
		httpx.WriteError(w, http.StatusBadRequest, "not_bookable", err.Error(), nil)
	case errors.Is(err, services.ErrAlreadyInitiated):
		httpx.WriteError(w, http.StatusBadRequest, "already_initiated", err.Error(), nil)
	case errors.Is(err, services.ErrValidation):
		httpx.WriteError(w, http.StatusBadRequest, "validation_error", err.Error(), nil)
	case errors.Is(err, services.ErrProviderError):
		httpx.WriteError(w, http.StatusBadGateway, "provider_error", "payment provider error", nil)
	case errors.Is(err, services.ErrUnauthorized):
		httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", err.Error(), nil)
	default:
		log.Error("request failed", "request_id", middleware.RequestIDFrom(r.Context()), "path", r.URL.Path, "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "internal_error", "internal error", nil)
	}
}

func badRequest(w http.ResponseWriter, msg string) {
	httpx.WriteError(w, http.StatusBadRequest, "bad_request", msg, nil)
}

// actor reads the identity set by middleware.Auth.
func actor(r *http.Request) services.Actor {
	id, _ := middleware.IdentityFrom(r.Context())
	return services.Actor{ID: id.UserID, Email: id.Email, Role: id.Role}
}
