package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/baharkarakas/averulo-backend/internal/api/httpx"
	"github.com/baharkarakas/averulo-backend/internal/api/validate"
	"github.com/baharkarakas/averulo-backend/internal/models"
	"github.com/baharkarakas/averulo-backend/internal/services"
)

type BookingHandler struct {
	svc *services.BookingService
	log *slog.Logger
}

func NewBookingHandler(svc *services.BookingService, log *slog.Logger) *BookingHandler {
	return &BookingHandler{svc: svc, log: log}
}

type createBookingReq struct {
	PropertyID string `json:"propertyId" validate:"required"`
	CheckIn    string `json:"checkIn" validate:"required,datetime=2006-01-02"`
	CheckOut   string `json:"checkOut" validate:"required,datetime=2006-01-02"`
}

func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createBookingReq
	if err := httpx.DecodeJSON(r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}
	if err := validate.Struct(req); err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	in, _ := time.Parse(time.DateOnly, req.CheckIn)
	out, _ := time.Parse(time.DateOnly, req.CheckOut)

	b, err := h.svc.Create(r.Context(), actor(r), services.CreateBookingInput{
		PropertyID: req.PropertyID,
		CheckIn:    in,
		CheckOut:   out,
	})
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, b)
}

func (h *BookingHandler) Get(w http.ResponseWriter, r *http.Request) {
	b, err := h.svc.GetByID(r.Context(), actor(r), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, b)
}

func (h *BookingHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.ListByGuest(r.Context(), actor(r))
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

func (h *BookingHandler) ListForHost(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.ListForHost(r.Context(), actor(r))
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

// Transition returns a handler that moves the booking in the {id} URL param to target.
func (h *BookingHandler) Transition(target models.BookingStatus) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b, err := h.svc.Transition(r.Context(), actor(r), chi.URLParam(r, "id"), target)
		if err != nil {
			writeServiceError(w, r, h.log, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, b)
	}
}
