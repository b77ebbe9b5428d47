package handlers

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/baharkarakas/averulo-backend/internal/api/httpx"
	"github.com/baharkarakas/averulo-backend/internal/api/validate"
	"github.com/baharkarakas/averulo-backend/internal/services"
)

type PaymentHandler struct {
	svc *services.PaymentService
	log *slog.Logger
}

func NewPaymentHandler(svc *services.PaymentService, log *slog.Logger) *PaymentHandler {
	return &PaymentHandler{svc: svc, log: log}
}

type initPaymentReq struct {
	BookingID string `json:"bookingId" validate:"required"`
}

func (h *PaymentHandler) Init(w http.ResponseWriter, r *http.Request) {
	var req initPaymentReq
	if err := httpx.DecodeJSON(r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}
	if err := validate.Struct(req); err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	res, err := h.svc.Init(r.Context(), actor(r), req.BookingID)
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, res)
}

func (h *PaymentHandler) Verify(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.Verify(r.Context(), actor(r), chi.URLParam(r, "reference"))
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, res)
}

func (h *PaymentHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.ListForGuest(r.Context(), actor(r))
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

func (h *PaymentHandler) ListByBooking(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.ListForBooking(r.Context(), actor(r), chi.URLParam(r, "bookingId"))
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}
