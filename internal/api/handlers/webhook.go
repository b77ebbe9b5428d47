package handlers

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/baharkarakas/averulo-backend/internal/api/httpx"
	"github.com/baharkarakas/averulo-backend/internal/gateway"
	"github.com/baharkarakas/averulo-backend/internal/services"
)

const maxWebhookBody = 1 << 20

type WebhookHandler struct {
	svc *services.WebhookService
	log *slog.Logger
}

func NewWebhookHandler(svc *services.WebhookService, log *slog.Logger) *WebhookHandler {
	return &WebhookHandler{svc: svc, log: log}
}

// Paystack must see the body exactly as sent; nothing upstream may decode it.
func (h *WebhookHandler) Paystack(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		httpx.WriteError(w, http.StatusRequestEntityTooLarge, "body_too_large", "body too large", nil)
		return
	}

	_, err = h.svc.Handle(r.Context(), raw, r.Header.Get(gateway.SignatureHeader))
	switch {
	case err == nil:
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	case errors.Is(err, services.ErrUnauthorized):
		httpx.WriteError(w, http.StatusUnauthorized, "bad_signature", "bad signature", nil)
	case errors.Is(err, services.ErrValidation):
		httpx.WriteError(w, http.StatusBadRequest, "bad_request", err.Error(), nil)
	default:
		writeServiceError(w, r, h.log, err)
	}
}
