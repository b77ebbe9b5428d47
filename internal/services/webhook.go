package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"

	"github.com/baharkarakas/averulo-backend/internal/gateway"
	"github.com/baharkarakas/averulo-backend/internal/metrics"
	"github.com/baharkarakas/averulo-backend/internal/obs"
	repo "github.com/baharkarakas/averulo-backend/internal/repository"
)

type WebhookOutcome string

const (
	WebhookBadSignature     WebhookOutcome = "bad_signature"
	WebhookMalformed        WebhookOutcome = "malformed"
	WebhookUnknownReference WebhookOutcome = "unknown_reference"
	WebhookIgnored          WebhookOutcome = "ignored"
	WebhookSettled          WebhookOutcome = "settled"
	WebhookDuplicate        WebhookOutcome = "duplicate"
	WebhookError            WebhookOutcome = "error"
)

const chargeSuccess = "charge.success"

type webhookEvent struct {
	Event string `json:"event"`
	Data  struct {
		Reference string `json:"reference"`
		Status    string `json:"status"`
		Amount    int64  `json:"amount"`
		Currency  string `json:"currency"`
	} `json:"data"`
}

// WebhookService authenticates provider callbacks and drives settlement.
type WebhookService struct {
	secret   string
	bookings repo.Bookings
	audits   repo.AuditLogs
	rec      *Reconciler
	log      *slog.Logger
}

// NewWebhookService with an empty secret rejects every callback.
func NewWebhookService(secret string, r repo.Repositories, rec *Reconciler, log *slog.Logger) *WebhookService {
	if secret == "" {
		log.Error("payment webhook secret is not set; all provider callbacks will be rejected")
	}
	return &WebhookService{secret: secret, bookings: r.Bookings, audits: r.AuditLogs, rec: rec, log: log}
}

// Handle processes one callback. raw must be the untouched request body. A nil
// error means the provider should get a 2xx; ErrUnauthorized and ErrValidation are
// final, anything else asks the provider to retry.
func (s *WebhookService) Handle(ctx context.Context, raw []byte, signature string) (WebhookOutcome, error) {
	ctx, span := obs.Tracer().Start(ctx, "webhook.paystack")
	defer span.End()

	out, err := s.handle(ctx, raw, signature)
	metrics.WebhookEvents.WithLabelValues(string(out)).Inc()
	span.SetAttributes(attribute.String("webhook.outcome", string(out)))
	return out, err
}

func (s *WebhookService) handle(ctx context.Context, raw []byte, signature string) (WebhookOutcome, error) {
	if !gateway.ValidSignature(s.secret, raw, signature) {
		s.log.Warn("webhook signature mismatch", "bytes", len(raw))
		return WebhookBadSignature, ErrUnauthorized
	}

	var evt webhookEvent
	if err := json.Unmarshal(raw, &evt); err != nil {
		return WebhookMalformed, fmt.Errorf("%w: body is not a JSON event", ErrValidation)
	}
	ref := evt.Data.Reference
	if ref == "" {
		return WebhookMalformed, fmt.Errorf("%w: missing reference", ErrValidation)
	}

	b, err := s.bookings.GetByPaymentRef(ctx, ref)
	if errors.Is(err, repo.ErrNotFound) {
		s.log.Warn("webhook reference not found", "ref", ref, "event", evt.Event)
		audit(ctx, s.audits, s.log, "webhook", "", "unknown_reference", map[string]any{
			"reference": ref,
			"event":     evt.Event,
		})
		return WebhookUnknownReference, nil
	}
	if err != nil {
		return WebhookError, fmt.Errorf("lookup booking by reference: %w", err)
	}

	if evt.Event != chargeSuccess || gateway.MapStatus(evt.Data.Status) != gateway.StatusSuccess {
		s.log.Info("webhook event ignored", "ref", ref, "event", evt.Event, "status", evt.Data.Status)
		return WebhookIgnored, nil
	}

	res, err := s.rec.Settle(ctx, Settlement{
		Reference: ref,
		BookingID: b.ID,
		Amount:    evt.Data.Amount,
		Currency:  evt.Data.Currency,
		Raw:       json.RawMessage(raw),
	}, "webhook")
	if err != nil {
		s.log.Error("webhook settle failed", "ref", ref, "booking_id", b.ID, "err", err)
		return WebhookError, err
	}
	if !res.Created {
		return WebhookDuplicate, nil
	}
	return WebhookSettled, nil
}
