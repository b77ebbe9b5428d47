package services

import (
	"context"
	"errors"
	"testing"

	"github.com/baharkarakas/averulo-backend/internal/gateway"
	"github.com/baharkarakas/averulo-backend/internal/logger"
	"github.com/baharkarakas/averulo-backend/internal/models"
)

func TestWebhookService_Handle(t *testing.T) {
	ctx := context.Background()

	t.Run("Given a signed charge.success When handled Then settled", func(t *testing.T) {
		f := newFixture(t)
		b, ref := f.initiated(t)
		body := chargeSuccessBody(ref)

		out, err := f.webhook.Handle(ctx, body, gateway.Sign(webhookSecret, body))
		if err != nil || out != WebhookSettled {
			t.Fatalf("handle: %s, %v", out, err)
		}
		got := f.reload(t, b.ID)
		if got.Status != models.BookingApproved || got.PaymentStatus != models.PaymentSuccess {
			t.Fatalf("unexpected state: %s/%s", got.Status, got.PaymentStatus)
		}
		ps := f.ledger(t, b.ID)
		if len(ps) != 1 || string(ps[0].Raw) != string(body) {
			t.Fatalf("ledger should keep the raw payload: %+v", ps)
		}
	})

	t.Run("Given a tampered body When handled Then ErrUnauthorized and zero mutations", func(t *testing.T) {
		f := newFixture(t)
		b, ref := f.initiated(t)
		before := f.reload(t, b.ID)
		audits := len(f.store.AuditLogs())

		body := chargeSuccessBody(ref)
		sig := gateway.Sign(webhookSecret, body)
		tampered := append([]byte(nil), body...)
		tampered[len(tampered)-5] = '9'

		for _, tc := range []struct {
			name string
			body []byte
			sig  string
		}{
			{"tampered body", tampered, sig},
			{"wrong secret", body, gateway.Sign("other", body)},
			{"no signature", body, ""},
		} {
			out, err := f.webhook.Handle(ctx, tc.body, tc.sig)
			if !errors.Is(err, ErrUnauthorized) || out != WebhookBadSignature {
				t.Errorf("%s: expected ErrUnauthorized, got %s, %v", tc.name, out, err)
			}
		}

		if ps := f.ledger(t, b.ID); len(ps) != 0 {
			t.Fatalf("ledger rows = %d", len(ps))
		}
		after := f.reload(t, b.ID)
		if after.Status != before.Status || after.PaymentStatus != before.PaymentStatus || !after.UpdatedAt.Equal(before.UpdatedAt) {
			t.Fatalf("booking mutated")
		}
		if n := len(f.store.AuditLogs()); n != audits {
			t.Fatalf("audit rows written: %d", n-audits)
		}
	})

	t.Run("Given no configured secret When a callback is signed with the empty key Then rejected", func(t *testing.T) {
		f := newFixture(t)
		b, ref := f.initiated(t)
		unset := NewWebhookService("", f.repos, f.rec, logger.Discard())

		body := chargeSuccessBody(ref)
		out, err := unset.Handle(ctx, body, gateway.Sign("", body))
		if !errors.Is(err, ErrUnauthorized) || out != WebhookBadSignature {
			t.Fatalf("expected ErrUnauthorized, got %s, %v", out, err)
		}
		if got := f.reload(t, b.ID); got.Status != models.BookingPending || got.PaymentStatus != models.PaymentInitiated {
			t.Fatalf("booking mutated: %s/%s", got.Status, got.PaymentStatus)
		}
		if ps := f.ledger(t, b.ID); len(ps) != 0 {
			t.Fatalf("ledger rows = %d", len(ps))
		}
	})

	t.Run("Given an unknown reference When handled Then acknowledged with an audit row only", func(t *testing.T) {
		f := newFixture(t)
		b, _ := f.initiated(t)
		body := chargeSuccessBody("pay_unknown_1")

		out, err := f.webhook.Handle(ctx, body, gateway.Sign(webhookSecret, body))
		if err != nil || out != WebhookUnknownReference {
			t.Fatalf("handle: %s, %v", out, err)
		}
		if ps := f.ledger(t, b.ID); len(ps) != 0 {
			t.Fatalf("ledger rows = %d", len(ps))
		}
		if got := f.reload(t, b.ID); got.PaymentStatus != models.PaymentInitiated {
			t.Fatalf("booking mutated: %s", got.PaymentStatus)
		}
		logs := f.store.AuditLogs()
		last := logs[len(logs)-1]
		if last.EntityType != "webhook" || last.Action != "unknown_reference" || last.Details["reference"] != "pay_unknown_1" {
			t.Fatalf("unexpected audit row: %+v", last)
		}
	})

	t.Run("Given no reference When handled Then ErrValidation", func(t *testing.T) {
		f := newFixture(t)
		body := []byte(`{"event":"charge.success","data":{"status":"success"}}`)
		out, err := f.webhook.Handle(ctx, body, gateway.Sign(webhookSecret, body))
		if !errors.Is(err, ErrValidation) || out != WebhookMalformed {
			t.Fatalf("expected ErrValidation, got %s, %v", out, err)
		}
	})

	t.Run("Given a non-success event When handled Then acknowledged without writes", func(t *testing.T) {
		f := newFixture(t)
		b, ref := f.initiated(t)
		body := []byte(`{"event":"charge.failed","data":{"reference":"` + ref + `","status":"failed"}}`)
		out, err := f.webhook.Handle(ctx, body, gateway.Sign(webhookSecret, body))
		if err != nil || out != WebhookIgnored {
			t.Fatalf("handle: %s, %v", out, err)
		}
		if got := f.reload(t, b.ID); got.PaymentStatus != models.PaymentInitiated {
			t.Fatalf("booking mutated: %s", got.PaymentStatus)
		}
	})

	t.Run("Given a redelivered event When handled Then duplicate", func(t *testing.T) {
		f := newFixture(t)
		_, ref := f.initiated(t)
		body := chargeSuccessBody(ref)
		sig := gateway.Sign(webhookSecret, body)
		if _, err := f.webhook.Handle(ctx, body, sig); err != nil {
			t.Fatalf("first: %v", err)
		}
		out, err := f.webhook.Handle(ctx, body, sig)
		if err != nil || out != WebhookDuplicate {
			t.Fatalf("second: %s, %v", out, err)
		}
	})
}
