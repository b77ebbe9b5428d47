// Package gateway talks to the Paystack transaction API.
package gateway

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/baharkarakas/averulo-backend/internal/metrics"
	"github.com/baharkarakas/averulo-backend/internal/obs"
)

// ErrProvider wraps every failed provider call: transport errors, timeouts,
// non-2xx responses and envelopes with status=false.
var ErrProvider = errors.New("payment provider error")

// SignatureHeader carries the hex HMAC-SHA512 of the raw webhook body.
const SignatureHeader = "x-paystack-signature"

type Status string

const (
	StatusSuccess   Status = "success"
	StatusFailed    Status = "failed"
	StatusPending   Status = "pending"
	StatusAbandoned Status = "abandoned"
	StatusUnknown   Status = "unknown"
)

// MapStatus folds Paystack's transaction statuses into the five we act on.
func MapStatus(s string) Status {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "success":
		return StatusSuccess
	case "failed", "reversed":
		return StatusFailed
	case "abandoned":
		return StatusAbandoned
	case "pending", "ongoing", "processing", "queued":
		return StatusPending
	}
	return StatusUnknown
}

type InitRequest struct {
	Reference   string
	Amount      int64 // minor units
	Currency    string
	Email       string
	CallbackURL string
}

type InitResult struct {
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
	Reference        string `json:"reference"`
}

type VerifyResult struct {
	Reference string
	Status    Status
	Amount    int64 // minor units, 0 when the provider omitted it
	Currency  string
	Raw       json.RawMessage
}

type Paystack struct {
	baseURL string
	secret  string
	hc      *http.Client
}

func NewPaystack(baseURL, secret string, timeout time.Duration) *Paystack {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Paystack{
		baseURL: strings.TrimRight(baseURL, "/"),
		secret:  secret,
		hc:      &http.Client{Timeout: timeout},
	}
}

type envelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (p *Paystack) Initiate(ctx context.Context, in InitRequest) (InitResult, error) {
	ctx, span := obs.Tracer().Start(ctx, "paystack.initiate")
	defer span.End()
	span.SetAttributes(attribute.String("payment.reference", in.Reference))

	body := map[string]any{
		"reference": in.Reference,
		"amount":    in.Amount,
		"currency":  in.Currency,
		"email":     in.Email,
	}
	if in.CallbackURL != "" {
		body["callback_url"] = in.CallbackURL
	}
	b, err := json.Marshal(body)
	if err != nil {
		return InitResult{}, err
	}

	data, err := p.do(ctx, http.MethodPost, "/transaction/initialize", b)
	if err != nil {
		metrics.ProviderCalls.WithLabelValues("initiate", "error").Inc()
		span.SetStatus(codes.Error, err.Error())
		return InitResult{}, err
	}
	var out InitResult
	if err := json.Unmarshal(data, &out); err != nil {
		metrics.ProviderCalls.WithLabelValues("initiate", "error").Inc()
		return InitResult{}, fmt.Errorf("%w: decode initialize data: %v", ErrProvider, err)
	}
	if out.Reference == "" {
		out.Reference = in.Reference
	}
	metrics.ProviderCalls.WithLabelValues("initiate", "ok").Inc()
	return out, nil
}

func (p *Paystack) Verify(ctx context.Context, reference string) (VerifyResult, error) {
	ctx, span := obs.Tracer().Start(ctx, "paystack.verify")
	defer span.End()
	span.SetAttributes(attribute.String("payment.reference", reference))

	data, err := p.do(ctx, http.MethodGet, "/transaction/verify/"+url.PathEscape(reference), nil)
	if err != nil {
		metrics.ProviderCalls.WithLabelValues("verify", "error").Inc()
		span.SetStatus(codes.Error, err.Error())
		return VerifyResult{}, err
	}
	var d struct {
		Status    string `json:"status"`
		Reference string `json:"reference"`
		Amount    int64  `json:"amount"`
		Currency  string `json:"currency"`
	}
	if err := json.Unmarshal(data, &d); err != nil {
		metrics.ProviderCalls.WithLabelValues("verify", "error").Inc()
		return VerifyResult{}, fmt.Errorf("%w: decode verify data: %v", ErrProvider, err)
	}
	metrics.ProviderCalls.WithLabelValues("verify", "ok").Inc()
	ref := d.Reference
	if ref == "" {
		ref = reference
	}
	return VerifyResult{
		Reference: ref,
		Status:    MapStatus(d.Status),
		Amount:    d.Amount,
		Currency:  d.Currency,
		Raw:       data,
	}, nil
}

// do sends one request and unwraps Paystack's {status, message, data} envelope.
func (p *Paystack) do(ctx context.Context, method, path string, body []byte) (json.RawMessage, error) {
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, p.baseURL+path, rd)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProvider, err)
	}
	req.Header.Set("Authorization", "Bearer "+p.secret)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := p.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProvider, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrProvider, err)
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("%w: http %d: undecodable body", ErrProvider, resp.StatusCode)
	}
	if resp.StatusCode/100 != 2 || !env.Status {
		msg := env.Message
		if msg == "" {
			msg = "unknown error"
		}
		return nil, fmt.Errorf("%w: http %d: %s", ErrProvider, resp.StatusCode, msg)
	}
	return env.Data, nil
}

// Sign returns the hex HMAC-SHA512 of body keyed with secret, as Paystack sends it.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// ValidSignature compares sig against the expected MAC in constant time. An empty
// secret rejects every signature: anyone can compute an HMAC under an empty key.
func ValidSignature(secret string, body []byte, sig string) bool {
	if secret == "" {
		return false
	}
	got, err := hex.DecodeString(strings.TrimSpace(sig))
	if err != nil || len(got) == 0 {
		return false
	}
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(body)
	return hmac.Equal(mac.Sum(nil), got)
}
