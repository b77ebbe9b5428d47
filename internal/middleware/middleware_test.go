package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/baharkarakas/averulo-backend/internal/auth"
	"github.com/baharkarakas/averulo-backend/internal/models"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })

func serve(h http.Handler, r *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, r)
	return rr
}

func TestRequireRole(t *testing.T) {
	h := RequireRole(models.RoleHost, models.RoleAdmin)(okHandler)

	cases := []struct {
		name string
		id   *Identity
		want int
	}{
		{"no identity", nil, http.StatusUnauthorized},
		{"user", &Identity{UserID: "u", Role: models.RoleUser}, http.StatusForbidden},
		{"host", &Identity{UserID: "h", Role: models.RoleHost}, http.StatusNoContent},
		{"admin", &Identity{UserID: "a", Role: models.RoleAdmin}, http.StatusNoContent},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.id != nil {
				req = req.WithContext(WithIdentity(req.Context(), *tc.id))
			}
			if rr := serve(h, req); rr.Code != tc.want {
				t.Fatalf("status %d, want %d", rr.Code, tc.want)
			}
		})
	}
}

func TestAuth(t *testing.T) {
	tm := auth.NewTokenManager("secret", "averulo-backend", time.Hour)
	var seen Identity
	capture := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = IdentityFrom(r.Context())
	})

	t.Run("Given a valid JWT When calling Then identity comes from claims", func(t *testing.T) {
		tok, _, _ := tm.Issue("user-1", "a@b.c", models.RoleHost)
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+tok)
		serve(NewAuthMiddleware(tm, false).Auth(capture), req)
		if seen.UserID != "user-1" || seen.Role != models.RoleHost || seen.Email != "a@b.c" {
			t.Fatalf("unexpected identity: %+v", seen)
		}
	})

	t.Run("Given a dev token When dev is off Then 401", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer dev-"+uuid.NewString())
		if rr := serve(NewAuthMiddleware(tm, false).Auth(okHandler), req); rr.Code != http.StatusUnauthorized {
			t.Fatalf("status %d", rr.Code)
		}
	})

	t.Run("Given a dev token asking for admin When dev is on Then the role stays USER", func(t *testing.T) {
		uid := uuid.NewString()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer dev-"+uid)
		req.Header.Set("X-Debug-Role", "ADMIN")
		serve(NewAuthMiddleware(tm, true).Auth(capture), req)
		if seen.UserID != uid || seen.Role != models.RoleUser {
			t.Fatalf("unexpected identity: %+v", seen)
		}
	})

	t.Run("Given a dev token with a non-uuid id Then 401", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer dev-nope")
		if rr := serve(NewAuthMiddleware(tm, true).Auth(okHandler), req); rr.Code != http.StatusUnauthorized {
			t.Fatalf("status %d", rr.Code)
		}
	})
}

func TestRateLimit(t *testing.T) {
	h := RateLimit(2)(okHandler)
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	for i := 0; i < 2; i++ {
		if rr := serve(h, req); rr.Code != http.StatusNoContent {
			t.Fatalf("request %d: status %d", i, rr.Code)
		}
	}
	rr := serve(h, req)
	if rr.Code != http.StatusTooManyRequests || rr.Header().Get("Retry-After") == "" {
		t.Fatalf("expected 429 with Retry-After, got %d", rr.Code)
	}
}

func TestTokenBucketRefills(t *testing.T) {
	now := time.Unix(1700000000, 0)
	tb := newTokenBucket(1)
	tb.now = func() time.Time { return now }
	tb.last = now

	if !tb.allow() {
		t.Fatal("first call should pass")
	}
	if tb.allow() {
		t.Fatal("bucket should be empty")
	}
	now = now.Add(time.Second)
	if !tb.allow() {
		t.Fatal("bucket should refill after one second")
	}
}

func TestRequestID(t *testing.T) {
	var got string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = RequestIDFrom(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	rr := serve(h, req)
	if got != "abc-123" || rr.Header().Get(RequestIDHeader) != "abc-123" {
		t.Fatalf("inbound id not reused: ctx=%q header=%q", got, rr.Header().Get(RequestIDHeader))
	}

	rr = serve(h, httptest.NewRequest(http.MethodGet, "/", nil))
	if _, err := uuid.Parse(got); err != nil || rr.Header().Get(RequestIDHeader) != got {
		t.Fatalf("expected minted uuid, got %q", got)
	}
}

func TestRecover(t *testing.T) {
	h := Recover(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("boom") }))
	if rr := serve(h, httptest.NewRequest(http.MethodGet, "/", nil)); rr.Code != http.StatusInternalServerError {
		t.Fatalf("status %d", rr.Code)
	}
}
