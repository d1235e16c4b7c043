package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/garrettladley/minimon/internal/storage"
	"github.com/garrettladley/minimon/internal/xcontext"
	"github.com/garrettladley/minimon/internal/xhttp"
	"github.com/google/go-cmp/cmp"
)

func TestChainOrder(t *testing.T) {
	t.Parallel()

	var order []string
	mark := func(name string) func(http.Handler) http.Handler {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	h := Chain(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		order = append(order, "handler")
	}), mark("first"), mark("second"), mark("third"))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequestWithContext(t.Context(), http.MethodGet, "/", nil))

	want := []string{"first", "second", "third", "handler"}
	if diff := cmp.Diff(want, order); diff != "" {
		t.Errorf("Chain() order mismatch (-want +got):\n%s", diff)
	}
}

func TestRequestID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		opts     []RequestIDOption
		incoming string
		want     string
	}{
		{
			name: "custom id func",
			opts: []RequestIDOption{WithIDFunc(func(*http.Request) string { return "fixed" })},
			want: "fixed",
		},
		{
			name:     "trusted header reused",
			opts:     []RequestIDOption{WithIDFunc(func(*http.Request) string { return "generated" }), WithTrustedHeader()},
			incoming: "upstream-id",
			want:     "upstream-id",
		},
		{
			name: "trusted header falls back",
			opts: []RequestIDOption{WithIDFunc(func(*http.Request) string { return "generated" }), WithTrustedHeader()},
			want: "generated",
		},
		{
			name:     "incoming header ignored by default",
			opts:     []RequestIDOption{WithIDFunc(func(*http.Request) string { return "generated" })},
			incoming: "upstream-id",
			want:     "generated",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var got string
			h := RequestID(tt.opts...)(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
				got, _ = xcontext.GetRequestID(r.Context())
			}))

			req := httptest.NewRequestWithContext(t.Context(), http.MethodGet, "/", nil)
			if tt.incoming != "" {
				req.Header.Set(xhttp.XRequestID, tt.incoming)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if got != tt.want {
				t.Errorf("context request id = %q, want %q", got, tt.want)
			}
			if hdr := rec.Header().Get(xhttp.XRequestID); hdr != tt.want {
				t.Errorf("X-Request-ID = %q, want %q", hdr, tt.want)
			}
		})
	}
}

type stubLimiter struct {
	result storage.RateLimitResult
	err    error
	keys   []string
}

func (s *stubLimiter) Allow(_ context.Context, key string) (storage.RateLimitResult, error) {
	s.keys = append(s.keys, key)
	return s.result, s.err
}

func TestRateLimit(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		limiter    *stubLimiter
		wantStatus int
		wantRetry  string
	}{
		{
			name:       "allowed",
			limiter:    &stubLimiter{result: storage.RateLimitResult{Allowed: true}},
			wantStatus: http.StatusNoContent,
		},
		{
			name:       "denied",
			limiter:    &stubLimiter{result: storage.RateLimitResult{Allowed: false, RetryAfter: 5 * time.Second}},
			wantStatus: http.StatusTooManyRequests,
			wantRetry:  "5",
		},
		{
			name:       "backend failure",
			limiter:    &stubLimiter{err: errors.New("redis down")},
			wantStatus: http.StatusServiceUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h := RateLimit(tt.limiter, "login:")(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusNoContent)
			}))

			req := httptest.NewRequestWithContext(t.Context(), http.MethodPost, "/login", nil)
			req.RemoteAddr = "192.0.2.10:5555"
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if got := rec.Header().Get("Retry-After"); got != tt.wantRetry {
				t.Errorf("Retry-After = %q, want %q", got, tt.wantRetry)
			}
			if diff := cmp.Diff([]string{"login:192.0.2.10"}, tt.limiter.keys); diff != "" {
				t.Errorf("limiter keys mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestRecovery(t *testing.T) {
	t.Parallel()

	h := Recovery(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequestWithContext(t.Context(), http.MethodGet, "/api/pump-data", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusInternalServerError)
	}
}

func TestSecurityHeaders(t *testing.T) {
	t.Parallel()

	h := SecurityHeaders(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequestWithContext(t.Context(), http.MethodGet, "/", nil))

	want := map[string]string{
		xhttp.XContentTypeOpts: "nosniff",
		xhttp.XFrameOpts:       "DENY",
		xhttp.ReferrerPolicy:   "strict-origin-when-cross-origin",
	}
	for k, v := range want {
		if got := rec.Header().Get(k); got != v {
			t.Errorf("%s = %q, want %q", k, got, v)
		}
	}
}
