package server

import (
	"context"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/garrettladley/minimon/internal/credentials"
	"github.com/garrettladley/minimon/internal/format"
	"github.com/garrettladley/minimon/internal/pump"
	"github.com/garrettladley/minimon/internal/server/handler"
	"github.com/garrettladley/minimon/internal/snapshot"
	"github.com/garrettladley/minimon/internal/storage"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func newTestServer(t *testing.T, limit storage.RateLimitConfig) *httptest.Server {
	t.Helper()

	var (
		tel   snapshot.Cell[pump.Telemetry]
		graph snapshot.Cell[pump.Graph]
	)
	backend := storage.NewMemoryBackend(limit)
	t.Cleanup(func() { _ = backend.Close() })

	store := credentials.NewStore(filepath.Join(t.TempDir(), "logindata.json"))

	h := Routes(Deps{
		Pump:    handler.NewPump(&tel, &graph, format.NewFormatter(time.UTC, format.WithLogger(discard))),
		Login:   handler.NewLogin(store, nil),
		Health:  handler.NewHealth(map[string]handler.Pinger{backend.Name(): backend}),
		Limiter: backend,
		Logger:  discard,
	})
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv
}

func TestRoutes(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, storage.RateLimitConfig{Rate: 1, Burst: 10})

	tests := []struct {
		method     string
		path       string
		wantStatus int
		wantType   string
	}{
		{method: http.MethodGet, path: "/", wantStatus: http.StatusOK, wantType: "text/html"},
		{method: http.MethodGet, path: "/api/pump-data", wantStatus: http.StatusOK, wantType: "application/json"},
		{method: http.MethodGet, path: "/api/pump-graph-data", wantStatus: http.StatusOK, wantType: "application/json"},
		{method: http.MethodGet, path: "/login", wantStatus: http.StatusOK, wantType: "text/html"},
		{method: http.MethodGet, path: "/health", wantStatus: http.StatusOK, wantType: "text/plain"},
		{method: http.MethodGet, path: "/metrics", wantStatus: http.StatusOK, wantType: "text/plain"},
		{method: http.MethodGet, path: "/api/history", wantStatus: http.StatusNotFound},
		{method: http.MethodGet, path: "/nope", wantStatus: http.StatusNotFound},
		{method: http.MethodDelete, path: "/api/pump-data", wantStatus: http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			t.Parallel()

			req, err := http.NewRequestWithContext(t.Context(), tt.method, srv.URL+tt.path, nil)
			if err != nil {
				t.Fatal(err)
			}
			resp, err := srv.Client().Do(req)
			if err != nil {
				t.Fatal(err)
			}
			defer func() { _ = resp.Body.Close() }()

			if resp.StatusCode != tt.wantStatus {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.wantStatus)
			}
			if tt.wantType != "" && !strings.HasPrefix(resp.Header.Get("Content-Type"), tt.wantType) {
				t.Errorf("Content-Type = %q, want prefix %q", resp.Header.Get("Content-Type"), tt.wantType)
			}
			if resp.Header.Get("X-Request-ID") == "" {
				t.Error("missing X-Request-ID")
			}
		})
	}
}

func TestRoutes_LoginRateLimited(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, storage.RateLimitConfig{Rate: 0.001, Burst: 2})

	post := func() int {
		form := url.Values{"logindata": {`{"access_token":"a"}`}}
		resp, err := srv.Client().PostForm(srv.URL+"/login", form)
		if err != nil {
			t.Fatal(err)
		}
		defer func() { _ = resp.Body.Close() }()
		return resp.StatusCode
	}

	for i, want := range []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests} {
		if got := post(); got != want {
			t.Fatalf("POST %d status = %d, want %d", i+1, got, want)
		}
	}

	// reads are never limited
	resp, err := srv.Client().Get(srv.URL + "/login")
	if err != nil {
		t.Fatal(err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("GET /login status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
}

func TestServe_Shutdown(t *testing.T) {
	t.Parallel()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	srv := New(ln.Addr().String(), http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan error, 1)
	go func() { done <- Serve(ctx, srv, ln, discard) }()

	var resp *http.Response
	for range 50 {
		resp, err = http.Get("http://" + ln.Addr().String())
		if err == nil {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if err != nil {
		t.Fatalf("server never answered: %v", err)
	}
	_ = resp.Body.Close()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Serve() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}
