package middleware

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	go_json "github.com/goccy/go-json"
	"github.com/google/go-cmp/cmp"

	"github.com/garrettladley/minimon/internal/format"
	"github.com/garrettladley/minimon/internal/xhttp"
)

// dayOfGraph is a full 24 hours of five-minute samples, well over the
// compression threshold once encoded.
func dayOfGraph() format.GraphData {
	g := format.EmptyGraphData()
	for i := range 288 {
		g.GlucoseHistory = append(g.GlucoseHistory, format.GlucosePoint{
			Time:  fmt.Sprintf("%02d:%02d", i/12, i%12*5),
			Value: go_json.Number(strconv.Itoa(90 + i%60)),
		})
	}
	g.TimeRange = format.TimeRange{Below: "3", InRange: "81", Above: "16"}
	g.AverageSG = "134"
	g.Markers = append(g.Markers, format.MarkerPoint{
		Time: "07:30", Type: "MEAL", Value: 40, Color: "#FFFF00", Radius: 18,
	})
	return g
}

func encode(t *testing.T, v any) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := go_json.NewEncoder(&buf).Encode(v); err != nil {
		t.Fatalf("failed to encode: %v", err)
	}
	return buf.Bytes()
}

func TestGzip(t *testing.T) {
	t.Parallel()

	graph := dayOfGraph()

	tests := []struct {
		name           string
		acceptEncoding string
		method         string
		handler        http.HandlerFunc
		want           []byte
		wantStatus     int
		wantGzip       bool
		wantVary       bool
		wantEncoding   string
	}{
		{
			name:           "graph document compressed",
			acceptEncoding: "gzip, deflate",
			handler:        func(w http.ResponseWriter, _ *http.Request) { xhttp.WriteOK(w, graph) },
			want:           encode(t, graph),
			wantStatus:     http.StatusOK,
			wantGzip:       true,
			wantVary:       true,
			wantEncoding:   gzipEncoding,
		},
		{
			name:           "placeholder pump data below threshold",
			acceptEncoding: "gzip",
			handler:        func(w http.ResponseWriter, _ *http.Request) { xhttp.WriteOK(w, format.EmptyPumpData()) },
			want:           encode(t, format.EmptyPumpData()),
			wantStatus:     http.StatusOK,
			wantVary:       true,
		},
		{
			name:       "client without accept-encoding",
			handler:    func(w http.ResponseWriter, _ *http.Request) { xhttp.WriteOK(w, graph) },
			want:       encode(t, graph),
			wantStatus: http.StatusOK,
		},
		{
			name:           "client accepting only brotli",
			acceptEncoding: "br",
			handler:        func(w http.ResponseWriter, _ *http.Request) { xhttp.WriteOK(w, graph) },
			want:           encode(t, graph),
			wantStatus:     http.StatusOK,
		},
		{
			name:           "HEAD passes through",
			acceptEncoding: "gzip",
			method:         http.MethodHead,
			handler:        func(w http.ResponseWriter, _ *http.Request) { xhttp.WriteOK(w, graph) },
			want:           encode(t, graph),
			wantStatus:     http.StatusOK,
		},
		{
			name:           "handler already encoded the body",
			acceptEncoding: "gzip",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set(xhttp.ContentEncoding, "br")
				xhttp.WriteOK(w, graph)
			},
			want:         encode(t, graph),
			wantStatus:   http.StatusOK,
			wantVary:     true,
			wantEncoding: "br",
		},
		{
			name:           "status kept when compressing",
			acceptEncoding: "gzip",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				xhttp.WriteJSON(w, http.StatusServiceUnavailable, graph)
			},
			want:         encode(t, graph),
			wantStatus:   http.StatusServiceUnavailable,
			wantGzip:     true,
			wantVary:     true,
			wantEncoding: gzipEncoding,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			method := tt.method
			if method == "" {
				method = http.MethodGet
			}
			req := httptest.NewRequestWithContext(t.Context(), method, "/api/pump-graph-data", nil)
			if tt.acceptEncoding != "" {
				req.Header.Set(xhttp.AcceptEncoding, tt.acceptEncoding)
			}

			rec := httptest.NewRecorder()
			Gzip(tt.handler).ServeHTTP(rec, req)

			resp := rec.Result()
			defer resp.Body.Close() //nolint:errcheck

			if resp.StatusCode != tt.wantStatus {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.wantStatus)
			}
			if got, want := resp.Header.Get(xhttp.Vary) == xhttp.AcceptEncoding, tt.wantVary; got != want {
				t.Errorf("Vary = %q, want set %t", resp.Header.Get(xhttp.Vary), want)
			}
			if got := resp.Header.Get(xhttp.ContentEncoding); got != tt.wantEncoding {
				t.Errorf("Content-Encoding = %q, want %q", got, tt.wantEncoding)
			}

			body, err := io.ReadAll(resp.Body)
			if err != nil {
				t.Fatalf("failed to read response body: %v", err)
			}
			if tt.wantGzip {
				if len(body) >= len(tt.want) {
					t.Errorf("compressed body is %d bytes, plain is %d", len(body), len(tt.want))
				}
				if body, err = decompressGzip(body); err != nil {
					t.Fatalf("failed to decompress: %v", err)
				}
			}
			if diff := cmp.Diff(string(tt.want), string(body)); diff != "" {
				t.Errorf("body mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestGzipGraphRoundTrip(t *testing.T) {
	t.Parallel()

	want := dayOfGraph()
	srv := httptest.NewServer(Gzip(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		xhttp.WriteOK(w, want)
	})))
	t.Cleanup(srv.Close)

	// the default transport asks for gzip and decodes it transparently
	resp, err := srv.Client().Get(srv.URL + "/api/pump-graph-data")
	if err != nil {
		t.Fatalf("GET error = %v", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if !resp.Uncompressed {
		t.Error("response was not gzip encoded on the wire")
	}

	var got format.GraphData
	if err := go_json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("failed to decode graph: %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("graph mismatch (-want +got):\n%s", diff)
	}
}

func TestGzipFlusher(t *testing.T) {
	t.Parallel()

	first, second := encode(t, dayOfGraph()), encode(t, format.EmptyPumpData())

	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(first)
		if flusher, ok := w.(http.Flusher); ok {
			flusher.Flush()
		}
		_, _ = w.Write(second)
	})

	req := httptest.NewRequestWithContext(t.Context(), http.MethodGet, "/api/pump-graph-data", nil)
	req.Header.Set(xhttp.AcceptEncoding, "gzip")

	rec := httptest.NewRecorder()
	Gzip(handler).ServeHTTP(rec, req)

	resp := rec.Result()
	defer resp.Body.Close() //nolint:errcheck

	if resp.Header.Get(xhttp.ContentEncoding) != gzipEncoding {
		t.Fatal("expected gzip encoding")
	}

	body, _ := io.ReadAll(resp.Body)
	decompressed, err := decompressGzip(body)
	if err != nil {
		t.Fatalf("failed to decompress: %v", err)
	}
	if want := string(first) + string(second); string(decompressed) != want {
		t.Errorf("decompressed body length = %d, want %d", len(decompressed), len(want))
	}
}

func TestGzipUnwrap(t *testing.T) {
	t.Parallel()

	var captured http.ResponseWriter
	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		captured = w
		xhttp.WriteOK(w, format.EmptyGraphData())
	})

	req := httptest.NewRequestWithContext(t.Context(), http.MethodGet, "/api/pump-graph-data", nil)
	req.Header.Set(xhttp.AcceptEncoding, "gzip")
	Gzip(handler).ServeHTTP(httptest.NewRecorder(), req)

	gw, ok := captured.(*gzipResponseWriter)
	if !ok {
		t.Fatalf("writer = %T, want *gzipResponseWriter", captured)
	}
	if gw.Unwrap() == nil {
		t.Error("Unwrap() returned nil")
	}
}

func decompressGzip(data []byte) ([]byte, error) {
	reader, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer reader.Close() //nolint:errcheck

	return io.ReadAll(reader)
}
