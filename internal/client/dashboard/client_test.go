package dashboard

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/garrettladley/minimon/internal/format"
	"github.com/google/go-cmp/cmp"
)

func TestClient(t *testing.T) {
	t.Parallel()

	hoursCh := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case pumpDataPath:
			_, _ = w.Write([]byte(`{"glucose":"120","trend":"flat","banner_state":null}`))
		case graphDataPath:
			_, _ = w.Write([]byte(`{"glucose_history":[{"time":"10:00","value":110}],"time_range":{"below":1,"in_range":95,"above":4},"average_sg":118,"markers":[]}`))
		case historyPath:
			hoursCh <- r.URL.Query().Get("hours")
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"message":"invalid hours parameter (must be 1-720)"}`))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)

	c := New(srv.URL+"/", 5*time.Second)

	pd, err := c.PumpData(t.Context())
	if err != nil {
		t.Fatalf("PumpData() error = %v", err)
	}
	if pd.Glucose != "120" || pd.Trend != "flat" || pd.BannerState != nil {
		t.Errorf("PumpData() = %+v", pd)
	}

	gd, err := c.GraphData(t.Context())
	if err != nil {
		t.Fatalf("GraphData() error = %v", err)
	}
	want := format.GraphData{
		GlucoseHistory: []format.GlucosePoint{{Time: "10:00", Value: "110"}},
		TimeRange:      format.TimeRange{Below: "1", InRange: "95", Above: "4"},
		AverageSG:      "118",
		Markers:        []format.MarkerPoint{},
	}
	if diff := cmp.Diff(want, gd); diff != "" {
		t.Errorf("GraphData() mismatch (-want +got):\n%s", diff)
	}

	_, err = c.History(t.Context(), 9999)
	if err == nil || !strings.Contains(err.Error(), "must be 1-720") {
		t.Errorf("History() error = %v, want server message", err)
	}
	if got := <-hoursCh; got != "9999" {
		t.Errorf("hours = %q, want 9999", got)
	}
}
