package metrics

import (
	"errors"
	"testing"

	dto "github.com/prometheus/client_model/go"
)

func gaugeValue(t *testing.T, state string) float64 {
	t.Helper()
	var m dto.Metric
	if err := ClientState.WithLabelValues(state).Write(&m); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	return m.GetGauge().GetValue()
}

func TestSetClientState(t *testing.T) {
	states := []string{"INIT", "AWAITING_LOGIN", "LOGIN_OK", "AWAITING_NEW_TOKEN"}

	SetClientState("LOGIN_OK", states)
	for _, s := range states {
		want := 0.0
		if s == "LOGIN_OK" {
			want = 1
		}
		if got := gaugeValue(t, s); got != want {
			t.Errorf("client state %s = %v, want %v", s, got, want)
		}
	}

	SetClientState("AWAITING_NEW_TOKEN", states)
	if got := gaugeValue(t, "LOGIN_OK"); got != 0 {
		t.Errorf("previous state still set: %v", got)
	}
}

func TestResult(t *testing.T) {
	t.Parallel()

	if got := Result(nil); got != "ok" {
		t.Errorf("Result(nil) = %q, want ok", got)
	}
	if got := Result(errors.New("boom")); got != "error" {
		t.Errorf("Result(err) = %q, want error", got)
	}
}
