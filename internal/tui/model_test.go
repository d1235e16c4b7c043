package tui

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "charm.land/bubbletea/v2"

	"github.com/garrettladley/minimon/internal/format"
)

type fakeClient struct {
	pump    format.PumpData
	graph   format.GraphData
	pumpErr error
}

func (f *fakeClient) PumpData(context.Context) (format.PumpData, error) {
	return f.pump, f.pumpErr
}

func (f *fakeClient) GraphData(context.Context) (format.GraphData, error) {
	return f.graph, nil
}

func newTestModel(client DashboardClient) *Model {
	m := New(Deps{Client: client})
	m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	m.Update(SplashTickMsg{})
	return &m
}

func TestModel_PumpData(t *testing.T) {
	t.Parallel()

	pd := format.EmptyPumpData()
	pd.Glucose = "120"
	pd.Trend = "flat"
	pd.ActiveInsulin = "1.3 U"
	pd.SensorConnection = true

	client := &fakeClient{pump: pd, graph: format.EmptyGraphData()}
	m := newTestModel(client)

	msg := fetchPumpDataCmd(context.Background(), client)()
	m.Update(msg)

	if m.PumpData() == nil || m.PumpData().Glucose != "120" {
		t.Fatalf("PumpData() = %+v, want glucose 120", m.PumpData())
	}

	view := m.DashboardView()
	for _, want := range []string{"120 mg/dL", "→", "1.3 U", "sensor connected"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestModel_FetchErrorKeepsLastData(t *testing.T) {
	t.Parallel()

	pd := format.EmptyPumpData()
	pd.Glucose = "95"
	m := newTestModel(&fakeClient{})

	m.Update(PumpDataMsg{Data: pd})
	m.Update(PumpDataMsg{Err: errors.New("connection refused")})

	if m.PumpData() == nil || m.PumpData().Glucose != "95" {
		t.Errorf("PumpData() = %+v, want the previous reading", m.PumpData())
	}
	if !strings.Contains(m.DashboardView(), "dashboard unreachable") {
		t.Error("view should show the dashboard as unreachable")
	}
}

func TestModel_NoData(t *testing.T) {
	t.Parallel()

	m := newTestModel(&fakeClient{})
	view := m.DashboardView()
	for _, want := range []string{"-- mg/dL", "-- min ago", "connecting..."} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestModel_RefreshTick(t *testing.T) {
	t.Parallel()

	m := newTestModel(&fakeClient{})
	if _, cmd := m.Update(RefreshTickMsg{}); cmd == nil {
		t.Error("refresh tick should schedule fetches")
	}
}

func TestModel_Quit(t *testing.T) {
	t.Parallel()

	m := newTestModel(&fakeClient{})
	_, cmd := m.Update(tea.KeyPressMsg{Code: 'q', Text: "q"})
	if cmd == nil {
		t.Fatal("q should quit")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q should return tea.Quit")
	}
}
