package tui

import (
	"context"
	"time"

	tea "charm.land/bubbletea/v2"
)

func fetchPumpDataCmd(ctx context.Context, client DashboardClient) tea.Cmd {
	return func() tea.Msg {
		data, err := client.PumpData(ctx)
		return PumpDataMsg{Data: data, Err: err}
	}
}

func fetchGraphDataCmd(ctx context.Context, client DashboardClient) tea.Cmd {
	return func() tea.Msg {
		data, err := client.GraphData(ctx)
		return GraphDataMsg{Data: data, Err: err}
	}
}

func refreshTickCmd(interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(time.Time) tea.Msg {
		return RefreshTickMsg{}
	})
}
