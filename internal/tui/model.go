package tui

import (
	"context"
	"time"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/garrettladley/minimon/internal/format"
	"github.com/garrettladley/minimon/internal/tui/theme"
	"github.com/garrettladley/minimon/internal/xslog"
)

var _ tea.Model = (*Model)(nil)

type page uint

const (
	splashPage page = iota
	dashboardPage
)

const defaultInterval = 60 * time.Second

type Model struct {
	ready          bool
	page           page
	viewportWidth  int
	viewportHeight int
	theme          theme.Theme
	state          DashboardState
	deps           Deps
}

func New(deps Deps) Model {
	if deps.Ctx == nil {
		deps.Ctx = context.Background()
	}
	if deps.Interval <= 0 {
		deps.Interval = defaultInterval
	}
	return Model{
		page:  splashPage,
		theme: theme.New(),
		deps:  deps,
	}
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(
		tea.Tick(splashDuration, func(time.Time) tea.Msg {
			return SplashTickMsg{}
		}),
		m.refresh(),
	)
}

func (m *Model) refresh() tea.Cmd {
	return tea.Batch(
		fetchPumpDataCmd(m.deps.Ctx, m.deps.Client),
		fetchGraphDataCmd(m.deps.Ctx, m.deps.Client),
		refreshTickCmd(m.deps.Interval),
	)
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.viewportWidth = msg.Width
		m.viewportHeight = msg.Height
		m.ready = true

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "r":
			return m, tea.Batch(
				fetchPumpDataCmd(m.deps.Ctx, m.deps.Client),
				fetchGraphDataCmd(m.deps.Ctx, m.deps.Client),
			)
		}

	case SplashTickMsg:
		m.page = dashboardPage

	case RefreshTickMsg:
		return m, m.refresh()

	case PumpDataMsg:
		m.state.Indicator.Checked = true
		m.state.Indicator.Reachable = msg.Err == nil
		if msg.Err != nil {
			m.logError("failed to fetch pump data", msg.Err)
			break
		}
		m.state.Pump = &msg.Data
		m.state.Indicator.Sensor = msg.Data.SensorConnection

	case GraphDataMsg:
		if msg.Err != nil {
			m.logError("failed to fetch graph data", msg.Err)
			break
		}
		m.state.Graph = &msg.Data
	}

	return m, nil
}

func (m *Model) logError(text string, err error) {
	if m.deps.Logger != nil {
		m.deps.Logger.WarnContext(m.deps.Ctx, text, xslog.Error(err))
	}
}

func (m *Model) View() tea.View {
	view := tea.NewView("")
	view.AltScreen = true

	if m.page == splashPage {
		view.BackgroundColor = theme.ColorBlack
	} else {
		view.BackgroundColor = m.theme.Background()
	}

	if !m.ready {
		return view
	}

	var content string
	switch m.page {
	case splashPage:
		content = lipgloss.Place(
			m.viewportWidth,
			m.viewportHeight,
			lipgloss.Center,
			lipgloss.Center,
			m.LogoView(),
		)
	case dashboardPage:
		content = m.DashboardView()
	}

	view.SetContent(content)
	return view
}

// PumpData returns the last successfully fetched telemetry.
func (m *Model) PumpData() *format.PumpData {
	return m.state.Pump
}
