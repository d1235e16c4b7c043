package tui

import (
	"fmt"
	"strconv"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/garrettladley/minimon/internal/format"
	"github.com/garrettladley/minimon/internal/pump"
	"github.com/garrettladley/minimon/internal/tui/components/chart"
	"github.com/garrettladley/minimon/internal/tui/components/footer"
	"github.com/garrettladley/minimon/internal/tui/components/status"
	"github.com/garrettladley/minimon/internal/tui/theme"
)

const (
	minChartWidth  = 20
	chartHeight    = 8
	horizontalPad  = 4
	footerHelpText = "r refresh · q quit"
)

type DashboardState struct {
	Indicator status.Indicator

	Pump  *format.PumpData
	Graph *format.GraphData
}

var trendArrows = map[string]string{
	"up":          "↑",
	"up_double":   "↑↑",
	"up_triple":   "↑↑↑",
	"down":        "↓",
	"down_double": "↓↓",
	"down_triple": "↓↓↓",
	"flat":        "→",
}

func (m *Model) DashboardView() string {
	pd := m.state.Pump
	if pd == nil {
		empty := format.EmptyPumpData()
		pd = &empty
	}

	sections := []string{
		m.glucoseView(pd),
		m.statsView(pd),
		m.chartView(),
		m.rangeView(),
		m.state.Indicator.Render(),
	}
	body := lipgloss.JoinVertical(lipgloss.Left, sections...)
	body = lipgloss.NewStyle().PaddingLeft(2).PaddingTop(1).Render(body)

	foot := footer.New(m.theme.Dim().Render(footerHelpText), m.viewportWidth).Render()

	gap := max(m.viewportHeight-lipgloss.Height(body)-lipgloss.Height(foot), 0)
	return body + strings.Repeat("\n", gap+1) + foot
}

func (m *Model) glucoseView(pd *format.PumpData) string {
	sg, _ := strconv.ParseFloat(pd.Glucose, 64)

	value := lipgloss.NewStyle().
		Foreground(theme.Glucose(sg)).
		Bold(true).
		Render(pd.Glucose + " mg/dL")

	trend := trendArrows[pd.Trend]
	if trend == "" {
		trend = pd.Trend
	}

	updated := m.theme.Dim().Render(fmt.Sprintf("updated %s · %s", pd.LastUpdate, pd.TimeAgo))

	return lipgloss.JoinVertical(lipgloss.Left,
		value+"  "+m.theme.Base().Render(trend),
		updated,
	)
}

func (m *Model) statsView(pd *format.PumpData) string {
	sensorAge := pd.SensorAge
	if sensorAge == "" {
		sensorAge = "--"
	}

	cells := []string{
		stat("IOB", pd.ActiveInsulin),
		stat("battery", pd.Battery+"%"),
		stat("reservoir", pd.Reservoir+" U"),
		stat("sensor", sensorAge+" d"),
		stat("calibration", strings.ToLower(pd.CalibrationStatus)),
	}
	if pd.BannerState != nil {
		cells = append(cells, stat("banner", *pd.BannerState))
	}
	return lipgloss.NewStyle().PaddingTop(1).Render(strings.Join(cells, "   "))
}

func stat(label, value string) string {
	return lipgloss.NewStyle().Foreground(theme.ColorDim).Render(label+" ") +
		lipgloss.NewStyle().Foreground(theme.ColorWhite).Render(value)
}

func (m *Model) chartView() string {
	var values []float64
	if m.state.Graph != nil {
		values = make([]float64, 0, len(m.state.Graph.GlucoseHistory))
		for _, p := range m.state.Graph.GlucoseHistory {
			if v, ok := pump.Float(p.Value); ok {
				values = append(values, v)
			}
		}
	}

	width := max(m.viewportWidth-horizontalPad, minChartWidth)
	c := chart.New(values, width, chartHeight,
		chart.WithBand(theme.RangeLow, theme.RangeHigh),
		chart.WithLineColor(theme.ColorNeutral),
	)
	return lipgloss.NewStyle().PaddingTop(1).PaddingBottom(1).Render(c.Render())
}

func (m *Model) rangeView() string {
	g := m.state.Graph
	if g == nil {
		empty := format.EmptyGraphData()
		g = &empty
	}
	return strings.Join([]string{
		stat("below", g.TimeRange.Below.String()+"%"),
		stat("in range", g.TimeRange.InRange.String()+"%"),
		stat("above", g.TimeRange.Above.String()+"%"),
		stat("average", g.AverageSG.String()),
	}, "   ")
}
