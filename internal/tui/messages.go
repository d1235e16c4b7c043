package tui

import (
	"time"

	"github.com/garrettladley/minimon/internal/format"
)

const splashDuration = 1500 * time.Millisecond

type SplashTickMsg struct{}

type RefreshTickMsg struct{}

type PumpDataMsg struct {
	Data format.PumpData
	Err  error
}

type GraphDataMsg struct {
	Data format.GraphData
	Err  error
}
