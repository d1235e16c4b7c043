package theme

import "charm.land/lipgloss/v2"

var (
	ColorBlack = lipgloss.Color("#000000")
	ColorWhite = lipgloss.Color("#FFFFFF")
	ColorDim   = lipgloss.Color("#666666")
)

var (
	ColorInRange = lipgloss.Color("#16EC06") // 70-180 mg/dL
	ColorHigh    = lipgloss.Color("#FFDE00") // above 180 mg/dL
	ColorLow     = lipgloss.Color("#FF0026") // below 70 mg/dL
	ColorNeutral = lipgloss.Color("#67AEE6") // readings without valuation
	ColorInsulin = lipgloss.Color("#0093E7")
)

var (
	ColorBgDark  = lipgloss.Color("#101518") // Darker end of gradient
	ColorBgLight = lipgloss.Color("#283339") // Lighter end of gradient
)

// Target range in mg/dL.
const (
	RangeLow  = 70
	RangeHigh = 180
)
