package handler

import (
	"net/http"

	"github.com/garrettladley/minimon/internal/format"
	"github.com/garrettladley/minimon/internal/pump"
	"github.com/garrettladley/minimon/internal/snapshot"
	"github.com/garrettladley/minimon/internal/version"
	"github.com/garrettladley/minimon/internal/xhttp"
)

// Pump serves the latest snapshots. Handlers only read the cells; the poller
// owns every network call.
type Pump struct {
	telemetry *snapshot.Cell[pump.Telemetry]
	graph     *snapshot.Cell[pump.Graph]
	formatter *format.Formatter
}

func NewPump(telemetry *snapshot.Cell[pump.Telemetry], graph *snapshot.Cell[pump.Graph], formatter *format.Formatter) *Pump {
	return &Pump{
		telemetry: telemetry,
		graph:     graph,
		formatter: formatter,
	}
}

type indexPage struct {
	Version         string
	RefreshInterval int
}

// HandleIndex handles GET /.
func (h *Pump) HandleIndex(w http.ResponseWriter, r *http.Request) {
	const refreshSeconds = 60

	render(w, r, http.StatusOK, indexTemplate, indexPage{
		Version:         version.Get(),
		RefreshInterval: refreshSeconds,
	})
}

// HandlePumpData handles GET /api/pump-data.
func (h *Pump) HandlePumpData(w http.ResponseWriter, r *http.Request) {
	xhttp.SetHeaderNoStore(w)
	xhttp.WriteOK(w, h.formatter.PumpData(h.telemetry.Current()))
}

// HandlePumpGraphData handles GET /api/pump-graph-data.
func (h *Pump) HandlePumpGraphData(w http.ResponseWriter, r *http.Request) {
	xhttp.SetHeaderNoStore(w)
	xhttp.WriteOK(w, h.formatter.GraphData(h.graph.Current()))
}
