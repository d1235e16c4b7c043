package format

import (
	"log/slog"
	"sort"
	"time"

	"github.com/garrettladley/minimon/internal/pump"
	"github.com/garrettladley/minimon/internal/snapshot"
	"github.com/garrettladley/minimon/internal/xslog"
	go_json "github.com/goccy/go-json"
)

type GraphData struct {
	GlucoseHistory []GlucosePoint `json:"glucose_history"`
	TimeRange      TimeRange      `json:"time_range"`
	AverageSG      go_json.Number `json:"average_sg"`
	Markers        []MarkerPoint  `json:"markers"`
}

type GlucosePoint struct {
	Time  string         `json:"time"`
	Value go_json.Number `json:"value"`
}

type TimeRange struct {
	Below   go_json.Number `json:"below"`
	InRange go_json.Number `json:"in_range"`
	Above   go_json.Number `json:"above"`
}

type MarkerPoint struct {
	Time        string  `json:"time"`
	Type        string  `json:"type"`
	Value       float64 `json:"value"`
	Color       string  `json:"color"`
	Radius      float64 `json:"radius"`
	BorderWidth *int    `json:"borderWidth,omitempty"`
}

// EmptyGraphData is shown before the first graph document arrives.
func EmptyGraphData() GraphData {
	return GraphData{
		GlucoseHistory: []GlucosePoint{},
		TimeRange:      TimeRange{Below: "0", InRange: "0", Above: "0"},
		AverageSG:      "0",
		Markers:        []MarkerPoint{},
	}
}

// Graph formats the latest graph snapshot. Samples and markers that cannot be
// read are dropped and logged; the rest of the document is still returned.
func Graph(snap *snapshot.Snapshot[pump.Graph], logger *slog.Logger) GraphData {
	if snap == nil || snap.Data.PatientData == nil {
		return EmptyGraphData()
	}
	if logger == nil {
		logger = slog.Default()
	}
	pd := snap.Data.PatientData

	return GraphData{
		GlucoseHistory: glucoseHistory(pd.SGs, logger),
		TimeRange: TimeRange{
			Below:   numberOrZero(pd.BelowHypoLimit),
			InRange: numberOrZero(pd.TimeInRange),
			Above:   numberOrZero(pd.AboveHyperLimit),
		},
		AverageSG: numberOrZero(pd.AverageSG),
		Markers:   markers(pd.Markers, logger),
	}
}

func glucoseHistory(sgs []pump.SensorGlucose, logger *slog.Logger) []GlucosePoint {
	sorted := make([]pump.SensorGlucose, len(sgs))
	copy(sorted, sgs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp < sorted[j].Timestamp
	})

	points := make([]GlucosePoint, 0, len(sorted))
	for _, sg := range sorted {
		if v, ok := pump.Float(sg.SG); !ok || v <= 0 {
			continue
		}
		hhmm, err := clock(sg.Timestamp)
		if err != nil {
			logger.Warn("skipping glucose sample",
				xslog.Timestamp(sg.Timestamp),
				xslog.Error(err),
			)
			continue
		}
		points = append(points, GlucosePoint{Time: hhmm, Value: sg.SG})
	}
	return points
}

func markers(raws []go_json.RawMessage, logger *slog.Logger) []MarkerPoint {
	points := make([]MarkerPoint, 0, len(raws))
	for _, raw := range raws {
		var m pump.Marker
		if err := go_json.Unmarshal(raw, &m); err != nil {
			logger.Warn("skipping marker", xslog.Error(err))
			continue
		}
		p, err := markerPoint(m)
		if err != nil {
			logger.Warn("skipping marker",
				xslog.MarkerType(m.Type),
				xslog.Error(err),
			)
			continue
		}
		points = append(points, p)
	}
	return points
}

func markerPoint(m pump.Marker) (MarkerPoint, error) {
	hhmm, err := clock(m.Timestamp)
	if err != nil {
		return MarkerPoint{}, err
	}

	typ := m.Type
	if typ == "" {
		typ = unknownStatus
	}
	values := m.Data.DataValues
	style := ClassifyMarker(typ, values.String("activationType"))

	value, err := style.value.resolve(m, values)
	if err != nil {
		return MarkerPoint{}, err
	}
	radius, err := style.radius.resolve(values)
	if err != nil {
		return MarkerPoint{}, err
	}

	p := MarkerPoint{
		Time:   hhmm,
		Type:   typ,
		Value:  value,
		Color:  style.Color,
		Radius: radius,
	}
	if !style.OmitBorder {
		bw := style.BorderWidth
		p.BorderWidth = &bw
	}
	return p, nil
}

// clock renders a vendor timestamp as wall-clock HH:MM. The vendor already
// sends local time so no zone conversion happens.
func clock(ts string) (string, error) {
	t, err := pump.ParseTimestamp(ts, time.UTC)
	if err != nil {
		return "", err
	}
	return t.Format("15:04"), nil
}

func numberOrZero(n go_json.Number) go_json.Number {
	if n == "" {
		return "0"
	}
	return n
}
