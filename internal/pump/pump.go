// Package pump holds the documents the proxy relays from the vendor cloud.
//
// Numeric fields that are echoed back to the dashboard keep their literal JSON
// text (go_json.Number) so "80" stays "80" and "45.5" stays "45.5".
package pump

import (
	"bytes"
	"time"

	go_json "github.com/goccy/go-json"
)

// Telemetry is the device-status document served at /carelink/nohistory.
type Telemetry struct {
	LastSG                          *SensorGlucose `json:"lastSG"`
	LastSGTrend                     *string        `json:"lastSGTrend"`
	PumpBatteryLevelPercent         go_json.Number `json:"pumpBatteryLevelPercent"`
	ReservoirRemainingUnits         go_json.Number `json:"reservoirRemainingUnits"`
	ActiveInsulin                   *ActiveInsulin `json:"activeInsulin"`
	ConduitInRange                  bool           `json:"conduitInRange"`
	ConduitMedicalDeviceInRange     bool           `json:"conduitMedicalDeviceInRange"`
	ConduitSensorInRange            bool           `json:"conduitSensorInRange"`
	SensorDurationHours             *float64       `json:"sensorDurationHours"`
	CalibStatus                     *string        `json:"calibStatus"`
	TimeToNextCalibHours            *float64       `json:"timeToNextCalibHours"`
	SensorState                     *string        `json:"sensorState"`
	PumpBannerState                 []BannerState  `json:"pumpBannerState"`
	LastConduitUpdateServerDateTime go_json.Number `json:"lastConduitUpdateServerDateTime"`
}

// InRange reports whether both the conduit and the pump are reachable. Device
// readings are only meaningful when it is true.
func (t *Telemetry) InRange() bool {
	return t.ConduitInRange && t.ConduitMedicalDeviceInRange
}

func (t *Telemetry) UpdatedAt() (time.Time, bool) {
	return Millis(t.LastConduitUpdateServerDateTime)
}

type SensorGlucose struct {
	SG        go_json.Number `json:"sg"`
	Timestamp string         `json:"timestamp"`
}

// Value returns the reading as an integer; absent or malformed readings are 0.
func (s SensorGlucose) Value() int {
	f, ok := Float(s.SG)
	if !ok {
		return 0
	}
	return int(f)
}

type ActiveInsulin struct {
	Amount *float64 `json:"amount"`
}

type BannerState struct {
	Type string `json:"type"`
}

// Graph is the time-series document served at /carelink.
type Graph struct {
	PatientData *PatientData `json:"patientData"`
}

type PatientData struct {
	SGs     []SensorGlucose      `json:"sgs"`
	Markers []go_json.RawMessage `json:"markers"`

	BelowHypoLimit  go_json.Number `json:"belowHypoLimit"`
	TimeInRange     go_json.Number `json:"timeInRange"`
	AboveHyperLimit go_json.Number `json:"aboveHyperLimit"`
	AverageSG       go_json.Number `json:"averageSG"`

	LastConduitUpdateServerDateTime go_json.Number `json:"lastConduitUpdateServerDateTime"`
}

func (p *PatientData) UpdatedAt() (time.Time, bool) {
	return Millis(p.LastConduitUpdateServerDateTime)
}

// Marker is a single graph annotation. Markers are decoded one at a time so a
// malformed entry does not sink the whole document.
type Marker struct {
	Type      string         `json:"type"`
	Timestamp string         `json:"timestamp"`
	Value     go_json.Number `json:"value"`
	Data      MarkerData     `json:"data"`
}

type MarkerData struct {
	DataValues DataValues `json:"dataValues"`
}

// DataValues carries marker details. The vendor sends numbers either as JSON
// numbers or as numeric strings.
type DataValues map[string]go_json.RawMessage

// String returns the string stored under key, or "" when absent or not a string.
func (d DataValues) String(key string) string {
	raw, ok := d[key]
	if !ok {
		return ""
	}
	var s string
	if err := go_json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

// Float returns the number stored under key, or def when the key is absent.
// A present value that is neither a number nor a numeric string is an error.
func (d DataValues) Float(key string, def float64) (float64, error) {
	raw, ok := d[key]
	if !ok || isNull(raw) {
		return def, nil
	}
	return parseFlexibleFloat(raw)
}

// Float parses a literal number; the empty literal reports false.
func Float(n go_json.Number) (float64, bool) {
	if n == "" {
		return 0, false
	}
	f, err := n.Float64()
	if err != nil {
		return 0, false
	}
	return f, true
}

// Millis converts an epoch-milliseconds literal to a time.
func Millis(n go_json.Number) (time.Time, bool) {
	f, ok := Float(n)
	if !ok || f <= 0 {
		return time.Time{}, false
	}
	return time.UnixMilli(int64(f)), true
}

// IsEmpty reports whether a response body carries no document: nothing, null,
// an empty object or an empty array.
func IsEmpty(body []byte) bool {
	body = bytes.TrimSpace(body)
	if len(body) == 0 || isNull(body) {
		return true
	}
	compact := make([]byte, 0, len(body))
	for _, b := range body {
		switch b {
		case ' ', '\t', '\r', '\n':
			continue
		}
		compact = append(compact, b)
	}
	s := string(compact)
	return s == "{}" || s == "[]"
}

func isNull(raw []byte) bool {
	return string(bytes.TrimSpace(raw)) == "null"
}
