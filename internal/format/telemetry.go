// Package format turns proxy snapshots into what the dashboard displays.
// Everything here is pure: time and location are inputs.
package format

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/garrettladley/minimon/internal/pump"
	"github.com/garrettladley/minimon/internal/snapshot"
	go_json "github.com/goccy/go-json"
)

const (
	noGlucose       = "--"
	unknownLevel    = "unk"
	noInsulin       = "-- U"
	noLastUpdate    = "--:--"
	noTimeAgo       = "-- min ago"
	unknownStatus   = "unknown"
	noTrend         = "none"
	sensorAgeAbsent = 255
)

type PumpData struct {
	Glucose           string   `json:"glucose"`
	Battery           string   `json:"battery"`
	Reservoir         string   `json:"reservoir"`
	ActiveInsulin     string   `json:"active_insulin"`
	SensorConnection  bool     `json:"sensor_connection"`
	LastUpdate        string   `json:"last_update"`
	TimeAgo           string   `json:"time_ago"`
	SensorAge         string   `json:"sensor_age"`
	CalibrationStatus string   `json:"calibration_status"`
	Trend             string   `json:"trend"`
	BannerState       *string  `json:"banner_state"`
	TimeToCalib       *float64 `json:"time_to_calib,omitempty"`
	SensorStatus      *string  `json:"sensor_status,omitempty"`
}

// EmptyPumpData is shown before the first telemetry document arrives.
func EmptyPumpData() PumpData {
	return PumpData{
		Glucose:           noGlucose,
		Battery:           unknownLevel,
		Reservoir:         unknownLevel,
		ActiveInsulin:     noInsulin,
		LastUpdate:        noLastUpdate,
		TimeAgo:           noTimeAgo,
		CalibrationStatus: unknownStatus,
		Trend:             noTrend,
	}
}

// Telemetry formats the latest telemetry snapshot. Battery, reservoir, active
// insulin and sensor age are only shown while the pump is in range; glucose
// only when the sensor reports a positive value.
func Telemetry(snap *snapshot.Snapshot[pump.Telemetry], now time.Time, loc *time.Location) PumpData {
	if snap == nil {
		return EmptyPumpData()
	}
	t := &snap.Data
	inRange := t.InRange()

	out := PumpData{
		Glucose:           glucose(t.LastSG),
		Battery:           gatedLiteral(inRange, t.PumpBatteryLevelPercent),
		Reservoir:         gatedLiteral(inRange, t.ReservoirRemainingUnits),
		ActiveInsulin:     activeInsulin(inRange, t.ActiveInsulin),
		SensorConnection:  t.ConduitSensorInRange,
		LastUpdate:        noLastUpdate,
		TimeAgo:           noTimeAgo,
		SensorAge:         sensorAge(inRange, t.SensorDurationHours),
		CalibrationStatus: stringOr(t.CalibStatus, unknownStatus),
		Trend:             noTrend,
		BannerState:       bannerState(t.PumpBannerState),
	}

	if updated, ok := t.UpdatedAt(); ok {
		out.LastUpdate = updated.In(loc).Format("15:04")
		out.TimeAgo = TimeAgo(updated, now)
	}

	if t.LastSGTrend != nil {
		out.Trend = strings.ToLower(*t.LastSGTrend)
	}

	timeToCalib := float64(sensorAgeAbsent)
	if t.TimeToNextCalibHours != nil {
		timeToCalib = *t.TimeToNextCalibHours
	}
	out.TimeToCalib = &timeToCalib

	sensorStatus := stringOr(t.SensorState, unknownStatus)
	out.SensorStatus = &sensorStatus

	return out
}

// TimeAgo buckets the age of an update. The zero time means no update yet.
func TimeAgo(t time.Time, now time.Time) string {
	if t.IsZero() {
		return noTimeAgo
	}
	minutes := int(now.Sub(t) / time.Minute)
	switch {
	case minutes < 1:
		return "Just now"
	case minutes == 1:
		return "1 min ago"
	case minutes < 60:
		return strconv.Itoa(minutes) + " min ago"
	default:
		return "Over 1 hour ago"
	}
}

func glucose(sg *pump.SensorGlucose) string {
	if sg == nil {
		return noGlucose
	}
	v, ok := pump.Float(sg.SG)
	if !ok || v <= 0 {
		return noGlucose
	}
	return sg.SG.String()
}

func gatedLiteral(inRange bool, n go_json.Number) string {
	s := n.String()
	if !inRange || s == "" {
		return unknownLevel
	}
	return s
}

func activeInsulin(inRange bool, ai *pump.ActiveInsulin) string {
	if !inRange || ai == nil || ai.Amount == nil {
		return noInsulin
	}
	return fmt.Sprintf("%.1f U", roundHalfUp(*ai.Amount, 1))
}

func roundHalfUp(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

func sensorAge(inRange bool, hours *float64) string {
	if !inRange || hours == nil || *hours == sensorAgeAbsent {
		return ""
	}
	return strconv.Itoa(int(math.RoundToEven(*hours / 24)))
}

func bannerState(banners []pump.BannerState) *string {
	if len(banners) == 0 {
		return nil
	}
	s := strings.ToLower(banners[0].Type)
	return &s
}

func stringOr(s *string, def string) string {
	if s == nil {
		return def
	}
	return *s
}
