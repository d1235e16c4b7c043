package pump

import (
	"testing"
	"time"

	go_json "github.com/goccy/go-json"
)

func TestIsEmpty(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
		want bool
	}{
		{name: "nothing", body: "", want: true},
		{name: "whitespace", body: " \n\t", want: true},
		{name: "null", body: "null", want: true},
		{name: "empty object", body: "{}", want: true},
		{name: "empty object with spaces", body: "{ \n }", want: true},
		{name: "empty array", body: "[]", want: true},
		{name: "document", body: `{"lastSG":{"sg":120}}`, want: false},
		{name: "array", body: `[1]`, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := IsEmpty([]byte(tt.body)); got != tt.want {
				t.Errorf("IsEmpty(%q) = %v, want %v", tt.body, got, tt.want)
			}
		})
	}
}

func TestDataValuesFloat(t *testing.T) {
	t.Parallel()

	values := DataValues{
		"number":   go_json.RawMessage(`2.5`),
		"string":   go_json.RawMessage(`"1.75"`),
		"padded":   go_json.RawMessage(`" 3 "`),
		"null":     go_json.RawMessage(`null`),
		"word":     go_json.RawMessage(`"lots"`),
		"object":   go_json.RawMessage(`{"a":1}`),
		"activate": go_json.RawMessage(`"AUTOCORRECTION"`),
	}

	tests := []struct {
		key     string
		want    float64
		wantErr bool
	}{
		{key: "number", want: 2.5},
		{key: "string", want: 1.75},
		{key: "padded", want: 3},
		{key: "null", want: 4},
		{key: "missing", want: 4},
		{key: "word", wantErr: true},
		{key: "object", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			t.Parallel()
			got, err := values.Float(tt.key, 4)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Float(%q) error = %v, wantErr %v", tt.key, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("Float(%q) = %v, want %v", tt.key, got, tt.want)
			}
		})
	}

	if got := values.String("activate"); got != "AUTOCORRECTION" {
		t.Errorf("String(activate) = %q, want %q", got, "AUTOCORRECTION")
	}
	if got := values.String("number"); got != "" {
		t.Errorf("String(number) = %q, want empty", got)
	}
}

func TestTelemetryDecode(t *testing.T) {
	t.Parallel()

	const body = `{
		"lastSG": {"sg": 120, "timestamp": "2024-05-01T10:15:00"},
		"conduitInRange": true,
		"conduitMedicalDeviceInRange": false,
		"pumpBatteryLevelPercent": 80,
		"reservoirRemainingUnits": 45.5,
		"lastConduitUpdateServerDateTime": 1714558500000
	}`

	var tel Telemetry
	if err := go_json.Unmarshal([]byte(body), &tel); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	if tel.InRange() {
		t.Error("InRange() = true, want false with the pump out of range")
	}
	if got := tel.LastSG.Value(); got != 120 {
		t.Errorf("LastSG.Value() = %d, want 120", got)
	}
	if got := tel.ReservoirRemainingUnits.String(); got != "45.5" {
		t.Errorf("ReservoirRemainingUnits = %q, want %q", got, "45.5")
	}

	updated, ok := tel.UpdatedAt()
	if !ok {
		t.Fatal("UpdatedAt() reported no timestamp")
	}
	if want := time.UnixMilli(1714558500000); !updated.Equal(want) {
		t.Errorf("UpdatedAt() = %v, want %v", updated, want)
	}

	var empty Telemetry
	if _, ok := empty.UpdatedAt(); ok {
		t.Error("UpdatedAt() on an empty document reported a timestamp")
	}
}

func TestParseTimestamp(t *testing.T) {
	t.Parallel()

	loc := time.FixedZone("CET", 3600)

	tests := []struct {
		name    string
		ts      string
		want    time.Time
		wantErr bool
	}{
		{name: "plain", ts: "2024-05-01T10:15:00", want: time.Date(2024, 5, 1, 10, 15, 0, 0, loc)},
		{name: "fraction and zone ignored", ts: "2024-05-01T10:15:00.000-07:00", want: time.Date(2024, 5, 1, 10, 15, 0, 0, loc)},
		{name: "too short", ts: "2024-05-01", wantErr: true},
		{name: "garbage", ts: "not-a-timestamp-at-all", wantErr: true},
		{name: "empty", ts: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := ParseTimestamp(tt.ts, loc)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseTimestamp(%q) error = %v, wantErr %v", tt.ts, err, tt.wantErr)
			}
			if !tt.wantErr && !got.Equal(tt.want) {
				t.Errorf("ParseTimestamp(%q) = %v, want %v", tt.ts, got, tt.want)
			}
		})
	}
}
