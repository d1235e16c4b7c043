package pump

import (
	"fmt"
	"time"
)

// TimestampLayout is the vendor's local wall-clock format. Anything after the
// seconds (fraction, zone) is ignored.
const TimestampLayout = "2006-01-02T15:04:05"

// ParseTimestamp reads a vendor timestamp as wall-clock time in loc.
func ParseTimestamp(ts string, loc *time.Location) (time.Time, error) {
	if len(ts) < len(TimestampLayout) {
		return time.Time{}, fmt.Errorf("timestamp %q too short", ts)
	}
	t, err := time.ParseInLocation(TimestampLayout, ts[:len(TimestampLayout)], loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing timestamp %q: %w", ts, err)
	}
	return t, nil
}
