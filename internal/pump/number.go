package pump

import (
	"fmt"
	"strconv"
	"strings"

	go_json "github.com/goccy/go-json"
)

func parseFlexibleFloat(raw go_json.RawMessage) (float64, error) {
	var n go_json.Number
	if err := go_json.Unmarshal(raw, &n); err == nil {
		if f, ok := Float(n); ok {
			return f, nil
		}
	}
	var s string
	if err := go_json.Unmarshal(raw, &s); err != nil {
		return 0, fmt.Errorf("value %s is neither a number nor a string", raw)
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("value %q is not numeric: %w", s, err)
	}
	return f, nil
}
