package format

import (
	"github.com/garrettladley/minimon/internal/pump"
)

const (
	MarkerAutoBasal   = "AUTO_BASAL_DELIVERY"
	MarkerCalibration = "CALIBRATION"
	MarkerInsulin     = "INSULIN"
	MarkerMeal        = "MEAL"

	ActivationAutocorrection = "AUTOCORRECTION"
	ActivationRecommended    = "RECOMMENDED"
)

// Style is how a marker is drawn on the graph. Styles are comparable so the
// classification table can be checked directly.
type Style struct {
	Color       string
	BorderWidth int
	OmitBorder  bool

	value  valueRule
	radius radiusRule
}

// valueRule picks the y position of a marker: a fixed value, a data value, or
// the marker's own value.
type valueRule struct {
	fixed      float64
	key        string
	fromMarker bool
}

func (r valueRule) resolve(m pump.Marker, values pump.DataValues) (float64, error) {
	switch {
	case r.fromMarker:
		if v, ok := pump.Float(m.Value); ok {
			return v, nil
		}
		return 0, nil
	case r.key != "":
		return values.Float(r.key, 0)
	default:
		return r.fixed, nil
	}
}

// radiusRule scales a data value, falling back to def when it is absent.
// Without a key the radius is fixed.
type radiusRule struct {
	fixed float64
	key   string
	def   float64
	scale float64
}

func (r radiusRule) resolve(values pump.DataValues) (float64, error) {
	if r.key == "" {
		return r.fixed, nil
	}
	v, err := values.Float(r.key, r.def)
	if err != nil {
		return 0, err
	}
	return v * r.scale, nil
}

// ClassifyMarker maps a marker type and, for insulin, its activation type to a
// Style. Unrecognized combinations get the default style.
func ClassifyMarker(markerType string, activationType string) Style {
	switch markerType {
	case MarkerAutoBasal:
		return Style{
			Color:  "#9370DB",
			value:  valueRule{fixed: 250},
			radius: radiusRule{key: "bolusAmount", def: 4, scale: 80},
		}
	case MarkerCalibration:
		return Style{
			Color:  "#FF0000",
			value:  valueRule{key: "unitValue"},
			radius: radiusRule{fixed: 4},
		}
	case MarkerInsulin:
		switch activationType {
		case ActivationAutocorrection:
			return Style{
				Color:  "#0000FF",
				value:  valueRule{fixed: 240},
				radius: radiusRule{key: "deliveredFastAmount", def: 4, scale: 40},
			}
		case ActivationRecommended:
			return Style{
				Color:  "#00FF00",
				value:  valueRule{fixed: 250},
				radius: radiusRule{key: "deliveredFastAmount", def: 4, scale: 6},
			}
		}
	case MarkerMeal:
		return Style{
			Color:  "#FFFF00",
			value:  valueRule{fixed: 40},
			radius: radiusRule{key: "amount", def: 4, scale: 0.4},
		}
	}
	return Style{
		Color:      "#FF0000",
		OmitBorder: true,
		value:      valueRule{fromMarker: true},
		radius:     radiusRule{fixed: 4},
	}
}
