// Package classify buckets soil temperatures into the five bands used for
// marker colors, marker sizes, legends and badges.
//
// Bands are half-open on the upper bound:
//
//	cold  t < 15      #4A90E2
//	cool  15 ≤ t < 20 #50C878
//	ideal 20 ≤ t < 25 #F4D03F
//	warm  25 ≤ t < 30 #F39C12
//	hot   t ≥ 30      #E74C3C
//
// Marker radius is t*0.5 clamped to [8, 20]. Non-finite temperatures land in
// the "unknown" band with the minimum radius.
package classify

import "math"

type BandName string

const (
	Cold    BandName = "cold"
	Cool    BandName = "cool"
	Ideal   BandName = "ideal"
	Warm    BandName = "warm"
	Hot     BandName = "hot"
	Unknown BandName = "unknown"
)

const (
	MinRadius = 8.0
	MaxRadius = 20.0

	unknownColor = "#9CA3AF"
)

// Band is one entry of the temperature scale.
type Band struct {
	Name  BandName `json:"name"`
	Label string   `json:"label"`
	Color string   `json:"color"`
	// Lower is inclusive, Upper exclusive; nil means unbounded.
	Lower *float64 `json:"lower,omitempty"`
	Upper *float64 `json:"upper,omitempty"`
}

// Classification is the full encoding of one temperature.
type Classification struct {
	Band   BandName `json:"band"`
	Color  string   `json:"color"`
	Radius float64  `json:"radius"`
}

func bound(v float64) *float64 { return &v }

var bands = []Band{
	{Name: Cold, Label: "<15°C Cold", Color: "#4A90E2", Upper: bound(15)},
	{Name: Cool, Label: "15-20°C Cool", Color: "#50C878", Lower: bound(15), Upper: bound(20)},
	{Name: Ideal, Label: "20-25°C Ideal", Color: "#F4D03F", Lower: bound(20), Upper: bound(25)},
	{Name: Warm, Label: "25-30°C Warm", Color: "#F39C12", Lower: bound(25), Upper: bound(30)},
	{Name: Hot, Label: ">30°C Hot", Color: "#E74C3C", Lower: bound(30)},
}

// Legend returns the bands in ascending temperature order.
func Legend() []Band {
	out := make([]Band, len(bands))
	copy(out, bands)
	return out
}

// BandFor returns the band a temperature falls into.
func BandFor(t float64) Band {
	if math.IsNaN(t) || math.IsInf(t, 0) {
		return Band{Name: Unknown, Label: "Unknown", Color: unknownColor}
	}
	switch {
	case t < 15:
		return bands[0]
	case t < 20:
		return bands[1]
	case t < 25:
		return bands[2]
	case t < 30:
		return bands[3]
	default:
		return bands[4]
	}
}

// Color is shorthand for BandFor(t).Color.
func Color(t float64) string {
	return BandFor(t).Color
}

// Radius scales the marker size linearly with temperature.
func Radius(t float64) float64 {
	if math.IsNaN(t) || math.IsInf(t, 0) {
		return MinRadius
	}
	return math.Max(MinRadius, math.Min(MaxRadius, t*0.5))
}

func Classify(t float64) Classification {
	b := BandFor(t)
	return Classification{
		Band:   b.Name,
		Color:  b.Color,
		Radius: Radius(t),
	}
}
