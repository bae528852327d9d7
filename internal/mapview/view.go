// Package mapview composes the temperature map: a basemap, one circle marker
// per sample with a usable point, a legend and a viewport. Samples whose
// geometry is missing or malformed are counted and skipped.
package mapview

import (
	"fmt"
	"math"

	"soil-bknd/internal/classify"
	"soil-bknd/internal/geometry"
	"soil-bknd/internal/models"

	"github.com/google/uuid"
)

type State string

const (
	StateLoading   State = "loading"
	StateEmpty     State = "empty"
	StateRendering State = "rendering"
)

const (
	TileURL     = "https://{s}.tile.openstreetmap.org/{z}/{x}/{y}.png"
	Attribution = `&copy; <a href="https://www.openstreetmap.org/copyright">OpenStreetMap</a> contributors`

	DefaultZoom = 11
	DataZoom    = 10

	untitled = "Soil Sample"
)

// DefaultCenter is the regional center used when there is nothing to show.
var DefaultCenter = geometry.LatLng{17.5969, 120.8472}

type Basemap struct {
	TileURL     string `json:"tile_url"`
	Attribution string `json:"attribution"`
}

type Bounds struct {
	SouthWest geometry.LatLng `json:"south_west"`
	NorthEast geometry.LatLng `json:"north_east"`
}

type Viewport struct {
	Center geometry.LatLng `json:"center"`
	Zoom   int             `json:"zoom"`
	Bounds *Bounds         `json:"bounds,omitempty"`
}

// Popup carries display-ready strings for a marker.
type Popup struct {
	Title       string  `json:"title"`
	Temperature string  `json:"temperature"`
	Category    *string `json:"category,omitempty"`
	PH          string  `json:"ph"`
	Fertility   *string `json:"fertility,omitempty"`
	CollectedOn *string `json:"collected_on,omitempty"`
}

type Marker struct {
	ID       uuid.UUID         `json:"id"`
	Position geometry.LatLng   `json:"position"`
	Band     classify.BandName `json:"band"`
	Color    string            `json:"color"`
	Radius   float64           `json:"radius"`
	Popup    Popup             `json:"popup"`
}

type View struct {
	State    State           `json:"state"`
	Basemap  Basemap         `json:"basemap"`
	Viewport Viewport        `json:"viewport"`
	Markers  []Marker        `json:"markers"`
	Legend   []classify.Band `json:"legend"`
	Skipped  int             `json:"skipped"`
}

func baseView(state State) View {
	return View{
		State:    state,
		Basemap:  Basemap{TileURL: TileURL, Attribution: Attribution},
		Viewport: Viewport{Center: DefaultCenter, Zoom: DefaultZoom},
		Markers:  []Marker{},
		Legend:   classify.Legend(),
	}
}

// Loading is the view shown before the first fetch completes.
func Loading() View {
	return baseView(StateLoading)
}

// Build resolves a fetch result into the empty or rendering state. A fetch
// error yields the empty view; the caller decides how to report it.
func Build(samples []models.SoilSample, err error) View {
	if err != nil {
		return baseView(StateEmpty)
	}

	v := baseView(StateEmpty)
	for _, s := range samples {
		pos, ok := geometry.Position(s.Location)
		if !ok {
			v.Skipped++
			continue
		}
		v.Markers = append(v.Markers, newMarker(s, pos))
	}

	if len(v.Markers) == 0 {
		return v
	}
	v.State = StateRendering
	v.Viewport = fit(v.Markers)
	return v
}

func newMarker(s models.SoilSample, pos geometry.LatLng) Marker {
	c := classify.Classify(s.Temperature)
	return Marker{
		ID:       s.ID,
		Position: pos,
		Band:     c.Band,
		Color:    c.Color,
		Radius:   c.Radius,
		Popup:    newPopup(s),
	}
}

func newPopup(s models.SoilSample) Popup {
	p := Popup{
		Title:       untitled,
		Temperature: fmt.Sprintf("%.1f°C", s.Temperature),
		PH:          fmt.Sprintf("%.2f", s.PH),
	}
	if s.LocationName != nil && *s.LocationName != "" {
		p.Title = *s.LocationName
	}
	if s.TempCategory != nil && *s.TempCategory != "" {
		cat := *s.TempCategory
		p.Category = &cat
	}
	if s.FertilityPercentage != nil {
		f := fmt.Sprintf("%.1f%%", *s.FertilityPercentage)
		p.Fertility = &f
	}
	if s.CollectedAt != nil {
		d := s.CollectedAt.UTC().Format("2006-01-02")
		p.CollectedOn = &d
	}
	return p
}

// fit centers on the mean of the marker positions and bounds all of them.
func fit(markers []Marker) Viewport {
	minLat, minLng := math.Inf(1), math.Inf(1)
	maxLat, maxLng := math.Inf(-1), math.Inf(-1)
	var sumLat, sumLng float64

	for _, m := range markers {
		lat, lng := m.Position.Lat(), m.Position.Lng()
		sumLat += lat
		sumLng += lng
		minLat = math.Min(minLat, lat)
		maxLat = math.Max(maxLat, lat)
		minLng = math.Min(minLng, lng)
		maxLng = math.Max(maxLng, lng)
	}

	n := float64(len(markers))
	return Viewport{
		Center: geometry.LatLng{sumLat / n, sumLng / n},
		Zoom:   DataZoom,
		Bounds: &Bounds{
			SouthWest: geometry.LatLng{minLat, minLng},
			NorthEast: geometry.LatLng{maxLat, maxLng},
		},
	}
}
