// Package geometry turns the loosely shaped location payload stored with a
// sample into a map position.
package geometry

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

type Kind int

const (
	Missing Kind = iota
	Point
	Malformed
)

func (k Kind) String() string {
	switch k {
	case Point:
		return "point"
	case Malformed:
		return "malformed"
	default:
		return "missing"
	}
}

func (k Kind) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(k.String())), nil
}

// LatLng is a map position in [latitude, longitude] order.
type LatLng [2]float64

func (p LatLng) Lat() float64 { return p[0] }
func (p LatLng) Lng() float64 { return p[1] }

// Geometry is the parsed form of a location payload. Lng/Lat are only
// meaningful when Kind is Point.
type Geometry struct {
	Kind Kind
	Lng  float64
	Lat  float64
}

// Parse never fails: anything that is not an object carrying a two element
// numeric "coordinates" array comes back Missing or Malformed.
func Parse(raw []byte) Geometry {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return Geometry{Kind: Missing}
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &obj); err != nil {
		return Geometry{Kind: Malformed}
	}

	coordsRaw, ok := obj["coordinates"]
	if !ok {
		return Geometry{Kind: Malformed}
	}

	var coords []json.RawMessage
	if err := json.Unmarshal(coordsRaw, &coords); err != nil || len(coords) != 2 {
		return Geometry{Kind: Malformed}
	}

	lng, okLng := ordinate(coords[0])
	lat, okLat := ordinate(coords[1])
	if !okLng || !okLat {
		return Geometry{Kind: Malformed}
	}

	return Geometry{Kind: Point, Lng: lng, Lat: lat}
}

// LatLng reverses the stored [lng, lat] order for map rendering.
func (g Geometry) LatLng() (LatLng, bool) {
	if g.Kind != Point {
		return LatLng{}, false
	}
	return LatLng{g.Lat, g.Lng}, true
}

// Position parses raw and returns its map position, if any.
func Position(raw []byte) (LatLng, bool) {
	return Parse(raw).LatLng()
}

// PointWKT renders a WGS84 point for insertion, longitude first.
func PointWKT(lat, lng float64) string {
	return fmt.Sprintf("POINT(%s %s)",
		strconv.FormatFloat(lng, 'f', -1, 64),
		strconv.FormatFloat(lat, 'f', -1, 64))
}

// ordinate accepts only a finite JSON number; json.Unmarshal would
// silently turn null into zero.
func ordinate(raw json.RawMessage) (float64, bool) {
	if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return 0, false
	}
	var v float64
	if err := json.Unmarshal(raw, &v); err != nil {
		return 0, false
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}
