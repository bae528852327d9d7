package models

import (
	"encoding/json"
	"strings"
	"time"

	"soil-bknd/internal/classify"
	"soil-bknd/internal/geometry"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// SoilSample is one soil measurement. Location holds the GeoJSON produced by
// ST_AsGeoJSON and is never written back as-is.
type SoilSample struct {
	bun.BaseModel `bun:"table:soil_data,alias:sd"`

	ID                  uuid.UUID       `bun:"id,pk,type:uuid" json:"id"`
	Location            json.RawMessage `bun:"location,type:geometry" json:"location"`
	Temperature         float64         `bun:"temperature,notnull" json:"temperature"`
	PH                  float64         `bun:"ph,notnull" json:"ph"`
	FertilityPercentage *float64        `bun:"fertility_percentage" json:"fertility_percentage"`
	NitrogenLevel       *float64        `bun:"nitrogen_level" json:"nitrogen_level"`
	PhosphorusLevel     *float64        `bun:"phosphorus_level" json:"phosphorus_level"`
	PotassiumLevel      *float64        `bun:"potassium_level" json:"potassium_level"`
	LocationName        *string         `bun:"location_name" json:"location_name"`
	Notes               *string         `bun:"notes" json:"notes"`
	CollectedAt         *time.Time      `bun:"collected_at" json:"collected_at"`
	TempCategory        *string         `bun:"temp_category,scanonly" json:"temp_category"`
	MunicipalityID      uuid.UUID       `bun:"municipality_id,type:uuid" json:"municipality_id"`
}

// Municipality is immutable reference data for forms and filters.
type Municipality struct {
	bun.BaseModel `bun:"table:municipalities,alias:mun"`

	ID   uuid.UUID `bun:"id,pk,type:uuid" json:"id"`
	Name string    `bun:"name,notnull" json:"name"`
}

// SampleQueryParams filters the sample listing.
type SampleQueryParams struct {
	MunicipalityIDs []uuid.UUID
	From            *time.Time
	To              *time.Time
	Ascending       bool
	Limit           int
}

// SampleForm is the Add/Edit payload. Optional numeric fields are pointers so
// that an absent value is distinguishable from zero.
type SampleForm struct {
	Latitude            *float64 `json:"latitude" validate:"required,gte=-90,lte=90"`
	Longitude           *float64 `json:"longitude" validate:"required,gte=-180,lte=180"`
	LocationName        string   `json:"location_name" validate:"required,max=200"`
	Temperature         *float64 `json:"temperature" validate:"required,gte=-50,lte=100"`
	PH                  *float64 `json:"ph" validate:"required,gte=0,lte=14"`
	FertilityPercentage *float64 `json:"fertility_percentage,omitempty" validate:"omitnil,gte=0,lte=100"`
	NitrogenLevel       *float64 `json:"nitrogen_level,omitempty" validate:"omitnil,gte=0"`
	PhosphorusLevel     *float64 `json:"phosphorus_level,omitempty" validate:"omitnil,gte=0"`
	PotassiumLevel      *float64 `json:"potassium_level,omitempty" validate:"omitnil,gte=0"`
	Notes               *string  `json:"notes,omitempty" validate:"omitnil,max=1000"`
	MunicipalityID      string   `json:"municipality_id" validate:"required,uuid"`
}

// Normalize trims text fields the way the form did before validation.
func (f *SampleForm) Normalize() {
	f.LocationName = strings.TrimSpace(f.LocationName)
	f.MunicipalityID = strings.TrimSpace(f.MunicipalityID)
	if f.Notes != nil && strings.TrimSpace(*f.Notes) == "" {
		f.Notes = nil
	}
}

// FormFromSample pre-populates the Edit form from a stored sample.
func FormFromSample(s SoilSample) SampleForm {
	f := SampleForm{
		MunicipalityID:      s.MunicipalityID.String(),
		Temperature:         floatPtr(s.Temperature),
		PH:                  floatPtr(s.PH),
		FertilityPercentage: copyFloat(s.FertilityPercentage),
		NitrogenLevel:       copyFloat(s.NitrogenLevel),
		PhosphorusLevel:     copyFloat(s.PhosphorusLevel),
		PotassiumLevel:      copyFloat(s.PotassiumLevel),
	}
	if s.LocationName != nil {
		f.LocationName = *s.LocationName
	}
	if s.Notes != nil {
		n := *s.Notes
		f.Notes = &n
	}
	if pos, ok := geometry.Position(s.Location); ok {
		f.Latitude = floatPtr(pos.Lat())
		f.Longitude = floatPtr(pos.Lng())
	}
	return f
}

// ApplyForm overwrites every editable field of s from a validated form.
// Identity, collected_at and the store-computed category are left alone.
func (s *SoilSample) ApplyForm(f SampleForm) error {
	municipalityID, err := uuid.Parse(f.MunicipalityID)
	if err != nil {
		return err
	}

	name := f.LocationName
	s.LocationName = &name
	s.MunicipalityID = municipalityID
	s.Temperature = derefFloat(f.Temperature)
	s.PH = derefFloat(f.PH)
	s.FertilityPercentage = copyFloat(f.FertilityPercentage)
	s.NitrogenLevel = copyFloat(f.NitrogenLevel)
	s.PhosphorusLevel = copyFloat(f.PhosphorusLevel)
	s.PotassiumLevel = copyFloat(f.PotassiumLevel)
	if f.Notes != nil {
		n := *f.Notes
		s.Notes = &n
	} else {
		s.Notes = nil
	}

	if f.Latitude != nil && f.Longitude != nil {
		lat, lng := *f.Latitude, *f.Longitude
		if pos, ok := geometry.Position(s.Location); !ok || pos.Lat() != lat || pos.Lng() != lng {
			loc, err := json.Marshal(map[string]any{
				"type":        "Point",
				"coordinates": []float64{lng, lat},
			})
			if err != nil {
				return err
			}
			s.Location = loc
		}
	}
	return nil
}

// SampleView is a sample decorated for list, table and card rendering.
type SampleView struct {
	SoilSample
	Classification classify.Classification `json:"classification"`
	Geometry       geometry.Kind           `json:"geometry"`
	Position       *geometry.LatLng        `json:"position"`
}

func NewSampleView(s SoilSample) SampleView {
	g := geometry.Parse(s.Location)
	v := SampleView{
		SoilSample:     s,
		Classification: classify.Classify(s.Temperature),
		Geometry:       g.Kind,
	}
	if pos, ok := g.LatLng(); ok {
		v.Position = &pos
	}
	return v
}

func NewSampleViews(samples []SoilSample) []SampleView {
	out := make([]SampleView, 0, len(samples))
	for _, s := range samples {
		out = append(out, NewSampleView(s))
	}
	return out
}

func floatPtr(v float64) *float64 { return &v }

func copyFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func derefFloat(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
