// Package analytics derives summary figures from a window of soil samples:
// averages, a trend series, the NPK profile per municipality and fertility by
// location. All functions are pure; rows are expected in collection order.
package analytics

import (
	"math"
	"time"

	"soil-bknd/internal/models"

	"github.com/google/uuid"
)

const (
	UnknownLocation     = "Unknown"
	UnknownMunicipality = "Unknown"
	dateLayout          = "2006-01-02"
)

// Averages holds the rounded means shown on the analytics cards.
type Averages struct {
	Temperature float64 `json:"avg_temperature"`
	PH          float64 `json:"avg_ph"`
	Fertility   float64 `json:"avg_fertility"`
}

type TrendPoint struct {
	Date        string  `json:"date"`
	Temperature float64 `json:"temperature"`
	PH          float64 `json:"ph"`
	Fertility   float64 `json:"fertility"`
	Location    string  `json:"location"`
}

// NPKProfile is the mean of non-zero nutrient readings for one municipality.
type NPKProfile struct {
	MunicipalityID uuid.UUID `json:"municipality_id"`
	Municipality   string    `json:"municipality"`
	Nitrogen       float64   `json:"nitrogen"`
	Phosphorus     float64   `json:"phosphorus"`
	Potassium      float64   `json:"potassium"`
}

type LocationFertility struct {
	Location  string  `json:"location"`
	Fertility float64 `json:"fertility"`
}

type Report struct {
	SampleCount         int                 `json:"sample_count"`
	Averages            Averages            `json:"averages"`
	Trend               []TrendPoint        `json:"trend"`
	NPK                 []NPKProfile        `json:"npk"`
	FertilityByLocation []LocationFertility `json:"fertility_by_location"`
}

// DashboardStats are the headline numbers on the landing page.
type DashboardStats struct {
	TotalSamples int     `json:"total_samples"`
	AvgPH        float64 `json:"avg_ph"`
	AvgTemp      float64 `json:"avg_temperature"`
	AvgFertility float64 `json:"avg_fertility"`
}

// Build assembles the full analytics report. names maps municipality id
// strings to display names.
func Build(samples []models.SoilSample, names map[string]string) Report {
	return Report{
		SampleCount:         len(samples),
		Averages:            Summarize(samples),
		Trend:               Trend(samples),
		NPK:                 NPKByMunicipality(samples, names),
		FertilityByLocation: FertilityByLocation(samples),
	}
}

// Summarize averages temperature (1dp), pH (2dp) and fertility (1dp).
// A missing fertility reading counts as zero. An empty set yields zeros.
func Summarize(samples []models.SoilSample) Averages {
	if len(samples) == 0 {
		return Averages{}
	}
	var temp, ph, fert float64
	for _, s := range samples {
		temp += s.Temperature
		ph += s.PH
		fert += value(s.FertilityPercentage)
	}
	n := float64(len(samples))
	return Averages{
		Temperature: Round(temp/n, 1),
		PH:          Round(ph/n, 2),
		Fertility:   Round(fert/n, 1),
	}
}

// Stats is Summarize plus the row count.
func Stats(samples []models.SoilSample) DashboardStats {
	avg := Summarize(samples)
	return DashboardStats{
		TotalSamples: len(samples),
		AvgPH:        avg.PH,
		AvgTemp:      avg.Temperature,
		AvgFertility: avg.Fertility,
	}
}

func Trend(samples []models.SoilSample) []TrendPoint {
	out := make([]TrendPoint, 0, len(samples))
	for _, s := range samples {
		out = append(out, TrendPoint{
			Date:        formatDate(s.CollectedAt),
			Temperature: s.Temperature,
			PH:          s.PH,
			Fertility:   value(s.FertilityPercentage),
			Location:    locationName(s),
		})
	}
	return out
}

type npkAccumulator struct {
	id      uuid.UUID
	n, p, k []float64
}

// NPKByMunicipality groups samples by municipality in first-seen order and
// averages the non-zero nutrient readings. Municipalities without any reading
// are omitted.
func NPKByMunicipality(samples []models.SoilSample, names map[string]string) []NPKProfile {
	order := make([]uuid.UUID, 0)
	groups := make(map[uuid.UUID]*npkAccumulator)

	for _, s := range samples {
		acc, ok := groups[s.MunicipalityID]
		if !ok {
			acc = &npkAccumulator{id: s.MunicipalityID}
			groups[s.MunicipalityID] = acc
			order = append(order, s.MunicipalityID)
		}
		if v := value(s.NitrogenLevel); v != 0 {
			acc.n = append(acc.n, v)
		}
		if v := value(s.PhosphorusLevel); v != 0 {
			acc.p = append(acc.p, v)
		}
		if v := value(s.PotassiumLevel); v != 0 {
			acc.k = append(acc.k, v)
		}
	}

	out := make([]NPKProfile, 0, len(order))
	for _, id := range order {
		acc := groups[id]
		if len(acc.n) == 0 && len(acc.p) == 0 && len(acc.k) == 0 {
			continue
		}
		name, ok := names[id.String()]
		if !ok {
			name = UnknownMunicipality
		}
		out = append(out, NPKProfile{
			MunicipalityID: id,
			Municipality:   name,
			Nitrogen:       Round(mean(acc.n), 1),
			Phosphorus:     Round(mean(acc.p), 1),
			Potassium:      Round(mean(acc.k), 1),
		})
	}
	return out
}

func FertilityByLocation(samples []models.SoilSample) []LocationFertility {
	out := make([]LocationFertility, 0, len(samples))
	for _, s := range samples {
		out = append(out, LocationFertility{
			Location:  locationName(s),
			Fertility: value(s.FertilityPercentage),
		})
	}
	return out
}

// Round rounds half away from zero to the given number of decimals.
func Round(v float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Round(v*p) / p
}

func mean(vs []float64) float64 {
	if len(vs) == 0 {
		return 0
	}
	var sum float64
	for _, v := range vs {
		sum += v
	}
	return sum / float64(len(vs))
}

func value(v *float64) float64 {
	if v == nil || math.IsNaN(*v) {
		return 0
	}
	return *v
}

func locationName(s models.SoilSample) string {
	if s.LocationName == nil || *s.LocationName == "" {
		return UnknownLocation
	}
	return *s.LocationName
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(dateLayout)
}
