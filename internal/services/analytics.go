package services

import (
	"context"
	"time"

	"soil-bknd/internal/analytics"
	"soil-bknd/internal/models"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// AllowedWindows are the day ranges the analytics filter offers.
var AllowedWindows = []int{7, 30, 90, 365}

type AnalyticsService struct {
	samples        *SampleService
	municipalities *MunicipalityService
	clock          clockwork.Clock
}

func NewAnalyticsService(samples *SampleService, municipalities *MunicipalityService, clock clockwork.Clock) *AnalyticsService {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &AnalyticsService{samples: samples, municipalities: municipalities, clock: clock}
}

// WindowParams converts a municipality filter and a day window into list
// parameters ordered oldest first.
func WindowParams(now time.Time, municipalityID *uuid.UUID, days int) models.SampleQueryParams {
	from := now.Add(-time.Duration(days) * 24 * time.Hour)
	params := models.SampleQueryParams{
		From:      &from,
		Ascending: true,
	}
	if municipalityID != nil {
		params.MunicipalityIDs = []uuid.UUID{*municipalityID}
	}
	return params
}

func (s *AnalyticsService) Report(ctx context.Context, municipalityID *uuid.UUID, days int) (*analytics.Report, error) {
	rows, err := s.samples.List(ctx, WindowParams(s.clock.Now().UTC(), municipalityID, days))
	if err != nil {
		return nil, err
	}
	names, err := s.municipalities.Names(ctx)
	if err != nil {
		return nil, err
	}
	report := analytics.Build(rows, names)
	return &report, nil
}

// DashboardStats summarizes every stored sample.
func (s *AnalyticsService) DashboardStats(ctx context.Context) (*analytics.DashboardStats, error) {
	rows, err := s.samples.List(ctx, models.SampleQueryParams{})
	if err != nil {
		return nil, err
	}
	stats := analytics.Stats(rows)
	return &stats, nil
}
