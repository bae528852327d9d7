package handlers

import (
	"context"
	"sync"

	"soil-bknd/internal/analytics"
	"soil-bknd/internal/models"
	"soil-bknd/internal/services"

	"github.com/google/uuid"
)

// fakeStore keeps samples in memory and mimics the service error contract.
type fakeStore struct {
	mu         sync.Mutex
	samples    map[uuid.UUID]models.SoilSample
	listErr    error
	deleteErr  error
	lastParams models.SampleQueryParams
	updates    int
}

func newFakeStore(samples ...models.SoilSample) *fakeStore {
	s := &fakeStore{samples: make(map[uuid.UUID]models.SoilSample)}
	for _, sm := range samples {
		s.samples[sm.ID] = sm
	}
	return s
}

func (f *fakeStore) List(_ context.Context, params models.SampleQueryParams) ([]models.SoilSample, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastParams = params
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]models.SoilSample, 0, len(f.samples))
	for _, s := range f.samples {
		out = append(out, s)
	}
	return out, nil
}

func (f *fakeStore) Get(_ context.Context, id uuid.UUID) (*models.SoilSample, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.samples[id]
	if !ok {
		return nil, services.ErrNotFound
	}
	return &s, nil
}

func (f *fakeStore) Create(_ context.Context, form models.SampleForm) (*models.SoilSample, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := models.SoilSample{ID: uuid.New()}
	if err := s.ApplyForm(form); err != nil {
		return nil, err
	}
	f.samples[s.ID] = s
	return &s, nil
}

func (f *fakeStore) Update(_ context.Context, id uuid.UUID, form models.SampleForm) (*models.SoilSample, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.samples[id]
	if !ok {
		return nil, services.ErrNotFound
	}
	if err := s.ApplyForm(form); err != nil {
		return nil, err
	}
	f.samples[id] = s
	f.updates++
	return &s, nil
}

func (f *fakeStore) Delete(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	if _, ok := f.samples[id]; !ok {
		return services.ErrNoRowsAffected
	}
	delete(f.samples, id)
	return nil
}

func (f *fakeStore) has(id uuid.UUID) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.samples[id]
	return ok
}

type fakeMunicipalities struct {
	list []models.Municipality
	err  error
}

func (f *fakeMunicipalities) List(context.Context) ([]models.Municipality, error) {
	return f.list, f.err
}

type fakeAnalytics struct {
	report  *analytics.Report
	stats   *analytics.DashboardStats
	err     error
	gotID   *uuid.UUID
	gotDays int
}

func (f *fakeAnalytics) Report(_ context.Context, municipalityID *uuid.UUID, days int) (*analytics.Report, error) {
	f.gotID, f.gotDays = municipalityID, days
	return f.report, f.err
}

func (f *fakeAnalytics) DashboardStats(context.Context) (*analytics.DashboardStats, error) {
	return f.stats, f.err
}

type fakeReadiness struct{ err error }

func (f fakeReadiness) CheckReadiness(context.Context) error { return f.err }
