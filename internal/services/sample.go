package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"soil-bknd/internal/models"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/uptrace/bun"
)

// ChangeNotifier is told about every committed mutation so that open views
// can re-fetch instead of reloading.
type ChangeNotifier interface {
	SamplesChanged(ctx context.Context, action string, id uuid.UUID)
}

const (
	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionDeleted = "deleted"
)

type SampleService struct {
	db       bun.IDB
	clock    clockwork.Clock
	notifier ChangeNotifier
}

func NewSampleService(db bun.IDB, clock clockwork.Clock, notifier ChangeNotifier) *SampleService {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &SampleService{db: db, clock: clock, notifier: notifier}
}

var sampleColumns = []string{
	"id",
	"temperature",
	"ph",
	"fertility_percentage",
	"nitrogen_level",
	"phosphorus_level",
	"potassium_level",
	"location_name",
	"notes",
	"collected_at",
	"temp_category",
	"municipality_id",
}

// selectSamples selects the row columns plus the geometry rendered as GeoJSON.
func (s *SampleService) selectSamples(dest any) *bun.SelectQuery {
	return s.db.NewSelect().
		Model(dest).
		Column(sampleColumns...).
		ColumnExpr("ST_AsGeoJSON(sd.location)::json AS location")
}

func (s *SampleService) listQuery(dest *[]models.SoilSample, params models.SampleQueryParams) *bun.SelectQuery {
	q := s.selectSamples(dest)

	if len(params.MunicipalityIDs) > 0 {
		q = q.Where("sd.municipality_id IN (?)", bun.In(params.MunicipalityIDs))
	}
	if params.From != nil {
		q = q.Where("sd.collected_at >= ?", *params.From)
	}
	if params.To != nil {
		q = q.Where("sd.collected_at <= ?", *params.To)
	}

	if params.Ascending {
		q = q.OrderExpr("sd.collected_at ASC NULLS LAST")
	} else {
		q = q.OrderExpr("sd.collected_at DESC NULLS LAST")
	}

	if params.Limit > 0 {
		q = q.Limit(params.Limit)
	}
	return q
}

// List returns samples matching the filter ordered by collection time.
func (s *SampleService) List(ctx context.Context, params models.SampleQueryParams) ([]models.SoilSample, error) {
	samples := make([]models.SoilSample, 0)
	if err := s.listQuery(&samples, params).Scan(ctx); err != nil {
		return nil, fmt.Errorf("list samples: %w", err)
	}
	return samples, nil
}

// Get returns one sample or ErrNotFound.
func (s *SampleService) Get(ctx context.Context, id uuid.UUID) (*models.SoilSample, error) {
	sample := new(models.SoilSample)
	err := s.selectSamples(sample).
		Where("sd.id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get sample %s: %w", id, err)
	}
	return sample, nil
}

func (s *SampleService) insertQuery(sample *models.SoilSample, lat, lng float64) *bun.InsertQuery {
	return s.db.NewInsert().
		Model(sample).
		Value("location", "ST_SetSRID(ST_MakePoint(?, ?), 4326)", lng, lat)
}

// Create inserts one sample from a validated form and returns the stored row.
func (s *SampleService) Create(ctx context.Context, form models.SampleForm) (*models.SoilSample, error) {
	if err := s.checkMunicipality(ctx, form.MunicipalityID); err != nil {
		return nil, err
	}

	now := s.clock.Now().UTC()
	sample := &models.SoilSample{
		ID:          uuid.New(),
		CollectedAt: &now,
	}
	if err := sample.ApplyForm(form); err != nil {
		return nil, fmt.Errorf("apply form: %w", err)
	}

	if _, err := s.insertQuery(sample, *form.Latitude, *form.Longitude).Exec(ctx); err != nil {
		return nil, fmt.Errorf("insert sample: %w", err)
	}

	stored, err := s.Get(ctx, sample.ID)
	if err != nil {
		return nil, err
	}
	s.notify(ctx, ActionCreated, sample.ID)
	return stored, nil
}

func (s *SampleService) updateQuery(sample *models.SoilSample, lat, lng float64) *bun.UpdateQuery {
	return s.db.NewUpdate().
		Model((*models.SoilSample)(nil)).
		Set("location_name = ?", sample.LocationName).
		Set("temperature = ?", sample.Temperature).
		Set("ph = ?", sample.PH).
		Set("fertility_percentage = ?", sample.FertilityPercentage).
		Set("nitrogen_level = ?", sample.NitrogenLevel).
		Set("phosphorus_level = ?", sample.PhosphorusLevel).
		Set("potassium_level = ?", sample.PotassiumLevel).
		Set("notes = ?", sample.Notes).
		Set("municipality_id = ?", sample.MunicipalityID).
		Set("location = ST_SetSRID(ST_MakePoint(?, ?), 4326)", lng, lat).
		Where("id = ?", sample.ID)
}

// Update overwrites every editable field in one statement and returns the
// re-fetched row.
func (s *SampleService) Update(ctx context.Context, id uuid.UUID, form models.SampleForm) (*models.SoilSample, error) {
	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.checkMunicipality(ctx, form.MunicipalityID); err != nil {
		return nil, err
	}
	if err := current.ApplyForm(form); err != nil {
		return nil, fmt.Errorf("apply form: %w", err)
	}

	res, err := s.updateQuery(current, *form.Latitude, *form.Longitude).Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("update sample %s: %w", id, err)
	}
	if err := requireAffected(res); err != nil {
		return nil, err
	}

	stored, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.notify(ctx, ActionUpdated, id)
	return stored, nil
}

func (s *SampleService) deleteQuery(id uuid.UUID) *bun.DeleteQuery {
	return s.db.NewDelete().
		Model((*models.SoilSample)(nil)).
		Where("id = ?", id)
}

// Delete removes one sample. A delete that touches no row is a failure.
func (s *SampleService) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := s.deleteQuery(id).Exec(ctx)
	if err != nil {
		return fmt.Errorf("delete sample %s: %w", id, err)
	}
	if err := requireAffected(res); err != nil {
		return err
	}
	s.notify(ctx, ActionDeleted, id)
	return nil
}

func (s *SampleService) checkMunicipality(ctx context.Context, raw string) error {
	id, err := uuid.Parse(raw)
	if err != nil {
		return ErrUnknownMunicipality
	}
	exists, err := s.db.NewSelect().
		Model((*models.Municipality)(nil)).
		Where("id = ?", id).
		Exists(ctx)
	if err != nil {
		return fmt.Errorf("check municipality: %w", err)
	}
	if !exists {
		return ErrUnknownMunicipality
	}
	return nil
}

func (s *SampleService) notify(ctx context.Context, action string, id uuid.UUID) {
	if s.notifier != nil {
		s.notifier.SamplesChanged(ctx, action, id)
	}
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNoRowsAffected
	}
	return nil
}
