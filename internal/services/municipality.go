package services

import (
	"context"
	"fmt"

	"soil-bknd/internal/models"

	"github.com/uptrace/bun"
)

type MunicipalityService struct {
	db bun.IDB
}

func NewMunicipalityService(db bun.IDB) *MunicipalityService {
	return &MunicipalityService{db: db}
}

func (s *MunicipalityService) listQuery(dest *[]models.Municipality) *bun.SelectQuery {
	return s.db.NewSelect().
		Model(dest).
		Column("id", "name").
		OrderExpr("mun.name ASC")
}

// List returns every municipality ordered by name.
func (s *MunicipalityService) List(ctx context.Context) ([]models.Municipality, error) {
	municipalities := make([]models.Municipality, 0)
	if err := s.listQuery(&municipalities).Scan(ctx); err != nil {
		return nil, fmt.Errorf("list municipalities: %w", err)
	}
	return municipalities, nil
}

// Names maps municipality id to name for labelling grouped analytics.
func (s *MunicipalityService) Names(ctx context.Context) (map[string]string, error) {
	list, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	names := make(map[string]string, len(list))
	for _, m := range list {
		names[m.ID.String()] = m.Name
	}
	return names, nil
}
