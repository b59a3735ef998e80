package materials

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/blankhall98/Metaleria-API/pkg/db"
	"github.com/blankhall98/Metaleria-API/pkg/db/models"
	pkgerrors "github.com/blankhall98/Metaleria-API/pkg/errors"
	"github.com/blankhall98/Metaleria-API/pkg/validators"
)

// Service manages the material catalogue.
type Service interface {
	Create(ctx context.Context, input CreateMaterialInput) (*MaterialDTO, error)
	Get(ctx context.Context, id int64) (*MaterialDTO, error)
	List(ctx context.Context, onlyActive bool) ([]MaterialDTO, error)
	SetActive(ctx context.Context, id int64, active bool) error
	// EnsureExist fails with MATERIAL_NOT_FOUND naming the first unknown id.
	EnsureExist(ctx context.Context, tx *gorm.DB, ids []int64) error
}

type service struct {
	repo Repository
}

// NewService wires the material service.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("materials repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Create(ctx context.Context, input CreateMaterialInput) (*MaterialDTO, error) {
	input.Name = strings.TrimSpace(input.Name)
	input.Unit = strings.TrimSpace(input.Unit)
	if err := validators.Struct(input); err != nil {
		return nil, err
	}
	if input.Unit == "" {
		input.Unit = defaultUnit
	}

	existing, err := s.repo.FindByName(ctx, input.Name)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup material name")
	}
	if existing != nil {
		return nil, duplicateName(input.Name)
	}

	material := &models.Material{Name: input.Name, Unit: input.Unit, Active: true}
	if err := s.repo.Create(ctx, material); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, duplicateName(input.Name)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create material")
	}
	dto := toDTO(*material)
	return &dto, nil
}

func (s *service) Get(ctx context.Context, id int64) (*MaterialDTO, error) {
	material, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound(id)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load material")
	}
	dto := toDTO(*material)
	return &dto, nil
}

func (s *service) List(ctx context.Context, onlyActive bool) ([]MaterialDTO, error) {
	rows, err := s.repo.List(ctx, onlyActive)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list materials")
	}
	out := make([]MaterialDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, toDTO(row))
	}
	return out, nil
}

func (s *service) SetActive(ctx context.Context, id int64, active bool) error {
	if err := s.repo.SetActive(ctx, id, active); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return notFound(id)
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update material")
	}
	return nil
}

func (s *service) EnsureExist(ctx context.Context, tx *gorm.DB, ids []int64) error {
	unique := make([]int64, 0, len(ids))
	seen := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}
	rows, err := s.repo.WithTx(tx).FindByIDs(ctx, unique)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load materials")
	}
	found := make(map[int64]struct{}, len(rows))
	for _, row := range rows {
		found[row.ID] = struct{}{}
	}
	for _, id := range unique {
		if _, ok := found[id]; !ok {
			return notFound(id)
		}
	}
	return nil
}

func notFound(id int64) error {
	return pkgerrors.New(pkgerrors.CodeMaterialNotFound, "material not found").
		WithDetails(map[string]any{"material_id": id})
}

func duplicateName(name string) error {
	return pkgerrors.New(pkgerrors.CodeDuplicateName, "material name already exists").
		WithDetails(map[string]any{"name": name})
}
