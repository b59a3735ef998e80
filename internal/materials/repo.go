package materials

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/blankhall98/Metaleria-API/pkg/db/models"
)

// Repository persists the material catalogue.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, material *models.Material) error
	FindByID(ctx context.Context, id int64) (*models.Material, error)
	FindByName(ctx context.Context, name string) (*models.Material, error)
	FindByIDs(ctx context.Context, ids []int64) ([]models.Material, error)
	List(ctx context.Context, onlyActive bool) ([]models.Material, error)
	SetActive(ctx context.Context, id int64, active bool) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository binds a material repository to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, material *models.Material) error {
	return r.db.WithContext(ctx).Create(material).Error
}

func (r *repository) FindByID(ctx context.Context, id int64) (*models.Material, error) {
	var material models.Material
	if err := r.db.WithContext(ctx).First(&material, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &material, nil
}

func (r *repository) FindByName(ctx context.Context, name string) (*models.Material, error) {
	var material models.Material
	err := r.db.WithContext(ctx).Where("LOWER(name) = LOWER(?)", name).First(&material).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &material, nil
}

func (r *repository) FindByIDs(ctx context.Context, ids []int64) ([]models.Material, error) {
	var rows []models.Material
	if len(ids) == 0 {
		return rows, nil
	}
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error
	return rows, err
}

func (r *repository) List(ctx context.Context, onlyActive bool) ([]models.Material, error) {
	q := r.db.WithContext(ctx).Order("name ASC")
	if onlyActive {
		q = q.Where("active = ?", true)
	}
	var rows []models.Material
	err := q.Find(&rows).Error
	return rows, err
}

func (r *repository) SetActive(ctx context.Context, id int64, active bool) error {
	res := r.db.WithContext(ctx).Model(&models.Material{}).
		Where("id = ?", id).
		Update("active", active)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
