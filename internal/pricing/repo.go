package pricing

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/blankhall98/Metaleria-API/pkg/db/models"
	"github.com/blankhall98/Metaleria-API/pkg/enums"
)

// Key identifies one price series.
type Key struct {
	MaterialID    int64
	OperationType enums.OperationType
	CustomerClass enums.CustomerClass
}

// Repository persists price versions and their change log.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	// LatestForUpdate locks and returns the highest version for key, or nil.
	LatestForUpdate(ctx context.Context, key Key) (*models.PriceVersion, error)
	// Active returns the active version with the highest number, or nil.
	Active(ctx context.Context, key Key) (*models.PriceVersion, error)
	DeactivateActive(ctx context.Context, key Key, until time.Time) error
	Create(ctx context.Context, version *models.PriceVersion) error
	AppendLog(ctx context.Context, entry *models.PriceChangeLog) error
	FindByID(ctx context.Context, id int64) (*models.PriceVersion, error)
	History(ctx context.Context, key Key) ([]models.PriceVersion, error)
	ChangeLog(ctx context.Context, key Key) ([]models.PriceChangeLog, error)
	ListActive(ctx context.Context, op *enums.OperationType) ([]models.PriceVersion, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository binds a pricing repository to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) keyed(ctx context.Context, key Key) *gorm.DB {
	return r.db.WithContext(ctx).
		Where("material_id = ? AND operation_type = ? AND customer_class = ?", key.MaterialID, key.OperationType, key.CustomerClass)
}

func (r *repository) LatestForUpdate(ctx context.Context, key Key) (*models.PriceVersion, error) {
	var version models.PriceVersion
	err := r.keyed(ctx, key).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Order("version DESC").
		First(&version).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &version, nil
}

func (r *repository) Active(ctx context.Context, key Key) (*models.PriceVersion, error) {
	var version models.PriceVersion
	err := r.keyed(ctx, key).
		Where("active = ?", true).
		Order("version DESC").
		First(&version).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &version, nil
}

func (r *repository) DeactivateActive(ctx context.Context, key Key, until time.Time) error {
	return r.keyed(ctx, key).
		Model(&models.PriceVersion{}).
		Where("active = ?", true).
		Updates(map[string]any{"active": false, "effective_until": until}).Error
}

func (r *repository) Create(ctx context.Context, version *models.PriceVersion) error {
	return r.db.WithContext(ctx).Create(version).Error
}

func (r *repository) AppendLog(ctx context.Context, entry *models.PriceChangeLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *repository) FindByID(ctx context.Context, id int64) (*models.PriceVersion, error) {
	var version models.PriceVersion
	if err := r.db.WithContext(ctx).First(&version, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &version, nil
}

func (r *repository) History(ctx context.Context, key Key) ([]models.PriceVersion, error) {
	var rows []models.PriceVersion
	err := r.keyed(ctx, key).Order("version DESC").Find(&rows).Error
	return rows, err
}

func (r *repository) ChangeLog(ctx context.Context, key Key) ([]models.PriceChangeLog, error) {
	var rows []models.PriceChangeLog
	err := r.keyed(ctx, key).Order("id DESC").Find(&rows).Error
	return rows, err
}

func (r *repository) ListActive(ctx context.Context, op *enums.OperationType) ([]models.PriceVersion, error) {
	q := r.db.WithContext(ctx).Where("active = ?", true)
	if op != nil {
		q = q.Where("operation_type = ?", *op)
	}
	var rows []models.PriceVersion
	err := q.Order("material_id ASC").Order("operation_type ASC").Order("customer_class ASC").Find(&rows).Error
	return rows, err
}
