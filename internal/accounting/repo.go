package accounting

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/blankhall98/Metaleria-API/pkg/db/models"
	"github.com/blankhall98/Metaleria-API/pkg/enums"
)

// Filter narrows movement listings. Zero values are ignored.
type Filter struct {
	BranchID *int64
	NoteID   *int64
	From     *time.Time
	To       *time.Time
	Limit    int
}

// Repository appends and reads accounting movements. There is no update or delete path.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, movement *models.AccountingMovement) error
	ExistsForNote(ctx context.Context, noteID int64, kind enums.AccountingMovementKind) (bool, error)
	List(ctx context.Context, filter Filter) ([]models.AccountingMovement, error)
	OperationTypes(ctx context.Context, noteIDs []int64) (map[int64]enums.OperationType, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an accounting repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, movement *models.AccountingMovement) error {
	return r.db.WithContext(ctx).Create(movement).Error
}

func (r *repository) ExistsForNote(ctx context.Context, noteID int64, kind enums.AccountingMovementKind) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.AccountingMovement{}).
		Where("note_id = ? AND kind = ?", noteID, kind).
		Count(&count).Error
	return count > 0, err
}

func (r *repository) List(ctx context.Context, filter Filter) ([]models.AccountingMovement, error) {
	q := r.db.WithContext(ctx).Model(&models.AccountingMovement{})
	if filter.BranchID != nil {
		q = q.Where("branch_id = ?", *filter.BranchID)
	}
	if filter.NoteID != nil {
		q = q.Where("note_id = ?", *filter.NoteID)
	}
	if filter.From != nil {
		q = q.Where("created_at >= ?", *filter.From)
	}
	if filter.To != nil {
		q = q.Where("created_at < ?", *filter.To)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	var movements []models.AccountingMovement
	err := q.Order("id ASC").Find(&movements).Error
	return movements, err
}

func (r *repository) OperationTypes(ctx context.Context, noteIDs []int64) (map[int64]enums.OperationType, error) {
	out := make(map[int64]enums.OperationType, len(noteIDs))
	if len(noteIDs) == 0 {
		return out, nil
	}
	var rows []struct {
		ID            int64
		OperationType enums.OperationType
	}
	if err := r.db.WithContext(ctx).
		Model(&models.Note{}).
		Select("id", "operation_type").
		Where("id IN ?", noteIDs).
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.ID] = row.OperationType
	}
	return out, nil
}
