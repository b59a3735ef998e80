package payments

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/blankhall98/Metaleria-API/pkg/db/models"
)

// Repository persists payments and the running amount paid on their note.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, payment *models.Payment) error
	UpdateAmountPaid(ctx context.Context, noteID int64, amountPaid decimal.Decimal) error
	ListByNote(ctx context.Context, noteID int64) ([]models.Payment, error)
	FindByIdempotencyKey(ctx context.Context, key string) (*models.Payment, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a payments repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, payment *models.Payment) error {
	return r.db.WithContext(ctx).Create(payment).Error
}

func (r *repository) UpdateAmountPaid(ctx context.Context, noteID int64, amountPaid decimal.Decimal) error {
	res := r.db.WithContext(ctx).
		Model(&models.Note{}).
		Where("id = ?", noteID).
		Update("amount_paid", amountPaid)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repository) ListByNote(ctx context.Context, noteID int64) ([]models.Payment, error) {
	var payments []models.Payment
	err := r.db.WithContext(ctx).
		Where("note_id = ?", noteID).
		Order("id ASC").
		Find(&payments).Error
	return payments, err
}

func (r *repository) FindByIdempotencyKey(ctx context.Context, key string) (*models.Payment, error) {
	var payment models.Payment
	if err := r.db.WithContext(ctx).Where("idempotency_key = ?", key).First(&payment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &payment, nil
}
