package inventory

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/blankhall98/Metaleria-API/pkg/db/models"
)

// Repository persists inventory accounts and their movement log.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	// EnsureAccount inserts a zero balance account unless one exists.
	EnsureAccount(ctx context.Context, branchID, materialID int64) error
	LockAccount(ctx context.Context, branchID, materialID int64) (*models.InventoryAccount, error)
	FindAccount(ctx context.Context, branchID, materialID int64) (*models.InventoryAccount, error)
	SaveBalance(ctx context.Context, account *models.InventoryAccount) error
	AppendMovement(ctx context.Context, movement *models.InventoryMovement) error
	ListAccounts(ctx context.Context, branchID int64) ([]models.InventoryAccount, error)
	// ScanAccounts pages through every account in id order.
	ScanAccounts(ctx context.Context, afterID int64, limit int) ([]models.InventoryAccount, error)
	ListMovements(ctx context.Context, accountID int64, limit int) ([]models.InventoryMovement, error)
	ListMovementsByNote(ctx context.Context, noteID int64) ([]models.InventoryMovement, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository binds an inventory repository to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) EnsureAccount(ctx context.Context, branchID, materialID int64) error {
	account := models.InventoryAccount{BranchID: branchID, MaterialID: materialID}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "branch_id"}, {Name: "material_id"}},
			DoNothing: true,
		}).
		Create(&account).Error
}

func (r *repository) LockAccount(ctx context.Context, branchID, materialID int64) (*models.InventoryAccount, error) {
	var account models.InventoryAccount
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("branch_id = ? AND material_id = ?", branchID, materialID).
		First(&account).Error; err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *repository) FindAccount(ctx context.Context, branchID, materialID int64) (*models.InventoryAccount, error) {
	var account models.InventoryAccount
	if err := r.db.WithContext(ctx).
		Where("branch_id = ? AND material_id = ?", branchID, materialID).
		First(&account).Error; err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *repository) SaveBalance(ctx context.Context, account *models.InventoryAccount) error {
	return r.db.WithContext(ctx).
		Model(account).
		Update("current_stock", account.CurrentStock).Error
}

func (r *repository) AppendMovement(ctx context.Context, movement *models.InventoryMovement) error {
	return r.db.WithContext(ctx).Create(movement).Error
}

func (r *repository) ListAccounts(ctx context.Context, branchID int64) ([]models.InventoryAccount, error) {
	var accounts []models.InventoryAccount
	err := r.db.WithContext(ctx).
		Where("branch_id = ?", branchID).
		Order("material_id ASC").
		Find(&accounts).Error
	return accounts, err
}

func (r *repository) ScanAccounts(ctx context.Context, afterID int64, limit int) ([]models.InventoryAccount, error) {
	var accounts []models.InventoryAccount
	err := r.db.WithContext(ctx).
		Where("id > ?", afterID).
		Order("id ASC").
		Limit(limit).
		Find(&accounts).Error
	return accounts, err
}

func (r *repository) ListMovements(ctx context.Context, accountID int64, limit int) ([]models.InventoryMovement, error) {
	q := r.db.WithContext(ctx).Where("account_id = ?", accountID).Order("id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var movements []models.InventoryMovement
	err := q.Find(&movements).Error
	return movements, err
}

func (r *repository) ListMovementsByNote(ctx context.Context, noteID int64) ([]models.InventoryMovement, error) {
	var movements []models.InventoryMovement
	err := r.db.WithContext(ctx).
		Where("note_id = ?", noteID).
		Order("id ASC").
		Find(&movements).Error
	return movements, err
}
