package partners

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/blankhall98/Metaleria-API/pkg/db/models"
	"github.com/blankhall98/Metaleria-API/pkg/enums"
)

// Repository persists branches and counterparties.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	CreateBranch(ctx context.Context, branch *models.Branch) error
	FindBranch(ctx context.Context, id int64) (*models.Branch, error)
	BranchNameTaken(ctx context.Context, name string) (bool, error)
	ListBranches(ctx context.Context) ([]models.Branch, error)

	CreateSupplier(ctx context.Context, supplier *models.Supplier) error
	FindSupplier(ctx context.Context, id int64) (*models.Supplier, error)
	FindBranchSupplier(ctx context.Context, branchID int64) (*models.Supplier, error)
	ListSuppliers(ctx context.Context, onlyActive bool) ([]models.Supplier, error)

	CreateCustomer(ctx context.Context, customer *models.Customer) error
	FindCustomer(ctx context.Context, id int64) (*models.Customer, error)
	FindBranchCustomer(ctx context.Context, branchID int64) (*models.Customer, error)
	ListCustomers(ctx context.Context, onlyActive bool) ([]models.Customer, error)

	// NameTaken and PlateTaken check the table of the given model, case-insensitively.
	NameTaken(ctx context.Context, model any, name string) (bool, error)
	PlateTaken(ctx context.Context, model any, plate string) (bool, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository binds a partners repository to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateBranch(ctx context.Context, branch *models.Branch) error {
	return r.db.WithContext(ctx).Create(branch).Error
}

func (r *repository) FindBranch(ctx context.Context, id int64) (*models.Branch, error) {
	var branch models.Branch
	if err := r.db.WithContext(ctx).First(&branch, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &branch, nil
}

func (r *repository) BranchNameTaken(ctx context.Context, name string) (bool, error) {
	return r.NameTaken(ctx, &models.Branch{}, name)
}

func (r *repository) ListBranches(ctx context.Context) ([]models.Branch, error) {
	var rows []models.Branch
	err := r.db.WithContext(ctx).Order("name ASC").Find(&rows).Error
	return rows, err
}

func (r *repository) CreateSupplier(ctx context.Context, supplier *models.Supplier) error {
	return r.db.WithContext(ctx).Create(supplier).Error
}

func (r *repository) FindSupplier(ctx context.Context, id int64) (*models.Supplier, error) {
	var supplier models.Supplier
	if err := r.db.WithContext(ctx).First(&supplier, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &supplier, nil
}

func (r *repository) FindBranchSupplier(ctx context.Context, branchID int64) (*models.Supplier, error) {
	var supplier models.Supplier
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("kind = ? AND branch_id = ?", enums.PartnerKindBranch, branchID).
		First(&supplier).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &supplier, nil
}

func (r *repository) ListSuppliers(ctx context.Context, onlyActive bool) ([]models.Supplier, error) {
	q := r.db.WithContext(ctx).Order("name ASC")
	if onlyActive {
		q = q.Where("active = ?", true)
	}
	var rows []models.Supplier
	err := q.Find(&rows).Error
	return rows, err
}

func (r *repository) CreateCustomer(ctx context.Context, customer *models.Customer) error {
	return r.db.WithContext(ctx).Create(customer).Error
}

func (r *repository) FindCustomer(ctx context.Context, id int64) (*models.Customer, error) {
	var customer models.Customer
	if err := r.db.WithContext(ctx).First(&customer, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &customer, nil
}

func (r *repository) FindBranchCustomer(ctx context.Context, branchID int64) (*models.Customer, error) {
	var customer models.Customer
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("kind = ? AND branch_id = ?", enums.PartnerKindBranch, branchID).
		First(&customer).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &customer, nil
}

func (r *repository) ListCustomers(ctx context.Context, onlyActive bool) ([]models.Customer, error) {
	q := r.db.WithContext(ctx).Order("name ASC")
	if onlyActive {
		q = q.Where("active = ?", true)
	}
	var rows []models.Customer
	err := q.Find(&rows).Error
	return rows, err
}

func (r *repository) NameTaken(ctx context.Context, model any, name string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(model).
		Where("LOWER(name) = LOWER(?)", name).
		Count(&count).Error
	return count > 0, err
}

func (r *repository) PlateTaken(ctx context.Context, model any, plate string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(model).
		Where("UPPER(plate) = UPPER(?)", plate).
		Count(&count).Error
	return count > 0, err
}
