package partners

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/blankhall98/Metaleria-API/pkg/db"
	"github.com/blankhall98/Metaleria-API/pkg/db/models"
	"github.com/blankhall98/Metaleria-API/pkg/enums"
	pkgerrors "github.com/blankhall98/Metaleria-API/pkg/errors"
	"github.com/blankhall98/Metaleria-API/pkg/validators"
)

const branchProxyPrefix = "Sucursal "

// Service manages branches, suppliers and customers.
type Service interface {
	CreateBranch(ctx context.Context, input CreateBranchInput) (*BranchDTO, error)
	GetBranch(ctx context.Context, tx *gorm.DB, id int64) (*BranchDTO, error)
	ListBranches(ctx context.Context) ([]BranchDTO, error)

	CreateSupplier(ctx context.Context, input CreatePartnerInput) (*PartnerDTO, error)
	GetSupplier(ctx context.Context, tx *gorm.DB, id int64) (*PartnerDTO, error)
	ListSuppliers(ctx context.Context, onlyActive bool) ([]PartnerDTO, error)

	CreateCustomer(ctx context.Context, input CreatePartnerInput) (*PartnerDTO, error)
	GetCustomer(ctx context.Context, tx *gorm.DB, id int64) (*PartnerDTO, error)
	ListCustomers(ctx context.Context, onlyActive bool) ([]PartnerDTO, error)

	// EnsureBranchSupplier returns the supplier that stands in for branchID on transfer purchases.
	EnsureBranchSupplier(ctx context.Context, tx *gorm.DB, branchID int64) (*PartnerDTO, error)
	// EnsureBranchCustomer returns the customer that stands in for branchID on transfer sales.
	EnsureBranchCustomer(ctx context.Context, tx *gorm.DB, branchID int64) (*PartnerDTO, error)
}

type service struct {
	repo Repository
}

// NewService wires the partners service.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("partners repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) CreateBranch(ctx context.Context, input CreateBranchInput) (*BranchDTO, error) {
	input.Name = strings.TrimSpace(input.Name)
	if err := validators.Struct(input); err != nil {
		return nil, err
	}
	taken, err := s.repo.BranchNameTaken(ctx, input.Name)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check branch name")
	}
	if taken {
		return nil, duplicateName("branch", input.Name)
	}
	branch := &models.Branch{Name: input.Name, Address: trimmed(input.Address), Active: true}
	if err := s.repo.CreateBranch(ctx, branch); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, duplicateName("branch", input.Name)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create branch")
	}
	dto := branchToDTO(*branch)
	return &dto, nil
}

func (s *service) GetBranch(ctx context.Context, tx *gorm.DB, id int64) (*BranchDTO, error) {
	branch, err := s.repo.WithTx(tx).FindBranch(ctx, id)
	if err != nil {
		return nil, lookupError(err, "branch", id)
	}
	dto := branchToDTO(*branch)
	return &dto, nil
}

func (s *service) ListBranches(ctx context.Context) ([]BranchDTO, error) {
	rows, err := s.repo.ListBranches(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list branches")
	}
	out := make([]BranchDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, branchToDTO(row))
	}
	return out, nil
}

func (s *service) CreateSupplier(ctx context.Context, input CreatePartnerInput) (*PartnerDTO, error) {
	input, err := s.checkPartner(ctx, &models.Supplier{}, "supplier", input)
	if err != nil {
		return nil, err
	}
	supplier := &models.Supplier{
		Name:   input.Name,
		Plate:  input.Plate,
		Phone:  input.Phone,
		Kind:   enums.PartnerKindExternal,
		Active: true,
	}
	if err := s.repo.CreateSupplier(ctx, supplier); err != nil {
		return nil, createPartnerError(err, "supplier", input)
	}
	dto := supplierToDTO(*supplier)
	return &dto, nil
}

func (s *service) GetSupplier(ctx context.Context, tx *gorm.DB, id int64) (*PartnerDTO, error) {
	supplier, err := s.repo.WithTx(tx).FindSupplier(ctx, id)
	if err != nil {
		return nil, lookupError(err, "supplier", id)
	}
	dto := supplierToDTO(*supplier)
	return &dto, nil
}

func (s *service) ListSuppliers(ctx context.Context, onlyActive bool) ([]PartnerDTO, error) {
	rows, err := s.repo.ListSuppliers(ctx, onlyActive)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list suppliers")
	}
	out := make([]PartnerDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, supplierToDTO(row))
	}
	return out, nil
}

func (s *service) CreateCustomer(ctx context.Context, input CreatePartnerInput) (*PartnerDTO, error) {
	input, err := s.checkPartner(ctx, &models.Customer{}, "customer", input)
	if err != nil {
		return nil, err
	}
	customer := &models.Customer{
		Name:   input.Name,
		Plate:  input.Plate,
		Phone:  input.Phone,
		Kind:   enums.PartnerKindExternal,
		Active: true,
	}
	if err := s.repo.CreateCustomer(ctx, customer); err != nil {
		return nil, createPartnerError(err, "customer", input)
	}
	dto := customerToDTO(*customer)
	return &dto, nil
}

func (s *service) GetCustomer(ctx context.Context, tx *gorm.DB, id int64) (*PartnerDTO, error) {
	customer, err := s.repo.WithTx(tx).FindCustomer(ctx, id)
	if err != nil {
		return nil, lookupError(err, "customer", id)
	}
	dto := customerToDTO(*customer)
	return &dto, nil
}

func (s *service) ListCustomers(ctx context.Context, onlyActive bool) ([]PartnerDTO, error) {
	rows, err := s.repo.ListCustomers(ctx, onlyActive)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list customers")
	}
	out := make([]PartnerDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, customerToDTO(row))
	}
	return out, nil
}

func (s *service) EnsureBranchSupplier(ctx context.Context, tx *gorm.DB, branchID int64) (*PartnerDTO, error) {
	repo := s.repo.WithTx(tx)
	existing, err := repo.FindBranchSupplier(ctx, branchID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup branch supplier")
	}
	if existing != nil {
		dto := supplierToDTO(*existing)
		return &dto, nil
	}
	name, err := s.proxyName(ctx, repo, &models.Supplier{}, branchID)
	if err != nil {
		return nil, err
	}
	supplier := &models.Supplier{Name: name, Kind: enums.PartnerKindBranch, BranchID: &branchID, Active: true}
	if err := repo.CreateSupplier(ctx, supplier); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create branch supplier")
	}
	dto := supplierToDTO(*supplier)
	return &dto, nil
}

func (s *service) EnsureBranchCustomer(ctx context.Context, tx *gorm.DB, branchID int64) (*PartnerDTO, error) {
	repo := s.repo.WithTx(tx)
	existing, err := repo.FindBranchCustomer(ctx, branchID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup branch customer")
	}
	if existing != nil {
		dto := customerToDTO(*existing)
		return &dto, nil
	}
	name, err := s.proxyName(ctx, repo, &models.Customer{}, branchID)
	if err != nil {
		return nil, err
	}
	customer := &models.Customer{Name: name, Kind: enums.PartnerKindBranch, BranchID: &branchID, Active: true}
	if err := repo.CreateCustomer(ctx, customer); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create branch customer")
	}
	dto := customerToDTO(*customer)
	return &dto, nil
}

// proxyName derives "Sucursal <branch>" and falls back to a suffixed name if an
// external partner already uses it.
func (s *service) proxyName(ctx context.Context, repo Repository, model any, branchID int64) (string, error) {
	branch, err := repo.FindBranch(ctx, branchID)
	if err != nil {
		return "", lookupError(err, "branch", branchID)
	}
	name := branchProxyPrefix + branch.Name
	taken, err := repo.NameTaken(ctx, model, name)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check proxy name")
	}
	if taken {
		name = fmt.Sprintf("%s (#%d)", name, branchID)
	}
	return name, nil
}

func (s *service) checkPartner(ctx context.Context, model any, kind string, input CreatePartnerInput) (CreatePartnerInput, error) {
	input.Name = strings.TrimSpace(input.Name)
	input.Plate = trimmed(input.Plate)
	if input.Plate != nil {
		upper := strings.ToUpper(*input.Plate)
		input.Plate = &upper
	}
	input.Phone = trimmed(input.Phone)
	if err := validators.Struct(input); err != nil {
		return input, err
	}

	taken, err := s.repo.NameTaken(ctx, model, input.Name)
	if err != nil {
		return input, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check "+kind+" name")
	}
	if taken {
		return input, duplicateName(kind, input.Name)
	}
	if input.Plate != nil {
		taken, err := s.repo.PlateTaken(ctx, model, *input.Plate)
		if err != nil {
			return input, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check "+kind+" plate")
		}
		if taken {
			return input, duplicateKey(kind, *input.Plate)
		}
	}
	return input, nil
}

func createPartnerError(err error, kind string, input CreatePartnerInput) error {
	if db.IsUniqueViolation(err, "ux_"+kind+"s_plate") && input.Plate != nil {
		return duplicateKey(kind, *input.Plate)
	}
	if db.IsUniqueViolation(err, "") {
		return duplicateName(kind, input.Name)
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create "+kind)
}

func lookupError(err error, kind string, id int64) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, kind+" not found").
			WithDetails(map[string]any{kind + "_id": id})
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load "+kind)
}

func duplicateName(kind, name string) error {
	return pkgerrors.New(pkgerrors.CodeDuplicateName, kind+" name already exists").
		WithDetails(map[string]any{"name": name})
}

func duplicateKey(kind, plate string) error {
	return pkgerrors.New(pkgerrors.CodeDuplicateKey, kind+" plate already registered").
		WithDetails(map[string]any{"plate": plate})
}

func trimmed(value *string) *string {
	if value == nil {
		return nil
	}
	v := strings.TrimSpace(*value)
	if v == "" {
		return nil
	}
	return &v
}
