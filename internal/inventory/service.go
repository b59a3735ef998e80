package inventory

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/blankhall98/Metaleria-API/pkg/db/models"
	pkgerrors "github.com/blankhall98/Metaleria-API/pkg/errors"
)

type stockRecorder interface {
	AddStock(direction string, kg float64)
}

// Service is the per-branch stock ledger. Every mutating call expects the
// caller's transaction so movements commit with the note change that caused them.
type Service interface {
	// GetOrCreateAccount returns the locked account, creating it with a zero balance first when missing.
	GetOrCreateAccount(ctx context.Context, tx *gorm.DB, branchID, materialID int64) (*models.InventoryAccount, error)
	ApplyMovement(ctx context.Context, tx *gorm.DB, input MovementInput) (*models.InventoryMovement, error)
	CheckAvailability(ctx context.Context, tx *gorm.DB, branchID int64, requirements []Requirement) error
	Balance(ctx context.Context, tx *gorm.DB, branchID, materialID int64) (decimal.Decimal, error)
	ListAccounts(ctx context.Context, branchID int64) ([]AccountDTO, error)
	ListMovements(ctx context.Context, branchID, materialID int64, limit int) ([]MovementDTO, error)
	ListMovementsByNote(ctx context.Context, tx *gorm.DB, noteID int64) ([]MovementDTO, error)
}

type service struct {
	repo    Repository
	metrics stockRecorder
}

// NewService wires the inventory ledger. metrics may be nil.
func NewService(repo Repository, metrics stockRecorder) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("inventory repository required")
	}
	return &service{repo: repo, metrics: metrics}, nil
}

func (s *service) GetOrCreateAccount(ctx context.Context, tx *gorm.DB, branchID, materialID int64) (*models.InventoryAccount, error) {
	repo := s.repo.WithTx(tx)
	if err := repo.EnsureAccount(ctx, branchID, materialID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create inventory account")
	}
	account, err := repo.LockAccount(ctx, branchID, materialID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock inventory account")
	}
	return account, nil
}

func (s *service) ApplyMovement(ctx context.Context, tx *gorm.DB, input MovementInput) (*models.InventoryMovement, error) {
	if !input.Kind.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid inventory movement kind %q", input.Kind))
	}
	account, err := s.GetOrCreateAccount(ctx, tx, input.BranchID, input.MaterialID)
	if err != nil {
		return nil, err
	}

	delta := input.Delta.Round(3)
	next := account.CurrentStock.Add(delta)
	if next.IsNegative() {
		if input.Strict {
			return nil, InsufficientStock(input.MaterialID, account.CurrentStock, delta.Neg())
		}
		next = decimal.Zero
	}

	repo := s.repo.WithTx(tx)
	account.CurrentStock = next
	if err := repo.SaveBalance(ctx, account); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update inventory balance")
	}
	movement := &models.InventoryMovement{
		AccountID:        account.ID,
		NoteID:           input.NoteID,
		LineID:           input.LineID,
		Kind:             input.Kind,
		Quantity:         delta,
		ResultingBalance: next,
		Comment:          input.Comment,
		ActorID:          input.ActorID,
	}
	if err := repo.AppendMovement(ctx, movement); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append inventory movement")
	}
	s.record(delta)
	return movement, nil
}

// CheckAvailability verifies the branch holds enough stock for every
// requirement. Requirements for the same material are summed. Each account is
// locked for the rest of tx, in material id order, so the balance cannot
// change between this check and the movements that follow it.
func (s *service) CheckAvailability(ctx context.Context, tx *gorm.DB, branchID int64, requirements []Requirement) error {
	needed := map[int64]decimal.Decimal{}
	for _, req := range requirements {
		needed[req.MaterialID] = needed[req.MaterialID].Add(req.Quantity)
	}
	repo := s.repo.WithTx(tx)
	for _, materialID := range slices.Sorted(maps.Keys(needed)) {
		required := needed[materialID]
		if !required.IsPositive() {
			continue
		}
		available := decimal.Zero
		account, err := repo.LockAccount(ctx, branchID, materialID)
		switch {
		case err == nil:
			available = account.CurrentStock
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock inventory account")
		}
		if available.LessThan(required) {
			return InsufficientStock(materialID, available, required)
		}
	}
	return nil
}

// Balance returns the current stock, zero when no account exists yet.
func (s *service) Balance(ctx context.Context, tx *gorm.DB, branchID, materialID int64) (decimal.Decimal, error) {
	account, err := s.repo.WithTx(tx).FindAccount(ctx, branchID, materialID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return decimal.Zero, nil
		}
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load inventory account")
	}
	return account.CurrentStock, nil
}

func (s *service) ListAccounts(ctx context.Context, branchID int64) ([]AccountDTO, error) {
	accounts, err := s.repo.ListAccounts(ctx, branchID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list inventory accounts")
	}
	out := make([]AccountDTO, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, accountToDTO(a))
	}
	return out, nil
}

func (s *service) ListMovements(ctx context.Context, branchID, materialID int64, limit int) ([]MovementDTO, error) {
	account, err := s.repo.FindAccount(ctx, branchID, materialID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return []MovementDTO{}, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load inventory account")
	}
	movements, err := s.repo.ListMovements(ctx, account.ID, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list inventory movements")
	}
	return toMovementDTOs(movements), nil
}

func (s *service) ListMovementsByNote(ctx context.Context, tx *gorm.DB, noteID int64) ([]MovementDTO, error) {
	movements, err := s.repo.WithTx(tx).ListMovementsByNote(ctx, noteID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list note inventory movements")
	}
	return toMovementDTOs(movements), nil
}

func (s *service) record(delta decimal.Decimal) {
	if s.metrics == nil || delta.IsZero() {
		return
	}
	direction := "in"
	if delta.IsNegative() {
		direction = "out"
	}
	s.metrics.AddStock(direction, delta.Abs().InexactFloat64())
}

func toMovementDTOs(movements []models.InventoryMovement) []MovementDTO {
	out := make([]MovementDTO, 0, len(movements))
	for _, m := range movements {
		out = append(out, movementToDTO(m))
	}
	return out
}

// InsufficientStock builds the coded error carrying the material and both quantities.
func InsufficientStock(materialID int64, available, required decimal.Decimal) error {
	return pkgerrors.New(pkgerrors.CodeInsufficientStock, "insufficient stock").
		WithDetails(map[string]any{
			"material_id": materialID,
			"available":   available.String(),
			"required":    required.String(),
		})
}
