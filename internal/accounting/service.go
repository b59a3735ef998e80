package accounting

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/blankhall98/Metaleria-API/pkg/db/models"
	"github.com/blankhall98/Metaleria-API/pkg/enums"
	pkgerrors "github.com/blankhall98/Metaleria-API/pkg/errors"
)

// RecordInput captures one immutable accounting row.
type RecordInput struct {
	Kind       enums.AccountingMovementKind
	Amount     decimal.Decimal
	NoteID     *int64
	PaymentID  *int64
	BranchID   *int64
	ActorID    *int64
	Method     *enums.PaymentMethod
	AccountRef *string
	Comment    *string
}

// MovementDTO is a stored movement plus its derived cash-flow value.
type MovementDTO struct {
	ID            int64                        `json:"id"`
	Kind          enums.AccountingMovementKind `json:"kind"`
	Amount        decimal.Decimal              `json:"amount"`
	Signed        decimal.Decimal              `json:"signed_amount"`
	NoteID        *int64                       `json:"note_id,omitempty"`
	PaymentID     *int64                       `json:"payment_id,omitempty"`
	BranchID      *int64                       `json:"branch_id,omitempty"`
	ActorID       *int64                       `json:"actor_id,omitempty"`
	PaymentMethod *enums.PaymentMethod         `json:"payment_method,omitempty"`
	AccountRef    *string                      `json:"account_ref,omitempty"`
	Comment       *string                      `json:"comment,omitempty"`
	CreatedAt     time.Time                    `json:"created_at"`
}

// Summary aggregates movements over a period.
type Summary struct {
	ByKind  map[enums.AccountingMovementKind]decimal.Decimal `json:"by_kind"`
	Inflow  decimal.Decimal                                  `json:"inflow"`
	Outflow decimal.Decimal                                  `json:"outflow"`
	Net     decimal.Decimal                                  `json:"net"`
	Count   int                                              `json:"count"`
}

// Service is the append-only financial ledger.
type Service interface {
	RecordMovement(ctx context.Context, tx *gorm.DB, input RecordInput) (*models.AccountingMovement, error)
	HasBaseMovement(ctx context.Context, tx *gorm.DB, noteID int64, kind enums.AccountingMovementKind) (bool, error)
	List(ctx context.Context, tx *gorm.DB, filter Filter) ([]MovementDTO, error)
	Summary(ctx context.Context, filter Filter) (*Summary, error)
}

type service struct {
	repo Repository
}

// NewService wires an accounting service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("accounting repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) RecordMovement(ctx context.Context, tx *gorm.DB, input RecordInput) (*models.AccountingMovement, error) {
	if !input.Kind.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid accounting movement kind %q", input.Kind))
	}
	movement := &models.AccountingMovement{
		Kind:          input.Kind,
		Amount:        input.Amount.Round(2),
		NoteID:        input.NoteID,
		PaymentID:     input.PaymentID,
		BranchID:      input.BranchID,
		ActorID:       input.ActorID,
		PaymentMethod: input.Method,
		AccountRef:    input.AccountRef,
		Comment:       input.Comment,
	}
	if err := s.repo.WithTx(tx).Create(ctx, movement); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record accounting movement")
	}
	return movement, nil
}

func (s *service) HasBaseMovement(ctx context.Context, tx *gorm.DB, noteID int64, kind enums.AccountingMovementKind) (bool, error) {
	if kind != enums.AccountingMovementPurchase && kind != enums.AccountingMovementSale {
		return false, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("%q is not a base movement kind", kind))
	}
	exists, err := s.repo.WithTx(tx).ExistsForNote(ctx, noteID, kind)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check base accounting movement")
	}
	return exists, nil
}

func (s *service) List(ctx context.Context, tx *gorm.DB, filter Filter) ([]MovementDTO, error) {
	repo := s.repo.WithTx(tx)
	movements, err := repo.List(ctx, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list accounting movements")
	}
	ops, err := repo.OperationTypes(ctx, noteIDs(movements))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load note operation types")
	}
	out := make([]MovementDTO, 0, len(movements))
	for _, m := range movements {
		out = append(out, toDTO(m, opFor(m, ops)))
	}
	return out, nil
}

func (s *service) Summary(ctx context.Context, filter Filter) (*Summary, error) {
	filter.Limit = 0
	movements, err := s.List(ctx, nil, filter)
	if err != nil {
		return nil, err
	}
	summary := &Summary{
		ByKind:  map[enums.AccountingMovementKind]decimal.Decimal{},
		Inflow:  decimal.Zero,
		Outflow: decimal.Zero,
		Net:     decimal.Zero,
	}
	for _, m := range movements {
		summary.Count++
		summary.ByKind[m.Kind] = summary.ByKind[m.Kind].Add(m.Amount)
		if m.Signed.IsPositive() {
			summary.Inflow = summary.Inflow.Add(m.Signed)
		} else {
			summary.Outflow = summary.Outflow.Add(m.Signed.Neg())
		}
		summary.Net = summary.Net.Add(m.Signed)
	}
	return summary, nil
}

func noteIDs(movements []models.AccountingMovement) []int64 {
	seen := map[int64]struct{}{}
	var ids []int64
	for _, m := range movements {
		if m.NoteID == nil {
			continue
		}
		if _, ok := seen[*m.NoteID]; ok {
			continue
		}
		seen[*m.NoteID] = struct{}{}
		ids = append(ids, *m.NoteID)
	}
	return ids
}

func opFor(m models.AccountingMovement, ops map[int64]enums.OperationType) enums.OperationType {
	if m.NoteID == nil {
		return ""
	}
	return ops[*m.NoteID]
}

func toDTO(m models.AccountingMovement, op enums.OperationType) MovementDTO {
	return MovementDTO{
		ID:            m.ID,
		Kind:          m.Kind,
		Amount:        m.Amount,
		Signed:        SignedAmount(m.Kind, op, m.Amount),
		NoteID:        m.NoteID,
		PaymentID:     m.PaymentID,
		BranchID:      m.BranchID,
		ActorID:       m.ActorID,
		PaymentMethod: m.PaymentMethod,
		AccountRef:    m.AccountRef,
		Comment:       m.Comment,
		CreatedAt:     m.CreatedAt,
	}
}
