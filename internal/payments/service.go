package payments

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/blankhall98/Metaleria-API/internal/accounting"
	"github.com/blankhall98/Metaleria-API/pkg/db"
	"github.com/blankhall98/Metaleria-API/pkg/db/models"
	"github.com/blankhall98/Metaleria-API/pkg/enums"
	pkgerrors "github.com/blankhall98/Metaleria-API/pkg/errors"
)

type ledgerRecorder interface {
	RecordMovement(ctx context.Context, tx *gorm.DB, input accounting.RecordInput) (*models.AccountingMovement, error)
}

// AddPaymentInput is one partial settlement request.
type AddPaymentInput struct {
	Amount         decimal.Decimal
	ActorID        int64
	Method         *enums.PaymentMethod
	AccountRef     *string
	Comment        *string
	IdempotencyKey *string
	// SkipLedger suppresses the matching accounting movement.
	SkipLedger bool
}

// PaymentDTO is the read model of a payment.
type PaymentDTO struct {
	ID         int64                `json:"id"`
	NoteID     int64                `json:"note_id"`
	Amount     decimal.Decimal      `json:"amount"`
	Method     *enums.PaymentMethod `json:"method,omitempty"`
	AccountRef *string              `json:"account_ref,omitempty"`
	ActorID    int64                `json:"actor_id"`
	Comment    *string              `json:"comment,omitempty"`
	CreatedAt  time.Time            `json:"created_at"`
}

// Service is the per-note payment register.
type Service interface {
	// AddPayment registers a payment on an approved note and bumps note.AmountPaid in place.
	AddPayment(ctx context.Context, tx *gorm.DB, note *models.Note, input AddPaymentInput) (*models.Payment, error)
	ListByNote(ctx context.Context, tx *gorm.DB, noteID int64) ([]PaymentDTO, error)
	FindByIdempotencyKey(ctx context.Context, tx *gorm.DB, key string) (*models.Payment, error)
}

type service struct {
	repo   Repository
	ledger ledgerRecorder
}

// NewService wires the payment register.
func NewService(repo Repository, ledger ledgerRecorder) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("payments repository required")
	}
	if ledger == nil {
		return nil, fmt.Errorf("accounting ledger required")
	}
	return &service{repo: repo, ledger: ledger}, nil
}

// Outstanding is the unpaid remainder of a note, never negative.
func Outstanding(note models.Note) decimal.Decimal {
	rest := note.TotalAmount.Sub(note.AmountPaid)
	if rest.IsNegative() {
		return decimal.Zero
	}
	return rest
}

// NormalizeMethod enforces the account requirement of a payment method and
// drops the account reference for cash.
func NormalizeMethod(method *enums.PaymentMethod, accountRef *string) (*string, error) {
	if method == nil {
		return trimmed(accountRef), nil
	}
	if !method.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid payment method %q", *method))
	}
	ref := trimmed(accountRef)
	if method.RequiresAccount() && ref == nil {
		return nil, pkgerrors.New(pkgerrors.CodeMissingAccount, "financial account required for payment method").
			WithDetails(map[string]any{"method": string(*method)})
	}
	if *method == enums.PaymentMethodCash {
		return nil, nil
	}
	return ref, nil
}

func (s *service) AddPayment(ctx context.Context, tx *gorm.DB, note *models.Note, input AddPaymentInput) (*models.Payment, error) {
	if note == nil {
		return nil, pkgerrors.New(pkgerrors.CodeTicketNotFound, "note not found")
	}
	if note.State != enums.NoteStateApproved {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidTransition, "payments require an approved note").
			WithDetails(map[string]any{"note_id": note.ID, "state": string(note.State)})
	}
	amount := input.Amount.Round(2)
	if !amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidAmount, "payment amount must be greater than zero").
			WithDetails(map[string]any{"amount": amount.String()})
	}
	outstanding := Outstanding(*note)
	if amount.GreaterThan(outstanding) {
		return nil, pkgerrors.New(pkgerrors.CodePaymentExceedsBalance, "payment exceeds outstanding balance").
			WithDetails(map[string]any{"amount": amount.String(), "outstanding": outstanding.String()})
	}
	accountRef, err := NormalizeMethod(input.Method, input.AccountRef)
	if err != nil {
		return nil, err
	}

	repo := s.repo.WithTx(tx)
	payment := &models.Payment{
		NoteID:         note.ID,
		Amount:         amount,
		Method:         input.Method,
		AccountRef:     accountRef,
		ActorID:        input.ActorID,
		Comment:        input.Comment,
		IdempotencyKey: trimmed(input.IdempotencyKey),
	}
	if err := repo.Create(ctx, payment); err != nil {
		if payment.IdempotencyKey != nil && db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeIdempotency, err, "idempotency key already used").
				WithDetails(map[string]any{"idempotency_key": *payment.IdempotencyKey})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create payment")
	}
	paid := note.AmountPaid.Add(amount)
	if err := repo.UpdateAmountPaid(ctx, note.ID, paid); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update amount paid")
	}
	note.AmountPaid = paid

	if !input.SkipLedger {
		actor := input.ActorID
		branch := note.BranchID
		if _, err := s.ledger.RecordMovement(ctx, tx, accounting.RecordInput{
			Kind:       enums.AccountingMovementPayment,
			Amount:     amount,
			NoteID:     &note.ID,
			PaymentID:  &payment.ID,
			BranchID:   &branch,
			ActorID:    &actor,
			Method:     input.Method,
			AccountRef: accountRef,
			Comment:    input.Comment,
		}); err != nil {
			return nil, err
		}
	}
	return payment, nil
}

func (s *service) ListByNote(ctx context.Context, tx *gorm.DB, noteID int64) ([]PaymentDTO, error) {
	rows, err := s.repo.WithTx(tx).ListByNote(ctx, noteID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list payments")
	}
	out := make([]PaymentDTO, 0, len(rows))
	for _, p := range rows {
		out = append(out, ToDTO(p))
	}
	return out, nil
}

func (s *service) FindByIdempotencyKey(ctx context.Context, tx *gorm.DB, key string) (*models.Payment, error) {
	payment, err := s.repo.WithTx(tx).FindByIdempotencyKey(ctx, key)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup payment idempotency key")
	}
	return payment, nil
}

// ToDTO maps a stored payment to its read model.
func ToDTO(p models.Payment) PaymentDTO {
	return PaymentDTO{
		ID:         p.ID,
		NoteID:     p.NoteID,
		Amount:     p.Amount,
		Method:     p.Method,
		AccountRef: p.AccountRef,
		ActorID:    p.ActorID,
		Comment:    p.Comment,
		CreatedAt:  p.CreatedAt,
	}
}

func trimmed(v *string) *string {
	if v == nil {
		return nil
	}
	s := strings.TrimSpace(*v)
	if s == "" {
		return nil
	}
	return &s
}
