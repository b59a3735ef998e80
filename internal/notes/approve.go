package notes

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/blankhall98/Metaleria-API/internal/accounting"
	"github.com/blankhall98/Metaleria-API/internal/inventory"
	"github.com/blankhall98/Metaleria-API/internal/payments"
	"github.com/blankhall98/Metaleria-API/pkg/db/models"
	"github.com/blankhall98/Metaleria-API/pkg/enums"
	pkgerrors "github.com/blankhall98/Metaleria-API/pkg/errors"
	"github.com/blankhall98/Metaleria-API/pkg/outbox/payloads"
	"github.com/blankhall98/Metaleria-API/pkg/validators"
)

func (s *service) Approve(ctx context.Context, input ApproveInput) (dto *NoteDTO, err error) {
	defer s.observe(opApprove, time.Now(), &err)
	if err := validators.Struct(input); err != nil {
		return nil, err
	}
	if input.InitialPayment != nil && input.InitialPayment.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidAmount, "initial payment cannot be negative").
			WithDetails(map[string]any{"initial_payment": input.InitialPayment.String()})
	}
	accountRef, err := payments.NormalizeMethod(input.Method, input.AccountRef)
	if err != nil {
		return nil, err
	}

	var note *models.Note
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		note, err = s.load(ctx, tx, input.NoteID)
		if err != nil {
			return err
		}
		if err := requireState(note, enums.NoteStateApproved, enums.NoteStateDraft, enums.NoteStateInReview); err != nil {
			return err
		}
		if _, err := applyClasses(note, input.CustomerClasses); err != nil {
			return err
		}
		if err := s.reprice(ctx, tx, note); err != nil {
			return err
		}
		if note.OperationType == enums.OperationSale {
			if err := s.inventory.CheckAvailability(ctx, tx, note.BranchID, requirements(note.Lines)); err != nil {
				return err
			}
		}

		if err := transition(note, enums.NoteStateApproved); err != nil {
			return err
		}
		now := s.now()
		admin := input.AdminID
		note.AdminID = &admin
		note.ApprovedAt = &now
		note.PaymentMethod = input.Method
		note.AccountRef = accountRef
		note.DueDate = input.DueDate
		if comment := trimmed(input.AdminComment); comment != nil {
			note.AdminComment = comment
		}
		if err := s.saveHeader(ctx, tx, note); err != nil {
			return err
		}

		if err := s.applyStock(ctx, tx, note, admin); err != nil {
			return err
		}
		if err := s.ensureBaseMovement(ctx, tx, note, admin); err != nil {
			return err
		}

		var auto *models.Payment
		if amount, ok := autoPayment(note, input); ok {
			auto, err = s.payments.AddPayment(ctx, tx, note, payments.AddPaymentInput{
				Amount:     amount,
				ActorID:    admin,
				Method:     input.Method,
				AccountRef: accountRef,
				SkipLedger: true,
			})
			if err != nil {
				return err
			}
		}

		if err := s.emit(ctx, tx, note, enums.EventNoteApproved, admin, payloads.NoteApprovedEvent{
			NoteID:        note.ID,
			BranchID:      note.BranchID,
			OperationType: note.OperationType,
			Folio:         folioString(note),
			Total:         note.TotalAmount,
			AmountPaid:    note.AmountPaid,
			ApprovedAt:    now,
		}); err != nil {
			return err
		}
		if auto != nil {
			return s.emitPayment(ctx, tx, note, auto, admin)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logDone(ctx, opApprove, note, input.AdminID)
	out := toNoteDTO(*note)
	return &out, nil
}

func (s *service) CancelApproved(ctx context.Context, input TransitionInput) (dto *NoteDTO, err error) {
	defer s.observe(opCancelApproved, time.Now(), &err)
	if err := validators.Struct(input); err != nil {
		return nil, err
	}
	var note *models.Note
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		note, err = s.load(ctx, tx, input.NoteID)
		if err != nil {
			return err
		}
		if err := requireState(note, enums.NoteStateCancelled, enums.NoteStateApproved); err != nil {
			return err
		}
		admin := input.ActorID
		if err := s.ensureBaseMovement(ctx, tx, note, admin); err != nil {
			return err
		}

		reason := fmt.Sprintf("reversal of note %d", note.ID)
		direction := stockDirection(note.OperationType)
		for i := range note.Lines {
			line := note.Lines[i]
			if line.NetKg.IsZero() {
				continue
			}
			noteID, lineID := note.ID, line.ID
			if _, err := s.inventory.ApplyMovement(ctx, tx, inventory.MovementInput{
				BranchID:   note.BranchID,
				MaterialID: line.MaterialID,
				Delta:      line.NetKg.Mul(direction).Neg(),
				Kind:       enums.InventoryMovementAdjustment,
				NoteID:     &noteID,
				LineID:     &lineID,
				Comment:    &reason,
				ActorID:    &admin,
				Strict:     true,
			}); err != nil {
				return err
			}
		}

		branch := note.BranchID
		if _, err := s.accounting.RecordMovement(ctx, tx, accounting.RecordInput{
			Kind:     enums.AccountingMovementReversal,
			Amount:   note.TotalAmount.Neg(),
			NoteID:   &note.ID,
			BranchID: &branch,
			ActorID:  &admin,
			Comment:  &reason,
		}); err != nil {
			return err
		}
		paid, err := s.payments.ListByNote(ctx, tx, note.ID)
		if err != nil {
			return err
		}
		for _, p := range paid {
			paymentID := p.ID
			if _, err := s.accounting.RecordMovement(ctx, tx, accounting.RecordInput{
				Kind:       enums.AccountingMovementPaymentReversal,
				Amount:     p.Amount.Neg(),
				NoteID:     &note.ID,
				PaymentID:  &paymentID,
				BranchID:   &branch,
				ActorID:    &admin,
				Method:     p.Method,
				AccountRef: p.AccountRef,
				Comment:    &reason,
			}); err != nil {
				return err
			}
		}

		if err := transition(note, enums.NoteStateCancelled); err != nil {
			return err
		}
		now := s.now()
		note.AdminID = &admin
		note.CancelledAt = &now
		note.InvoiceRef = nil
		note.InvoicedAt = nil
		if comment := trimmed(input.Comment); comment != nil {
			note.AdminComment = comment
		}
		if err := s.saveHeader(ctx, tx, note); err != nil {
			return err
		}
		return s.emit(ctx, tx, note, enums.EventNoteCancelled, admin, payloads.NoteCancelledEvent{
			NoteID:        note.ID,
			BranchID:      note.BranchID,
			OperationType: note.OperationType,
			Folio:         folioString(note),
			PreviousState: enums.NoteStateApproved,
			Reversed:      true,
			Reason:        stringOrEmpty(note.AdminComment),
			CancelledAt:   now,
		})
	})
	if err != nil {
		return nil, err
	}
	s.logDone(ctx, opCancelApproved, note, input.ActorID)
	out := toNoteDTO(*note)
	return &out, nil
}

// applyStock books the ordinary purchase or sale movement of every line. Sale
// movements are strict: availability was checked under lock, so a shortfall
// here is an oversell and fails the operation instead of clamping.
func (s *service) applyStock(ctx context.Context, tx *gorm.DB, note *models.Note, actorID int64) error {
	direction := stockDirection(note.OperationType)
	kind := inventoryKind(note.OperationType)
	strict := note.OperationType == enums.OperationSale
	for i := range note.Lines {
		line := note.Lines[i]
		if line.NetKg.IsZero() {
			continue
		}
		noteID, lineID, actor := note.ID, line.ID, actorID
		if _, err := s.inventory.ApplyMovement(ctx, tx, inventory.MovementInput{
			BranchID:   note.BranchID,
			MaterialID: line.MaterialID,
			Delta:      line.NetKg.Mul(direction),
			Kind:       kind,
			NoteID:     &noteID,
			LineID:     &lineID,
			ActorID:    &actor,
			Strict:     strict,
		}); err != nil {
			return err
		}
	}
	return nil
}

// ensureBaseMovement records the purchase or sale movement of the note unless one exists.
func (s *service) ensureBaseMovement(ctx context.Context, tx *gorm.DB, note *models.Note, actorID int64) error {
	kind := accounting.BaseKind(note.OperationType)
	exists, err := s.accounting.HasBaseMovement(ctx, tx, note.ID, kind)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	branch, actor := note.BranchID, actorID
	_, err = s.accounting.RecordMovement(ctx, tx, accounting.RecordInput{
		Kind:       kind,
		Amount:     note.TotalAmount,
		NoteID:     &note.ID,
		BranchID:   &branch,
		ActorID:    &actor,
		Method:     note.PaymentMethod,
		AccountRef: note.AccountRef,
	})
	return err
}

func (s *service) emitPayment(ctx context.Context, tx *gorm.DB, note *models.Note, payment *models.Payment, actorID int64) error {
	event := payloads.PaymentRecordedEvent{
		NoteID:     note.ID,
		PaymentID:  payment.ID,
		Amount:     payment.Amount,
		AccountRef: stringOrEmpty(payment.AccountRef),
		AmountPaid: note.AmountPaid,
		Balance:    payments.Outstanding(*note),
	}
	if payment.Method != nil {
		event.Method = *payment.Method
	}
	return s.emit(ctx, tx, note, enums.EventPaymentRecorded, actorID, event)
}

// autoPayment decides the payment registered by approval itself: the full
// total for cash, otherwise a positive initial payment.
func autoPayment(note *models.Note, input ApproveInput) (decimal.Decimal, bool) {
	if input.Method != nil && *input.Method == enums.PaymentMethodCash {
		return note.TotalAmount, note.TotalAmount.IsPositive()
	}
	if input.InitialPayment != nil && input.InitialPayment.IsPositive() {
		return *input.InitialPayment, true
	}
	return decimal.Zero, false
}

func requirements(lines []models.WeightLine) []inventory.Requirement {
	out := make([]inventory.Requirement, 0, len(lines))
	for _, line := range lines {
		out = append(out, inventory.Requirement{MaterialID: line.MaterialID, Quantity: line.NetKg})
	}
	return out
}
