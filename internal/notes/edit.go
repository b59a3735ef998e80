package notes

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/blankhall98/Metaleria-API/internal/accounting"
	"github.com/blankhall98/Metaleria-API/internal/inventory"
	"github.com/blankhall98/Metaleria-API/internal/valuation"
	"github.com/blankhall98/Metaleria-API/pkg/db/models"
	"github.com/blankhall98/Metaleria-API/pkg/enums"
	pkgerrors "github.com/blankhall98/Metaleria-API/pkg/errors"
	"github.com/blankhall98/Metaleria-API/pkg/outbox/payloads"
	"github.com/blankhall98/Metaleria-API/pkg/validators"
)

// EditApproved corrects classes, weights or sub-weighings of a note. On an
// approved note the stock and money differences are booked as strict adjustments.
func (s *service) EditApproved(ctx context.Context, input EditInput) (dto *NoteDTO, err error) {
	defer s.observe(opEditApproved, time.Now(), &err)
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
		if err := requireState(note, note.State, enums.NoteStateDraft, enums.NoteStateInReview, enums.NoteStateApproved); err != nil {
			return err
		}

		oldNet := make(map[int64]decimal.Decimal, len(note.Lines))
		for _, line := range note.Lines {
			oldNet[line.ID] = line.NetKg
		}
		oldTotal := note.TotalAmount

		changed, err := applyClasses(note, input.CustomerClasses)
		if err != nil {
			return err
		}
		if err := s.applySubWeighings(ctx, tx, note, input.SubWeighings, changed); err != nil {
			return err
		}
		if err := applyWeights(note, input.Weights, changed); err != nil {
			return err
		}

		resolve := s.resolver(ctx, tx, note.OperationType)
		for i := range note.Lines {
			line := &note.Lines[i]
			if !changed[line.ID] {
				continue
			}
			valuation.RecalculateLine(line)
			if line.UnitPrice.Valid && line.PriceVersionID == nil {
				valuation.SetFixedPrice(line, line.UnitPrice.Decimal)
				continue
			}
			version, err := resolve(line.MaterialID, valuation.ClassOf(*line))
			if err != nil {
				return err
			}
			valuation.SetPrice(line, version)
		}
		valuation.ApplyTotals(note)

		if note.TotalAmount.LessThan(note.AmountPaid) {
			return pkgerrors.New(pkgerrors.CodePaidExceedsTotal, "edit would leave the total below the amount already paid").
				WithDetails(map[string]any{
					"note_id":     note.ID,
					"total":       note.TotalAmount.String(),
					"amount_paid": note.AmountPaid.String(),
				})
		}

		admin := input.AdminID
		if note.State == enums.NoteStateApproved {
			if err := s.bookEdit(ctx, tx, note, oldNet, oldTotal, admin); err != nil {
				return err
			}
		}

		if comment := trimmed(input.Comment); comment != nil {
			note.AdminComment = comment
		}
		if err := s.saveLines(ctx, tx, note.Lines); err != nil {
			return err
		}
		if err := s.saveHeader(ctx, tx, note); err != nil {
			return err
		}
		return s.emit(ctx, tx, note, enums.EventNoteEdited, admin, payloads.NoteEditedEvent{
			NoteID:        note.ID,
			BranchID:      note.BranchID,
			Folio:         folioString(note),
			PreviousTotal: oldTotal,
			Total:         note.TotalAmount,
			AmountPaid:    note.AmountPaid,
		})
	})
	if err != nil {
		return nil, err
	}
	s.logDone(ctx, opEditApproved, note, input.AdminID)
	out := toNoteDTO(*note)
	return &out, nil
}

// bookEdit applies the per-line stock deltas and the total delta of an approved note.
func (s *service) bookEdit(ctx context.Context, tx *gorm.DB, note *models.Note, oldNet map[int64]decimal.Decimal, oldTotal decimal.Decimal, actorID int64) error {
	reason := fmt.Sprintf("edit of note %d", note.ID)
	direction := stockDirection(note.OperationType)
	for i := range note.Lines {
		line := note.Lines[i]
		delta := line.NetKg.Sub(oldNet[line.ID])
		if delta.IsZero() {
			continue
		}
		noteID, lineID, actor := note.ID, line.ID, actorID
		if _, err := s.inventory.ApplyMovement(ctx, tx, inventory.MovementInput{
			BranchID:   note.BranchID,
			MaterialID: line.MaterialID,
			Delta:      delta.Mul(direction),
			Kind:       enums.InventoryMovementAdjustment,
			NoteID:     &noteID,
			LineID:     &lineID,
			Comment:    &reason,
			ActorID:    &actor,
			Strict:     true,
		}); err != nil {
			return err
		}
	}

	diff := note.TotalAmount.Sub(oldTotal)
	if diff.IsZero() {
		return nil
	}
	branch, actor := note.BranchID, actorID
	_, err := s.accounting.RecordMovement(ctx, tx, accounting.RecordInput{
		Kind:     enums.AccountingMovementAdjustment,
		Amount:   diff,
		NoteID:   &note.ID,
		BranchID: &branch,
		ActorID:  &actor,
		Comment:  &reason,
	})
	return err
}

// applySubWeighings replaces the readings of the given lines. An empty list
// removes them and the line keeps its last derived weights as direct values.
func (s *service) applySubWeighings(ctx context.Context, tx *gorm.DB, note *models.Note, overrides map[int64][]SubWeighingInput, changed map[int64]bool) error {
	if len(overrides) == 0 {
		return nil
	}
	index := lineIndex(note)
	repo := s.repo.WithTx(tx)
	for lineID, inputs := range overrides {
		i, ok := index[lineID]
		if !ok {
			return unknownLine(note, lineID)
		}
		subs, err := buildSubWeighings(inputs)
		if err != nil {
			return err
		}
		if err := repo.ReplaceSubWeighings(ctx, lineID, subs); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "replace sub-weighings")
		}
		note.Lines[i].SubWeighings = subs
		changed[lineID] = true
	}
	return nil
}

// applyWeights overrides direct weights. Lines that keep sub-weighings ignore them.
func applyWeights(note *models.Note, overrides map[int64]WeightOverride, changed map[int64]bool) error {
	if len(overrides) == 0 {
		return nil
	}
	index := lineIndex(note)
	for lineID, override := range overrides {
		i, ok := index[lineID]
		if !ok {
			return unknownLine(note, lineID)
		}
		line := &note.Lines[i]
		if len(line.SubWeighings) > 0 {
			continue
		}
		gross, discount := line.GrossKg, line.DiscountKg
		if override.GrossKg != nil {
			gross = *override.GrossKg
		}
		if override.DiscountKg != nil {
			discount = *override.DiscountKg
		}
		if err := valuation.ValidateWeighing(gross, discount); err != nil {
			return err
		}
		if gross.Equal(line.GrossKg) && discount.Equal(line.DiscountKg) {
			continue
		}
		line.GrossKg = gross
		line.DiscountKg = discount
		changed[lineID] = true
	}
	return nil
}
