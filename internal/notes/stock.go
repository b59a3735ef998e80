package notes

import (
	"context"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/blankhall98/Metaleria-API/internal/accounting"
	"github.com/blankhall98/Metaleria-API/internal/inventory"
	"github.com/blankhall98/Metaleria-API/pkg/enums"
	pkgerrors "github.com/blankhall98/Metaleria-API/pkg/errors"
	"github.com/blankhall98/Metaleria-API/pkg/outbox"
	"github.com/blankhall98/Metaleria-API/pkg/outbox/payloads"
	"github.com/blankhall98/Metaleria-API/pkg/validators"
)

// AdjustStockManually corrects a balance by a delta or to a target and leaves
// a zero-amount accounting entry as audit trail.
func (s *service) AdjustStockManually(ctx context.Context, input AdjustStockInput) (result *StockAdjustment, err error) {
	defer s.observe(opAdjustStock, time.Now(), &err)
	if err := validators.Struct(input); err != nil {
		return nil, err
	}
	if (input.Delta == nil) == (input.TargetBalance == nil) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "exactly one of delta or target balance is required")
	}
	if input.TargetBalance != nil && input.TargetBalance.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidAmount, "target balance cannot be negative").
			WithDetails(map[string]any{"target_balance": input.TargetBalance.String()})
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if _, err := s.partners.GetBranch(ctx, tx, input.BranchID); err != nil {
			return err
		}
		if err := s.materials.EnsureExist(ctx, tx, []int64{input.MaterialID}); err != nil {
			return err
		}
		account, err := s.inventory.GetOrCreateAccount(ctx, tx, input.BranchID, input.MaterialID)
		if err != nil {
			return err
		}
		previous := account.CurrentStock
		var delta decimal.Decimal
		if input.TargetBalance != nil {
			delta = input.TargetBalance.Sub(previous)
		} else {
			delta = *input.Delta
		}

		comment, actor := input.Comment, input.ActorID
		movement, err := s.inventory.ApplyMovement(ctx, tx, inventory.MovementInput{
			BranchID:   input.BranchID,
			MaterialID: input.MaterialID,
			Delta:      delta,
			Kind:       enums.InventoryMovementAdjustment,
			Comment:    &comment,
			ActorID:    &actor,
		})
		if err != nil {
			return err
		}
		branch := input.BranchID
		if _, err := s.accounting.RecordMovement(ctx, tx, accounting.RecordInput{
			Kind:     enums.AccountingMovementAdjustment,
			Amount:   decimal.Zero,
			BranchID: &branch,
			ActorID:  &actor,
			Comment:  &comment,
		}); err != nil {
			return err
		}

		result = &StockAdjustment{
			AccountID:       account.ID,
			MovementID:      movement.ID,
			PreviousBalance: previous,
			Balance:         movement.ResultingBalance,
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventStockAdjusted,
			AggregateType: enums.AggregateInventoryAccount,
			AggregateID:   strconv.FormatInt(account.ID, 10),
			Actor:         &outbox.ActorRef{UserID: actor, BranchID: &branch},
			Data: payloads.StockAdjustedEvent{
				BranchID:        input.BranchID,
				MaterialID:      input.MaterialID,
				PreviousBalance: previous,
				Balance:         movement.ResultingBalance,
				Comment:         comment,
			},
			OccurredAt: s.now(),
		})
	})
	if err != nil {
		return nil, err
	}
	if s.logg != nil {
		logCtx := s.logg.WithBranchID(ctx, input.BranchID)
		logCtx = s.logg.WithActorID(logCtx, input.ActorID)
		logCtx = s.logg.WithFields(logCtx, map[string]any{
			"material_id": input.MaterialID,
			"previous":    result.PreviousBalance.String(),
			"balance":     result.Balance.String(),
		})
		s.logg.Info(logCtx, "stock adjusted manually")
	}
	return result, nil
}
