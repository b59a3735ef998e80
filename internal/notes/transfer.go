package notes

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/blankhall98/Metaleria-API/internal/inventory"
	"github.com/blankhall98/Metaleria-API/internal/valuation"
	"github.com/blankhall98/Metaleria-API/pkg/db/models"
	"github.com/blankhall98/Metaleria-API/pkg/enums"
	pkgerrors "github.com/blankhall98/Metaleria-API/pkg/errors"
	"github.com/blankhall98/Metaleria-API/pkg/outbox"
	"github.com/blankhall98/Metaleria-API/pkg/outbox/payloads"
	"github.com/blankhall98/Metaleria-API/pkg/validators"
)

// CreateTransferPair moves stock between two branches as an approved sale at
// the origin and an approved purchase at the destination, priced by the caller.
func (s *service) CreateTransferPair(ctx context.Context, input TransferInput) (result *TransferResult, err error) {
	defer s.observe(opTransfer, time.Now(), &err)
	if err := validators.Struct(input); err != nil {
		return nil, err
	}
	if input.OriginBranchID == input.TargetBranchID {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "origin and target branch must differ").
			WithDetails(map[string]any{"branch_id": input.OriginBranchID})
	}
	reqs := make([]inventory.Requirement, 0, len(input.Lines))
	for _, line := range input.Lines {
		if !line.Quantity.IsPositive() {
			return nil, pkgerrors.New(pkgerrors.CodeInvalidAmount, "transfer quantity must be greater than zero").
				WithDetails(map[string]any{"material_id": line.MaterialID, "quantity": line.Quantity.String()})
		}
		if line.UnitPrice.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeInvalidAmount, "transfer unit price cannot be negative").
				WithDetails(map[string]any{"material_id": line.MaterialID, "unit_price": line.UnitPrice.String()})
		}
		reqs = append(reqs, inventory.Requirement{MaterialID: line.MaterialID, Quantity: line.Quantity})
	}

	var sale, purchase *models.Note
	group := uuid.New()
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if _, err := s.partners.GetBranch(ctx, tx, input.OriginBranchID); err != nil {
			return err
		}
		if _, err := s.partners.GetBranch(ctx, tx, input.TargetBranchID); err != nil {
			return err
		}
		ids := make([]int64, 0, len(input.Lines))
		for _, line := range input.Lines {
			ids = append(ids, line.MaterialID)
		}
		if err := s.materials.EnsureExist(ctx, tx, ids); err != nil {
			return err
		}
		if err := s.inventory.CheckAvailability(ctx, tx, input.OriginBranchID, reqs); err != nil {
			return err
		}
		customer, err := s.partners.EnsureBranchCustomer(ctx, tx, input.TargetBranchID)
		if err != nil {
			return err
		}
		supplier, err := s.partners.EnsureBranchSupplier(ctx, tx, input.OriginBranchID)
		if err != nil {
			return err
		}

		sale, err = s.createTransferNote(ctx, tx, input, group, input.OriginBranchID, enums.OperationSale)
		if err != nil {
			return err
		}
		sale.CustomerID = &customer.ID
		purchase, err = s.createTransferNote(ctx, tx, input, group, input.TargetBranchID, enums.OperationPurchase)
		if err != nil {
			return err
		}
		purchase.SupplierID = &supplier.ID

		sale.AdminComment = transferComment(input.Comment, "transfer to branch %d, purchase note %d", input.TargetBranchID, purchase.ID)
		purchase.AdminComment = transferComment(input.Comment, "transfer from branch %d, sale note %d", input.OriginBranchID, sale.ID)

		for _, note := range []*models.Note{sale, purchase} {
			if err := s.saveHeader(ctx, tx, note); err != nil {
				return err
			}
			if err := s.applyStock(ctx, tx, note, input.AdminID); err != nil {
				return err
			}
			if err := s.ensureBaseMovement(ctx, tx, note, input.AdminID); err != nil {
				return err
			}
			if err := s.emit(ctx, tx, note, enums.EventNoteApproved, input.AdminID, payloads.NoteApprovedEvent{
				NoteID:        note.ID,
				BranchID:      note.BranchID,
				OperationType: note.OperationType,
				Folio:         folioString(note),
				Total:         note.TotalAmount,
				AmountPaid:    note.AmountPaid,
				ApprovedAt:    *note.ApprovedAt,
			}); err != nil {
				return err
			}
		}

		origin := input.OriginBranchID
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventTransferCreated,
			AggregateType: enums.AggregateTransfer,
			AggregateID:   group.String(),
			Actor:         &outbox.ActorRef{UserID: input.AdminID, BranchID: &origin},
			Data: payloads.TransferCreatedEvent{
				TransferGroupID: group,
				SaleNoteID:      sale.ID,
				PurchaseNoteID:  purchase.ID,
				OriginBranchID:  input.OriginBranchID,
				TargetBranchID:  input.TargetBranchID,
			},
			OccurredAt: s.now(),
		})
	})
	if err != nil {
		return nil, err
	}
	if s.logg != nil {
		logCtx := s.logg.WithField(ctx, "transfer_group_id", group.String())
		s.logDone(logCtx, opTransfer, sale, input.AdminID)
	}
	return &TransferResult{
		TransferGroupID: group,
		Sale:            toNoteDTO(*sale),
		Purchase:        toNoteDTO(*purchase),
	}, nil
}

// createTransferNote persists one already approved side of a transfer.
func (s *service) createTransferNote(ctx context.Context, tx *gorm.DB, input TransferInput, group uuid.UUID, branchID int64, op enums.OperationType) (*models.Note, error) {
	repo := s.repo.WithTx(tx)
	seq, err := repo.NextFolio(ctx, branchID, op)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "assign folio")
	}
	now := s.now()
	admin := input.AdminID
	groupID := group
	note := &models.Note{
		BranchID:        branchID,
		OperationType:   op,
		FolioSeq:        &seq,
		WorkerID:        admin,
		AdminID:         &admin,
		State:           enums.NoteStateApproved,
		AmountPaid:      decimal.Zero,
		TransferGroupID: &groupID,
		ApprovedAt:      &now,
		Lines:           make([]models.WeightLine, 0, len(input.Lines)),
	}
	for i, in := range input.Lines {
		line := models.WeightLine{
			MaterialID: in.MaterialID,
			GrossKg:    in.Quantity,
			DiscountKg: decimal.Zero,
			Position:   i + 1,
		}
		valuation.RecalculateLine(&line)
		valuation.SetFixedPrice(&line, in.UnitPrice)
		note.Lines = append(note.Lines, line)
	}
	valuation.ApplyTotals(note)
	if err := repo.Create(ctx, note); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create transfer note")
	}
	return note, nil
}

func transferComment(extra *string, format string, args ...any) *string {
	comment := fmt.Sprintf(format, args...)
	if e := trimmed(extra); e != nil {
		comment = strings.Join([]string{comment, *e}, ": ")
	}
	return &comment
}
