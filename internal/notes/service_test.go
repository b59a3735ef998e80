package notes

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/blankhall98/Metaleria-API/internal/inventory"
	"github.com/blankhall98/Metaleria-API/pkg/db/models"
	"github.com/blankhall98/Metaleria-API/pkg/enums"
	pkgerrors "github.com/blankhall98/Metaleria-API/pkg/errors"
	"github.com/blankhall98/Metaleria-API/pkg/metrics"
)

func TestPurchaseLifecycleRoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// draft without an active price
	note := f.draft(t, f.branchA.ID, enums.OperationPurchase, f.line(f.copper.ID, "100", "5"))
	require.Len(t, note.Lines, 1)
	assert.Equal(t, enums.NoteStateDraft, note.State)
	assertDecimal(t, "95", note.Lines[0].NetKg)
	assert.Nil(t, note.Lines[0].Subtotal)
	assertDecimal(t, "0", note.TotalAmount)
	require.NotNil(t, note.Folio)
	assert.Equal(t, "01_C_1", *note.Folio)

	// submit picks up the new price
	f.setPrice(t, f.copper.ID, enums.OperationPurchase, "10.00")
	note, err := f.svc.SubmitForReview(ctx, TransitionInput{NoteID: note.ID, ActorID: 21})
	require.NoError(t, err)
	assert.Equal(t, enums.NoteStateInReview, note.State)
	require.NotNil(t, note.Lines[0].UnitPrice)
	assertDecimal(t, "10", *note.Lines[0].UnitPrice)
	assertDecimal(t, "950", *note.Lines[0].Subtotal)
	assertDecimal(t, "950", note.TotalAmount)
	require.NotNil(t, note.Lines[0].CustomerClass)
	assert.Equal(t, enums.CustomerClassRegular, *note.Lines[0].CustomerClass)

	var snapshots int64
	require.NoError(t, f.conn.Model(&models.NoteSnapshot{}).Where("note_id = ?", note.ID).Count(&snapshots).Error)
	assert.Equal(t, int64(1), snapshots)

	// cash approval books stock, the base movement and the full payment
	before := f.balance(t, f.branchA.ID, f.copper.ID)
	note, err = f.svc.Approve(ctx, ApproveInput{NoteID: note.ID, AdminID: 2, Method: methodPtr(enums.PaymentMethodCash), AccountRef: strPtr("ignored")})
	require.NoError(t, err)
	assert.Equal(t, enums.NoteStateApproved, note.State)
	assert.Nil(t, note.AccountRef)
	assertDecimal(t, "950", note.AmountPaid)
	assertDecimal(t, "0", note.Balance)
	assertDecimal(t, "95", f.balance(t, f.branchA.ID, f.copper.ID).Sub(before))

	rows := f.movements(t, note.ID)
	require.Len(t, byKind(rows, enums.AccountingMovementPurchase), 1)
	assertDecimal(t, "950", byKind(rows, enums.AccountingMovementPurchase)[0].Amount)
	assert.Empty(t, byKind(rows, enums.AccountingMovementPayment))

	loaded, err := f.svc.GetNote(ctx, note.ID)
	require.NoError(t, err)
	require.Len(t, loaded.Payments, 1)
	assertDecimal(t, "950", loaded.Payments[0].Amount)
	assert.Equal(t, int64(1), f.countEvents(t, enums.EventNoteApproved))
	assert.Equal(t, int64(1), f.countEvents(t, enums.EventPaymentRecorded))

	// cancellation restores stock and nets the base movement to zero
	note, err = f.svc.CancelApproved(ctx, TransitionInput{NoteID: note.ID, ActorID: 2, Comment: strPtr("pesaje duplicado")})
	require.NoError(t, err)
	assert.Equal(t, enums.NoteStateCancelled, note.State)
	assert.Nil(t, note.InvoiceRef)
	assertDecimal(t, before.String(), f.balance(t, f.branchA.ID, f.copper.ID))

	rows = f.movements(t, note.ID)
	reversals := byKind(rows, enums.AccountingMovementReversal)
	require.Len(t, reversals, 1)
	assertDecimal(t, "-950", reversals[0].Amount)
	paymentReversals := byKind(rows, enums.AccountingMovementPaymentReversal)
	require.Len(t, paymentReversals, 1)
	assertDecimal(t, "-950", paymentReversals[0].Amount)

	base := byKind(rows, enums.AccountingMovementPurchase)[0]
	assertDecimal(t, "0", base.Signed.Add(reversals[0].Signed))
	assert.Equal(t, int64(1), f.countEvents(t, enums.EventNoteCancelled))
}

func TestApproveSaleRejectsInsufficientStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.stock(t, f.branchA.ID, f.copper.ID, "95")
	f.setPrice(t, f.copper.ID, enums.OperationSale, "14")

	note := f.draft(t, f.branchA.ID, enums.OperationSale, f.line(f.copper.ID, "200", "0"))
	_, err := f.svc.Approve(ctx, ApproveInput{NoteID: note.ID, AdminID: 2})
	typed := requireCode(t, err, pkgerrors.CodeInsufficientStock)

	details, ok := typed.Details().(map[string]any)
	require.True(t, ok)
	assert.Equal(t, f.copper.ID, details["material_id"])
	assertDecimal(t, "95", dec(details["available"].(string)))
	assertDecimal(t, "200", dec(details["required"].(string)))

	assert.Empty(t, f.movements(t, note.ID))
	assertDecimal(t, "95", f.balance(t, f.branchA.ID, f.copper.ID))
	reloaded, err := f.svc.GetNote(ctx, note.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.NoteStateDraft, reloaded.State)

	last := f.observer.calls[len(f.observer.calls)-1]
	assert.Equal(t, observation{operation: opApprove, outcome: metrics.OutcomeRejected}, last)
}

// racingInventory books a competing sale against the branch as soon as the
// availability check passes, inside the same transaction.
type racingInventory struct {
	inventoryLedger
	competing decimal.Decimal
}

func (r racingInventory) CheckAvailability(ctx context.Context, tx *gorm.DB, branchID int64, requirements []inventory.Requirement) error {
	if err := r.inventoryLedger.CheckAvailability(ctx, tx, branchID, requirements); err != nil {
		return err
	}
	for _, req := range requirements {
		if _, err := r.inventoryLedger.ApplyMovement(ctx, tx, inventory.MovementInput{
			BranchID:   branchID,
			MaterialID: req.MaterialID,
			Delta:      r.competing.Neg(),
			Kind:       enums.InventoryMovementSale,
		}); err != nil {
			return err
		}
	}
	return nil
}

func TestApproveSaleDoesNotOversellAfterConcurrentSale(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.stock(t, f.branchA.ID, f.copper.ID, "95")
	f.setPrice(t, f.copper.ID, enums.OperationSale, "14")

	params := f.params
	params.Inventory = racingInventory{inventoryLedger: f.inventory, competing: dec("60")}
	svc, err := NewService(params)
	require.NoError(t, err)

	note := f.draft(t, f.branchA.ID, enums.OperationSale, f.line(f.copper.ID, "60", "0"))
	_, err = svc.Approve(ctx, ApproveInput{NoteID: note.ID, AdminID: 2})
	typed := requireCode(t, err, pkgerrors.CodeInsufficientStock)

	details, ok := typed.Details().(map[string]any)
	require.True(t, ok)
	assertDecimal(t, "35", dec(details["available"].(string)))
	assertDecimal(t, "60", dec(details["required"].(string)))

	assertDecimal(t, "95", f.balance(t, f.branchA.ID, f.copper.ID))
	assert.Empty(t, f.movements(t, note.ID))
	reloaded, err := f.svc.GetNote(ctx, note.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.NoteStateDraft, reloaded.State)
}

func TestApproveSaleTwoLinesSameMaterialSumsRequirement(t *testing.T) {
	f := newFixture(t)
	f.stock(t, f.branchA.ID, f.copper.ID, "100")

	note := f.draft(t, f.branchA.ID, enums.OperationSale,
		f.line(f.copper.ID, "60", "0"),
		f.line(f.copper.ID, "60", "0"),
	)
	_, err := f.svc.Approve(context.Background(), ApproveInput{NoteID: note.ID, AdminID: 2})
	requireCode(t, err, pkgerrors.CodeInsufficientStock)
}

func TestApproveWithInitialPaymentAndTransferAccount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.setPrice(t, f.aluminum.ID, enums.OperationPurchase, "20")
	note := f.draft(t, f.branchA.ID, enums.OperationPurchase, f.line(f.aluminum.ID, "50", "0"))

	_, err := f.svc.Approve(ctx, ApproveInput{NoteID: note.ID, AdminID: 2, Method: methodPtr(enums.PaymentMethodTransfer)})
	requireCode(t, err, pkgerrors.CodeMissingAccount)

	approved, err := f.svc.Approve(ctx, ApproveInput{
		NoteID:         note.ID,
		AdminID:        2,
		Method:         methodPtr(enums.PaymentMethodTransfer),
		AccountRef:     strPtr("BBVA-0042"),
		InitialPayment: decPtr("400"),
	})
	require.NoError(t, err)
	assertDecimal(t, "1000", approved.TotalAmount)
	assertDecimal(t, "400", approved.AmountPaid)
	assertDecimal(t, "600", approved.Balance)
	require.NotNil(t, approved.AccountRef)
	assert.Equal(t, "BBVA-0042", *approved.AccountRef)
}

func TestStateMachineRejectsIllegalMoves(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	note := f.draft(t, f.branchA.ID, enums.OperationPurchase, f.line(f.copper.ID, "10", "0"))

	_, err := f.svc.ReturnToDraft(ctx, TransitionInput{NoteID: note.ID, ActorID: 2})
	requireCode(t, err, pkgerrors.CodeInvalidTransition)

	_, err = f.svc.CancelApproved(ctx, TransitionInput{NoteID: note.ID, ActorID: 2})
	requireCode(t, err, pkgerrors.CodeInvalidTransition)

	_, err = f.svc.SubmitForReview(ctx, TransitionInput{NoteID: note.ID, ActorID: 21})
	require.NoError(t, err)
	_, err = f.svc.SubmitForReview(ctx, TransitionInput{NoteID: note.ID, ActorID: 21})
	requireCode(t, err, pkgerrors.CodeInvalidTransition)

	back, err := f.svc.ReturnToDraft(ctx, TransitionInput{NoteID: note.ID, ActorID: 2, Comment: strPtr("falta foto")})
	require.NoError(t, err)
	assert.Equal(t, enums.NoteStateDraft, back.State)

	_, err = f.svc.Approve(ctx, ApproveInput{NoteID: note.ID, AdminID: 2})
	require.NoError(t, err)
	_, err = f.svc.CancelNonApproved(ctx, TransitionInput{NoteID: note.ID, ActorID: 2})
	requireCode(t, err, pkgerrors.CodeInvalidTransition)
	_, err = f.svc.Approve(ctx, ApproveInput{NoteID: note.ID, AdminID: 2})
	requireCode(t, err, pkgerrors.CodeInvalidTransition)
	assert.Len(t, byKind(f.movements(t, note.ID), enums.AccountingMovementPurchase), 1)
}

func TestCancelNonApprovedHasNoLedgerEffects(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	note := f.draft(t, f.branchA.ID, enums.OperationPurchase, f.line(f.copper.ID, "10", "1"))

	cancelled, err := f.svc.CancelNonApproved(ctx, TransitionInput{NoteID: note.ID, ActorID: 2, Comment: strPtr("cliente se retiro")})
	require.NoError(t, err)
	assert.Equal(t, enums.NoteStateCancelled, cancelled.State)
	require.NotNil(t, cancelled.CancelledAt)
	assert.Empty(t, f.movements(t, note.ID))
	assertDecimal(t, "0", f.balance(t, f.branchA.ID, f.copper.ID))

	_, err = f.svc.SubmitForReview(ctx, TransitionInput{NoteID: note.ID, ActorID: 21})
	requireCode(t, err, pkgerrors.CodeInvalidTransition)
}

func TestCancelApprovedRefusesNegativeStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	note := f.draft(t, f.branchA.ID, enums.OperationPurchase, f.line(f.copper.ID, "100", "5"))
	_, err := f.svc.Approve(ctx, ApproveInput{NoteID: note.ID, AdminID: 2})
	require.NoError(t, err)

	_, err = f.svc.AdjustStockManually(ctx, AdjustStockInput{
		BranchID:      f.branchA.ID,
		MaterialID:    f.copper.ID,
		TargetBalance: decPtr("40"),
		Comment:       "merma",
		ActorID:       1,
	})
	require.NoError(t, err)

	_, err = f.svc.CancelApproved(ctx, TransitionInput{NoteID: note.ID, ActorID: 2})
	requireCode(t, err, pkgerrors.CodeInsufficientStock)

	reloaded, err := f.svc.GetNote(ctx, note.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.NoteStateApproved, reloaded.State)
	assertDecimal(t, "40", f.balance(t, f.branchA.ID, f.copper.ID))
	assert.Empty(t, byKind(f.movements(t, note.ID), enums.AccountingMovementReversal))
}

func TestCancelApprovedBackfillsMissingBaseMovement(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.setPrice(t, f.copper.ID, enums.OperationPurchase, "10")
	note := f.draft(t, f.branchA.ID, enums.OperationPurchase, f.line(f.copper.ID, "10", "0"))
	_, err := f.svc.Approve(ctx, ApproveInput{NoteID: note.ID, AdminID: 2})
	require.NoError(t, err)
	require.NoError(t, f.conn.Where("note_id = ?", note.ID).Delete(&models.AccountingMovement{}).Error)

	_, err = f.svc.CancelApproved(ctx, TransitionInput{NoteID: note.ID, ActorID: 2})
	require.NoError(t, err)

	rows := f.movements(t, note.ID)
	require.Len(t, byKind(rows, enums.AccountingMovementPurchase), 1)
	require.Len(t, byKind(rows, enums.AccountingMovementReversal), 1)
	net := byKind(rows, enums.AccountingMovementPurchase)[0].Signed.
		Add(byKind(rows, enums.AccountingMovementReversal)[0].Signed)
	assertDecimal(t, "0", net)
}

func TestCreateDraftValidatesInput(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateDraft(ctx, CreateDraftInput{
		BranchID: f.branchA.ID, WorkerID: 21, OperationType: enums.OperationPurchase,
		Lines: []LineInput{f.line(9999, "10", "0")},
	})
	requireCode(t, err, pkgerrors.CodeMaterialNotFound)

	_, err = f.svc.CreateDraft(ctx, CreateDraftInput{
		BranchID: f.branchA.ID, WorkerID: 21, OperationType: enums.OperationPurchase,
		Lines: []LineInput{f.line(f.copper.ID, "10", "12")},
	})
	requireCode(t, err, pkgerrors.CodeInvalidAmount)

	_, err = f.svc.CreateDraft(ctx, CreateDraftInput{
		BranchID: f.branchA.ID, WorkerID: 21, OperationType: enums.OperationPurchase,
	})
	requireCode(t, err, pkgerrors.CodeValidation)

	customer := int64(1)
	_, err = f.svc.CreateDraft(ctx, CreateDraftInput{
		BranchID: f.branchA.ID, WorkerID: 21, OperationType: enums.OperationPurchase,
		Lines:      []LineInput{f.line(f.copper.ID, "10", "0")},
		CustomerID: &customer,
	})
	requireCode(t, err, pkgerrors.CodeValidation)
}

func TestCreateDraftDerivesWeightsFromSubWeighings(t *testing.T) {
	f := newFixture(t)
	note, err := f.svc.CreateDraft(context.Background(), CreateDraftInput{
		BranchID:      f.branchA.ID,
		WorkerID:      21,
		OperationType: enums.OperationPurchase,
		Lines: []LineInput{{
			MaterialID: f.copper.ID,
			GrossKg:    dec("999"),
			SubWeighings: []SubWeighingInput{
				{GrossKg: dec("40.5"), DiscountKg: dec("0.5"), PhotoRef: strPtr("scale/1.jpg")},
				{GrossKg: dec("60"), DiscountKg: dec("2")},
			},
		}},
	})
	require.NoError(t, err)
	line := note.Lines[0]
	assertDecimal(t, "100.5", line.GrossKg)
	assertDecimal(t, "2.5", line.DiscountKg)
	assertDecimal(t, "98", line.NetKg)
	assert.Len(t, line.SubWeighings, 2)
	assertDecimal(t, "98", note.TotalNetKg)
}

func TestFolioSequencesArePerBranchAndOperation(t *testing.T) {
	f := newFixture(t)
	first := f.draft(t, f.branchA.ID, enums.OperationPurchase, f.line(f.copper.ID, "1", "0"))
	second := f.draft(t, f.branchA.ID, enums.OperationPurchase, f.line(f.copper.ID, "1", "0"))
	sale := f.draft(t, f.branchA.ID, enums.OperationSale, f.line(f.copper.ID, "1", "0"))
	other := f.draft(t, f.branchB.ID, enums.OperationPurchase, f.line(f.copper.ID, "1", "0"))

	assert.Equal(t, "01_C_1", *first.Folio)
	assert.Equal(t, "01_C_2", *second.Folio)
	assert.Equal(t, "01_V_1", *sale.Folio)
	assert.Equal(t, "02_C_1", *other.Folio)
}

func TestOpenNoteMaintenance(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.setPrice(t, f.copper.ID, enums.OperationSale, "15")
	_, err := f.prices.CreatePriceVersion(ctx, pricingInput(f.copper.ID, enums.OperationSale, enums.CustomerClassWholesale, "13"))
	require.NoError(t, err)

	note := f.draft(t, f.branchA.ID, enums.OperationSale, f.line(f.copper.ID, "10", "0"))
	assertDecimal(t, "150", note.TotalAmount)

	repriced, err := f.svc.SetCustomerClasses(ctx, SetCustomerClassesInput{
		NoteID:  note.ID,
		ActorID: 2,
		Classes: map[int64]enums.CustomerClass{note.Lines[0].ID: enums.CustomerClassWholesale},
	})
	require.NoError(t, err)
	assertDecimal(t, "130", repriced.TotalAmount)

	customer := models.Customer{Name: "Fundidora del Valle", Kind: enums.PartnerKindExternal, Active: true}
	require.NoError(t, f.conn.Create(&customer).Error)
	attached, err := f.svc.AttachCounterparty(ctx, AttachCounterpartyInput{NoteID: note.ID, PartnerID: customer.ID, ActorID: 2})
	require.NoError(t, err)
	require.NotNil(t, attached.CustomerID)
	assert.Equal(t, customer.ID, *attached.CustomerID)

	evidence, err := f.svc.AddEvidence(ctx, AddEvidenceInput{NoteID: note.ID, Reference: " photos/ticket-1.jpg ", ActorID: 21})
	require.NoError(t, err)
	assert.Equal(t, "photos/ticket-1.jpg", evidence.Reference)

	_, err = f.svc.SetInvoiceReference(ctx, SetInvoiceInput{NoteID: note.ID, Reference: "F-100", ActorID: 2})
	requireCode(t, err, pkgerrors.CodeInvalidTransition)

	require.NoError(t, f.svc.DeleteNote(ctx, TransitionInput{NoteID: note.ID, ActorID: 2}))
	_, err = f.svc.GetNote(ctx, note.ID)
	requireCode(t, err, pkgerrors.CodeTicketNotFound)

	var lines int64
	require.NoError(t, f.conn.Model(&models.WeightLine{}).Where("note_id = ?", note.ID).Count(&lines).Error)
	assert.Zero(t, lines)
}

func TestDeleteAndInvoiceRulesOnApprovedNote(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	note := f.draft(t, f.branchA.ID, enums.OperationPurchase, f.line(f.copper.ID, "10", "0"))
	_, err := f.svc.Approve(ctx, ApproveInput{NoteID: note.ID, AdminID: 2})
	require.NoError(t, err)

	err = f.svc.DeleteNote(ctx, TransitionInput{NoteID: note.ID, ActorID: 2})
	requireCode(t, err, pkgerrors.CodeInvalidTransition)

	invoiced, err := f.svc.SetInvoiceReference(ctx, SetInvoiceInput{NoteID: note.ID, Reference: "F-100", ActorID: 2})
	require.NoError(t, err)
	require.NotNil(t, invoiced.InvoiceRef)
	assert.Equal(t, "F-100", *invoiced.InvoiceRef)

	cancelled, err := f.svc.CancelApproved(ctx, TransitionInput{NoteID: note.ID, ActorID: 2})
	require.NoError(t, err)
	assert.Nil(t, cancelled.InvoiceRef)
	assert.Nil(t, cancelled.InvoicedAt)
}

func TestListNotesPaginatesNewestFirst(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	var ids []int64
	for i := 0; i < 3; i++ {
		ids = append(ids, f.draft(t, f.branchA.ID, enums.OperationPurchase, f.line(f.copper.ID, "1", "0")).ID)
	}
	f.draft(t, f.branchB.ID, enums.OperationPurchase, f.line(f.copper.ID, "1", "0"))

	branch := f.branchA.ID
	page, err := f.svc.ListNotes(ctx, ListNotesInput{BranchID: &branch, Params: paginationParams(2, "")})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.Equal(t, ids[2], page.Items[0].ID)
	assert.Equal(t, ids[1], page.Items[1].ID)
	require.NotEmpty(t, page.NextCursor)

	page, err = f.svc.ListNotes(ctx, ListNotesInput{BranchID: &branch, Params: paginationParams(2, page.NextCursor)})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, ids[0], page.Items[0].ID)
	assert.Empty(t, page.NextCursor)
}

func TestGetNoteNotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.GetNote(context.Background(), 404)
	typed := requireCode(t, err, pkgerrors.CodeTicketNotFound)
	assert.Equal(t, map[string]any{"note_id": int64(404)}, typed.Details())
}
