package payments

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/blankhall98/Metaleria-API/internal/accounting"
	"github.com/blankhall98/Metaleria-API/pkg/db/dbtest"
	"github.com/blankhall98/Metaleria-API/pkg/db/models"
	"github.com/blankhall98/Metaleria-API/pkg/enums"
	pkgerrors "github.com/blankhall98/Metaleria-API/pkg/errors"
)

func newTestService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()
	conn := dbtest.Open(t)
	ledger, err := accounting.NewService(accounting.NewRepository(conn))
	require.NoError(t, err)
	svc, err := NewService(NewRepository(conn), ledger)
	require.NoError(t, err)
	return svc, conn
}

func approvedNote(t *testing.T, conn *gorm.DB, total string) *models.Note {
	t.Helper()
	note := &models.Note{
		BranchID:      1,
		OperationType: enums.OperationPurchase,
		WorkerID:      1,
		State:         enums.NoteStateApproved,
		TotalAmount:   decimal.RequireFromString(total),
		AmountPaid:    decimal.Zero,
	}
	dbtest.Seed(t, conn, note)
	return note
}

func method(m enums.PaymentMethod) *enums.PaymentMethod { return &m }

func str(s string) *string { return &s }

func TestAddPaymentUpdatesNoteAndLedger(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	note := approvedNote(t, conn, "1000")

	payment, err := svc.AddPayment(ctx, conn, note, AddPaymentInput{
		Amount: decimal.NewFromInt(400), ActorID: 9, Method: method(enums.PaymentMethodTransfer), AccountRef: str(" BBVA-01 "),
	})
	require.NoError(t, err)
	require.NotNil(t, payment.AccountRef)
	assert.Equal(t, "BBVA-01", *payment.AccountRef)
	assert.True(t, note.AmountPaid.Equal(decimal.NewFromInt(400)))

	var stored models.Note
	require.NoError(t, conn.First(&stored, note.ID).Error)
	assert.True(t, stored.AmountPaid.Equal(decimal.NewFromInt(400)))

	var movements []models.AccountingMovement
	require.NoError(t, conn.Where("note_id = ?", note.ID).Find(&movements).Error)
	require.Len(t, movements, 1)
	assert.Equal(t, enums.AccountingMovementPayment, movements[0].Kind)
	require.NotNil(t, movements[0].PaymentID)
	assert.Equal(t, payment.ID, *movements[0].PaymentID)

	_, err = svc.AddPayment(ctx, conn, note, AddPaymentInput{Amount: decimal.NewFromInt(600), ActorID: 9, SkipLedger: true})
	require.NoError(t, err)
	assert.True(t, Outstanding(*note).IsZero())

	require.NoError(t, conn.Model(&models.AccountingMovement{}).Where("note_id = ?", note.ID).Find(&movements).Error)
	assert.Len(t, movements, 1)

	listed, err := svc.ListByNote(ctx, nil, note.ID)
	require.NoError(t, err)
	assert.Len(t, listed, 2)
}

func TestAddPaymentRejections(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	note := approvedNote(t, conn, "100")

	tests := []struct {
		name  string
		input AddPaymentInput
		code  pkgerrors.Code
	}{
		{"zero amount", AddPaymentInput{Amount: decimal.Zero}, pkgerrors.CodeInvalidAmount},
		{"negative amount", AddPaymentInput{Amount: decimal.NewFromInt(-1)}, pkgerrors.CodeInvalidAmount},
		{"exceeds balance", AddPaymentInput{Amount: decimal.RequireFromString("100.01")}, pkgerrors.CodePaymentExceedsBalance},
		{"check without account", AddPaymentInput{Amount: decimal.NewFromInt(10), Method: method(enums.PaymentMethodCheck)}, pkgerrors.CodeMissingAccount},
		{"blank account", AddPaymentInput{Amount: decimal.NewFromInt(10), Method: method(enums.PaymentMethodTransfer), AccountRef: str("  ")}, pkgerrors.CodeMissingAccount},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.AddPayment(ctx, conn, note, tt.input)
			require.Error(t, err)
			assert.True(t, pkgerrors.IsCode(err, tt.code), err.Error())
		})
	}
	assert.True(t, note.AmountPaid.IsZero())

	draft := &models.Note{ID: note.ID, State: enums.NoteStateDraft, TotalAmount: decimal.NewFromInt(100)}
	_, err := svc.AddPayment(ctx, conn, draft, AddPaymentInput{Amount: decimal.NewFromInt(1)})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidTransition))
}

func TestNormalizeMethodDropsAccountForCash(t *testing.T) {
	ref, err := NormalizeMethod(method(enums.PaymentMethodCash), str("caja-1"))
	require.NoError(t, err)
	assert.Nil(t, ref)

	_, err = NormalizeMethod(method("crypto"), nil)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestFindByIdempotencyKey(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	note := approvedNote(t, conn, "50")

	missing, err := svc.FindByIdempotencyKey(ctx, nil, "abc")
	require.NoError(t, err)
	assert.Nil(t, missing)

	created, err := svc.AddPayment(ctx, conn, note, AddPaymentInput{Amount: decimal.NewFromInt(5), IdempotencyKey: str("abc")})
	require.NoError(t, err)

	found, err := svc.FindByIdempotencyKey(ctx, nil, "abc")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, created.ID, found.ID)
}
