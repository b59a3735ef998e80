package accounting

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/blankhall98/Metaleria-API/pkg/db/dbtest"
	"github.com/blankhall98/Metaleria-API/pkg/db/models"
	"github.com/blankhall98/Metaleria-API/pkg/enums"
	pkgerrors "github.com/blankhall98/Metaleria-API/pkg/errors"
)

func newTestService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()
	conn := dbtest.Open(t)
	svc, err := NewService(NewRepository(conn))
	require.NoError(t, err)
	return svc, conn
}

func seedNote(t *testing.T, conn *gorm.DB, op enums.OperationType) models.Note {
	t.Helper()
	note := models.Note{BranchID: 1, OperationType: op, WorkerID: 1, State: enums.NoteStateApproved}
	dbtest.Seed(t, conn, &note)
	return note
}

func TestRecordMovementAndBaseGuard(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	note := seedNote(t, conn, enums.OperationPurchase)
	branch := note.BranchID

	exists, err := svc.HasBaseMovement(ctx, nil, note.ID, enums.AccountingMovementPurchase)
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = svc.RecordMovement(ctx, conn, RecordInput{
		Kind: enums.AccountingMovementPurchase, Amount: decimal.NewFromInt(950), NoteID: &note.ID, BranchID: &branch,
	})
	require.NoError(t, err)

	exists, err = svc.HasBaseMovement(ctx, nil, note.ID, enums.AccountingMovementPurchase)
	require.NoError(t, err)
	assert.True(t, exists)

	_, err = svc.HasBaseMovement(ctx, nil, note.ID, enums.AccountingMovementPayment)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = svc.RecordMovement(ctx, conn, RecordInput{Kind: "bonus", Amount: decimal.NewFromInt(1)})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestSummaryUsesDerivedSigns(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	purchase := seedNote(t, conn, enums.OperationPurchase)
	sale := seedNote(t, conn, enums.OperationSale)

	rows := []RecordInput{
		{Kind: enums.AccountingMovementPurchase, Amount: decimal.NewFromInt(950), NoteID: &purchase.ID},
		{Kind: enums.AccountingMovementPayment, Amount: decimal.NewFromInt(950), NoteID: &purchase.ID},
		{Kind: enums.AccountingMovementReversal, Amount: decimal.NewFromInt(-950), NoteID: &purchase.ID},
		{Kind: enums.AccountingMovementPaymentReversal, Amount: decimal.NewFromInt(-950), NoteID: &purchase.ID},
		{Kind: enums.AccountingMovementSale, Amount: decimal.NewFromInt(600), NoteID: &sale.ID},
		{Kind: enums.AccountingMovementAdjustment, Amount: decimal.Zero},
	}
	for _, row := range rows {
		_, err := svc.RecordMovement(ctx, conn, row)
		require.NoError(t, err)
	}

	summary, err := svc.Summary(ctx, Filter{})
	require.NoError(t, err)
	assert.Equal(t, 6, summary.Count)
	assert.True(t, summary.Net.Equal(decimal.NewFromInt(600)), summary.Net.String())
	assert.True(t, summary.ByKind[enums.AccountingMovementReversal].Equal(decimal.NewFromInt(-950)))

	listed, err := svc.List(ctx, nil, Filter{NoteID: &purchase.ID})
	require.NoError(t, err)
	require.Len(t, listed, 4)
	net := decimal.Zero
	for _, m := range listed {
		net = net.Add(m.Signed)
	}
	assert.True(t, net.IsZero())
}
