package accounting

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/blankhall98/Metaleria-API/pkg/enums"
)

func TestSignedAmount(t *testing.T) {
	amt := decimal.NewFromInt(950)
	tests := []struct {
		name string
		kind enums.AccountingMovementKind
		op   enums.OperationType
		in   decimal.Decimal
		want decimal.Decimal
	}{
		{"purchase is outflow", enums.AccountingMovementPurchase, enums.OperationPurchase, amt, amt.Neg()},
		{"sale is inflow", enums.AccountingMovementSale, enums.OperationSale, amt, amt},
		{"payment on purchase is outflow", enums.AccountingMovementPayment, enums.OperationPurchase, amt, amt.Neg()},
		{"payment on sale is inflow", enums.AccountingMovementPayment, enums.OperationSale, amt, amt},
		{"reversal of purchase flips", enums.AccountingMovementReversal, enums.OperationPurchase, amt.Neg(), amt},
		{"reversal of sale flips", enums.AccountingMovementReversal, enums.OperationSale, amt.Neg(), amt.Neg()},
		{"payment reversal of purchase flips", enums.AccountingMovementPaymentReversal, enums.OperationPurchase, amt.Neg(), amt},
		{"purchase total raised is outflow", enums.AccountingMovementAdjustment, enums.OperationPurchase, decimal.NewFromInt(200), decimal.NewFromInt(-200)},
		{"sale total lowered is outflow", enums.AccountingMovementAdjustment, enums.OperationSale, decimal.NewFromInt(-5), decimal.NewFromInt(-5)},
		{"adjustment without note is zero", enums.AccountingMovementAdjustment, "", decimal.NewFromInt(-5), decimal.Zero},
		{"unknown kind is zero", "bonus", enums.OperationSale, amt, decimal.Zero},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SignedAmount(tt.kind, tt.op, tt.in)
			assert.True(t, tt.want.Equal(got), "want %s got %s", tt.want, got)
		})
	}
}

func TestBaseAndReversalNetToZero(t *testing.T) {
	for _, op := range []enums.OperationType{enums.OperationPurchase, enums.OperationSale} {
		total := decimal.RequireFromString("1234.56")
		base := SignedAmount(BaseKind(op), op, total)
		reversal := SignedAmount(enums.AccountingMovementReversal, op, total.Neg())
		assert.True(t, base.Add(reversal).IsZero(), string(op))
	}
}

func TestEditedNoteReversalNetsToZero(t *testing.T) {
	for _, op := range []enums.OperationType{enums.OperationPurchase, enums.OperationSale} {
		approved := decimal.RequireFromString("1000")
		delta := decimal.RequireFromString("200")
		net := SignedAmount(BaseKind(op), op, approved).
			Add(SignedAmount(enums.AccountingMovementAdjustment, op, delta)).
			Add(SignedAmount(enums.AccountingMovementReversal, op, approved.Add(delta).Neg()))
		assert.True(t, net.IsZero(), "%s nets to %s", op, net)
	}
}
