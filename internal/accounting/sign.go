package accounting

import (
	"github.com/shopspring/decimal"

	"github.com/blankhall98/Metaleria-API/pkg/enums"
)

// Direction is +1 for money coming in and -1 for money going out on a note of
// the given operation type.
func Direction(op enums.OperationType) int64 {
	switch op {
	case enums.OperationPurchase:
		return -1
	case enums.OperationSale:
		return 1
	default:
		return 0
	}
}

// SignedAmount converts a stored movement amount into a cash-flow value.
// Reversal rows already hold the negated amount, so multiplying by the base
// direction offsets the row they reverse. Adjustments hold the change in the
// note total and follow the note direction too, so base, edits and the
// reversal of the edited total net to zero. An adjustment without a note
// signs to zero.
func SignedAmount(kind enums.AccountingMovementKind, op enums.OperationType, amount decimal.Decimal) decimal.Decimal {
	switch kind {
	case enums.AccountingMovementPurchase:
		return amount.Neg()
	case enums.AccountingMovementSale:
		return amount
	case enums.AccountingMovementPayment,
		enums.AccountingMovementReversal,
		enums.AccountingMovementPaymentReversal,
		enums.AccountingMovementAdjustment:
		return amount.Mul(decimal.NewFromInt(Direction(op)))
	default:
		return decimal.Zero
	}
}

// BaseKind is the movement kind recorded when a note of the given type is approved.
func BaseKind(op enums.OperationType) enums.AccountingMovementKind {
	if op == enums.OperationSale {
		return enums.AccountingMovementSale
	}
	return enums.AccountingMovementPurchase
}
