package enums

import "fmt"

// AccountingMovementKind classifies a financial ledger entry.
type AccountingMovementKind string

const (
	AccountingMovementPurchase        AccountingMovementKind = "purchase"
	AccountingMovementSale            AccountingMovementKind = "sale"
	AccountingMovementPayment         AccountingMovementKind = "payment"
	AccountingMovementReversal        AccountingMovementKind = "reversal"
	AccountingMovementPaymentReversal AccountingMovementKind = "payment_reversal"
	AccountingMovementAdjustment      AccountingMovementKind = "adjustment"
)

var validAccountingMovementKinds = []AccountingMovementKind{
	AccountingMovementPurchase,
	AccountingMovementSale,
	AccountingMovementPayment,
	AccountingMovementReversal,
	AccountingMovementPaymentReversal,
	AccountingMovementAdjustment,
}

// String implements fmt.Stringer.
func (k AccountingMovementKind) String() string {
	return string(k)
}

// IsValid reports whether the value is a known AccountingMovementKind.
func (k AccountingMovementKind) IsValid() bool {
	for _, candidate := range validAccountingMovementKinds {
		if candidate == k {
			return true
		}
	}
	return false
}

// ParseAccountingMovementKind converts raw input into a AccountingMovementKind.
func ParseAccountingMovementKind(value string) (AccountingMovementKind, error) {
	for _, candidate := range validAccountingMovementKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid accounting movement kind %q", value)
}
