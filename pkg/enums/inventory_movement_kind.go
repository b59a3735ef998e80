package enums

import "fmt"

// InventoryMovementKind classifies a stock ledger entry.
type InventoryMovementKind string

const (
	InventoryMovementPurchase   InventoryMovementKind = "purchase"
	InventoryMovementSale       InventoryMovementKind = "sale"
	InventoryMovementAdjustment InventoryMovementKind = "adjustment"
)

var validInventoryMovementKinds = []InventoryMovementKind{
	InventoryMovementPurchase,
	InventoryMovementSale,
	InventoryMovementAdjustment,
}

// String implements fmt.Stringer.
func (k InventoryMovementKind) String() string {
	return string(k)
}

// IsValid reports whether the value is a known InventoryMovementKind.
func (k InventoryMovementKind) IsValid() bool {
	for _, candidate := range validInventoryMovementKinds {
		if candidate == k {
			return true
		}
	}
	return false
}

// ParseInventoryMovementKind converts raw input into a InventoryMovementKind.
func ParseInventoryMovementKind(value string) (InventoryMovementKind, error) {
	for _, candidate := range validInventoryMovementKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid inventory movement kind %q", value)
}
