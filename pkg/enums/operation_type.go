package enums

import "fmt"

// OperationType distinguishes purchase notes from sale notes.
type OperationType string

const (
	OperationPurchase OperationType = "purchase"
	OperationSale     OperationType = "sale"
)

var validOperationTypes = []OperationType{
	OperationPurchase,
	OperationSale,
}

// String implements fmt.Stringer.
func (o OperationType) String() string {
	return string(o)
}

// IsValid reports whether the value is a known OperationType.
func (o OperationType) IsValid() bool {
	for _, candidate := range validOperationTypes {
		if candidate == o {
			return true
		}
	}
	return false
}

// ParseOperationType converts raw input into a OperationType.
func ParseOperationType(value string) (OperationType, error) {
	for _, candidate := range validOperationTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid operation type %q", value)
}
