package enums

import "fmt"

// CustomerClass selects which price list applies to a weight line.
type CustomerClass string

const (
	CustomerClassRegular   CustomerClass = "regular"
	CustomerClassWholesale CustomerClass = "wholesale"
	CustomerClassRetail    CustomerClass = "retail"
)

var validCustomerClasses = []CustomerClass{
	CustomerClassRegular,
	CustomerClassWholesale,
	CustomerClassRetail,
}

// String implements fmt.Stringer.
func (c CustomerClass) String() string {
	return string(c)
}

// IsValid reports whether the value is a known CustomerClass.
func (c CustomerClass) IsValid() bool {
	for _, candidate := range validCustomerClasses {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseCustomerClass converts raw input into a CustomerClass.
func ParseCustomerClass(value string) (CustomerClass, error) {
	for _, candidate := range validCustomerClasses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid customer class %q", value)
}
