package enums

import "fmt"

// PartnerKind separates ordinary counterparties from branch proxies used by transfers.
type PartnerKind string

const (
	PartnerKindExternal PartnerKind = "external"
	PartnerKindBranch   PartnerKind = "branch"
)

var validPartnerKinds = []PartnerKind{
	PartnerKindExternal,
	PartnerKindBranch,
}

// IsValid reports whether the value is a known PartnerKind.
func (k PartnerKind) IsValid() bool {
	for _, candidate := range validPartnerKinds {
		if candidate == k {
			return true
		}
	}
	return false
}

// ParsePartnerKind converts raw input into a PartnerKind.
func ParsePartnerKind(value string) (PartnerKind, error) {
	for _, candidate := range validPartnerKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid partner kind %q", value)
}
