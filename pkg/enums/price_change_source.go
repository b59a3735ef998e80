package enums

import "fmt"

// PriceChangeSource records which surface created a price version.
type PriceChangeSource string

const (
	PriceChangeSourceWeb    PriceChangeSource = "web"
	PriceChangeSourceAPI    PriceChangeSource = "api"
	PriceChangeSourceSystem PriceChangeSource = "system"
)

var validPriceChangeSources = []PriceChangeSource{
	PriceChangeSourceWeb,
	PriceChangeSourceAPI,
	PriceChangeSourceSystem,
}

// IsValid reports whether the value is a known PriceChangeSource.
func (s PriceChangeSource) IsValid() bool {
	for _, candidate := range validPriceChangeSources {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParsePriceChangeSource converts raw input into a PriceChangeSource.
func ParsePriceChangeSource(value string) (PriceChangeSource, error) {
	for _, candidate := range validPriceChangeSources {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid price change source %q", value)
}
