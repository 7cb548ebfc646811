package enums

import (
	"fmt"
	"strings"
)

// DisplayMode controls whether per-service prices are rendered.
type DisplayMode string

const (
	// DisplayModeBifurcated shows every service amount.
	DisplayModeBifurcated DisplayMode = "bifurcated"
	// DisplayModeLumpsum hides service amounts in favour of header and grand totals.
	DisplayModeLumpsum DisplayMode = "lumpsum"
)

// DefaultDisplayMode is used when neither the user nor the quotation chose one.
const DefaultDisplayMode = DisplayModeBifurcated

var validDisplayModes = []DisplayMode{
	DisplayModeBifurcated,
	DisplayModeLumpsum,
}

func (m DisplayMode) String() string { return string(m) }

// IsValid reports whether the value matches the canonical display mode enum.
func (m DisplayMode) IsValid() bool {
	for _, candidate := range validDisplayModes {
		if candidate == m {
			return true
		}
	}
	return false
}

// ParseDisplayMode converts the raw string to DisplayMode, ignoring case.
func ParseDisplayMode(value string) (DisplayMode, error) {
	normalized := DisplayMode(strings.ToLower(strings.TrimSpace(value)))
	if normalized.IsValid() {
		return normalized, nil
	}
	return "", fmt.Errorf("invalid display mode %q", value)
}
