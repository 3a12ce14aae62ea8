// Package model contains the shot, taste and suggestion types passed between layers.
package model

import (
	"fmt"
	"strings"
)

// RoastLevel is one of five ordered roast categories, lightest first.
type RoastLevel string

// Roast levels.
const (
	RoastLight       RoastLevel = "Light"
	RoastMediumLight RoastLevel = "Medium Light"
	RoastMedium      RoastLevel = "Medium"
	RoastMediumDark  RoastLevel = "Medium Dark"
	RoastDark        RoastLevel = "Dark"
)

// Roasts returns all roast levels ordered from lightest to darkest.
func Roasts() []RoastLevel {
	return []RoastLevel{RoastLight, RoastMediumLight, RoastMedium, RoastMediumDark, RoastDark}
}

// ParseRoastLevel accepts the canonical names as well as dashed, underscored and
// lower-case spellings ("medium-light", "MEDIUM_DARK").
func ParseRoastLevel(s string) (RoastLevel, error) {
	norm := strings.ToLower(strings.TrimSpace(s))
	norm = strings.NewReplacer("-", " ", "_", " ").Replace(norm)
	norm = strings.Join(strings.Fields(norm), " ")
	for _, r := range Roasts() {
		if strings.ToLower(string(r)) == norm {
			return r, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownRoast, s)
}

// Valid reports whether r is one of the known roast levels.
func (r RoastLevel) Valid() bool {
	return r.Index() >= 0
}

// Index returns the position of r in Roasts(), or -1.
func (r RoastLevel) Index() int {
	for i, known := range Roasts() {
		if known == r {
			return i
		}
	}
	return -1
}

// IsLight is true for Light and Medium Light.
func (r RoastLevel) IsLight() bool {
	return r == RoastLight || r == RoastMediumLight
}

// IsDark is true for Medium Dark and Dark.
func (r RoastLevel) IsDark() bool {
	return r == RoastMediumDark || r == RoastDark
}
