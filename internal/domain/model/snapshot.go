package model

import (
	"fmt"
	"strings"
	"time"
)

// Mode selects which suggestion providers the coach consults.
type Mode string

// Coaching modes.
const (
	ModeRule   Mode = "rule"
	ModeAI     Mode = "ai"
	ModeHybrid Mode = "hybrid"
)

// ParseMode parses a case-insensitive mode name.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeRule, ModeAI, ModeHybrid:
		return m, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownMode, s)
	}
}

// CoachingSnapshot is the result handed back to callers, who persist it verbatim.
type CoachingSnapshot struct {
	Version     string       `json:"version"`
	Mode        Mode         `json:"mode"`
	Suggestions []Suggestion `json:"suggestions"`
	InputHash   string       `json:"inputHash"`
	ComputedAt  time.Time    `json:"timestamp"`
}

// Clone returns a deep copy of the snapshot. A nil suggestion list stays nil.
func (c CoachingSnapshot) Clone() CoachingSnapshot {
	if c.Suggestions == nil {
		return c
	}
	out := make([]Suggestion, len(c.Suggestions))
	for i, s := range c.Suggestions {
		out[i] = s.Clone()
	}
	c.Suggestions = out
	return c
}
