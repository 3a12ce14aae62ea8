package model

import "strings"

// Field is the brew parameter a suggestion adjusts.
type Field string

// Adjustable fields.
const (
	FieldGrindStep   Field = "grindStep"
	FieldDose        Field = "dose_g"
	FieldRatio       Field = "ratio"
	FieldShotTime    Field = "shotTime_s"
	FieldWaterTemp   Field = "waterTemp_C"
	FieldPreinfusion Field = "preinfusion_s"
)

// Confidence is a coarse three-level certainty tier.
type Confidence string

// Confidence tiers.
const (
	ConfidenceLow    Confidence = "low"
	ConfidenceMedium Confidence = "med"
	ConfidenceHigh   Confidence = "high"
)

// Source tags where a suggestion came from.
type Source string

// Suggestion sources.
const (
	SourceRule Source = "rule"
	SourceAI   Source = "ai"
)

// Suggestion is one proposed parameter adjustment. Exactly one of Delta (relative)
// or Target (absolute) is set.
type Suggestion struct {
	Field      Field      `json:"field"`
	Delta      *float64   `json:"delta,omitempty"`
	Target     *float64   `json:"target,omitempty"`
	Reason     string     `json:"reason"`
	Priority   int        `json:"priority"`
	Confidence Confidence `json:"confidence"`
	Source     Source     `json:"source"`
}

// HasTarget reports whether the suggestion names an absolute value.
func (s Suggestion) HasTarget() bool {
	return s.Target != nil
}

// Change returns the signed change the suggestion implies relative to current.
// Target wins over Delta when both are present.
func (s Suggestion) Change(current float64) float64 {
	switch {
	case s.Target != nil:
		return *s.Target - current
	case s.Delta != nil:
		return *s.Delta
	default:
		return 0
	}
}

// Clone returns a copy that shares no pointers with s.
func (s Suggestion) Clone() Suggestion {
	if s.Delta != nil {
		d := *s.Delta
		s.Delta = &d
	}
	if s.Target != nil {
		t := *s.Target
		s.Target = &t
	}
	return s
}

// Valid reports whether at least one of Delta or Target is set.
func (s Suggestion) Valid() bool {
	return s.Delta != nil || s.Target != nil
}

// ExtractionLabel is the five-way extraction classification.
type ExtractionLabel string

// Extraction labels in evaluation order.
const (
	LabelUnder         ExtractionLabel = "under"
	LabelSlightlyUnder ExtractionLabel = "slightly-under"
	LabelBalanced      ExtractionLabel = "balanced"
	LabelSlightlyOver  ExtractionLabel = "slightly-over"
	LabelOver          ExtractionLabel = "over"
)

// Direction is the coarse extraction direction used to weight suggestions.
type Direction string

// Directions.
const (
	DirectionUnder    Direction = "under"
	DirectionOver     Direction = "over"
	DirectionBalanced Direction = "balanced"
)

// Direction derives the direction from the label prefix. Only labels that start
// with "under" or "over" carry a direction.
func (l ExtractionLabel) Direction() Direction {
	switch {
	case strings.HasPrefix(string(l), "under"):
		return DirectionUnder
	case strings.HasPrefix(string(l), "over"):
		return DirectionOver
	default:
		return DirectionBalanced
	}
}

// ExtractionSummary is the derived extraction classification for one shot.
type ExtractionSummary struct {
	Score      float64         `json:"score"`
	Label      ExtractionLabel `json:"label"`
	Confidence Confidence      `json:"confidence"`
	Reason     string          `json:"reason"`
}
