package model

// Dimension names one axis of the taste balance.
type Dimension string

// Taste dimensions.
const (
	DimAcidity    Dimension = "acidity"
	DimBitterness Dimension = "bitterness"
	DimBody       Dimension = "body"
	DimAftertaste Dimension = "aftertaste"
)

// Dimensions returns the taste dimensions in rule evaluation order.
func Dimensions() []Dimension {
	return []Dimension{DimBitterness, DimAcidity, DimBody, DimAftertaste}
}

// TasteBalance holds four signed magnitudes on [-1,1]. A nil field was not
// reported by the taster, which is different from an explicit 0.
type TasteBalance struct {
	Acidity    *float64 `json:"acidity,omitempty"`
	Bitterness *float64 `json:"bitterness,omitempty"`
	Body       *float64 `json:"body,omitempty"`
	Aftertaste *float64 `json:"aftertaste,omitempty"`
}

// Get returns the value of d and whether it was reported.
func (b TasteBalance) Get(d Dimension) (float64, bool) {
	var p *float64
	switch d {
	case DimAcidity:
		p = b.Acidity
	case DimBitterness:
		p = b.Bitterness
	case DimBody:
		p = b.Body
	case DimAftertaste:
		p = b.Aftertaste
	}
	if p == nil {
		return 0, false
	}
	return *p, true
}

// Value returns the value of d, defaulting to 0 when absent.
func (b TasteBalance) Value(d Dimension) float64 {
	v, _ := b.Get(d)
	return v
}

// IsEmpty reports whether no dimension was reported.
func (b TasteBalance) IsEmpty() bool {
	return b.Acidity == nil && b.Bitterness == nil && b.Body == nil && b.Aftertaste == nil
}
