// Package provider holds the alternate suggestion providers consulted in ai and
// hybrid coaching modes.
package provider

import (
	"context"

	"github.com/okian/shotcoach/internal/domain/model"
)

// Stub is the placeholder alternate provider. It always fails, which callers are
// required to tolerate.
type Stub struct{}

// Suggest implements coaching.Provider.
func (Stub) Suggest(context.Context, model.ShotInput, model.ExtractionSummary) ([]model.Suggestion, error) {
	return nil, ErrProviderUnavailable
}
