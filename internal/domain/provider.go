package domain

import "context"

// Upstream is the hosted model provider. The credential is supplied per call
// because it belongs to the caller, not to the relay.
type Upstream interface {
	// Complete sends a chat completion request and returns the first choice.
	Complete(ctx context.Context, credential string, req ChatRequest) (*ChatResponse, error)
	// ListModels returns the provider's model listing.
	ListModels(ctx context.Context, credential string) ([]UpstreamModel, error)
	// Name returns the provider's identifier (e.g., "openrouter").
	Name() string
}

// UpstreamModel is one entry of the provider's model listing.
type UpstreamModel struct {
	ID            string
	Name          string
	ContextLength int
	Pricing       *ModelPricing // nil when the entry carries no pricing object
}

// ModelPricing holds per-unit input and output prices.
type ModelPricing struct {
	Input  Price
	Output Price
}

// Price records whether a price field was present, explicitly null, or a number.
type Price struct {
	Present bool
	Null    bool
	Value   float64
}

// Missing reports whether the field was absent or explicitly null.
func (p Price) Missing() bool { return !p.Present || p.Null }

// IsZero reports whether the field was a number equal to zero.
func (p Price) IsZero() bool { return p.Present && !p.Null && p.Value == 0 }
