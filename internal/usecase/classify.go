package usecase

import (
	"strings"

	"wingman-relay/internal/domain"
)

// ClassificationRule is one step of the free/paid decision.
type ClassificationRule struct {
	Name  string
	Match func(domain.UpstreamModel) bool
}

// ClassificationRules are evaluated in order; the first match classifies the
// model as free. The pricing rules run first; free-suffix catches models whose
// id marks them free whatever their pricing says.
var ClassificationRules = []ClassificationRule{
	{Name: "no-pricing", Match: func(m domain.UpstreamModel) bool {
		return m.Pricing == nil
	}},
	{Name: "both-zero", Match: func(m domain.UpstreamModel) bool {
		return m.Pricing.Input.IsZero() && m.Pricing.Output.IsZero()
	}},
	{Name: "both-missing", Match: func(m domain.UpstreamModel) bool {
		return m.Pricing.Input.Missing() && m.Pricing.Output.Missing()
	}},
	{Name: "one-zero-one-missing", Match: func(m domain.UpstreamModel) bool {
		in, out := m.Pricing.Input, m.Pricing.Output
		return (in.IsZero() && out.Missing()) || (in.Missing() && out.IsZero())
	}},
	{Name: "free-suffix", Match: func(m domain.UpstreamModel) bool {
		return strings.Contains(m.ID, ":free")
	}},
}

// ClassifyModel reports whether m is free.
func ClassifyModel(m domain.UpstreamModel) bool {
	free, _ := ClassifyModelRule(m)
	return free
}

// ClassifyModelRule also returns the name of the deciding rule, or "" when
// the model is paid.
func ClassifyModelRule(m domain.UpstreamModel) (bool, string) {
	for _, rule := range ClassificationRules {
		if rule.Match(m) {
			return true, rule.Name
		}
	}
	return false, ""
}
