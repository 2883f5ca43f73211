package usecase

import (
	"testing"

	"wingman-relay/internal/domain"
)

func num(v float64) domain.Price { return domain.Price{Present: true, Value: v} }

var (
	absent = domain.Price{}
	null   = domain.Price{Present: true, Null: true}
)

func TestClassifyModel(t *testing.T) {
	tests := []struct {
		name     string
		model    domain.UpstreamModel
		wantFree bool
		wantRule string
	}{
		{"no pricing", domain.UpstreamModel{ID: "a"}, true, "no-pricing"},
		{"both zero", domain.UpstreamModel{ID: "a", Pricing: &domain.ModelPricing{Input: num(0), Output: num(0)}}, true, "both-zero"},
		{"both absent", domain.UpstreamModel{ID: "a", Pricing: &domain.ModelPricing{}}, true, "both-missing"},
		{"both null", domain.UpstreamModel{ID: "a", Pricing: &domain.ModelPricing{Input: null, Output: null}}, true, "both-missing"},
		{"input zero output absent", domain.UpstreamModel{ID: "a", Pricing: &domain.ModelPricing{Input: num(0), Output: absent}}, true, "one-zero-one-missing"},
		{"input null output zero", domain.UpstreamModel{ID: "a", Pricing: &domain.ModelPricing{Input: null, Output: num(0)}}, true, "one-zero-one-missing"},
		{"paid", domain.UpstreamModel{ID: "a", Pricing: &domain.ModelPricing{Input: num(0.000003), Output: num(0.000015)}}, false, ""},
		{"input zero output paid", domain.UpstreamModel{ID: "a", Pricing: &domain.ModelPricing{Input: num(0), Output: num(0.1)}}, false, ""},
		{"paid one missing", domain.UpstreamModel{ID: "a", Pricing: &domain.ModelPricing{Input: num(0.1), Output: absent}}, false, ""},
		{"free suffix overrides price", domain.UpstreamModel{ID: "x/y:free", Pricing: &domain.ModelPricing{Input: num(1), Output: num(1)}}, true, "free-suffix"},
		{"zero-priced free suffix", domain.UpstreamModel{ID: "x/y:free", Pricing: &domain.ModelPricing{Input: num(0), Output: num(0)}}, true, "both-zero"},
		{"unpriced free suffix", domain.UpstreamModel{ID: "x/y:free"}, true, "no-pricing"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			free, rule := ClassifyModelRule(tt.model)
			if free != tt.wantFree {
				t.Errorf("free = %v, want %v", free, tt.wantFree)
			}
			if rule != tt.wantRule {
				t.Errorf("rule = %q, want %q", rule, tt.wantRule)
			}
			if ClassifyModel(tt.model) != tt.wantFree {
				t.Errorf("ClassifyModel disagrees with ClassifyModelRule")
			}
		})
	}
}

func TestClassificationRulesOrder(t *testing.T) {
	want := []string{"no-pricing", "both-zero", "both-missing", "one-zero-one-missing", "free-suffix"}
	if len(ClassificationRules) != len(want) {
		t.Fatalf("got %d rules, want %d", len(ClassificationRules), len(want))
	}
	for i, rule := range ClassificationRules {
		if rule.Name != want[i] {
			t.Errorf("rule[%d] = %q, want %q", i, rule.Name, want[i])
		}
	}
}

func TestClassifyModelIsIdempotent(t *testing.T) {
	models := []domain.UpstreamModel{
		{ID: "a"},
		{ID: "x/y:free", Pricing: &domain.ModelPricing{Input: num(1), Output: num(1)}},
		{ID: "b", Pricing: &domain.ModelPricing{Input: num(0.1), Output: absent}},
		{ID: "c", Pricing: &domain.ModelPricing{Input: null, Output: num(0)}},
	}
	for _, m := range models {
		free1, rule1 := ClassifyModelRule(m)
		free2, rule2 := ClassifyModelRule(m)
		if free1 != free2 || rule1 != rule2 {
			t.Errorf("%s: first (%v, %q), second (%v, %q)", m.ID, free1, rule1, free2, rule2)
		}
	}
}
