package usecase

import (
	"fmt"

	"wingman-relay/internal/domain"
)

// PersonalityRegistry is the immutable, per-deployment set of personalities.
// It is safe for concurrent use because it is never written after construction.
type PersonalityRegistry struct {
	byID  map[string]domain.Personality
	order []domain.Personality
}

// NewPersonalityRegistry indexes personalities by id, keeping catalog order.
func NewPersonalityRegistry(personalities []domain.Personality) (*PersonalityRegistry, error) {
	r := &PersonalityRegistry{
		byID:  make(map[string]domain.Personality, len(personalities)),
		order: make([]domain.Personality, 0, len(personalities)),
	}
	for _, p := range personalities {
		if p.ID == "" {
			return nil, fmt.Errorf("%w: personality with empty id", domain.ErrCatalogInvalid)
		}
		if _, dup := r.byID[p.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate personality %q", domain.ErrCatalogInvalid, p.ID)
		}
		r.byID[p.ID] = p
		r.order = append(r.order, p)
	}
	return r, nil
}

// Lookup returns the personality with the given id, or ErrUnknownPersonality.
func (r *PersonalityRegistry) Lookup(id string) (domain.Personality, error) {
	p, ok := r.byID[id]
	if !ok {
		return domain.Personality{}, domain.NewDomainError("PersonalityRegistry.Lookup", domain.ErrUnknownPersonality, id)
	}
	return p, nil
}

// List returns the personalities in catalog order.
func (r *PersonalityRegistry) List() []domain.Personality {
	out := make([]domain.Personality, len(r.order))
	copy(out, r.order)
	return out
}
