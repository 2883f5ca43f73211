package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"wingman-relay/internal/domain"
	"wingman-relay/internal/infra/tracer"
)

// Advisory messages attached to a resolved catalog.
const (
	MsgModelsNoKey      = "Using default models (no API key provided)"
	MsgModelsBadKey     = "Using default models (invalid API key format)"
	MsgModelsAPIError   = "Using default models (API error)"
	MsgModelsNetwork    = "Using default models (network error)"
	MsgModelsNoneTop    = "No top models found, using default models"
	MsgModelsNoneListed = "No models returned, using default models"
)

// Provider labels for live entries.
const (
	providerOpenRouter = "OpenRouter"
	providerUnknown    = "Unknown"
)

// CatalogOptions is the deployment's model catalog profile.
type CatalogOptions struct {
	Fallback      []domain.ModelDescriptor
	AnnotateNames bool
	Curate        bool
	TopFree       []string
	TopPaid       []string
}

// CatalogResolver answers the model listing. It never fails: every error
// path degrades to the deployment fallback list with an advisory message.
type CatalogResolver struct {
	upstream    domain.Upstream
	credentials *CredentialValidator
	opts        CatalogOptions
	topFree     map[string]bool
	topPaid     map[string]bool
	logger      *slog.Logger
}

// NewCatalogResolver creates a resolver.
func NewCatalogResolver(upstream domain.Upstream, credentials *CredentialValidator, opts CatalogOptions, logger *slog.Logger) *CatalogResolver {
	return &CatalogResolver{
		upstream:    upstream,
		credentials: credentials,
		opts:        opts,
		topFree:     toSet(opts.TopFree),
		topPaid:     toSet(opts.TopPaid),
		logger:      logger,
	}
}

// Resolve returns the live listing when the credential allows it, otherwise
// the fallback list.
func (r *CatalogResolver) Resolve(ctx context.Context, credential string) domain.Catalog {
	ctx, span := tracer.StartSpan(ctx, "catalog.resolve")
	defer span.End()

	if err := r.credentials.Validate(credential); err != nil {
		if errors.Is(err, domain.ErrCredentialMissing) {
			return r.fallback(MsgModelsNoKey)
		}
		return r.fallback(MsgModelsBadKey)
	}

	listed, err := r.upstream.ListModels(ctx, credential)
	if err != nil {
		tracer.RecordError(span, err)
		r.logger.Warn("model listing failed, serving fallback",
			"error", err, "code", domain.ErrorCodeOf(err))
		var ue *domain.UpstreamError
		if errors.As(err, &ue) {
			return r.fallback(MsgModelsAPIError)
		}
		return r.fallback(MsgModelsNetwork)
	}

	models := make([]domain.ModelDescriptor, 0, len(listed))
	for _, m := range listed {
		models = append(models, r.describe(m))
	}

	if r.opts.Curate {
		models = r.curate(models)
		if len(models) == 0 {
			return r.fallback(MsgModelsNoneTop)
		}
		free, paid := countFree(models)
		span.SetAttributes(tracer.IntAttr("catalog.models", len(models)))
		tracer.SetOK(span)
		return domain.Catalog{
			Models:  models,
			Message: fmt.Sprintf("Found %d top models (%d free, %d paid)", len(models), free, paid),
		}
	}

	if len(models) == 0 {
		return r.fallback(MsgModelsNoneListed)
	}
	free, paid := countFree(models)
	span.SetAttributes(tracer.IntAttr("catalog.models", len(models)))
	tracer.SetOK(span)
	return domain.Catalog{
		Models:  models,
		Message: fmt.Sprintf("Found %d models (%d free, %d paid)", len(models), free, paid),
	}
}

func (r *CatalogResolver) describe(m domain.UpstreamModel) domain.ModelDescriptor {
	free := ClassifyModel(m)

	name := m.Name
	if name == "" {
		name = m.ID
	}
	if r.opts.AnnotateNames {
		if free {
			name += " (Free)"
		} else {
			name += " (Paid)"
		}
	}

	provider := providerUnknown
	if m.ContextLength > 0 {
		provider = providerOpenRouter
	}

	return domain.ModelDescriptor{ID: m.ID, Name: name, Provider: provider, IsFree: free}
}

// curate keeps allow-listed models, free ones first, each group in upstream order.
func (r *CatalogResolver) curate(models []domain.ModelDescriptor) []domain.ModelDescriptor {
	var free, paid []domain.ModelDescriptor
	for _, m := range models {
		switch {
		case m.IsFree && r.topFree[m.ID]:
			free = append(free, m)
		case !m.IsFree && r.topPaid[m.ID]:
			paid = append(paid, m)
		}
	}
	return append(free, paid...)
}

func (r *CatalogResolver) fallback(message string) domain.Catalog {
	models := make([]domain.ModelDescriptor, len(r.opts.Fallback))
	copy(models, r.opts.Fallback)
	return domain.Catalog{Models: models, Message: message}
}

func countFree(models []domain.ModelDescriptor) (free, paid int) {
	for _, m := range models {
		if m.IsFree {
			free++
		} else {
			paid++
		}
	}
	return free, paid
}

func toSet(ids []string) map[string]bool {
	s := make(map[string]bool, len(ids))
	for _, id := range ids {
		s[id] = true
	}
	return s
}
