package main

import (
	"fmt"
	"log/slog"
	"net/http"

	"wingman-relay/internal/adapter/httpapi"
	"wingman-relay/internal/adapter/llm"
	"wingman-relay/internal/domain"
	"wingman-relay/internal/infra/config"
	"wingman-relay/internal/usecase"
)

// app is the wired relay.
type app struct {
	Catalog *config.Catalog
	Handler http.Handler
}

// buildApp loads the deployment catalog and wires upstream, use cases and
// the HTTP server.
func buildApp(cfg *config.Config, log *slog.Logger) (*app, error) {
	cat, err := config.LoadCatalog(cfg.Deployment, cfg.CatalogFile)
	if err != nil {
		return nil, fmt.Errorf("catalog: %w", err)
	}

	upstream, breaker := initUpstream(cfg.Upstream, log)

	personalities, err := usecase.NewPersonalityRegistry(cat.Personalities)
	if err != nil {
		return nil, fmt.Errorf("personalities: %w", err)
	}
	profiles, err := buildProfiles(cat)
	if err != nil {
		return nil, err
	}
	assembler, err := usecase.NewPromptAssembler(profiles)
	if err != nil {
		return nil, fmt.Errorf("prompts: %w", err)
	}

	creds := usecase.NewCredentialValidator(cfg.Credential.Prefix)
	relay := usecase.NewRelay(upstream, creds, personalities, assembler, cat.DefaultModel, log)
	resolver := usecase.NewCatalogResolver(upstream, creds, catalogOptions(cat), log)

	deps := httpapi.Deps{
		Deployment:     cfg.Deployment,
		ChatMode:       cat.ChatMode,
		Upstream:       upstream.Name(),
		Relay:          relay,
		Catalog:        resolver,
		MaxBodyBytes:   cfg.Server.MaxBodyBytes,
		TrustedProxies: cfg.Server.TrustedProxies,
		Logger:         log,
	}
	if breaker != nil {
		deps.Breaker = breaker
	}
	srv, err := httpapi.New(deps)
	if err != nil {
		return nil, err
	}
	return &app{Catalog: cat, Handler: srv}, nil
}

// initUpstream builds the OpenRouter client, wrapped in a circuit breaker
// when enabled. The breaker is nil otherwise.
func initUpstream(cfg config.UpstreamConfig, log *slog.Logger) (domain.Upstream, *llm.BreakerUpstream) {
	client := llm.NewOpenRouterClient(cfg, log)
	if !cfg.CircuitBreaker.Enabled {
		return client, nil
	}
	b := llm.NewBreakerUpstream(client, cfg.CircuitBreaker, log)
	return b, b
}

// buildProfiles maps the catalog's mode table onto the assembler's profiles.
func buildProfiles(cat *config.Catalog) (map[domain.Mode]usecase.ModeProfile, error) {
	if len(cat.Modes) == 0 {
		return nil, fmt.Errorf("%w: no modes", domain.ErrCatalogInvalid)
	}
	out := make(map[domain.Mode]usecase.ModeProfile, len(cat.Modes))
	for _, mode := range []domain.Mode{domain.ModePlain, domain.ModeCoach, domain.ModeReply} {
		m, ok := cat.Mode(mode)
		if !ok {
			continue
		}
		out[mode] = usecase.ModeProfile{
			Template:      m.Template,
			UserLabel:     m.UserLabel,
			PeerLabel:     m.PeerLabel,
			MaxTokens:     m.MaxTokens,
			Temperature:   m.Temperature,
			TrimText:      m.TrimText,
			Placeholder:   m.Placeholder,
			FallbackError: m.FallbackError,
		}
	}
	return out, nil
}

func catalogOptions(cat *config.Catalog) usecase.CatalogOptions {
	return usecase.CatalogOptions{
		Fallback:      cat.FallbackModels(),
		AnnotateNames: cat.AnnotateNames,
		Curate:        cat.Curation.Enabled,
		TopFree:       cat.Curation.TopFree,
		TopPaid:       cat.Curation.TopPaid,
	}
}
