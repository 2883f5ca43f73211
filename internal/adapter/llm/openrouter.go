package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"go.opentelemetry.io/otel/trace"

	"wingman-relay/internal/domain"
	"wingman-relay/internal/infra/config"
	"wingman-relay/internal/infra/tracer"
)

// Compile-time interface assertion.
var _ domain.Upstream = (*OpenRouterClient)(nil)

const defaultBaseURL = "https://openrouter.ai/api/v1"

// openrouterTransport injects the app attribution headers OpenRouter
// uses for its rankings (HTTP-Referer and X-Title) into every request.
type openrouterTransport struct {
	base    http.RoundTripper
	referer string
	title   string
}

func (t *openrouterTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	// Clone the request to avoid mutating the original.
	clone := req.Clone(req.Context())
	if t.referer != "" {
		clone.Header.Set("HTTP-Referer", t.referer)
	}
	if t.title != "" {
		clone.Header.Set("X-Title", t.title)
	}
	return t.base.RoundTrip(clone)
}

// OpenRouterClient talks to the OpenRouter REST API with a per-call credential.
type OpenRouterClient struct {
	name    string
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

// NewOpenRouterClient creates a client with pooled transport and attribution headers.
func NewOpenRouterClient(cfg config.UpstreamConfig, logger *slog.Logger) *OpenRouterClient {
	client := NewHTTPClient(cfg)
	client.Transport = &openrouterTransport{
		base:    client.Transport,
		referer: cfg.Referer,
		title:   cfg.Title,
	}

	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	name := cfg.Name
	if name == "" {
		name = "openrouter"
	}

	return &OpenRouterClient{
		name:    name,
		baseURL: baseURL,
		client:  client,
		logger:  logger,
	}
}

// Complete implements domain.Upstream.
func (c *OpenRouterClient) Complete(ctx context.Context, credential string, req domain.ChatRequest) (_ *domain.ChatResponse, err error) {
	ctx, span := tracer.StartSpan(ctx, "upstream.complete",
		trace.WithAttributes(
			tracer.StringAttr("llm.provider", c.name),
			tracer.StringAttr("llm.model", req.Model),
			tracer.IntAttr("llm.messages", len(req.Messages)),
		),
	)
	defer func() { tracer.Finish(span, err) }()

	body, err := json.Marshal(toOpenAIRequest(req))
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	respBody, err := doRequest(ctx, c.client, http.MethodPost, c.baseURL+"/chat/completions", body, bearer(credential))
	if err != nil {
		return nil, err
	}

	var oaiResp openaiResponse
	if err := json.Unmarshal(respBody, &oaiResp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	result := fromOpenAIResponse(oaiResp)
	setUsageAttrs(span, result.Usage)
	span.SetAttributes(tracer.BoolAttr("llm.has_content", result.HasContent))
	logChatCompleted(c.logger, c.name, result)

	return result, nil
}

// ListModels implements domain.Upstream.
func (c *OpenRouterClient) ListModels(ctx context.Context, credential string) (_ []domain.UpstreamModel, err error) {
	ctx, span := tracer.StartSpan(ctx, "upstream.list_models",
		trace.WithAttributes(tracer.StringAttr("llm.provider", c.name)),
	)
	defer func() { tracer.Finish(span, err) }()

	respBody, err := doRequest(ctx, c.client, http.MethodGet, c.baseURL+"/models", nil, bearer(credential))
	if err != nil {
		return nil, err
	}

	var listing modelsResponse
	if err := json.Unmarshal(respBody, &listing); err != nil {
		return nil, fmt.Errorf("unmarshal model listing: %w", err)
	}

	models := make([]domain.UpstreamModel, 0, len(listing.Data))
	for _, e := range listing.Data {
		models = append(models, fromModelEntry(e))
	}

	span.SetAttributes(tracer.IntAttr("llm.models", len(models)))
	c.logger.Debug("upstream model listing fetched", "upstream", c.name, "count", len(models))

	return models, nil
}

// Name implements domain.Upstream.
func (c *OpenRouterClient) Name() string { return c.name }
