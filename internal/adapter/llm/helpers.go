package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"

	"go.opentelemetry.io/otel/trace"

	"wingman-relay/internal/domain"
	"wingman-relay/internal/infra/tracer"
)

// maxResponseBody is the maximum response body size read from the upstream.
// Model listings run to several hundred KB.
const maxResponseBody = 10 * 1024 * 1024 // 10 MB

// maxErrorBody bounds how much of an error payload is kept for logging.
const maxErrorBody = 4096

// doRequest performs one HTTP request and returns the response body.
// body may be nil for GET. Transport failures wrap domain.ErrUpstreamUnreachable,
// plus domain.ErrTimeout when a deadline expired; non-2xx responses become
// *domain.UpstreamError.
func doRequest(ctx context.Context, client *http.Client, method, url string, body []byte, headers map[string]string) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		httpReq.Header.Set(k, v)
	}

	httpResp, err := client.Do(httpReq)
	if err != nil {
		return nil, unreachable(err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseBody))
	if err != nil {
		return nil, unreachable(fmt.Errorf("read response: %w", err))
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		return nil, mapHTTPError(httpResp.StatusCode, respBody)
	}

	return respBody, nil
}

func unreachable(err error) error {
	var ne net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &ne) && ne.Timeout()) {
		return fmt.Errorf("%w: %w: %w", domain.ErrUpstreamUnreachable, domain.ErrTimeout, err)
	}
	return fmt.Errorf("%w: %w", domain.ErrUpstreamUnreachable, err)
}

func bearer(credential string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + credential}
}

// logChatCompleted logs the standard debug message after a successful completion.
func logChatCompleted(logger *slog.Logger, upstream string, result *domain.ChatResponse) {
	logger.Debug("upstream completion finished",
		"upstream", upstream,
		"model", result.Model,
		"has_content", result.HasContent,
		"tokens", result.Usage.TotalTokens,
	)
}

// setUsageAttrs adds token usage attributes to a trace span.
func setUsageAttrs(span trace.Span, usage domain.Usage) {
	span.SetAttributes(
		tracer.IntAttr("llm.prompt_tokens", usage.PromptTokens),
		tracer.IntAttr("llm.completion_tokens", usage.CompletionTokens),
	)
}

// mapHTTPError turns a non-2xx response into a *domain.UpstreamError, lifting
// the provider's own error.message when the payload carries one.
func mapHTTPError(statusCode int, body []byte) error {
	ue := &domain.UpstreamError{StatusCode: statusCode}

	if len(body) > maxErrorBody {
		ue.Body = string(body[:maxErrorBody])
	} else {
		ue.Body = string(body)
	}

	var payload openaiErrorBody
	if json.Unmarshal(body, &payload) == nil && len(payload.Error) > 0 {
		var detail struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(payload.Error, &detail) == nil {
			ue.Message = detail.Message
		}
	}
	return ue
}
