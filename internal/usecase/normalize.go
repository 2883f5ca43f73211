package usecase

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"wingman-relay/internal/domain"
)

// Client-visible messages. Upstream and internal detail never leaks into them.
const (
	MsgPlainPromptModelRequired = "Prompt and model are required"
	MsgPlainKeyRequired         = "OpenRouter API key is required"
	MsgMissingFields            = "Missing required fields: message, personality, apiKey"
	MsgInvalidPersonality       = "Invalid personality selected"
	MsgUpstreamAuth             = "Invalid API key. Please check your OpenRouter API key."
	MsgUpstreamRateLimit        = "Rate limit exceeded. Please try again later."
	MsgUpstreamRequest          = "Invalid request. Please check your input."
	MsgInternal                 = "Internal server error"
)

// MalformedCredentialMessage is the validation message for a key without prefix.
func MalformedCredentialMessage(prefix string) string {
	return `Invalid API key format. OpenRouter keys start with "` + prefix + `"`
}

// Normalizer maps upstream replies and failures onto the stable client contract.
type Normalizer struct {
	assembler *PromptAssembler
}

// NewNormalizer creates a normalizer that reads per-mode placeholders and
// fallback messages from the assembler's profiles.
func NewNormalizer(assembler *PromptAssembler) *Normalizer {
	return &Normalizer{assembler: assembler}
}

// Validation builds a 400 outcome for a request the relay refused to forward.
func (n *Normalizer) Validation(message string, cause error) *domain.ErrorOutcome {
	return &domain.ErrorOutcome{
		Category:   domain.CategoryValidation,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
		Cause:      cause,
	}
}

// Outcome classifies err from the upstream path. An *ErrorOutcome passes
// through unchanged.
func (n *Normalizer) Outcome(mode domain.Mode, err error) *domain.ErrorOutcome {
	if err == nil {
		return nil
	}
	var out *domain.ErrorOutcome
	if errors.As(err, &out) {
		return out
	}

	var ue *domain.UpstreamError
	if errors.As(err, &ue) {
		switch ue.StatusCode {
		case http.StatusUnauthorized:
			return &domain.ErrorOutcome{Category: domain.CategoryUpstreamAuth, Message: MsgUpstreamAuth, HTTPStatus: ue.StatusCode, Cause: err}
		case http.StatusTooManyRequests:
			return &domain.ErrorOutcome{Category: domain.CategoryUpstreamRateLimit, Message: MsgUpstreamRateLimit, HTTPStatus: ue.StatusCode, Cause: err}
		case http.StatusBadRequest:
			return &domain.ErrorOutcome{Category: domain.CategoryUpstreamRequest, Message: MsgUpstreamRequest, HTTPStatus: ue.StatusCode, Cause: err}
		}
		msg := ue.Message
		if msg == "" {
			msg = n.fallbackError(mode)
		}
		return &domain.ErrorOutcome{Category: domain.CategoryUpstreamOther, Message: msg, HTTPStatus: ue.StatusCode, Cause: err}
	}

	if errors.Is(err, domain.ErrUpstreamUnreachable) {
		return &domain.ErrorOutcome{Category: domain.CategoryTransport, Message: MsgInternal, HTTPStatus: http.StatusInternalServerError, Cause: err}
	}
	return &domain.ErrorOutcome{Category: domain.CategoryInternal, Message: MsgInternal, HTTPStatus: http.StatusInternalServerError, Cause: err}
}

// Result shapes a successful upstream reply. model is the model the caller
// asked for (or the default), not whatever the upstream echoed back.
func (n *Normalizer) Result(mode domain.Mode, id, model string, resp *domain.ChatResponse, now time.Time) *domain.CompletionResult {
	profile, _ := n.assembler.Profile(mode)

	text := ""
	if resp != nil && resp.HasContent {
		text = resp.Content
		if profile.TrimText {
			text = strings.TrimSpace(text)
		}
	}
	if strings.TrimSpace(text) == "" {
		text = profile.Placeholder
	}

	return &domain.CompletionResult{
		ID:        id,
		Text:      text,
		Model:     model,
		CreatedAt: now.UTC(),
	}
}

func (n *Normalizer) fallbackError(mode domain.Mode) string {
	if profile, ok := n.assembler.Profile(mode); ok && profile.FallbackError != "" {
		return profile.FallbackError
	}
	return MsgInternal
}
