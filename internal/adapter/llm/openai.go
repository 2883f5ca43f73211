package llm

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"wingman-relay/internal/domain"
)

// --- OpenAI-compatible wire types (as served by OpenRouter) ---

type openaiRequest struct {
	Model       string          `json:"model"`
	Messages    []openaiMessage `json:"messages"`
	MaxTokens   int             `json:"max_tokens,omitempty"`
	Temperature float64         `json:"temperature"` // always sent: 0 is a valid profile setting
}

type openaiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openaiResponse struct {
	ID      string         `json:"id"`
	Model   string         `json:"model"`
	Choices []openaiChoice `json:"choices"`
	Usage   openaiUsage    `json:"usage"`
	Created int64          `json:"created"`
}

type openaiChoice struct {
	Index        int                `json:"index"`
	Message      openaiReplyMessage `json:"message"`
	FinishReason string             `json:"finish_reason"`
}

// openaiReplyMessage keeps content as a pointer: providers send null content
// for empty or filtered completions.
type openaiReplyMessage struct {
	Role    string  `json:"role"`
	Content *string `json:"content"`
}

type openaiUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type openaiErrorBody struct {
	Error json.RawMessage `json:"error"`
}

type modelsResponse struct {
	Data []modelEntry `json:"data"`
}

type modelEntry struct {
	ID            string                     `json:"id"`
	Name          string                     `json:"name"`
	ContextLength float64                    `json:"context_length"`
	Pricing       map[string]json.RawMessage `json:"pricing"`
}

func toOpenAIRequest(req domain.ChatRequest) openaiRequest {
	msgs := make([]openaiMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		msgs = append(msgs, openaiMessage{Role: m.Role, Content: m.Content})
	}

	return openaiRequest{
		Model:       req.Model,
		Messages:    msgs,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	}
}

func fromOpenAIResponse(resp openaiResponse) *domain.ChatResponse {
	result := &domain.ChatResponse{
		ID:    resp.ID,
		Model: resp.Model,
		Usage: domain.Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}
	if resp.Created > 0 {
		result.CreatedAt = time.Unix(resp.Created, 0).UTC()
	}
	if len(resp.Choices) > 0 && resp.Choices[0].Message.Content != nil {
		result.Content = *resp.Choices[0].Message.Content
		result.HasContent = true
	}
	return result
}

func fromModelEntry(e modelEntry) domain.UpstreamModel {
	m := domain.UpstreamModel{
		ID:            e.ID,
		Name:          e.Name,
		ContextLength: int(e.ContextLength),
	}
	// A null pricing object decodes to a nil map, same as an absent one.
	if e.Pricing != nil {
		m.Pricing = &domain.ModelPricing{
			Input:  priceField(e.Pricing, "input", "prompt"),
			Output: priceField(e.Pricing, "output", "completion"),
		}
	}
	return m
}

// priceField reads key, or alt when key is absent.
func priceField(pricing map[string]json.RawMessage, key, alt string) domain.Price {
	raw, ok := pricing[key]
	if !ok {
		raw, ok = pricing[alt]
	}
	if !ok {
		return domain.Price{}
	}
	return parsePrice(raw)
}

// parsePrice accepts a JSON number, a numeric string, or null. Any other value
// is kept as present and non-zero, so it never reads as free.
func parsePrice(raw json.RawMessage) domain.Price {
	s := strings.TrimSpace(string(raw))
	if s == "null" {
		return domain.Price{Present: true, Null: true}
	}

	var v float64
	if err := json.Unmarshal(raw, &v); err == nil {
		return domain.Price{Present: true, Value: v}
	}

	var str string
	if err := json.Unmarshal(raw, &str); err == nil {
		if f, err := strconv.ParseFloat(strings.TrimSpace(str), 64); err == nil {
			return domain.Price{Present: true, Value: f}
		}
	}
	return domain.Price{Present: true, Value: math.NaN()}
}
