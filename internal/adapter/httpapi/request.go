package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"wingman-relay/internal/domain"
)

// completionSchema is the shape every completion body must have. Optional
// fields may be null.
const completionSchema = `{
  "type": "object",
  "properties": {
    "prompt":      {"type": ["string", "null"]},
    "message":     {"type": ["string", "null"]},
    "model":       {"type": ["string", "null"]},
    "apiKey":      {"type": ["string", "null"]},
    "personality": {"type": ["string", "null"]},
    "context":     {"type": ["string", "null"]},
    "conversationHistory": {
      "type": ["array", "null"],
      "items": {
        "type": "object",
        "required": ["role", "content"],
        "properties": {
          "role":    {"enum": ["user", "assistant"]},
          "content": {"type": "string"}
        }
      }
    }
  }
}`

// completionBody is the client's request. Plain mode reads prompt, the
// personality modes read message; each falls back to the other.
type completionBody struct {
	Prompt              string                    `json:"prompt"`
	Message             string                    `json:"message"`
	Model               string                    `json:"model"`
	APIKey              string                    `json:"apiKey"`
	Personality         string                    `json:"personality"`
	Context             string                    `json:"context"`
	ConversationHistory []domain.ConversationTurn `json:"conversationHistory"`
}

// bodyError is a request body the server refused to parse.
type bodyError struct {
	status  int
	message string
	cause   error
}

func (e *bodyError) Error() string { return e.message }
func (e *bodyError) Unwrap() error { return e.cause }

// decodeCompletion reads, shape-checks and decodes a completion body.
func (s *Server) decodeCompletion(w http.ResponseWriter, r *http.Request) (*completionBody, error) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.deps.MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, &bodyError{status: http.StatusRequestEntityTooLarge, message: "Request body too large", cause: err}
		}
		return nil, &bodyError{status: http.StatusBadRequest, message: "Invalid request body", cause: err}
	}

	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &bodyError{status: http.StatusBadRequest, message: "Invalid request body", cause: fmt.Errorf("%w: %v", domain.ErrInvalidBody, err)}
	}
	if result := s.schema.Validate(raw); !result.IsValid() {
		detail := fmt.Sprintf("%s", result.Error())
		return nil, &bodyError{status: http.StatusBadRequest, message: "Invalid request body: " + detail, cause: fmt.Errorf("%w: %s", domain.ErrInvalidBody, detail)}
	}

	var body completionBody
	if err := json.Unmarshal(data, &body); err != nil {
		return nil, &bodyError{status: http.StatusBadRequest, message: "Invalid request body", cause: fmt.Errorf("%w: %v", domain.ErrInvalidBody, err)}
	}
	return &body, nil
}

// toRequest maps the body onto the relay's input for mode.
func (b *completionBody) toRequest(mode domain.Mode) domain.CompletionRequest {
	text, alt := b.Message, b.Prompt
	if mode == domain.ModePlain {
		text, alt = b.Prompt, b.Message
	}
	if text == "" {
		text = alt
	}
	return domain.CompletionRequest{
		Model:         b.Model,
		PersonalityID: b.Personality,
		Message:       text,
		Context:       b.Context,
		History:       b.ConversationHistory,
		Credential:    b.APIKey,
	}
}
