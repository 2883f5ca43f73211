package domain

import (
	"fmt"
	"time"
)

// Personality is a named behavioral profile that parameterizes the system prompt.
type Personality struct {
	ID           string `json:"id" yaml:"id"`
	Name         string `json:"name" yaml:"name"`
	Description  string `json:"description" yaml:"description"`
	SystemPrompt string `json:"-" yaml:"system_prompt"`
}

// Mode selects how a completion request is framed for the upstream.
type Mode string

const (
	ModePlain Mode = "plain" // user turn only, no personality
	ModeCoach Mode = "coach"
	ModeReply Mode = "reply"
)

// NeedsPersonality reports whether the mode renders a personality system prompt.
func (m Mode) NeedsPersonality() bool { return m == ModeCoach || m == ModeReply }

// ConversationTurn is one prior turn supplied by the caller.
type ConversationTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompletionRequest is the validated input of one completion call.
type CompletionRequest struct {
	Model         string
	PersonalityID string
	Message       string
	Context       string
	History       []ConversationTurn
	Credential    string
}

// ModelDescriptor is one selectable model in the catalog.
type ModelDescriptor struct {
	ID       string `json:"id" yaml:"id"`
	Name     string `json:"name" yaml:"name"`
	Provider string `json:"provider" yaml:"provider"`
	IsFree   bool   `json:"isFree" yaml:"is_free"`
}

// Catalog is the resolver's answer: always a usable list plus an advisory note.
type Catalog struct {
	Models  []ModelDescriptor `json:"models"`
	Message string            `json:"message,omitempty"`
}

// CompletionResult is produced once per successful completion.
type CompletionResult struct {
	ID        string
	Text      string
	Model     string
	CreatedAt time.Time
}

// Category is the client-visible error class.
type Category string

const (
	CategoryValidation        Category = "validation"
	CategoryUpstreamAuth      Category = "upstream_auth"
	CategoryUpstreamRateLimit Category = "upstream_rate_limit"
	CategoryUpstreamRequest   Category = "upstream_request"
	CategoryUpstreamOther     Category = "upstream_other"
	CategoryTransport         Category = "transport"
	CategoryInternal          Category = "internal"
)

// ErrorOutcome is the normalized failure returned to the caller.
// Cause is kept for server-side logging only.
type ErrorOutcome struct {
	Category   Category
	Message    string
	HTTPStatus int
	Cause      error
}

func (e *ErrorOutcome) Error() string {
	return fmt.Sprintf("%s (%d): %s", e.Category, e.HTTPStatus, e.Message)
}

func (e *ErrorOutcome) Unwrap() error { return e.Cause }

// RequestState tracks a completion request through the relay.
type RequestState string

const (
	StateReceived        RequestState = "received"
	StateValidating      RequestState = "validating"
	StateRejected        RequestState = "rejected"
	StateRouting         RequestState = "routing"
	StateCallingUpstream RequestState = "calling_upstream"
	StateSucceeded       RequestState = "succeeded"
	StateFailed          RequestState = "failed"
	StateResponded       RequestState = "responded"
)

// Terminal reports whether no further transition is possible before responding.
func (s RequestState) Terminal() bool {
	return s == StateRejected || s == StateSucceeded || s == StateFailed
}
