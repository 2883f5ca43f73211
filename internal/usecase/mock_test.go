package usecase

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"wingman-relay/internal/domain"
)

type mockUpstream struct {
	mu        sync.Mutex
	completeF func(ctx context.Context, credential string, req domain.ChatRequest) (*domain.ChatResponse, error)
	listF     func(ctx context.Context, credential string) ([]domain.UpstreamModel, error)
	completes []domain.ChatRequest
	lists     int
}

func (m *mockUpstream) Complete(ctx context.Context, credential string, req domain.ChatRequest) (*domain.ChatResponse, error) {
	m.mu.Lock()
	m.completes = append(m.completes, req)
	m.mu.Unlock()
	if m.completeF == nil {
		return &domain.ChatResponse{Content: "ok", HasContent: true}, nil
	}
	return m.completeF(ctx, credential, req)
}

func (m *mockUpstream) ListModels(ctx context.Context, credential string) ([]domain.UpstreamModel, error) {
	m.mu.Lock()
	m.lists++
	m.mu.Unlock()
	if m.listF == nil {
		return nil, nil
	}
	return m.listF(ctx, credential)
}

func (m *mockUpstream) Name() string { return "mock" }

func (m *mockUpstream) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.completes)
}

func (m *mockUpstream) lastRequest(t *testing.T) domain.ChatRequest {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.completes) == 0 {
		t.Fatal("upstream was never called")
	}
	return m.completes[len(m.completes)-1]
}

func newTestLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

const coachTemplate = `You are {{.Personality.Name}}. {{.Personality.SystemPrompt}}
Context: {{.Context}}
Conversation:
{{.Transcript}}
Latest: {{.Message}}`

func testProfiles() map[domain.Mode]ModeProfile {
	return map[domain.Mode]ModeProfile{
		domain.ModePlain: {
			MaxTokens:     1000,
			Temperature:   0.7,
			Placeholder:   "Sorry, I could not generate a response.",
			FallbackError: "An error occurred while processing your request.",
		},
		domain.ModeCoach: {
			Template:      coachTemplate,
			UserLabel:     "You",
			PeerLabel:     "Coach",
			MaxTokens:     1000,
			Temperature:   0.7,
			Placeholder:   "Sorry, I could not generate a response.",
			FallbackError: "Failed to get response from AI",
		},
		domain.ModeReply: {
			Template:      "Reply as {{.Personality.Name}}.\n{{.Transcript}}",
			UserLabel:     "You",
			PeerLabel:     "Her",
			MaxTokens:     200,
			Temperature:   0.8,
			TrimText:      true,
			Placeholder:   "Sorry, I could not generate a reply.",
			FallbackError: "Failed to generate reply",
		},
	}
}

func testPersonalities() []domain.Personality {
	return []domain.Personality{
		{ID: "long-term", Name: "Long-term Relationship Coach", SystemPrompt: "Focus on trust."},
		{ID: "casual", Name: "Casual Dating Expert", SystemPrompt: "Keep it light."},
	}
}

func newTestAssembler(t *testing.T) *PromptAssembler {
	t.Helper()
	a, err := NewPromptAssembler(testProfiles())
	if err != nil {
		t.Fatalf("NewPromptAssembler: %v", err)
	}
	return a
}
