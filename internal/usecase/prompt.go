package usecase

import (
	"fmt"
	"strings"
	"text/template"

	"wingman-relay/internal/domain"
)

// Markers substituted for an empty context or history.
const (
	NoContextMarker = "No additional context provided"
	NoHistoryMarker = "No previous conversation"
)

// ModeProfile is the prompt template and tuning of one completion mode.
type ModeProfile struct {
	Template      string // empty: the user turn is sent alone
	UserLabel     string
	PeerLabel     string
	MaxTokens     int
	Temperature   float64
	TrimText      bool
	Placeholder   string
	FallbackError string
}

// promptData is what a mode template can reference.
type promptData struct {
	Personality domain.Personality
	Context     string
	Transcript  string
	Message     string
}

type compiledMode struct {
	profile ModeProfile
	tmpl    *template.Template
}

// PromptAssembler turns a completion request into the upstream message list.
type PromptAssembler struct {
	modes map[domain.Mode]compiledMode
}

// NewPromptAssembler parses every mode template up front so a broken template
// fails at startup, not on the first request.
func NewPromptAssembler(profiles map[domain.Mode]ModeProfile) (*PromptAssembler, error) {
	a := &PromptAssembler{modes: make(map[domain.Mode]compiledMode, len(profiles))}
	for mode, p := range profiles {
		cm := compiledMode{profile: p}
		if p.Template != "" {
			t, err := template.New(string(mode)).Option("missingkey=error").Parse(p.Template)
			if err != nil {
				return nil, fmt.Errorf("%w: template for mode %s: %v", domain.ErrCatalogInvalid, mode, err)
			}
			cm.tmpl = t
		} else if mode.NeedsPersonality() {
			return nil, fmt.Errorf("%w: mode %s needs a template", domain.ErrCatalogInvalid, mode)
		}
		a.modes[mode] = cm
	}
	return a, nil
}

// Profile returns the tuning profile of mode.
func (a *PromptAssembler) Profile(mode domain.Mode) (ModeProfile, bool) {
	cm, ok := a.modes[mode]
	return cm.profile, ok
}

// Assemble builds the ordered message list: the rendered system prompt, the
// prior turns in order, then the new user turn verbatim. Modes without a
// template send the user turn only.
func (a *PromptAssembler) Assemble(mode domain.Mode, req domain.CompletionRequest, personality domain.Personality) ([]domain.Message, error) {
	cm, ok := a.modes[mode]
	if !ok {
		return nil, domain.NewDomainError("PromptAssembler.Assemble", domain.ErrUnknownMode, string(mode))
	}

	userTurn := domain.Message{Role: domain.RoleUser, Content: req.Message}
	if cm.tmpl == nil {
		return []domain.Message{userTurn}, nil
	}

	data := promptData{
		Personality: personality,
		Context:     req.Context,
		Transcript:  transcript(req.History, cm.profile.UserLabel, cm.profile.PeerLabel),
		Message:     req.Message,
	}
	if data.Context == "" {
		data.Context = NoContextMarker
	}

	var sb strings.Builder
	if err := cm.tmpl.Execute(&sb, data); err != nil {
		return nil, domain.WrapOp("PromptAssembler.Assemble", err)
	}

	msgs := make([]domain.Message, 0, len(req.History)+2)
	msgs = append(msgs, domain.Message{Role: domain.RoleSystem, Content: sb.String()})
	for _, turn := range req.History {
		msgs = append(msgs, domain.Message{Role: upstreamRole(turn.Role), Content: turn.Content})
	}
	msgs = append(msgs, userTurn)
	return msgs, nil
}

// transcript renders prior turns one per line as "<label>: <content>".
func transcript(history []domain.ConversationTurn, userLabel, peerLabel string) string {
	if len(history) == 0 {
		return NoHistoryMarker
	}
	lines := make([]string, len(history))
	for i, turn := range history {
		label := peerLabel
		if turn.Role == domain.RoleUser {
			label = userLabel
		}
		lines[i] = label + ": " + turn.Content
	}
	return strings.Join(lines, "\n")
}

func upstreamRole(role string) string {
	if role == domain.RoleUser {
		return domain.RoleUser
	}
	return domain.RoleAssistant
}
