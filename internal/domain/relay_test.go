package domain

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModeNeedsPersonality(t *testing.T) {
	assert.False(t, ModePlain.NeedsPersonality())
	assert.True(t, ModeCoach.NeedsPersonality())
	assert.True(t, ModeReply.NeedsPersonality())
	assert.False(t, Mode("poem").NeedsPersonality())
}

func TestPersonalityJSONHidesSystemPrompt(t *testing.T) {
	data, err := json.Marshal(Personality{ID: "casual", Name: "Casual", Description: "Fun", SystemPrompt: "secret"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"casual","name":"Casual","description":"Fun"}`, string(data))
}

func TestModelDescriptorJSON(t *testing.T) {
	data, err := json.Marshal(Catalog{Models: []ModelDescriptor{{ID: "a:free", Name: "A", Provider: "OpenRouter", IsFree: true}}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"models":[{"id":"a:free","name":"A","provider":"OpenRouter","isFree":true}]}`, string(data))
}

func TestErrorOutcome(t *testing.T) {
	cause := &UpstreamError{StatusCode: 429}
	out := &ErrorOutcome{Category: CategoryUpstreamRateLimit, Message: "slow down", HTTPStatus: 429, Cause: cause}

	assert.Equal(t, "upstream_rate_limit (429): slow down", out.Error())
	assert.True(t, errors.Is(out, ErrRateLimit))

	var ue *UpstreamError
	require.True(t, errors.As(out, &ue))
	assert.Equal(t, 429, ue.StatusCode)
}

func TestRequestStateTerminal(t *testing.T) {
	terminal := map[RequestState]bool{
		StateReceived:        false,
		StateValidating:      false,
		StateRejected:        true,
		StateRouting:         false,
		StateCallingUpstream: false,
		StateSucceeded:       true,
		StateFailed:          true,
		StateResponded:       false,
	}
	for state, want := range terminal {
		assert.Equal(t, want, state.Terminal(), string(state))
	}
}
