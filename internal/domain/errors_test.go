package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDomainErrorFormat(t *testing.T) {
	err := NewDomainError("PersonalityRegistry.Lookup", ErrUnknownPersonality, "hookup")
	want := "PersonalityRegistry.Lookup: hookup: personality not found"
	if err.Error() != want {
		t.Errorf("got %q, want %q", err.Error(), want)
	}
}

func TestDomainErrorFormatNoDetail(t *testing.T) {
	err := NewDomainError("CredentialValidator.Validate", ErrCredentialMissing, "")
	want := "CredentialValidator.Validate: invalid input: credential is empty"
	if err.Error() != want {
		t.Errorf("got %q, want %q", err.Error(), want)
	}
}

func TestDomainErrorUnwrap(t *testing.T) {
	err := NewDomainError("CredentialValidator.Validate", ErrCredentialMalformed, "missing sk- prefix")
	if !errors.Is(err, ErrCredentialMalformed) {
		t.Error("errors.Is should match ErrCredentialMalformed")
	}
	if !errors.Is(err, ErrInvalidInput) {
		t.Error("errors.Is should match the ErrInvalidInput category")
	}
}

func TestDomainErrorAs(t *testing.T) {
	err := fmt.Errorf("relay: %w", NewDomainError("Relay.validate", ErrMissingFields, ""))
	var de *DomainError
	if !errors.As(err, &de) {
		t.Fatal("errors.As should match *DomainError")
	}
	if de.Op != "Relay.validate" {
		t.Errorf("Op = %q, want %q", de.Op, "Relay.validate")
	}
}

// --- ErrorCode tests ---

func TestErrorCodeOf_DirectSentinel(t *testing.T) {
	assert.Equal(t, CodeUnknownPersonality, ErrorCodeOf(ErrUnknownPersonality))
	assert.Equal(t, CodeCredentialMalformed, ErrorCodeOf(ErrCredentialMalformed))
	assert.Equal(t, CodeRateLimit, ErrorCodeOf(ErrRateLimit))
	assert.Equal(t, CodeCircuitOpen, ErrorCodeOf(ErrCircuitOpen))
}

func TestErrorCodeOf_MostSpecificWins(t *testing.T) {
	assert.Equal(t, CodeCircuitOpen, ErrorCodeOf(fmt.Errorf("%w: upstream %q", ErrCircuitOpen, "openrouter")))
	assert.Equal(t, CodeUpstreamUnreachable, ErrorCodeOf(fmt.Errorf("%w: dial tcp", ErrUpstreamUnreachable)))
	assert.Equal(t, CodeTimeout, ErrorCodeOf(fmt.Errorf("%w: %w: i/o timeout", ErrUpstreamUnreachable, ErrTimeout)))
	assert.Equal(t, CodeMissingFields, ErrorCodeOf(NewDomainError("Relay.validate", ErrMissingFields, "")))
	assert.Equal(t, CodeInvalidInput, ErrorCodeOf(fmt.Errorf("wrapped: %w", ErrInvalidInput)))
}

func TestErrorCodeOf_UpstreamError(t *testing.T) {
	tests := []struct {
		status int
		want   ErrorCode
	}{
		{401, CodeAuthInvalid},
		{429, CodeRateLimit},
		{400, CodeUpstreamBadRequest},
		{402, CodeProviderError},
		{503, CodeProviderError},
	}
	for _, tt := range tests {
		err := fmt.Errorf("complete: %w", &UpstreamError{StatusCode: tt.status})
		assert.Equal(t, tt.want, ErrorCodeOf(err), "status %d", tt.status)
	}
}

func TestErrorCodeOf_UnknownAndNil(t *testing.T) {
	assert.Equal(t, CodeUnknown, ErrorCodeOf(errors.New("something else")))
	assert.Equal(t, CodeUnknown, ErrorCodeOf(nil))
}

func TestDomainError_Code(t *testing.T) {
	err := NewDomainError("Relay.Complete", ErrUnknownMode, "poem")
	assert.Equal(t, CodeUnknownMode, err.Code())
}

func TestAllSentinelsHaveCodes(t *testing.T) {
	require.NotEmpty(t, errorCodeMap)
	for sentinel, code := range errorCodeMap {
		assert.NotEmpty(t, code, "sentinel %v has empty code", sentinel)
		assert.NotEqual(t, CodeUnknown, code, "sentinel %v maps to UNKNOWN", sentinel)
	}
	for _, sentinel := range specificity {
		_, ok := errorCodeMap[sentinel]
		assert.True(t, ok, "sentinel %v in specificity has no code", sentinel)
	}
}

// --- UpstreamError tests ---

func TestUpstreamErrorUnwrap(t *testing.T) {
	assert.ErrorIs(t, &UpstreamError{StatusCode: 401}, ErrAuthInvalid)
	assert.ErrorIs(t, &UpstreamError{StatusCode: 429}, ErrRateLimit)
	assert.ErrorIs(t, &UpstreamError{StatusCode: 400}, ErrUpstreamBadRequest)
	assert.ErrorIs(t, &UpstreamError{StatusCode: 500}, ErrProviderError)
	assert.Equal(t, "upstream API error 502: bad gateway", (&UpstreamError{StatusCode: 502, Body: "bad gateway"}).Error())
}

func TestIsUpstreamFault(t *testing.T) {
	assert.False(t, IsUpstreamFault(nil))
	assert.False(t, IsUpstreamFault(&UpstreamError{StatusCode: 401}))
	assert.False(t, IsUpstreamFault(&UpstreamError{StatusCode: 429}))
	assert.False(t, IsUpstreamFault(&UpstreamError{StatusCode: 400}))
	assert.True(t, IsUpstreamFault(&UpstreamError{StatusCode: 500}))
	assert.True(t, IsUpstreamFault(fmt.Errorf("wrap: %w", &UpstreamError{StatusCode: 503})))
	assert.True(t, IsUpstreamFault(fmt.Errorf("%w: connection refused", ErrUpstreamUnreachable)))
	assert.False(t, IsUpstreamFault(errors.New("decode: unexpected EOF")))
}

// --- WrapOp tests ---

func TestWrapOp_Nil(t *testing.T) {
	assert.Nil(t, WrapOp("anything", nil))
}

func TestWrapOp_Chain(t *testing.T) {
	inner := WrapOp("inner", ErrCatalogInvalid)
	outer := WrapOp("outer", inner)
	assert.Equal(t, "outer: inner: deployment catalog invalid", outer.Error())
	assert.True(t, errors.Is(outer, ErrCatalogInvalid))
	assert.Equal(t, CodeCatalogInvalid, ErrorCodeOf(outer))
}
