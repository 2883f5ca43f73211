package usecase

import (
	"strings"

	"wingman-relay/internal/domain"
)

// DefaultCredentialPrefix is the prefix every OpenRouter key carries.
const DefaultCredentialPrefix = "sk-"

// CredentialValidator performs the purely syntactic credential check.
// It never contacts the upstream; a well-formed but revoked key is only
// detected when the upstream answers 401.
type CredentialValidator struct {
	prefix string
}

// NewCredentialValidator creates a validator for keys starting with prefix.
// An empty prefix accepts any non-empty credential.
func NewCredentialValidator(prefix string) *CredentialValidator {
	return &CredentialValidator{prefix: prefix}
}

// Validate returns ErrCredentialMissing or ErrCredentialMalformed.
func (v *CredentialValidator) Validate(credential string) error {
	if credential == "" {
		return domain.NewDomainError("CredentialValidator.Validate", domain.ErrCredentialMissing, "")
	}
	if !strings.HasPrefix(credential, v.prefix) {
		return domain.NewDomainError("CredentialValidator.Validate", domain.ErrCredentialMalformed, "missing "+v.prefix+" prefix")
	}
	return nil
}

// Prefix returns the required prefix.
func (v *CredentialValidator) Prefix() string { return v.prefix }
