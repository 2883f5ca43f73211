package usecase

import (
	"errors"
	"testing"

	"wingman-relay/internal/domain"
)

func TestCredentialValidator(t *testing.T) {
	v := NewCredentialValidator(DefaultCredentialPrefix)

	tests := []struct {
		name       string
		credential string
		wantErr    error
	}{
		{"valid", "sk-or-v1-abc", nil},
		{"prefix only", "sk-", nil},
		{"empty", "", domain.ErrCredentialMissing},
		{"wrong prefix", "pk-123", domain.ErrCredentialMalformed},
		{"uppercase prefix", "SK-123", domain.ErrCredentialMalformed},
		{"leading space", " sk-123", domain.ErrCredentialMalformed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.credential)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("Validate(%q) = %v, want nil", tt.credential, err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate(%q) = %v, want %v", tt.credential, err, tt.wantErr)
			}
			if !errors.Is(err, domain.ErrInvalidInput) {
				t.Errorf("Validate(%q) should be an invalid-input error", tt.credential)
			}
		})
	}
}

func TestCredentialValidatorEmptyPrefix(t *testing.T) {
	v := NewCredentialValidator("")
	if err := v.Validate("anything"); err != nil {
		t.Errorf("Validate: %v", err)
	}
	if err := v.Validate(""); !errors.Is(err, domain.ErrCredentialMissing) {
		t.Errorf("Validate(\"\") = %v, want ErrCredentialMissing", err)
	}
}
