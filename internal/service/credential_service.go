package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"

	"golang.org/x/crypto/bcrypt"

	appErrors "github.com/noah-isme/sma-roster-api/pkg/errors"
)

type handleChecker interface {
	HandleExists(ctx context.Context, handle string) (bool, error)
}

// passwordAlphabet excludes look-alike characters (0/O, 1/l/I) because these
// passwords are read off a printed credential sheet.
const passwordAlphabet = "abcdefghijkmnpqrstuvwxyzABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const passwordLength = 12

// CredentialService mints initial secrets and unique handles for records the
// reconciler creates.
type CredentialService struct {
	staff       handleChecker
	maxAttempts int
}

// NewCredentialService constructs a CredentialService. maxAttempts bounds the
// handle uniqueness retry loop.
func NewCredentialService(staff handleChecker, maxAttempts int) *CredentialService {
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	return &CredentialService{staff: staff, maxAttempts: maxAttempts}
}

// GeneratePassword returns a random initial password.
func (s *CredentialService) GeneratePassword() (string, error) {
	var b strings.Builder
	for i := 0; i < passwordLength; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(passwordAlphabet))))
		if err != nil {
			return "", fmt.Errorf("generate password: %w", err)
		}
		b.WriteByte(passwordAlphabet[n.Int64()])
	}
	return b.String(), nil
}

// HashPassword hashes a generated password for storage.
func (s *CredentialService) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// GenerateHandle derives a unique handle from base by appending a numeric
// suffix when base is taken. The attempt count is bounded; exhausting it
// returns a retry error rather than looping forever on a pathological table.
func (s *CredentialService) GenerateHandle(ctx context.Context, base string) (string, error) {
	base = strings.TrimSpace(strings.ToLower(base))
	if base == "" {
		return "", appErrors.Clone(appErrors.ErrValidation, "handle base is empty")
	}

	candidate := base
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		taken, err := s.staff.HandleExists(ctx, candidate)
		if err != nil {
			return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "check handle availability")
		}
		if !taken {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s%d", base, attempt)
	}
	return "", appErrors.Clone(appErrors.ErrRetryExhausted, fmt.Sprintf("no free handle derived from %q after %d attempts", base, s.maxAttempts))
}

// SyntheticHandle mints a unique handle for provider-sourced rows that carry
// no contact identifier, in the idm<random> shape the identity provider uses.
func (s *CredentialService) SyntheticHandle(ctx context.Context) (string, error) {
	suffix := make([]byte, 4)
	if _, err := rand.Read(suffix); err != nil {
		return "", fmt.Errorf("generate handle suffix: %w", err)
	}
	return s.GenerateHandle(ctx, "idm"+hex.EncodeToString(suffix))
}
