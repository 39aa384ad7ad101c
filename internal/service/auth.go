package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"

	"github.com/cloo-solutions/aqacs/internal/domain"
)

const (
	apiKeyPrefix  = "aq_"
	clientIDBytes = 6
)

// AuthService checks bearer tokens against a fixed set of API keys. Only
// SHA-256 hashes of the keys are kept in memory.
type AuthService struct {
	hashes [][sha256.Size]byte
}

// NewAuthService creates an AuthService from plaintext keys. Blank keys are
// ignored.
func NewAuthService(keys []string) *AuthService {
	s := &AuthService{}
	for _, k := range keys {
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		s.hashes = append(s.hashes, sha256.Sum256([]byte(k)))
	}
	return s
}

// Enabled reports whether any key is configured. With no keys every request
// is let through.
func (s *AuthService) Enabled() bool {
	return len(s.hashes) > 0
}

// ValidateAPIKey returns a stable, non-secret client id for a known token.
func (s *AuthService) ValidateAPIKey(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", domain.ErrInvalidAPIKey
	}
	sum := sha256.Sum256([]byte(token))

	match := 0
	for _, h := range s.hashes {
		match |= subtle.ConstantTimeCompare(sum[:], h[:])
	}
	if match != 1 {
		return "", domain.ErrInvalidAPIKey
	}
	return ClientID(token), nil
}

// ClientID identifies a key in logs without revealing it.
func ClientID(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:clientIDBytes])
}

// GenerateAPIKey returns a new random key: aq_ followed by 64 hex characters.
func GenerateAPIKey() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return apiKeyPrefix + hex.EncodeToString(bytes), nil
}
