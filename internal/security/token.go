package security

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var ErrInvalidToken = errors.New("invalid token")

// TokenGenerator issues confirmation tokens. Tokens are bearer capabilities:
// whoever holds one can confirm the matching registration.
type TokenGenerator interface {
	NewToken() (string, error)
}

type uuidTokenGenerator struct{}

// NewTokenGenerator returns a generator of random (version 4) UUIDs, which
// carry 122 bits of entropy from crypto/rand.
func NewTokenGenerator() TokenGenerator {
	return uuidTokenGenerator{}
}

func (uuidTokenGenerator) NewToken() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return id.String(), nil
}

// ValidateTokenFormat rejects strings that cannot have been issued by the
// generator, so that obviously forged links never reach the store.
func ValidateTokenFormat(token string) error {
	id, err := uuid.Parse(token)
	if err != nil || id.Version() != 4 || len(token) != 36 {
		return ErrInvalidToken
	}
	return nil
}
