package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"
)

// Admin token format: plt_admin_{secret}
const (
	TokenPrefix    = "plt_admin_"
	TokenSecretLen = 48 // hex encoded 24 bytes
)

var (
	// ErrInvalidTokenFormat indicates the token format is invalid.
	ErrInvalidTokenFormat = errors.New("invalid admin token format")

	tokenFormatRegex = regexp.MustCompile(`^plt_admin_[a-f0-9]{48}$`)
)

// GeneratedToken holds a freshly minted admin token.
type GeneratedToken struct {
	Plaintext string // show once only
	Hash      string // value for ADMIN_TOKEN_HASH
}

// GenerateAdminToken creates a random admin token and its Argon2id hash.
func GenerateAdminToken() (*GeneratedToken, error) {
	secret := make([]byte, TokenSecretLen/2)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("generate secret: %w", err)
	}

	plaintext := TokenPrefix + hex.EncodeToString(secret)
	hash, err := HashToken(plaintext)
	if err != nil {
		return nil, fmt.Errorf("hash token: %w", err)
	}

	return &GeneratedToken{Plaintext: plaintext, Hash: hash}, nil
}

// ValidateTokenFormat checks if token matches the admin token format.
func ValidateTokenFormat(token string) bool {
	return tokenFormatRegex.MatchString(token)
}
