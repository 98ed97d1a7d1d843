package generator

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
)

// DefaultCodeLength is the length of short codes generated when the caller
// does not supply one.
const DefaultCodeLength = 6

// ErrInvalidLength is returned for negative lengths.
var ErrInvalidLength = errors.New("code length must not be negative")

// GenerateCode returns a URL-safe random code of exactly length characters.
// Uniqueness is not checked here; the store rejects duplicates.
func GenerateCode(length int) (string, error) {
	if length < 0 {
		return "", ErrInvalidLength
	}
	if length == 0 {
		return "", nil
	}

	// base64 yields 4 characters per 3 bytes, so length bytes always
	// encode to at least length characters.
	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}

	return base64.RawURLEncoding.EncodeToString(b)[:length], nil
}
