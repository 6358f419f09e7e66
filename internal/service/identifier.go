package service

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/google/uuid"
)

const shortIDAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// NewSecretID returns a globally unique secret identifier.
func NewSecretID() string {
	return uuid.NewString()
}

// NewShortID returns a URL-safe identifier of the given length drawn
// uniformly from a 62-character alphabet. Generation is independent of
// any uniqueness check; the creation path retries on insert conflict.
func NewShortID(length int) (string, error) {
	if length <= 0 {
		length = 8
	}
	max := big.NewInt(int64(len(shortIDAlphabet)))
	buf := make([]byte, length)
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("generate short id: %w", err)
		}
		buf[i] = shortIDAlphabet[n.Int64()]
	}
	return string(buf), nil
}
