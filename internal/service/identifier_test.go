package service

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSecretID(t *testing.T) {
	id := NewSecretID()
	_, err := uuid.Parse(id)
	assert.NoError(t, err)
	assert.NotEqual(t, id, NewSecretID())
}

func TestNewShortID(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id, err := NewShortID(8)
		require.NoError(t, err)
		require.Len(t, id, 8)
		for _, r := range id {
			assert.True(t, strings.ContainsRune(shortIDAlphabet, r))
		}
		seen[id] = true
	}
	// 100 draws from 62^8 possibilities should never collide.
	assert.Len(t, seen, 100)
}

func TestNewShortIDDefaultsLength(t *testing.T) {
	id, err := NewShortID(0)
	require.NoError(t, err)
	assert.Len(t, id, 8)
}
