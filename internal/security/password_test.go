package security

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckPassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		want     error
	}{
		{"too short", "short", ErrPasswordTooShort},
		{"seven multibyte runes", "ünïcödé", ErrPasswordTooShort},
		{"exactly eight", "abcdefgh", nil},
		{"multibyte counts runes", "ünïcödéx", nil},
		{"at bcrypt limit", strings.Repeat("a", MaxPasswordBytes), nil},
		{"past bcrypt limit", strings.Repeat("a", MaxPasswordBytes+1), ErrPasswordTooLong},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, CheckPassword(tt.password), tt.want)
		})
	}
}

func TestHashPassword(t *testing.T) {
	hash, err := HashPassword("password123")
	require.NoError(t, err)

	assert.NotEqual(t, "password123", hash)
	assert.True(t, PasswordMatches(hash, "password123"))
	assert.False(t, PasswordMatches(hash, "password124"))
	assert.False(t, PasswordMatches("not-a-hash", "password123"))
}

func TestBurnCompare(t *testing.T) {
	assert.NotPanics(t, func() { BurnCompare("anything") })
}
