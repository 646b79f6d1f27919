package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"envvault-backend-go/internal/crypto"
	"envvault-backend-go/internal/models"
)

func TestMaskValue(t *testing.T) {
	cases := []struct {
		value    string
		expected string
	}{
		{"", "****"},
		{"a", "****"},
		{"abcd", "****"},     // short secrets never reveal their length
		{"abcde", "ab*de"},
		{"secretvalue", "se*******ue"},
		{"日本語ひみつです", "日本****です"}, // rune boundaries, not bytes
	}
	for _, tc := range cases {
		assert.Equal(t, tc.expected, MaskValue(tc.value), "value %q", tc.value)
	}
}

func TestPresentValueNonSecretPassesThrough(t *testing.T) {
	codec, err := crypto.NewCodec("test-master-key")
	require.NoError(t, err)

	for _, role := range []models.Role{models.RoleOwner, models.RoleAdmin, models.RoleDeveloper} {
		value, err := PresentValue(codec, "plain-value", false, role, false)
		require.NoError(t, err)
		assert.Equal(t, "plain-value", value)
	}
}

func TestPresentValueSecretByRole(t *testing.T) {
	codec, err := crypto.NewCodec("test-master-key")
	require.NoError(t, err)
	stored, err := codec.Encrypt("super-secret-value")
	require.NoError(t, err)

	// OWNER always gets plaintext, reveal flag or not.
	value, err := PresentValue(codec, stored, true, models.RoleOwner, false)
	require.NoError(t, err)
	assert.Equal(t, "super-secret-value", value)

	// ADMIN gets the mask by default.
	value, err = PresentValue(codec, stored, true, models.RoleAdmin, false)
	require.NoError(t, err)
	assert.Equal(t, MaskValue("super-secret-value"), value)

	// ADMIN with an explicit reveal gets plaintext.
	value, err = PresentValue(codec, stored, true, models.RoleAdmin, true)
	require.NoError(t, err)
	assert.Equal(t, "super-secret-value", value)
}

func TestPresentValueMaskTracksPlaintextLength(t *testing.T) {
	codec, err := crypto.NewCodec("test-master-key")
	require.NoError(t, err)
	stored, err := codec.Encrypt("abcdef")
	require.NoError(t, err)

	// The mask is computed from the decrypted plaintext, never from the
	// (much longer) ciphertext.
	value, err := PresentValue(codec, stored, true, models.RoleAdmin, false)
	require.NoError(t, err)
	assert.Equal(t, "ab**ef", value)
}

func TestPresentValueDecryptionFailureIsAFault(t *testing.T) {
	codec, err := crypto.NewCodec("test-master-key")
	require.NoError(t, err)

	_, err = PresentValue(codec, "garbage-ciphertext", true, models.RoleOwner, false)
	assert.ErrorIs(t, err, ErrDecryptionFailed)
}
