package core

import (
	"fmt"
	"strings"

	"envvault-backend-go/internal/crypto"
	"envvault-backend-go/internal/models"
)

// maskToken is what any secret of four characters or fewer masks to, so the
// mask never reveals that a short secret is short.
const maskToken = "****"

// MaskValue returns the cosmetic masked rendering of a secret value: the
// first two and last two characters with a run of '*' covering the middle.
// Values of four characters or fewer collapse to the fixed four-star token.
// The result is never persisted.
func MaskValue(value string) string {
	runes := []rune(value)
	if len(runes) <= 4 {
		return maskToken
	}
	return string(runes[:2]) + strings.Repeat("*", len(runes)-4) + string(runes[len(runes)-2:])
}

// PresentValue decides the three-way outcome for a stored variable value:
// full plaintext, masked rendering, or a decryption fault.
//
// Non-secret values are stored in plain text and returned unchanged. Secret
// values are decrypted first — masking is applied to the plaintext so the
// mask length tracks the real value — and then revealed only to OWNER, or to
// ADMIN when the caller explicitly asked to reveal. Everyone else who got
// past the view gate sees the mask.
//
// A decryption failure is a server-side fault (master key mismatch), never a
// permission refusal, and is never silently masked.
func PresentValue(codec *crypto.Codec, storedValue string, isSecret bool, role models.Role, revealRequested bool) (string, error) {
	if !isSecret {
		return storedValue, nil
	}

	decrypted, err := codec.Decrypt(storedValue)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecryptionFailed, err)
	}

	if role == models.RoleOwner || (role == models.RoleAdmin && revealRequested) {
		return decrypted, nil
	}
	return MaskValue(decrypted), nil
}
