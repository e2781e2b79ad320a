package pass

import (
	"fmt"

	nanoid "github.com/matoous/go-nanoid/v2"
)

// codeAlphabet is the character set for short codes. Uppercase only, with the
// lookalikes 0/O/1/I removed: guards read these codes off phone screens and
// visitors type them on keypads.
const codeAlphabet = "23456789ABCDEFGHJKLMNPQRSTUVWXYZ"

// codeLength gives 32^8 possible codes, comfortably sparse for one colonia.
const codeLength = 8

// NewShortCode generates a human-typeable pass code backed by nanoid.
// Uniqueness is enforced by the store, not here; callers retry on collision.
func NewShortCode() (string, error) {
	code, err := nanoid.Generate(codeAlphabet, codeLength)
	if err != nil {
		return "", fmt.Errorf("generating short code: %w", err)
	}
	return code, nil
}
