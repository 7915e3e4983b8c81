package utils

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// GenerateEntryNumber derives a human-readable journal entry number from the
// posting date plus a random disambiguator, e.g. "JE-20250131-4F7A2C".
// Uniqueness is best-effort; the entry ID remains the identity.
func GenerateEntryNumber(postingDate time.Time) (string, error) {
	suffix, err := generateRandomHex(3)
	if err != nil {
		return "", fmt.Errorf("failed to generate entry number suffix: %w", err)
	}
	return fmt.Sprintf("JE-%s-%s", postingDate.UTC().Format("20060102"), strings.ToUpper(suffix)), nil
}

// generateRandomHex returns a cryptographically random hex string of
// 2*lengthInBytes characters.
func generateRandomHex(lengthInBytes int) (string, error) {
	b := make([]byte, lengthInBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return hex.EncodeToString(b), nil
}
