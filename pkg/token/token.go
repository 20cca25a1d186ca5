package token

import (
	"crypto/rand"
	"fmt"
	"regexp"
)

const alphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// maxUsable is the largest multiple of len(alphabet) that fits in a byte.
// Bytes at or above it are discarded so every alphabet character stays
// equally likely.
const maxUsable = byte(252)

// Generate returns a cryptographically random token of the given length over
// the lowercase alphanumeric alphabet.
func Generate(length int) (string, error) {
	if length <= 0 {
		return "", fmt.Errorf("invalid token length: %d", length)
	}

	out := make([]byte, 0, length)
	buf := make([]byte, 2*length)
	for len(out) < length {
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("failed to read random bytes: %w", err)
		}
		out = appendMapped(out, buf, length)
	}
	return string(out), nil
}

// appendMapped maps random bytes onto the alphabet until out reaches length,
// rejecting bytes that would skew the distribution.
func appendMapped(out, random []byte, length int) []byte {
	for _, b := range random {
		if len(out) == length {
			break
		}
		if b >= maxUsable {
			continue
		}
		out = append(out, alphabet[int(b)%len(alphabet)])
	}
	return out
}

// Pattern compiles the shape check for tokens of the given length. Matching
// is case-insensitive, as tokens may round-trip through user input.
func Pattern(length int) *regexp.Regexp {
	return regexp.MustCompile(fmt.Sprintf(`^(?i)[a-z0-9]{%d}$`, length))
}
