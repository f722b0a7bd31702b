package app

import (
	"encoding/base64"
	"encoding/hex"
	"strings"
)

// KeyByteLength returns the decoded byte length of a secret string.
// It supports hex, base64, and raw string encodings.
func KeyByteLength(value string) int {
	v := strings.TrimSpace(value)
	if v == "" {
		return 0
	}

	// Hex first, so "abab.." counts decoded bytes rather than characters.
	if len(v)%2 == 0 {
		if decoded, err := hex.DecodeString(v); err == nil {
			return len(decoded)
		}
	}

	if decoded, err := base64.StdEncoding.DecodeString(v); err == nil {
		return len(decoded)
	}
	if decoded, err := base64.RawStdEncoding.DecodeString(v); err == nil {
		return len(decoded)
	}

	return len(v)
}
