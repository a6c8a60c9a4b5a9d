package tool

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/google/uuid"
)

func GenerateRandomUUID() string {
	return uuid.New().String()
}

// GenerateJobID returns the first 8 hex chars of a random UUID, enough to tell log lines of concurrent uploads apart.
func GenerateJobID() string {
	return strings.ReplaceAll(GenerateRandomUUID(), "-", "")[:8]
}

// GenerateSecret returns 32 hex chars, valid as a Telegram webhook secret_token.
func GenerateSecret() string {
	return strings.ReplaceAll(GenerateRandomUUID(), "-", "")
}

// ShortSHA256 returns the hex encoding of the first 16 bytes of sha256(s).
func ShortSHA256(s string) string {
	hash := sha256.Sum256([]byte(s))
	return hex.EncodeToString(hash[:16])
}
