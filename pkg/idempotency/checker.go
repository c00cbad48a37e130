package idempotency

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

const (
	// DefaultTTL is how long a deposit claim outlives the request that took it
	DefaultTTL = 24 * time.Hour

	// MaxTTL is the maximum allowed TTL for claims (7 days)
	MaxTTL = 7 * 24 * time.Hour

	maxKeyLength = 255
)

// ValidateKey validates an external payment reference used as an idempotency key
func ValidateKey(key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("idempotency key cannot be empty")
	}
	if len(key) > maxKeyLength {
		return fmt.Errorf("idempotency key must not exceed %d characters", maxKeyLength)
	}
	for _, c := range key {
		if !((c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') ||
			(c >= '0' && c <= '9') || c == '-' || c == '_' || c == '.' || c == ':') {
			return fmt.Errorf("idempotency key contains invalid character: %c", c)
		}
	}
	return nil
}

// ValidateTTL validates and normalizes the TTL
func ValidateTTL(ttl time.Duration) (time.Duration, error) {
	if ttl == 0 {
		return DefaultTTL, nil
	}
	if ttl < time.Minute {
		return 0, fmt.Errorf("TTL must be at least 1 minute")
	}
	if ttl > MaxTTL {
		return 0, fmt.Errorf("TTL cannot exceed %v", MaxTTL)
	}
	return ttl, nil
}

// ScopedKey namespaces a key so refs from different payment methods never collide.
// The result is a fixed-length hash suitable for any backing store.
func ScopedKey(scope, key string) string {
	sum := sha256.Sum256([]byte(scope + "\x00" + strings.TrimSpace(key)))
	return scope + ":" + hex.EncodeToString(sum[:16])
}
