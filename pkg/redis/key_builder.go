package redis

import "fmt"

// KeyBuilder provides environment-aware Redis key building functionality
type KeyBuilder struct {
	prefix string // Environment prefix (staging/prod)
}

// NewKeyBuilder creates a new key builder with environment-based prefix
func NewKeyBuilder(environment string) *KeyBuilder {
	prefix := "prod"
	if environment == "development" || environment == "staging" || environment == "test" {
		prefix = "staging"
	}

	return &KeyBuilder{prefix: prefix}
}

// BuildKey constructs a Redis key with the environment prefix
func (kb *KeyBuilder) BuildKey(key string) string {
	return fmt.Sprintf("%s:%s", kb.prefix, key)
}

// GetPrefix returns the current environment prefix
func (kb *KeyBuilder) GetPrefix() string {
	return kb.prefix
}

// Leaderboard key builders

func (kb *KeyBuilder) KeyLeaderboardGlobal() string {
	return kb.BuildKey(KeyLeaderboardGlobal)
}

func (kb *KeyBuilder) KeyLeaderboardWindowed(period string) string {
	return kb.BuildKey(fmt.Sprintf(KeyLeaderboardWindowed, period))
}

func (kb *KeyBuilder) KeyPosition(participantID string) string {
	return kb.BuildKey(fmt.Sprintf(KeyPosition, participantID))
}

// Claim key builders

func (kb *KeyBuilder) KeyIdempotency(key string) string {
	return kb.BuildKey(fmt.Sprintf(KeyIdempotency, key))
}

// Reconciliation key builders

func (kb *KeyBuilder) KeyReconcilePending() string {
	return kb.BuildKey(KeyReconcilePending)
}

// KeyCustom builds a key from a custom pattern
func (kb *KeyBuilder) KeyCustom(pattern string, args ...interface{}) string {
	return kb.BuildKey(fmt.Sprintf(pattern, args...))
}
