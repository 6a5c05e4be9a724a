package config

import "time"

// IdempotencyConfig controls replay of payment submissions carrying an
// Idempotency-Key header.  Responses are kept in Redis for TTL; a key in
// flight is locked for LockTTL so a concurrent duplicate is rejected
// rather than executed twice.
type IdempotencyConfig struct {
	Enabled      bool
	Header       string
	TTL          time.Duration
	LockTTL      time.Duration
	Prefix       string
	MaxBodyBytes int
}

func LoadIdempotencyConfig() IdempotencyConfig {
	cfg := IdempotencyConfig{
		Enabled:      envBool("IDEMPOTENCY_ENABLED", true),
		Header:       envStr("IDEMPOTENCY_HEADER", "Idempotency-Key"),
		TTL:          envDur("IDEMPOTENCY_TTL", 24*time.Hour),
		LockTTL:      envDur("IDEMPOTENCY_LOCK_TTL", 30*time.Second),
		Prefix:       envStr("IDEMPOTENCY_PREFIX", "idem"),
		MaxBodyBytes: envInt("IDEMPOTENCY_MAX_BODY_BYTES", 64<<10),
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 24 * time.Hour
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 30 * time.Second
	}
	return cfg
}
