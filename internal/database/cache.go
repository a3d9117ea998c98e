package database

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/adcompliance/auditor/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// ErrTokenBudgetExhausted is returned by ChargeTokens once an API key has
// spent its daily allowance.
var ErrTokenBudgetExhausted = errors.New("token budget exhausted for today")

const (
	dedupCacheTTL = 24 * time.Hour
	dedupKeyPrefix = "auditor:dedup:"
	tokenKeyPrefix = "auditor:tokens:"
)

// CachingStore wraps a Store with a Redis-backed document-hash dedup cache
// and per-API-key daily token budget enforcement. Audit reads/writes not
// covered by caching pass straight through to the underlying Store.
type CachingStore struct {
	Store
	redis *redis.Client
}

// NewCachingStore wraps store with a Redis client for cache and rate state.
func NewCachingStore(store Store, client *redis.Client) *CachingStore {
	return &CachingStore{Store: store, redis: client}
}

// FingerprintInput returns the dedup cache key for a piece of audit input:
// a stable hash of whatever bytes the caller is about to run through the
// pipeline. Callers hash the same normalized representation they'll extract
// from (raw text body, URL, or file bytes).
func FingerprintInput(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// GetCachedReport returns a previously computed Report for the given input
// hash, if one is cached. A cache miss is not an error: ok is false.
func (c *CachingStore) GetCachedReport(ctx context.Context, inputHash string) (models.Report, bool, error) {
	raw, err := c.redis.Get(ctx, dedupKeyPrefix+inputHash).Bytes()
	if err == redis.Nil {
		return models.Report{}, false, nil
	}
	if err != nil {
		return models.Report{}, false, fmt.Errorf("dedup cache get: %w", err)
	}

	var report models.Report
	if err := json.Unmarshal(raw, &report); err != nil {
		log.Warn().Err(err).Str("inputHash", inputHash).Msg("discarding unparseable cached report")
		return models.Report{}, false, nil
	}
	return report, true, nil
}

// CacheReport stores a Report under its input hash for dedupCacheTTL.
// Failures are logged, not propagated: the cache is an optimization, never
// a dependency of correctness.
func (c *CachingStore) CacheReport(ctx context.Context, inputHash string, report models.Report) {
	raw, err := json.Marshal(report)
	if err != nil {
		log.Warn().Err(err).Msg("failed to marshal report for cache")
		return
	}
	if err := c.redis.Set(ctx, dedupKeyPrefix+inputHash, raw, dedupCacheTTL).Err(); err != nil {
		log.Warn().Err(err).Str("inputHash", inputHash).Msg("failed to write dedup cache entry")
	}
}

// ChargeTokens decrements an API key's remaining daily token budget by cost
// and returns ErrTokenBudgetExhausted once the key's TokensPerDay allowance
// for the current UTC day is spent. The counter resets naturally via a
// midnight-aligned TTL rather than a cron sweep.
func (c *CachingStore) ChargeTokens(ctx context.Context, key *models.APIKey, cost int) error {
	dayKey := tokenKeyPrefix + key.ID + ":" + time.Now().UTC().Format("2006-01-02")

	remaining, err := c.redis.Get(ctx, dayKey).Int()
	if err == redis.Nil {
		remaining = key.TokensPerDay
		if err := c.redis.Set(ctx, dayKey, remaining, untilMidnightUTC()).Err(); err != nil {
			return fmt.Errorf("initializing token budget: %w", err)
		}
	} else if err != nil {
		return fmt.Errorf("reading token budget: %w", err)
	}

	if remaining < cost {
		return ErrTokenBudgetExhausted
	}

	if _, err := c.redis.DecrBy(ctx, dayKey, int64(cost)).Result(); err != nil {
		return fmt.Errorf("charging token budget: %w", err)
	}
	return nil
}

func untilMidnightUTC() time.Duration {
	now := time.Now().UTC()
	midnight := time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, time.UTC)
	return midnight.Sub(now)
}
