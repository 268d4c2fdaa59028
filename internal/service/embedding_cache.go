package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"concierge/internal/logger"

	"github.com/redis/go-redis/v9"
)

// CachedEmbedder memoises query embeddings in Redis. Cache failures are
// logged and bypassed; they never fail an Embed call that the underlying
// embedder could answer.
type CachedEmbedder struct {
	next  Embedder
	redis *redis.Client
	model string
	ttl   time.Duration
	log   logger.Logger
}

// NewCachedEmbedder wraps next with a Redis cache keyed by model and text
func NewCachedEmbedder(next Embedder, client *redis.Client, model string, ttl time.Duration, log logger.Logger) *CachedEmbedder {
	return &CachedEmbedder{
		next:  next,
		redis: client,
		model: model,
		ttl:   ttl,
		log:   log,
	}
}

func (c *CachedEmbedder) cacheKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return "embedding:" + c.model + ":" + hex.EncodeToString(sum[:])
}

// Embed returns the cached vector for text, computing and storing it on a miss.
func (c *CachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	key := c.cacheKey(text)

	val, err := c.redis.Get(ctx, key).Result()
	switch {
	case err == nil:
		var vec []float32
		if jsonErr := json.Unmarshal([]byte(val), &vec); jsonErr == nil && len(vec) > 0 {
			return vec, nil
		}
		c.log.Warn("Discarding corrupt cached embedding", map[string]interface{}{"key": key})
	case !errors.Is(err, redis.Nil):
		c.log.Warn("Embedding cache read failed", map[string]interface{}{"error": err.Error()})
	}

	vec, err := c.next.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(vec)
	if err == nil {
		if setErr := c.redis.Set(ctx, key, data, c.ttl).Err(); setErr != nil {
			c.log.Warn("Embedding cache write failed", map[string]interface{}{"error": setErr.Error()})
		}
	}
	return vec, nil
}
