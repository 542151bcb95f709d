package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"intaker/internal/asam"
	"intaker/internal/seal"
)

// EvaluationCache memoizes scoring results keyed by a fingerprint of
// the input. Scoring is deterministic, so identical progress maps or
// transcripts always reproduce the same evaluation; the cache only
// saves recomputation, never changes results.
type EvaluationCache interface {
	Set(ctx context.Context, fingerprint string, result *CachedEvaluation) error
	Get(ctx context.Context, fingerprint string) (*CachedEvaluation, error)
}

// CachedEvaluation is a memoized scoring outcome.
type CachedEvaluation struct {
	Scores      asam.DimensionScores `json:"scores"`
	LevelOfCare asam.LevelOfCare     `json:"levelOfCare"`
}

type evaluationCache struct {
	client *redis.Client
}

func NewEvaluationCache(client *redis.Client) EvaluationCache {
	return &evaluationCache{
		client: client,
	}
}

// FingerprintProgress derives a stable cache key from a progress map.
// Keys are sorted before hashing so insertion order cannot split cache
// entries.
func FingerprintProgress(progress asam.ProgressMap) string {
	content := make(map[string]string, len(progress))
	for k, v := range progress {
		raw, err := json.Marshal(v)
		if err != nil {
			continue
		}
		content[k] = string(raw)
	}
	canonical, err := seal.Canonicalize(content)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:])
}

// FingerprintTranscript derives a stable cache key from raw text.
func FingerprintTranscript(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

func (c *evaluationCache) Set(ctx context.Context, fingerprint string, result *CachedEvaluation) error {
	if fingerprint == "" {
		return nil
	}
	data, err := json.Marshal(result)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, "eval:"+fingerprint, data, 30*time.Minute).Err()
}

func (c *evaluationCache) Get(ctx context.Context, fingerprint string) (*CachedEvaluation, error) {
	if fingerprint == "" {
		return nil, nil
	}
	data, err := c.client.Get(ctx, "eval:"+fingerprint).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var result CachedEvaluation
	err = json.Unmarshal([]byte(data), &result)
	return &result, err
}
