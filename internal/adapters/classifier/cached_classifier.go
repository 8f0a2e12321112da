package classifier

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/AmmarJamshed/FDA-checker/internal/domain/entities"
	"github.com/AmmarJamshed/FDA-checker/internal/domain/providers"
	"github.com/AmmarJamshed/FDA-checker/internal/infrastructure/observability"
)

const verdictCacheName = "verdict"

// CachedClassifier memoizes predictions per model version and feature
// vector. The classifier is a pure function of the vector, so a cached label
// is always the label the model would return. Cache failures fall through to
// the wrapped classifier.
type CachedClassifier struct {
	next    providers.ComplianceClassifier
	cache   providers.CacheProvider
	version string
	ttl     time.Duration
	metrics *observability.Metrics
}

// NewCachedClassifier wraps next with a verdict cache.
func NewCachedClassifier(next providers.ComplianceClassifier, cache providers.CacheProvider, version string, ttl time.Duration, metrics *observability.Metrics) *CachedClassifier {
	return &CachedClassifier{
		next:    next,
		cache:   cache,
		version: version,
		ttl:     ttl,
		metrics: metrics,
	}
}

func verdictCacheKey(version string, f entities.FeatureVector) string {
	return fmt.Sprintf("verdict:%s:%d:%d:%d:%d", version, f.Phase, f.SafetyData, f.EfficacyData, f.TrialResults)
}

// Predict returns the cached label or asks the wrapped classifier.
func (c *CachedClassifier) Predict(ctx context.Context, features entities.FeatureVector) (int, error) {
	key := verdictCacheKey(c.version, features)

	if cached, err := c.cache.Get(ctx, key); err == nil {
		if label, convErr := strconv.Atoi(string(cached)); convErr == nil {
			observability.RecordCacheHit(ctx, c.metrics, verdictCacheName)
			return label, nil
		}
		log.Warn().Str("key", key).Msg("discarding unreadable cached verdict")
	}
	observability.RecordCacheMiss(ctx, c.metrics, verdictCacheName)

	label, err := c.next.Predict(ctx, features)
	if err != nil {
		return 0, err
	}

	if err := c.cache.Set(ctx, key, []byte(strconv.Itoa(label)), c.ttl); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("failed to cache verdict")
	}
	return label, nil
}
