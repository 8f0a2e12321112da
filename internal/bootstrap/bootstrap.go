// Package bootstrap wires configuration into a ready ComplianceService. It is
// shared by the API server and the command line tools.
package bootstrap

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/AmmarJamshed/FDA-checker/internal/adapters/artifacts"
	"github.com/AmmarJamshed/FDA-checker/internal/adapters/cache"
	"github.com/AmmarJamshed/FDA-checker/internal/adapters/classifier"
	"github.com/AmmarJamshed/FDA-checker/internal/adapters/events"
	"github.com/AmmarJamshed/FDA-checker/internal/application/services"
	"github.com/AmmarJamshed/FDA-checker/internal/domain/providers"
	"github.com/AmmarJamshed/FDA-checker/internal/infrastructure/clients/postgres"
	"github.com/AmmarJamshed/FDA-checker/internal/infrastructure/clients/redis"
	"github.com/AmmarJamshed/FDA-checker/internal/infrastructure/observability"
	"github.com/AmmarJamshed/FDA-checker/pkg/config"
	apperrors "github.com/AmmarJamshed/FDA-checker/pkg/errors"
)

// Closer releases whatever Build opened.
type Closer func()

// Refs maps the artifact configuration onto store lookups. The file store is
// addressed by path, the postgres store by name.
func Refs(cfg config.ArtifactsConfig) services.ArtifactRefs {
	if cfg.Source == config.ArtifactSourcePostgres {
		refs := services.ArtifactRefs{Model: cfg.ModelName}
		if cfg.PhaseEncoderPath != "" {
			refs.PhaseEncoder = artifacts.NameFromPath(cfg.PhaseEncoderPath)
		}
		if cfg.TrialResultsEncoderPath != "" {
			refs.TrialResultsEncoder = artifacts.NameFromPath(cfg.TrialResultsEncoderPath)
		}
		return refs
	}
	return services.ArtifactRefs{
		Model:               cfg.ModelPath,
		PhaseEncoder:        cfg.PhaseEncoderPath,
		TrialResultsEncoder: cfg.TrialResultsEncoderPath,
	}
}

// Options maps the policy configuration onto service options.
func Options(cfg config.PolicyConfig) services.ComplianceOptions {
	return services.ComplianceOptions{
		UnseenCategory: services.UnseenCategoryPolicy(cfg.UnseenCategory),
		DrugName:       services.DrugNamePolicy(cfg.DrugName),
	}
}

// OpenStore returns the artifact store selected by ARTIFACT_SOURCE.
func OpenStore(ctx context.Context, cfg *config.Config) (providers.ArtifactStore, Closer, error) {
	if cfg.Artifacts.Source != config.ArtifactSourcePostgres {
		return artifacts.NewFileStore(""), func() {}, nil
	}

	pgClient, err := postgres.NewClient(ctx, &cfg.Database)
	if err != nil {
		return nil, nil, apperrors.NewStartupError("failed to connect to artifact database", err)
	}
	return artifacts.NewPostgresStore(pgClient), func() { pgClient.Close() }, nil
}

// Build loads the model context and returns a service ready to evaluate.
// A Redis verdict cache is layered over the classifier when enabled and
// reachable; the service runs uncached otherwise.
func Build(ctx context.Context, cfg *config.Config, metrics *observability.Metrics) (*services.ComplianceService, Closer, error) {
	svc, _, closer, err := build(ctx, cfg, metrics, false)
	return svc, closer, err
}

// BuildServer is Build plus the evaluation event bus used by the API. The bus
// is nil when Redis is disabled or unreachable.
func BuildServer(ctx context.Context, cfg *config.Config, metrics *observability.Metrics) (*services.ComplianceService, providers.EventBus, Closer, error) {
	return build(ctx, cfg, metrics, true)
}

func build(ctx context.Context, cfg *config.Config, metrics *observability.Metrics, withEvents bool) (*services.ComplianceService, providers.EventBus, Closer, error) {
	store, closeStore, err := OpenStore(ctx, cfg)
	if err != nil {
		return nil, nil, nil, err
	}

	model, err := services.LoadModelContext(ctx, store, Refs(cfg.Artifacts))
	closeStore()
	if err != nil {
		return nil, nil, nil, err
	}

	closer := func() {}
	var bus *events.RedisEventBus
	if cfg.Redis.Enabled {
		redisClient, err := redis.NewClient(ctx, &cfg.Redis)
		if err != nil {
			log.Warn().Err(err).Msg("redis unavailable, verdict cache and event stream disabled")
		} else {
			ttl := time.Duration(cfg.Redis.VerdictCacheTTL) * time.Second
			cacheProvider := cache.NewRedisAdapter(redisClient, "fda-checker")
			model = model.WithClassifier(classifier.NewCachedClassifier(model.Classifier(), cacheProvider, model.Info().Version, ttl, metrics))
			log.Info().Dur("ttl", ttl).Msg("verdict cache enabled")

			if withEvents {
				bus = events.NewRedisEventBus(redisClient)
			}
			closer = func() {
				if bus != nil {
					_ = bus.Close()
				}
				redisClient.Close()
			}
		}
	}

	svc := services.NewComplianceService(model, Options(cfg.Policy), metrics)
	if bus == nil {
		return svc, nil, closer, nil
	}
	return svc.WithEventPublisher(bus), bus, closer, nil
}
