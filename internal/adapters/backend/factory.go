package backend

import (
	"github.com/redis/go-redis/v9"

	"athena/internal/adapters/config"
	"athena/internal/domain/model"
	"athena/pkg/errors"
)

// BuildAdapters constructs one adapter per configured backend family.
// A family is enabled when its runtime endpoint (or model path) is set.
// redisClient is optional; when present and distributed rate limiting is
// enabled, limits are shared across replicas.
func BuildAdapters(cfg *config.Config, redisClient *redis.Client) (map[model.BackendKind]Adapter, error) {
	adapters := make(map[model.BackendKind]Adapter)

	if cfg.Backends.GeneralURL != "" || cfg.Backends.GeneralKey != "" {
		limiter := buildLimiter(cfg, redisClient, model.KindGeneral, cfg.RateLimits.GeneralReqPerMinute)
		adapters[model.KindGeneral] = NewGeneralAdapter(
			cfg.Backends.GeneralURL, cfg.Backends.GeneralKey, cfg.Backends.Timeout, limiter)
	}

	if cfg.Backends.VisionURL != "" {
		limiter := buildLimiter(cfg, redisClient, model.KindVision, cfg.RateLimits.VisionReqPerMinute)
		adapters[model.KindVision] = NewVisionAdapter(
			cfg.Backends.VisionURL, cfg.Backends.VisionKey, cfg.Backends.Timeout, limiter)
	}

	if cfg.Backends.CodeURL != "" {
		limiter := buildLimiter(cfg, redisClient, model.KindCodeAnalysis, cfg.RateLimits.CodeReqPerMinute)
		adapters[model.KindCodeAnalysis] = NewCodeAnalysisAdapter(
			cfg.Backends.CodeURL, cfg.Backends.CodeKey, cfg.Backends.Timeout, limiter)
	}

	if cfg.Backends.ClassifierModelPath != "" {
		classifier, err := LoadClassifierAdapter(cfg.Backends.ClassifierModelPath, cfg.Backends.ClassifierLabels)
		if err != nil {
			return nil, errors.Wrap(err, "failed to load classifier backend")
		}
		adapters[model.KindClassifier] = classifier
	}

	if len(adapters) == 0 {
		return nil, errors.Wrap(errors.ErrUnavailable, "no backend runtimes configured")
	}

	return adapters, nil
}

func buildLimiter(cfg *config.Config, redisClient *redis.Client, kind model.BackendKind, reqPerMinute int) RateLimiter {
	if !cfg.RateLimits.Enabled || reqPerMinute <= 0 {
		return NewNoOpLimiter()
	}
	if cfg.RateLimits.Distributed && redisClient != nil {
		return NewRedisRateLimiter(redisClient, kind, reqPerMinute)
	}
	return NewTokenBucketLimiter(kind, reqPerMinute)
}
