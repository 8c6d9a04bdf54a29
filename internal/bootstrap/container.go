// Package bootstrap wires configuration into a running orchestration
// core: backend adapters, the model registry seeded from the deployment
// catalog, and the operational HTTP surface.
package bootstrap

import (
	"context"
	"net/http"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"athena/internal/adapters/backend"
	"athena/internal/adapters/config"
	redisclient "athena/internal/adapters/redis"
	"athena/internal/metrics"
	"athena/internal/orchestrator"
	"athena/internal/registry"
	"athena/pkg/errors"
	"athena/pkg/logger"
)

// Container holds all application dependencies and their lifecycle.
// Components are organized in initialization order.
type Container struct {
	Config       *config.Config
	Log          *logger.Logger
	ErrorTracker errors.Tracker

	Redis *redisclient.Client

	Registry     *registry.Registry
	Adapters     map[string]backend.Adapter // keyed by kind string for introspection
	Orchestrator *orchestrator.Orchestrator

	metricsServer *http.Server
}

// New builds the full dependency graph from configuration.
func New(cfg *config.Config, tracker errors.Tracker) (*Container, error) {
	log := logger.Get().With("component", "bootstrap")

	c := &Container{
		Config:       cfg,
		Log:          log,
		ErrorTracker: tracker,
	}

	// Redis is optional; only distributed rate limiting needs it.
	var rdb *goredis.Client
	if cfg.Redis.Enabled() {
		client, err := redisclient.NewClient(cfg.Redis)
		if err != nil {
			return nil, errors.Wrap(err, "failed to connect to Redis")
		}
		c.Redis = client
		rdb = client.Client()
		log.Info("Redis connected")
	}

	adapters, err := backend.BuildAdapters(cfg, rdb)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build backend adapters")
	}
	c.Adapters = make(map[string]backend.Adapter, len(adapters))
	for kind, a := range adapters {
		c.Adapters[kind.String()] = a
	}
	log.Infof("Backend adapters ready: %d families", len(adapters))

	reg := registry.New()
	if err := SeedCatalog(reg, cfg); err != nil {
		return nil, errors.Wrap(err, "failed to seed model catalog")
	}
	c.Registry = reg
	log.Infof("Model catalog seeded: %d models", len(reg.List()))

	c.Orchestrator = orchestrator.New(reg, adapters, orchestrator.Config{
		FailureThreshold: cfg.Orchestrator.FailureThreshold,
		DefaultTimeout:   cfg.Orchestrator.DefaultTimeout,
		UseRegistryOrder: cfg.Orchestrator.UseRegistryOrder,
	})

	return c, nil
}

// StartMetrics serves the metrics and health endpoints until the context
// is cancelled. No-op when metrics are disabled.
func (c *Container) StartMetrics(ctx context.Context) {
	if !c.Config.Metrics.Enabled {
		return
	}

	metrics.Register()

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if c.Redis != nil {
			if err := c.Redis.Health(r.Context()); err != nil {
				http.Error(w, "redis unreachable", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	c.metricsServer = &http.Server{
		Addr:              c.Config.Metrics.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		c.Log.Infof("Metrics listening on %s", c.Config.Metrics.Addr)
		if err := c.metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			c.Log.Errorf("Metrics server failed: %v", err)
		}
	}()
}

// Shutdown releases all held resources.
func (c *Container) Shutdown(ctx context.Context) {
	if c.metricsServer != nil {
		if err := c.metricsServer.Shutdown(ctx); err != nil {
			c.Log.Warnf("Metrics server shutdown: %v", err)
		}
	}
	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			c.Log.Warnf("Redis close: %v", err)
		}
	}
}
