// Package orchestrator is the single entry point for AI queries. It
// routes a request to a registered model backend, enforcing tier
// permissions, applying deterministic auto-selection, and containing
// backend failures behind the fallback policy.
package orchestrator

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"athena/internal/access"
	"athena/internal/adapters/backend"
	"athena/internal/domain/model"
	"athena/internal/domain/query"
	"athena/internal/metrics"
	"athena/internal/registry"
	"athena/pkg/errors"
	"athena/pkg/logger"
)

// Config tunes routing and fallback behavior.
type Config struct {
	// FailureThreshold is the number of consecutive transient failures
	// after which a model is marked unavailable.
	FailureThreshold int

	// DefaultTimeout applies when a request carries no per-call timeout.
	DefaultTimeout time.Duration

	// UseRegistryOrder selects strictly by catalog order (health rank,
	// required tier descending, registration order). The default instead
	// prefers the least-privileged model that can serve the task, so a
	// high-tier caller does not burn premium capacity on routine work.
	UseRegistryOrder bool
}

const (
	defaultFailureThreshold = 3
	defaultQueryTimeout     = 30 * time.Second
)

// Orchestrator routes queries to backend adapters through the model
// registry and the permission checker.
type Orchestrator struct {
	registry *registry.Registry
	adapters map[model.BackendKind]backend.Adapter
	cfg      Config
	usage    *UsageTracker
	log      *logger.Logger
}

// New creates an orchestrator over the given registry and adapters.
func New(reg *registry.Registry, adapters map[model.BackendKind]backend.Adapter, cfg Config) *Orchestrator {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = defaultFailureThreshold
	}
	if cfg.DefaultTimeout <= 0 {
		cfg.DefaultTimeout = defaultQueryTimeout
	}

	return &Orchestrator{
		registry: reg,
		adapters: adapters,
		cfg:      cfg,
		usage:    NewUsageTracker(),
		log:      logger.Get().With("component", "orchestrator"),
	}
}

// Query routes a single request to the best model and returns its
// canonical response. Every failure is one of the typed orchestration
// errors; no partially populated response is ever returned.
func (o *Orchestrator) Query(ctx context.Context, req query.Request) (*query.Response, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	task := req.InferTask()
	start := time.Now()

	var resp *query.Response
	var err error
	if req.ModelID != "" {
		resp, err = o.queryExplicit(ctx, req)
	} else {
		resp, err = o.queryAuto(ctx, req, task)
	}

	if err != nil {
		metrics.RecordQuery("", string(task), "error", time.Since(start))
		return nil, err
	}

	metrics.RecordQuery(resp.ModelID, string(task), "success", time.Since(start))
	return resp, nil
}

// queryExplicit serves a request that names its model. Explicit choice is
// a contract: the orchestrator never substitutes another model.
func (o *Orchestrator) queryExplicit(ctx context.Context, req query.Request) (*query.Response, error) {
	desc, err := o.registry.Lookup(req.ModelID)
	if err != nil {
		return nil, err
	}

	if !access.Authorize(req.CallerTier, desc) {
		return nil, errors.Wrapf(errors.ErrPermissionDenied,
			"model %s requires tier %s, caller has %s", desc.ID, desc.RequiredTier, req.CallerTier)
	}

	if desc.Health == model.HealthUnavailable {
		return nil, errors.Wrapf(errors.ErrBackendUnavailable, "model %s is marked unavailable", desc.ID)
	}

	resp, err := o.dispatch(ctx, req, desc)
	if err != nil {
		if backend.IsTransient(err) {
			o.noteFailure(desc.ID, err)
			return nil, errors.Wrapf(errors.ErrBackendUnavailable, "model %s: %v", desc.ID, err)
		}
		return nil, o.mapAdapterError(desc.ID, err)
	}
	return resp, nil
}

// queryAuto selects the best authorized model for the task and retries
// selection once, excluding the failed model, on a transient failure.
func (o *Orchestrator) queryAuto(ctx context.Context, req query.Request, task model.TaskType) (*query.Response, error) {
	candidates := o.candidates(req.CallerTier, task, "")
	if len(candidates) == 0 {
		metrics.SelectionOutcomes.WithLabelValues(string(task), "no_candidates").Inc()
		return nil, errors.Wrapf(errors.ErrNoAuthorizedModel,
			"no authorized model for task %s at tier %s", task, req.CallerTier)
	}

	chosen := candidates[0]
	metrics.SelectionOutcomes.WithLabelValues(string(task), "selected").Inc()

	resp, err := o.dispatch(ctx, req, chosen)
	if err == nil {
		return resp, nil
	}
	if !backend.IsTransient(err) {
		return nil, o.mapAdapterError(chosen.ID, err)
	}

	o.noteFailure(chosen.ID, err)
	metrics.SelectionOutcomes.WithLabelValues(string(task), "retried").Inc()

	candidates = o.candidates(req.CallerTier, task, chosen.ID)
	if len(candidates) == 0 {
		return nil, errors.Wrapf(errors.ErrBackendUnavailable,
			"model %s failed and no fallback candidate exists: %v", chosen.ID, err)
	}

	fallback := candidates[0]
	o.log.Warnf("Retrying task %s on %s after %s failed", task, fallback.ID, chosen.ID)

	resp, err = o.dispatch(ctx, req, fallback)
	if err != nil {
		if backend.IsTransient(err) {
			o.noteFailure(fallback.ID, err)
			return nil, errors.Wrapf(errors.ErrBackendUnavailable, "model %s: %v", fallback.ID, err)
		}
		return nil, o.mapAdapterError(fallback.ID, err)
	}
	return resp, nil
}

// candidates returns authorized, not-unavailable models for the task,
// in selection preference order, excluding the given identifier.
func (o *Orchestrator) candidates(caller model.Tier, task model.TaskType, exclude string) []model.Descriptor {
	listed := o.registry.ListByCapability(task)
	out := make([]model.Descriptor, 0, len(listed))
	for _, d := range listed {
		if d.ID == exclude || d.Health == model.HealthUnavailable {
			continue
		}
		if !access.Authorize(caller, d) {
			continue
		}
		out = append(out, d)
	}
	if !o.cfg.UseRegistryOrder {
		// Catalog order ranks premium models first. Flip the tier key so
		// the cheapest capable model wins; stable sort keeps the catalog's
		// health and registration tie-breaks intact.
		sort.SliceStable(out, func(i, j int) bool {
			if out[i].Health.Rank() != out[j].Health.Rank() {
				return out[i].Health.Rank() < out[j].Health.Rank()
			}
			return out[i].RequiredTier < out[j].RequiredTier
		})
	}
	return out
}

// dispatch invokes the adapter for the descriptor's backend kind and
// validates the canonical response. No registry lock is held here; the
// descriptor was captured by value.
func (o *Orchestrator) dispatch(ctx context.Context, req query.Request, desc model.Descriptor) (*query.Response, error) {
	adapter, ok := o.adapters[desc.Kind]
	if !ok {
		return nil, &backend.AdapterError{
			Backend:   desc.Kind,
			Transient: false,
			Err:       errors.Wrapf(errors.ErrUnavailable, "no adapter configured for kind %s", desc.Kind),
		}
	}

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = o.cfg.DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	started := time.Now()
	resp, err := adapter.Invoke(ctx, req, desc)
	if err != nil {
		return nil, err
	}

	resp.RequestID = uuid.New()
	resp.Timing = query.Timing{StartedAt: started, Duration: time.Since(started)}

	if err := resp.Validate(); err != nil {
		return nil, err
	}

	o.registry.ReportSuccess(desc.ID)
	o.usage.Record(resp)
	return resp, nil
}

// noteFailure records a transient backend failure: the model degrades
// immediately and becomes unavailable once the threshold is reached. It
// stays excluded from auto-selection until an external health signal
// marks it healthy again.
func (o *Orchestrator) noteFailure(id string, cause error) {
	count, err := o.registry.ReportFailure(id)
	if err != nil {
		// Model deregistered mid-call
		return
	}

	metrics.BackendFailures.WithLabelValues(id, "true").Inc()

	state := model.HealthDegraded
	if count >= o.cfg.FailureThreshold {
		state = model.HealthUnavailable
		o.log.Errorf("Model %s marked unavailable after %d consecutive failures: %v", id, count, cause)
	} else {
		o.log.Warnf("Model %s degraded (failure %d/%d): %v", id, count, o.cfg.FailureThreshold, cause)
	}

	if err := o.registry.SetHealth(id, state); err == nil {
		metrics.ModelHealth.WithLabelValues(id).Set(float64(state.Rank()))
	}
}

// mapAdapterError translates a non-transient adapter failure into the
// caller-facing taxonomy. Malformed-input failures surface as schema
// validation; everything else as backend unavailability.
func (o *Orchestrator) mapAdapterError(id string, err error) error {
	metrics.BackendFailures.WithLabelValues(id, "false").Inc()

	if errors.Is(err, errors.ErrInvalidInput) || errors.Is(err, errors.ErrSchemaValidation) {
		return errors.Wrapf(errors.ErrSchemaValidation, "model %s rejected the request: %v", id, err)
	}
	return errors.Wrapf(errors.ErrBackendUnavailable, "model %s: %v", id, err)
}

// ListModels returns the catalog in registration order, optionally
// narrowed to models the given tier may invoke. Listing exposes catalog
// metadata only; it performs no query and no health mutation.
func (o *Orchestrator) ListModels(filterTier *model.Tier) []model.Descriptor {
	all := o.registry.List()
	if filterTier == nil {
		return all
	}
	return access.FilterAuthorized(*filterTier, all)
}

// Usage returns a snapshot of per-model usage accounting.
func (o *Orchestrator) Usage() map[string]ModelUsage {
	return o.usage.Snapshot()
}
