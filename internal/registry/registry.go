// Package registry maintains the process-scoped catalog of model
// descriptors. It owns descriptor lifecycle: populated at startup,
// mutated only through explicit Register/Deregister/SetHealth calls.
package registry

import (
	"sort"
	"sync"

	"athena/internal/domain/model"
	"athena/pkg/errors"
)

type entry struct {
	desc model.Descriptor
	seq  int
	// consecutive transient failures since the last success or health reset
	failures int
}

// Registry is a read-mostly catalog of model descriptors, safe for
// concurrent use. Lookups return descriptors by value so in-flight calls
// are unaffected by later deregistration.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*entry
	nextSeq int
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		entries: make(map[string]*entry),
	}
}

// Register adds a descriptor to the catalog. A descriptor with health
// unset defaults to healthy.
func (r *Registry) Register(desc model.Descriptor) error {
	if desc.Health == "" {
		desc.Health = model.HealthHealthy
	}
	if err := desc.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[desc.ID]; exists {
		return errors.Wrapf(errors.ErrDuplicateModel, "model %s already registered", desc.ID)
	}

	r.entries[desc.ID] = &entry{desc: desc, seq: r.nextSeq}
	r.nextSeq++
	return nil
}

// Deregister removes a descriptor. In-flight calls that already captured
// the descriptor by value are unaffected.
func (r *Registry) Deregister(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.entries[id]; !ok {
		return errors.Wrapf(errors.ErrUnknownModel, "model %s not registered", id)
	}
	delete(r.entries, id)
	return nil
}

// Lookup returns a copy of the descriptor for id.
func (r *Registry) Lookup(id string) (model.Descriptor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[id]
	if !ok {
		return model.Descriptor{}, errors.Wrapf(errors.ErrUnknownModel, "model %s not registered", id)
	}
	return e.desc, nil
}

// ListByCapability returns descriptors declaring the given task type,
// ordered by health rank (healthy first), required tier descending, then
// registration order. This ordering seeds auto-selection preference.
func (r *Registry) ListByCapability(task model.TaskType) []model.Descriptor {
	// Copy under the lock; sorting must not observe concurrent SetHealth.
	r.mu.RLock()
	matched := make([]entry, 0, len(r.entries))
	for _, e := range r.entries {
		if e.desc.HasCapability(task) {
			matched = append(matched, *e)
		}
	}
	r.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if ra, rb := a.desc.Health.Rank(), b.desc.Health.Rank(); ra != rb {
			return ra < rb
		}
		if a.desc.RequiredTier != b.desc.RequiredTier {
			return a.desc.RequiredTier > b.desc.RequiredTier
		}
		return a.seq < b.seq
	})

	out := make([]model.Descriptor, len(matched))
	for i, e := range matched {
		out[i] = e.desc
	}
	return out
}

// List returns all descriptors in registration order.
func (r *Registry) List() []model.Descriptor {
	r.mu.RLock()
	all := make([]entry, 0, len(r.entries))
	for _, e := range r.entries {
		all = append(all, *e)
	}
	r.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool { return all[i].seq < all[j].seq })

	out := make([]model.Descriptor, len(all))
	for i, e := range all {
		out[i] = e.desc
	}
	return out
}

// SetHealth records the health state for id. Idempotent; setting a model
// healthy also clears its consecutive failure count. The transition is
// applied atomically and visible to subsequent selection decisions.
func (r *Registry) SetHealth(id string, state model.HealthState) error {
	if !state.Valid() {
		return errors.NewValidationError("health", "unknown health state", state)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[id]
	if !ok {
		return errors.Wrapf(errors.ErrUnknownModel, "model %s not registered", id)
	}
	e.desc.Health = state
	if state == model.HealthHealthy {
		e.failures = 0
	}
	return nil
}

// ReportFailure increments the consecutive failure count for id and
// returns the new count.
func (r *Registry) ReportFailure(id string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[id]
	if !ok {
		return 0, errors.Wrapf(errors.ErrUnknownModel, "model %s not registered", id)
	}
	e.failures++
	return e.failures, nil
}

// ReportSuccess clears the consecutive failure count for id. Unknown ids
// are ignored: the model may have been deregistered mid-call.
func (r *Registry) ReportSuccess(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.entries[id]; ok {
		e.failures = 0
	}
}
