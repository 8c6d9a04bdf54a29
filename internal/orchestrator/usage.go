package orchestrator

import (
	"sync"

	"athena/internal/domain/model"
	"athena/internal/domain/query"
)

// ModelUsage captures accumulated usage for one model.
type ModelUsage struct {
	ModelID          string
	Kind             model.BackendKind
	Invocations      int64
	PromptTokens     int64
	CompletionTokens int64
}

// UsageTracker accumulates per-model invocation and token usage.
type UsageTracker struct {
	mu    sync.Mutex
	usage map[string]*ModelUsage
}

// NewUsageTracker creates a new tracker instance.
func NewUsageTracker() *UsageTracker {
	return &UsageTracker{usage: make(map[string]*ModelUsage)}
}

// Record accounts one successful response.
func (t *UsageTracker) Record(resp *query.Response) {
	t.mu.Lock()
	defer t.mu.Unlock()

	entry, ok := t.usage[resp.ModelID]
	if !ok {
		entry = &ModelUsage{ModelID: resp.ModelID, Kind: resp.Kind}
		t.usage[resp.ModelID] = entry
	}

	entry.Invocations++
	if resp.Chat != nil {
		entry.PromptTokens += int64(resp.Chat.Usage.PromptTokens)
		entry.CompletionTokens += int64(resp.Chat.Usage.CompletionTokens)
	}
}

// Snapshot returns a copy of the current usage map.
func (t *UsageTracker) Snapshot() map[string]ModelUsage {
	t.mu.Lock()
	defer t.mu.Unlock()

	copyMap := make(map[string]ModelUsage, len(t.usage))
	for k, v := range t.usage {
		copyMap[k] = *v
	}
	return copyMap
}
