package model

import (
	"athena/pkg/errors"
)

// Tier represents the ordered privilege level of a caller.
// Higher tiers subsume lower ones.
type Tier int

const (
	TierPublic Tier = iota
	TierMember
	TierStaff
	TierAdmin
)

// Valid returns true if the tier is a known value.
func (t Tier) Valid() bool {
	return t >= TierPublic && t <= TierAdmin
}

// String returns the string representation of the tier.
func (t Tier) String() string {
	switch t {
	case TierPublic:
		return "public"
	case TierMember:
		return "member"
	case TierStaff:
		return "staff"
	case TierAdmin:
		return "admin"
	default:
		return "invalid"
	}
}

// AllTiers returns every valid tier in ascending order.
func AllTiers() []Tier {
	return []Tier{TierPublic, TierMember, TierStaff, TierAdmin}
}

// BackendKind identifies the runtime family a model belongs to.
// The kind determines which adapter dispatches the call and which
// canonical result shape the model produces.
type BackendKind string

const (
	KindGeneral      BackendKind = "general-model"
	KindClassifier   BackendKind = "classifier"
	KindVision       BackendKind = "vision"
	KindCodeAnalysis BackendKind = "code-analysis"
)

// String returns the string representation of the backend kind.
func (k BackendKind) String() string {
	return string(k)
}

// Valid returns true if the backend kind is supported.
func (k BackendKind) Valid() bool {
	switch k {
	case KindGeneral, KindClassifier, KindVision, KindCodeAnalysis:
		return true
	default:
		return false
	}
}

// AllBackendKinds returns all supported backend kinds.
func AllBackendKinds() []BackendKind {
	return []BackendKind{KindGeneral, KindClassifier, KindVision, KindCodeAnalysis}
}

// HealthState represents the observed health of a model backend.
type HealthState string

const (
	HealthHealthy     HealthState = "healthy"
	HealthDegraded    HealthState = "degraded"
	HealthUnavailable HealthState = "unavailable"
)

// Valid returns true if the health state is a known value.
func (h HealthState) Valid() bool {
	switch h {
	case HealthHealthy, HealthDegraded, HealthUnavailable:
		return true
	default:
		return false
	}
}

// Rank orders health states for selection preference (lower is better).
func (h HealthState) Rank() int {
	switch h {
	case HealthHealthy:
		return 0
	case HealthDegraded:
		return 1
	default:
		return 2
	}
}

// TaskType tags a capability a model can serve.
type TaskType string

const (
	TaskChat           TaskType = "chat"
	TaskSummarize      TaskType = "summarize"
	TaskClassification TaskType = "classification"
	TaskModeration     TaskType = "moderation"
	TaskVision         TaskType = "vision"
	TaskCodeAnalysis   TaskType = "code-analysis"
)

// Valid returns true if the task type is a known value.
func (t TaskType) Valid() bool {
	switch t {
	case TaskChat, TaskSummarize, TaskClassification, TaskModeration, TaskVision, TaskCodeAnalysis:
		return true
	default:
		return false
	}
}

// Metadata carries optional descriptive attributes of a model.
type Metadata struct {
	// RuntimeModel is the backend-native model name; defaults to the
	// descriptor identifier when empty.
	RuntimeModel string

	// ContextWindow is the maximum context length in tokens, if known.
	ContextWindow int

	// AccuracyEstimate is a 0-1 offline evaluation score, if known.
	AccuracyEstimate float64
}

// Descriptor describes one registered model: identity, runtime family,
// access requirement, capabilities and current health.
type Descriptor struct {
	ID           string
	Kind         BackendKind
	RequiredTier Tier
	Capabilities []TaskType
	Health       HealthState
	Metadata     Metadata
}

// HasCapability reports whether the descriptor declares the given task type.
func (d Descriptor) HasCapability(task TaskType) bool {
	for _, c := range d.Capabilities {
		if c == task {
			return true
		}
	}
	return false
}

// RuntimeModel returns the backend-native model name.
func (d Descriptor) RuntimeModel() string {
	if d.Metadata.RuntimeModel != "" {
		return d.Metadata.RuntimeModel
	}
	return d.ID
}

// Validate checks the descriptor against the canonical shape.
func (d Descriptor) Validate() error {
	if d.ID == "" {
		return errors.NewValidationError("id", "identifier is required", d.ID)
	}
	if !d.Kind.Valid() {
		return errors.NewValidationError("kind", "unknown backend kind", d.Kind)
	}
	if !d.RequiredTier.Valid() {
		return errors.NewValidationError("required_tier", "unknown tier", d.RequiredTier)
	}
	if len(d.Capabilities) == 0 {
		return errors.NewValidationError("capabilities", "at least one capability is required", d.Capabilities)
	}
	for _, c := range d.Capabilities {
		if !c.Valid() {
			return errors.NewValidationError("capabilities", "unknown task type", c)
		}
	}
	if !d.Health.Valid() {
		return errors.NewValidationError("health", "unknown health state", d.Health)
	}
	return nil
}
