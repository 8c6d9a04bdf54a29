// Package query defines the canonical request and response shapes the
// orchestration core exchanges with its callers and adapters. Adapters
// translate backend-native payloads into these types; nothing here knows
// about a specific model runtime.
package query

import (
	"time"

	"github.com/google/uuid"

	"athena/internal/domain/model"
	"athena/pkg/errors"
)

// Params maps recognized option names to values.
type Params map[string]interface{}

// Recognized parameter names.
const (
	ParamTemperature = "temperature"
	ParamMaxTokens   = "max_tokens"
	ParamTopP        = "top_p"
	ParamLanguage    = "language"
	ParamDetail      = "detail"
)

func recognizedParam(name string) bool {
	switch name {
	case ParamTemperature, ParamMaxTokens, ParamTopP, ParamLanguage, ParamDetail:
		return true
	default:
		return false
	}
}

// Request is a single query into the orchestration core. Exactly one
// input form (text, features, image, code) drives task inference when
// no task hint is given.
type Request struct {
	// Input payload; at least one form must be set.
	Text     string
	Features []float64
	ImageURL string
	ImageB64 string
	Code     string

	CallerTier model.Tier

	// ModelID requests explicit model selection; empty means auto-select.
	ModelID string

	// TaskHint overrides payload-shape task inference.
	TaskHint model.TaskType

	Params Params

	// Timeout bounds the call; zero means the orchestrator default.
	Timeout time.Duration
}

// HasInput reports whether any input form is populated.
func (r Request) HasInput() bool {
	return r.Text != "" || len(r.Features) > 0 || r.ImageURL != "" || r.ImageB64 != "" || r.Code != ""
}

// InferTask determines the task type from the hint or the payload shape.
// Free text implies chat.
func (r Request) InferTask() model.TaskType {
	if r.TaskHint != "" {
		return r.TaskHint
	}
	switch {
	case len(r.Features) > 0:
		return model.TaskClassification
	case r.ImageURL != "" || r.ImageB64 != "":
		return model.TaskVision
	case r.Code != "":
		return model.TaskCodeAnalysis
	default:
		return model.TaskChat
	}
}

// Validate checks the request against the canonical shape.
func (r Request) Validate() error {
	if !r.CallerTier.Valid() {
		return errors.NewValidationError("caller_tier", "unknown tier", r.CallerTier)
	}
	if !r.HasInput() {
		return errors.NewValidationError("input", "request carries no input payload", nil)
	}
	if r.TaskHint != "" && !r.TaskHint.Valid() {
		return errors.NewValidationError("task_hint", "unknown task type", r.TaskHint)
	}
	for name := range r.Params {
		if !recognizedParam(name) {
			return errors.NewValidationError("params", "unrecognized parameter", name)
		}
	}
	if r.Timeout < 0 {
		return errors.NewValidationError("timeout", "timeout must not be negative", r.Timeout)
	}
	return nil
}

// Role identifies the author of a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single chat message.
type Message struct {
	Role    Role
	Content string
}

// ChatResult is the canonical payload for general-model backends.
type ChatResult struct {
	Message Message
	Usage   Usage
}

// Usage tracks token consumption reported by a backend.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// ClassificationResult is the canonical payload for classifier backends.
type ClassificationResult struct {
	Label  string
	Scores map[string]float64
}

// VisionResult is the canonical payload for vision backends.
type VisionResult struct {
	Summary string
	Tags    []string
}

// Severity grades a code analysis finding.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// CodeIssue is a single finding from a code-analysis backend.
type CodeIssue struct {
	Severity Severity `json:"severity"`
	Line     int      `json:"line"`
	Message  string   `json:"message"`
}

// CodeAnalysisResult is the canonical payload for code-analysis backends.
type CodeAnalysisResult struct {
	Summary string      `json:"summary"`
	Issues  []CodeIssue `json:"issues"`
}

// Timing captures when a call started and how long it took end to end.
type Timing struct {
	StartedAt time.Time
	Duration  time.Duration
}

// Response is the canonical result of a query. Exactly one payload field
// is set, and it must match the backend kind of the model that produced it.
type Response struct {
	RequestID uuid.UUID
	ModelID   string
	Kind      model.BackendKind

	Chat           *ChatResult
	Classification *ClassificationResult
	Vision         *VisionResult
	CodeAnalysis   *CodeAnalysisResult

	// Confidence is a 0-1 score when the backend reports one; zero otherwise.
	Confidence float64

	Timing Timing
}

// Validate enforces the kind-to-payload mapping and required fields.
func (r Response) Validate() error {
	if r.ModelID == "" {
		return errors.NewValidationError("model_id", "model identifier is required", r.ModelID)
	}
	if !r.Kind.Valid() {
		return errors.NewValidationError("kind", "unknown backend kind", r.Kind)
	}

	set := 0
	if r.Chat != nil {
		set++
	}
	if r.Classification != nil {
		set++
	}
	if r.Vision != nil {
		set++
	}
	if r.CodeAnalysis != nil {
		set++
	}
	if set != 1 {
		return errors.NewValidationError("payload", "exactly one result payload must be set", set)
	}

	switch r.Kind {
	case model.KindGeneral:
		if r.Chat == nil {
			return errors.NewValidationError("payload", "general-model response requires a chat payload", r.Kind)
		}
		if r.Chat.Message.Content == "" {
			return errors.NewValidationError("chat.message", "chat message content is required", r.Chat.Message)
		}
	case model.KindClassifier:
		if r.Classification == nil {
			return errors.NewValidationError("payload", "classifier response requires a classification payload", r.Kind)
		}
		if r.Classification.Label == "" {
			return errors.NewValidationError("classification.label", "classification label is required", r.Classification)
		}
	case model.KindVision:
		if r.Vision == nil {
			return errors.NewValidationError("payload", "vision response requires a vision payload", r.Kind)
		}
		if r.Vision.Summary == "" {
			return errors.NewValidationError("vision.summary", "vision summary is required", r.Vision)
		}
	case model.KindCodeAnalysis:
		if r.CodeAnalysis == nil {
			return errors.NewValidationError("payload", "code-analysis response requires a code-analysis payload", r.Kind)
		}
		if r.CodeAnalysis.Summary == "" {
			return errors.NewValidationError("code_analysis.summary", "code analysis summary is required", r.CodeAnalysis)
		}
	}

	if r.Confidence < 0 || r.Confidence > 1 {
		return errors.NewValidationError("confidence", "confidence must be within [0,1]", r.Confidence)
	}
	return nil
}

// Float64Param reads a float parameter, tolerating int values.
func (p Params) Float64Param(name string) (float64, bool) {
	v, ok := p[name]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	default:
		return 0, false
	}
}

// IntParam reads an integer parameter, tolerating float values.
func (p Params) IntParam(name string) (int, bool) {
	v, ok := p[name]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}
