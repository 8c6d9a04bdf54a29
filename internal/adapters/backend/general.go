package backend

import (
	"context"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"athena/internal/domain/model"
	"athena/internal/domain/query"
	"athena/pkg/errors"
	"athena/pkg/logger"
)

// GeneralAdapter dispatches chat queries to a general language-model
// runtime speaking the OpenAI chat completions protocol, via the official
// SDK pointed at a configurable base URL.
type GeneralAdapter struct {
	client  openai.Client
	timeout time.Duration
	limiter RateLimiter
	log     *logger.Logger
}

// NewGeneralAdapter creates the adapter for the general-model runtime.
func NewGeneralAdapter(baseURL, apiKey string, timeout time.Duration, limiter RateLimiter) *GeneralAdapter {
	// Retry policy lives in the orchestrator; the SDK must not retry on
	// its own or failure accounting double-counts.
	opts := []option.RequestOption{option.WithAPIKey(apiKey), option.WithMaxRetries(0)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}

	return &GeneralAdapter{
		client:  openai.NewClient(opts...),
		timeout: timeout,
		limiter: limiter,
		log:     logger.Get().With("component", "general_adapter"),
	}
}

// Kind returns the backend family this adapter serves.
func (a *GeneralAdapter) Kind() model.BackendKind {
	return model.KindGeneral
}

// Invoke runs a chat completion and translates the result into the
// canonical chat shape.
func (a *GeneralAdapter) Invoke(ctx context.Context, req query.Request, desc model.Descriptor) (*query.Response, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return nil, newAdapterError(a.Kind(), true, errors.Wrap(errors.ErrRateLimitExceeded, err.Error()))
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(desc.RuntimeModel()),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(req.Text),
		},
	}
	if temp, ok := req.Params.Float64Param(query.ParamTemperature); ok {
		params.Temperature = openai.Float(temp)
	}
	if topP, ok := req.Params.Float64Param(query.ParamTopP); ok {
		params.TopP = openai.Float(topP)
	}
	if maxTokens, ok := req.Params.IntParam(query.ParamMaxTokens); ok {
		params.MaxTokens = openai.Int(int64(maxTokens))
	}

	resp, err := a.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, a.normalize(err)
	}

	if len(resp.Choices) == 0 {
		return nil, newAdapterError(a.Kind(), false,
			errors.Wrap(errors.ErrExternal, "runtime returned no choices"))
	}

	return &query.Response{
		ModelID: desc.ID,
		Kind:    desc.Kind,
		Chat: &query.ChatResult{
			Message: query.Message{
				Role:    query.RoleAssistant,
				Content: resp.Choices[0].Message.Content,
			},
			Usage: query.Usage{
				PromptTokens:     int(resp.Usage.PromptTokens),
				CompletionTokens: int(resp.Usage.CompletionTokens),
				TotalTokens:      int(resp.Usage.TotalTokens),
			},
		},
	}, nil
}

// normalize maps SDK failures onto the adapter error contract.
func (a *GeneralAdapter) normalize(err error) *AdapterError {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return newAdapterError(a.Kind(), transientStatus(apiErr.StatusCode),
			errors.Wrapf(errors.ErrExternal, "runtime error (%d)", apiErr.StatusCode))
	}
	if transportFailure(err) {
		return newAdapterError(a.Kind(), true, errors.Wrap(err, "runtime unreachable"))
	}
	return newAdapterError(a.Kind(), false, errors.Wrap(err, "chat completion failed"))
}
