package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"athena/internal/domain/model"
	"athena/internal/domain/query"
	"athena/pkg/errors"
	"athena/pkg/logger"
)

const codeCompletionsPath = "/chat/completions"

const codeReviewSystemPrompt = `You are a code review engine. Analyze the submitted code and respond with JSON only, no prose, in this shape:
{"summary": "<one paragraph overview>", "issues": [{"severity": "info|warning|error", "line": <line number or 0>, "message": "<finding>"}]}`

// CodeAnalysisAdapter dispatches code review queries to a runtime speaking
// the OpenAI chat completions protocol and parses the structured verdict.
type CodeAnalysisAdapter struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    RateLimiter
	log        *logger.Logger
}

// NewCodeAnalysisAdapter creates the adapter for the code-analysis runtime.
func NewCodeAnalysisAdapter(baseURL, apiKey string, timeout time.Duration, limiter RateLimiter) *CodeAnalysisAdapter {
	return &CodeAnalysisAdapter{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    limiter,
		log:        logger.Get().With("component", "code_analysis_adapter"),
	}
}

// Kind returns the backend family this adapter serves.
func (a *CodeAnalysisAdapter) Kind() model.BackendKind {
	return model.KindCodeAnalysis
}

type codeChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type codeChatRequest struct {
	Model       string            `json:"model"`
	Messages    []codeChatMessage `json:"messages"`
	Temperature float64           `json:"temperature"`
	MaxTokens   int               `json:"max_tokens,omitempty"`
}

type codeChatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Invoke submits the code for review and translates the verdict into the
// canonical code-analysis shape.
func (a *CodeAnalysisAdapter) Invoke(ctx context.Context, req query.Request, desc model.Descriptor) (*query.Response, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return nil, newAdapterError(a.Kind(), true, errors.Wrap(errors.ErrRateLimitExceeded, err.Error()))
	}

	if req.Code == "" {
		return nil, newAdapterError(a.Kind(), false,
			errors.Wrap(errors.ErrInvalidInput, "code-analysis backend requires code input"))
	}

	userContent := req.Code
	if lang, ok := req.Params[query.ParamLanguage].(string); ok && lang != "" {
		userContent = "Language: " + lang + "\n\n" + userContent
	}

	body := codeChatRequest{
		Model: desc.RuntimeModel(),
		Messages: []codeChatMessage{
			{Role: "system", Content: codeReviewSystemPrompt},
			{Role: "user", Content: userContent},
		},
	}
	if maxTokens, ok := req.Params.IntParam(query.ParamMaxTokens); ok {
		body.MaxTokens = maxTokens
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, newAdapterError(a.Kind(), false, errors.Wrap(err, "marshal code request"))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		a.baseURL+codeCompletionsPath, bytes.NewReader(payload))
	if err != nil {
		return nil, newAdapterError(a.Kind(), false, errors.Wrap(err, "create HTTP request"))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if a.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+a.apiKey)
	}

	resp, err := a.httpClient.Do(httpReq)
	if err != nil {
		return nil, newAdapterError(a.Kind(), true, errors.Wrap(err, "send code request"))
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, newAdapterError(a.Kind(), true, errors.Wrap(err, "read code response"))
	}

	if resp.StatusCode != http.StatusOK {
		return nil, newAdapterError(a.Kind(), transientStatus(resp.StatusCode),
			errors.Wrapf(errors.ErrExternal, "code runtime error (%d): %s", resp.StatusCode, string(respBody)))
	}

	var parsed codeChatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, newAdapterError(a.Kind(), false, errors.Wrap(err, "unmarshal code response"))
	}
	if len(parsed.Choices) == 0 || parsed.Choices[0].Message.Content == "" {
		return nil, newAdapterError(a.Kind(), false,
			errors.Wrap(errors.ErrExternal, "code runtime returned no content"))
	}

	result := parseReview(parsed.Choices[0].Message.Content)

	return &query.Response{
		ModelID:      desc.ID,
		Kind:         desc.Kind,
		CodeAnalysis: result,
	}, nil
}

// parseReview decodes the model's JSON verdict. Models occasionally wrap
// JSON in markdown fences or emit prose; fall back to treating the whole
// reply as the summary.
func parseReview(content string) *query.CodeAnalysisResult {
	trimmed := strings.TrimSpace(content)
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(trimmed, "```")
	trimmed = strings.TrimSpace(trimmed)

	var result query.CodeAnalysisResult
	if err := json.Unmarshal([]byte(trimmed), &result); err == nil && result.Summary != "" {
		return &result
	}

	return &query.CodeAnalysisResult{Summary: content}
}
