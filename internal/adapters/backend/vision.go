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

const visionCompletionsPath = "/chat/completions"

const defaultVisionPrompt = "Describe this image for an accessibility caption. Keep it under three sentences."

// VisionAdapter dispatches image queries to a multimodal runtime speaking
// the OpenAI chat completions protocol with image content parts.
type VisionAdapter struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    RateLimiter
	log        *logger.Logger
}

// NewVisionAdapter creates the adapter for the vision runtime.
func NewVisionAdapter(baseURL, apiKey string, timeout time.Duration, limiter RateLimiter) *VisionAdapter {
	return &VisionAdapter{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    limiter,
		log:        logger.Get().With("component", "vision_adapter"),
	}
}

// Kind returns the backend family this adapter serves.
func (a *VisionAdapter) Kind() model.BackendKind {
	return model.KindVision
}

type visionContentPart struct {
	Type     string          `json:"type"`
	Text     string          `json:"text,omitempty"`
	ImageURL *visionImageURL `json:"image_url,omitempty"`
}

type visionImageURL struct {
	URL    string `json:"url"`
	Detail string `json:"detail,omitempty"`
}

type visionMessage struct {
	Role    string              `json:"role"`
	Content []visionContentPart `json:"content"`
}

type visionRequest struct {
	Model     string          `json:"model"`
	Messages  []visionMessage `json:"messages"`
	MaxTokens int             `json:"max_tokens,omitempty"`
}

type visionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Invoke sends the image to the runtime and translates the description
// into the canonical vision shape.
func (a *VisionAdapter) Invoke(ctx context.Context, req query.Request, desc model.Descriptor) (*query.Response, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return nil, newAdapterError(a.Kind(), true, errors.Wrap(errors.ErrRateLimitExceeded, err.Error()))
	}

	imageURL := req.ImageURL
	if imageURL == "" && req.ImageB64 != "" {
		imageURL = "data:image/png;base64," + req.ImageB64
	}
	if imageURL == "" {
		return nil, newAdapterError(a.Kind(), false,
			errors.Wrap(errors.ErrInvalidInput, "vision backend requires an image"))
	}

	prompt := req.Text
	if prompt == "" {
		prompt = defaultVisionPrompt
	}

	image := &visionImageURL{URL: imageURL}
	if detail, ok := req.Params[query.ParamDetail].(string); ok {
		image.Detail = detail
	}

	body := visionRequest{
		Model: desc.RuntimeModel(),
		Messages: []visionMessage{{
			Role: "user",
			Content: []visionContentPart{
				{Type: "text", Text: prompt},
				{Type: "image_url", ImageURL: image},
			},
		}},
	}
	if maxTokens, ok := req.Params.IntParam(query.ParamMaxTokens); ok {
		body.MaxTokens = maxTokens
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, newAdapterError(a.Kind(), false, errors.Wrap(err, "marshal vision request"))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		a.baseURL+visionCompletionsPath, bytes.NewReader(payload))
	if err != nil {
		return nil, newAdapterError(a.Kind(), false, errors.Wrap(err, "create HTTP request"))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if a.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+a.apiKey)
	}

	resp, err := a.httpClient.Do(httpReq)
	if err != nil {
		return nil, newAdapterError(a.Kind(), true, errors.Wrap(err, "send vision request"))
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, newAdapterError(a.Kind(), true, errors.Wrap(err, "read vision response"))
	}

	if resp.StatusCode != http.StatusOK {
		return nil, newAdapterError(a.Kind(), transientStatus(resp.StatusCode),
			errors.Wrapf(errors.ErrExternal, "vision runtime error (%d): %s", resp.StatusCode, string(respBody)))
	}

	var parsed visionResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, newAdapterError(a.Kind(), false, errors.Wrap(err, "unmarshal vision response"))
	}
	if len(parsed.Choices) == 0 || parsed.Choices[0].Message.Content == "" {
		return nil, newAdapterError(a.Kind(), false,
			errors.Wrap(errors.ErrExternal, "vision runtime returned no content"))
	}

	return &query.Response{
		ModelID: desc.ID,
		Kind:    desc.Kind,
		Vision: &query.VisionResult{
			Summary: parsed.Choices[0].Message.Content,
		},
	}, nil
}
