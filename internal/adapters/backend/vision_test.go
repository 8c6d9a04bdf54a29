package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"athena/internal/domain/model"
	"athena/internal/domain/query"
	"athena/pkg/errors"
)

func visionDesc() model.Descriptor {
	return model.Descriptor{
		ID:           "image-captioner",
		Kind:         model.KindVision,
		RequiredTier: model.TierMember,
		Capabilities: []model.TaskType{model.TaskVision},
		Metadata:     model.Metadata{RuntimeModel: "gpt-4o"},
	}
}

func visionReply(content string) string {
	return `{"choices":[{"message":{"content":` + mustJSON(content) + `}}]}`
}

func mustJSON(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

func TestVisionAdapterInvoke(t *testing.T) {
	var captured visionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		_, _ = w.Write([]byte(visionReply("A tabby cat sleeping on a keyboard.")))
	}))
	defer srv.Close()

	adapter := NewVisionAdapter(srv.URL, "test-key", 5*time.Second, NewNoOpLimiter())

	req := query.Request{
		ImageURL:   "https://example.com/cat.png",
		Text:       "What is in this image?",
		CallerTier: model.TierMember,
		Params:     query.Params{query.ParamDetail: "high"},
	}
	resp, err := adapter.Invoke(context.Background(), req, visionDesc())
	require.NoError(t, err)

	require.NotNil(t, resp.Vision)
	assert.Equal(t, "A tabby cat sleeping on a keyboard.", resp.Vision.Summary)
	assert.NoError(t, resp.Validate())

	assert.Equal(t, "gpt-4o", captured.Model)
	require.Len(t, captured.Messages, 1)
	require.Len(t, captured.Messages[0].Content, 2)
	assert.Equal(t, "What is in this image?", captured.Messages[0].Content[0].Text)
	assert.Equal(t, "https://example.com/cat.png", captured.Messages[0].Content[1].ImageURL.URL)
	assert.Equal(t, "high", captured.Messages[0].Content[1].ImageURL.Detail)
}

func TestVisionAdapterInlineImage(t *testing.T) {
	var captured visionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		_, _ = w.Write([]byte(visionReply("A diagram.")))
	}))
	defer srv.Close()

	adapter := NewVisionAdapter(srv.URL, "", 5*time.Second, NewNoOpLimiter())

	req := query.Request{ImageB64: "aGVsbG8=", CallerTier: model.TierMember}
	_, err := adapter.Invoke(context.Background(), req, visionDesc())
	require.NoError(t, err)

	// The default prompt stands in when the caller gives no text.
	assert.Equal(t, defaultVisionPrompt, captured.Messages[0].Content[0].Text)
	assert.Equal(t, "data:image/png;base64,aGVsbG8=", captured.Messages[0].Content[1].ImageURL.URL)
}

func TestVisionAdapterRequiresImage(t *testing.T) {
	adapter := NewVisionAdapter("http://unused", "", time.Second, NewNoOpLimiter())

	req := query.Request{Text: "describe nothing", CallerTier: model.TierMember}
	_, err := adapter.Invoke(context.Background(), req, visionDesc())
	require.Error(t, err)
	assert.False(t, IsTransient(err))
	assert.True(t, errors.Is(err, errors.ErrInvalidInput))
}

func TestVisionAdapterErrorClassification(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		transient bool
	}{
		{"server error", http.StatusInternalServerError, true},
		{"overloaded", http.StatusTooManyRequests, true},
		{"bad request", http.StatusBadRequest, false},
		{"unauthorized", http.StatusUnauthorized, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "runtime unhappy", tt.status)
			}))
			defer srv.Close()

			adapter := NewVisionAdapter(srv.URL, "", 5*time.Second, NewNoOpLimiter())
			req := query.Request{ImageURL: "https://example.com/x.png", CallerTier: model.TierMember}

			_, err := adapter.Invoke(context.Background(), req, visionDesc())
			require.Error(t, err)
			assert.Equal(t, tt.transient, IsTransient(err))
		})
	}
}

func TestVisionAdapterEmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	adapter := NewVisionAdapter(srv.URL, "", 5*time.Second, NewNoOpLimiter())
	req := query.Request{ImageURL: "https://example.com/x.png", CallerTier: model.TierMember}

	_, err := adapter.Invoke(context.Background(), req, visionDesc())
	require.Error(t, err)
	assert.False(t, IsTransient(err))
}

func TestVisionAdapterConnectionFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // nothing is listening anymore

	adapter := NewVisionAdapter(srv.URL, "", time.Second, NewNoOpLimiter())
	req := query.Request{ImageURL: "https://example.com/x.png", CallerTier: model.TierMember}

	_, err := adapter.Invoke(context.Background(), req, visionDesc())
	require.Error(t, err)
	assert.True(t, IsTransient(err), "connection drops are retryable")
}
