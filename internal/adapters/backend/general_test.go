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
)

func chatDesc() model.Descriptor {
	return model.Descriptor{
		ID:           "chat-lite",
		Kind:         model.KindGeneral,
		RequiredTier: model.TierPublic,
		Capabilities: []model.TaskType{model.TaskChat, model.TaskSummarize},
		Metadata:     model.Metadata{RuntimeModel: "gpt-4o-mini"},
	}
}

const chatCompletion = `{
	"id": "chatcmpl-1",
	"object": "chat.completion",
	"choices": [{"index": 0, "message": {"role": "assistant", "content": "Hi there."}, "finish_reason": "stop"}],
	"usage": {"prompt_tokens": 12, "completion_tokens": 4, "total_tokens": 16}
}`

func TestGeneralAdapterInvoke(t *testing.T) {
	var captured map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(chatCompletion))
	}))
	defer srv.Close()

	adapter := NewGeneralAdapter(srv.URL, "test-key", 5*time.Second, NewNoOpLimiter())

	req := query.Request{
		Text:       "Say hi",
		CallerTier: model.TierPublic,
		Params:     query.Params{query.ParamTemperature: 0.2, query.ParamMaxTokens: 64},
	}
	resp, err := adapter.Invoke(context.Background(), req, chatDesc())
	require.NoError(t, err)

	require.NotNil(t, resp.Chat)
	assert.Equal(t, "Hi there.", resp.Chat.Message.Content)
	assert.Equal(t, query.RoleAssistant, resp.Chat.Message.Role)
	assert.Equal(t, 12, resp.Chat.Usage.PromptTokens)
	assert.Equal(t, 4, resp.Chat.Usage.CompletionTokens)
	assert.NoError(t, resp.Validate())

	assert.Equal(t, "gpt-4o-mini", captured["model"])
	assert.InDelta(t, 0.2, captured["temperature"].(float64), 1e-9)
	assert.InDelta(t, 64, captured["max_tokens"].(float64), 1e-9)
}

func TestGeneralAdapterErrorClassification(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		transient bool
	}{
		{"server error", http.StatusInternalServerError, true},
		{"overloaded", http.StatusTooManyRequests, true},
		{"bad request", http.StatusBadRequest, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"error": {"message": "nope", "type": "server_error"}}`))
			}))
			defer srv.Close()

			adapter := NewGeneralAdapter(srv.URL, "test-key", 5*time.Second, NewNoOpLimiter())
			req := query.Request{Text: "Say hi", CallerTier: model.TierPublic}

			_, err := adapter.Invoke(context.Background(), req, chatDesc())
			require.Error(t, err)
			assert.Equal(t, tt.transient, IsTransient(err))
		})
	}
}

func TestGeneralAdapterUnreachableRuntime(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	adapter := NewGeneralAdapter(srv.URL, "test-key", time.Second, NewNoOpLimiter())
	req := query.Request{Text: "Say hi", CallerTier: model.TierPublic}

	_, err := adapter.Invoke(context.Background(), req, chatDesc())
	require.Error(t, err)
	assert.True(t, IsTransient(err))
}
