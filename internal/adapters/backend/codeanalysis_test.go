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

func codeDesc() model.Descriptor {
	return model.Descriptor{
		ID:           "snippet-reviewer",
		Kind:         model.KindCodeAnalysis,
		RequiredTier: model.TierStaff,
		Capabilities: []model.TaskType{model.TaskCodeAnalysis},
	}
}

const reviewVerdict = `{"summary": "One unchecked error.", "issues": [{"severity": "warning", "line": 4, "message": "error return ignored"}]}`

func codeReply(content string) string {
	return `{"choices":[{"message":{"content":` + mustJSON(content) + `}}]}`
}

func TestCodeAnalysisAdapterInvoke(t *testing.T) {
	var captured codeChatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		_, _ = w.Write([]byte(codeReply(reviewVerdict)))
	}))
	defer srv.Close()

	adapter := NewCodeAnalysisAdapter(srv.URL, "key", 5*time.Second, NewNoOpLimiter())

	req := query.Request{
		Code:       "func main() { fmt.Println(\"hi\") }",
		CallerTier: model.TierStaff,
		Params:     query.Params{query.ParamLanguage: "go"},
	}
	resp, err := adapter.Invoke(context.Background(), req, codeDesc())
	require.NoError(t, err)

	require.NotNil(t, resp.CodeAnalysis)
	assert.Equal(t, "One unchecked error.", resp.CodeAnalysis.Summary)
	require.Len(t, resp.CodeAnalysis.Issues, 1)
	assert.Equal(t, query.SeverityWarning, resp.CodeAnalysis.Issues[0].Severity)
	assert.Equal(t, 4, resp.CodeAnalysis.Issues[0].Line)
	assert.NoError(t, resp.Validate())

	// The language hint is prepended, not sent as a separate field.
	require.Len(t, captured.Messages, 2)
	assert.Equal(t, "system", captured.Messages[0].Role)
	assert.Contains(t, captured.Messages[1].Content, "Language: go")
}

func TestCodeAnalysisAdapterRequiresCode(t *testing.T) {
	adapter := NewCodeAnalysisAdapter("http://unused", "", time.Second, NewNoOpLimiter())

	req := query.Request{Text: "review please", CallerTier: model.TierStaff}
	_, err := adapter.Invoke(context.Background(), req, codeDesc())
	require.Error(t, err)
	assert.False(t, IsTransient(err))
	assert.True(t, errors.Is(err, errors.ErrInvalidInput))
}

func TestCodeAnalysisAdapterOverload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "slow down", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	adapter := NewCodeAnalysisAdapter(srv.URL, "", 5*time.Second, NewNoOpLimiter())
	req := query.Request{Code: "package main", CallerTier: model.TierStaff}

	_, err := adapter.Invoke(context.Background(), req, codeDesc())
	require.Error(t, err)
	assert.True(t, IsTransient(err))
}

func TestParseReview(t *testing.T) {
	tests := []struct {
		name       string
		content    string
		summary    string
		issueCount int
	}{
		{
			name:       "plain JSON",
			content:    reviewVerdict,
			summary:    "One unchecked error.",
			issueCount: 1,
		},
		{
			name:       "markdown fenced",
			content:    "```json\n" + reviewVerdict + "\n```",
			summary:    "One unchecked error.",
			issueCount: 1,
		},
		{
			name:       "prose fallback",
			content:    "The code looks fine overall, nothing to report.",
			summary:    "The code looks fine overall, nothing to report.",
			issueCount: 0,
		},
		{
			name:       "empty summary falls back",
			content:    `{"summary": "", "issues": []}`,
			summary:    `{"summary": "", "issues": []}`,
			issueCount: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := parseReview(tt.content)
			assert.Equal(t, tt.summary, result.Summary)
			assert.Len(t, result.Issues, tt.issueCount)
		})
	}
}
