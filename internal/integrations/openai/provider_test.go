package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestServer(t *testing.T, status int, content string) (*httptest.Server, *chatRequest) {
	t.Helper()
	captured := &chatRequest{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(captured))

		w.WriteHeader(status)
		if status != http.StatusOK {
			_, _ = w.Write([]byte(`{"error":{"message":"boom"}}`))
			return
		}
		resp := map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"role": "assistant", "content": content}},
			},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(srv.Close)
	return srv, captured
}

func TestProvider_ResolveIssue_ParsesJSONFromFreeText(t *testing.T) {
	srv, captured := newTestServer(t, http.StatusOK,
		"Sure! Here is the plan:\n```json\n{\"resolution\":\"Replace washer\",\"actionTaken\":\"Plumber booked\",\"notes\":\"30 min\"}\n```")
	p := New(srv.URL+"/", "test-key", "gpt-test", time.Second, zap.NewNop())

	res, err := p.ResolveIssue(context.Background(), "Kitchen faucet drips")
	require.NoError(t, err)
	assert.Equal(t, "Replace washer", res.Resolution)
	assert.Equal(t, "Plumber booked", res.ActionTaken)
	assert.Equal(t, "30 min", res.Notes)

	assert.Equal(t, "gpt-test", captured.Model)
	require.Len(t, captured.Messages, 2)
	assert.Contains(t, captured.Messages[1].Content, "Kitchen faucet drips")
}

func TestProvider_Classify(t *testing.T) {
	srv, _ := newTestServer(t, http.StatusOK,
		`{"title":"Leak","priority":"HIGH","category":"Plumbing","estimatedTimeToFix":"2 hours","suggestedAction":"Call plumber"}`)
	p := New(srv.URL, "test-key", "gpt-test", time.Second, zap.NewNop())

	res, err := p.Classify(context.Background(), "water everywhere")
	require.NoError(t, err)
	assert.Equal(t, "Plumbing", res.Category)
	assert.Equal(t, "HIGH", res.Priority)
}

func TestProvider_NoJSONInResponse(t *testing.T) {
	srv, _ := newTestServer(t, http.StatusOK, "I cannot help with that.")
	p := New(srv.URL, "test-key", "gpt-test", time.Second, zap.NewNop())

	_, err := p.ResolveIssue(context.Background(), "x")
	assert.ErrorIs(t, err, ErrNoJSON)
}

func TestProvider_HTTPError(t *testing.T) {
	srv, _ := newTestServer(t, http.StatusTooManyRequests, "")
	p := New(srv.URL, "test-key", "gpt-test", time.Second, zap.NewNop())

	_, err := p.GenerateIssue(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestProvider_GenerateIssueRejectsEmpty(t *testing.T) {
	srv, _ := newTestServer(t, http.StatusOK, `{"title":"","description":""}`)
	p := New(srv.URL, "test-key", "gpt-test", time.Second, zap.NewNop())

	_, err := p.GenerateIssue(context.Background())
	assert.Error(t, err)
}

func TestExtractJSONObject(t *testing.T) {
	raw, err := extractJSONObject(`prefix {"a":{"b":1}} suffix`)
	require.NoError(t, err)
	assert.Equal(t, `{"a":{"b":1}}`, raw)

	_, err = extractJSONObject("} reversed {")
	assert.ErrorIs(t, err, ErrNoJSON)
}

func TestProvider_ResolveIssueRejectsEmpty(t *testing.T) {
	srv, _ := newTestServer(t, http.StatusOK, `{}`)
	p := New(srv.URL, "test-key", "gpt-test", time.Second, zap.NewNop())

	_, err := p.ResolveIssue(context.Background(), "x")
	assert.Error(t, err)
}
