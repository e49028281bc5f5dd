package telegram

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendMessage(t *testing.T) {
	var got sendMessageRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/bottoken-1/sendMessage", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"ok":true,"result":{}}`))
	}))
	defer srv.Close()

	svc := NewService("token-1", WithAPIURL(srv.URL))
	require.NoError(t, svc.SendMessage(context.Background(), 42, "hello", WithHTML(), Silent()))

	assert.Equal(t, int64(42), got.ChatID)
	assert.Equal(t, "hello", got.Text)
	assert.Equal(t, "HTML", got.ParseMode)
	assert.True(t, got.DisableNotification)
}

func TestSendMessage_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ok":false,"error_code":400,"description":"chat not found"}`))
	}))
	defer srv.Close()

	err := NewService("t", WithAPIURL(srv.URL)).SendMessage(context.Background(), 1, "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chat not found")
}

func TestSendMessage_NoToken(t *testing.T) {
	assert.Error(t, NewService("").SendMessage(context.Background(), 1, "x"))
}

func TestEscapeTextForMarkdownV2(t *testing.T) {
	assert.Equal(t, `Ticket \#12 \(HIGH\)\.`, EscapeTextForMarkdownV2("Ticket #12 (HIGH)."))
}
