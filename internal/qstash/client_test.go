package qstash_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tinywideclouds/go-push-scheduler/internal/qstash"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestClient_PublishJSON(t *testing.T) {
	ctx := context.Background()

	t.Run("Success - request shape and message id", func(t *testing.T) {
		var gotPath, gotAuth, gotDelay string
		var gotBody map[string]any

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.URL.Path
			gotAuth = r.Header.Get("Authorization")
			gotDelay = r.Header.Get("Upstash-Delay")
			_ = json.NewDecoder(r.Body).Decode(&gotBody)

			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"messageId": "qstash-msg-1"}`))
		}))
		defer server.Close()

		client := qstash.NewClient(server.URL, "secret-token", newTestLogger())

		messageID, err := client.PublishJSON(ctx,
			"https://app.example.com/notifications/send-scheduled",
			map[string]string{"id": "n-1", "message": "hi"},
			30*time.Second,
		)

		require.NoError(t, err)
		assert.Equal(t, "qstash-msg-1", messageID)
		assert.Equal(t, "/v2/publish/https://app.example.com/notifications/send-scheduled", gotPath)
		assert.Equal(t, "Bearer secret-token", gotAuth)
		assert.Equal(t, "30s", gotDelay)
		assert.Equal(t, "n-1", gotBody["id"])
	})

	t.Run("Non-2xx surfaces the queue's error detail", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error": "bad token"}`))
		}))
		defer server.Close()

		client := qstash.NewClient(server.URL, "wrong", newTestLogger())

		_, err := client.PublishJSON(ctx, "https://app.example.com/cb", map[string]string{}, time.Second)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "401")
		assert.Contains(t, err.Error(), "bad token")
	})
}
