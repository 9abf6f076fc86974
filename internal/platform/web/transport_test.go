package web_test

import (
	"context"
	"crypto/ecdh"
	"crypto/rand"
	"encoding/base64"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tinywideclouds/go-push-scheduler/internal/platform/web"
	"github.com/tinywideclouds/go-push-scheduler/pkg/push"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newSubscription builds a cryptographically valid browser subscription
// pointing at the mock push service, so the library's payload encryption
// actually runs.
func newSubscription(t *testing.T, endpoint string) push.Address {
	t.Helper()

	clientKey, err := ecdh.P256().GenerateKey(rand.Reader)
	require.NoError(t, err)

	auth := make([]byte, 16)
	_, err = rand.Read(auth)
	require.NoError(t, err)

	return push.NewSubscriptionAddress(push.Subscription{
		Endpoint: endpoint,
		Keys: push.SubscriptionKeys{
			P256dh: base64.RawURLEncoding.EncodeToString(clientKey.PublicKey().Bytes()),
			Auth:   base64.RawURLEncoding.EncodeToString(auth),
		},
	})
}

func newConfiguredTransport(t *testing.T) *web.Transport {
	t.Helper()

	privateKey, publicKey, err := webpush.GenerateVAPIDKeys()
	require.NoError(t, err)

	transport := web.NewTransport(newTestLogger())
	require.NoError(t, transport.Configure(web.VapidKeys{
		PublicKey:  publicKey,
		PrivateKey: privateKey,
		Subscriber: "mailto:test-runner@tinywideclouds.com",
	}))
	return transport
}

func TestTransport_Lifecycle(t *testing.T) {
	ctx := context.Background()

	// Mock push service (simulates Google/Mozilla/Apple push servers).
	mockServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NotEmpty(t, r.Header.Get("Authorization"), "VAPID auth header missing")

		switch r.URL.Path {
		case "/success":
			w.WriteHeader(http.StatusCreated)
		case "/expired":
			w.WriteHeader(http.StatusGone)
		case "/missing":
			w.WriteHeader(http.StatusNotFound)
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer mockServer.Close()

	notification := push.Build("Test", "Body")

	t.Run("Unconfigured Send fails with config error", func(t *testing.T) {
		transport := web.NewTransport(newTestLogger())
		_, err := transport.Send(ctx, newSubscription(t, mockServer.URL+"/success"), notification)
		assert.ErrorIs(t, err, push.ErrNotConfigured)
	})

	t.Run("Configure rejects missing keypair", func(t *testing.T) {
		transport := web.NewTransport(newTestLogger())
		assert.Error(t, transport.Configure(web.VapidKeys{PublicKey: "only-half"}))
	})

	transport := newConfiguredTransport(t)

	t.Run("201 is a successful delivery", func(t *testing.T) {
		out, err := transport.Send(ctx, newSubscription(t, mockServer.URL+"/success"), notification)
		require.NoError(t, err)
		assert.Empty(t, out.MessageID, "web push has no provider message id")
	})

	t.Run("410 classifies as expired", func(t *testing.T) {
		_, err := transport.Send(ctx, newSubscription(t, mockServer.URL+"/expired"), notification)
		require.Error(t, err)
		assert.True(t, push.IsExpired(err))
	})

	t.Run("404 classifies as expired", func(t *testing.T) {
		_, err := transport.Send(ctx, newSubscription(t, mockServer.URL+"/missing"), notification)
		require.Error(t, err)
		assert.Equal(t, push.ClassificationExpired, push.Classify(err))
	})

	t.Run("500 classifies as unknown", func(t *testing.T) {
		_, err := transport.Send(ctx, newSubscription(t, mockServer.URL+"/boom"), notification)
		require.Error(t, err)
		assert.False(t, push.IsExpired(err))
		assert.Equal(t, push.ClassificationUnknown, push.Classify(err))
	})

	t.Run("Token address is rejected", func(t *testing.T) {
		_, err := transport.Send(ctx, push.NewTokenAddress("tok"), notification)
		assert.Error(t, err)
	})
}
