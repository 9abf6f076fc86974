package fcm_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"firebase.google.com/go/v4/messaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/tinywideclouds/go-push-scheduler/internal/platform/fcm"
	"github.com/tinywideclouds/go-push-scheduler/pkg/push"
)

// MockClient satisfies the MessagingClient interface
type MockClient struct {
	mock.Mock
}

func (m *MockClient) Send(ctx context.Context, msg *messaging.Message) (string, error) {
	args := m.Called(ctx, msg)
	return args.String(0), args.Error(1)
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestTransport_Lifecycle(t *testing.T) {
	ctx := context.Background()
	addr := push.NewTokenAddress("token-1")

	t.Run("Unconfigured Send fails with config error", func(t *testing.T) {
		transport := fcm.NewTransport(newTestLogger())

		_, err := transport.Send(ctx, addr, push.Build("Title", "Body"))

		require.Error(t, err)
		assert.ErrorIs(t, err, push.ErrNotConfigured)
	})

	t.Run("Configure rejects a missing client", func(t *testing.T) {
		transport := fcm.NewTransport(newTestLogger())

		err := transport.Configure(nil)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "messaging client missing")

		// The failed call must not mark the transport configured.
		_, err = transport.Send(ctx, addr, push.Build("Title", "Body"))
		assert.ErrorIs(t, err, push.ErrNotConfigured)
	})

	t.Run("Configure short-circuits after first call", func(t *testing.T) {
		transport := fcm.NewTransport(newTestLogger())
		first := new(MockClient)
		second := new(MockClient)

		require.NoError(t, transport.Configure(first))
		require.NoError(t, transport.Configure(second)) // ignored

		first.On("Send", ctx, mock.Anything).Return("msg-1", nil)

		out, err := transport.Send(ctx, addr, push.Build("Title", "Body"))
		require.NoError(t, err)
		assert.Equal(t, "msg-1", out.MessageID)
		first.AssertExpectations(t)
		second.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
	})

	t.Run("Happy Path - payload shape", func(t *testing.T) {
		mockClient := new(MockClient)
		transport := fcm.NewTransport(newTestLogger())
		require.NoError(t, transport.Configure(mockClient))

		n := push.Build("Title", "Body")
		n.Data["count"] = 3 // must be coerced to a string on the wire

		var sent *messaging.Message
		mockClient.On("Send", ctx, mock.Anything).Run(func(args mock.Arguments) {
			sent = args.Get(1).(*messaging.Message)
		}).Return("msg-42", nil)

		out, err := transport.Send(ctx, addr, n)
		require.NoError(t, err)
		assert.Equal(t, "msg-42", out.MessageID)

		require.NotNil(t, sent)
		assert.Equal(t, "token-1", sent.Token)
		assert.Equal(t, "Title", sent.Notification.Title)
		assert.Equal(t, "3", sent.Data["count"], "data values must be strings")
		assert.Equal(t, push.DefaultIcon, sent.Data["icon"])
		assert.Equal(t, "/", sent.Data["url"])
		assert.Equal(t, "/", sent.Webpush.FCMOptions.Link)
		assert.Equal(t, "default", sent.Android.Notification.Sound)
	})

	t.Run("Silent notification drops the sound", func(t *testing.T) {
		mockClient := new(MockClient)
		transport := fcm.NewTransport(newTestLogger())
		require.NoError(t, transport.Configure(mockClient))

		n := push.Build("Title", "Body")
		n.Silent = true

		var sent *messaging.Message
		mockClient.On("Send", ctx, mock.Anything).Run(func(args mock.Arguments) {
			sent = args.Get(1).(*messaging.Message)
		}).Return("msg-43", nil)

		_, err := transport.Send(ctx, addr, n)
		require.NoError(t, err)
		assert.Empty(t, sent.Android.Notification.Sound)
	})

	t.Run("Provider failure classifies as unknown", func(t *testing.T) {
		mockClient := new(MockClient)
		transport := fcm.NewTransport(newTestLogger())
		require.NoError(t, transport.Configure(mockClient))

		mockClient.On("Send", ctx, mock.Anything).Return("", errors.New("network down"))

		_, err := transport.Send(ctx, addr, push.Build("Title", "Body"))
		require.Error(t, err)
		assert.Equal(t, push.ClassificationUnknown, push.Classify(err))
	})

	t.Run("Subscription address is rejected before any send", func(t *testing.T) {
		mockClient := new(MockClient)
		transport := fcm.NewTransport(newTestLogger())
		require.NoError(t, transport.Configure(mockClient))

		subAddr := push.NewSubscriptionAddress(push.Subscription{
			Endpoint: "https://push.example.com/s",
			Keys:     push.SubscriptionKeys{P256dh: "BPub", Auth: "auth"},
		})

		_, err := transport.Send(ctx, subAddr, push.Build("Title", "Body"))
		require.Error(t, err)
		mockClient.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
	})

	// Note: the unregistered-token -> expired mapping is exercised by the
	// integration environment. The Firebase SDK's internal error types
	// cannot be fabricated reliably from outside the package.
}
