// Package fcm sends notifications through Firebase Cloud Messaging,
// addressed by a registration token.
package fcm

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"

	"github.com/tinywideclouds/go-push-scheduler/pkg/push"
)

// MessagingClient defines the subset of the Firebase Messaging API we use.
// This interface allows us to mock the client for unit testing.
type MessagingClient interface {
	Send(ctx context.Context, msg *messaging.Message) (string, error)
}

// Transport implements push.Transport over FCM. It starts unconfigured;
// Send fails with push.ErrNotConfigured until Configure succeeds.
type Transport struct {
	mu     sync.Mutex
	client MessagingClient
	logger *slog.Logger
}

func NewTransport(logger *slog.Logger) *Transport {
	return &Transport{
		logger: logger.With("component", "FCMTransport"),
	}
}

// NewMessagingClient builds the Firebase messaging client. When a
// service-account JSON blob is supplied it is used directly; otherwise
// the environment's default credentials apply.
func NewMessagingClient(ctx context.Context, serviceAccountJSON []byte) (MessagingClient, error) {
	var opts []option.ClientOption
	if len(serviceAccountJSON) > 0 {
		opts = append(opts, option.WithCredentialsJSON(serviceAccountJSON))
	}

	app, err := firebase.NewApp(ctx, nil, opts...)
	if err != nil {
		return nil, fmt.Errorf("firebase app init: %w", err)
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("firebase messaging client: %w", err)
	}
	return client, nil
}

// Configure installs the messaging client. Idempotent: the first
// successful call wins and later calls short-circuit, so a check-then-
// configure race only duplicates harmless setup.
func (t *Transport) Configure(client MessagingClient) error {
	if client == nil {
		return fmt.Errorf("fcm configure: messaging client missing")
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.client != nil {
		return nil
	}
	t.client = client
	return nil
}

func (t *Transport) currentClient() MessagingClient {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.client
}

// Send serializes the canonical record into FCM's two-part payload: a
// structured notification stanza for OS-level rendering, plus a flat
// data stanza whose values must all be strings on the wire.
func (t *Transport) Send(ctx context.Context, addr push.Address, n push.Notification) (push.Outcome, error) {
	client := t.currentClient()
	if client == nil {
		return push.Outcome{}, push.ErrNotConfigured
	}
	if addr.Type != push.AddressTypeToken || addr.Token == "" {
		return push.Outcome{}, fmt.Errorf("fcm transport: address is not a token address")
	}

	msg := &messaging.Message{
		Token: addr.Token,
		Data:  stringData(n),
		Notification: &messaging.Notification{
			Title:    n.Title,
			Body:     n.Body,
			ImageURL: n.Image,
		},
		Android: &messaging.AndroidConfig{
			Notification: &messaging.AndroidNotification{
				Icon:      n.Icon,
				Sound:     androidSound(n),
				ChannelID: "default",
			},
		},
		Webpush: &messaging.WebpushConfig{
			Notification: &messaging.WebpushNotification{
				Icon:               n.Icon,
				Badge:              n.Badge,
				Image:              n.Image,
				Tag:                n.Tag,
				RequireInteraction: n.RequireInteraction,
				Renotify:           n.Renotify,
				Silent:             n.Silent,
				Vibrate:            n.Vibrate,
				Actions:            webpushActions(n.Actions),
			},
			FCMOptions: &messaging.WebpushFCMOptions{
				Link: n.URL(),
			},
		},
	}

	messageID, err := client.Send(ctx, msg)
	if err != nil {
		return push.Outcome{}, t.classify(err)
	}

	t.logger.Info("FCM message sent", "message_id", messageID)
	return push.Outcome{MessageID: messageID}, nil
}

// classify maps provider errors onto the shared failure taxonomy: a dead
// or malformed token is terminal, everything else stays unknown and is
// left to the caller's retry policy.
func (t *Transport) classify(err error) error {
	if messaging.IsRegistrationTokenNotRegistered(err) || messaging.IsInvalidArgument(err) {
		return fmt.Errorf("fcm send: %w", &push.ExpiredError{Detail: err.Error()})
	}
	return fmt.Errorf("fcm send: %w", err)
}

// stringData flattens the canonical data map for the wire format, which
// forbids non-string values. Icon and badge ride along so the service
// worker can render them from data-only deliveries.
func stringData(n push.Notification) map[string]string {
	data := map[string]string{
		"icon":  n.Icon,
		"badge": n.Badge,
	}
	for key, value := range n.Data {
		if value == nil {
			continue
		}
		data[key] = fmt.Sprint(value)
	}
	return data
}

func androidSound(n push.Notification) string {
	if n.Silent {
		return ""
	}
	return "default"
}

func webpushActions(actions []push.Action) []*messaging.WebpushNotificationAction {
	if len(actions) == 0 {
		return nil
	}
	out := make([]*messaging.WebpushNotificationAction, 0, len(actions))
	for _, a := range actions {
		out = append(out, &messaging.WebpushNotificationAction{
			Action: a.Action,
			Title:  a.Title,
			Icon:   a.Icon,
		})
	}
	return out
}
