// Package web sends notifications over the Web Push protocol, addressed
// by a W3C push subscription and signed with the process-wide VAPID
// keypair.
package web

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/SherClockHolmes/webpush-go"

	"github.com/tinywideclouds/go-push-scheduler/pkg/push"
)

// VapidKeys is the signing identity configured once at startup.
type VapidKeys struct {
	PublicKey  string
	PrivateKey string
	Subscriber string // mailto: or https: contact per RFC 8292
}

const defaultTTL = 60 // seconds the push service holds an undelivered message

// Transport implements push.Transport over Web Push. It starts
// unconfigured; Send fails with push.ErrNotConfigured until Configure
// succeeds.
type Transport struct {
	mu         sync.Mutex
	configured bool
	keys       VapidKeys
	httpClient *http.Client
	logger     *slog.Logger
}

func NewTransport(logger *slog.Logger) *Transport {
	return &Transport{
		// Timeout doubles as the send budget; a timed-out push counts
		// as an unknown failure, not an expired subscription.
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger.With("component", "WebPushTransport"),
	}
}

// Configure installs the VAPID keypair. Idempotent: the first successful
// call wins and later calls short-circuit.
func (t *Transport) Configure(keys VapidKeys) error {
	if keys.PublicKey == "" || keys.PrivateKey == "" {
		return fmt.Errorf("webpush configure: VAPID keypair missing")
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.configured {
		return nil
	}
	if keys.Subscriber == "" {
		keys.Subscriber = "mailto:admin@example.com"
	}
	t.keys = keys
	t.configured = true
	return nil
}

func (t *Transport) currentKeys() (VapidKeys, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.keys, t.configured
}

// Send encrypts the canonical record as an opaque JSON payload and
// transmits it to the subscription's push endpoint.
func (t *Transport) Send(ctx context.Context, addr push.Address, n push.Notification) (push.Outcome, error) {
	keys, ok := t.currentKeys()
	if !ok {
		return push.Outcome{}, push.ErrNotConfigured
	}
	if addr.Type != push.AddressTypeSubscription || addr.Subscription == nil {
		return push.Outcome{}, fmt.Errorf("webpush transport: address is not a subscription address")
	}

	payload, err := json.Marshal(n)
	if err != nil {
		return push.Outcome{}, fmt.Errorf("webpush payload: %w", err)
	}

	sub := &webpush.Subscription{
		Endpoint: addr.Subscription.Endpoint,
		Keys: webpush.Keys{
			P256dh: addr.Subscription.Keys.P256dh,
			Auth:   addr.Subscription.Keys.Auth,
		},
	}

	resp, err := webpush.SendNotificationWithContext(ctx, payload, sub, &webpush.Options{
		Subscriber:      keys.Subscriber,
		VAPIDPublicKey:  keys.PublicKey,
		VAPIDPrivateKey: keys.PrivateKey,
		TTL:             defaultTTL,
		HTTPClient:      t.httpClient,
	})
	if err != nil {
		// Encryption or transport error before a status arrived.
		return push.Outcome{}, fmt.Errorf("webpush send: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		t.logger.Info("Web Push sent", "status", resp.StatusCode)
		// Web Push has no provider message id.
		return push.Outcome{}, nil
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		// The endpoint is dead for good; the client must resubscribe.
		return push.Outcome{}, fmt.Errorf("webpush send: %w",
			&push.ExpiredError{Detail: fmt.Sprintf("push endpoint returned %d", resp.StatusCode)})
	default:
		return push.Outcome{}, fmt.Errorf("webpush send: push endpoint returned status %d", resp.StatusCode)
	}
}
