package push

import (
	"context"
	"errors"
)

// Sentinel errors shared across the dispatch paths.
var (
	// ErrNotConfigured is returned by a transport whose credentials were
	// never supplied. It is fatal to the caller; delivery is never
	// attempted without credentials.
	ErrNotConfigured = errors.New("transport not configured")

	// ErrNoAddress is returned when neither the caller nor the registry
	// supplies a recipient address. The user must subscribe again.
	ErrNoAddress = errors.New("no subscription available")
)

// ExpiredError marks a recipient address that can never succeed again
// without re-subscription: an unregistered cloud-messaging token, or a
// push endpoint answering 404/410. It is terminal and must not be
// retried.
type ExpiredError struct {
	Detail string
}

func (e *ExpiredError) Error() string {
	return "recipient address expired: " + e.Detail
}

// IsExpired reports whether err carries an ExpiredError anywhere in its
// chain.
func IsExpired(err error) bool {
	var expired *ExpiredError
	return errors.As(err, &expired)
}

// Classification buckets a delivery failure for the deferred-delivery
// workers: expired failures are dropped for good, unknown failures are
// left to whatever retry policy the active strategy provides.
type Classification string

const (
	ClassificationExpired Classification = "expired"
	ClassificationUnknown Classification = "unknown"
)

// Classify maps a transport error to its failure classification.
func Classify(err error) Classification {
	if IsExpired(err) {
		return ClassificationExpired
	}
	return ClassificationUnknown
}

// Outcome is the uniform result of a successful transport send. It is
// produced by a transport and consumed immediately by its caller, never
// stored.
type Outcome struct {
	// MessageID is the provider-side receipt when the provider issues
	// one; empty for Web Push, which has no such concept.
	MessageID string `json:"messageId,omitempty"`
}

// Transport is the contract both delivery channels implement. Configure
// must have succeeded before Send; an unconfigured transport fails with
// ErrNotConfigured rather than silently dropping the notification.
type Transport interface {
	Send(ctx context.Context, addr Address, n Notification) (Outcome, error)
}
