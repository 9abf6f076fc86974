package push

import (
	"errors"
	"fmt"
)

// AddressType tags the two delivery variants an Address can carry.
type AddressType string

const (
	// AddressTypeToken routes through the cloud-messaging channel,
	// addressed by an opaque vendor-issued registration token.
	AddressTypeToken AddressType = "fcm"
	// AddressTypeSubscription routes through the Web Push protocol,
	// addressed by a W3C push subscription.
	AddressTypeSubscription AddressType = "webpush"
)

// SubscriptionKeys holds the client keys of a W3C push subscription,
// base64url-encoded exactly as the browser serializes them.
type SubscriptionKeys struct {
	P256dh string `json:"p256dh"`
	Auth   string `json:"auth"`
}

// Subscription mirrors PushSubscription.toJSON() from the browser.
type Subscription struct {
	Endpoint       string           `json:"endpoint"`
	Keys           SubscriptionKeys `json:"keys"`
	ExpirationTime *int64           `json:"expirationTime,omitempty"`
}

// Address is a tagged union over the two recipient variants. Exactly one
// variant is populated for a valid address; switching transports replaces
// the whole value rather than mutating it.
type Address struct {
	Type         AddressType   `json:"type"`
	Token        string        `json:"token,omitempty"`
	Subscription *Subscription `json:"subscription,omitempty"`
}

// NewTokenAddress wraps a cloud-messaging registration token.
func NewTokenAddress(token string) Address {
	return Address{Type: AddressTypeToken, Token: token}
}

// NewSubscriptionAddress wraps a Web Push subscription.
func NewSubscriptionAddress(sub Subscription) Address {
	return Address{Type: AddressTypeSubscription, Subscription: &sub}
}

// Validate rejects addresses whose active variant is absent or partially
// populated, and addresses carrying both variants at once.
func (a Address) Validate() error {
	switch a.Type {
	case AddressTypeToken:
		if a.Token == "" {
			return errors.New("token address: missing token")
		}
		if a.Subscription != nil {
			return errors.New("token address: subscription must be empty")
		}
	case AddressTypeSubscription:
		if a.Token != "" {
			return errors.New("subscription address: token must be empty")
		}
		if a.Subscription == nil {
			return errors.New("subscription address: missing subscription")
		}
		if a.Subscription.Endpoint == "" || a.Subscription.Keys.P256dh == "" || a.Subscription.Keys.Auth == "" {
			return errors.New("subscription address: incomplete subscription object")
		}
	default:
		return fmt.Errorf("unknown address type %q", a.Type)
	}
	return nil
}
