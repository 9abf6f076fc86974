package qstash_test

import (
	"crypto/sha256"
	"encoding/base64"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tinywideclouds/go-push-scheduler/internal/qstash"
)

// sign produces a signature the way the delay queue does: an HS256 JWT
// whose body claim is the base64url SHA-256 of the payload.
func sign(t *testing.T, key string, body []byte) string {
	t.Helper()

	sum := sha256.Sum256(body)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"iss":  "Upstash",
		"sub":  "https://app.example.com/notifications/send-scheduled",
		"iat":  time.Now().Unix(),
		"exp":  time.Now().Add(5 * time.Minute).Unix(),
		"body": base64.URLEncoding.EncodeToString(sum[:]),
	})
	signed, err := token.SignedString([]byte(key))
	require.NoError(t, err)
	return signed
}

func TestReceiver_Verify(t *testing.T) {
	body := []byte(`{"id":"n-1","message":"hi"}`)
	receiver := &qstash.Receiver{
		CurrentSigningKey: "sig_current",
		NextSigningKey:    "sig_next",
	}

	t.Run("Valid under current key", func(t *testing.T) {
		assert.NoError(t, receiver.Verify(sign(t, "sig_current", body), body))
	})

	t.Run("Valid under next key (rotation window)", func(t *testing.T) {
		assert.NoError(t, receiver.Verify(sign(t, "sig_next", body), body))
	})

	t.Run("Unknown key rejected", func(t *testing.T) {
		err := receiver.Verify(sign(t, "sig_stale", body), body)
		assert.ErrorIs(t, err, qstash.ErrInvalidSignature)
	})

	t.Run("Tampered body rejected", func(t *testing.T) {
		err := receiver.Verify(sign(t, "sig_current", body), []byte(`{"id":"other"}`))
		assert.ErrorIs(t, err, qstash.ErrInvalidSignature)
	})

	t.Run("Expired signature rejected", func(t *testing.T) {
		sum := sha256.Sum256(body)
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"iss":  "Upstash",
			"iat":  time.Now().Add(-time.Hour).Unix(),
			"exp":  time.Now().Add(-30 * time.Minute).Unix(),
			"body": base64.URLEncoding.EncodeToString(sum[:]),
		})
		signed, err := token.SignedString([]byte("sig_current"))
		require.NoError(t, err)

		assert.ErrorIs(t, receiver.Verify(signed, body), qstash.ErrInvalidSignature)
	})

	t.Run("Missing signature", func(t *testing.T) {
		assert.ErrorIs(t, receiver.Verify("", body), qstash.ErrMissingSignature)
	})

	t.Run("Enabled reflects key presence", func(t *testing.T) {
		assert.True(t, receiver.Enabled())
		assert.False(t, (&qstash.Receiver{}).Enabled())
	})
}
