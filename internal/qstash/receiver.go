package qstash

import (
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// SignatureHeader carries the queue's signature on callback requests.
const SignatureHeader = "Upstash-Signature"

var (
	ErrMissingSignature = errors.New("missing delay-queue signature")
	ErrInvalidSignature = errors.New("invalid delay-queue signature")
)

// Receiver verifies callback signatures against the queue's signing
// keys. The queue rotates keys by signing with the current key while the
// next one is already published, so verification accepts either.
type Receiver struct {
	CurrentSigningKey string
	NextSigningKey    string
}

// Enabled reports whether any signing key is configured. A nil or
// keyless receiver disables verification; callers may then proceed
// unauthenticated, which suits local development only.
func (r *Receiver) Enabled() bool {
	return r != nil && (r.CurrentSigningKey != "" || r.NextSigningKey != "")
}

// Verify checks the signature header against the request body. The
// signature is a JWT whose body claim is the base64url-encoded SHA-256
// of the delivered payload.
func (r *Receiver) Verify(signature string, body []byte) error {
	if signature == "" {
		return ErrMissingSignature
	}

	var lastErr error
	for _, key := range []string{r.CurrentSigningKey, r.NextSigningKey} {
		if key == "" {
			continue
		}
		if err := verifyWithKey(key, signature, body); err != nil {
			lastErr = err
			continue
		}
		return nil
	}
	if lastErr == nil {
		lastErr = ErrMissingSignature
	}
	return fmt.Errorf("%w: %w", ErrInvalidSignature, lastErr)
}

func verifyWithKey(key, signature string, body []byte) error {
	token, err := jwt.Parse(signature,
		func(t *jwt.Token) (any, error) { return []byte(key), nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer("Upstash"),
	)
	if err != nil {
		return err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return errors.New("unexpected claims type")
	}
	claimed, ok := claims["body"].(string)
	if !ok {
		return errors.New("missing body claim")
	}

	sum := sha256.Sum256(body)
	expected := base64.URLEncoding.EncodeToString(sum[:])
	if strings.TrimRight(claimed, "=") != strings.TrimRight(expected, "=") {
		return errors.New("body hash mismatch")
	}
	return nil
}
