// Package auth validates the bearer credential on incoming API requests.
package auth

import (
	"crypto/subtle"
	"errors"
	"strings"
)

var (
	ErrMissingCredential   = errors.New("missing Authorization header")
	ErrMalformedCredential = errors.New("invalid Authorization header format")
	ErrInvalidCredential   = errors.New("invalid API key")
)

const bearerPrefix = "Bearer "

// Gate checks client credentials against a single configured API key.
// A Gate with no key configured admits every request.
type Gate struct {
	expected string
}

func NewGate(expectedKey string) *Gate {
	return &Gate{expected: expectedKey}
}

// Enabled reports whether an API key is configured.
func (g *Gate) Enabled() bool {
	return g.expected != ""
}

// Check validates the raw Authorization header value. It returns nil when
// authentication is disabled or the bearer token matches the configured key.
func (g *Gate) Check(authorization string) error {
	if !g.Enabled() {
		return nil
	}
	if authorization == "" {
		return ErrMissingCredential
	}
	if !strings.HasPrefix(authorization, bearerPrefix) {
		return ErrMalformedCredential
	}

	token := strings.TrimPrefix(authorization, bearerPrefix)
	if subtle.ConstantTimeCompare([]byte(token), []byte(g.expected)) != 1 {
		return ErrInvalidCredential
	}
	return nil
}
