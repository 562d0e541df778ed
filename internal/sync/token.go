package sync

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// TokenProvider supplies the bearer token for a push.
//
// The token is fetched once per Push call, before any table work starts.
// Providers are passed to the client by reference so concurrent clients
// and tests never share hidden state.
type TokenProvider interface {
	// Token returns a valid bearer token, or an error if none is
	// obtainable. An empty token is treated the same as an error.
	Token(ctx context.Context) (string, error)
}

// StaticToken is a TokenProvider holding a fixed token. Useful for tests
// and for callers that manage token refresh themselves.
type StaticToken string

// Token implements TokenProvider.
func (t StaticToken) Token(ctx context.Context) (string, error) {
	return string(t), nil
}

// EnvToken reads the token from an environment variable at push time.
type EnvToken string

// Token implements TokenProvider.
func (t EnvToken) Token(ctx context.Context) (string, error) {
	v := strings.TrimSpace(os.Getenv(string(t)))
	if v == "" {
		return "", fmt.Errorf("environment variable %s is empty: %w", string(t), ErrNoToken)
	}
	return v, nil
}
