package sandbox

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/magic-box/sandboxgw/sandbox/sandboxtest"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestClient(t *testing.T, gateway *sandboxtest.Gateway, mutate func(*Config)) *Client {
	t.Helper()

	server := httptest.NewServer(gateway)
	t.Cleanup(server.Close)

	config := &Config{
		Endpoint:     server.URL,
		Logger:       zaptest.NewLogger(t),
		Retry:        RetryPolicy{Attempts: 3, Delay: time.Millisecond},
		CreateRetry:  RetryPolicy{Attempts: 3, Delay: time.Millisecond},
		WaitAttempts: 15,
		WaitInterval: time.Millisecond,
	}
	if mutate != nil {
		mutate(config)
	}
	c, err := NewClient(config)
	require.NoError(t, err)
	return c
}

func newBypassClient(t *testing.T, gateway *sandboxtest.Gateway) *Client {
	t.Helper()
	return newTestClient(t, gateway, func(config *Config) {
		config.Enabled = Bool(false)
		config.LocalURL = config.Endpoint
		config.Endpoint = ""
	})
}
