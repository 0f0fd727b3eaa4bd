package sandbox

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithTracing(t *testing.T) {
	ctx := withTracing(context.Background())
	auth, ok := AuthContextFrom(ctx)
	require.True(t, ok)
	assert.NotEmpty(t, auth.RequestID)
	assert.Len(t, auth.TraceID, 32)

	// 已有 id 时不再生成
	assert.Equal(t, ctx, withTracing(ctx))

	ctx = withTracing(WithAuthContext(context.Background(), AuthContext{UserID: "u-1", RequestID: "req-1"}))
	auth, _ = AuthContextFrom(ctx)
	assert.Equal(t, "u-1", auth.UserID)
	assert.Equal(t, "req-1", auth.RequestID)
	assert.NotEmpty(t, auth.TraceID)

	_, ok = AuthContextFrom(context.Background())
	assert.False(t, ok)
}

func TestAuthContextApply(t *testing.T) {
	header := http.Header{}
	AuthContext{UserID: "u-1", RequestID: "req-1", TraceID: "trace-1"}.apply(header)
	assert.Equal(t, "u-1", header.Get(HeaderUserID))
	assert.Empty(t, header.Values(HeaderOrganizationCode))
	assert.Equal(t, "req-1", header.Get(HeaderRequestID))
	assert.Equal(t, "trace-1", header.Get(HeaderB3TraceID))
	assert.Equal(t, "trace-1", header.Get(HeaderTracerTraceID))
}
