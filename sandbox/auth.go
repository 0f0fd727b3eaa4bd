package sandbox

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

// 每个网关请求携带的身份与链路追踪请求头。
const (
	HeaderUserID           = "magic-user-id"
	HeaderOrganizationCode = "magic-organization-code"
	HeaderRequestID        = "request-id"
	HeaderB3TraceID        = "x-b3-trace-id"
	HeaderTracerTraceID    = "tracer.trace_id"
	HeaderAPIKey           = "X-API-Key"
)

// AuthContext 是一次逻辑请求的身份信息，通过 context 传递，构造后不再修改。
type AuthContext struct {
	UserID           string
	OrganizationCode string
	RequestID        string
	TraceID          string
}

type authContextKey struct{}

// WithAuthContext 返回携带 auth 的 context。
func WithAuthContext(ctx context.Context, auth AuthContext) context.Context {
	return context.WithValue(ctx, authContextKey{}, auth)
}

// AuthContextFrom 返回 ctx 中的 AuthContext。
func AuthContextFrom(ctx context.Context) (AuthContext, bool) {
	if ctx == nil {
		return AuthContext{}, false
	}
	auth, ok := ctx.Value(authContextKey{}).(AuthContext)
	return auth, ok
}

// withTracing 为缺少 request id 或 trace id 的 context 补齐，
// 使同一操作的所有重试尝试共享同一组 id。
func withTracing(ctx context.Context) context.Context {
	auth, _ := AuthContextFrom(ctx)
	if auth.RequestID != "" && auth.TraceID != "" {
		return ctx
	}
	if auth.RequestID == "" {
		auth.RequestID = newRequestID()
	}
	if auth.TraceID == "" {
		auth.TraceID = newTraceID()
	}
	return WithAuthContext(ctx, auth)
}

func (a AuthContext) apply(header http.Header) {
	if a.UserID != "" {
		header.Set(HeaderUserID, a.UserID)
	}
	if a.OrganizationCode != "" {
		header.Set(HeaderOrganizationCode, a.OrganizationCode)
	}
	if a.RequestID == "" {
		a.RequestID = newRequestID()
	}
	if a.TraceID == "" {
		a.TraceID = newTraceID()
	}
	header.Set(HeaderRequestID, a.RequestID)
	header.Set(HeaderB3TraceID, a.TraceID)
	header.Set(HeaderTracerTraceID, a.TraceID)
}

func newRequestID() string {
	return uuid.NewString()
}

func newTraceID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
