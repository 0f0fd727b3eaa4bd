package sandbox

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/magic-box/sandboxgw/internal/clientv2"
	"github.com/magic-box/sandboxgw/retrier"
	"go.uber.org/zap"
)

// 网关操作名，用于日志与指标标签。
const (
	operationStatus      = "status"
	operationBatchStatus = "batch_status"
	operationCreate      = "create"
	operationProxy       = "proxy"
	operationCopy        = "copy_files"
	operationUpgrade     = "upgrade"
	operationHealth      = "health"
)

type gatewayCall struct {
	operation string
	method    string
	path      string
	header    http.Header
	body      any
	timeout   time.Duration
	policy    RetryPolicy
}

// call 在有界重试中执行一次网关操作，任何失败都以失败 Result 返回。
func (c *Client) call(ctx context.Context, gc gatewayCall) Result {
	logger := c.logger.With(zap.String("operation", gc.operation), zap.String("path", gc.path))

	retry := clientv2.RetryConfig{
		Attempts:       gc.policy.Attempts,
		Backoff:        gc.policy.Backoff,
		Retrier:        retrier.NewErrorRetrier(),
		AttemptTimeout: gc.timeout,
		OnAttempt: func(_ *http.Request, attempt int, failure retrier.Failure, willRetry bool) {
			switch {
			case failure.Kind == retrier.KindNone:
				observeAttempt(gc.operation, outcomeSuccess)
			case willRetry:
				observeAttempt(gc.operation, outcomeRetry)
				logger.Warn("gateway attempt failed, retrying",
					zap.Int("attempt", attempt),
					zap.Int("max_attempts", gc.policy.Attempts),
					zap.Stringer("kind", failure.Kind),
					zap.Int("status_code", failure.StatusCode),
					zap.Error(failure.Err))
			default:
				observeAttempt(gc.operation, outcomeFailed)
				logger.Error("gateway request failed",
					zap.Int("attempt", attempt),
					zap.Bool("retryable", failure.Retryable()),
					zap.Stringer("kind", failure.Kind),
					zap.Int("status_code", failure.StatusCode),
					zap.Error(failure.Err))
			}
		},
	}

	data, err := c.transport.roundTrip(ctx, gc.method, gc.path, gc.header, gc.body, retry)
	if err != nil {
		return resultFromError(err)
	}
	return ParseResult(data)
}

// resultFromError 优先使用错误响应体中的网关信封，否则合成 CodeRequestFailed。
func resultFromError(err error) Result {
	var respErr *clientv2.ResponseError
	if errors.As(err, &respErr) && len(respErr.Body) > 0 {
		if result := ParseResult(respErr.Body); result.Code != CodeInvalidResponse && !result.IsSuccess() {
			if result.Message == "" {
				result.Message = respErr.Error()
			}
			return result
		}
	}
	return failureResult(CodeRequestFailed, err.Error())
}
