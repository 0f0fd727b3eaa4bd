package clientv2

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/magic-box/sandboxgw/backoff"
	internal_io "github.com/magic-box/sandboxgw/internal/io"
	"github.com/magic-box/sandboxgw/retrier"
)

// RetryConfig 描述一次操作的重试策略。
type RetryConfig struct {
	Attempts       int             // 总尝试次数，小于等于 1 时不重试
	Backoff        backoff.Backoff // 两次尝试之间的等待时长
	Retrier        retrier.Retrier // 重试判定，默认 retrier.NewErrorRetrier()
	AttemptTimeout time.Duration   // 单次尝试的超时时间，0 表示不限制

	// OnAttempt 在每次尝试结束后调用，failure.Kind 为 KindNone 表示成功
	OnAttempt func(req *http.Request, attempt int, failure retrier.Failure, willRetry bool)
}

func (c *RetryConfig) init() {
	if c.Attempts < 1 {
		c.Attempts = 1
	}
	if c.Backoff == nil {
		c.Backoff = backoff.NewFixedBackoff(time.Second)
	}
	if c.Retrier == nil {
		c.Retrier = retrier.NewErrorRetrier()
	}
}

type retryInterceptor struct {
	config RetryConfig
}

func NewRetryInterceptor(config RetryConfig) Interceptor {
	config.init()
	return &retryInterceptor{config: config}
}

func (r *retryInterceptor) Priority() InterceptorPriority {
	return InterceptorPriorityRetry
}

func (r *retryInterceptor) Intercept(req *http.Request, handler Handler) (resp *http.Response, err error) {
	parent := req.Context()

	for attempt := 1; ; attempt++ {
		// Clone 防止后面 Handler 处理对 req 有污染
		reqBefore := req.Clone(parent)

		resp, err = r.attempt(req, handler)

		failure := retrier.Classify(resp, err)
		willRetry := false
		if failure.Kind != retrier.KindNone && attempt < r.config.Attempts && parent.Err() == nil && rewindRequestBody(reqBefore) {
			willRetry = r.config.Retrier.Retry(resp, err, &retrier.RetrierOptions{Attempts: attempt}) == retrier.RetryRequest
		}
		if r.config.OnAttempt != nil {
			r.config.OnAttempt(req, attempt, failure, willRetry)
		}
		if !willRetry {
			return resp, err
		}

		if resp != nil && resp.Body != nil {
			internal_io.SinkAll(resp.Body)
			resp.Body.Close()
		}
		wait := r.config.Backoff.Time(parent, &backoff.Options{Attempts: attempt})
		if sleepErr := backoff.Sleep(parent, wait); sleepErr != nil {
			return nil, sleepErr
		}
		req = reqBefore
	}
}

func (r *retryInterceptor) attempt(req *http.Request, handler Handler) (*http.Response, error) {
	if r.config.AttemptTimeout <= 0 {
		resp, err := handler(req)
		if err == nil {
			err = bufferResponse(resp)
		}
		return resp, err
	}

	ctx, cancel := context.WithTimeout(req.Context(), r.config.AttemptTimeout)
	defer cancel()

	resp, err := handler(req.WithContext(ctx))
	if err == nil {
		// 在 cancel 之前读完响应体
		err = bufferResponse(resp)
	}
	return resp, err
}

func rewindRequestBody(req *http.Request) bool {
	if req == nil {
		return false
	}
	if req.Body == nil || req.Body == http.NoBody {
		return true
	}
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return false
		}
		req.Body = body
		return true
	}
	seeker, ok := req.Body.(io.Seeker)
	if !ok {
		return false
	}
	_, err := seeker.Seek(0, io.SeekStart)
	return err == nil
}
