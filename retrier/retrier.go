package retrier

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"syscall"

	"github.com/magic-box/sandboxgw/backoff"
)

type (
	// RetryDecision 重试决策
	RetryDecision int
	// RetrierOptions 重试器选项
	RetrierOptions backoff.Options

	// Retrier 重试器接口
	Retrier interface {
		// Retry 判断是否重试
		Retry(*http.Response, error, *RetrierOptions) RetryDecision
	}

	// Kind 失败类型
	Kind int

	// Failure 是一次失败尝试的结构化描述，重试决策只依赖 Kind 与 StatusCode
	Failure struct {
		Kind       Kind
		StatusCode int
		Err        error
	}

	// StatusCoder 由携带 HTTP 状态码的错误实现
	StatusCoder interface {
		HTTPStatusCode() int
	}

	neverRetrier      struct{}
	errorRetrier      struct{}
	customizedRetrier struct {
		retryFn func(*http.Response, error, *RetrierOptions) RetryDecision
	}
)

const (
	// 不再重试
	DontRetry RetryDecision = iota

	// 重试当前请求
	RetryRequest
)

const (
	KindNone Kind = iota
	KindTimeout
	KindConnFailed
	KindServerError
	KindClientError
	KindCanceled
	KindOther
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindTimeout:
		return "timeout"
	case KindConnFailed:
		return "conn_failed"
	case KindServerError:
		return "server_error"
	case KindClientError:
		return "client_error"
	case KindCanceled:
		return "canceled"
	default:
		return "other"
	}
}

// Retryable 判断该失败是否为瞬时失败
func (f Failure) Retryable() bool {
	switch f.Kind {
	case KindTimeout, KindConnFailed, KindServerError:
		return true
	case KindClientError:
		return f.StatusCode == http.StatusRequestTimeout || f.StatusCode == http.StatusTooManyRequests
	default:
		return false
	}
}

// NewRetrier 创建自定义重试器
func NewRetrier(fn func(*http.Response, error, *RetrierOptions) RetryDecision) Retrier {
	return customizedRetrier{retryFn: fn}
}

func (retrier customizedRetrier) Retry(response *http.Response, err error, options *RetrierOptions) RetryDecision {
	return retrier.retryFn(response, err, options)
}

// NewNeverRetrier 创建从不重试的重试器
func NewNeverRetrier() Retrier {
	return neverRetrier{}
}

func (neverRetrier) Retry(*http.Response, error, *RetrierOptions) RetryDecision {
	return DontRetry
}

// NewErrorRetrier 创建网关默认的错误重试器
func NewErrorRetrier() Retrier {
	return errorRetrier{}
}

func (errorRetrier) Retry(response *http.Response, err error, _ *RetrierOptions) RetryDecision {
	if Classify(response, err).Retryable() {
		return RetryRequest
	}
	return DontRetry
}

// IsStatusCodeRetryable 5xx、408 与 429 可重试
func IsStatusCodeRetryable(statusCode int) bool {
	return Failure{Kind: kindOfStatusCode(statusCode), StatusCode: statusCode}.Retryable()
}

// IsErrorRetryable 判断错误是否可重试
func IsErrorRetryable(err error) bool {
	if err == nil {
		return false
	}
	return Classify(nil, err).Retryable()
}

func kindOfStatusCode(statusCode int) Kind {
	switch {
	case statusCode >= 500 && statusCode < 600:
		return KindServerError
	case statusCode >= 400 && statusCode < 500:
		return KindClientError
	case statusCode/100 == 2:
		return KindNone
	default:
		return KindOther
	}
}

// Classify 将一次尝试的响应与错误归类
func Classify(resp *http.Response, err error) Failure {
	if resp != nil && resp.StatusCode/100 != 2 {
		return Failure{Kind: kindOfStatusCode(resp.StatusCode), StatusCode: resp.StatusCode, Err: err}
	}
	if err == nil {
		return Failure{Kind: KindNone}
	}

	var coder StatusCoder
	if errors.As(err, &coder) {
		code := coder.HTTPStatusCode()
		return Failure{Kind: kindOfStatusCode(code), StatusCode: code, Err: err}
	}
	return Failure{Kind: kindOfError(err), Err: err}
}

func kindOfError(err error) Kind {
	if errors.Is(err, context.Canceled) {
		return KindCanceled
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}

	unwrapedErr := unwrapUnderlyingError(err)
	if os.IsTimeout(unwrapedErr) || os.IsTimeout(err) {
		return KindTimeout
	}
	if _, ok := unwrapedErr.(*net.DNSError); ok {
		return KindConnFailed
	}
	if errno, ok := unwrapedErr.(syscall.Errno); ok {
		switch errno {
		case syscall.ECONNREFUSED, syscall.ECONNABORTED, syscall.ECONNRESET,
			syscall.ETIMEDOUT, syscall.EHOSTUNREACH, syscall.ENETUNREACH, syscall.EPIPE:
			return KindConnFailed
		default:
			return KindOther
		}
	}
	if unwrapedErr == io.EOF || unwrapedErr == io.ErrUnexpectedEOF {
		return KindConnFailed
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return KindConnFailed
	}

	desc := unwrapedErr.Error()
	if strings.Contains(desc, "use of closed network connection") ||
		strings.Contains(desc, "connection reset by peer") ||
		strings.Contains(desc, "transport connection broken") ||
		strings.Contains(desc, "server closed idle connection") {
		return KindConnFailed
	}
	return KindOther
}

func unwrapUnderlyingError(err error) error {
	for {
		switch e := err.(type) {
		case *os.PathError:
			err = e.Err
		case *os.LinkError:
			err = e.Err
		case *os.SyscallError:
			err = e.Err
		case *url.Error:
			err = e.Err
		case *net.OpError:
			err = e.Err
		default:
			return err
		}
	}
}
