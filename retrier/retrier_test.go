package retrier_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"syscall"
	"testing"

	"github.com/magic-box/sandboxgw/retrier"
	"github.com/stretchr/testify/assert"
)

type statusError struct{ code int }

func (e *statusError) Error() string       { return fmt.Sprintf("status %d", e.code) }
func (e *statusError) HTTPStatusCode() int { return e.code }

type timeoutError struct{}

func (timeoutError) Error() string   { return "i/o timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

func TestClassifyStatusCode(t *testing.T) {
	cases := []struct {
		code      int
		kind      retrier.Kind
		retryable bool
	}{
		{500, retrier.KindServerError, true},
		{502, retrier.KindServerError, true},
		{503, retrier.KindServerError, true},
		{599, retrier.KindServerError, true},
		{408, retrier.KindClientError, true},
		{429, retrier.KindClientError, true},
		{400, retrier.KindClientError, false},
		{401, retrier.KindClientError, false},
		{403, retrier.KindClientError, false},
		{404, retrier.KindClientError, false},
		{422, retrier.KindClientError, false},
	}
	for _, c := range cases {
		f := retrier.Classify(&http.Response{StatusCode: c.code}, nil)
		assert.Equal(t, c.kind, f.Kind, "status %d", c.code)
		assert.Equal(t, c.code, f.StatusCode)
		assert.Equal(t, c.retryable, f.Retryable(), "status %d", c.code)
		assert.Equal(t, c.retryable, retrier.IsStatusCodeRetryable(c.code), "status %d", c.code)

		wrapped := fmt.Errorf("call gateway: %w", &statusError{code: c.code})
		assert.Equal(t, c.retryable, retrier.IsErrorRetryable(wrapped), "wrapped status %d", c.code)
	}
}

func TestClassifyTransportErrors(t *testing.T) {
	refused := &url.Error{Op: "Post", URL: "http://gw", Err: &net.OpError{
		Op: "dial", Net: "tcp", Err: &os.SyscallError{Syscall: "connect", Err: syscall.ECONNREFUSED},
	}}
	dns := &url.Error{Op: "Get", URL: "http://gw", Err: &net.OpError{
		Op: "dial", Net: "tcp", Err: &net.DNSError{Err: "no such host", Name: "gw", IsNotFound: true},
	}}
	timeout := &url.Error{Op: "Get", URL: "http://gw", Err: timeoutError{}}
	deadline := &url.Error{Op: "Get", URL: "http://gw", Err: context.DeadlineExceeded}

	cases := []struct {
		name      string
		err       error
		kind      retrier.Kind
		retryable bool
	}{
		{"refused", refused, retrier.KindConnFailed, true},
		{"dns", dns, retrier.KindConnFailed, true},
		{"timeout", timeout, retrier.KindTimeout, true},
		{"deadline", deadline, retrier.KindTimeout, true},
		{"reset", syscall.ECONNRESET, retrier.KindConnFailed, true},
		{"eof", &url.Error{Op: "Get", URL: "http://gw", Err: io.EOF}, retrier.KindConnFailed, true},
		{"canceled", &url.Error{Op: "Get", URL: "http://gw", Err: context.Canceled}, retrier.KindCanceled, false},
		{"unexpected", errors.New("json: cannot unmarshal"), retrier.KindOther, false},
		{"permission", syscall.EACCES, retrier.KindOther, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			f := retrier.Classify(nil, c.err)
			assert.Equal(t, c.kind, f.Kind)
			assert.Equal(t, c.retryable, f.Retryable())
			assert.Equal(t, c.err, f.Err)
		})
	}
}

func TestClassifySuccess(t *testing.T) {
	f := retrier.Classify(&http.Response{StatusCode: http.StatusOK}, nil)
	assert.Equal(t, retrier.KindNone, f.Kind)
	assert.False(t, f.Retryable())
	assert.False(t, retrier.IsErrorRetryable(nil))
}

func TestRetriers(t *testing.T) {
	assert.Equal(t, retrier.RetryRequest, retrier.NewErrorRetrier().Retry(&http.Response{StatusCode: 503}, nil, nil))
	assert.Equal(t, retrier.DontRetry, retrier.NewErrorRetrier().Retry(&http.Response{StatusCode: 400}, nil, nil))
	assert.Equal(t, retrier.DontRetry, retrier.NewNeverRetrier().Retry(&http.Response{StatusCode: 503}, nil, nil))

	always := retrier.NewRetrier(func(*http.Response, error, *retrier.RetrierOptions) retrier.RetryDecision {
		return retrier.RetryRequest
	})
	assert.Equal(t, retrier.RetryRequest, always.Retry(nil, errors.New("x"), &retrier.RetrierOptions{Attempts: 1}))
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "conn_failed", retrier.KindConnFailed.String())
	assert.Equal(t, "server_error", retrier.KindServerError.String())
	assert.Equal(t, "other", retrier.KindOther.String())
}
