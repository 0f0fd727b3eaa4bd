package clientv2

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
)

const maxErrorBody = 2048

// ResponseError 表示网关返回的非 2xx HTTP 响应。
type ResponseError struct {
	StatusCode int
	Body       []byte
	Message    string
}

func (e *ResponseError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("http error: status %d: %s", e.StatusCode, e.Message)
	}
	if len(e.Body) > 0 {
		return fmt.Sprintf("http error: status %d, body: %s", e.StatusCode, bytes.TrimSpace(e.Body))
	}
	return fmt.Sprintf("http error: status %d", e.StatusCode)
}

// HTTPStatusCode 供重试分类器读取状态码。
func (e *ResponseError) HTTPStatusCode() int {
	return e.StatusCode
}

func newResponseError(resp *http.Response) *ResponseError {
	e := &ResponseError{StatusCode: resp.StatusCode}
	if resp.Body != nil {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		resp.Body.Close()
		e.Body = data
		resp.Body = io.NopCloser(bytes.NewReader(data))
	}
	return e
}
