package clientv2

import (
	"bytes"
	"io"
	"net/http"
	"sort"

	internal_io "github.com/magic-box/sandboxgw/internal/io"
)

type Client interface {
	Do(req *http.Request) (*http.Response, error)
}

type Handler func(req *http.Request) (*http.Response, error)

type client struct {
	coreClient   Client
	interceptors Interceptors
}

func NewClient(cli Client, interceptors ...Interceptor) Client {
	if cli == nil {
		if http.DefaultClient != nil {
			cli = http.DefaultClient
		} else {
			cli = &http.Client{}
		}
	}

	is := make(Interceptors, 0, len(interceptors)+2)
	is = append(is, interceptors...)
	is = append(is, newDefaultHeaderInterceptor())
	if !hasPriority(interceptors, InterceptorPriorityDebug) {
		is = append(is, newDefaultDebugInterceptor())
	}

	return &client{
		coreClient:   cli,
		interceptors: is,
	}
}

func hasPriority(interceptors []Interceptor, priority InterceptorPriority) bool {
	for _, interceptor := range interceptors {
		if interceptor != nil && interceptor.Priority() == priority {
			return true
		}
	}
	return false
}

func (c *client) Do(req *http.Request) (*http.Response, error) {
	handler := func(req *http.Request) (*http.Response, error) {
		return c.coreClient.Do(req)
	}

	interceptors := make(Interceptors, 0, len(c.interceptors))
	interceptors = append(interceptors, c.interceptors...)
	interceptors = append(interceptors, getInterceptorsFromRequest(req)...)
	sort.Stable(interceptors)

	// 优先级数字越小越靠外层，所以倒序包装
	for i := len(interceptors) - 1; i >= 0; i-- {
		h := handler
		interceptor := interceptors[i]
		handler = func(r *http.Request) (*http.Response, error) {
			return interceptor.Intercept(r, h)
		}
	}

	return handleResponseAndError(handler(req))
}

func Do(c Client, options RequestParams) (*http.Response, error) {
	req, err := NewRequest(options)
	if err != nil {
		return nil, err
	}

	return c.Do(req)
}

// DoAndReadBody 发送请求并读出完整响应体，非 2xx 响应以 *ResponseError 返回。
func DoAndReadBody(c Client, options RequestParams) (*http.Response, []byte, error) {
	resp, err := Do(c, options)
	if err != nil {
		return resp, nil, err
	}
	defer resp.Body.Close()

	body, err := internal_io.ReadAll(resp.Body)
	if err != nil {
		return resp, nil, err
	}
	return resp, body, nil
}

func handleResponseAndError(resp *http.Response, err error) (*http.Response, error) {
	if err != nil {
		return resp, err
	}

	if resp == nil {
		return nil, &ResponseError{
			StatusCode: -1,
			Message:    "unknown error, no response",
		}
	}

	if resp.StatusCode/100 != 2 {
		return resp, newResponseError(resp)
	}

	return resp, nil
}

// bufferResponse 把响应体读入内存，使其在请求上下文结束后仍然可读。
func bufferResponse(resp *http.Response) error {
	if resp == nil || resp.Body == nil {
		return nil
	}
	defer resp.Body.Close()

	body, err := internal_io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	resp.Body = io.NopCloser(bytes.NewReader(body))
	resp.ContentLength = int64(len(body))
	return nil
}
