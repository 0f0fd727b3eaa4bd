package clientv2

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/magic-box/sandboxgw/conf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const headerKey = "request"

type testClient struct {
	statusCode int
	body       string
}

func (t testClient) Do(req *http.Request) (*http.Response, error) {
	value := req.Header.Get(headerKey)
	value += " -> Do"
	req.Header.Set(headerKey, value)
	statusCode := t.statusCode
	if statusCode == 0 {
		statusCode = http.StatusOK
	}
	return &http.Response{
		Request:    req,
		StatusCode: statusCode,
		Header:     req.Header,
		Body:       io.NopCloser(strings.NewReader(t.body)),
	}, nil
}

func tracingInterceptor(priority InterceptorPriority, name string) Interceptor {
	return NewSimpleInterceptorWithPriority(priority, func(req *http.Request, handler Handler) (*http.Response, error) {
		req.Header.Set(headerKey, req.Header.Get(headerKey)+" -> request-"+name)
		resp, err := handler(req)
		resp.Header.Set(headerKey, resp.Header.Get(headerKey)+" -> response-"+name)
		return resp, err
	})
}

func TestInterceptor(t *testing.T) {
	// 不配置拦截器
	c := NewClient(&testClient{})
	resp, err := c.Do(&http.Request{Header: http.Header{}})
	require.NoError(t, err)
	assert.Equal(t, " -> Do", resp.Header.Get(headerKey))
	assert.Equal(t, conf.UserAgent, resp.Header.Get("User-Agent"))

	// 配置多个拦截器，按优先级排序
	c = NewClient(&testClient{},
		tracingInterceptor(InterceptorPriorityNormal, "03"),
		tracingInterceptor(InterceptorPriorityDefault, "01"),
		tracingInterceptor(InterceptorPrioritySetHeader, "02"),
	)
	resp, err = c.Do(&http.Request{Header: http.Header{}})
	require.NoError(t, err)
	assert.Equal(t, " -> request-01 -> request-02 -> request-03 -> Do -> response-03 -> response-02 -> response-01", resp.Header.Get(headerKey))
}

func TestRequestInterceptors(t *testing.T) {
	c := NewClient(&testClient{}, tracingInterceptor(InterceptorPriorityNormal, "client"))

	resp, err := Do(c, RequestParams{
		Url:          "http://gateway.local/api/v1/sandboxes/sb-1",
		Interceptors: []Interceptor{tracingInterceptor(InterceptorPriorityDefault, "request")},
	})
	require.NoError(t, err)
	assert.Equal(t, " -> request-request -> request-client -> Do -> response-client -> response-request", resp.Header.Get(headerKey))
}

func TestResponseError(t *testing.T) {
	c := NewClient(&testClient{statusCode: http.StatusBadGateway, body: `{"code":5000,"message":"upstream"}`})
	resp, err := Do(c, RequestParams{Url: "http://gateway.local/"})
	require.Error(t, err)
	require.NotNil(t, resp)

	var respErr *ResponseError
	require.True(t, errors.As(err, &respErr))
	assert.Equal(t, http.StatusBadGateway, respErr.HTTPStatusCode())
	assert.Contains(t, string(respErr.Body), "upstream")
	assert.Contains(t, respErr.Error(), "502")
}

func TestDoAndReadBodyWithJson(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, conf.CONTENT_TYPE_JSON, r.Header.Get("Content-Type"))
		assert.Equal(t, int64(len(body)), r.ContentLength)
		w.Write(body)
	}))
	defer server.Close()

	getBody, err := GetJsonRequestBody(map[string]string{"sandbox_id": "sb-1"})
	require.NoError(t, err)

	_, body, err := DoAndReadBody(NewClient(server.Client()), RequestParams{
		Method:  RequestMethodPost,
		Url:     server.URL,
		GetBody: getBody,
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"sandbox_id":"sb-1"}`, string(body))
}
