package sandbox

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/magic-box/sandboxgw/conf"
	"github.com/magic-box/sandboxgw/internal/clientv2"
	"github.com/magic-box/sandboxgw/internal/dialer"
	internal_io "github.com/magic-box/sandboxgw/internal/io"
	"github.com/magic-box/sandboxgw/retrier"
	"go.uber.org/zap"
)

// Transport 向网关（本地调试模式下为本地服务）发送带身份与追踪请求头的 HTTP 请求。
// Transport 自身不重试，重试由上层操作决定。
type Transport struct {
	baseURL string
	client  clientv2.Client
}

type transportOptions struct {
	baseURL     string
	apiKey      string
	httpClient  *http.Client
	dialTimeout time.Duration
	logger      *zap.Logger
	debug       conf.DebugLevel
}

func newTransport(options transportOptions) *Transport {
	httpClient := options.httpClient
	if httpClient == nil {
		httpClient = &http.Client{Transport: dialer.NewTransport(dialer.DialOptions{Timeout: options.dialTimeout})}
	}
	apiKey := options.apiKey
	headers := clientv2.NewHeaderInterceptor(func(req *http.Request) {
		if req.Header == nil {
			req.Header = http.Header{}
		}
		auth, _ := AuthContextFrom(req.Context())
		auth.apply(req.Header)
		if apiKey != "" {
			req.Header.Set(HeaderAPIKey, apiKey)
		}
	})
	debug := clientv2.NewDebugInterceptor(options.logger, options.debug, HeaderAPIKey)
	return &Transport{
		baseURL: options.baseURL,
		client:  clientv2.NewClient(httpClient, headers, debug),
	}
}

// BaseURL 返回请求的基础地址。
func (t *Transport) BaseURL() string {
	return t.baseURL
}

// Get 发送一次 GET 请求并返回响应体，非 2xx 响应以 *clientv2.ResponseError 返回。
func (t *Transport) Get(ctx context.Context, path string, header http.Header, timeout time.Duration) ([]byte, error) {
	return t.Do(ctx, http.MethodGet, path, header, nil, timeout)
}

// Post 发送一次 POST 请求。
func (t *Transport) Post(ctx context.Context, path string, header http.Header, body any, timeout time.Duration) ([]byte, error) {
	return t.Do(ctx, http.MethodPost, path, header, body, timeout)
}

// Put 发送一次 PUT 请求。
func (t *Transport) Put(ctx context.Context, path string, header http.Header, body any, timeout time.Duration) ([]byte, error) {
	return t.Do(ctx, http.MethodPut, path, header, body, timeout)
}

// Do 以任意方法发送一次请求，timeout 为 0 时不限制。
func (t *Transport) Do(ctx context.Context, method, path string, header http.Header, body any, timeout time.Duration) ([]byte, error) {
	return t.roundTrip(ctx, method, path, header, body, clientv2.RetryConfig{
		Attempts:       1,
		Retrier:        retrier.NewNeverRetrier(),
		AttemptTimeout: timeout,
	})
}

func (t *Transport) roundTrip(ctx context.Context, method, path string, header http.Header, body any, retry clientv2.RetryConfig) ([]byte, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	getBody, err := requestBody(body)
	if err != nil {
		return nil, err
	}
	if header == nil {
		header = http.Header{}
	} else {
		header = header.Clone()
	}

	_, data, err := clientv2.DoAndReadBody(t.client, clientv2.RequestParams{
		Context:      withTracing(ctx),
		Method:       method,
		Url:          t.url(path),
		Header:       header,
		GetBody:      getBody,
		Interceptors: []clientv2.Interceptor{clientv2.NewRetryInterceptor(retry)},
	})
	return data, err
}

func (t *Transport) url(path string) string {
	return strings.TrimRight(t.baseURL, "/") + "/" + strings.TrimLeft(path, "/")
}

func requestBody(body any) (clientv2.GetRequestBody, error) {
	var data []byte
	switch b := body.(type) {
	case nil:
		return nil, nil
	case []byte:
		data = b
	case json.RawMessage:
		data = b
	case string:
		data = []byte(b)
	case io.Reader:
		read, err := internal_io.ReadAll(b)
		if err != nil {
			return nil, err
		}
		data = read
	default:
		encoded, err := json.Marshal(b)
		if err != nil {
			return nil, err
		}
		data = encoded
	}
	return func(o *clientv2.RequestParams) (io.ReadCloser, error) {
		if o.Header.Get("Content-Type") == "" {
			o.Header.Set("Content-Type", conf.CONTENT_TYPE_JSON)
		}
		return internal_io.NewBytesNopCloser(data), nil
	}, nil
}
