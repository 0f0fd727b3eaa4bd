package clientv2

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/magic-box/sandboxgw/conf"
	internal_io "github.com/magic-box/sandboxgw/internal/io"
)

const (
	RequestMethodGet  = http.MethodGet
	RequestMethodPost = http.MethodPost
)

type GetRequestBody func(options *RequestParams) (io.ReadCloser, error)

func GetJsonRequestBody(object interface{}) (GetRequestBody, error) {
	reqBody, err := json.Marshal(object)
	if err != nil {
		return nil, err
	}
	return GetBytesRequestBody(conf.CONTENT_TYPE_JSON, reqBody), nil
}

func GetBytesRequestBody(contentType string, body []byte) GetRequestBody {
	return func(o *RequestParams) (io.ReadCloser, error) {
		if contentType != "" {
			o.Header.Set("Content-Type", contentType)
		}
		return internal_io.NewBytesNopCloser(body), nil
	}
}

type RequestParams struct {
	Context      context.Context
	Method       string
	Url          string
	Header       http.Header
	GetBody      GetRequestBody
	Interceptors []Interceptor
}

func (o *RequestParams) init() {
	if o.Context == nil {
		o.Context = context.Background()
	}

	if len(o.Method) == 0 {
		o.Method = RequestMethodGet
	}

	if o.Header == nil {
		o.Header = http.Header{}
	}

	if o.GetBody == nil {
		o.GetBody = func(options *RequestParams) (io.ReadCloser, error) {
			return nil, nil
		}
	}
}

func NewRequest(options RequestParams) (req *http.Request, err error) {
	options.init()

	body, err := options.GetBody(&options)
	if err != nil {
		return nil, err
	}
	var reqBody io.Reader
	if body != nil {
		reqBody = body
	}
	req, err = http.NewRequestWithContext(options.Context, options.Method, options.Url, reqBody)
	if err != nil {
		return nil, err
	}
	req.Header = options.Header
	if body != nil {
		if sized, ok := body.(*internal_io.BytesNopCloser); ok {
			req.ContentLength = sized.Size()
		}
		req.GetBody = func() (io.ReadCloser, error) {
			return options.GetBody(&options)
		}
	}
	if len(options.Interceptors) > 0 {
		req = WithInterceptors(req, options.Interceptors...)
	}
	return
}
