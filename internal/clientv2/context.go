package clientv2

import (
	"context"
	"net/http"
)

type interceptorsContextKey struct{}

// WithInterceptors 为单个请求附加拦截器，与客户端级拦截器一起按优先级排序。
func WithInterceptors(req *http.Request, interceptors ...Interceptor) *http.Request {
	newInterceptors, ok := req.Context().Value(interceptorsContextKey{}).(Interceptors)
	if !ok {
		newInterceptors = make(Interceptors, 0, len(interceptors))
	} else {
		newInterceptors = append(Interceptors{}, newInterceptors...)
	}
	newInterceptors = append(newInterceptors, interceptors...)
	return req.WithContext(context.WithValue(req.Context(), interceptorsContextKey{}, newInterceptors))
}

func getInterceptorsFromRequest(req *http.Request) Interceptors {
	if req == nil {
		return nil
	}
	interceptors, _ := req.Context().Value(interceptorsContextKey{}).(Interceptors)
	return interceptors
}
