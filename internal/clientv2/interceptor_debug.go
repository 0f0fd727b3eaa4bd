package clientv2

import (
	"net/http"
	"net/http/httptrace"
	"net/http/httputil"

	"github.com/magic-box/sandboxgw/conf"
	"github.com/magic-box/sandboxgw/internal/log"
	"go.uber.org/zap"
)

const redactedHeaderValue = "***"

var defaultRedactedHeaders = []string{"Authorization", "Proxy-Authorization"}

type debugInterceptor struct {
	logger *zap.Logger
	level  conf.DebugLevel
	redact []string
}

// NewDebugInterceptor 以 Debug 级别把请求与响应写入 logger。
// DebugBasic 只输出头部，DebugDetail 额外输出 body 与连接追踪。
// Authorization 与 redactHeaders 中的请求头在输出前被替换为 ***。
func NewDebugInterceptor(logger *zap.Logger, level conf.DebugLevel, redactHeaders ...string) Interceptor {
	if logger == nil {
		logger = log.Logger()
	}
	redact := make([]string, 0, len(defaultRedactedHeaders)+len(redactHeaders))
	redact = append(redact, defaultRedactedHeaders...)
	redact = append(redact, redactHeaders...)
	return &debugInterceptor{logger: logger, level: level, redact: redact}
}

func newDefaultDebugInterceptor() Interceptor {
	return NewDebugInterceptor(nil, conf.DebugLevelFromEnvironment())
}

func (r *debugInterceptor) Priority() InterceptorPriority {
	return InterceptorPriorityDebug
}

func (r *debugInterceptor) Intercept(req *http.Request, handler Handler) (*http.Response, error) {
	if r.level == conf.DebugOff || req == nil || req.URL == nil {
		return handler(req)
	}
	url := req.URL.String()
	detail := r.level >= conf.DebugDetail

	if e := r.printRequest(url, req, detail); e != nil {
		return nil, e
	}

	if detail {
		req = r.printRequestTrace(url, req)
	}

	resp, err := handler(req)

	if e := r.printResponse(url, resp, detail); e != nil {
		return nil, e
	}

	return resp, err
}

func (r *debugInterceptor) printRequest(url string, req *http.Request, detail bool) error {
	header := req.Header
	req.Header = redactHeader(header, r.redact)
	dump, dErr := httputil.DumpRequestOut(req, detail)
	req.Header = header
	if dErr != nil {
		return dErr
	}
	r.logger.Debug("gateway request", zap.String("url", url), zap.ByteString("dump", dump))
	return nil
}

// redactHeader 返回替换了敏感字段的副本，没有敏感字段时返回原 header。
func redactHeader(header http.Header, names []string) http.Header {
	var redacted http.Header
	for _, name := range names {
		if len(header.Values(name)) == 0 {
			continue
		}
		if redacted == nil {
			redacted = header.Clone()
		}
		redacted.Set(name, redactedHeaderValue)
	}
	if redacted == nil {
		return header
	}
	return redacted
}

func (r *debugInterceptor) printRequestTrace(url string, req *http.Request) *http.Request {
	logger := r.logger.With(zap.String("url", url))
	trace := &httptrace.ClientTrace{
		GetConn: func(hostPort string) {
			logger.Debug("GetConn", zap.String("host_port", hostPort))
		},
		GotConn: func(connInfo httptrace.GotConnInfo) {
			remoteAddr := connInfo.Conn.RemoteAddr()
			logger.Debug("GotConn", zap.String("network", remoteAddr.Network()), zap.String("remote_addr", remoteAddr.String()), zap.Bool("reused", connInfo.Reused))
		},
		DNSStart: func(info httptrace.DNSStartInfo) {
			logger.Debug("DNSStart", zap.String("host", info.Host))
		},
		DNSDone: func(info httptrace.DNSDoneInfo) {
			logger.Debug("DNSDone", zap.Any("addrs", info.Addrs), zap.Error(info.Err))
		},
		ConnectDone: func(network, addr string, err error) {
			logger.Debug("ConnectDone", zap.String("network", network), zap.String("addr", addr), zap.Error(err))
		},
		GotFirstResponseByte: func() {
			logger.Debug("GotFirstResponseByte")
		},
		WroteRequest: func(info httptrace.WroteRequestInfo) {
			logger.Debug("WroteRequest", zap.Error(info.Err))
		},
	}
	return req.WithContext(httptrace.WithClientTrace(req.Context(), trace))
}

func (r *debugInterceptor) printResponse(url string, resp *http.Response, detail bool) error {
	if resp == nil {
		return nil
	}

	dump, dErr := httputil.DumpResponse(resp, detail)
	if dErr != nil {
		return dErr
	}
	r.logger.Debug("gateway response", zap.String("url", url), zap.ByteString("dump", dump))
	return nil
}
