package sandbox

import (
	"context"
	"net/http"
	"strings"
)

const pathUploadFile = "/api/v1/files/upload"

// Proxy 把请求转发给沙箱内的服务。
// 远程模式下路径为 api/v1/sandboxes/{id}/proxy/{path}，本地调试模式下直接使用 path，不要求 SandboxID。
// 空响应体视为失败。
func (c *Client) Proxy(ctx context.Context, req ProxyRequest) Result {
	req.Method = strings.ToUpper(strings.TrimSpace(req.Method))
	req.SandboxID = strings.TrimSpace(req.SandboxID)

	path := req.Path
	if !c.bypass {
		if req.SandboxID == "" {
			return failureResult(CodeInvalidArgument, "sandbox id is empty")
		}
		prefix, err := sandboxPath(req.SandboxID)
		if err != nil {
			return failureResult(CodeInvalidArgument, err.Error())
		}
		path = prefix + "/proxy/" + strings.TrimLeft(req.Path, "/")
	}
	if result, ok := c.invalidArgument(&req); !ok {
		return result
	}

	var body any
	switch req.Method {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
		body = req.Body
	}

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = c.config.Timeouts.Proxy
	}
	return c.call(ctx, gatewayCall{
		operation: operationProxy,
		method:    req.Method,
		path:      path,
		header:    req.Header,
		body:      body,
		timeout:   timeout,
		policy:    c.config.Retry,
	})
}

// UploadFile 通过代理通知沙箱内的工具服务拉取文件。
func (c *Client) UploadFile(ctx context.Context, req UploadFileRequest) Result {
	if req.OrganizationCode == "" {
		if auth, ok := AuthContextFrom(ctx); ok {
			req.OrganizationCode = auth.OrganizationCode
		}
	}
	if result, ok := c.invalidArgument(&req); !ok {
		return result
	}
	return c.Proxy(ctx, ProxyRequest{
		SandboxID: req.SandboxID,
		Method:    http.MethodPost,
		Path:      pathUploadFile,
		Body:      req,
	})
}

// CopyFiles 在对象存储中批量复制文件，不经过沙箱。
func (c *Client) CopyFiles(ctx context.Context, req CopyFilesRequest) Result {
	if result, ok := c.invalidArgument(&req); !ok {
		return result
	}
	return c.call(ctx, gatewayCall{
		operation: operationCopy,
		method:    http.MethodPost,
		path:      pathCopyFiles,
		body:      req,
		timeout:   c.config.Timeouts.Copy,
		policy:    c.config.Retry,
	})
}

// Upgrade 升级沙箱运行环境。
func (c *Client) Upgrade(ctx context.Context, req UpgradeRequest) Result {
	if result, ok := c.invalidArgument(&req); !ok {
		return result
	}
	return c.call(ctx, gatewayCall{
		operation: operationUpgrade,
		method:    http.MethodPut,
		path:      pathUpgrade,
		body:      req,
		timeout:   c.config.Timeouts.Upgrade,
		policy:    c.config.Retry,
	})
}

// HealthCheck 检查网关是否可用，本地调试模式下直接返回成功。
func (c *Client) HealthCheck(ctx context.Context) Result {
	if c.bypass {
		return successResult(messageBypass, nil)
	}
	return c.call(ctx, gatewayCall{
		operation: operationHealth,
		method:    http.MethodGet,
		path:      pathHealth,
		timeout:   c.config.Timeouts.Status,
		policy:    RetryPolicy{Attempts: 1, Backoff: c.config.Retry.Backoff},
	})
}
