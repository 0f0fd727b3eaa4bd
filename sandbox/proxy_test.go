package sandbox

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/magic-box/sandboxgw/sandbox/sandboxtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProxy(t *testing.T) {
	gateway := sandboxtest.NewGateway()
	c := newTestClient(t, gateway, nil)

	result := c.Proxy(context.Background(), ProxyRequest{
		SandboxID: "sb-1",
		Method:    "post",
		Path:      "/api/v1/tools/run?verbose=1",
		Body:      map[string]any{"cmd": "ls"},
		Header:    http.Header{"X-Tool": []string{"shell"}},
	})
	require.True(t, result.IsSuccess(), result.Message)
	assert.Equal(t, "POST", result.DataString("method"))
	assert.Equal(t, "/api/v1/tools/run", result.DataString("path"))
	assert.Equal(t, "verbose=1", result.DataString("query"))
	assert.JSONEq(t, `{"cmd":"ls"}`, result.DataString("body"))

	req, ok := gateway.LastRequest(sandboxtest.RouteProxy)
	require.True(t, ok)
	assert.Equal(t, "/api/v1/sandboxes/sb-1/proxy/api/v1/tools/run", req.Path)
	assert.Equal(t, "shell", req.Header.Get("X-Tool"))

	result = c.Proxy(context.Background(), ProxyRequest{
		SandboxID: "sb-1",
		Method:    http.MethodGet,
		Path:      "files",
		Body:      []byte("ignored"),
	})
	require.True(t, result.IsSuccess())
	assert.Equal(t, "/files", result.DataString("path"))
	assert.Empty(t, result.DataString("body"))

	raw := json.RawMessage(`{"a":1}`)
	result = c.Proxy(context.Background(), ProxyRequest{SandboxID: "sb-1", Method: http.MethodPatch, Path: "/x", Body: raw})
	require.True(t, result.IsSuccess())
	assert.JSONEq(t, `{"a":1}`, result.DataString("body"))
}

func TestProxyFailures(t *testing.T) {
	gateway := sandboxtest.NewGateway()
	c := newTestClient(t, gateway, nil)

	gateway.InjectFault(sandboxtest.RouteProxy, sandboxtest.Fault{Empty: true})
	result := c.Proxy(context.Background(), ProxyRequest{SandboxID: "sb-1", Method: http.MethodGet, Path: "/x"})
	assert.False(t, result.IsSuccess())
	assert.Equal(t, CodeInvalidResponse, result.Code)
	assert.Equal(t, "response is empty", result.Message)

	gateway.InjectFault(sandboxtest.RouteProxy,
		sandboxtest.Fault{HTTPStatus: http.StatusInternalServerError},
		sandboxtest.Fault{HTTPStatus: http.StatusInternalServerError},
	)
	result = c.Proxy(context.Background(), ProxyRequest{SandboxID: "sb-1", Method: http.MethodPost, Path: "/x", Body: "payload"})
	require.True(t, result.IsSuccess())
	requests := gateway.Requests(sandboxtest.RouteProxy)
	require.Len(t, requests, 4)
	// 重试时请求体可以重放
	assert.Equal(t, "payload", string(requests[3].Body))
	assert.Equal(t, "payload", string(requests[2].Body))

	for _, req := range []ProxyRequest{
		{Method: http.MethodGet, Path: "/x"},
		{SandboxID: "sb-1", Method: "FETCH", Path: "/x"},
		{SandboxID: "sb-1", Method: http.MethodGet},
	} {
		result = c.Proxy(context.Background(), req)
		assert.Equal(t, CodeInvalidArgument, result.Code)
	}
	assert.Equal(t, 4, gateway.Count(sandboxtest.RouteProxy))
}

func TestProxyBypass(t *testing.T) {
	gateway := sandboxtest.NewGateway()
	c := newBypassClient(t, gateway)

	result := c.Proxy(context.Background(), ProxyRequest{SandboxID: "sb-1", Method: http.MethodPut, Path: "/api/v1/tools/run", Body: "x"})
	require.True(t, result.IsSuccess())
	req, ok := gateway.LastRequest(sandboxtest.RouteLocal)
	require.True(t, ok)
	assert.Equal(t, "/api/v1/tools/run", req.Path)
	assert.Equal(t, 0, gateway.Count(sandboxtest.RouteProxy))
}

func TestUploadFile(t *testing.T) {
	gateway := sandboxtest.NewGateway()
	c := newTestClient(t, gateway, nil)

	ctx := WithAuthContext(context.Background(), AuthContext{OrganizationCode: "org-1"})
	result := c.UploadFile(ctx, UploadFileRequest{
		SandboxID: "sb-1",
		ProjectID: "proj-1",
		TaskID:    "task-1",
		FileKey:   "org-1/proj-1/a.txt",
	})
	require.True(t, result.IsSuccess(), result.Message)

	req, ok := gateway.LastRequest(sandboxtest.RouteProxy)
	require.True(t, ok)
	assert.Equal(t, "/api/v1/sandboxes/sb-1/proxy/api/v1/files/upload", req.Path)
	assert.Equal(t, http.MethodPost, req.Method)
	assert.JSONEq(t, `{"sandbox_id":"sb-1","project_id":"proj-1","organization_code":"org-1","task_id":"task-1","file_key":"org-1/proj-1/a.txt"}`, string(req.Body))

	result = c.UploadFile(ctx, UploadFileRequest{SandboxID: "sb-1"})
	assert.Equal(t, CodeInvalidArgument, result.Code)
}

func TestCopyFiles(t *testing.T) {
	gateway := sandboxtest.NewGateway()
	c := newTestClient(t, gateway, nil)

	result := c.CopyFiles(context.Background(), CopyFilesRequest{Files: []CopyFile{
		{SourceOSSPath: "a/1.txt", TargetOSSPath: "b/1.txt"},
		{SourceOSSPath: "a/2.txt", TargetOSSPath: "b/2.txt"},
	}})
	require.True(t, result.IsSuccess())
	assert.Equal(t, "2", result.DataString("copied"))

	req, ok := gateway.LastRequest(sandboxtest.RouteCopy)
	require.True(t, ok)
	assert.JSONEq(t, `{"files":[{"source_oss_path":"a/1.txt","target_oss_path":"b/1.txt"},{"source_oss_path":"a/2.txt","target_oss_path":"b/2.txt"}]}`, string(req.Body))

	assert.Equal(t, CodeInvalidArgument, c.CopyFiles(context.Background(), CopyFilesRequest{}).Code)
	assert.Equal(t, CodeInvalidArgument, c.CopyFiles(context.Background(), CopyFilesRequest{Files: []CopyFile{{SourceOSSPath: "a"}}}).Code)
	assert.Equal(t, 1, gateway.Count(sandboxtest.RouteCopy))
}

func TestUpgradeAndHealthCheck(t *testing.T) {
	gateway := sandboxtest.NewGateway()
	c := newTestClient(t, gateway, nil)

	result := c.Upgrade(context.Background(), UpgradeRequest{MessageID: "m-1", ContextType: "topic"})
	require.True(t, result.IsSuccess())
	req, ok := gateway.LastRequest(sandboxtest.RouteUpgrade)
	require.True(t, ok)
	assert.Equal(t, http.MethodPut, req.Method)
	assert.JSONEq(t, `{"message_id":"m-1","context_type":"topic"}`, string(req.Body))

	assert.Equal(t, CodeInvalidArgument, c.Upgrade(context.Background(), UpgradeRequest{MessageID: "m-1"}).Code)

	assert.True(t, c.HealthCheck(context.Background()).IsSuccess())
	gateway.InjectFault(sandboxtest.RouteHealth, sandboxtest.Fault{HTTPStatus: http.StatusServiceUnavailable})
	assert.Equal(t, CodeRequestFailed, c.HealthCheck(context.Background()).Code)
	assert.Equal(t, 2, gateway.Count(sandboxtest.RouteHealth))
}
