package sandboxtest

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type envelope struct {
	Code    int            `json:"code"`
	Message string         `json:"message"`
	Data    map[string]any `json:"data"`
}

func call(t *testing.T, server *httptest.Server, method, path, body string) (int, envelope) {
	t.Helper()
	req, err := http.NewRequest(method, server.URL+path, bytes.NewBufferString(body))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var e envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&e))
	return resp.StatusCode, e
}

func TestGatewayLifecycle(t *testing.T) {
	g := NewGateway()
	g.ProbesUntilRunning = 1
	server := httptest.NewServer(g)
	defer server.Close()

	_, e := call(t, server, http.MethodGet, "/api/v1/sandboxes/sb-1", "")
	assert.Equal(t, codeNotFound, e.Code)

	_, e = call(t, server, http.MethodPost, "/api/v1/sandboxes", `{"project_id":"p","sandbox_id":"sb-1","project_oss_path":"/ws"}`)
	require.Equal(t, codeSuccess, e.Code)
	assert.Equal(t, "sb-1", e.Data["sandbox_id"])

	_, e = call(t, server, http.MethodGet, "/api/v1/sandboxes/sb-1", "")
	assert.Equal(t, StatusPending, e.Data["status"])
	_, e = call(t, server, http.MethodGet, "/api/v1/sandboxes/sb-1", "")
	assert.Equal(t, StatusRunning, e.Data["status"])

	// 重复创建不会重置运行中的沙箱
	call(t, server, http.MethodPost, "/api/v1/sandboxes", `{"project_id":"p","sandbox_id":"sb-1"}`)
	sb, ok := g.Sandbox("sb-1")
	require.True(t, ok)
	assert.Equal(t, StatusRunning, sb.Status)

	// 自动分配的 ID 跳过已存在的沙箱
	_, e = call(t, server, http.MethodPost, "/api/v1/sandboxes", `{"project_id":"p"}`)
	assert.Equal(t, "sb-2", e.Data["sandbox_id"])
	_, e = call(t, server, http.MethodPost, "/api/v1/sandboxes", `{"project_id":"p","sandbox_id":""}`)
	assert.Equal(t, "sb-3", e.Data["sandbox_id"])

	_, e = call(t, server, http.MethodPost, "/api/v1/sandboxes/queries", `{"sandbox_ids":["sb-1","nope"]}`)
	require.Equal(t, codeSuccess, e.Code)
	items := e.Data["sandboxes"].([]any)
	require.Len(t, items, 2)
	assert.Equal(t, StatusNotFound, items[1].(map[string]any)["status"])

	assert.Equal(t, 5, g.Count(RouteCreate)+g.Count(RouteBatch))
	assert.Equal(t, 3, g.Count(RouteStatus))
}

func TestGatewayScriptsAndFaults(t *testing.T) {
	g := NewGateway()
	g.ScriptStatus("sb-1", StatusPending, StatusExited)
	g.InjectFault(RouteHealth, Fault{HTTPStatus: http.StatusBadGateway, Message: "down"})
	server := httptest.NewServer(g)
	defer server.Close()

	for _, want := range []string{StatusPending, StatusExited, StatusExited} {
		_, e := call(t, server, http.MethodGet, "/api/v1/sandboxes/sb-1", "")
		assert.Equal(t, want, e.Data["status"])
	}

	status, e := call(t, server, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusBadGateway, status)
	assert.Equal(t, codeRequestFailed, e.Code)
	assert.Equal(t, "down", e.Message)

	status, e = call(t, server, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, codeSuccess, e.Code)

	_, e = call(t, server, http.MethodPatch, "/api/v1/sandboxes/sb-1/proxy/tools/run", `{"x":1}`)
	assert.Equal(t, "/tools/run", e.Data["path"])
	assert.Equal(t, http.MethodPatch, e.Data["method"])

	_, e = call(t, server, http.MethodDelete, "/anything", "")
	assert.Equal(t, "/anything", e.Data["path"])

	req, ok := g.LastRequest(RouteProxy)
	require.True(t, ok)
	var body map[string]int
	require.NoError(t, req.JSON(&body))
	assert.Equal(t, 1, body["x"])
}
