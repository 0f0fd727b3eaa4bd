// Package sandboxtest 提供一个内存中的、可编排的沙箱网关，用于测试与本地调试。
package sandboxtest

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/gorilla/mux"
)

// 网关结果码，与 sandbox 包保持一致。
const (
	codeSuccess       = 1000
	codeNotFound      = 4004
	codeRequestFailed = 5000
)

// 沙箱状态。
const (
	StatusPending  = "Pending"
	StatusRunning  = "Running"
	StatusExited   = "Exited"
	StatusNotFound = "NotFound"
)

// 路由名，用于故障注入与请求统计。
const (
	RouteCreate  = "create"
	RouteStatus  = "status"
	RouteBatch   = "batch_status"
	RouteProxy   = "proxy"
	RouteCopy    = "copy"
	RouteUpgrade = "upgrade"
	RouteHealth  = "health"
	// RouteLocal 匹配其余所有路径，模拟本地调试模式下直接访问的服务。
	RouteLocal = "local"
)

// Sandbox 是网关中记录的一个沙箱。
type Sandbox struct {
	ID        string
	ProjectID string
	WorkDir   string
	Status    string

	probes int
}

// Request 是网关收到的一个请求。
type Request struct {
	Route  string
	Method string
	Path   string
	Header http.Header
	Body   []byte
}

// JSON 把请求体解码到 v。
func (r Request) JSON(v any) error {
	return json.Unmarshal(r.Body, v)
}

// Fault 是注入到某个路由的一次故障。
type Fault struct {
	// HTTPStatus 非 0 时以该状态码响应，响应体为 {code: Code, message: Message} 信封。
	HTTPStatus int
	// Code 信封中的结果码，为 0 时取 5000。
	Code    int
	Message string
	// Empty 为 true 时返回 HTTP 200 与空响应体。
	Empty bool
}

// Gateway 是可编排的内存网关，实现了 http.Handler，可直接交给 httptest.NewServer。
type Gateway struct {
	// ProbesUntilRunning 新创建的沙箱在前 N 次状态查询中报告 Pending，之后报告 Running。
	ProbesUntilRunning int

	// AssignID 非空时决定创建接口返回的沙箱 ID。
	AssignID func(requested string) string

	mu        sync.Mutex
	router    *mux.Router
	sandboxes map[string]*Sandbox
	scripts   map[string][]string
	faults    map[string][]Fault
	requests  []Request
	nextID    int
}

// NewGateway 创建一个空的网关。
func NewGateway() *Gateway {
	g := &Gateway{
		sandboxes: make(map[string]*Sandbox),
		scripts:   make(map[string][]string),
		faults:    make(map[string][]Fault),
	}

	r := mux.NewRouter()
	r.HandleFunc("/health", g.handle(RouteHealth, g.health)).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/sandboxes", g.handle(RouteCreate, g.create)).Methods(http.MethodPost)
	r.HandleFunc("/api/v1/sandboxes/queries", g.handle(RouteBatch, g.batchStatus)).Methods(http.MethodPost)
	r.HandleFunc("/api/v1/sandboxes/upgrade", g.handle(RouteUpgrade, g.upgrade)).Methods(http.MethodPut)
	r.PathPrefix("/api/v1/sandboxes/{sandbox_id}/proxy/").HandlerFunc(g.handle(RouteProxy, g.proxy))
	r.HandleFunc("/api/v1/sandboxes/{sandbox_id}", g.handle(RouteStatus, g.status)).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/files/copy", g.handle(RouteCopy, g.copyFiles)).Methods(http.MethodPost)
	r.PathPrefix("/").HandlerFunc(g.handle(RouteLocal, g.echo))
	g.router = r
	return g
}

func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	g.router.ServeHTTP(w, r)
}

// SetStatus 新增或覆盖一个沙箱记录。
func (g *Gateway) SetStatus(id, status string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	sb, ok := g.sandboxes[id]
	if !ok {
		sb = &Sandbox{ID: id}
		g.sandboxes[id] = sb
	}
	sb.Status = status
}

// ScriptStatus 指定 id 后续状态查询依次返回的状态，最后一个状态保持不变。
// 脚本优先于沙箱记录；StatusNotFound 以 4004 结果码返回。
func (g *Gateway) ScriptStatus(id string, statuses ...string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.scripts[id] = append([]string(nil), statuses...)
}

// InjectFault 为 route 排入一次故障，按先进先出消费。
func (g *Gateway) InjectFault(route string, faults ...Fault) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.faults[route] = append(g.faults[route], faults...)
}

// Sandbox 返回沙箱记录的副本。
func (g *Gateway) Sandbox(id string) (Sandbox, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	sb, ok := g.sandboxes[id]
	if !ok {
		return Sandbox{}, false
	}
	return *sb, true
}

// Count 返回 route 收到的请求数，route 为空时返回全部请求数。
func (g *Gateway) Count(route string) int {
	return len(g.Requests(route))
}

// Requests 返回 route 收到的请求，route 为空时返回全部请求。
func (g *Gateway) Requests(route string) []Request {
	g.mu.Lock()
	defer g.mu.Unlock()
	var requests []Request
	for _, req := range g.requests {
		if route == "" || req.Route == route {
			requests = append(requests, req)
		}
	}
	return requests
}

// LastRequest 返回 route 最近一次收到的请求。
func (g *Gateway) LastRequest(route string) (Request, bool) {
	requests := g.Requests(route)
	if len(requests) == 0 {
		return Request{}, false
	}
	return requests[len(requests)-1], true
}

type handlerFunc func(w http.ResponseWriter, r *http.Request, body []byte)

func (g *Gateway) handle(route string, fn handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			writeEnvelope(w, http.StatusBadRequest, codeRequestFailed, err.Error(), nil)
			return
		}

		g.mu.Lock()
		g.requests = append(g.requests, Request{
			Route:  route,
			Method: r.Method,
			Path:   r.URL.Path,
			Header: r.Header.Clone(),
			Body:   body,
		})
		var fault *Fault
		if queued := g.faults[route]; len(queued) > 0 {
			fault = &queued[0]
			g.faults[route] = queued[1:]
		}
		g.mu.Unlock()

		if fault != nil {
			writeFault(w, *fault)
			return
		}
		fn(w, r, body)
	}
}

func writeFault(w http.ResponseWriter, fault Fault) {
	if fault.Empty {
		w.WriteHeader(http.StatusOK)
		return
	}
	code := fault.Code
	if code == 0 {
		code = codeRequestFailed
	}
	status := fault.HTTPStatus
	if status == 0 {
		status = http.StatusOK
	}
	message := fault.Message
	if message == "" {
		message = fmt.Sprintf("injected fault %d", code)
	}
	writeEnvelope(w, status, code, message, nil)
}

func writeEnvelope(w http.ResponseWriter, httpStatus, code int, message string, data any) {
	envelope := map[string]any{"code": code, "message": message}
	if data != nil {
		envelope["data"] = data
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus)
	_ = json.NewEncoder(w).Encode(envelope)
}

func (g *Gateway) health(w http.ResponseWriter, _ *http.Request, _ []byte) {
	writeEnvelope(w, http.StatusOK, codeSuccess, "ok", map[string]any{"status": "ok"})
}

func (g *Gateway) create(w http.ResponseWriter, _ *http.Request, body []byte) {
	var req struct {
		ProjectID string `json:"project_id"`
		SandboxID string `json:"sandbox_id"`
		WorkDir   string `json:"project_oss_path"`
	}
	if err := json.Unmarshal(body, &req); err != nil {
		writeEnvelope(w, http.StatusBadRequest, 4000, err.Error(), nil)
		return
	}

	g.mu.Lock()
	id := req.SandboxID
	if g.AssignID != nil {
		id = g.AssignID(req.SandboxID)
	} else if id == "" {
		for id == "" || g.sandboxes[id] != nil {
			g.nextID++
			id = fmt.Sprintf("sb-%d", g.nextID)
		}
	}
	sb, ok := g.sandboxes[id]
	if !ok || sb.Status != StatusRunning {
		// 相同 ID 的重复创建不会产生新沙箱，只会重启不可用的沙箱
		sb = &Sandbox{ID: id, Status: StatusPending}
		if g.ProbesUntilRunning <= 0 {
			sb.Status = StatusRunning
		}
		g.sandboxes[id] = sb
	}
	sb.ProjectID = req.ProjectID
	sb.WorkDir = req.WorkDir
	g.mu.Unlock()

	writeEnvelope(w, http.StatusOK, codeSuccess, "created", map[string]any{"sandbox_id": id})
}

func (g *Gateway) status(w http.ResponseWriter, r *http.Request, _ []byte) {
	id := mux.Vars(r)["sandbox_id"]
	status := g.probe(id)
	if status == StatusNotFound {
		writeEnvelope(w, http.StatusOK, codeNotFound, "sandbox not found", nil)
		return
	}
	writeEnvelope(w, http.StatusOK, codeSuccess, "ok", map[string]any{"sandbox_id": id, "status": status})
}

func (g *Gateway) probe(id string) string {
	g.mu.Lock()
	defer g.mu.Unlock()

	if script := g.scripts[id]; len(script) > 0 {
		status := script[0]
		if len(script) > 1 {
			g.scripts[id] = script[1:]
		}
		return status
	}

	sb, ok := g.sandboxes[id]
	if !ok {
		return StatusNotFound
	}
	if sb.Status == StatusPending {
		sb.probes++
		if sb.probes > g.ProbesUntilRunning {
			sb.Status = StatusRunning
		}
	}
	return sb.Status
}

func (g *Gateway) batchStatus(w http.ResponseWriter, _ *http.Request, body []byte) {
	var req struct {
		SandboxIDs []string `json:"sandbox_ids"`
	}
	if err := json.Unmarshal(body, &req); err != nil {
		writeEnvelope(w, http.StatusBadRequest, 4000, err.Error(), nil)
		return
	}

	g.mu.Lock()
	items := make([]map[string]any, 0, len(req.SandboxIDs))
	for _, id := range req.SandboxIDs {
		status := StatusNotFound
		if sb, ok := g.sandboxes[id]; ok {
			status = sb.Status
		}
		items = append(items, map[string]any{"sandbox_id": id, "status": status})
	}
	g.mu.Unlock()

	writeEnvelope(w, http.StatusOK, codeSuccess, "ok", map[string]any{"sandboxes": items})
}

func (g *Gateway) proxy(w http.ResponseWriter, r *http.Request, body []byte) {
	id := mux.Vars(r)["sandbox_id"]
	prefix := "/api/v1/sandboxes/" + id + "/proxy"
	writeEnvelope(w, http.StatusOK, codeSuccess, "ok", map[string]any{
		"sandbox_id": id,
		"method":     r.Method,
		"path":       strings.TrimPrefix(r.URL.Path, prefix),
		"query":      r.URL.RawQuery,
		"body":       string(body),
	})
}

func (g *Gateway) echo(w http.ResponseWriter, r *http.Request, body []byte) {
	writeEnvelope(w, http.StatusOK, codeSuccess, "ok", map[string]any{
		"method": r.Method,
		"path":   r.URL.Path,
		"query":  r.URL.RawQuery,
		"body":   string(body),
	})
}

func (g *Gateway) copyFiles(w http.ResponseWriter, _ *http.Request, body []byte) {
	var req struct {
		Files []struct {
			Source string `json:"source_oss_path"`
			Target string `json:"target_oss_path"`
		} `json:"files"`
	}
	if err := json.Unmarshal(body, &req); err != nil {
		writeEnvelope(w, http.StatusBadRequest, 4000, err.Error(), nil)
		return
	}
	writeEnvelope(w, http.StatusOK, codeSuccess, "ok", map[string]any{"copied": len(req.Files)})
}

func (g *Gateway) upgrade(w http.ResponseWriter, _ *http.Request, body []byte) {
	var req struct {
		MessageID   string `json:"message_id"`
		ContextType string `json:"context_type"`
	}
	if err := json.Unmarshal(body, &req); err != nil {
		writeEnvelope(w, http.StatusBadRequest, 4000, err.Error(), nil)
		return
	}
	writeEnvelope(w, http.StatusOK, codeSuccess, "upgraded", map[string]any{
		"message_id":   req.MessageID,
		"context_type": req.ContextType,
	})
}
