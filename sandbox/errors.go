package sandbox

import (
	"errors"
	"fmt"
)

var (
	// ErrLocalURLRequired 本地调试模式下未配置 LocalURL。
	ErrLocalURLRequired = errors.New("sandbox: local url is required when the gateway is disabled")

	// ErrEndpointRequired 启用网关时未配置 Endpoint。
	ErrEndpointRequired = errors.New("sandbox: gateway endpoint is required")
)

// EnsureAvailable 使用的操作标签。
const (
	OpCreate = "create"
	OpWait   = "wait"
	OpEnsure = "ensure"
)

// OperationError 表示沙箱编排过程中不可恢复的失败，
// 是 EnsureAvailable 唯一会返回的错误类型。
type OperationError struct {
	// Op 失败的阶段：create、wait 或 ensure。
	Op string
	// Code 网关返回的结果码，或本地合成的 CodeWaitTimeout / CodeSandboxExited / CodeIDMismatch。
	Code int
	// Message 失败描述。
	Message string
	// SandboxID 失败时涉及的沙箱 ID（可能为空）。
	SandboxID string
	// Err 底层原因（可选），如 context.Canceled。
	Err error
}

// Error 实现 error 接口。
func (e *OperationError) Error() string {
	msg := fmt.Sprintf("sandbox %s failed: code %d: %s", e.Op, e.Code, e.Message)
	if e.SandboxID != "" {
		msg += " (sandbox_id=" + e.SandboxID + ")"
	}
	return msg
}

// Unwrap 返回底层原因。
func (e *OperationError) Unwrap() error {
	return e.Err
}

func newOperationError(op string, code int, sandboxID, message string, err error) *OperationError {
	return &OperationError{Op: op, Code: code, Message: message, SandboxID: sandboxID, Err: err}
}

// IsOperationError 判断 err 是否为指定阶段的 OperationError，op 为空时匹配任意阶段。
func IsOperationError(err error, op string) bool {
	var opErr *OperationError
	if !errors.As(err, &opErr) {
		return false
	}
	return op == "" || opErr.Op == op
}
