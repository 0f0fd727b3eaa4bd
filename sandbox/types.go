package sandbox

import (
	"net/http"
	"strings"
	"time"
)

// SandboxStatus 沙箱状态。
type SandboxStatus string

// 沙箱状态常量。
const (
	StatusPending  SandboxStatus = "Pending"
	StatusRunning  SandboxStatus = "Running"
	StatusExited   SandboxStatus = "Exited"
	StatusNotFound SandboxStatus = "NotFound"
	StatusUnknown  SandboxStatus = "Unknown"
)

var knownStatuses = []SandboxStatus{StatusPending, StatusRunning, StatusExited, StatusNotFound}

// ParseSandboxStatus 忽略大小写解析网关返回的状态，无法识别时返回 StatusUnknown。
func ParseSandboxStatus(s string) SandboxStatus {
	s = strings.TrimSpace(s)
	for _, status := range knownStatuses {
		if strings.EqualFold(s, string(status)) {
			return status
		}
	}
	return StatusUnknown
}

// IsAvailable 只有 Running 状态的沙箱可以使用。
func (s SandboxStatus) IsAvailable() bool {
	return s == StatusRunning
}

func (s SandboxStatus) String() string {
	return string(s)
}

// CreateRequest 创建沙箱的请求参数。
type CreateRequest struct {
	// ProjectID 项目 ID（必填）。
	ProjectID string `json:"project_id" validate:"required"`

	// SandboxID 调用方指定的沙箱 ID，为空时由网关分配。
	// 网关保证相同 ID 的重复创建不会产生多个沙箱。
	SandboxID string `json:"sandbox_id"`

	// WorkDir 项目工作目录在对象存储中的路径。
	WorkDir string `json:"project_oss_path"`
}

type batchStatusRequest struct {
	SandboxIDs []string `json:"sandbox_ids"`
}

// ProxyRequest 转发到沙箱内部服务的请求。
type ProxyRequest struct {
	// SandboxID 远程模式下必填。
	SandboxID string
	Method    string `validate:"required,oneof=GET POST PUT PATCH DELETE HEAD"`
	Path      string `validate:"required"`

	// Body 仅在 POST、PUT、PATCH 时发送。[]byte 与 json.RawMessage 原样发送，其余值编码为 JSON。
	Body any

	// Header 额外的请求头。
	Header http.Header

	// Timeout 单次尝试的超时时间，0 使用 Config.Timeouts.Proxy。
	Timeout time.Duration
}

// UploadFileRequest 通知沙箱内的工具服务拉取并落盘一个文件。
type UploadFileRequest struct {
	// SandboxID 远程模式下必填。
	SandboxID string `json:"sandbox_id"`
	ProjectID string `json:"project_id" validate:"required"`

	// OrganizationCode 为空时取 context 中 AuthContext 的组织编码。
	OrganizationCode string `json:"organization_code"`
	TaskID           string `json:"task_id"`

	// FileKey 文件在对象存储中的路径。
	FileKey string `json:"file_key" validate:"required"`

	// TargetPath 沙箱工作目录内的目标路径，为空时由沙箱决定。
	TargetPath string `json:"target_path,omitempty"`
}

// CopyFile 一组对象存储之间的复制。
type CopyFile struct {
	SourceOSSPath string `json:"source_oss_path" validate:"required"`
	TargetOSSPath string `json:"target_oss_path" validate:"required"`
}

// CopyFilesRequest 批量复制文件的请求参数。
type CopyFilesRequest struct {
	Files []CopyFile `json:"files" validate:"required,min=1,dive"`
}

// UpgradeRequest 升级沙箱的请求参数。
type UpgradeRequest struct {
	MessageID   string `json:"message_id" validate:"required"`
	ContextType string `json:"context_type" validate:"required"`
}
