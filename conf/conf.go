package conf

import (
	"strings"

	"github.com/magic-box/sandboxgw/internal/env"
)

const Version = "1.4.0"

const CONTENT_TYPE_JSON = "application/json"

// UserAgent 是网关请求默认携带的 User-Agent。
const UserAgent = "sandboxgw-go/" + Version

// DebugLevel 网关请求的调试输出级别。
type DebugLevel int

const (
	// DebugOff 不输出
	DebugOff DebugLevel = iota
	// DebugBasic 输出请求与响应头
	DebugBasic
	// DebugDetail 额外输出请求与响应体，以及连接追踪信息
	DebugDetail
)

// ParseDebugLevel 解析 SANDBOX_DEBUG 的取值：detail 或 trace 为 DebugDetail，true/yes/y/1 为 DebugBasic，其余为 DebugOff。
func ParseDebugLevel(value string) DebugLevel {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "detail", "trace":
		return DebugDetail
	case "true", "yes", "y", "1":
		return DebugBasic
	default:
		return DebugOff
	}
}

func DebugLevelFromEnvironment() DebugLevel {
	return ParseDebugLevel(env.DebugFromEnvironment())
}

func IsDebugMode() bool {
	return DebugLevelFromEnvironment() != DebugOff
}
