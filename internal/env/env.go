package env

import (
	"os"
	"strings"
)

const (
	environmentVariableNameSandboxGatewayURL = "SANDBOX_GATEWAY_URL"
	environmentVariableNameSandboxAPIKey     = "SANDBOX_API_KEY"
	environmentVariableNameSandboxEnabled    = "SANDBOX_ENABLED"
	environmentVariableNameSandboxLocalURL   = "SANDBOX_LOCAL_URL"
	environmentVariableNameSandboxConfigFile = "SANDBOX_CONFIG_FILE"
	environmentVariableNameSandboxProfile    = "SANDBOX_PROFILE"
	environmentVariableNameSandboxDebug      = "SANDBOX_DEBUG"
)

func GatewayURLFromEnvironment() string {
	return strings.TrimSpace(os.Getenv(environmentVariableNameSandboxGatewayURL))
}

func APIKeyFromEnvironment() string {
	return strings.TrimSpace(os.Getenv(environmentVariableNameSandboxAPIKey))
}

func LocalURLFromEnvironment() string {
	return strings.TrimSpace(os.Getenv(environmentVariableNameSandboxLocalURL))
}

func ConfigFileFromEnvironment() string {
	return os.Getenv(environmentVariableNameSandboxConfigFile)
}

func ProfileFromEnvironment() string {
	return os.Getenv(environmentVariableNameSandboxProfile)
}

// EnabledFromEnvironment 返回 (是否启用远程沙箱网关, 是否设置了该变量)。
func EnabledFromEnvironment() (bool, bool) {
	return boolFromEnvironment(environmentVariableNameSandboxEnabled)
}

func DebugFromEnvironment() string {
	return os.Getenv(environmentVariableNameSandboxDebug)
}

func boolFromEnvironment(name string) (bool, bool) {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(name)))
	if value == "" {
		return false, false
	}
	return value == "true" || value == "yes" || value == "y" || value == "1", true
}
