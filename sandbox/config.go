package sandbox

import (
	"fmt"

	"github.com/magic-box/sandboxgw/internal/configfile"
	"github.com/magic-box/sandboxgw/internal/env"
)

// ConfigFromEnvironment 依次合并配置文件 profile 与 SANDBOX_* 环境变量，后者优先。
//
// 配置文件路径由 SANDBOX_CONFIG_FILE 指定（默认 ~/.sandboxgw/config.toml），
// profile 由 SANDBOX_PROFILE 指定（默认 default）。
func ConfigFromEnvironment() (*Config, error) {
	config := &Config{}

	profile, err := configfile.ProfileFromConfigFile()
	if err != nil {
		return nil, fmt.Errorf("sandbox: load config file: %w", err)
	}
	if profile != nil {
		if err := applyProfile(config, profile); err != nil {
			return nil, err
		}
	}

	if v := env.GatewayURLFromEnvironment(); v != "" {
		config.Endpoint = v
	}
	if v := env.APIKeyFromEnvironment(); v != "" {
		config.APIKey = v
	}
	if v := env.LocalURLFromEnvironment(); v != "" {
		config.LocalURL = v
	}
	if enabled, ok := env.EnabledFromEnvironment(); ok {
		config.Enabled = Bool(enabled)
	}
	return config, nil
}

func applyProfile(config *Config, profile *configfile.Profile) error {
	config.Endpoint = profile.GatewayURL
	config.APIKey = profile.APIKey
	config.LocalURL = profile.LocalURL
	if profile.Enabled != nil {
		config.Enabled = Bool(*profile.Enabled)
	}
	config.WaitAttempts = profile.WaitAttempts

	var err error
	if config.WaitInterval, err = configfile.Duration(profile.WaitInterval); err != nil {
		return fmt.Errorf("sandbox: wait_interval: %w", err)
	}
	if config.Retry.Delay, err = configfile.Duration(profile.RetryDelay); err != nil {
		return fmt.Errorf("sandbox: retry_delay: %w", err)
	}
	if config.CreateRetry.Delay, err = configfile.Duration(profile.CreateRetryDelay); err != nil {
		return fmt.Errorf("sandbox: create_retry_delay: %w", err)
	}
	return nil
}
