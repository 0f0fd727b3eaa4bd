package configfile

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/magic-box/sandboxgw/internal/env"
	"gopkg.in/yaml.v3"
)

// Profile 是配置文件中的一个 profile。
type Profile struct {
	GatewayURL string `toml:"gateway_url" yaml:"gateway_url"`
	APIKey     string `toml:"api_key" yaml:"api_key"`
	Enabled    *bool  `toml:"enabled" yaml:"enabled"`
	LocalURL   string `toml:"local_url" yaml:"local_url"`

	WaitAttempts     int    `toml:"wait_attempts" yaml:"wait_attempts"`
	WaitInterval     string `toml:"wait_interval" yaml:"wait_interval"`
	RetryDelay       string `toml:"retry_delay" yaml:"retry_delay"`
	CreateRetryDelay string `toml:"create_retry_delay" yaml:"create_retry_delay"`
}

var (
	profileConfigs      map[string]*Profile
	profileConfigsError error
	profileConfigsOnce  sync.Once

	ErrInvalidDuration = errors.New("invalid duration in config file")
)

// ProfileFromConfigFile 返回 SANDBOX_PROFILE 指定的 profile（默认 "default"）。
// 配置文件不存在时返回 (nil, nil)。
func ProfileFromConfigFile() (*Profile, error) {
	if err := load(); err != nil {
		return nil, err
	}
	profileName := env.ProfileFromEnvironment()
	if profileName == "" {
		profileName = "default"
	}
	profile, ok := profileConfigs[profileName]
	if !ok || profile == nil {
		return nil, nil
	}
	copied := *profile
	return &copied, nil
}

// Duration 解析 profile 中的时长字段，空字符串返回 0。
func Duration(value string) (time.Duration, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil || d < 0 {
		return 0, ErrInvalidDuration
	}
	return d, nil
}

func load() error {
	profileConfigsOnce.Do(func() {
		profileConfigsError = _load()
	})
	return profileConfigsError
}

func _load() error {
	configFilePath := env.ConfigFileFromEnvironment()
	explicit := configFilePath != ""
	if !explicit {
		configFilePath = getDefaultConfigFilePath()
	}
	data, err := os.ReadFile(configFilePath)
	if err != nil {
		if !explicit && os.IsNotExist(err) {
			return nil
		}
		return err
	}

	switch strings.ToLower(filepath.Ext(configFilePath)) {
	case ".yaml", ".yml":
		return yaml.Unmarshal(data, &profileConfigs)
	default:
		_, err = toml.Decode(string(data), &profileConfigs)
		return err
	}
}

func getDefaultConfigFilePath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = ""
	}
	return filepath.Join(homeDir, ".sandboxgw", "config.toml")
}
