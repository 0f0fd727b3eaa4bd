package sandbox

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 配置文件只加载一次，本包中只有这一个测试读取配置文件。
func TestConfigFromEnvironment(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[default]
gateway_url = "http://from-file:8002"
api_key = "file-key"
wait_attempts = 20
wait_interval = "3s"
retry_delay = "500ms"

[staging]
gateway_url = "http://staging:8002"
enabled = false
local_url = "http://127.0.0.1:9000"
`), 0o600))

	t.Setenv("SANDBOX_CONFIG_FILE", path)
	t.Setenv("SANDBOX_PROFILE", "")
	t.Setenv("SANDBOX_GATEWAY_URL", "http://from-env:8002")
	t.Setenv("SANDBOX_API_KEY", "")
	t.Setenv("SANDBOX_LOCAL_URL", "")
	t.Setenv("SANDBOX_ENABLED", "")

	config, err := ConfigFromEnvironment()
	require.NoError(t, err)
	assert.Equal(t, "http://from-env:8002", config.Endpoint)
	assert.Equal(t, "file-key", config.APIKey)
	assert.Nil(t, config.Enabled)
	assert.Equal(t, 20, config.WaitAttempts)
	assert.Equal(t, 3*time.Second, config.WaitInterval)
	assert.Equal(t, 500*time.Millisecond, config.Retry.Delay)
	assert.Zero(t, config.CreateRetry.Delay)

	t.Setenv("SANDBOX_PROFILE", "staging")
	t.Setenv("SANDBOX_GATEWAY_URL", "")
	config, err = ConfigFromEnvironment()
	require.NoError(t, err)
	assert.Equal(t, "http://staging:8002", config.Endpoint)
	require.NotNil(t, config.Enabled)
	assert.False(t, *config.Enabled)

	c, err := NewClient(config)
	require.NoError(t, err)
	assert.True(t, c.Bypass())
	assert.Equal(t, "http://127.0.0.1:9000", c.Transport().BaseURL())

	t.Setenv("SANDBOX_ENABLED", "true")
	config, err = ConfigFromEnvironment()
	require.NoError(t, err)
	require.NotNil(t, config.Enabled)
	assert.True(t, *config.Enabled)

	t.Setenv("SANDBOX_PROFILE", "missing")
	config, err = ConfigFromEnvironment()
	require.NoError(t, err)
	assert.Empty(t, config.Endpoint)
}
