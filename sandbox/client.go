package sandbox

import (
	"net/http"
	"strings"
	"time"

	"github.com/magic-box/sandboxgw/backoff"
	"github.com/magic-box/sandboxgw/conf"
	"github.com/magic-box/sandboxgw/internal/log"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// 各类网关调用的默认超时与重试参数。
const (
	DefaultStatusTimeout      = 10 * time.Second
	DefaultBatchStatusTimeout = 10 * time.Second
	DefaultCreateTimeout      = 30 * time.Second
	DefaultProxyTimeout       = 30 * time.Second
	DefaultCopyTimeout        = 60 * time.Second
	DefaultUpgradeTimeout     = 60 * time.Second

	DefaultRetryAttempts    = 3
	DefaultRetryDelay       = time.Second
	DefaultCreateRetryDelay = 30 * time.Second

	DefaultWaitAttempts = 15
	DefaultWaitInterval = 2 * time.Second
)

// Timeouts 是每类操作单次尝试的超时时间，零值使用默认值。
type Timeouts struct {
	Status      time.Duration
	BatchStatus time.Duration
	Create      time.Duration
	Proxy       time.Duration
	Copy        time.Duration
	Upgrade     time.Duration
}

// RetryPolicy 描述有界重试：最多 Attempts 次尝试，两次尝试之间等待 Delay。
// 设置 Backoff 时忽略 Delay。
type RetryPolicy struct {
	Attempts int
	Delay    time.Duration
	Backoff  backoff.Backoff
}

func (p RetryPolicy) withDefaults(delay time.Duration) RetryPolicy {
	if p.Attempts <= 0 {
		p.Attempts = DefaultRetryAttempts
	}
	if p.Delay <= 0 {
		p.Delay = delay
	}
	if p.Backoff == nil {
		p.Backoff = backoff.NewFixedBackoff(p.Delay)
	}
	return p
}

// Config 是网关客户端的配置。
type Config struct {
	// Endpoint 是远程沙箱网关地址，启用网关时必填。
	Endpoint string

	// APIKey 通过 X-API-Key 请求头发送（可选）。
	APIKey string

	// Enabled 为 false 时进入本地调试模式：跳过网关编排，直接访问 LocalURL。
	// nil 视为 true。
	Enabled *bool

	// LocalURL 是本地调试模式下的服务地址，Enabled 为 false 时必填。
	LocalURL string

	// HTTPClient 自定义 HTTP 客户端（可选）。
	// 默认客户端对网关域名解析出的所有地址竞速拨号。
	HTTPClient *http.Client

	// DialTimeout 默认客户端的拨号超时（可选，默认 5 秒）。
	DialTimeout time.Duration

	// Logger 自定义日志（可选，默认使用 internal/log 的全局 logger）。
	// 请求与响应的调试输出也写入该 logger，级别为 Debug。
	Logger *zap.Logger

	// Debug 调试输出级别，与 SANDBOX_DEBUG 取较高者。输出中 X-API-Key 被替换为 ***。
	Debug conf.DebugLevel

	Timeouts Timeouts

	// Retry 用于状态查询、代理、复制与升级；CreateRetry 用于创建沙箱。
	Retry       RetryPolicy
	CreateRetry RetryPolicy

	// WaitAttempts 与 WaitInterval 控制等待沙箱进入 Running 的轮询。
	WaitAttempts int
	WaitInterval time.Duration

	// CoalesceEnsure 为 true 时，同一身份（用户与组织）下同一沙箱 ID 的并发 EnsureAvailable 合并为一次编排。
	CoalesceEnsure bool
}

// Bool 返回 b 的指针，便于设置 Config.Enabled。
func Bool(b bool) *bool {
	return &b
}

func (c *Config) init() {
	c.Endpoint = strings.TrimRight(strings.TrimSpace(c.Endpoint), "/")
	c.LocalURL = strings.TrimRight(strings.TrimSpace(c.LocalURL), "/")

	t := &c.Timeouts
	if t.Status <= 0 {
		t.Status = DefaultStatusTimeout
	}
	if t.BatchStatus <= 0 {
		t.BatchStatus = DefaultBatchStatusTimeout
	}
	if t.Create <= 0 {
		t.Create = DefaultCreateTimeout
	}
	if t.Proxy <= 0 {
		t.Proxy = DefaultProxyTimeout
	}
	if t.Copy <= 0 {
		t.Copy = DefaultCopyTimeout
	}
	if t.Upgrade <= 0 {
		t.Upgrade = DefaultUpgradeTimeout
	}

	c.Retry = c.Retry.withDefaults(DefaultRetryDelay)
	c.CreateRetry = c.CreateRetry.withDefaults(DefaultCreateRetryDelay)

	if c.WaitAttempts <= 0 {
		c.WaitAttempts = DefaultWaitAttempts
	}
	if c.WaitInterval <= 0 {
		c.WaitInterval = DefaultWaitInterval
	}
}

func (c *Config) bypass() bool {
	return c.Enabled != nil && !*c.Enabled
}

// Client 是沙箱网关客户端，可在多个 goroutine 间共享。
// 身份信息通过 WithAuthContext 随 context 传递，Client 本身不保存任何请求级状态。
type Client struct {
	config    Config
	bypass    bool
	transport *Transport
	logger    *zap.Logger
	validator *Validator

	ensureGroup singleflight.Group
}

// NewClient 创建一个新的网关客户端。
// 本地调试模式缺少 LocalURL，或远程模式缺少 Endpoint 时返回错误。
func NewClient(config *Config) (*Client, error) {
	if config == nil {
		config = &Config{}
	}
	cfg := *config
	cfg.init()

	bypass := cfg.bypass()
	baseURL := cfg.Endpoint
	if bypass {
		if cfg.LocalURL == "" {
			return nil, ErrLocalURLRequired
		}
		baseURL = cfg.LocalURL
	} else if baseURL == "" {
		return nil, ErrEndpointRequired
	}

	logger := cfg.Logger
	if logger == nil {
		logger = log.Logger()
	}
	if level := conf.DebugLevelFromEnvironment(); level > cfg.Debug {
		cfg.Debug = level
	}

	return &Client{
		config:    cfg,
		bypass:    bypass,
		transport: newTransport(transportOptions{
			baseURL:     baseURL,
			apiKey:      cfg.APIKey,
			httpClient:  cfg.HTTPClient,
			dialTimeout: cfg.DialTimeout,
			logger:      logger,
			debug:       cfg.Debug,
		}),
		logger:    logger,
		validator: &Validator{},
	}, nil
}

// Bypass 报告客户端是否处于本地调试模式。
func (c *Client) Bypass() bool {
	return c.bypass
}

// Transport 返回底层传输客户端，用于直接发送不带重试的网关请求。
func (c *Client) Transport() *Transport {
	return c.transport
}
