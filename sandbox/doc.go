// Package sandbox 是沙箱编排网关的 Go 客户端：保证一个逻辑沙箱处于可用状态，
// 并可靠地把请求转发进沙箱。
//
// 沙箱是按调用方指定的 ID 寻址的临时隔离执行环境，Agent 任务在其中运行。
// 网关是远程控制面服务，负责创建、跟踪沙箱，并把代理请求转发进沙箱。
//
// # 快速开始
//
//	c, err := sandbox.NewClient(&sandbox.Config{
//	    Endpoint: "http://sandbox-gateway:8002",
//	    APIKey:   os.Getenv("SANDBOX_API_KEY"),
//	})
//
//	ctx = sandbox.WithAuthContext(ctx, sandbox.AuthContext{
//	    UserID:           "u-1",
//	    OrganizationCode: "org-1",
//	})
//	id, err := c.EnsureAvailable(ctx, "sb-1", "proj-1", "/ws/proj-1")
//
//	result := c.Proxy(ctx, sandbox.ProxyRequest{
//	    SandboxID: id,
//	    Method:    http.MethodPost,
//	    Path:      "/api/v1/tools/run",
//	    Body:      map[string]any{"cmd": "ls"},
//	})
//	if !result.IsSuccess() {
//	    // result.Code / result.Message
//	}
//
// # 结果与错误
//
// 除 [Client.EnsureAvailable] 外，所有操作都返回 [Result] 系列的值而不是 error：
// 网关信封 {code, message, data} 中 code 为 [CodeSuccess] 才算成功，与 HTTP 状态码无关。
// 传输失败在重试用尽后以 [CodeRequestFailed] 返回，空响应或无法解码的响应以
// [CodeInvalidResponse] 返回。
//
// [Client.EnsureAvailable] 的不可恢复失败（创建失败、ID 不一致、等待超时、
// 已存在的沙箱在等待中退出）以 [*OperationError] 返回。
//
// # 重试
//
// 每个网关操作都在有界重试中执行：连接失败、超时、5xx、408 与 429 会重试，
// 其他 4xx 与非网络错误立即失败。默认 3 次尝试，状态查询、代理、复制与升级间隔 1 秒，
// 创建间隔 30 秒，均可通过 [Config] 调整。所有等待都可以通过 ctx 取消。
//
// # 本地调试模式
//
// Config.Enabled 为 false 时跳过网关：创建、状态与批量状态直接返回成功/Running，
// 代理请求直接发往 Config.LocalURL 下的原始路径。
package sandbox
