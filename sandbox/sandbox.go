package sandbox

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/oapi-codegen/runtime"
	"go.uber.org/zap"
)

const (
	pathSandboxes      = "api/v1/sandboxes"
	pathSandboxQueries = "api/v1/sandboxes/queries"
	pathUpgrade        = "api/v1/sandboxes/upgrade"
	pathCopyFiles      = "api/v1/files/copy"
	pathHealth         = "health"
)

const messageBypass = "local debug bypass"

// sandboxPath 返回 api/v1/sandboxes/{sandbox_id}，sandbox_id 按路径参数转义。
func sandboxPath(sandboxID string) (string, error) {
	param, err := runtime.StyleParamWithLocation("simple", false, "sandbox_id", runtime.ParamLocationPath, sandboxID)
	if err != nil {
		return "", err
	}
	return pathSandboxes + "/" + param, nil
}

// GetStatus 查询单个沙箱的状态。
// 网关返回 not-found 时结果为成功，Status 为 StatusNotFound。
// 本地调试模式下不校验参数，直接返回 Running。
func (c *Client) GetStatus(ctx context.Context, sandboxID string) StatusResult {
	sandboxID = strings.TrimSpace(sandboxID)
	if c.bypass {
		return StatusResult{
			Result: successResult(messageBypass, map[string]any{
				"sandbox_id": sandboxID,
				"status":     string(StatusRunning),
			}),
			SandboxID: sandboxID,
			Status:    StatusRunning,
		}
	}
	if sandboxID == "" {
		return StatusResult{Result: failureResult(CodeInvalidArgument, "sandbox id is empty"), Status: StatusUnknown}
	}

	path, err := sandboxPath(sandboxID)
	if err != nil {
		return StatusResult{Result: failureResult(CodeInvalidArgument, err.Error()), SandboxID: sandboxID, Status: StatusUnknown}
	}
	result := c.call(ctx, gatewayCall{
		operation: operationStatus,
		method:    http.MethodGet,
		path:      path,
		timeout:   c.config.Timeouts.Status,
		policy:    c.config.Retry,
	})
	return newStatusResult(result, sandboxID)
}

// GetBatchStatus 批量查询沙箱状态。空白 ID 会被过滤，过滤后为空时不发请求，直接返回失败结果；
// 本地调试模式下所有 ID 均为 Running，空列表返回成功。
// 所有 ID 在一个请求中发送，调用方负责控制批量大小。
func (c *Client) GetBatchStatus(ctx context.Context, sandboxIDs []string) BatchStatusResult {
	ids := make([]string, 0, len(sandboxIDs))
	for _, id := range sandboxIDs {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	if c.bypass {
		states := make([]SandboxState, 0, len(ids))
		items := make([]any, 0, len(ids))
		for _, id := range ids {
			states = append(states, SandboxState{SandboxID: id, Status: StatusRunning})
			items = append(items, map[string]any{"sandbox_id": id, "status": string(StatusRunning)})
		}
		return BatchStatusResult{
			Result:    successResult(messageBypass, map[string]any{"sandboxes": items}),
			Sandboxes: states,
		}
	}

	if len(ids) == 0 {
		return BatchStatusResult{Result: failureResult(CodeInvalidArgument, "sandbox ids are empty")}
	}

	result := c.call(ctx, gatewayCall{
		operation: operationBatchStatus,
		method:    http.MethodPost,
		path:      pathSandboxQueries,
		body:      batchStatusRequest{SandboxIDs: ids},
		timeout:   c.config.Timeouts.BatchStatus,
		policy:    c.config.Retry,
	})
	return newBatchStatusResult(result)
}

// Create 创建沙箱，成功时通过 Result.CreatedID 获取沙箱 ID。
func (c *Client) Create(ctx context.Context, req CreateRequest) Result {
	req.SandboxID = strings.TrimSpace(req.SandboxID)
	if c.bypass {
		return successResult(messageBypass, map[string]any{"sandbox_id": req.SandboxID})
	}
	if result, ok := c.invalidArgument(&req); !ok {
		return result
	}
	return c.call(ctx, gatewayCall{
		operation: operationCreate,
		method:    http.MethodPost,
		path:      pathSandboxes,
		body:      req,
		timeout:   c.config.Timeouts.Create,
		policy:    c.config.CreateRetry,
	})
}

// EnsureAvailable 保证返回的沙箱处于 Running 状态：
// 已在运行则直接复用；Pending 则等待；不存在、已退出或等待失败时创建新沙箱并等待其运行。
//
// 本地调试模式下不发起任何请求，原样返回 sandboxID。
// 返回的错误均为 *OperationError。
//
// 同一 sandboxID 的并发调用默认不做协调，依赖网关创建接口的幂等性；
// 开启 Config.CoalesceEnsure 后，同一用户、同一组织下相同 sandboxID 的并发调用合并为一次编排，
// 不同身份的调用各自编排，网关请求始终携带调用方自己的身份头。
func (c *Client) EnsureAvailable(ctx context.Context, sandboxID, projectID, workDir string) (string, error) {
	sandboxID = strings.TrimSpace(sandboxID)
	if c.bypass {
		observeEnsure(EnsureBypass)
		c.logger.Debug("gateway bypassed, skip sandbox orchestration", zap.String("sandbox_id", sandboxID))
		return sandboxID, nil
	}
	ctx = withTracing(ctx)

	if !c.config.CoalesceEnsure || sandboxID == "" {
		return c.ensure(ctx, sandboxID, projectID, workDir)
	}

	auth, _ := AuthContextFrom(ctx)
	ch := c.ensureGroup.DoChan(ensureKey(auth, sandboxID), func() (interface{}, error) {
		return c.ensure(context.WithoutCancel(ctx), sandboxID, projectID, workDir)
	})
	select {
	case <-ctx.Done():
		return "", newOperationError(OpEnsure, CodeRequestFailed, sandboxID, ctx.Err().Error(), ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

// ensureKey 是合并 EnsureAvailable 调用的键，身份头不同的调用不会合并。
func ensureKey(auth AuthContext, sandboxID string) string {
	return strings.Join([]string{auth.OrganizationCode, auth.UserID, sandboxID}, "\x00")
}

func (c *Client) ensure(ctx context.Context, sandboxID, projectID, workDir string) (string, error) {
	logger := c.logger.With(zap.String("sandbox_id", sandboxID), zap.String("project_id", projectID))

	if sandboxID != "" {
		status := c.GetStatus(ctx, sandboxID)
		switch {
		case status.IsAvailable():
			observeEnsure(EnsureReused)
			logger.Info("reusing running sandbox")
			return sandboxID, nil
		case status.IsSuccess() && status.Status == StatusPending:
			logger.Info("sandbox is pending, waiting for it to run")
			err := c.waitUntilRunning(ctx, sandboxID, waitExisting)
			if err == nil {
				observeEnsure(EnsureReusedAfterWait)
				return sandboxID, nil
			}
			if ctx.Err() != nil {
				observeEnsure(EnsureFailed)
				return "", err
			}
			logger.Warn("abandoning existing sandbox, creating a new one", zap.Error(err))
		case status.IsSuccess():
			logger.Info("sandbox not available, creating", zap.Stringer("status", status.Status))
		default:
			logger.Warn("sandbox status probe failed, creating",
				zap.Int("code", status.Code),
				zap.String("message", status.Message))
		}
	}

	if err := ctx.Err(); err != nil {
		observeEnsure(EnsureFailed)
		return "", newOperationError(OpEnsure, CodeRequestFailed, sandboxID, err.Error(), err)
	}

	created := c.Create(ctx, CreateRequest{ProjectID: projectID, SandboxID: sandboxID, WorkDir: workDir})
	if !created.IsSuccess() {
		observeEnsure(EnsureFailed)
		return "", newOperationError(OpCreate, created.Code, sandboxID, created.Message, ctx.Err())
	}

	createdID := created.CreatedID()
	if createdID == "" || (sandboxID != "" && createdID != sandboxID) {
		observeEnsure(EnsureFailed)
		return "", newOperationError(OpCreate, CodeIDMismatch, sandboxID,
			"gateway returned sandbox id "+strconv.Quote(createdID)+", requested "+strconv.Quote(sandboxID), nil)
	}
	logger.Info("sandbox created, waiting for it to run", zap.String("created_id", createdID))

	if err := c.waitUntilRunning(ctx, createdID, waitNew); err != nil {
		observeEnsure(EnsureFailed)
		return "", err
	}
	observeEnsure(EnsureCreated)
	return createdID, nil
}

// asOperationError 把 EnsureAvailable 以外的错误统一为 *OperationError。
func asOperationError(op, sandboxID string, err error) *OperationError {
	var opErr *OperationError
	if errors.As(err, &opErr) {
		return opErr
	}
	return newOperationError(op, CodeRequestFailed, sandboxID, err.Error(), err)
}
