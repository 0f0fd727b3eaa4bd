package sandbox

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/magic-box/sandboxgw/backoff"
	"go.uber.org/zap"
)

type waitType string

const (
	// waitExisting 等待调用方指定的、已存在的沙箱，沙箱退出时立即放弃。
	waitExisting waitType = "existing"
	// waitNew 等待刚创建的沙箱。
	waitNew waitType = "new"
)

var errPollExhausted = errors.New("poll attempts exhausted")

type pollOpts struct {
	interval    time.Duration
	maxAttempts int // 0 表示不限制
	onPoll      func(attempt int)
}

// pollLoop 反复调用 pollFn，直到 done、出错、达到最大次数或 ctx 结束。
// 最后一次轮询之后不再等待；次数用尽时返回最后一次的结果与 errPollExhausted。
func pollLoop[T any](ctx context.Context, opts *pollOpts, pollFn func() (bool, T, error)) (T, error) {
	if opts.interval <= 0 {
		opts.interval = time.Second
	}

	var last T
	for attempt := 1; ; attempt++ {
		if opts.onPoll != nil {
			opts.onPoll(attempt)
		}

		done, result, err := pollFn()
		last = result
		if err != nil {
			return result, err
		}
		if done {
			return result, nil
		}
		if opts.maxAttempts > 0 && attempt >= opts.maxAttempts {
			return last, errPollExhausted
		}

		if err := backoff.Sleep(ctx, opts.interval); err != nil {
			return last, err
		}
	}
}

// waitUntilRunning 轮询沙箱状态直到 Running，失败时返回 *OperationError。
func (c *Client) waitUntilRunning(ctx context.Context, sandboxID string, typ waitType) error {
	logger := c.logger.With(zap.String("sandbox_id", sandboxID), zap.String("wait_type", string(typ)))

	opts := &pollOpts{
		interval:    c.config.WaitInterval,
		maxAttempts: c.config.WaitAttempts,
		onPoll: func(attempt int) {
			logger.Debug("polling sandbox status", zap.Int("attempt", attempt))
		},
	}
	last, err := pollLoop(ctx, opts, func() (bool, StatusResult, error) {
		status := c.GetStatus(ctx, sandboxID)
		if status.IsAvailable() {
			return true, status, nil
		}
		if typ == waitExisting && status.IsSuccess() && status.Status == StatusExited {
			return false, status, newOperationError(OpWait, CodeSandboxExited, sandboxID,
				"existing sandbox exited while waiting for it to run", nil)
		}
		return false, status, nil
	})

	switch {
	case err == nil:
		logger.Info("sandbox is running")
		return nil
	case errors.Is(err, errPollExhausted):
		observed := last.Status
		if !last.IsSuccess() {
			observed = StatusUnknown
		}
		return newOperationError(OpWait, CodeWaitTimeout, sandboxID,
			fmt.Sprintf("sandbox not running after %d status checks (last status %s)", opts.maxAttempts, observed), nil)
	default:
		return asOperationError(OpWait, sandboxID, err)
	}
}
