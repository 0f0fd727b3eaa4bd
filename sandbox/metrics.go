package sandbox

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	outcomeSuccess = "success"
	outcomeRetry   = "retry"
	outcomeFailed  = "failed"
)

// EnsureAvailable 的结果标签。
const (
	EnsureReused          = "reused"
	EnsureReusedAfterWait = "reused_after_wait"
	EnsureCreated         = "created"
	EnsureBypass          = "bypass"
	EnsureFailed          = "failed"
)

var (
	gatewayAttempts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sandboxgw",
		Name:      "gateway_attempts_total",
		Help:      "Gateway HTTP attempts by operation and outcome (success, retry, failed).",
	}, []string{"operation", "outcome"})

	ensureOutcomes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sandboxgw",
		Name:      "ensure_total",
		Help:      "EnsureAvailable calls by outcome.",
	}, []string{"outcome"})
)

// RegisterMetrics 把网关指标注册到 reg，reg 为 nil 时使用 prometheus.DefaultRegisterer。
// 重复注册不报错。
func RegisterMetrics(reg prometheus.Registerer) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	for _, collector := range []prometheus.Collector{gatewayAttempts, ensureOutcomes} {
		if err := reg.Register(collector); err != nil {
			var already prometheus.AlreadyRegisteredError
			if !errors.As(err, &already) {
				return err
			}
		}
	}
	return nil
}

func observeAttempt(operation, outcome string) {
	gatewayAttempts.WithLabelValues(operation, outcome).Inc()
}

func observeEnsure(outcome string) {
	ensureOutcomes.WithLabelValues(outcome).Inc()
}
