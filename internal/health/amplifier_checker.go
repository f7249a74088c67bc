package health

import (
	"context"
	"time"

	"github.com/taoyao-code/amp-gateway/internal/monitor"
	"github.com/taoyao-code/amp-gateway/internal/statestore"
)

// AmplifierLink 功放链路状态，由 *monitor.Controller 实现
type AmplifierLink interface {
	Link() (open bool, pending int)
	Snapshot() statestore.Snapshot
	BreakerStats() monitor.LinkBreakerStats
}

// AmplifierChecker 功放链路健康检查
// 会话未打开为 Unhealthy；链路熔断或电源状态未知为 Degraded
type AmplifierChecker struct {
	link       AmplifierLink
	maxPending int
}

// NewAmplifierChecker maxPending<=0 时默认 32
func NewAmplifierChecker(link AmplifierLink, maxPending int) *AmplifierChecker {
	if maxPending <= 0 {
		maxPending = 32
	}
	return &AmplifierChecker{link: link, maxPending: maxPending}
}

func (c *AmplifierChecker) Name() string { return "amplifier" }

func (c *AmplifierChecker) Check(ctx context.Context) CheckResult {
	start := time.Now()
	open, pending := c.link.Link()
	snap := c.link.Snapshot()
	breaker := c.link.BreakerStats()

	details := map[string]any{
		"connection_status": snap.ConnectionStatus,
		"power_status":      snap.PowerStatus,
		"pending_requests":  pending,
		"breaker_state":     breaker.State,
		"breaker_trips":     breaker.TripCount,
	}
	if snap.LastError != "" {
		details["last_error"] = snap.LastError
	}

	status, message := StatusHealthy, "ok"
	switch {
	case !open:
		status, message = StatusUnhealthy, "session not open"
	case breaker.State != monitor.LinkClosed.String():
		status, message = StatusDegraded, "amplifier not responding"
	case pending >= c.maxPending:
		status, message = StatusDegraded, "too many pending requests"
	case snap.PowerStatus == "Unknown":
		status, message = StatusDegraded, "power state unknown"
	}

	return CheckResult{Status: status, Message: message, Details: details, Latency: time.Since(start)}
}
