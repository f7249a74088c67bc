package udpclient

import (
	"errors"
	"time"

	"github.com/taoyao-code/amp-gateway/internal/protocol/powersoft"
)

var (
	// ErrNotOpen 会话未打开（或已关闭）时发送
	ErrNotOpen = errors.New("udp session not open")
	// ErrTimeout 等待应答超时
	ErrTimeout = errors.New("command timeout")
	// ErrAborted 会话关闭导致请求被中止
	ErrAborted = errors.New("request aborted: session closed")
	// ErrCookieInUse cookie 回绕后仍被未完成的请求占用
	ErrCookieInUse = errors.New("cookie still pending")
)

// Status 会话生命周期状态（上报给宿主）
type Status string

const (
	StatusConnecting        Status = "connecting"
	StatusOK                Status = "ok"
	StatusConnectionFailure Status = "connection_failure"
	StatusBadConfig         Status = "bad_config"
)

// StatusNotifier 状态变化通知
type StatusNotifier interface {
	UpdateStatus(status Status, detail string)
}

// StatusFunc 函数适配器
type StatusFunc func(status Status, detail string)

func (f StatusFunc) UpdateStatus(status Status, detail string) { f(status, detail) }

type nopNotifier struct{}

func (nopNotifier) UpdateStatus(Status, string) {}

// 请求结果标签
const (
	ResultOK        = "ok"
	ResultTimeout   = "timeout"
	ResultAborted   = "aborted"
	ResultSendError = "send_error"
	ResultCanceled  = "canceled"
	ResultRejected  = "rejected"
)

// Observer 会话指标回调（由 metrics.AppMetrics 实现）
type Observer interface {
	FrameSent(cmd powersoft.Command, bytes int)
	FrameReceived(bytes int)
	Decoded(result string)
	Unsolicited()
	RequestDone(cmd powersoft.Command, result string, elapsed time.Duration)
	// PendingChanged 在会话锁内调用，保证上报顺序与待应答表一致；实现不得回调 Session
	PendingChanged(n int)
}

type nopObserver struct{}

func (nopObserver) FrameSent(powersoft.Command, int) {}
func (nopObserver) FrameReceived(int) {}
func (nopObserver) Decoded(string) {}
func (nopObserver) Unsolicited() {}
func (nopObserver) RequestDone(powersoft.Command, string, time.Duration) {}
func (nopObserver) PendingChanged(int) {}

func resultOf(err error) string {
	switch {
	case err == nil:
		return ResultOK
	case errors.Is(err, ErrTimeout):
		return ResultTimeout
	case errors.Is(err, ErrAborted):
		return ResultAborted
	case errors.Is(err, ErrNotOpen), errors.Is(err, ErrCookieInUse):
		return ResultRejected
	case errors.Is(err, errCanceled):
		return ResultCanceled
	default:
		return ResultSendError
	}
}
