package monitor

import (
	"sync"
	"time"
)

// LinkState 链路熔断状态
type LinkState int

const (
	LinkClosed   LinkState = iota // 链路正常，轮询结果计入失败计数
	LinkOpen                      // 连续失败达到阈值，等待重连
	LinkHalfOpen                  // 重连后首个轮询结果决定恢复或再次断开
)

func (s LinkState) String() string {
	switch s {
	case LinkClosed:
		return "closed"
	case LinkOpen:
		return "open"
	case LinkHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// LinkBreaker 按连续失败次数判定功放链路断开
type LinkBreaker struct {
	mu            sync.RWMutex
	state         LinkState
	failureCount  int
	lastFailTime  time.Time
	lastStateTime time.Time
	tripCount     int64

	threshold int
}

// NewLinkBreaker threshold<=0 时默认 3
func NewLinkBreaker(threshold int) *LinkBreaker {
	if threshold <= 0 {
		threshold = 3
	}
	return &LinkBreaker{
		state:         LinkClosed,
		threshold:     threshold,
		lastStateTime: time.Now(),
	}
}

// Success 记录一次成功；返回 true 表示从断开恢复
func (b *LinkBreaker) Success() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failureCount = 0
	if b.state != LinkClosed {
		b.transitionTo(LinkClosed)
		return true
	}
	return false
}

// Failure 记录一次失败；返回 true 表示本次失败触发断开
func (b *LinkBreaker) Failure() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failureCount++
	b.lastFailTime = time.Now()

	switch b.state {
	case LinkClosed:
		if b.failureCount >= b.threshold {
			b.transitionTo(LinkOpen)
			b.tripCount++
			return true
		}
	case LinkHalfOpen:
		b.transitionTo(LinkOpen)
		b.tripCount++
		return true
	}
	return false
}

// Probe 重连成功后进入半开状态
func (b *LinkBreaker) Probe() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == LinkOpen {
		b.transitionTo(LinkHalfOpen)
	}
	b.failureCount = 0
}

// Reset 恢复初始状态
func (b *LinkBreaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.transitionTo(LinkClosed)
	b.failureCount = 0
}

func (b *LinkBreaker) transitionTo(s LinkState) {
	if b.state == s {
		return
	}
	b.state = s
	b.lastStateTime = time.Now()
}

// State 当前状态
func (b *LinkBreaker) State() LinkState {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.state
}

// Stats 统计信息
func (b *LinkBreaker) Stats() LinkBreakerStats {
	b.mu.RLock()
	defer b.mu.RUnlock()

	st := LinkBreakerStats{
		State:           b.state.String(),
		FailureCount:    b.failureCount,
		TripCount:       b.tripCount,
		LastStateChange: b.lastStateTime,
	}
	if !b.lastFailTime.IsZero() {
		st.TimeSinceLastFail = time.Since(b.lastFailTime)
	}
	return st
}

// LinkBreakerStats 熔断统计
type LinkBreakerStats struct {
	State             string        `json:"state"`
	FailureCount      int           `json:"failure_count"`
	TripCount         int64         `json:"trip_count"`
	LastStateChange   time.Time     `json:"last_state_change"`
	TimeSinceLastFail time.Duration `json:"time_since_last_fail"`
}
