package udpclient

import (
	"context"
	"sync/atomic"

	"golang.org/x/time/rate"
)

// SendLimiter 基于 Token Bucket 的发送限速，防止突发命令淹没功放的 UDP 接收缓冲
type SendLimiter struct {
	limiter      *rate.Limiter
	ratePerSec   int
	burst        int
	allowedCount atomic.Int64
	waitedCount  atomic.Int64
	deniedCount  atomic.Int64
}

// NewSendLimiter ratePerSec<=0 返回 nil（不限速）
func NewSendLimiter(ratePerSec, burst int) *SendLimiter {
	if ratePerSec <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = 1
	}
	return &SendLimiter{
		limiter:    rate.NewLimiter(rate.Limit(ratePerSec), burst),
		ratePerSec: ratePerSec,
		burst:      burst,
	}
}

// Wait 等待发送令牌；ctx 取消时返回错误
func (l *SendLimiter) Wait(ctx context.Context) error {
	if l == nil {
		return nil
	}
	if l.limiter.Allow() {
		l.allowedCount.Add(1)
		return nil
	}
	l.waitedCount.Add(1)
	if err := l.limiter.Wait(ctx); err != nil {
		l.deniedCount.Add(1)
		return err
	}
	l.allowedCount.Add(1)
	return nil
}

// Stats 获取统计信息
func (l *SendLimiter) Stats() SendLimiterStats {
	if l == nil {
		return SendLimiterStats{}
	}
	return SendLimiterStats{
		RatePerSecond: l.ratePerSec,
		Burst:         l.burst,
		AllowedTotal:  l.allowedCount.Load(),
		WaitedTotal:   l.waitedCount.Load(),
		DeniedTotal:   l.deniedCount.Load(),
	}
}

// SendLimiterStats 限速统计
type SendLimiterStats struct {
	RatePerSecond int   `json:"rate_per_second"`
	Burst         int   `json:"burst"`
	AllowedTotal  int64 `json:"allowed_total"`
	WaitedTotal   int64 `json:"waited_total"`
	DeniedTotal   int64 `json:"denied_total"`
}
