package monitor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLinkBreaker(t *testing.T) {
	t.Run("连续失败达到阈值断开", func(t *testing.T) {
		b := NewLinkBreaker(3)
		assert.Equal(t, LinkClosed, b.State())

		assert.False(t, b.Failure())
		assert.False(t, b.Failure())
		assert.True(t, b.Failure())
		assert.Equal(t, LinkOpen, b.State())

		// 已断开后继续失败不重复触发
		assert.False(t, b.Failure())
		assert.Equal(t, int64(1), b.Stats().TripCount)
	})

	t.Run("成功重置失败计数", func(t *testing.T) {
		b := NewLinkBreaker(2)
		b.Failure()
		assert.False(t, b.Success())
		assert.False(t, b.Failure())
		assert.Equal(t, LinkClosed, b.State())
	})

	t.Run("半开状态失败立即断开", func(t *testing.T) {
		b := NewLinkBreaker(2)
		b.Failure()
		b.Failure()
		b.Probe()
		assert.Equal(t, LinkHalfOpen, b.State())
		assert.True(t, b.Failure())
		assert.Equal(t, LinkOpen, b.State())
	})

	t.Run("半开状态成功恢复", func(t *testing.T) {
		b := NewLinkBreaker(1)
		b.Failure()
		b.Probe()
		assert.True(t, b.Success())
		assert.Equal(t, LinkClosed, b.State())
		assert.Equal(t, "closed", b.Stats().State)
	})

	t.Run("默认阈值", func(t *testing.T) {
		b := NewLinkBreaker(0)
		b.Failure()
		b.Failure()
		assert.Equal(t, LinkClosed, b.State())
		b.Failure()
		assert.Equal(t, LinkOpen, b.State())
		b.Reset()
		assert.Equal(t, LinkClosed, b.State())
	})
}
