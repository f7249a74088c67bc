package monitor

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/taoyao-code/amp-gateway/internal/protocol/powersoft"
)

// 动作名，用于指标与审计
const (
	ActionPowerOn     = "power_on"
	ActionPowerOff    = "power_off"
	ActionPowerToggle = "power_toggle"
	ActionPing        = "ping"
	ActionMute        = "mute"
	ActionUnmute      = "unmute"
	ActionToggleMute  = "toggle_mute"
)

// PowerOn 退出待机
func (c *Controller) PowerOn(ctx context.Context) error {
	return c.setPower(ctx, ActionPowerOn, true)
}

// PowerOff 进入待机
func (c *Controller) PowerOff(ctx context.Context) error {
	return c.setPower(ctx, ActionPowerOff, false)
}

func (c *Controller) setPower(ctx context.Context, action string, on bool) error {
	client, err := c.currentClient()
	if err != nil {
		return err
	}
	ok := client.SetStandbyStatus(ctx, on)
	c.record(action, ok)
	if !ok {
		c.logger.Warn("failed to set power", zap.Bool("on", on))
		return fmt.Errorf("%s: %w", action, ErrCommandFailed)
	}
	c.logger.Info("power set", zap.String("action", action))
	c.checkPower(ctx, client)
	return nil
}

// PowerToggle 按当前电源状态切换，返回切换后的状态
func (c *Controller) PowerToggle(ctx context.Context) (powersoft.PowerState, error) {
	client, err := c.currentClient()
	if err != nil {
		return powersoft.PowerUnknown, err
	}
	_, ok := client.TogglePower(ctx)
	c.record(ActionPowerToggle, ok)
	if !ok {
		c.logger.Warn("failed to toggle power")
		return powersoft.PowerUnknown, fmt.Errorf("%s: %w", ActionPowerToggle, ErrCommandFailed)
	}
	return c.checkPower(ctx, client), nil
}

// Ping 连通性检查
func (c *Controller) Ping(ctx context.Context) error {
	client, err := c.currentClient()
	if err != nil {
		return err
	}
	ok := client.Ping(ctx)
	c.record(ActionPing, ok)
	if !ok {
		return fmt.Errorf("%s: %w", ActionPing, ErrCommandFailed)
	}
	c.logger.Info("ping successful")
	return nil
}

// SetMute 设置通道静音
func (c *Controller) SetMute(ctx context.Context, channel int, mute bool) error {
	action := ActionUnmute
	if mute {
		action = ActionMute
	}
	if err := c.checkChannel(channel); err != nil {
		return err
	}
	client, err := c.currentClient()
	if err != nil {
		return err
	}
	ok := client.SetOutputMute(ctx, uint8(channel), mute)
	c.record(action, ok)
	if !ok {
		c.logger.Warn("failed to set mute", zap.Int("channel", channel+1), zap.Bool("mute", mute))
		return fmt.Errorf("%s channel %d: %w", action, channel+1, ErrCommandFailed)
	}
	c.logger.Info("channel mute set", zap.Int("channel", channel+1), zap.Bool("mute", mute))
	return nil
}

// ToggleMute 按调用方提供的当前静音状态切换，返回切换后的状态。
// 功放不支持查询静音状态，这里不做任何缓存。
func (c *Controller) ToggleMute(ctx context.Context, channel int, currentlyMuted bool) (bool, error) {
	if err := c.checkChannel(channel); err != nil {
		return currentlyMuted, err
	}
	client, err := c.currentClient()
	if err != nil {
		return currentlyMuted, err
	}
	ok := client.ToggleOutputMute(ctx, uint8(channel), currentlyMuted)
	c.record(ActionToggleMute, ok)
	if !ok {
		c.logger.Warn("failed to toggle mute", zap.Int("channel", channel+1), zap.Bool("was_muted", currentlyMuted))
		return currentlyMuted, fmt.Errorf("%s channel %d: %w", ActionToggleMute, channel+1, ErrCommandFailed)
	}
	c.logger.Info("channel mute toggled", zap.Int("channel", channel+1), zap.Bool("mute", !currentlyMuted))
	return !currentlyMuted, nil
}

func (c *Controller) checkChannel(channel int) error {
	if channel < 0 || channel >= len(c.Channels()) {
		return fmt.Errorf("%w: %d", ErrBadChannel, channel)
	}
	return nil
}
