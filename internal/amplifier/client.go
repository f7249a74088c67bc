// Package amplifier 功放高层命令：ping / info / 通道数 / 待机 / 静音
//
// 所有操作吞掉传输与解码错误，只返回 成功/失败（或 值/缺省），错误细节写日志。
package amplifier

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/taoyao-code/amp-gateway/internal/protocol/powersoft"
)

// ErrToggleUnsupported 功放无法查询单个通道的静音状态，切换需要调用方提供当前状态
var ErrToggleUnsupported = errors.New("mute toggle requires known mute state")

// Sender 命令发送接口，由 *udpclient.Session 实现
type Sender interface {
	Send(ctx context.Context, cmd powersoft.Command, payload []byte, timeout time.Duration) (*powersoft.Message, error)
}

// StandbyStatus 待机状态
type StandbyStatus struct {
	Online  bool `json:"online" yaml:"online"`
	Standby bool `json:"standby" yaml:"standby"`
}

// State 换算为电源状态
func (s StandbyStatus) State() powersoft.PowerState {
	switch {
	case s.Online:
		return powersoft.PowerOnline
	case s.Standby:
		return powersoft.PowerStandby
	default:
		return powersoft.PowerUnknown
	}
}

// Client 功放命令客户端
type Client struct {
	sender  Sender
	timeout time.Duration
	logger  *zap.Logger
}

// NewClient 创建客户端；timeout<=0 时使用会话默认超时
func NewClient(sender Sender, timeout time.Duration, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{sender: sender, timeout: timeout, logger: logger}
}

// call 发送命令并校验应答命令码
func (c *Client) call(ctx context.Context, cmd powersoft.Command, payload []byte) (*powersoft.Message, bool) {
	msg, err := c.sender.Send(ctx, cmd, payload, c.timeout)
	if err != nil {
		c.logger.Warn("command failed", zap.Stringer("cmd", cmd), zap.Error(err))
		return nil, false
	}
	if !powersoft.IsResponseTo(cmd, msg.Cmd) {
		c.logger.Warn("unexpected response code",
			zap.Stringer("cmd", cmd),
			zap.Stringer("response", msg.Cmd),
			zap.Uint16("cookie", msg.Cookie))
		return nil, false
	}
	return msg, true
}

// Ping 连通性检查
func (c *Client) Ping(ctx context.Context) bool {
	_, ok := c.call(ctx, powersoft.CmdPing, nil)
	return ok
}

// GetInfo 读取厂商/系列/型号/序列号
func (c *Client) GetInfo(ctx context.Context) (*powersoft.Info, bool) {
	msg, ok := c.call(ctx, powersoft.CmdInfo, nil)
	if !ok {
		return nil, false
	}
	info, err := powersoft.ParseInfo(msg.Data)
	if err != nil {
		c.logger.Warn("get info failed", zap.Error(err))
		return nil, false
	}
	return info, true
}

// GetChannelCount 读取输出通道数
func (c *Client) GetChannelCount(ctx context.Context) (int, bool) {
	msg, ok := c.call(ctx, powersoft.CmdReadGM, nil)
	if !ok {
		return 0, false
	}
	n, err := powersoft.ParseChannelCount(msg.Data)
	if err != nil {
		c.logger.Warn("get channel count failed", zap.Error(err))
		return 0, false
	}
	return n, true
}

// GetStandbyStatus 读取待机状态（只读请求）
func (c *Client) GetStandbyStatus(ctx context.Context) (*StandbyStatus, bool) {
	reply, ok := c.standby(ctx, powersoft.StandbyRead)
	if !ok {
		return nil, false
	}
	if !reply.OK {
		c.logger.Warn("get standby status rejected", zap.Uint8("on_off", reply.OnOff))
		return nil, false
	}
	return &StandbyStatus{
		Online:  reply.OnOff == powersoft.OnOffOperative,
		Standby: reply.OnOff == powersoft.OnOffStandby,
	}, true
}

// SetStandbyStatus turnOn=true 退出待机（工作），false 进入待机
func (c *Client) SetStandbyStatus(ctx context.Context, turnOn bool) bool {
	op := powersoft.StandbyEngage
	if turnOn {
		op = powersoft.StandbyRelease
	}
	reply, ok := c.standby(ctx, op)
	if !ok {
		return false
	}
	if !reply.OK {
		c.logger.Warn("set standby rejected", zap.Bool("turn_on", turnOn))
		return false
	}
	c.logger.Info("standby status set", zap.Bool("turn_on", turnOn))
	return true
}

// TogglePower 读取当前状态后切换；返回 (切换后是否工作, 是否成功)
func (c *Client) TogglePower(ctx context.Context) (bool, bool) {
	st, ok := c.GetStandbyStatus(ctx)
	if !ok {
		return false, false
	}
	target := !st.Online
	if !c.SetStandbyStatus(ctx, target) {
		return st.Online, false
	}
	return target, true
}

func (c *Client) standby(ctx context.Context, op powersoft.StandbyOp) (powersoft.StandbyReply, bool) {
	msg, ok := c.call(ctx, powersoft.CmdStandby, powersoft.StandbyRequest(op))
	if !ok {
		return powersoft.StandbyReply{}, false
	}
	reply, err := powersoft.ParseStandby(msg.Data)
	if err != nil {
		c.logger.Warn("standby reply invalid", zap.Error(err))
		return powersoft.StandbyReply{}, false
	}
	return reply, true
}

// SetOutputMute 设置通道静音；应答须回显相同通道与静音标志
func (c *Client) SetOutputMute(ctx context.Context, channel uint8, mute bool) bool {
	msg, ok := c.call(ctx, powersoft.CmdWriteOutMute, powersoft.MuteRequest(channel, mute))
	if !ok {
		return false
	}
	ack, err := powersoft.ParseMuteAck(msg.Data)
	if err != nil {
		c.logger.Warn("mute ack invalid", zap.Error(err))
		return false
	}
	if !ack.Matches(channel, mute) {
		c.logger.Warn("mute ack mismatch",
			zap.Uint8("channel", channel),
			zap.Bool("mute", mute),
			zap.Bool("ack_ok", ack.OK),
			zap.Uint8("ack_channel", ack.Channel),
			zap.Bool("ack_mute", ack.Muted))
		return false
	}
	return true
}

// ToggleOutputMute 按调用方提供的当前状态取反
func (c *Client) ToggleOutputMute(ctx context.Context, channel uint8, currentlyMuted bool) bool {
	return c.SetOutputMute(ctx, channel, !currentlyMuted)
}
