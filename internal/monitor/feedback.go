package monitor

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/taoyao-code/amp-gateway/internal/protocol/powersoft"
	"github.com/taoyao-code/amp-gateway/internal/statestore"
)

// 反馈选项
const (
	FeedbackPowerOn      = "on"
	FeedbackPowerStandby = "standby"

	FeedbackConnected    = "connected"
	FeedbackDisconnected = "disconnected"
)

// Style 反馈生效时的按钮样式
type Style struct {
	BgColor string `yaml:"bgcolor" json:"bgcolor"`
	Color   string `yaml:"color" json:"color"`
}

// Presets 反馈样式预设
type Presets struct {
	Power      Style `yaml:"power" json:"power"`
	Connection Style `yaml:"connection" json:"connection"`
}

// DefaultPresets 电源为绿底黑字，断线为红底白字
func DefaultPresets() Presets {
	return Presets{
		Power:      Style{BgColor: "#00ff00", Color: "#000000"},
		Connection: Style{BgColor: "#ff0000", Color: "#ffffff"},
	}
}

// LoadPresets 读取 YAML 预设；path 为空时返回默认值，缺省字段沿用默认值
func LoadPresets(path string) (Presets, error) {
	p := DefaultPresets()
	if path == "" {
		return p, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return p, fmt.Errorf("read feedback presets: %w", err)
	}
	if err := yaml.Unmarshal(b, &p); err != nil {
		return DefaultPresets(), fmt.Errorf("parse feedback presets: %w", err)
	}
	return p, nil
}

// PowerFeedback state=on 时电源为 Online 返回 true，其他取值对比 Standby
func (c *Controller) PowerFeedback(state string) bool {
	power := c.Snapshot().PowerStatus
	if state == FeedbackPowerOn {
		return power == powersoft.PowerOnline.String()
	}
	return power == powersoft.PowerStandby.String()
}

// ConnectionFeedback state=connected 时已连接返回 true，其他取值取反
func (c *Controller) ConnectionFeedback(state string) bool {
	connected := c.Snapshot().ConnectionStatus == statestore.Connected
	if state == FeedbackConnected {
		return connected
	}
	return !connected
}
