package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/taoyao-code/amp-gateway/internal/amplifier"
	"github.com/taoyao-code/amp-gateway/internal/api/middleware"
	"github.com/taoyao-code/amp-gateway/internal/audit"
	"github.com/taoyao-code/amp-gateway/internal/monitor"
	"github.com/taoyao-code/amp-gateway/internal/protocol/powersoft"
	"github.com/taoyao-code/amp-gateway/internal/statestore"
)

// Amplifier 控制接口依赖的功放控制器能力，由 *monitor.Controller 实现
type Amplifier interface {
	Snapshot() statestore.Snapshot
	Info() (powersoft.Info, bool)
	Channels() []monitor.Channel
	Ping(ctx context.Context) error
	PowerOn(ctx context.Context) error
	PowerOff(ctx context.Context) error
	PowerToggle(ctx context.Context) (powersoft.PowerState, error)
	SetMute(ctx context.Context, channel int, mute bool) error
	ToggleMute(ctx context.Context, channel int, currentlyMuted bool) (bool, error)
	PowerFeedback(state string) bool
	ConnectionFeedback(state string) bool
}

// AmplifierHandler 功放控制 API
type AmplifierHandler struct {
	amp      Amplifier
	recorder audit.Recorder
	presets  monitor.Presets
	logger   *zap.Logger
}

// NewAmplifierHandler recorder 可为 nil（不记录审计）
func NewAmplifierHandler(amp Amplifier, recorder audit.Recorder, presets monitor.Presets, logger *zap.Logger) *AmplifierHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AmplifierHandler{amp: amp, recorder: recorder, presets: presets, logger: logger}
}

type muteRequest struct {
	Mute *bool `json:"mute" binding:"required"`
}

// toggleRequest muted 为调用方已知的当前静音状态
type toggleRequest struct {
	Muted *bool `json:"muted"`
}

// GetState 当前状态变量
func (h *AmplifierHandler) GetState(c *gin.Context) {
	c.JSON(http.StatusOK, h.amp.Snapshot())
}

// GetInfo 功放身份信息
func (h *AmplifierHandler) GetInfo(c *gin.Context) {
	info, ok := h.amp.Info()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "info not available"})
		return
	}
	c.JSON(http.StatusOK, info)
}

// ListChannels 通道选项，id 即静音接口中的 channel
func (h *AmplifierHandler) ListChannels(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"channels": h.amp.Channels()})
}

// Ping 连通性检查
func (h *AmplifierHandler) Ping(c *gin.Context) {
	h.run(c, monitor.ActionPing, nil, func(ctx context.Context) (gin.H, error) {
		if err := h.amp.Ping(ctx); err != nil {
			return nil, err
		}
		return gin.H{"ok": true}, nil
	})
}

// PowerOn 退出待机
func (h *AmplifierHandler) PowerOn(c *gin.Context) {
	h.run(c, monitor.ActionPowerOn, nil, func(ctx context.Context) (gin.H, error) {
		if err := h.amp.PowerOn(ctx); err != nil {
			return nil, err
		}
		return h.powerResult(), nil
	})
}

// PowerOff 进入待机
func (h *AmplifierHandler) PowerOff(c *gin.Context) {
	h.run(c, monitor.ActionPowerOff, nil, func(ctx context.Context) (gin.H, error) {
		if err := h.amp.PowerOff(ctx); err != nil {
			return nil, err
		}
		return h.powerResult(), nil
	})
}

// PowerToggle 切换电源
func (h *AmplifierHandler) PowerToggle(c *gin.Context) {
	h.run(c, monitor.ActionPowerToggle, nil, func(ctx context.Context) (gin.H, error) {
		state, err := h.amp.PowerToggle(ctx)
		return gin.H{"power_status": state.String()}, err
	})
}

// SetMute 设置通道静音，body: {"mute": true}
func (h *AmplifierHandler) SetMute(c *gin.Context) {
	ch, ok := channelParam(c)
	if !ok {
		return
	}
	var req muteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body", "message": err.Error()})
		return
	}
	action := monitor.ActionUnmute
	if *req.Mute {
		action = monitor.ActionMute
	}
	h.run(c, action, &ch, func(ctx context.Context) (gin.H, error) {
		if err := h.amp.SetMute(ctx, ch, *req.Mute); err != nil {
			return nil, err
		}
		return gin.H{"channel": ch, "muted": *req.Mute}, nil
	})
}

// ToggleMute 切换通道静音，body: {"muted": true} 为当前状态；缺少时返回 409
func (h *AmplifierHandler) ToggleMute(c *gin.Context) {
	ch, ok := channelParam(c)
	if !ok {
		return
	}
	var req toggleRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body", "message": err.Error()})
		return
	}
	h.run(c, monitor.ActionToggleMute, &ch, func(ctx context.Context) (gin.H, error) {
		if req.Muted == nil {
			return nil, amplifier.ErrToggleUnsupported
		}
		muted, err := h.amp.ToggleMute(ctx, ch, *req.Muted)
		return gin.H{"channel": ch, "muted": muted}, err
	})
}

// PowerFeedback ?state=on|standby
func (h *AmplifierHandler) PowerFeedback(c *gin.Context) {
	state := c.DefaultQuery("state", monitor.FeedbackPowerOn)
	c.JSON(http.StatusOK, gin.H{
		"state":  state,
		"active": h.amp.PowerFeedback(state),
		"style":  h.presets.Power,
	})
}

// ConnectionFeedback ?state=connected|disconnected
func (h *AmplifierHandler) ConnectionFeedback(c *gin.Context) {
	state := c.DefaultQuery("state", monitor.FeedbackConnected)
	c.JSON(http.StatusOK, gin.H{
		"state":  state,
		"active": h.amp.ConnectionFeedback(state),
		"style":  h.presets.Connection,
	})
}

// ListActions 最近的控制动作，?limit=50
func (h *AmplifierHandler) ListActions(c *gin.Context) {
	if h.recorder == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "audit disabled"})
		return
	}
	limit := 50
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}
	list, err := h.recorder.ListRecent(c.Request.Context(), limit)
	if err != nil {
		h.logger.Error("list actions failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"actions": list})
}

func (h *AmplifierHandler) powerResult() gin.H {
	return gin.H{"power_status": h.amp.Snapshot().PowerStatus}
}

// run 执行动作，记录审计并按错误类型返回状态码
func (h *AmplifierHandler) run(c *gin.Context, action string, channel *int, fn func(ctx context.Context) (gin.H, error)) {
	start := time.Now()
	body, err := fn(c.Request.Context())
	elapsed := time.Since(start)
	requestID := c.GetString(middleware.ContextRequestID)

	if h.recorder != nil {
		rec := audit.Action{
			RequestID: requestID,
			AmpID:     h.amp.Snapshot().ID,
			Action:    action,
			Channel:   channel,
			Success:   err == nil,
			Duration:  elapsed,
		}
		if err != nil {
			rec.Error = err.Error()
		}
		if aerr := h.recorder.InsertAction(context.WithoutCancel(c.Request.Context()), rec); aerr != nil {
			h.logger.Warn("audit insert failed", zap.String("action", action), zap.Error(aerr))
		}
	}

	if err != nil {
		h.logger.Warn("amplifier action failed",
			zap.String("action", action),
			zap.String("request_id", requestID),
			zap.Error(err))
		c.JSON(statusOf(err), gin.H{"error": action + " failed", "message": err.Error(), "request_id": requestID})
		return
	}
	body["request_id"] = requestID
	c.JSON(http.StatusOK, body)
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, monitor.ErrNotConnected):
		return http.StatusServiceUnavailable
	case errors.Is(err, monitor.ErrBadChannel):
		return http.StatusBadRequest
	case errors.Is(err, amplifier.ErrToggleUnsupported):
		return http.StatusConflict
	case errors.Is(err, monitor.ErrCommandFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func channelParam(c *gin.Context) (int, bool) {
	ch, err := strconv.Atoi(c.Param("channel"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid channel"})
		return 0, false
	}
	return ch, true
}
