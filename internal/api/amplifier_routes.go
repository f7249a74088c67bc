package api

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/taoyao-code/amp-gateway/internal/api/middleware"
)

// RegisterAmplifierRoutes 注册功放控制路由
func RegisterAmplifierRoutes(r gin.IRouter, h *AmplifierHandler, authCfg middleware.AuthConfig, logger *zap.Logger) {
	if r == nil || h == nil {
		return
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	g := r.Group("/api/v1/amplifier")
	g.Use(middleware.RequestID())
	if authCfg.Enabled {
		g.Use(middleware.APIKeyAuth(authCfg, logger))
		logger.Info("api authentication enabled", zap.Int("api_keys_count", len(authCfg.APIKeys)))
	} else {
		logger.Warn("api authentication disabled - only for development!")
	}

	g.GET("", h.GetState)
	g.GET("/info", h.GetInfo)
	g.GET("/channels", h.ListChannels)
	g.POST("/ping", h.Ping)

	g.POST("/power/on", h.PowerOn)
	g.POST("/power/off", h.PowerOff)
	g.POST("/power/toggle", h.PowerToggle)

	g.POST("/outputs/:channel/mute", h.SetMute)
	g.POST("/outputs/:channel/toggle", h.ToggleMute)

	g.GET("/feedbacks/power", h.PowerFeedback)
	g.GET("/feedbacks/connection", h.ConnectionFeedback)

	g.GET("/actions", h.ListActions)

	logger.Info("amplifier routes registered", zap.Int("endpoints", 12))
}
