package app

import (
	"net/http"

	"go.uber.org/zap"

	cfgpkg "github.com/taoyao-code/amp-gateway/internal/config"
	"github.com/taoyao-code/amp-gateway/internal/httpserver"
)

// NewHTTPServer 根据配置创建 HTTP 服务器
func NewHTTPServer(cfg *cfgpkg.Config, metricsHandler http.Handler, logger *zap.Logger) *httpserver.Server {
	return httpserver.New(cfg.HTTP, cfg.Metrics, metricsHandler, logger)
}
