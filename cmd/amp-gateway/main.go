package main

import (
	"go.uber.org/zap"

	"github.com/taoyao-code/amp-gateway/internal/app/bootstrap"
	cfgpkg "github.com/taoyao-code/amp-gateway/internal/config"
	"github.com/taoyao-code/amp-gateway/internal/logging"
)

func main() {
	// 1) 加载配置（AMP_CONFIG 或 configs/example.yaml）
	cfg, err := cfgpkg.Load("")
	if err != nil {
		panic(err)
	}

	// 2) 初始化日志
	logger, err := logging.InitLogger(cfg.Logging)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)

	// 3) 启动并阻塞到收到退出信号
	if err := bootstrap.Run(cfg, zap.L()); err != nil {
		zap.L().Fatal("amp gateway exited with error", zap.Error(err))
	}
}
