package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/fran0220/stock-scanner/internal/cli"
	"github.com/fran0220/stock-scanner/internal/config"
	"github.com/fran0220/stock-scanner/internal/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Log.Fatalf("加载配置失败: %v", err)
	}
	if err := logger.InitLogger(cfg.Log.Level, cfg.Log.File); err != nil {
		logger.Log.Fatalf("初始化日志失败: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cli.RunServer(ctx, cfg); err != nil {
		stop()
		logger.Log.Fatalf("启动服务失败: %v", err)
	}
}
