package main

import (
	"log"

	"github.com/captionfoundry/internal/config"
	"github.com/captionfoundry/internal/db"
	"github.com/captionfoundry/internal/handler"
	"github.com/captionfoundry/internal/logger"
	"github.com/captionfoundry/internal/router"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	zlog, err := logger.New(cfg.Log)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer func() { _ = zlog.Sync() }()

	// 初始化数据库
	gdb, err := db.Open(cfg.Database.Path, db.ParseLogLevel(cfg.Database.LogLevel))
	if err != nil {
		zlog.Fatal("failed to initialize database", zap.String("path", cfg.Database.Path), zap.Error(err))
	}
	defer func() { _ = db.Close(gdb) }()

	gin.SetMode(cfg.Server.GinMode)

	// 设置并运行 Gin 服务器
	r := router.SetupRouter(handler.NewAPI(gdb, zlog), zlog)
	addr := cfg.Server.ListenAddr()
	zlog.Info("server starting", zap.String("addr", addr))
	if err := r.Run(addr); err != nil {
		zlog.Fatal("failed to run server", zap.Error(err))
	}
}
