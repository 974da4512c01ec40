package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/altan-shop/internal/app"
	"github.com/altan-shop/internal/config"
	"github.com/altan-shop/internal/logger"
	"github.com/altan-shop/internal/models"

	"github.com/gin-gonic/gin"
	gormlogger "gorm.io/gorm/logger"
)

const (
	ansiReset = "\033[0m"
	ansiBold  = "\033[1m"
	ansiDim   = "\033[2m"
	ansiCyan  = "\033[36m"
	ansiGold  = "\033[33m"
)

func main() {
	var mode string
	flag.StringVar(&mode, "mode", app.ModeAll, "启动模式: all (默认), api, worker")
	flag.Parse()

	printStartupBanner()

	// 加载配置
	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	stdLog := logger.StdLogger()

	checkSecret(cfg.Server.Mode, "JWT_SECRET", cfg.UserJWT.SecretKey)
	checkSecret(cfg.Server.Mode, "JWT_REFRESH_SECRET", cfg.UserJWT.RefreshSecretKey)
	checkSecret(cfg.Server.Mode, "jwt.secret", cfg.JWT.SecretKey)

	// 初始化数据库
	logLevel := gormlogger.Warn
	if cfg.Server.Mode == "debug" {
		logLevel = gormlogger.Info
	}
	if err := models.InitDB(cfg.Database.Driver, cfg.Database.DSN, models.DBPoolConfig{
		MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
	}, logLevel); err != nil {
		stdLog.Fatalf("数据库初始化失败: %v", err)
	}

	if err := models.AutoMigrate(); err != nil {
		stdLog.Fatalf("数据库迁移失败: %v", err)
	}

	// 首次启动创建超级管理员
	defaultAdminUser := os.Getenv("ALTAN_DEFAULT_ADMIN_USERNAME")
	defaultAdminPass := os.Getenv("ALTAN_DEFAULT_ADMIN_PASSWORD")
	if cfg.Server.Mode == "release" && defaultAdminPass == "" {
		stdLog.Printf("警告: 未设置 ALTAN_DEFAULT_ADMIN_PASSWORD，已跳过默认管理员初始化")
	} else if err := models.InitDefaultAdmin(defaultAdminUser, defaultAdminPass); err != nil {
		stdLog.Printf("警告: 初始化默认管理员失败: %v", err)
	}

	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := app.Run(app.Options{
		Config:  cfg,
		Logger:  logger.S(),
		Signals: []os.Signal{syscall.SIGINT, syscall.SIGTERM},
		Mode:    mode,
	}); err != nil {
		stdLog.Fatalf("服务运行失败: %v", err)
	}
}

func checkSecret(mode, name, secret string) {
	if !isWeakSecret(secret) {
		return
	}
	if mode == "release" {
		logger.StdLogger().Fatalf("%s 过弱或仍为默认值，请在生产环境中配置强随机密钥", name)
	}
	logger.StdLogger().Printf("警告: %s 过弱或仍为默认值，建议在生产环境中更换", name)
}

func printStartupBanner() {
	fmt.Println(ansiGold + ansiBold + "altan-shop API" + ansiReset)
	fmt.Println(ansiCyan + "checkout · QPay · e-chuchu delivery" + ansiReset)
	fmt.Println(ansiDim + "--------------------------------------------------------------" + ansiReset)
}

func isWeakSecret(secret string) bool {
	if len(secret) < 32 {
		return true
	}
	normalized := strings.ToLower(secret)
	return strings.Contains(normalized, "change-me") ||
		strings.Contains(normalized, "change-in-production") ||
		strings.Contains(normalized, "your-secret-key")
}
