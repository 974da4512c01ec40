package app

import (
	"os"
	"strings"
	"time"

	"github.com/altan-shop/internal/config"
	"github.com/altan-shop/internal/logger"

	"go.uber.org/zap"
)

// 启动模式：all 同时运行 API 与 Worker
const (
	ModeAll    = "all"
	ModeAPI    = "api"
	ModeWorker = "worker"
)

const defaultShutdownTimeout = 15 * time.Second

// Options 应用启动选项
type Options struct {
	Config          *config.Config
	Logger          *zap.SugaredLogger
	Signals         []os.Signal
	ShutdownTimeout time.Duration
	Mode            string
}

// NormalizeMode 统一大小写与空白，空值视为 all
func NormalizeMode(mode string) string {
	mode = strings.ToLower(strings.TrimSpace(mode))
	if mode == "" {
		return ModeAll
	}
	return mode
}

// normalizeOptions 补齐默认参数
func normalizeOptions(opts Options) Options {
	if opts.Logger == nil {
		opts.Logger = logger.S()
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = defaultShutdownTimeout
	}
	opts.Mode = NormalizeMode(opts.Mode)
	return opts
}
