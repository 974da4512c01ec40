package app

import (
	"context"
	"errors"

	"github.com/altan-shop/internal/config"
	"github.com/altan-shop/internal/flowcontrol"
	"github.com/altan-shop/internal/logger"
	"github.com/altan-shop/internal/provider"
	"github.com/altan-shop/internal/router"
	"github.com/altan-shop/internal/telemetry"
	"github.com/altan-shop/internal/worker"
)

// BuildRunner 构建服务运行器
func BuildRunner(cfg *config.Config, mode string) (*Runner, *provider.Container, error) {
	if cfg == nil {
		return nil, nil, errors.New("config is nil")
	}
	switch mode {
	case ModeAll, ModeAPI, ModeWorker:
	default:
		return nil, nil, errors.New("unknown mode: " + mode)
	}

	container := provider.NewContainer(cfg)

	var services []Service

	// 初始化 HTTP 服务
	if mode == ModeAll || mode == ModeAPI {
		limiter, err := flowcontrol.Init(cfg.FlowControl)
		if err != nil {
			logger.Warnw("app_flow_control_init_failed", "error", err)
		}
		engine := router.SetupRouter(cfg, container, limiter)
		addr := cfg.Server.Host + ":" + cfg.Server.Port
		services = append(services, NewHTTPService(addr, engine))
	}

	// 初始化 Worker 服务（队列消费 + QPay 对账）
	if mode == ModeAll || mode == ModeWorker {
		workerService, err := worker.NewService(cfg, worker.NewConsumer(container))
		if err != nil {
			return nil, nil, err
		}
		services = append(services, workerService)
	}

	if len(services) == 0 {
		return nil, nil, errors.New("no services initialized (check mode and config)")
	}

	return NewRunner(services...), container, nil
}

// Run 应用启动入口
func Run(opts Options) error {
	opts = normalizeOptions(opts)
	if opts.Config == nil {
		return errors.New("config is nil")
	}

	shutdownTracer, err := telemetry.InitTracer(context.Background(), opts.Config.Tracing)
	if err != nil {
		opts.Logger.Warnw("app_tracing_init_failed", "error", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), opts.ShutdownTimeout)
		defer cancel()
		if shutdownTracer == nil {
			return
		}
		if err := shutdownTracer(ctx); err != nil {
			opts.Logger.Warnw("app_tracing_shutdown_failed", "error", err)
		}
	}()

	runner, container, err := BuildRunner(opts.Config, opts.Mode)
	if err != nil {
		return err
	}
	defer func() {
		if container != nil && container.QueueClient != nil {
			_ = container.QueueClient.Close()
		}
	}()

	addr := opts.Config.Server.Host + ":" + opts.Config.Server.Port
	opts.Logger.Infow("app_start", "addr", addr, "mode", opts.Mode)
	return RunWithOptions(runner, opts)
}
