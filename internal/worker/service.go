package worker

import (
	"context"
	"errors"
	"time"

	"github.com/altan-shop/internal/config"
	"github.com/altan-shop/internal/logger"
	"github.com/altan-shop/internal/queue"

	"github.com/hibiken/asynq"
)

const (
	defaultReconcileInterval  = time.Minute
	defaultReconcileBatchSize = 50
)

// Service 异步队列服务，附带 QPay 待支付订单对账循环
type Service struct {
	name     string
	server   *asynq.Server
	mux      *asynq.ServeMux
	consumer *Consumer

	reconcileInterval time.Duration
	reconcileBatch    int
}

// NewService 创建异步队列服务；队列关闭时只运行对账循环
func NewService(cfg *config.Config, consumer *Consumer) (*Service, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	if consumer == nil {
		return nil, errors.New("consumer is nil")
	}
	interval, batch := reconcileSettings(cfg.QPay)
	svc := &Service{
		name:              "worker",
		consumer:          consumer,
		reconcileInterval: interval,
		reconcileBatch:    batch,
	}
	if cfg.Queue.Enabled {
		opt, serverCfg := queue.BuildServerConfig(&cfg.Queue)
		svc.server = asynq.NewServer(opt, serverCfg)
		svc.mux = asynq.NewServeMux()
		consumer.Register(svc.mux)
	} else {
		logger.Warnw("worker_queue_disabled_reconcile_only")
	}
	return svc, nil
}

func reconcileSettings(cfg config.QPayConfig) (time.Duration, int) {
	interval := time.Duration(cfg.ReconcileIntervalSeconds) * time.Second
	if interval <= 0 {
		interval = defaultReconcileInterval
	}
	batch := cfg.ReconcileBatchSize
	if batch <= 0 {
		batch = defaultReconcileBatchSize
	}
	return interval, batch
}

// Name 服务名称
func (s *Service) Name() string {
	if s == nil || s.name == "" {
		return "worker"
	}
	return s.name
}

// Start 启动服务
func (s *Service) Start(ctx context.Context) error {
	if s == nil || s.consumer == nil {
		return errors.New("worker not initialized")
	}
	if s.consumer.Container != nil && s.consumer.PaymentService != nil {
		go s.runReconcileLoop(ctx)
	}
	if s.server == nil || s.mux == nil {
		<-ctx.Done()
		return nil
	}
	return s.server.Run(s.mux)
}

// Stop 停止服务
func (s *Service) Stop(ctx context.Context) error {
	if s == nil || s.server == nil {
		return nil
	}
	_ = ctx
	s.server.Shutdown()
	return nil
}

func (s *Service) runReconcileLoop(ctx context.Context) {
	payments := s.consumer.PaymentService
	runOnce := func() {
		// 只处理创建超过一个周期的订单，新订单优先等待回调
		result, err := payments.ReconcilePending(ctx, s.reconcileInterval, s.reconcileBatch)
		if err != nil {
			logger.Warnw("worker_qpay_reconcile_failed", "error", err)
			return
		}
		if result != nil && result.Checked > 0 {
			logger.Infow("worker_qpay_reconcile_done",
				"checked", result.Checked,
				"paid", result.Paid,
				"expired", result.Expired,
				"failed", result.Failed,
			)
		}
	}
	runOnce()

	ticker := time.NewTicker(s.reconcileInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			runOnce()
		}
	}
}
