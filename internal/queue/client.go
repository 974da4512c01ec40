package queue

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/altan-shop/internal/config"
	"github.com/altan-shop/internal/constants"

	"github.com/hibiken/asynq"
)

// DefaultQueue 默认队列名称
const DefaultQueue = constants.QueueDefault

// Client 队列客户端封装，未启用时所有投递均为空操作
type Client struct {
	client       *asynq.Client
	enabled      bool
	defaultQueue string
}

// NewClient 创建队列客户端
func NewClient(cfg *config.QueueConfig) (*Client, error) {
	if cfg == nil || !cfg.Enabled {
		return &Client{enabled: false, defaultQueue: DefaultQueue}, nil
	}
	return &Client{
		client:       asynq.NewClient(buildRedisOpt(cfg)),
		enabled:      true,
		defaultQueue: DefaultQueue,
	}, nil
}

// Enabled 判断是否启用
func (c *Client) Enabled() bool {
	return c != nil && c.enabled && c.client != nil
}

// Close 关闭客户端
func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

func (c *Client) enqueue(task *asynq.Task, opts ...asynq.Option) error {
	options := append([]asynq.Option{asynq.Queue(c.defaultQueue)}, opts...)
	_, err := c.client.Enqueue(task, options...)
	return err
}

// EnqueueDeliveryDispatch 推送派单任务；同一订单同一触发点 10 分钟内去重
func (c *Client) EnqueueDeliveryDispatch(payload DeliveryDispatchPayload) error {
	if !c.Enabled() {
		return nil
	}
	task, err := NewDeliveryDispatchTask(payload)
	if err != nil {
		return err
	}
	err = c.enqueue(task, asynq.MaxRetry(3), asynq.Unique(10*time.Minute))
	if errors.Is(err, asynq.ErrDuplicateTask) {
		return nil
	}
	return err
}

// EnqueueAddressCapture 推送地址入簿任务
func (c *Client) EnqueueAddressCapture(payload AddressCapturePayload) error {
	if !c.Enabled() {
		return nil
	}
	task, err := NewAddressCaptureTask(payload)
	if err != nil {
		return err
	}
	return c.enqueue(task, asynq.MaxRetry(1))
}

// EnqueueOrderPaymentTimeout 推送支付超时任务
func (c *Client) EnqueueOrderPaymentTimeout(payload OrderPaymentTimeoutPayload, delay time.Duration) error {
	if !c.Enabled() {
		return nil
	}
	if delay < 0 {
		delay = 0
	}
	task, err := NewOrderPaymentTimeoutTask(payload)
	if err != nil {
		return err
	}
	return c.enqueue(task, asynq.ProcessIn(delay))
}

// BuildServerConfig 生成队列服务配置
func BuildServerConfig(cfg *config.QueueConfig) (asynq.RedisClientOpt, asynq.Config) {
	concurrency := 10
	queues := map[string]int{DefaultQueue: 1}
	if cfg != nil {
		if cfg.Concurrency > 0 {
			concurrency = cfg.Concurrency
		}
		if len(cfg.Queues) > 0 {
			queues = cfg.Queues
		}
	}
	return buildRedisOpt(cfg), asynq.Config{
		Concurrency: concurrency,
		Queues:      queues,
	}
}

func buildRedisOpt(cfg *config.QueueConfig) asynq.RedisClientOpt {
	host := "127.0.0.1"
	port := 6379
	opt := asynq.RedisClientOpt{}
	if cfg != nil {
		if strings.TrimSpace(cfg.Host) != "" {
			host = strings.TrimSpace(cfg.Host)
		}
		if cfg.Port > 0 {
			port = cfg.Port
		}
		opt.Password = cfg.Password
		opt.DB = cfg.DB
	}
	opt.Addr = fmt.Sprintf("%s:%d", host, port)
	return opt
}
