package echuchu

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	ErrConfigInvalid   = errors.New("echuchu config invalid")
	ErrRequestFailed   = errors.New("echuchu request failed")
	ErrResponseInvalid = errors.New("echuchu response invalid")
)

const (
	defaultTimeout = 10 * time.Second
	createPath     = "/api/v1/deliveries"
	tracerName     = "github.com/altan-shop/internal/delivery/echuchu"
)

// Config 快递接口配置
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// Normalize 规范化配置
func (c *Config) Normalize() {
	c.BaseURL = strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	c.APIKey = strings.TrimSpace(c.APIKey)
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
}

// ValidateConfig 校验配置
func ValidateConfig(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("%w: config is nil", ErrConfigInvalid)
	}
	if cfg.BaseURL == "" {
		return fmt.Errorf("%w: base_url is required", ErrConfigInvalid)
	}
	if cfg.APIKey == "" {
		return fmt.Errorf("%w: api_key is required", ErrConfigInvalid)
	}
	return nil
}

// Parcel 派单内容
type Parcel struct {
	ExternalID     string `json:"external_id"`
	IdempotencyKey string `json:"-"`
	ReceiverName   string `json:"receiver_name"`
	ReceiverPhone  string `json:"receiver_phone"`
	City           string `json:"city,omitempty"`
	District       string `json:"district,omitempty"`
	Khoroo         string `json:"khoroo,omitempty"`
	Address        string `json:"address"`
	Description    string `json:"description"`
	Note           string `json:"note,omitempty"`
	Amount         string `json:"amount"`
	Paid           bool   `json:"paid"`
}

// CreateResult 派单结果
type CreateResult struct {
	DeliveryID string                 `json:"delivery_id"`
	TrackingNo string                 `json:"tracking_no"`
	Status     string                 `json:"status"`
	Raw        map[string]interface{} `json:"-"`
}

// Reference 快递侧单号
func (r *CreateResult) Reference() string {
	if r == nil {
		return ""
	}
	if r.TrackingNo != "" {
		return r.TrackingNo
	}
	return r.DeliveryID
}

// Client e-chuchu 客户端
type Client struct {
	cfg    Config
	http   *http.Client
	tracer trace.Tracer
}

// NewClient 创建客户端
func NewClient(cfg Config) *Client {
	cfg.Normalize()
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		tracer: otel.Tracer(tracerName),
	}
}

// CreateDelivery 创建快递单
func (c *Client) CreateDelivery(ctx context.Context, parcel Parcel) (*CreateResult, error) {
	if err := ValidateConfig(&c.cfg); err != nil {
		return nil, err
	}
	ctx, span := c.tracer.Start(ctx, "echuchu.create_delivery", trace.WithAttributes(
		attribute.String("echuchu.external_id", parcel.ExternalID),
	))
	defer span.End()

	result, err := c.create(ctx, parcel)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.String("echuchu.reference", result.Reference()))
	return result, nil
}

func (c *Client) create(ctx context.Context, parcel Parcel) (*CreateResult, error) {
	body, err := json.Marshal(parcel)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+createPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if parcel.IdempotencyKey != "" {
		req.Header.Set("Idempotency-Key", parcel.IdempotencyKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: http status %d", ErrRequestFailed, resp.StatusCode)
	}

	var envelope struct {
		Success *bool        `json:"success"`
		Message string       `json:"message"`
		Data    CreateResult `json:"data"`
	}
	if len(bytes.TrimSpace(respBody)) > 0 {
		if err := json.Unmarshal(respBody, &envelope); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrResponseInvalid, err)
		}
	}
	if envelope.Success != nil && !*envelope.Success {
		return nil, fmt.Errorf("%w: %s", ErrResponseInvalid, envelope.Message)
	}
	result := envelope.Data
	var raw map[string]interface{}
	_ = json.Unmarshal(respBody, &raw)
	result.Raw = raw
	return &result, nil
}

// FlattenItems 将商品拼接成 "名称 xN, 名称 xN"
func FlattenItems(items []Item) string {
	parts := make([]string, 0, len(items))
	for _, item := range items {
		name := strings.TrimSpace(item.Name)
		if name == "" {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s x%d", name, item.Quantity))
	}
	return strings.Join(parts, ", ")
}

// Item 派单商品行
type Item struct {
	Name     string
	Quantity int
}
