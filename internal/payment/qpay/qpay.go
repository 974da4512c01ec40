package qpay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	ErrConfigInvalid   = errors.New("qpay config invalid")
	ErrRequestFailed   = errors.New("qpay request failed")
	ErrResponseInvalid = errors.New("qpay response invalid")
	ErrUnauthorized    = errors.New("qpay unauthorized")
)

const (
	// StatusPaid 支付成功
	StatusPaid = "PAID"
	// ObjectTypeInvoice 查询对象类型
	ObjectTypeInvoice = "INVOICE"

	defaultBaseURL   = "https://merchant.qpay.mn"
	defaultTimeout   = 15 * time.Second
	tokenEarlyExpiry = 60 * time.Second
	tracerName       = "github.com/altan-shop/internal/payment/qpay"
)

// Config QPay 商户配置
type Config struct {
	BaseURL      string
	Login        string
	Password     string
	InvoiceCode  string
	ReceiverCode string
	CallbackURL  string
	Timeout      time.Duration
}

// Normalize 规范化配置
func (c *Config) Normalize() {
	if c == nil {
		return
	}
	c.BaseURL = strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	if c.BaseURL == "" {
		c.BaseURL = defaultBaseURL
	}
	c.Login = strings.TrimSpace(c.Login)
	c.Password = strings.TrimSpace(c.Password)
	c.InvoiceCode = strings.TrimSpace(c.InvoiceCode)
	c.ReceiverCode = strings.TrimSpace(c.ReceiverCode)
	c.CallbackURL = strings.TrimSpace(c.CallbackURL)
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
}

// ValidateConfig 校验配置
func ValidateConfig(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("%w: config is nil", ErrConfigInvalid)
	}
	if cfg.Login == "" || cfg.Password == "" {
		return fmt.Errorf("%w: login/password is required", ErrConfigInvalid)
	}
	if cfg.InvoiceCode == "" {
		return fmt.Errorf("%w: invoice_code is required", ErrConfigInvalid)
	}
	if cfg.CallbackURL == "" {
		return fmt.Errorf("%w: callback url is required", ErrConfigInvalid)
	}
	return nil
}

// TokenStore 访问令牌缓存
type TokenStore interface {
	GetToken(ctx context.Context) (string, bool, error)
	SetToken(ctx context.Context, token string, ttl time.Duration) error
}

// Token 授权结果
type Token struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// InvoiceRequest 创建发票参数
type InvoiceRequest struct {
	SenderInvoiceNo string
	ReceiverCode    string
	Description     string
	Amount          decimal.Decimal
}

// BankURL 银行 App 深链
type BankURL struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Logo        string `json:"logo"`
	Link        string `json:"link"`
}

// Invoice 发票创建结果
type Invoice struct {
	InvoiceID string                 `json:"invoice_id"`
	QRText    string                 `json:"qr_text"`
	QRImage   string                 `json:"qr_image"`
	ShortURL  string                 `json:"qPay_shortUrl"`
	URLs      []BankURL              `json:"urls"`
	Raw       map[string]interface{} `json:"-"`
}

// PaymentRow 单笔支付记录
type PaymentRow struct {
	PaymentID       string          `json:"payment_id"`
	PaymentStatus   string          `json:"payment_status"`
	PaymentAmount   decimal.Decimal `json:"payment_amount"` // 网关可能返回数字或字符串
	PaymentCurrency string          `json:"payment_currency"`
	PaymentDate     string          `json:"payment_date"`
}

// CheckResult 支付查询结果
type CheckResult struct {
	Count      int             `json:"count"`
	PaidAmount decimal.Decimal `json:"paid_amount"`
	Rows       []PaymentRow    `json:"rows"`
}

// IsPaid 是否存在已支付记录
func (r *CheckResult) IsPaid() bool {
	if r == nil {
		return false
	}
	for _, row := range r.Rows {
		if strings.EqualFold(strings.TrimSpace(row.PaymentStatus), StatusPaid) {
			return true
		}
	}
	return false
}

// Client QPay v2 客户端
type Client struct {
	cfg    Config
	http   *http.Client
	store  TokenStore
	tracer trace.Tracer

	mu       sync.Mutex
	token    string
	tokenExp time.Time
}

// NewClient 创建客户端，store 可为空（仅使用进程内缓存）
func NewClient(cfg Config, store TokenStore) *Client {
	cfg.Normalize()
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		store:  store,
		tracer: otel.Tracer(tracerName),
	}
}

// Config 返回当前配置副本
func (c *Client) Config() Config {
	return c.cfg
}

// GetToken 获取访问令牌（缓存优先）
func (c *Client) GetToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	if c.token != "" && time.Now().Before(c.tokenExp) {
		token := c.token
		c.mu.Unlock()
		return token, nil
	}
	c.mu.Unlock()

	if c.store != nil {
		if token, ok, err := c.store.GetToken(ctx); err == nil && ok && token != "" {
			return token, nil
		}
	}

	tok, err := c.requestToken(ctx)
	if err != nil {
		return "", err
	}
	ttl := time.Until(tok.ExpiresAt) - tokenEarlyExpiry
	if ttl <= 0 {
		ttl = time.Minute
	}

	c.mu.Lock()
	c.token = tok.AccessToken
	c.tokenExp = time.Now().Add(ttl)
	c.mu.Unlock()

	if c.store != nil {
		_ = c.store.SetToken(ctx, tok.AccessToken, ttl)
	}
	return tok.AccessToken, nil
}

// invalidateToken 清除进程内令牌（401 后重取）
func (c *Client) invalidateToken() {
	c.mu.Lock()
	c.token = ""
	c.tokenExp = time.Time{}
	c.mu.Unlock()
}

func (c *Client) requestToken(ctx context.Context) (*Token, error) {
	if c.cfg.Login == "" || c.cfg.Password == "" {
		return nil, fmt.Errorf("%w: login/password is required", ErrConfigInvalid)
	}
	ctx, span := c.tracer.Start(ctx, "qpay.auth_token")
	defer span.End()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/v2/auth/token", nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	req.SetBasicAuth(c.cfg.Login, c.cfg.Password)
	req.Header.Set("Accept", "application/json")

	body, status, err := c.do(req)
	if err != nil {
		recordSpanError(span, err)
		return nil, err
	}
	if status == http.StatusUnauthorized {
		err = fmt.Errorf("%w: invalid merchant credentials", ErrUnauthorized)
		recordSpanError(span, err)
		return nil, err
	}
	if status < 200 || status >= 300 {
		err = fmt.Errorf("%w: http status %d", ErrRequestFailed, status)
		recordSpanError(span, err)
		return nil, err
	}

	var resp struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
		ExpiresIn    int64  `json:"expires_in"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrResponseInvalid, err)
	}
	if strings.TrimSpace(resp.AccessToken) == "" {
		return nil, fmt.Errorf("%w: empty access_token", ErrResponseInvalid)
	}
	return &Token{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		ExpiresAt:    resolveExpiry(resp.ExpiresIn, time.Now()),
	}, nil
}

// resolveExpiry QPay 的 expires_in 可能是绝对时间戳，也可能是秒数
func resolveExpiry(expiresIn int64, now time.Time) time.Time {
	switch {
	case expiresIn > 1_000_000_000:
		return time.Unix(expiresIn, 0)
	case expiresIn > 0:
		return now.Add(time.Duration(expiresIn) * time.Second)
	default:
		return now.Add(5 * time.Minute)
	}
}

// CreateInvoice 创建简易发票
func (c *Client) CreateInvoice(ctx context.Context, in InvoiceRequest) (*Invoice, error) {
	if err := ValidateConfig(&c.cfg); err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.SenderInvoiceNo) == "" {
		return nil, fmt.Errorf("%w: sender_invoice_no is required", ErrConfigInvalid)
	}
	if !in.Amount.IsPositive() {
		return nil, fmt.Errorf("%w: amount must be positive", ErrConfigInvalid)
	}
	receiver := strings.TrimSpace(in.ReceiverCode)
	if receiver == "" {
		receiver = c.cfg.ReceiverCode
	}
	if receiver == "" {
		receiver = in.SenderInvoiceNo
	}

	ctx, span := c.tracer.Start(ctx, "qpay.create_invoice", trace.WithAttributes(
		attribute.String("qpay.sender_invoice_no", in.SenderInvoiceNo),
	))
	defer span.End()

	amount, _ := in.Amount.Round(2).Float64()
	payload := map[string]interface{}{
		"invoice_code":          c.cfg.InvoiceCode,
		"sender_invoice_no":     in.SenderInvoiceNo,
		"invoice_receiver_code": receiver,
		"invoice_description":   in.Description,
		"amount":                amount,
		"callback_url":          c.cfg.CallbackURL,
	}
	body, err := c.postJSON(ctx, "/v2/invoice", payload)
	if err != nil {
		recordSpanError(span, err)
		return nil, err
	}

	var invoice Invoice
	if err := json.Unmarshal(body, &invoice); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrResponseInvalid, err)
	}
	if strings.TrimSpace(invoice.InvoiceID) == "" {
		return nil, fmt.Errorf("%w: empty invoice_id", ErrResponseInvalid)
	}
	var raw map[string]interface{}
	_ = json.Unmarshal(body, &raw)
	invoice.Raw = raw
	span.SetAttributes(attribute.String("qpay.invoice_id", invoice.InvoiceID))
	return &invoice, nil
}

// CheckPayment 查询发票支付情况
func (c *Client) CheckPayment(ctx context.Context, invoiceID string) (*CheckResult, error) {
	invoiceID = strings.TrimSpace(invoiceID)
	if invoiceID == "" {
		return nil, fmt.Errorf("%w: invoice id is required", ErrConfigInvalid)
	}
	ctx, span := c.tracer.Start(ctx, "qpay.check_payment", trace.WithAttributes(
		attribute.String("qpay.invoice_id", invoiceID),
	))
	defer span.End()

	payload := map[string]interface{}{
		"object_type": ObjectTypeInvoice,
		"object_id":   invoiceID,
		"offset": map[string]interface{}{
			"page_number": 1,
			"page_limit":  100,
		},
	}
	body, err := c.postJSON(ctx, "/v2/payment/check", payload)
	if err != nil {
		recordSpanError(span, err)
		return nil, err
	}
	var result CheckResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrResponseInvalid, err)
	}
	span.SetAttributes(attribute.Int("qpay.rows", len(result.Rows)))
	return &result, nil
}

// CancelInvoice 取消未支付发票
func (c *Client) CancelInvoice(ctx context.Context, invoiceID string) error {
	invoiceID = strings.TrimSpace(invoiceID)
	if invoiceID == "" {
		return fmt.Errorf("%w: invoice id is required", ErrConfigInvalid)
	}
	ctx, span := c.tracer.Start(ctx, "qpay.cancel_invoice")
	defer span.End()

	_, err := c.sendAuthorized(ctx, http.MethodDelete, "/v2/invoice/"+invoiceID, nil)
	if err != nil {
		recordSpanError(span, err)
	}
	return err
}

func (c *Client) postJSON(ctx context.Context, path string, payload interface{}) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	return c.sendAuthorized(ctx, http.MethodPost, path, body)
}

// sendAuthorized 携带 Bearer 令牌发送请求，401 时刷新令牌重试一次
func (c *Client) sendAuthorized(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	for attempt := 0; attempt < 2; attempt++ {
		token, err := c.GetToken(ctx)
		if err != nil {
			return nil, err
		}
		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, reader)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrRequestFailed, err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Accept", "application/json")
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		respBody, status, err := c.do(req)
		if err != nil {
			return nil, err
		}
		if status == http.StatusUnauthorized && attempt == 0 {
			c.invalidateToken()
			if c.store != nil {
				_ = c.store.SetToken(ctx, "", 0)
			}
			continue
		}
		if status < 200 || status >= 300 {
			return nil, fmt.Errorf("%w: http status %d: %s", ErrRequestFailed, status, truncate(respBody, 256))
		}
		return respBody, nil
	}
	return nil, fmt.Errorf("%w: token rejected", ErrUnauthorized)
}

func (c *Client) do(req *http.Request) ([]byte, int, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	return body, resp.StatusCode, nil
}

func recordSpanError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

func truncate(body []byte, limit int) string {
	if len(body) <= limit {
		return string(body)
	}
	return string(body[:limit])
}
