package qpay

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
)

// WebhookPayload QPay 回调内容
type WebhookPayload struct {
	ObjectType    string `json:"object_type"`
	ObjectID      string `json:"object_id"`
	PaymentStatus string `json:"payment_status"`
}

// Normalize 统一大小写与空白
func (p *WebhookPayload) Normalize() {
	p.ObjectType = strings.ToUpper(strings.TrimSpace(p.ObjectType))
	p.ObjectID = strings.TrimSpace(p.ObjectID)
	p.PaymentStatus = strings.ToUpper(strings.TrimSpace(p.PaymentStatus))
}

// ParseWebhook 解析回调：JSON 体优先，query 参数兜底（?invoice_id= 或 ?object_id=）
func ParseWebhook(body []byte, query url.Values) (*WebhookPayload, error) {
	payload := &WebhookPayload{}
	if len(strings.TrimSpace(string(body))) > 0 {
		if err := json.Unmarshal(body, payload); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrResponseInvalid, err)
		}
	}
	if payload.ObjectID == "" && query != nil {
		payload.ObjectID = query.Get("object_id")
		if payload.ObjectID == "" {
			payload.ObjectID = query.Get("invoice_id")
		}
	}
	if payload.ObjectType == "" {
		payload.ObjectType = ObjectTypeInvoice
	}
	payload.Normalize()
	if payload.ObjectID == "" {
		return nil, fmt.Errorf("%w: object_id is required", ErrResponseInvalid)
	}
	return payload, nil
}
