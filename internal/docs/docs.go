// Package docs 注册 altan-shop 接口的 OpenAPI 文档，供 /swagger/*any 使用
package docs

import (
	"net/url"
	"strings"
	"sync"

	"github.com/altan-shop/internal/config"

	"github.com/swaggo/swag"
)

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/order": {
            "get": {"tags": ["order"], "summary": "当前用户订单列表", "security": [{"BearerAuth": []}], "parameters": [{"type": "integer", "name": "page", "in": "query"}, {"type": "integer", "name": "page_size", "in": "query"}], "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/Envelope"}}}},
            "post": {"tags": ["order"], "summary": "创建订单（游客需验证码）", "parameters": [{"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateOrderRequest"}}], "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/Envelope"}}}}
        },
        "/order/quote": {
            "post": {"tags": ["order"], "summary": "服务端报价", "parameters": [{"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/QuoteOrderRequest"}}], "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/Envelope"}}}}
        },
        "/order/{id}": {
            "get": {"tags": ["order"], "summary": "订单详情（仅本人）", "security": [{"BearerAuth": []}], "parameters": [{"type": "integer", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/Envelope"}}}}
        },
        "/order/{id}/payment": {
            "patch": {"tags": ["order"], "summary": "更新支付状态（管理员）", "security": [{"BearerAuth": []}], "parameters": [{"type": "integer", "name": "id", "in": "path", "required": true}, {"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdatePaymentStatusRequest"}}], "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/Envelope"}}}}
        },
        "/order/number/{orderNumber}": {
            "get": {"tags": ["order"], "summary": "按订单号查询", "parameters": [{"type": "string", "name": "orderNumber", "in": "path", "required": true}, {"type": "string", "name": "phone", "in": "query", "required": true}], "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/Envelope"}}}}
        },
        "/order/number/{orderNumber}/invoice": {
            "get": {"tags": ["order"], "summary": "发票视图（触发派单）", "parameters": [{"type": "string", "name": "orderNumber", "in": "path", "required": true}, {"type": "string", "name": "phone", "in": "query", "required": true}], "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/Envelope"}}}}
        },
        "/qpay/checkout/invoice": {
            "post": {"tags": ["qpay"], "summary": "创建 QPay 发票", "parameters": [{"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateInvoiceRequest"}}], "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/Envelope"}}}}
        },
        "/qpay/check/{invoiceId}": {
            "get": {"tags": ["qpay"], "summary": "查询支付状态", "parameters": [{"type": "string", "name": "invoiceId", "in": "path", "required": true}], "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/Envelope"}}}}
        },
        "/qpay/webhook": {
            "post": {"tags": ["qpay"], "summary": "QPay 回调", "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/Envelope"}}}}
        },
        "/coupons/validate": {
            "post": {"tags": ["coupon"], "summary": "校验优惠码", "parameters": [{"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ValidateCouponRequest"}}], "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/Envelope"}}}}
        },
        "/user/addresses": {
            "get": {"tags": ["address"], "summary": "地址簿", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/Envelope"}}}},
            "post": {"tags": ["address"], "summary": "保存地址", "security": [{"BearerAuth": []}], "parameters": [{"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SaveAddressRequest"}}], "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/Envelope"}}}}
        },
        "/user/addresses/{id}": {
            "delete": {"tags": ["address"], "summary": "删除地址", "security": [{"BearerAuth": []}], "parameters": [{"type": "integer", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/Envelope"}}}}
        },
        "/user/addresses/{id}/default": {
            "put": {"tags": ["address"], "summary": "设为默认地址", "security": [{"BearerAuth": []}], "parameters": [{"type": "integer", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/Envelope"}}}}
        },
        "/bank-accounts/active": {
            "get": {"tags": ["content"], "summary": "收款银行账户", "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/Envelope"}}}}
        },
        "/banners": {
            "get": {"tags": ["content"], "summary": "轮播图", "parameters": [{"type": "string", "name": "position", "in": "query"}], "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/Envelope"}}}}
        },
        "/partners": {
            "get": {"tags": ["content"], "summary": "合作伙伴", "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/Envelope"}}}}
        },
        "/footer": {
            "get": {"tags": ["content"], "summary": "页脚", "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/Envelope"}}}}
        },
        "/gift-settings/active": {
            "get": {"tags": ["content"], "summary": "满额赠品", "parameters": [{"type": "string", "name": "amount", "in": "query"}], "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/Envelope"}}}}
        },
        "/captcha/image": {
            "get": {"tags": ["captcha"], "summary": "图片验证码", "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/Envelope"}}}}
        },
        "/auth/register": {
            "post": {"tags": ["auth"], "summary": "邮箱注册", "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/Envelope"}}}}
        },
        "/auth/login": {
            "post": {"tags": ["auth"], "summary": "邮箱登录", "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/Envelope"}}}}
        },
        "/auth/google": {
            "post": {"tags": ["auth"], "summary": "Google 登录", "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/Envelope"}}}}
        },
        "/auth/refresh": {
            "post": {"tags": ["auth"], "summary": "刷新令牌", "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/Envelope"}}}}
        },
        "/auth/me": {
            "get": {"tags": ["auth"], "summary": "当前用户", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/Envelope"}}}}
        }
    },
    "definitions": {
        "Envelope": {
            "type": "object",
            "properties": {
                "status_code": {"type": "integer", "description": "0 成功，其余为业务错误码 400/401/403/404/429/500"},
                "msg": {"type": "string"},
                "data": {"type": "object"}
            }
        },
        "OrderItemRequest": {
            "type": "object",
            "required": ["product_id", "name", "quantity"],
            "properties": {
                "product_id": {"type": "string"},
                "name": {"type": "string"},
                "name_mn": {"type": "string"},
                "sku": {"type": "string"},
                "image": {"type": "string"},
                "price": {"type": "string", "example": "60000.00"},
                "quantity": {"type": "integer", "minimum": 1}
            }
        },
        "CreateOrderRequest": {
            "type": "object",
            "required": ["customer_name", "phone_number", "items"],
            "properties": {
                "customer_name": {"type": "string"},
                "phone_number": {"type": "string", "example": "99112233"},
                "email": {"type": "string"},
                "shipping_address": {"type": "string"},
                "city": {"type": "string"},
                "district": {"type": "string"},
                "khoroo": {"type": "string"},
                "address_line": {"type": "string"},
                "is_pickup": {"type": "boolean"},
                "notes": {"type": "string"},
                "items": {"type": "array", "items": {"$ref": "#/definitions/OrderItemRequest"}},
                "coupon_code": {"type": "string"},
                "payment_method": {"type": "integer", "enum": [0, 1, 2, 3]},
                "grand_total": {"type": "string"},
                "captcha_payload": {"type": "object", "properties": {"captcha_id": {"type": "string"}, "captcha_code": {"type": "string"}}}
            }
        },
        "QuoteOrderRequest": {
            "type": "object",
            "required": ["items"],
            "properties": {
                "items": {"type": "array", "items": {"$ref": "#/definitions/OrderItemRequest"}},
                "coupon_code": {"type": "string"},
                "is_pickup": {"type": "boolean"}
            }
        },
        "UpdatePaymentStatusRequest": {
            "type": "object",
            "required": ["payment_status"],
            "properties": {"payment_status": {"type": "integer", "enum": [0, 1, 2, 3]}}
        },
        "CreateInvoiceRequest": {
            "type": "object",
            "required": ["order_id"],
            "properties": {
                "order_id": {"type": "integer"},
                "amount": {"type": "string"},
                "description": {"type": "string"}
            }
        },
        "ValidateCouponRequest": {
            "type": "object",
            "required": ["code"],
            "properties": {
                "code": {"type": "string", "example": "SAVE20"},
                "subtotal": {"type": "string", "example": "120000"}
            }
        },
        "SaveAddressRequest": {
            "type": "object",
            "required": ["city", "address"],
            "properties": {
                "city": {"type": "string"},
                "district": {"type": "string"},
                "khoroo": {"type": "string"},
                "address": {"type": "string"},
                "is_default": {"type": "boolean"}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    }
}`

// SwaggerInfo 文档元信息
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api",
	Schemes:          []string{},
	Title:            "altan-shop API",
	Description:      "Checkout, QPay payment and delivery dispatch API",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

var registerOnce sync.Once

// Register 按公开地址填充 host 并注册文档
func Register(cfg *config.Config) {
	registerOnce.Do(func() {
		if cfg != nil {
			if parsed, err := url.Parse(strings.TrimSpace(cfg.Server.PublicURL)); err == nil && parsed.Host != "" {
				SwaggerInfo.Host = parsed.Host
				SwaggerInfo.Schemes = []string{parsed.Scheme}
			}
		}
		swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
	})
}
