package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/altan-shop/internal/constants"

	"gorm.io/gorm"
)

// Order 订单表
type Order struct {
	ID              uint                    `gorm:"primarykey" json:"id"`                                                    // 主键
	OrderNumber     string                  `gorm:"type:varchar(32);uniqueIndex;not null" json:"order_number"`               // 订单编号
	UserID          string                  `gorm:"type:varchar(64);index;not null" json:"user_id"`                          // 用户ID（游客为 guest_<时间戳>）
	CustomerName    string                  `gorm:"type:varchar(120);not null" json:"customer_name"`                         // 收货人
	PhoneNumber     string                  `gorm:"type:varchar(32);index;not null" json:"phone_number"`                     // 联系电话
	Email           string                  `gorm:"type:varchar(255)" json:"email,omitempty"`                                // 联系邮箱
	ShippingAddress string                  `gorm:"type:text" json:"shipping_address"`                                       // 收货地址（拼接文本）
	City            string                  `gorm:"type:varchar(120)" json:"city"`                                           // 城市 / 省
	District        string                  `gorm:"type:varchar(120)" json:"district"`                                       // 区 / 县
	Khoroo          string                  `gorm:"type:varchar(120)" json:"khoroo"`                                         // 街道（khoroo）
	AddressLine     string                  `gorm:"type:varchar(500)" json:"address_line"`                                   // 详细地址
	IsPickup        bool                    `gorm:"not null;default:false" json:"is_pickup"`                                 // 是否到店自取
	Notes           string                  `gorm:"type:text" json:"notes"`                                                  // 订单备注
	Currency        string                  `gorm:"type:varchar(8);not null;default:'MNT'" json:"currency"`                  // 币种
	Subtotal        Money                   `gorm:"type:decimal(20,2);not null;default:0" json:"subtotal"`                   // 商品小计
	ShippingCost    Money                   `gorm:"type:decimal(20,2);not null;default:0" json:"shipping_cost"`              // 运费
	Tax             Money                   `gorm:"type:decimal(20,2);not null;default:0" json:"tax"`                        // 税费
	DiscountAmount  Money                   `gorm:"type:decimal(20,2);not null;default:0" json:"discount_amount"`            // 优惠金额
	GrandTotal      Money                   `gorm:"type:decimal(20,2);not null;default:0" json:"grand_total"`                // 应付总额（以提交值为准）
	CouponID        *uint                   `gorm:"index" json:"coupon_id,omitempty"`                                        // 优惠券ID
	CouponCode      string                  `gorm:"type:varchar(32)" json:"coupon_code,omitempty"`                           // 优惠码
	PaymentMethod   constants.PaymentMethod `gorm:"not null;default:0" json:"payment_method"`                                // 支付方式
	PaymentStatus   constants.PaymentStatus `gorm:"not null;default:0;index" json:"payment_status"`                          // 支付状态
	OrderStatus     constants.OrderStatus   `gorm:"not null;default:0;index" json:"order_status"`                            // 订单状态
	InvoiceID       string                  `gorm:"type:varchar(64);index" json:"invoice_id,omitempty"`                      // QPay 发票ID
	QRImage         string                  `gorm:"type:text" json:"qr_image,omitempty"`                                     // QPay 二维码图片（base64）
	QRText          string                  `gorm:"type:text" json:"qr_text,omitempty"`                                      // QPay 二维码文本
	QPayShortURL    string                  `gorm:"column:qpay_short_url;type:varchar(500)" json:"qpay_short_url,omitempty"` // QPay 短链接
	QPayLinks       InvoiceLinks            `gorm:"column:qpay_links;type:text" json:"qpay_links,omitempty"`                 // 银行 App 深链
	PaidAt          *time.Time              `gorm:"index" json:"paid_at"`                                                    // 支付时间
	CancelledAt     *time.Time              `gorm:"index" json:"cancelled_at"`                                               // 取消时间
	CreatedAt       time.Time               `gorm:"index" json:"created_at"`                                                 // 创建时间
	UpdatedAt       time.Time               `gorm:"index" json:"updated_at"`                                                 // 更新时间
	DeletedAt       gorm.DeletedAt          `gorm:"index" json:"-"`                                                          // 软删除时间

	Items []OrderItem `gorm:"foreignKey:OrderID" json:"items,omitempty"` // 订单项
}

// InvoiceLink 发票的银行 App 深链
type InvoiceLink struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Logo        string `json:"logo"`
	Link        string `json:"link"`
}

// InvoiceLinks 以 JSON 文本存储
type InvoiceLinks []InvoiceLink

// Value 实现 driver.Valuer 接口
func (l InvoiceLinks) Value() (driver.Value, error) {
	if len(l) == 0 {
		return "", nil
	}
	raw, err := json.Marshal(l)
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}

// Scan 实现 sql.Scanner 接口
func (l *InvoiceLinks) Scan(value interface{}) error {
	var raw []byte
	switch v := value.(type) {
	case nil:
		*l = nil
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return nil
	}
	if len(raw) == 0 {
		*l = nil
		return nil
	}
	return json.Unmarshal(raw, l)
}

// TableName 指定表名
func (Order) TableName() string {
	return "orders"
}

// IsGuest 是否游客订单
func (o *Order) IsGuest() bool {
	return o != nil && constants.IsGuestUserID(o.UserID)
}

// OrderItem 订单项（下单时的商品快照）
type OrderItem struct {
	ID        uint      `gorm:"primarykey" json:"id"`                                    // 主键
	OrderID   uint      `gorm:"index;not null" json:"order_id"`                          // 订单ID
	ProductID string    `gorm:"type:varchar(64);index" json:"product_id"`                // 商品ID（外部商品目录）
	Name      string    `gorm:"type:varchar(255);not null" json:"name"`                  // 商品名称
	NameMN    string    `gorm:"column:name_mn;type:varchar(255)" json:"name_mn"`         // 商品蒙文名称
	SKU       string    `gorm:"type:varchar(64)" json:"sku"`                             // SKU 编码
	Image     string    `gorm:"type:varchar(500)" json:"image"`                          // 商品图片
	Price     Money     `gorm:"type:decimal(20,2);not null;default:0" json:"price"`      // 单价
	Quantity  int       `gorm:"not null" json:"quantity"`                                // 数量
	LineTotal Money     `gorm:"type:decimal(20,2);not null;default:0" json:"line_total"` // 小计
	CreatedAt time.Time `gorm:"index" json:"created_at"`                                 // 创建时间
}

// TableName 指定表名
func (OrderItem) TableName() string {
	return "order_items"
}

// DisplayName 优先使用蒙文名称
func (i OrderItem) DisplayName() string {
	if i.NameMN != "" {
		return i.NameMN
	}
	return i.Name
}
