package repository

import "time"

// OrderListFilter 查询订单列表的过滤条件
type OrderListFilter struct {
	Page          int
	PageSize      int
	UserID        string
	OrderNumber   string
	PhoneNumber   string
	Keyword       string
	PaymentStatus *int
	OrderStatus   *int
	PaymentMethod *int
	CreatedFrom   *time.Time
	CreatedTo     *time.Time
}

// CouponListFilter 查询优惠券列表的过滤条件
type CouponListFilter struct {
	Page     int
	PageSize int
	Code     string
	IsActive *bool
	IsManual *bool
}

// CouponUsageListFilter 查询优惠券使用记录的过滤条件
type CouponUsageListFilter struct {
	Page     int
	PageSize int
	CouponID uint
	UserID   string
}

// DispatchListFilter 查询派单记录的过滤条件
type DispatchListFilter struct {
	Page     int
	PageSize int
	OrderID  uint
	Status   string
}

// ContentListFilter 后台内容列表的过滤条件
type ContentListFilter struct {
	Page     int
	PageSize int
	Search   string
	IsActive *bool
}
