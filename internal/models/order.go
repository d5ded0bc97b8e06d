package models

import (
	"time"

	"gorm.io/gorm"
)

// Order 订单表
type Order struct {
	ID              uint           `gorm:"primarykey" json:"id"`                                             // 主键
	OrderNo         string         `gorm:"uniqueIndex;not null" json:"order_no"`                             // 订单编号
	UserID          uint           `gorm:"index;not null" json:"user_id"`                                    // 用户ID
	Status          string         `gorm:"index;not null" json:"status"`                                     // 订单状态
	Currency        string         `gorm:"not null" json:"currency"`                                         // 币种
	ItemsSubtotal   Money          `gorm:"type:decimal(20,2);not null;default:0" json:"items_subtotal"`      // 商品小计（佣金计算基数）
	ShippingFee     Money          `gorm:"type:decimal(20,2);not null;default:0" json:"shipping_fee"`        // 配送费
	CODSurcharge    Money          `gorm:"type:decimal(20,2);not null;default:0" json:"cod_surcharge"`       // 货到付款附加费
	TotalAmount     Money          `gorm:"type:decimal(20,2);not null;default:0" json:"total_amount"`        // 实付金额
	PaymentMethod   string         `gorm:"type:varchar(20);not null;default:'online'" json:"payment_method"` // 支付方式（online/cod）
	DeliveryAddress JSON           `gorm:"type:json" json:"delivery_address"`                                // 收货地址快照
	ClientIP        string         `gorm:"type:varchar(64)" json:"client_ip,omitempty"`                      // 下单客户端IP
	ExpiresAt       *time.Time     `gorm:"index" json:"expires_at"`                                          // 过期时间
	PaidAt          *time.Time     `gorm:"index" json:"paid_at"`                                             // 支付时间
	CompletedAt     *time.Time     `gorm:"index" json:"completed_at"`                                        // 完成时间
	CanceledAt      *time.Time     `gorm:"index" json:"canceled_at"`                                         // 取消时间
	CreatedAt       time.Time      `gorm:"index" json:"created_at"`                                          // 创建时间
	UpdatedAt       time.Time      `gorm:"index" json:"updated_at"`                                          // 更新时间
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`                                                   // 软删除时间

	Items []OrderItem `gorm:"foreignKey:OrderID" json:"items,omitempty"` // 订单项
}

// TableName 指定表名
func (Order) TableName() string {
	return "orders"
}
