package models

import (
	"time"

	"gorm.io/gorm"
)

// AttributionCommission 归因佣金账本（每个订单至多一条）
type AttributionCommission struct {
	ID                 uint           `gorm:"primarykey" json:"id"`                                           // 主键
	AttributionID      uint           `gorm:"not null;index" json:"attribution_id"`                           // 归因记录ID
	AffiliateProfileID uint           `gorm:"not null;index" json:"affiliate_profile_id"`                     // 推广用户ID
	OrderID            uint           `gorm:"not null;uniqueIndex" json:"order_id"`                           // 订单ID（唯一，保证每单只记一次）
	UserID             uint           `gorm:"not null;index" json:"user_id"`                                  // 下单用户ID
	UserEmail          string         `gorm:"type:varchar(254)" json:"user_email"`                            // 下单用户邮箱快照
	ReferralCode       string         `gorm:"type:varchar(32);index" json:"referral_code"`                    // 推广码快照
	OrderTotal         Money          `gorm:"type:decimal(20,2);not null;default:0" json:"order_total"`       // 订单实付金额
	BaseAmount         Money          `gorm:"type:decimal(20,2);not null;default:0" json:"base_amount"`       // 佣金基数（商品小计）
	RatePercent        Money          `gorm:"type:decimal(10,2);not null;default:0" json:"rate_percent"`      // 佣金比例（百分比）
	CommissionAmount   Money          `gorm:"type:decimal(20,2);not null;default:0" json:"commission_amount"` // 佣金金额
	Status             string         `gorm:"type:varchar(32);not null;index" json:"status"`                  // 佣金状态
	SyncedToLegacy     bool           `gorm:"not null;default:false;index" json:"synced_to_legacy"`           // 是否已同步到结算账本
	ReviewedBy         *uint          `gorm:"index" json:"reviewed_by,omitempty"`                             // 审核管理员ID（通过或驳回）
	ReviewedAt         *time.Time     `gorm:"index" json:"reviewed_at,omitempty"`                             // 审核时间
	SyncedAt           *time.Time     `gorm:"index" json:"synced_at,omitempty"`                               // 同步完成时间
	RejectReason       string         `gorm:"type:varchar(255)" json:"reject_reason,omitempty"`               // 驳回原因
	CreatedAt          time.Time      `gorm:"index" json:"created_at"`                                        // 创建时间
	UpdatedAt          time.Time      `gorm:"index" json:"updated_at"`                                        // 更新时间
	DeletedAt          gorm.DeletedAt `gorm:"index" json:"-"`                                                 // 软删除时间

	Attribution      Attribution      `gorm:"foreignKey:AttributionID" json:"attribution,omitempty"`            // 归因记录
	AffiliateProfile AffiliateProfile `gorm:"foreignKey:AffiliateProfileID" json:"affiliate_profile,omitempty"` // 推广用户
	Order            Order            `gorm:"foreignKey:OrderID" json:"order,omitempty"`                        // 关联订单
}

// TableName 指定表名
func (AttributionCommission) TableName() string {
	return "attribution_commissions"
}
