package models

import (
	"time"

	"gorm.io/gorm"
)

// ReferralCommission 结算佣金账本（提现以此账本为准）
type ReferralCommission struct {
	ID                 uint           `gorm:"primarykey" json:"id"`                                      // 主键
	AffiliateProfileID uint           `gorm:"not null;index" json:"affiliate_profile_id"`                // 推广用户ID
	UserID             uint           `gorm:"not null;index" json:"user_id"`                             // 被推荐用户ID
	UserEmail          string         `gorm:"type:varchar(254)" json:"user_email"`                       // 被推荐用户邮箱快照
	ReferralCode       string         `gorm:"type:varchar(32);index" json:"referral_code"`               // 推广码快照
	OrderID            *uint          `gorm:"uniqueIndex" json:"order_id,omitempty"`                     // 订单ID（唯一；注册奖励为空）
	Source             string         `gorm:"type:varchar(32);not null;index" json:"source"`             // 来源（signup_referral/attribution_sync）
	BaseAmount         Money          `gorm:"type:decimal(20,2);not null;default:0" json:"base_amount"`  // 佣金基数
	RatePercent        Money          `gorm:"type:decimal(10,2);not null;default:0" json:"rate_percent"` // 佣金比例（百分比）
	Amount             Money          `gorm:"type:decimal(20,2);not null;default:0" json:"amount"`       // 佣金金额
	Status             string         `gorm:"type:varchar(32);not null;index" json:"status"`             // 佣金状态
	PayoutID           *uint          `gorm:"index" json:"payout_id,omitempty"`                          // 关联提现申请
	PaidAt             *time.Time     `gorm:"index" json:"paid_at,omitempty"`                            // 打款时间
	CreatedAt          time.Time      `gorm:"index" json:"created_at"`                                   // 创建时间
	UpdatedAt          time.Time      `gorm:"index" json:"updated_at"`                                   // 更新时间
	DeletedAt          gorm.DeletedAt `gorm:"index" json:"-"`                                            // 软删除时间

	AffiliateProfile AffiliateProfile `gorm:"foreignKey:AffiliateProfileID" json:"affiliate_profile,omitempty"` // 推广用户
	Payout           *PayoutRequest   `gorm:"foreignKey:PayoutID" json:"payout,omitempty"`                      // 提现申请
}

// TableName 指定表名
func (ReferralCommission) TableName() string {
	return "referral_commissions"
}
