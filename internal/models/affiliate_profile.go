package models

import (
	"time"

	"gorm.io/gorm"
)

// AffiliateProfile 推广返利用户档案
type AffiliateProfile struct {
	ID                    uint           `gorm:"primarykey" json:"id"`                                        // 主键
	UserID                uint           `gorm:"not null;uniqueIndex" json:"user_id"`                         // 用户ID
	AffiliateCode         string         `gorm:"type:varchar(32);not null;uniqueIndex" json:"code"`           // 推广短码
	Status                string         `gorm:"type:varchar(20);not null;index" json:"status"`               // 状态
	CommissionRatePercent *Money         `gorm:"type:decimal(10,2)" json:"commission_rate_percent,omitempty"` // 佣金比例覆盖值（空则用全局默认）
	Balance               Money          `gorm:"type:decimal(20,2);not null;default:0" json:"balance"`        // 可提现余额
	TotalEarned           Money          `gorm:"type:decimal(20,2);not null;default:0" json:"total_earned"`   // 累计入账佣金
	TotalPaidOut          Money          `gorm:"type:decimal(20,2);not null;default:0" json:"total_paid_out"` // 累计已提现金额
	CreatedAt             time.Time      `gorm:"index" json:"created_at"`                                     // 创建时间
	UpdatedAt             time.Time      `gorm:"index" json:"updated_at"`                                     // 更新时间
	DeletedAt             gorm.DeletedAt `gorm:"index" json:"-"`                                              // 软删除时间

	User User `gorm:"foreignKey:UserID" json:"user,omitempty"` // 用户信息
}

// TableName 指定表名
func (AffiliateProfile) TableName() string {
	return "affiliate_profiles"
}
