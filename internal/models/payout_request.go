package models

import (
	"time"

	"gorm.io/gorm"
)

// PayoutRequest 提现申请表
type PayoutRequest struct {
	ID                 uint           `gorm:"primarykey" json:"id"`                                          // 主键
	PayoutNo           string         `gorm:"uniqueIndex;not null" json:"payout_no"`                         // 提现单号
	AffiliateProfileID uint           `gorm:"not null;index" json:"affiliate_profile_id"`                    // 推广用户ID
	Amount             Money          `gorm:"type:decimal(20,2);not null;default:0" json:"amount"`           // 申请金额（从余额扣减）
	FeeAmount          Money          `gorm:"type:decimal(20,2);not null;default:0" json:"fee_amount"`       // 手续费
	TaxRatePercent     Money          `gorm:"type:decimal(10,2);not null;default:0" json:"tax_rate_percent"` // 税率（百分比）
	TaxAmount          Money          `gorm:"type:decimal(20,2);not null;default:0" json:"tax_amount"`       // 代扣税费
	NetAmount          Money          `gorm:"type:decimal(20,2);not null;default:0" json:"net_amount"`       // 实际到账金额
	Currency           string         `gorm:"type:varchar(10);not null" json:"currency"`                     // 币种
	Method             string         `gorm:"type:varchar(20);not null" json:"method"`                       // 提现方式（bank/paypal）
	Country            string         `gorm:"type:varchar(2);not null" json:"country"`                       // 收款国家（ISO 3166-1 alpha-2）
	AccountSnapshot    JSON           `gorm:"type:json;not null" json:"account_snapshot"`                    // 收款账户快照
	Status             string         `gorm:"type:varchar(20);not null;index" json:"status"`                 // 状态
	AdminNote          string         `gorm:"type:varchar(255)" json:"admin_note,omitempty"`                 // 审核备注
	ReviewedBy         *uint          `gorm:"index" json:"reviewed_by,omitempty"`                            // 审核管理员ID
	ReviewedAt         *time.Time     `gorm:"index" json:"reviewed_at,omitempty"`                            // 审核时间
	PaidAt             *time.Time     `gorm:"index" json:"paid_at,omitempty"`                                // 打款时间
	CreatedAt          time.Time      `gorm:"index" json:"created_at"`                                       // 创建时间
	UpdatedAt          time.Time      `gorm:"index" json:"updated_at"`                                       // 更新时间
	DeletedAt          gorm.DeletedAt `gorm:"index" json:"-"`                                                // 软删除时间

	AffiliateProfile AffiliateProfile `gorm:"foreignKey:AffiliateProfileID" json:"affiliate_profile,omitempty"` // 推广用户
}

// TableName 指定表名
func (PayoutRequest) TableName() string {
	return "payout_requests"
}
