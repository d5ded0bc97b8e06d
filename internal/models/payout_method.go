package models

import (
	"time"

	"gorm.io/gorm"
)

// PayoutMethod 收款方式表（提现时记住的收款账户）
type PayoutMethod struct {
	ID                 uint           `gorm:"primarykey" json:"id"`                           // 主键
	AffiliateProfileID uint           `gorm:"not null;index" json:"affiliate_profile_id"`     // 推广用户ID
	Method             string         `gorm:"type:varchar(20);not null" json:"method"`        // 提现方式（bank/paypal）
	Country            string         `gorm:"type:varchar(2);not null" json:"country"`        // 收款国家
	AccountName        string         `gorm:"type:varchar(128)" json:"account_name"`          // 收款人姓名
	AccountNo          string         `gorm:"type:varchar(128)" json:"account_no"`            // 账号（银行卡号或 PayPal 邮箱）
	BankName           string         `gorm:"type:varchar(128)" json:"bank_name,omitempty"`   // 银行名称
	BankBranch         string         `gorm:"type:varchar(128)" json:"bank_branch,omitempty"` // 开户支行
	IsDefault          bool           `gorm:"not null;default:false" json:"is_default"`       // 是否默认
	CreatedAt          time.Time      `gorm:"index" json:"created_at"`                        // 创建时间
	UpdatedAt          time.Time      `gorm:"index" json:"updated_at"`                        // 更新时间
	DeletedAt          gorm.DeletedAt `gorm:"index" json:"-"`                                 // 软删除时间
}

// TableName 指定表名
func (PayoutMethod) TableName() string {
	return "payout_methods"
}

// Snapshot 生成提现单据用的账户快照
func (p PayoutMethod) Snapshot() JSON {
	return JSON{
		"method":       p.Method,
		"country":      p.Country,
		"account_name": p.AccountName,
		"account_no":   p.AccountNo,
		"bank_name":    p.BankName,
		"bank_branch":  p.BankBranch,
	}
}
