package models

import (
	"time"

	"gorm.io/gorm"
)

// Attribution 点击归因记录（最后点击生效，有效期由读取方判定）。
// 同一访客在同一推广用户下至多一条生效归因，由部分唯一索引兜底并发首次点击。
type Attribution struct {
	ID                 uint           `gorm:"primarykey" json:"id"`                                                                                     // 主键
	AffiliateProfileID uint           `gorm:"not null;index;uniqueIndex:uniq_attributions_active" json:"affiliate_profile_id"`                          // 推广用户ID
	VisitorKey         string         `gorm:"type:varchar(128);not null;index;uniqueIndex:uniq_attributions_active,where:is_active" json:"visitor_key"` // 访客标识
	SessionKey         string         `gorm:"type:varchar(128);index" json:"session_key"`                                                               // 会话标识
	UserID             *uint          `gorm:"index" json:"user_id,omitempty"`                                                                           // 绑定用户ID（登录后回填）
	UserEmail          string         `gorm:"type:varchar(254)" json:"user_email,omitempty"`                                                            // 绑定用户邮箱快照
	LandingPath        string         `gorm:"type:varchar(512)" json:"landing_path"`                                                                    // 落地页面路径
	Referrer           string         `gorm:"type:varchar(1024)" json:"referrer"`                                                                       // 来源地址
	ClientIP           string         `gorm:"type:varchar(64)" json:"client_ip"`                                                                        // 客户端IP
	UserAgent          string         `gorm:"type:varchar(1024)" json:"user_agent"`                                                                     // 客户端UA
	FirstClickAt       time.Time      `gorm:"not null" json:"first_click_at"`                                                                           // 首次点击时间
	LastClickAt        time.Time      `gorm:"index;not null" json:"last_click_at"`                                                                      // 最后点击时间（最后点击生效）
	WindowExpiresAt    time.Time      `gorm:"index;not null" json:"window_expires_at"`                                                                  // 归因窗口到期时间
	IsActive           bool           `gorm:"not null;default:true;index" json:"is_active"`                                                             // 是否为该访客当前生效归因
	BoundAt            *time.Time     `json:"bound_at,omitempty"`                                                                                       // 绑定用户时间
	TotalOrders        int            `gorm:"not null;default:0" json:"total_orders"`                                                                   // 归因产生的订单数
	TotalGMV           Money          `gorm:"type:decimal(20,2);not null;default:0" json:"total_gmv"`                                                   // 归因产生的成交额
	TotalCommission    Money          `gorm:"type:decimal(20,2);not null;default:0" json:"total_commission"`                                            // 归因产生的佣金总额
	CreatedAt          time.Time      `gorm:"index;not null" json:"created_at"`                                                                         // 创建时间
	UpdatedAt          time.Time      `gorm:"index" json:"updated_at"`                                                                                  // 更新时间
	DeletedAt          gorm.DeletedAt `gorm:"index" json:"-"`                                                                                           // 软删除时间

	AffiliateProfile AffiliateProfile `gorm:"foreignKey:AffiliateProfileID" json:"affiliate_profile,omitempty"` // 推广用户
}

// TableName 指定表名
func (Attribution) TableName() string {
	return "attributions"
}

// Expired 判断归因窗口是否已过期
func (a Attribution) Expired(now time.Time) bool {
	return !now.Before(a.WindowExpiresAt)
}
