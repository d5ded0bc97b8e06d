package repository

import (
	"time"

	"github.com/shopspring/decimal"
)

// ProductListFilter 查询商品列表的过滤条件
type ProductListFilter struct {
	Page       int
	PageSize   int
	CategoryID uint
	Search     string
	OnlyActive bool
}

// OrderListFilter 查询订单列表的过滤条件
type OrderListFilter struct {
	Page        int
	PageSize    int
	UserID      uint
	Status      string
	OrderNo     string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

// UserListFilter 查询用户列表的过滤条件
type UserListFilter struct {
	Page        int
	PageSize    int
	Keyword     string
	Status      string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

// AffiliateProfileListFilter 查询推广档案列表的过滤条件
type AffiliateProfileListFilter struct {
	Page     int
	PageSize int
	UserID   uint
	Code     string
	Status   string
	Keyword  string
}

// AttributionListFilter 查询归因记录列表的过滤条件
type AttributionListFilter struct {
	Page               int
	PageSize           int
	AffiliateProfileID uint
	VisitorKey         string
	UserID             uint
	OnlyActive         bool
	CreatedFrom        *time.Time
	CreatedTo          *time.Time
}

// AttributionCommissionListFilter 查询归因佣金列表的过滤条件
type AttributionCommissionListFilter struct {
	Page               int
	PageSize           int
	AffiliateProfileID uint
	AttributionID      uint
	OrderID            uint
	OrderNo            string
	Status             string
	SyncedToLegacy     *bool
	Keyword            string
	CreatedFrom        *time.Time
	CreatedTo          *time.Time
}

// ReferralCommissionListFilter 查询结算佣金列表的过滤条件
type ReferralCommissionListFilter struct {
	Page               int
	PageSize           int
	AffiliateProfileID uint
	UserID             uint
	OrderID            uint
	Source             string
	Status             string
	CreatedFrom        *time.Time
	CreatedTo          *time.Time
}

// PayoutListFilter 查询提现申请列表的过滤条件
type PayoutListFilter struct {
	Page               int
	PageSize           int
	AffiliateProfileID uint
	PayoutNo           string
	Status             string
	Keyword            string
	CreatedFrom        *time.Time
	CreatedTo          *time.Time
}

// AffiliateProfileStatsAggregate 推广档案统计聚合结果
type AffiliateProfileStatsAggregate struct {
	AttributionCount  int64
	ValidOrderCount   int64
	PendingCommission decimal.Decimal
	SyncedCommission  decimal.Decimal
	PaidOutCommission decimal.Decimal
}
