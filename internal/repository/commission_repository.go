package repository

import (
	"errors"
	"strings"

	"github.com/grocer-next/internal/constants"
	"github.com/grocer-next/internal/models"
	"github.com/shopspring/decimal"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CommissionRepository 双账本佣金数据访问接口
// 归因账本记录订单转化产生的佣金，结算账本是提现依据，两者通过同步操作衔接。
type CommissionRepository interface {
	Transaction(fn func(tx *gorm.DB) error) error
	WithTx(tx *gorm.DB) CommissionRepository

	CreateAttributionCommission(commission *models.AttributionCommission) error
	UpdateAttributionCommission(commission *models.AttributionCommission) error
	GetAttributionCommissionByID(id uint) (*models.AttributionCommission, error)
	GetAttributionCommissionByIDForUpdate(id uint) (*models.AttributionCommission, error)
	GetAttributionCommissionByOrderID(orderID uint) (*models.AttributionCommission, error)
	ListAttributionCommissions(filter AttributionCommissionListFilter) ([]models.AttributionCommission, int64, error)
	ListApprovedUnsyncedIDs(limit int) ([]uint, error)
	SumAttributionCommissionByProfile(profileID uint, statuses []string) (decimal.Decimal, error)
	SyncStatusCounts() (SyncStatusCounts, error)

	CreateReferralCommission(commission *models.ReferralCommission) error
	UpdateReferralCommission(commission *models.ReferralCommission) error
	GetReferralCommissionByOrderID(orderID uint) (*models.ReferralCommission, error)
	ListReferralCommissions(filter ReferralCommissionListFilter) ([]models.ReferralCommission, int64, error)
	ListSyncedUnpaidForUpdate(profileID uint) ([]models.ReferralCommission, error)
	BatchUpdateReferralCommissions(ids []uint, updates map[string]interface{}) error
	SumReferralCommissionByProfile(profileID uint, statuses []string) (decimal.Decimal, error)

	GetProfileStatsBatch(profileIDs []uint) (map[uint]AffiliateProfileStatsAggregate, error)
}

// GormCommissionRepository GORM 佣金仓储
type GormCommissionRepository struct {
	db *gorm.DB
}

// NewCommissionRepository 创建佣金仓储
func NewCommissionRepository(db *gorm.DB) *GormCommissionRepository {
	return &GormCommissionRepository{db: db}
}

// WithTx 绑定事务
func (r *GormCommissionRepository) WithTx(tx *gorm.DB) CommissionRepository {
	if tx == nil {
		return r
	}
	return &GormCommissionRepository{db: tx}
}

// Transaction 执行事务
func (r *GormCommissionRepository) Transaction(fn func(tx *gorm.DB) error) error {
	if fn == nil {
		return nil
	}
	return r.db.Transaction(fn)
}

// CreateAttributionCommission 创建归因佣金记录
func (r *GormCommissionRepository) CreateAttributionCommission(commission *models.AttributionCommission) error {
	return r.db.Create(commission).Error
}

// UpdateAttributionCommission 更新归因佣金记录
func (r *GormCommissionRepository) UpdateAttributionCommission(commission *models.AttributionCommission) error {
	return r.db.Save(commission).Error
}

// GetAttributionCommissionByID 按ID获取归因佣金
func (r *GormCommissionRepository) GetAttributionCommissionByID(id uint) (*models.AttributionCommission, error) {
	if id == 0 {
		return nil, nil
	}
	var commission models.AttributionCommission
	if err := r.db.Preload("AffiliateProfile").Preload("Order").First(&commission, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &commission, nil
}

// GetAttributionCommissionByIDForUpdate 按ID锁定获取归因佣金
func (r *GormCommissionRepository) GetAttributionCommissionByIDForUpdate(id uint) (*models.AttributionCommission, error) {
	if id == 0 {
		return nil, nil
	}
	var commission models.AttributionCommission
	if err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).First(&commission, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &commission, nil
}

// GetAttributionCommissionByOrderID 按订单获取归因佣金（幂等校验入口）
func (r *GormCommissionRepository) GetAttributionCommissionByOrderID(orderID uint) (*models.AttributionCommission, error) {
	if orderID == 0 {
		return nil, nil
	}
	var commission models.AttributionCommission
	if err := r.db.Where("order_id = ?", orderID).First(&commission).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &commission, nil
}

// ListAttributionCommissions 查询归因佣金列表
func (r *GormCommissionRepository) ListAttributionCommissions(filter AttributionCommissionListFilter) ([]models.AttributionCommission, int64, error) {
	query := r.db.Model(&models.AttributionCommission{}).
		Preload("AffiliateProfile").
		Preload("AffiliateProfile.User").
		Preload("Order")
	if filter.AffiliateProfileID != 0 {
		query = query.Where("attribution_commissions.affiliate_profile_id = ?", filter.AffiliateProfileID)
	}
	if filter.AttributionID != 0 {
		query = query.Where("attribution_commissions.attribution_id = ?", filter.AttributionID)
	}
	if filter.OrderID != 0 {
		query = query.Where("attribution_commissions.order_id = ?", filter.OrderID)
	}
	if orderNo := strings.TrimSpace(filter.OrderNo); orderNo != "" {
		query = query.Joins("LEFT JOIN orders ON orders.id = attribution_commissions.order_id").
			Where("orders.order_no LIKE ?", "%"+orderNo+"%")
	}
	if status := strings.TrimSpace(filter.Status); status != "" {
		query = query.Where("attribution_commissions.status = ?", status)
	}
	if filter.SyncedToLegacy != nil {
		query = query.Where("attribution_commissions.synced_to_legacy = ?", *filter.SyncedToLegacy)
	}
	if keyword := strings.TrimSpace(filter.Keyword); keyword != "" {
		like := "%" + keyword + "%"
		query = query.
			Joins("LEFT JOIN affiliate_profiles ap ON ap.id = attribution_commissions.affiliate_profile_id").
			Joins("LEFT JOIN users u ON u.id = ap.user_id").
			Where("(u.email LIKE ? OR u.display_name LIKE ? OR ap.affiliate_code LIKE ?)", like, like, like)
	}
	if filter.CreatedFrom != nil {
		query = query.Where("attribution_commissions.created_at >= ?", *filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		query = query.Where("attribution_commissions.created_at <= ?", *filter.CreatedTo)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	query = applyPagination(query, filter.Page, filter.PageSize)

	var rows []models.AttributionCommission
	if err := query.Order("attribution_commissions.id desc").Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// ListApprovedUnsyncedIDs 查询已审批未同步的归因佣金ID（补偿同步入口）
func (r *GormCommissionRepository) ListApprovedUnsyncedIDs(limit int) ([]uint, error) {
	query := r.db.Model(&models.AttributionCommission{}).
		Where("status = ? AND synced_to_legacy = ?", constants.AttributionCommissionStatusApproved, false).
		Order("id ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	ids := make([]uint, 0)
	if err := query.Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// SumAttributionCommissionByProfile 汇总指定状态归因佣金金额
func (r *GormCommissionRepository) SumAttributionCommissionByProfile(profileID uint, statuses []string) (decimal.Decimal, error) {
	if profileID == 0 || len(statuses) == 0 {
		return decimal.Zero, nil
	}
	var row struct {
		Total decimal.Decimal `gorm:"column:total"`
	}
	if err := r.db.Model(&models.AttributionCommission{}).
		Where("affiliate_profile_id = ? AND status IN ?", profileID, statuses).
		Select("COALESCE(SUM(commission_amount), 0) AS total").
		Scan(&row).Error; err != nil {
		return decimal.Zero, err
	}
	return row.Total.Round(2), nil
}

// SyncStatusCounts 归因账本同步进度统计
type SyncStatusCounts struct {
	Total    int64
	Approved int64
	Synced   int64
	Unsynced int64
}

// SyncStatusCounts 实时统计归因佣金同步进度（不做缓存）
func (r *GormCommissionRepository) SyncStatusCounts() (SyncStatusCounts, error) {
	var counts SyncStatusCounts
	if err := r.db.Model(&models.AttributionCommission{}).Count(&counts.Total).Error; err != nil {
		return SyncStatusCounts{}, err
	}
	if err := r.db.Model(&models.AttributionCommission{}).
		Where("status = ?", constants.AttributionCommissionStatusApproved).
		Count(&counts.Approved).Error; err != nil {
		return SyncStatusCounts{}, err
	}
	if err := r.db.Model(&models.AttributionCommission{}).
		Where("status = ? AND synced_to_legacy = ?", constants.AttributionCommissionStatusApproved, true).
		Count(&counts.Synced).Error; err != nil {
		return SyncStatusCounts{}, err
	}
	counts.Unsynced = counts.Approved - counts.Synced
	return counts, nil
}

// CreateReferralCommission 创建结算佣金记录
func (r *GormCommissionRepository) CreateReferralCommission(commission *models.ReferralCommission) error {
	return r.db.Create(commission).Error
}

// UpdateReferralCommission 更新结算佣金记录
func (r *GormCommissionRepository) UpdateReferralCommission(commission *models.ReferralCommission) error {
	return r.db.Save(commission).Error
}

// GetReferralCommissionByOrderID 按订单获取结算佣金
func (r *GormCommissionRepository) GetReferralCommissionByOrderID(orderID uint) (*models.ReferralCommission, error) {
	if orderID == 0 {
		return nil, nil
	}
	var commission models.ReferralCommission
	if err := r.db.Where("order_id = ?", orderID).First(&commission).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &commission, nil
}

// ListReferralCommissions 查询结算佣金列表
func (r *GormCommissionRepository) ListReferralCommissions(filter ReferralCommissionListFilter) ([]models.ReferralCommission, int64, error) {
	query := r.db.Model(&models.ReferralCommission{}).
		Preload("AffiliateProfile").
		Preload("AffiliateProfile.User")
	if filter.AffiliateProfileID != 0 {
		query = query.Where("affiliate_profile_id = ?", filter.AffiliateProfileID)
	}
	if filter.UserID != 0 {
		query = query.Where("user_id = ?", filter.UserID)
	}
	if filter.OrderID != 0 {
		query = query.Where("order_id = ?", filter.OrderID)
	}
	if source := strings.TrimSpace(filter.Source); source != "" {
		query = query.Where("source = ?", source)
	}
	if status := strings.TrimSpace(filter.Status); status != "" {
		query = query.Where("status = ?", status)
	}
	if filter.CreatedFrom != nil {
		query = query.Where("created_at >= ?", *filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		query = query.Where("created_at <= ?", *filter.CreatedTo)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	query = applyPagination(query, filter.Page, filter.PageSize)

	var rows []models.ReferralCommission
	if err := query.Order("id desc").Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// ListSyncedUnpaidForUpdate 查询并锁定已入账未打款的结算佣金
func (r *GormCommissionRepository) ListSyncedUnpaidForUpdate(profileID uint) ([]models.ReferralCommission, error) {
	if profileID == 0 {
		return []models.ReferralCommission{}, nil
	}
	var rows []models.ReferralCommission
	if err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("affiliate_profile_id = ? AND status = ? AND payout_id IS NULL",
			profileID, constants.ReferralCommissionStatusApproved).
		Order("id asc").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// BatchUpdateReferralCommissions 批量更新结算佣金记录
func (r *GormCommissionRepository) BatchUpdateReferralCommissions(ids []uint, updates map[string]interface{}) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.Model(&models.ReferralCommission{}).Where("id IN ?", ids).Updates(updates).Error
}

// SumReferralCommissionByProfile 汇总指定状态结算佣金金额
func (r *GormCommissionRepository) SumReferralCommissionByProfile(profileID uint, statuses []string) (decimal.Decimal, error) {
	if profileID == 0 || len(statuses) == 0 {
		return decimal.Zero, nil
	}
	var row struct {
		Total decimal.Decimal `gorm:"column:total"`
	}
	if err := r.db.Model(&models.ReferralCommission{}).
		Where("affiliate_profile_id = ? AND status IN ?", profileID, statuses).
		Select("COALESCE(SUM(amount), 0) AS total").
		Scan(&row).Error; err != nil {
		return decimal.Zero, err
	}
	return row.Total.Round(2), nil
}

// GetProfileStatsBatch 批量汇总推广用户统计信息
func (r *GormCommissionRepository) GetProfileStatsBatch(profileIDs []uint) (map[uint]AffiliateProfileStatsAggregate, error) {
	result := make(map[uint]AffiliateProfileStatsAggregate, len(profileIDs))
	if len(profileIDs) == 0 {
		return result, nil
	}

	for _, id := range profileIDs {
		if id == 0 {
			continue
		}
		result[id] = AffiliateProfileStatsAggregate{
			PendingCommission: decimal.Zero,
			SyncedCommission:  decimal.Zero,
			PaidOutCommission: decimal.Zero,
		}
	}

	var attributionRows []struct {
		AffiliateProfileID uint  `gorm:"column:affiliate_profile_id"`
		Total              int64 `gorm:"column:total"`
	}
	if err := r.db.Model(&models.Attribution{}).
		Select("affiliate_profile_id, COUNT(*) AS total").
		Where("affiliate_profile_id IN ?", profileIDs).
		Group("affiliate_profile_id").
		Scan(&attributionRows).Error; err != nil {
		return nil, err
	}
	for _, row := range attributionRows {
		item := result[row.AffiliateProfileID]
		item.AttributionCount = row.Total
		result[row.AffiliateProfileID] = item
	}

	var validRows []struct {
		AffiliateProfileID uint  `gorm:"column:affiliate_profile_id"`
		Total              int64 `gorm:"column:total"`
	}
	if err := r.db.Model(&models.AttributionCommission{}).
		Select("affiliate_profile_id, COUNT(DISTINCT order_id) AS total").
		Where("affiliate_profile_id IN ? AND status <> ?", profileIDs, constants.AttributionCommissionStatusRejected).
		Group("affiliate_profile_id").
		Scan(&validRows).Error; err != nil {
		return nil, err
	}
	for _, row := range validRows {
		item := result[row.AffiliateProfileID]
		item.ValidOrderCount = row.Total
		result[row.AffiliateProfileID] = item
	}

	var pendingRows []struct {
		AffiliateProfileID uint            `gorm:"column:affiliate_profile_id"`
		Total              decimal.Decimal `gorm:"column:total"`
	}
	if err := r.db.Model(&models.AttributionCommission{}).
		Select("affiliate_profile_id, COALESCE(SUM(commission_amount), 0) AS total").
		Where("affiliate_profile_id IN ? AND status = ?", profileIDs, constants.AttributionCommissionStatusPending).
		Group("affiliate_profile_id").
		Scan(&pendingRows).Error; err != nil {
		return nil, err
	}
	for _, row := range pendingRows {
		item := result[row.AffiliateProfileID]
		item.PendingCommission = row.Total.Round(2)
		result[row.AffiliateProfileID] = item
	}

	var syncedRows []struct {
		AffiliateProfileID uint            `gorm:"column:affiliate_profile_id"`
		Total              decimal.Decimal `gorm:"column:total"`
	}
	if err := r.db.Model(&models.ReferralCommission{}).
		Select("affiliate_profile_id, COALESCE(SUM(amount), 0) AS total").
		Where("affiliate_profile_id IN ? AND status = ?", profileIDs, constants.ReferralCommissionStatusApproved).
		Group("affiliate_profile_id").
		Scan(&syncedRows).Error; err != nil {
		return nil, err
	}
	for _, row := range syncedRows {
		item := result[row.AffiliateProfileID]
		item.SyncedCommission = row.Total.Round(2)
		result[row.AffiliateProfileID] = item
	}

	var paidRows []struct {
		AffiliateProfileID uint            `gorm:"column:affiliate_profile_id"`
		Total              decimal.Decimal `gorm:"column:total"`
	}
	if err := r.db.Model(&models.ReferralCommission{}).
		Select("affiliate_profile_id, COALESCE(SUM(amount), 0) AS total").
		Where("affiliate_profile_id IN ? AND status = ?", profileIDs, constants.ReferralCommissionStatusPaid).
		Group("affiliate_profile_id").
		Scan(&paidRows).Error; err != nil {
		return nil, err
	}
	for _, row := range paidRows {
		item := result[row.AffiliateProfileID]
		item.PaidOutCommission = row.Total.Round(2)
		result[row.AffiliateProfileID] = item
	}

	return result, nil
}
