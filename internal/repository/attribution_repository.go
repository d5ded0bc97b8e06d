package repository

import (
	"errors"
	"strings"
	"time"

	"github.com/grocer-next/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AttributionRepository 点击归因数据访问接口
type AttributionRepository interface {
	Transaction(fn func(tx *gorm.DB) error) error
	WithTx(tx *gorm.DB) AttributionRepository

	Create(attribution *models.Attribution) error
	Update(attribution *models.Attribution) error
	GetByID(id uint) (*models.Attribution, error)
	GetByIDForUpdate(id uint) (*models.Attribution, error)

	// GetActiveByVisitorAndProfileForUpdate 锁定访客在某推广码下的生效归因
	GetActiveByVisitorAndProfileForUpdate(visitorKey string, profileID uint) (*models.Attribution, error)
	// Deactivate 将归因行置为失效
	Deactivate(id uint, now time.Time) error
	// RefreshWindow 最后点击生效：刷新点击时间与窗口到期时间
	RefreshWindow(id uint, lastClickAt, windowExpiresAt time.Time) error
	// GetLatestActiveByVisitorKey 取访客最后点击的生效归因（跨推广码）
	GetLatestActiveByVisitorKey(visitorKey string) (*models.Attribution, error)
	// GetLatestUnboundByContext 取浏览上下文中最近且未绑定用户的归因
	GetLatestUnboundByContext(sessionKey, visitorKey string) (*models.Attribution, error)
	GetLatestActiveByUserID(userID uint) (*models.Attribution, error)
	// BindUser 将归因绑定到登录用户
	BindUser(id uint, userID uint, userEmail string, boundAt time.Time) error

	// AddConversion 累加归因转化统计（订单数、成交额、佣金额）
	AddConversion(id uint, gmv, commission models.Money, now time.Time) error

	List(filter AttributionListFilter) ([]models.Attribution, int64, error)
	CountByProfile(profileID uint) (int64, error)
}

// GormAttributionRepository GORM 归因仓储
type GormAttributionRepository struct {
	db *gorm.DB
}

// NewAttributionRepository 创建归因仓储
func NewAttributionRepository(db *gorm.DB) *GormAttributionRepository {
	return &GormAttributionRepository{db: db}
}

// WithTx 绑定事务
func (r *GormAttributionRepository) WithTx(tx *gorm.DB) AttributionRepository {
	if tx == nil {
		return r
	}
	return &GormAttributionRepository{db: tx}
}

// Transaction 执行事务
func (r *GormAttributionRepository) Transaction(fn func(tx *gorm.DB) error) error {
	if fn == nil {
		return nil
	}
	return r.db.Transaction(fn)
}

// Create 创建归因记录
func (r *GormAttributionRepository) Create(attribution *models.Attribution) error {
	return r.db.Create(attribution).Error
}

// Update 更新归因记录
func (r *GormAttributionRepository) Update(attribution *models.Attribution) error {
	return r.db.Save(attribution).Error
}

// GetByID 按ID获取归因记录
func (r *GormAttributionRepository) GetByID(id uint) (*models.Attribution, error) {
	if id == 0 {
		return nil, nil
	}
	var attribution models.Attribution
	if err := r.db.Preload("AffiliateProfile").First(&attribution, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &attribution, nil
}

// GetByIDForUpdate 按ID锁定获取归因记录
func (r *GormAttributionRepository) GetByIDForUpdate(id uint) (*models.Attribution, error) {
	if id == 0 {
		return nil, nil
	}
	var attribution models.Attribution
	if err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).First(&attribution, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &attribution, nil
}

// GetActiveByVisitorAndProfileForUpdate 锁定访客在某推广码下的生效归因
func (r *GormAttributionRepository) GetActiveByVisitorAndProfileForUpdate(visitorKey string, profileID uint) (*models.Attribution, error) {
	key := strings.TrimSpace(visitorKey)
	if key == "" || profileID == 0 {
		return nil, nil
	}
	var attribution models.Attribution
	err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("visitor_key = ? AND affiliate_profile_id = ? AND is_active = ?", key, profileID, true).
		Order("last_click_at DESC, id DESC").
		Limit(1).
		First(&attribution).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &attribution, nil
}

// Deactivate 将归因行置为失效
func (r *GormAttributionRepository) Deactivate(id uint, now time.Time) error {
	if id == 0 {
		return nil
	}
	return r.db.Model(&models.Attribution{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"is_active":  false,
			"updated_at": now,
		}).Error
}

// RefreshWindow 最后点击生效：刷新点击时间与窗口到期时间
func (r *GormAttributionRepository) RefreshWindow(id uint, lastClickAt, windowExpiresAt time.Time) error {
	if id == 0 {
		return nil
	}
	return r.db.Model(&models.Attribution{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"last_click_at":     lastClickAt,
			"window_expires_at": windowExpiresAt,
			"updated_at":        lastClickAt,
		}).Error
}

// GetLatestActiveByVisitorKey 取访客最后点击的生效归因（跨推广码）
func (r *GormAttributionRepository) GetLatestActiveByVisitorKey(visitorKey string) (*models.Attribution, error) {
	key := strings.TrimSpace(visitorKey)
	if key == "" {
		return nil, nil
	}
	var attribution models.Attribution
	err := r.db.Where("visitor_key = ? AND is_active = ?", key, true).
		Order("last_click_at DESC, id DESC").
		Limit(1).
		Preload("AffiliateProfile").
		First(&attribution).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &attribution, nil
}

// GetLatestUnboundByContext 取浏览上下文中最近且未绑定用户的归因
func (r *GormAttributionRepository) GetLatestUnboundByContext(sessionKey, visitorKey string) (*models.Attribution, error) {
	session := strings.TrimSpace(sessionKey)
	visitor := strings.TrimSpace(visitorKey)
	if session == "" && visitor == "" {
		return nil, nil
	}
	query := r.db.Where("user_id IS NULL AND is_active = ?", true)
	if session != "" {
		query = query.Where("session_key = ?", session)
	} else {
		query = query.Where("visitor_key = ?", visitor)
	}
	var attribution models.Attribution
	err := query.Order("last_click_at DESC, id DESC").
		Limit(1).
		First(&attribution).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &attribution, nil
}

// GetLatestActiveByUserID 获取用户当前生效归因
func (r *GormAttributionRepository) GetLatestActiveByUserID(userID uint) (*models.Attribution, error) {
	if userID == 0 {
		return nil, nil
	}
	var attribution models.Attribution
	err := r.db.Where("user_id = ? AND is_active = ?", userID, true).
		Order("last_click_at DESC, id DESC").
		Limit(1).
		Preload("AffiliateProfile").
		First(&attribution).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &attribution, nil
}

// BindUser 将归因绑定到登录用户
func (r *GormAttributionRepository) BindUser(id uint, userID uint, userEmail string, boundAt time.Time) error {
	if id == 0 || userID == 0 {
		return nil
	}
	return r.db.Model(&models.Attribution{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"user_id":    userID,
			"user_email": strings.TrimSpace(userEmail),
			"bound_at":   boundAt,
			"updated_at": boundAt,
		}).Error
}

// AddConversion 累加归因转化统计
func (r *GormAttributionRepository) AddConversion(id uint, gmv, commission models.Money, now time.Time) error {
	if id == 0 {
		return nil
	}
	return r.db.Model(&models.Attribution{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"total_orders":     gorm.Expr("total_orders + 1"),
			"total_gmv":        gorm.Expr("total_gmv + ?", gmv),
			"total_commission": gorm.Expr("total_commission + ?", commission),
			"updated_at":       now,
		}).Error
}

// List 查询归因记录列表
func (r *GormAttributionRepository) List(filter AttributionListFilter) ([]models.Attribution, int64, error) {
	query := r.db.Model(&models.Attribution{}).Preload("AffiliateProfile").Preload("AffiliateProfile.User")
	if filter.AffiliateProfileID != 0 {
		query = query.Where("affiliate_profile_id = ?", filter.AffiliateProfileID)
	}
	if key := strings.TrimSpace(filter.VisitorKey); key != "" {
		query = query.Where("visitor_key = ?", key)
	}
	if filter.UserID != 0 {
		query = query.Where("user_id = ?", filter.UserID)
	}
	if filter.OnlyActive {
		query = query.Where("is_active = ?", true)
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

	var rows []models.Attribution
	if err := query.Order("id desc").Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// CountByProfile 统计推广用户的归因点击数
func (r *GormAttributionRepository) CountByProfile(profileID uint) (int64, error) {
	if profileID == 0 {
		return 0, nil
	}
	var total int64
	if err := r.db.Model(&models.Attribution{}).Where("affiliate_profile_id = ?", profileID).Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}
