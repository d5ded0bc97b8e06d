package repository

import (
	"errors"
	"strings"
	"time"

	"github.com/grocer-next/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AffiliateRepository 推广档案数据访问接口
type AffiliateRepository interface {
	Transaction(fn func(tx *gorm.DB) error) error
	WithTx(tx *gorm.DB) AffiliateRepository

	GetProfileByID(id uint) (*models.AffiliateProfile, error)
	GetProfileByIDForUpdate(id uint) (*models.AffiliateProfile, error)
	GetProfileByUserID(userID uint) (*models.AffiliateProfile, error)
	GetProfileByCode(code string) (*models.AffiliateProfile, error)
	CreateProfile(profile *models.AffiliateProfile) error
	UpdateProfile(profile *models.AffiliateProfile) error
	UpdateProfileStatus(id uint, status string, updatedAt time.Time) error
	BatchUpdateProfileStatus(ids []uint, status string, updatedAt time.Time) (int64, error)
	ListProfiles(filter AffiliateProfileListFilter) ([]models.AffiliateProfile, int64, error)

	// CreditBalance 入账：余额与累计收益同步增加
	CreditBalance(profileID uint, amount models.Money, now time.Time) error
	// DebitBalance 条件扣减余额，余额不足返回 false
	DebitBalance(profileID uint, amount models.Money, now time.Time) (bool, error)
	// RefundBalance 提现驳回时回补余额
	RefundBalance(profileID uint, amount models.Money, now time.Time) error
	// AddPaidOut 打款完成后累加已提现金额
	AddPaidOut(profileID uint, amount models.Money, now time.Time) error

	ListPayoutMethods(profileID uint) ([]models.PayoutMethod, error)
	GetPayoutMethodByID(id uint) (*models.PayoutMethod, error)
	SavePayoutMethod(method *models.PayoutMethod) error
	ClearDefaultPayoutMethod(profileID uint) error
}

// GormAffiliateRepository GORM 推广档案仓储
type GormAffiliateRepository struct {
	db *gorm.DB
}

// NewAffiliateRepository 创建推广档案仓储
func NewAffiliateRepository(db *gorm.DB) *GormAffiliateRepository {
	return &GormAffiliateRepository{db: db}
}

// WithTx 绑定事务
func (r *GormAffiliateRepository) WithTx(tx *gorm.DB) AffiliateRepository {
	if tx == nil {
		return r
	}
	return &GormAffiliateRepository{db: tx}
}

// Transaction 执行事务
func (r *GormAffiliateRepository) Transaction(fn func(tx *gorm.DB) error) error {
	if fn == nil {
		return nil
	}
	return r.db.Transaction(fn)
}

// GetProfileByID 按ID获取推广档案
func (r *GormAffiliateRepository) GetProfileByID(id uint) (*models.AffiliateProfile, error) {
	if id == 0 {
		return nil, nil
	}
	var profile models.AffiliateProfile
	if err := r.db.Preload("User").First(&profile, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &profile, nil
}

// GetProfileByIDForUpdate 按ID锁定获取推广档案
func (r *GormAffiliateRepository) GetProfileByIDForUpdate(id uint) (*models.AffiliateProfile, error) {
	if id == 0 {
		return nil, nil
	}
	var profile models.AffiliateProfile
	if err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).First(&profile, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &profile, nil
}

// GetProfileByUserID 按用户ID获取推广档案
func (r *GormAffiliateRepository) GetProfileByUserID(userID uint) (*models.AffiliateProfile, error) {
	if userID == 0 {
		return nil, nil
	}
	var profile models.AffiliateProfile
	if err := r.db.Preload("User").Where("user_id = ?", userID).First(&profile).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &profile, nil
}

// GetProfileByCode 按推广码获取推广档案
func (r *GormAffiliateRepository) GetProfileByCode(code string) (*models.AffiliateProfile, error) {
	normalized := strings.ToUpper(strings.TrimSpace(code))
	if normalized == "" {
		return nil, nil
	}
	var profile models.AffiliateProfile
	if err := r.db.Preload("User").Where("affiliate_code = ?", normalized).First(&profile).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &profile, nil
}

// CreateProfile 创建推广档案
func (r *GormAffiliateRepository) CreateProfile(profile *models.AffiliateProfile) error {
	return r.db.Create(profile).Error
}

// UpdateProfile 更新推广档案
func (r *GormAffiliateRepository) UpdateProfile(profile *models.AffiliateProfile) error {
	return r.db.Save(profile).Error
}

// UpdateProfileStatus 更新推广档案状态
func (r *GormAffiliateRepository) UpdateProfileStatus(id uint, status string, updatedAt time.Time) error {
	if id == 0 {
		return nil
	}
	return r.db.Model(&models.AffiliateProfile{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     strings.TrimSpace(status),
			"updated_at": updatedAt,
		}).Error
}

// BatchUpdateProfileStatus 批量更新推广档案状态
func (r *GormAffiliateRepository) BatchUpdateProfileStatus(ids []uint, status string, updatedAt time.Time) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	result := r.db.Model(&models.AffiliateProfile{}).
		Where("id IN ?", ids).
		Updates(map[string]interface{}{
			"status":     strings.TrimSpace(status),
			"updated_at": updatedAt,
		})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// ListProfiles 查询推广档案列表
func (r *GormAffiliateRepository) ListProfiles(filter AffiliateProfileListFilter) ([]models.AffiliateProfile, int64, error) {
	query := r.db.Model(&models.AffiliateProfile{}).Preload("User")
	if filter.UserID != 0 {
		query = query.Where("affiliate_profiles.user_id = ?", filter.UserID)
	}
	if code := strings.TrimSpace(filter.Code); code != "" {
		query = query.Where("affiliate_profiles.affiliate_code = ?", strings.ToUpper(code))
	}
	if status := strings.TrimSpace(filter.Status); status != "" {
		query = query.Where("affiliate_profiles.status = ?", status)
	}
	if keyword := strings.TrimSpace(filter.Keyword); keyword != "" {
		like := "%" + keyword + "%"
		query = query.
			Joins("LEFT JOIN users ON users.id = affiliate_profiles.user_id").
			Where("(users.email LIKE ? OR users.display_name LIKE ? OR affiliate_profiles.affiliate_code LIKE ?)", like, like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	query = applyPagination(query, filter.Page, filter.PageSize)

	var rows []models.AffiliateProfile
	if err := query.Order("affiliate_profiles.id desc").Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// CreditBalance 入账：余额与累计收益同步增加
func (r *GormAffiliateRepository) CreditBalance(profileID uint, amount models.Money, now time.Time) error {
	if profileID == 0 || !amount.IsPositive() {
		return nil
	}
	return r.db.Model(&models.AffiliateProfile{}).
		Where("id = ?", profileID).
		Updates(map[string]interface{}{
			"balance":      gorm.Expr("balance + ?", amount),
			"total_earned": gorm.Expr("total_earned + ?", amount),
			"updated_at":   now,
		}).Error
}

// DebitBalance 条件扣减余额，余额不足返回 false
func (r *GormAffiliateRepository) DebitBalance(profileID uint, amount models.Money, now time.Time) (bool, error) {
	if profileID == 0 || !amount.IsPositive() {
		return false, nil
	}
	result := r.db.Model(&models.AffiliateProfile{}).
		Where("id = ? AND balance >= ?", profileID, amount).
		Updates(map[string]interface{}{
			"balance":    gorm.Expr("balance - ?", amount),
			"updated_at": now,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// RefundBalance 提现驳回时回补余额
func (r *GormAffiliateRepository) RefundBalance(profileID uint, amount models.Money, now time.Time) error {
	if profileID == 0 || !amount.IsPositive() {
		return nil
	}
	return r.db.Model(&models.AffiliateProfile{}).
		Where("id = ?", profileID).
		Updates(map[string]interface{}{
			"balance":    gorm.Expr("balance + ?", amount),
			"updated_at": now,
		}).Error
}

// AddPaidOut 打款完成后累加已提现金额
func (r *GormAffiliateRepository) AddPaidOut(profileID uint, amount models.Money, now time.Time) error {
	if profileID == 0 || !amount.IsPositive() {
		return nil
	}
	return r.db.Model(&models.AffiliateProfile{}).
		Where("id = ?", profileID).
		Updates(map[string]interface{}{
			"total_paid_out": gorm.Expr("total_paid_out + ?", amount),
			"updated_at":     now,
		}).Error
}

// ListPayoutMethods 查询收款方式列表
func (r *GormAffiliateRepository) ListPayoutMethods(profileID uint) ([]models.PayoutMethod, error) {
	if profileID == 0 {
		return []models.PayoutMethod{}, nil
	}
	methods := make([]models.PayoutMethod, 0)
	if err := r.db.Where("affiliate_profile_id = ?", profileID).
		Order("is_default DESC, id DESC").
		Find(&methods).Error; err != nil {
		return nil, err
	}
	return methods, nil
}

// GetPayoutMethodByID 按ID获取收款方式
func (r *GormAffiliateRepository) GetPayoutMethodByID(id uint) (*models.PayoutMethod, error) {
	if id == 0 {
		return nil, nil
	}
	var method models.PayoutMethod
	if err := r.db.First(&method, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &method, nil
}

// SavePayoutMethod 保存收款方式
func (r *GormAffiliateRepository) SavePayoutMethod(method *models.PayoutMethod) error {
	return r.db.Save(method).Error
}

// ClearDefaultPayoutMethod 清除默认收款方式标记
func (r *GormAffiliateRepository) ClearDefaultPayoutMethod(profileID uint) error {
	if profileID == 0 {
		return nil
	}
	return r.db.Model(&models.PayoutMethod{}).
		Where("affiliate_profile_id = ?", profileID).
		Update("is_default", false).Error
}
