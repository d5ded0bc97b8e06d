package repository

import (
	"errors"
	"strings"

	"github.com/grocer-next/internal/constants"
	"github.com/grocer-next/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PayoutRepository 提现申请数据访问接口
type PayoutRepository interface {
	Transaction(fn func(tx *gorm.DB) error) error
	WithTx(tx *gorm.DB) PayoutRepository

	Create(req *models.PayoutRequest) error
	Update(req *models.PayoutRequest) error
	GetByID(id uint) (*models.PayoutRequest, error)
	GetByIDForUpdate(id uint) (*models.PayoutRequest, error)
	GetByPayoutNo(payoutNo string) (*models.PayoutRequest, error)
	List(filter PayoutListFilter) ([]models.PayoutRequest, int64, error)
	CountPendingByProfile(profileID uint) (int64, error)
}

// GormPayoutRepository GORM 提现仓储
type GormPayoutRepository struct {
	db *gorm.DB
}

// NewPayoutRepository 创建提现仓储
func NewPayoutRepository(db *gorm.DB) *GormPayoutRepository {
	return &GormPayoutRepository{db: db}
}

// WithTx 绑定事务
func (r *GormPayoutRepository) WithTx(tx *gorm.DB) PayoutRepository {
	if tx == nil {
		return r
	}
	return &GormPayoutRepository{db: tx}
}

// Transaction 执行事务
func (r *GormPayoutRepository) Transaction(fn func(tx *gorm.DB) error) error {
	if fn == nil {
		return nil
	}
	return r.db.Transaction(fn)
}

// Create 创建提现申请
func (r *GormPayoutRepository) Create(req *models.PayoutRequest) error {
	return r.db.Create(req).Error
}

// Update 更新提现申请
func (r *GormPayoutRepository) Update(req *models.PayoutRequest) error {
	return r.db.Save(req).Error
}

// GetByID 按ID获取提现申请
func (r *GormPayoutRepository) GetByID(id uint) (*models.PayoutRequest, error) {
	if id == 0 {
		return nil, nil
	}
	var req models.PayoutRequest
	if err := r.db.Preload("AffiliateProfile").Preload("AffiliateProfile.User").First(&req, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &req, nil
}

// GetByIDForUpdate 按ID锁定获取提现申请
func (r *GormPayoutRepository) GetByIDForUpdate(id uint) (*models.PayoutRequest, error) {
	if id == 0 {
		return nil, nil
	}
	var req models.PayoutRequest
	if err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).First(&req, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &req, nil
}

// GetByPayoutNo 按提现单号获取提现申请
func (r *GormPayoutRepository) GetByPayoutNo(payoutNo string) (*models.PayoutRequest, error) {
	normalized := strings.TrimSpace(payoutNo)
	if normalized == "" {
		return nil, nil
	}
	var req models.PayoutRequest
	if err := r.db.Where("payout_no = ?", normalized).First(&req).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &req, nil
}

// List 查询提现申请列表
func (r *GormPayoutRepository) List(filter PayoutListFilter) ([]models.PayoutRequest, int64, error) {
	query := r.db.Model(&models.PayoutRequest{}).
		Preload("AffiliateProfile").
		Preload("AffiliateProfile.User")

	if filter.AffiliateProfileID != 0 {
		query = query.Where("payout_requests.affiliate_profile_id = ?", filter.AffiliateProfileID)
	}
	if payoutNo := strings.TrimSpace(filter.PayoutNo); payoutNo != "" {
		query = query.Where("payout_requests.payout_no LIKE ?", "%"+payoutNo+"%")
	}
	if status := strings.TrimSpace(filter.Status); status != "" {
		query = query.Where("payout_requests.status = ?", status)
	}
	if keyword := strings.TrimSpace(filter.Keyword); keyword != "" {
		like := "%" + keyword + "%"
		query = query.
			Joins("LEFT JOIN affiliate_profiles ap ON ap.id = payout_requests.affiliate_profile_id").
			Joins("LEFT JOIN users u ON u.id = ap.user_id").
			Where("(u.email LIKE ? OR u.display_name LIKE ? OR ap.affiliate_code LIKE ?)", like, like, like)
	}
	if filter.CreatedFrom != nil {
		query = query.Where("payout_requests.created_at >= ?", *filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		query = query.Where("payout_requests.created_at <= ?", *filter.CreatedTo)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	query = applyPagination(query, filter.Page, filter.PageSize)

	var rows []models.PayoutRequest
	if err := query.Order("payout_requests.id desc").Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// CountPendingByProfile 统计推广用户进行中的提现申请数
func (r *GormPayoutRepository) CountPendingByProfile(profileID uint) (int64, error) {
	if profileID == 0 {
		return 0, nil
	}
	var total int64
	if err := r.db.Model(&models.PayoutRequest{}).
		Where("affiliate_profile_id = ? AND status IN ?", profileID, []string{constants.PayoutStatusPending, constants.PayoutStatusProcessing}).
		Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}
