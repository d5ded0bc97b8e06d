package service

import (
	"crypto/rand"
	"math"
	"math/big"
	"strings"
	"time"

	"github.com/grocer-next/internal/constants"
	"github.com/grocer-next/internal/models"
	"github.com/grocer-next/internal/repository"
	"github.com/shopspring/decimal"
)

const affiliateCodeLength = 8

// AffiliateService 推广档案业务服务
type AffiliateService struct {
	repo            repository.AffiliateRepository
	userRepo        repository.UserRepository
	attributionRepo repository.AttributionRepository
	commissionRepo  repository.CommissionRepository
	settingService  *SettingService
}

// NewAffiliateService 创建推广档案服务
func NewAffiliateService(
	repo repository.AffiliateRepository,
	userRepo repository.UserRepository,
	attributionRepo repository.AttributionRepository,
	commissionRepo repository.CommissionRepository,
	settingService *SettingService,
) *AffiliateService {
	return &AffiliateService{
		repo:            repo,
		userRepo:        userRepo,
		attributionRepo: attributionRepo,
		commissionRepo:  commissionRepo,
		settingService:  settingService,
	}
}

// AffiliateDashboard 推广用户个人面板
type AffiliateDashboard struct {
	Opened            bool         `json:"opened"`
	AffiliateCode     string       `json:"affiliate_code"`
	PromotionPath     string       `json:"promotion_path"`
	ClickCount        int64        `json:"click_count"`
	ValidOrderCount   int64        `json:"valid_order_count"`
	ConversionRate    float64      `json:"conversion_rate"`
	Balance           models.Money `json:"balance"`
	TotalEarned       models.Money `json:"total_earned"`
	TotalPaidOut      models.Money `json:"total_paid_out"`
	PendingCommission models.Money `json:"pending_commission"`
	SyncedCommission  models.Money `json:"synced_commission"`
}

// AffiliateStats 推广统计数据
type AffiliateStats struct {
	ClickCount        int64
	ValidOrderCount   int64
	ConversionRate    float64
	PendingCommission models.Money
	SyncedCommission  models.Money
	PaidOutCommission models.Money
}

// AffiliateAdminUserItem 后台推广用户列表项
type AffiliateAdminUserItem struct {
	Profile models.AffiliateProfile `json:"profile"`
	Stats   AffiliateStats          `json:"stats"`
}

// OpenAffiliate 为用户开通推广档案，推广码冲突时重新生成重试
func (s *AffiliateService) OpenAffiliate(userID uint) (*models.AffiliateProfile, error) {
	if userID == 0 {
		return nil, ErrUserDisabled
	}
	if s.repo == nil || s.userRepo == nil {
		return nil, ErrNotFound
	}
	setting, err := s.settingService.GetAffiliateSetting()
	if err != nil {
		return nil, err
	}
	if !setting.Enabled {
		return nil, ErrAffiliateDisabled
	}

	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrNotFound
	}
	if strings.TrimSpace(user.Status) == constants.UserStatusDisabled {
		return nil, ErrUserDisabled
	}

	existing, err := s.repo.GetProfileByUserID(userID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	const maxRetry = 8
	for i := 0; i < maxRetry; i++ {
		code, genErr := generateAffiliateCode()
		if genErr != nil {
			return nil, genErr
		}
		profile := &models.AffiliateProfile{
			UserID:        userID,
			AffiliateCode: code,
			Status:        constants.AffiliateProfileStatusActive,
		}
		if err := s.repo.CreateProfile(profile); err != nil {
			if isUniqueViolation(err) {
				continue
			}
			return nil, err
		}
		created, err := s.repo.GetProfileByID(profile.ID)
		if err != nil {
			return nil, err
		}
		if created != nil {
			return created, nil
		}
		return profile, nil
	}
	return nil, ErrAffiliateCodeInvalid
}

// UpdateAffiliateProfileStatus 管理端更新推广档案状态
func (s *AffiliateService) UpdateAffiliateProfileStatus(profileID uint, rawStatus string) (*models.AffiliateProfile, error) {
	if profileID == 0 || s.repo == nil {
		return nil, ErrNotFound
	}
	nextStatus := strings.TrimSpace(rawStatus)
	if nextStatus != constants.AffiliateProfileStatusActive && nextStatus != constants.AffiliateProfileStatusDisabled {
		return nil, ErrAffiliateStatusInvalid
	}

	profile, err := s.repo.GetProfileByID(profileID)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, ErrNotFound
	}
	if strings.TrimSpace(profile.Status) == nextStatus {
		return profile, nil
	}
	if err := s.repo.UpdateProfileStatus(profileID, nextStatus, time.Now()); err != nil {
		return nil, err
	}
	return s.repo.GetProfileByID(profileID)
}

// BatchUpdateAffiliateProfileStatus 管理端批量更新推广档案状态
func (s *AffiliateService) BatchUpdateAffiliateProfileStatus(profileIDs []uint, rawStatus string) (int64, error) {
	if s.repo == nil {
		return 0, ErrNotFound
	}
	nextStatus := strings.TrimSpace(rawStatus)
	if nextStatus != constants.AffiliateProfileStatusActive && nextStatus != constants.AffiliateProfileStatusDisabled {
		return 0, ErrAffiliateStatusInvalid
	}
	normalizedIDs := normalizeAffiliateProfileIDs(profileIDs)
	if len(normalizedIDs) == 0 {
		return 0, nil
	}
	return s.repo.BatchUpdateProfileStatus(normalizedIDs, nextStatus, time.Now())
}

// GetProfileByUserID 获取用户的推广档案
func (s *AffiliateService) GetProfileByUserID(userID uint) (*models.AffiliateProfile, error) {
	return s.repo.GetProfileByUserID(userID)
}

// GetUserDashboard 推广用户个人面板数据
func (s *AffiliateService) GetUserDashboard(userID uint) (AffiliateDashboard, error) {
	dashboard := AffiliateDashboard{
		Opened:            false,
		Balance:           models.NewMoneyFromDecimal(decimal.Zero),
		TotalEarned:       models.NewMoneyFromDecimal(decimal.Zero),
		TotalPaidOut:      models.NewMoneyFromDecimal(decimal.Zero),
		PendingCommission: models.NewMoneyFromDecimal(decimal.Zero),
		SyncedCommission:  models.NewMoneyFromDecimal(decimal.Zero),
	}
	if userID == 0 || s.repo == nil {
		return dashboard, nil
	}
	profile, err := s.repo.GetProfileByUserID(userID)
	if err != nil {
		return dashboard, err
	}
	if profile == nil {
		return dashboard, nil
	}

	stats, err := s.buildProfileStats(profile.ID)
	if err != nil {
		return dashboard, err
	}
	dashboard.Opened = true
	dashboard.AffiliateCode = profile.AffiliateCode
	dashboard.PromotionPath = "/?ref=" + profile.AffiliateCode
	dashboard.ClickCount = stats.ClickCount
	dashboard.ValidOrderCount = stats.ValidOrderCount
	dashboard.ConversionRate = stats.ConversionRate
	dashboard.Balance = profile.Balance
	dashboard.TotalEarned = profile.TotalEarned
	dashboard.TotalPaidOut = profile.TotalPaidOut
	dashboard.PendingCommission = stats.PendingCommission
	dashboard.SyncedCommission = stats.SyncedCommission
	return dashboard, nil
}

// ListUserAttributionCommissions 用户查看归因佣金记录
func (s *AffiliateService) ListUserAttributionCommissions(userID uint, page, pageSize int, status string) ([]models.AttributionCommission, int64, error) {
	if userID == 0 || s.commissionRepo == nil {
		return []models.AttributionCommission{}, 0, nil
	}
	profile, err := s.repo.GetProfileByUserID(userID)
	if err != nil {
		return nil, 0, err
	}
	if profile == nil {
		return []models.AttributionCommission{}, 0, nil
	}
	return s.commissionRepo.ListAttributionCommissions(repository.AttributionCommissionListFilter{
		Page:               page,
		PageSize:           pageSize,
		AffiliateProfileID: profile.ID,
		Status:             strings.TrimSpace(status),
	})
}

// ListUserReferralCommissions 用户查看结算佣金记录
func (s *AffiliateService) ListUserReferralCommissions(userID uint, page, pageSize int, status string) ([]models.ReferralCommission, int64, error) {
	if userID == 0 || s.commissionRepo == nil {
		return []models.ReferralCommission{}, 0, nil
	}
	profile, err := s.repo.GetProfileByUserID(userID)
	if err != nil {
		return nil, 0, err
	}
	if profile == nil {
		return []models.ReferralCommission{}, 0, nil
	}
	return s.commissionRepo.ListReferralCommissions(repository.ReferralCommissionListFilter{
		Page:               page,
		PageSize:           pageSize,
		AffiliateProfileID: profile.ID,
		Status:             strings.TrimSpace(status),
	})
}

// ListAdminUsers 后台查询推广用户列表（附统计）
func (s *AffiliateService) ListAdminUsers(filter repository.AffiliateProfileListFilter) ([]AffiliateAdminUserItem, int64, error) {
	if s.repo == nil {
		return []AffiliateAdminUserItem{}, 0, nil
	}
	rows, total, err := s.repo.ListProfiles(filter)
	if err != nil {
		return nil, 0, err
	}
	profileIDs := make([]uint, 0, len(rows))
	for _, row := range rows {
		if row.ID == 0 {
			continue
		}
		profileIDs = append(profileIDs, row.ID)
	}
	statsMap, err := s.commissionRepo.GetProfileStatsBatch(profileIDs)
	if err != nil {
		return nil, 0, err
	}
	result := make([]AffiliateAdminUserItem, 0, len(rows))
	for _, row := range rows {
		agg := statsMap[row.ID]
		stats := AffiliateStats{
			ClickCount:        agg.AttributionCount,
			ValidOrderCount:   agg.ValidOrderCount,
			ConversionRate:    calcAffiliateConversion(agg.ValidOrderCount, agg.AttributionCount),
			PendingCommission: models.NewMoneyFromDecimal(agg.PendingCommission.Round(2)),
			SyncedCommission:  models.NewMoneyFromDecimal(agg.SyncedCommission.Round(2)),
			PaidOutCommission: models.NewMoneyFromDecimal(agg.PaidOutCommission.Round(2)),
		}
		result = append(result, AffiliateAdminUserItem{
			Profile: row,
			Stats:   stats,
		})
	}
	return result, total, nil
}

func (s *AffiliateService) buildProfileStats(profileID uint) (AffiliateStats, error) {
	stats := AffiliateStats{
		PendingCommission: models.NewMoneyFromDecimal(decimal.Zero),
		SyncedCommission:  models.NewMoneyFromDecimal(decimal.Zero),
		PaidOutCommission: models.NewMoneyFromDecimal(decimal.Zero),
	}
	if profileID == 0 || s.commissionRepo == nil {
		return stats, nil
	}
	statsMap, err := s.commissionRepo.GetProfileStatsBatch([]uint{profileID})
	if err != nil {
		return stats, err
	}
	agg := statsMap[profileID]
	stats.ClickCount = agg.AttributionCount
	stats.ValidOrderCount = agg.ValidOrderCount
	stats.ConversionRate = calcAffiliateConversion(agg.ValidOrderCount, agg.AttributionCount)
	stats.PendingCommission = models.NewMoneyFromDecimal(agg.PendingCommission.Round(2))
	stats.SyncedCommission = models.NewMoneyFromDecimal(agg.SyncedCommission.Round(2))
	stats.PaidOutCommission = models.NewMoneyFromDecimal(agg.PaidOutCommission.Round(2))
	return stats, nil
}

func calcAffiliateConversion(validOrders, clicks int64) float64 {
	if clicks <= 0 || validOrders <= 0 {
		return 0
	}
	value := (float64(validOrders) / float64(clicks)) * 100
	return math.Round(value*100) / 100
}

func normalizeAffiliateProfileIDs(ids []uint) []uint {
	if len(ids) == 0 {
		return []uint{}
	}
	seen := make(map[uint]struct{}, len(ids))
	result := make([]uint, 0, len(ids))
	for _, id := range ids {
		if id == 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		result = append(result, id)
	}
	return result
}

func generateAffiliateCode() (string, error) {
	const alphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	var builder strings.Builder
	builder.Grow(affiliateCodeLength)
	max := big.NewInt(int64(len(alphabet)))
	for i := 0; i < affiliateCodeLength; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		builder.WriteByte(alphabet[n.Int64()])
	}
	return builder.String(), nil
}
