package service

import (
	"strings"
	"time"

	"github.com/grocer-next/internal/constants"
	"github.com/grocer-next/internal/logger"
	"github.com/grocer-next/internal/models"
	"github.com/grocer-next/internal/repository"
	"github.com/shopspring/decimal"

	"gorm.io/gorm"
)

// CommissionService 佣金业务服务：订单转化计佣与注册推荐奖励
type CommissionService struct {
	repo               repository.CommissionRepository
	attributionService *AttributionService
	affiliateRepo      repository.AffiliateRepository
	attributionRepo    repository.AttributionRepository
	userRepo           repository.UserRepository
	orderRepo          repository.OrderRepository
	settingService     *SettingService
}

// NewCommissionService 创建佣金服务
func NewCommissionService(
	repo repository.CommissionRepository,
	attributionService *AttributionService,
	affiliateRepo repository.AffiliateRepository,
	attributionRepo repository.AttributionRepository,
	userRepo repository.UserRepository,
	orderRepo repository.OrderRepository,
	settingService *SettingService,
) *CommissionService {
	return &CommissionService{
		repo:               repo,
		attributionService: attributionService,
		affiliateRepo:      affiliateRepo,
		attributionRepo:    attributionRepo,
		userRepo:           userRepo,
		orderRepo:          orderRepo,
		settingService:     settingService,
	}
}

// ProcessOrder 处理订单支付成功后的计佣。
// 每个订单在两个账本合计至多产生一条佣金：优先归因账本（生效归因），
// 其次结算账本（注册时填写的推荐码），两者都没有则静默跳过。
// 幂等：写入前按 order_id 查重，order_id 唯一索引兜底并发重复。
func (s *CommissionService) ProcessOrder(orderID uint) error {
	if orderID == 0 || s.repo == nil || s.orderRepo == nil {
		return nil
	}

	setting, err := s.settingService.GetAffiliateSetting()
	if err != nil {
		return err
	}
	if !setting.Enabled {
		return nil
	}

	order, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		return err
	}
	if order == nil {
		return nil
	}
	if order.Status != constants.OrderStatusPaid &&
		order.Status != constants.OrderStatusDelivering &&
		order.Status != constants.OrderStatusCompleted {
		return nil
	}

	processed, err := s.orderAlreadyCommissioned(order.ID)
	if err != nil {
		return err
	}
	if processed {
		return nil
	}

	baseAmount := order.ItemsSubtotal
	if baseAmount.Decimal.LessThanOrEqual(decimal.Zero) {
		return nil
	}

	attribution, err := s.attributionService.ResolveActiveForUser(order.UserID, "")
	if err != nil {
		return err
	}
	if attribution != nil {
		return s.processAttributionCommission(order, attribution, setting, baseAmount)
	}
	return s.processLegacyCommission(order, setting, baseAmount)
}

func (s *CommissionService) orderAlreadyCommissioned(orderID uint) (bool, error) {
	existing, err := s.repo.GetAttributionCommissionByOrderID(orderID)
	if err != nil {
		return false, err
	}
	if existing != nil {
		return true, nil
	}
	legacy, err := s.repo.GetReferralCommissionByOrderID(orderID)
	if err != nil {
		return false, err
	}
	return legacy != nil, nil
}

// processAttributionCommission 归因账本计佣，同事务累加归因转化统计
func (s *CommissionService) processAttributionCommission(
	order *models.Order,
	attribution *models.Attribution,
	setting AffiliateSetting,
	baseAmount models.Money,
) error {
	profile, err := s.affiliateRepo.GetProfileByID(attribution.AffiliateProfileID)
	if err != nil {
		return err
	}
	if profile == nil || strings.TrimSpace(profile.Status) != constants.AffiliateProfileStatusActive {
		return nil
	}
	if order.UserID > 0 && profile.UserID == order.UserID {
		return nil
	}

	rate := s.resolveRate(profile, setting)
	commissionAmount := baseAmount.ApplyPercent(rate)
	if commissionAmount.Decimal.LessThanOrEqual(decimal.Zero) {
		return nil
	}

	userEmail := s.lookupUserEmail(order.UserID)

	err = s.repo.Transaction(func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		existing, err := txRepo.GetAttributionCommissionByOrderID(order.ID)
		if err != nil {
			return err
		}
		if existing != nil {
			return nil
		}

		commission := &models.AttributionCommission{
			AttributionID:      attribution.ID,
			AffiliateProfileID: profile.ID,
			OrderID:            order.ID,
			UserID:             order.UserID,
			UserEmail:          userEmail,
			ReferralCode:       profile.AffiliateCode,
			OrderTotal:         order.TotalAmount,
			BaseAmount:         baseAmount,
			RatePercent:        rate,
			CommissionAmount:   commissionAmount,
			Status:             constants.AttributionCommissionStatusPending,
		}
		if err := txRepo.CreateAttributionCommission(commission); err != nil {
			return err
		}

		return s.attributionRepo.WithTx(tx).AddConversion(attribution.ID, order.TotalAmount, commissionAmount, time.Now())
	})
	if isUniqueViolation(err) {
		return nil
	}
	return err
}

// processLegacyCommission 结算账本计佣（注册时填写推荐码的老链路）。
// 结算账本不走审批流，入账即为 approved 并同步计入余额。
func (s *CommissionService) processLegacyCommission(
	order *models.Order,
	setting AffiliateSetting,
	baseAmount models.Money,
) error {
	if s.userRepo == nil {
		return nil
	}
	user, err := s.userRepo.GetByID(order.UserID)
	if err != nil {
		return err
	}
	if user == nil {
		return nil
	}
	code := normalizeAffiliateCode(user.ReferredByCode)
	if code == "" {
		return nil
	}

	profile, err := s.affiliateRepo.GetProfileByCode(code)
	if err != nil {
		return err
	}
	if profile == nil || strings.TrimSpace(profile.Status) != constants.AffiliateProfileStatusActive {
		return nil
	}
	if profile.UserID == order.UserID {
		return nil
	}

	rate := s.resolveRate(profile, setting)
	commissionAmount := baseAmount.ApplyPercent(rate)
	if commissionAmount.Decimal.LessThanOrEqual(decimal.Zero) {
		return nil
	}

	orderID := order.ID
	err = s.repo.Transaction(func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		existing, err := txRepo.GetReferralCommissionByOrderID(orderID)
		if err != nil {
			return err
		}
		if existing != nil {
			return nil
		}

		commission := &models.ReferralCommission{
			AffiliateProfileID: profile.ID,
			UserID:             order.UserID,
			UserEmail:          strings.TrimSpace(user.Email),
			ReferralCode:       profile.AffiliateCode,
			OrderID:            &orderID,
			Source:             constants.ReferralCommissionSourceOrder,
			BaseAmount:         baseAmount,
			RatePercent:        rate,
			Amount:             commissionAmount,
			Status:             constants.ReferralCommissionStatusApproved,
		}
		if err := txRepo.CreateReferralCommission(commission); err != nil {
			return err
		}

		return s.affiliateRepo.WithTx(tx).CreditBalance(profile.ID, commissionAmount, time.Now())
	})
	if isUniqueViolation(err) {
		return nil
	}
	return err
}

// RecordSignupReferral 注册奖励：被推荐用户完成注册后给推荐人入账一次。
// 金额取设置中的注册奖励，为 0 时不入账。
func (s *CommissionService) RecordSignupReferral(userID uint, userEmail, rawCode string) error {
	if s.repo == nil || userID == 0 {
		return nil
	}
	code := normalizeAffiliateCode(rawCode)
	if code == "" {
		return nil
	}

	setting, err := s.settingService.GetAffiliateSetting()
	if err != nil {
		return err
	}
	if !setting.Enabled || setting.SignupBonusAmount <= 0 {
		return nil
	}

	profile, err := s.affiliateRepo.GetProfileByCode(code)
	if err != nil {
		return err
	}
	if profile == nil || strings.TrimSpace(profile.Status) != constants.AffiliateProfileStatusActive {
		return nil
	}
	if profile.UserID == userID {
		return nil
	}

	bonus := models.NewMoneyFromFloat(setting.SignupBonusAmount)
	return s.repo.Transaction(func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		commission := &models.ReferralCommission{
			AffiliateProfileID: profile.ID,
			UserID:             userID,
			UserEmail:          strings.TrimSpace(userEmail),
			ReferralCode:       profile.AffiliateCode,
			Source:             constants.ReferralCommissionSourceSignup,
			BaseAmount:         bonus,
			RatePercent:        models.Money{},
			Amount:             bonus,
			Status:             constants.ReferralCommissionStatusApproved,
		}
		if err := txRepo.CreateReferralCommission(commission); err != nil {
			return err
		}
		return s.affiliateRepo.WithTx(tx).CreditBalance(profile.ID, bonus, time.Now())
	})
}

// resolveRate 佣金比例：推广用户覆盖值优先，否则用全局设置
func (s *CommissionService) resolveRate(profile *models.AffiliateProfile, setting AffiliateSetting) models.Money {
	if profile.CommissionRatePercent != nil {
		return *profile.CommissionRatePercent
	}
	return models.NewMoneyFromFloat(setting.CommissionRate)
}

func (s *CommissionService) lookupUserEmail(userID uint) string {
	if s.userRepo == nil || userID == 0 {
		return ""
	}
	user, err := s.userRepo.GetByID(userID)
	if err != nil || user == nil {
		logger.Warnw("查询下单用户失败", "user_id", userID, "error", err)
		return ""
	}
	return strings.TrimSpace(user.Email)
}

// GetAttributionCommission 获取归因佣金详情
func (s *CommissionService) GetAttributionCommission(id uint) (*models.AttributionCommission, error) {
	commission, err := s.repo.GetAttributionCommissionByID(id)
	if err != nil {
		return nil, err
	}
	if commission == nil {
		return nil, ErrCommissionNotFound
	}
	return commission, nil
}

// ListAttributionCommissions 归因佣金列表
func (s *CommissionService) ListAttributionCommissions(filter repository.AttributionCommissionListFilter) ([]models.AttributionCommission, int64, error) {
	return s.repo.ListAttributionCommissions(filter)
}

// ListReferralCommissions 结算佣金列表
func (s *CommissionService) ListReferralCommissions(filter repository.ReferralCommissionListFilter) ([]models.ReferralCommission, int64, error) {
	return s.repo.ListReferralCommissions(filter)
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique") || strings.Contains(msg, "duplicate")
}
