package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/grocer-next/internal/constants"
	"github.com/grocer-next/internal/logger"
	"github.com/grocer-next/internal/models"
	"github.com/grocer-next/internal/repository"
	"github.com/shopspring/decimal"

	"gorm.io/gorm"
)

// PayoutService 提现业务服务。
// 余额为扣减依据：申请时条件扣减，驳回时原路退回，打款时按先进先出
// 把结算账本里的佣金记录标记为已打款。
type PayoutService struct {
	repo           repository.PayoutRepository
	affiliateRepo  repository.AffiliateRepository
	commissionRepo repository.CommissionRepository
	settingService *SettingService
	currency       string
}

// NewPayoutService 创建提现服务
func NewPayoutService(
	repo repository.PayoutRepository,
	affiliateRepo repository.AffiliateRepository,
	commissionRepo repository.CommissionRepository,
	settingService *SettingService,
	currency string,
) *PayoutService {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == "" {
		currency = "USD"
	}
	return &PayoutService{
		repo:           repo,
		affiliateRepo:  affiliateRepo,
		commissionRepo: commissionRepo,
		settingService: settingService,
		currency:       currency,
	}
}

// PayoutApplyInput 提现申请输入
type PayoutApplyInput struct {
	Amount      models.Money
	Method      string
	Country     string
	AccountName string
	AccountNo   string
	BankName    string
	BankBranch  string
	SaveMethod  bool
}

// RequestPayout 提交提现申请。
// 校验顺序固定：金额合法、达到最低限额、余额充足、方式与收款信息可用。
// 余额扣减与申请落库在同一事务内，条件更新兜底并发扣减。
func (s *PayoutService) RequestPayout(userID uint, input PayoutApplyInput) (*models.PayoutRequest, error) {
	if userID == 0 || s.repo == nil {
		return nil, ErrAffiliateNotOpened
	}
	setting, err := s.settingService.GetAffiliateSetting()
	if err != nil {
		return nil, err
	}
	if !setting.Enabled {
		return nil, ErrAffiliateDisabled
	}

	amount := models.NewMoneyFromDecimal(input.Amount.Decimal)
	if amount.Decimal.LessThanOrEqual(decimal.Zero) {
		return nil, ErrPayoutAmountInvalid
	}
	minAmount := models.NewMoneyFromFloat(setting.MinPayoutAmount)
	if amount.Decimal.LessThan(minAmount.Decimal) {
		return nil, ErrPayoutBelowMinimum
	}

	profile, err := s.affiliateRepo.GetProfileByUserID(userID)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, ErrAffiliateNotOpened
	}
	if strings.TrimSpace(profile.Status) != constants.AffiliateProfileStatusActive {
		return nil, ErrAffiliateDisabled
	}
	if amount.Decimal.GreaterThan(profile.Balance.Decimal) {
		return nil, ErrPayoutInsufficientFunds
	}

	method := strings.ToLower(strings.TrimSpace(input.Method))
	feeSetting, err := s.settingService.GetPayoutFeeSetting()
	if err != nil {
		return nil, err
	}
	rule, ok := feeSetting.RuleForCountry(input.Country)
	if !ok || !rule.SupportsMethod(method) {
		return nil, ErrPayoutMethodInvalid
	}
	if err := validatePayoutAccountFields(method, rule, input); err != nil {
		return nil, err
	}

	taxRate := models.NewMoneyFromFloat(rule.TaxRatePercent)
	taxAmount := amount.ApplyPercent(taxRate)
	feeAmount := models.NewMoneyFromFloat(rule.ProcessingFee)
	netAmount := amount.SubMoney(taxAmount).SubMoney(feeAmount)
	if netAmount.Decimal.LessThan(decimal.Zero) {
		return nil, ErrPayoutFeeExceedsAmount
	}

	pendingCount, err := s.repo.CountPendingByProfile(profile.ID)
	if err != nil {
		return nil, err
	}
	if pendingCount > 0 {
		return nil, ErrPayoutPendingExists
	}

	snapshot := models.JSON{
		"method":       method,
		"country":      normalizePayoutCountryCode(input.Country),
		"account_name": strings.TrimSpace(input.AccountName),
		"account_no":   strings.TrimSpace(input.AccountNo),
		"bank_name":    strings.TrimSpace(input.BankName),
		"bank_branch":  strings.TrimSpace(input.BankBranch),
	}

	var createdID uint
	err = s.repo.Transaction(func(tx *gorm.DB) error {
		debited, err := s.affiliateRepo.WithTx(tx).DebitBalance(profile.ID, amount, time.Now())
		if err != nil {
			return err
		}
		if !debited {
			return ErrPayoutInsufficientFunds
		}

		req := &models.PayoutRequest{
			PayoutNo:           generatePayoutNo(),
			AffiliateProfileID: profile.ID,
			Amount:             amount,
			FeeAmount:          feeAmount,
			TaxRatePercent:     taxRate,
			TaxAmount:          taxAmount,
			NetAmount:          netAmount,
			Currency:           s.currency,
			Method:             method,
			Country:            normalizePayoutCountryCode(input.Country),
			AccountSnapshot:    snapshot,
			Status:             constants.PayoutStatusPending,
		}
		if err := s.repo.WithTx(tx).Create(req); err != nil {
			return err
		}
		createdID = req.ID
		return nil
	})
	if err != nil {
		return nil, err
	}

	if input.SaveMethod {
		s.savePayoutMethod(profile.ID, method, input)
	}

	return s.repo.GetByID(createdID)
}

// validatePayoutAccountFields 按国家规则校验收款字段
func validatePayoutAccountFields(method string, rule PayoutCountryRule, input PayoutApplyInput) error {
	if strings.TrimSpace(input.AccountNo) == "" {
		return ErrPayoutFieldsMissing
	}
	if method != constants.PayoutMethodBank {
		return nil
	}
	values := map[string]string{
		"account_name": input.AccountName,
		"account_no":   input.AccountNo,
		"bank_name":    input.BankName,
		"bank_branch":  input.BankBranch,
	}
	for _, field := range rule.BankFields {
		if strings.TrimSpace(values[field]) == "" {
			return ErrPayoutFieldsMissing
		}
	}
	return nil
}

// savePayoutMethod 保存常用收款方式，失败只记日志不影响提现申请
func (s *PayoutService) savePayoutMethod(profileID uint, method string, input PayoutApplyInput) {
	if s.affiliateRepo == nil {
		return
	}
	record := &models.PayoutMethod{
		AffiliateProfileID: profileID,
		Method:             method,
		Country:            normalizePayoutCountryCode(input.Country),
		AccountName:        strings.TrimSpace(input.AccountName),
		AccountNo:          strings.TrimSpace(input.AccountNo),
		BankName:           strings.TrimSpace(input.BankName),
		BankBranch:         strings.TrimSpace(input.BankBranch),
		IsDefault:          true,
	}
	if err := s.affiliateRepo.ClearDefaultPayoutMethod(profileID); err != nil {
		logger.Warnw("清除默认收款方式失败", "profile_id", profileID, "error", err)
		return
	}
	if err := s.affiliateRepo.SavePayoutMethod(record); err != nil {
		logger.Warnw("保存收款方式失败", "profile_id", profileID, "error", err)
	}
}

// ReviewPayout 管理端审核提现申请。
// 打款把余额对应的结算账本佣金按时间先后标记为已打款；驳回原路退还余额。
func (s *PayoutService) ReviewPayout(adminID, payoutID uint, action, reason string) (*models.PayoutRequest, error) {
	if payoutID == 0 || s.repo == nil {
		return nil, ErrPayoutNotFound
	}
	act := strings.ToLower(strings.TrimSpace(action))
	if act != constants.PayoutActionPay && act != constants.PayoutActionReject {
		return nil, ErrPayoutStatusInvalid
	}
	reason = strings.TrimSpace(reason)

	err := s.repo.Transaction(func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		req, err := txRepo.GetByIDForUpdate(payoutID)
		if err != nil {
			return err
		}
		if req == nil {
			return ErrPayoutNotFound
		}
		if req.Status != constants.PayoutStatusPending {
			return ErrPayoutStatusInvalid
		}

		now := time.Now()
		req.ReviewedBy = &adminID
		req.ReviewedAt = &now
		if act == constants.PayoutActionReject {
			req.Status = constants.PayoutStatusRejected
			req.AdminNote = reason
			if err := s.affiliateRepo.WithTx(tx).RefundBalance(req.AffiliateProfileID, req.Amount, now); err != nil {
				return err
			}
			return txRepo.Update(req)
		}

		req.Status = constants.PayoutStatusPaid
		req.AdminNote = reason
		req.PaidAt = &now
		if err := s.markCommissionsPaid(tx, req, now); err != nil {
			return err
		}
		if err := s.affiliateRepo.WithTx(tx).AddPaidOut(req.AffiliateProfileID, req.Amount, now); err != nil {
			return err
		}
		return txRepo.Update(req)
	})
	if err != nil {
		return nil, err
	}
	return s.repo.GetByID(payoutID)
}

// markCommissionsPaid 先进先出把结算账本佣金标记为已打款，直到覆盖提现金额
func (s *PayoutService) markCommissionsPaid(tx *gorm.DB, req *models.PayoutRequest, now time.Time) error {
	if s.commissionRepo == nil {
		return nil
	}
	commissions, err := s.commissionRepo.WithTx(tx).ListSyncedUnpaidForUpdate(req.AffiliateProfileID)
	if err != nil {
		return err
	}

	covered := decimal.Zero
	ids := make([]uint, 0, len(commissions))
	for _, commission := range commissions {
		if covered.GreaterThanOrEqual(req.Amount.Decimal) {
			break
		}
		ids = append(ids, commission.ID)
		covered = covered.Add(commission.Amount.Decimal)
	}
	if len(ids) == 0 {
		return nil
	}

	return s.commissionRepo.WithTx(tx).BatchUpdateReferralCommissions(ids, map[string]interface{}{
		"status":     constants.ReferralCommissionStatusPaid,
		"payout_id":  req.ID,
		"paid_at":    now,
		"updated_at": now,
	})
}

// GetUserPayout 用户查看自己的提现申请
func (s *PayoutService) GetUserPayout(userID, payoutID uint) (*models.PayoutRequest, error) {
	profile, err := s.affiliateRepo.GetProfileByUserID(userID)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, ErrAffiliateNotOpened
	}
	req, err := s.repo.GetByID(payoutID)
	if err != nil {
		return nil, err
	}
	if req == nil || req.AffiliateProfileID != profile.ID {
		return nil, ErrPayoutNotFound
	}
	return req, nil
}

// ListUserPayouts 用户提现记录
func (s *PayoutService) ListUserPayouts(userID uint, page, pageSize int, status string) ([]models.PayoutRequest, int64, error) {
	profile, err := s.affiliateRepo.GetProfileByUserID(userID)
	if err != nil {
		return nil, 0, err
	}
	if profile == nil {
		return nil, 0, ErrAffiliateNotOpened
	}
	return s.repo.List(repository.PayoutListFilter{
		AffiliateProfileID: profile.ID,
		Status:             strings.TrimSpace(status),
		Page:               page,
		PageSize:           pageSize,
	})
}

// ListAdminPayouts 管理端提现列表
func (s *PayoutService) ListAdminPayouts(filter repository.PayoutListFilter) ([]models.PayoutRequest, int64, error) {
	return s.repo.List(filter)
}

// ListPayoutMethods 用户已保存的收款方式
func (s *PayoutService) ListPayoutMethods(userID uint) ([]models.PayoutMethod, error) {
	profile, err := s.affiliateRepo.GetProfileByUserID(userID)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, ErrAffiliateNotOpened
	}
	return s.affiliateRepo.ListPayoutMethods(profile.ID)
}

func generatePayoutNo() string {
	return fmt.Sprintf("PO%s", strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")))
}
