package service

import (
	"fmt"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/grocer-next/internal/constants"
	"github.com/grocer-next/internal/models"
	"github.com/grocer-next/internal/repository"
	"gorm.io/gorm"
)

func TestProcessOrderCreatesPendingAttributionCommission(t *testing.T) {
	svc, db := setupCommissionServiceTest(t)

	promoter := createCommissionTestUser(t, db, "promoter@example.com", "")
	profile := createCommissionTestProfile(t, db, promoter.ID, "FARM0001")
	buyer := createCommissionTestUser(t, db, "buyer@example.com", "")
	attribution := createCommissionTestAttribution(t, db, profile.ID, buyer.ID)

	// 佣金基数只算商品小计，配送费与货到付款附加费不参与
	order := createCommissionTestOrder(t, db, buyer.ID, constants.OrderStatusPaid, "1000.00", "200.00", "50.00")

	if err := svc.ProcessOrder(order.ID); err != nil {
		t.Fatalf("process order failed: %v", err)
	}

	commission, err := repository.NewCommissionRepository(db).GetAttributionCommissionByOrderID(order.ID)
	if err != nil || commission == nil {
		t.Fatalf("expected attribution commission, got %v (err %v)", commission, err)
	}
	if commission.Status != constants.AttributionCommissionStatusPending {
		t.Fatalf("expected pending commission, got %s", commission.Status)
	}
	if commission.AttributionID != attribution.ID || commission.AffiliateProfileID != profile.ID {
		t.Fatalf("unexpected commission linkage: %+v", commission)
	}
	if !commission.BaseAmount.Decimal.Equal(mustMoney(t, "1000.00").Decimal) {
		t.Fatalf("expected base 1000.00, got %s", commission.BaseAmount)
	}
	if !commission.CommissionAmount.Decimal.Equal(mustMoney(t, "50.00").Decimal) {
		t.Fatalf("expected commission 50.00 at 5%%, got %s", commission.CommissionAmount)
	}
	if commission.UserEmail != buyer.Email {
		t.Fatalf("expected buyer email snapshot, got %q", commission.UserEmail)
	}

	// 归因账本走审批流，余额此时不动
	reloaded := reloadCommissionTestProfile(t, db, profile.ID)
	if !reloaded.Balance.Decimal.IsZero() {
		t.Fatalf("expected balance untouched before approval, got %s", reloaded.Balance)
	}

	bound, err := repository.NewAttributionRepository(db).GetByID(attribution.ID)
	if err != nil || bound == nil {
		t.Fatalf("reload attribution failed: %v", err)
	}
	if bound.TotalOrders != 1 {
		t.Fatalf("expected conversion count 1, got %d", bound.TotalOrders)
	}
}

func TestProcessOrderIdempotentPerOrder(t *testing.T) {
	svc, db := setupCommissionServiceTest(t)

	promoter := createCommissionTestUser(t, db, "promoter-idem@example.com", "")
	profile := createCommissionTestProfile(t, db, promoter.ID, "FARM0002")
	buyer := createCommissionTestUser(t, db, "buyer-idem@example.com", "")
	createCommissionTestAttribution(t, db, profile.ID, buyer.ID)
	order := createCommissionTestOrder(t, db, buyer.ID, constants.OrderStatusPaid, "100.00", "0", "0")

	if err := svc.ProcessOrder(order.ID); err != nil {
		t.Fatalf("first process failed: %v", err)
	}
	if err := svc.ProcessOrder(order.ID); err != nil {
		t.Fatalf("second process failed: %v", err)
	}

	var attributionCount, legacyCount int64
	if err := db.Model(&models.AttributionCommission{}).Where("order_id = ?", order.ID).Count(&attributionCount).Error; err != nil {
		t.Fatalf("count attribution commissions failed: %v", err)
	}
	if err := db.Model(&models.ReferralCommission{}).Where("order_id = ?", order.ID).Count(&legacyCount).Error; err != nil {
		t.Fatalf("count referral commissions failed: %v", err)
	}
	if attributionCount+legacyCount != 1 {
		t.Fatalf("expected exactly one commission across both ledgers, got %d + %d", attributionCount, legacyCount)
	}
}

func TestProcessOrderSkipsUnpaidOrder(t *testing.T) {
	svc, db := setupCommissionServiceTest(t)

	promoter := createCommissionTestUser(t, db, "promoter-unpaid@example.com", "")
	profile := createCommissionTestProfile(t, db, promoter.ID, "FARM0003")
	buyer := createCommissionTestUser(t, db, "buyer-unpaid@example.com", "")
	createCommissionTestAttribution(t, db, profile.ID, buyer.ID)
	order := createCommissionTestOrder(t, db, buyer.ID, constants.OrderStatusPendingPayment, "100.00", "0", "0")

	if err := svc.ProcessOrder(order.ID); err != nil {
		t.Fatalf("process unpaid order should be silent, got: %v", err)
	}

	var count int64
	if err := db.Model(&models.AttributionCommission{}).Where("order_id = ?", order.ID).Count(&count).Error; err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected no commission for unpaid order, got %d", count)
	}
}

func TestProcessOrderSkipsSelfReferral(t *testing.T) {
	svc, db := setupCommissionServiceTest(t)

	promoter := createCommissionTestUser(t, db, "promoter-self@example.com", "")
	profile := createCommissionTestProfile(t, db, promoter.ID, "FARM0004")
	createCommissionTestAttribution(t, db, profile.ID, promoter.ID)
	order := createCommissionTestOrder(t, db, promoter.ID, constants.OrderStatusPaid, "100.00", "0", "0")

	if err := svc.ProcessOrder(order.ID); err != nil {
		t.Fatalf("self-referral should be silent, got: %v", err)
	}

	var count int64
	if err := db.Model(&models.AttributionCommission{}).Count(&count).Error; err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected self-referral skipped, got %d rows", count)
	}
}

func TestProcessOrderLegacyFallbackByReferredCode(t *testing.T) {
	svc, db := setupCommissionServiceTest(t)

	promoter := createCommissionTestUser(t, db, "promoter-legacy@example.com", "")
	profile := createCommissionTestProfile(t, db, promoter.ID, "FARM0005")
	buyer := createCommissionTestUser(t, db, "buyer-legacy@example.com", "farm0005")
	order := createCommissionTestOrder(t, db, buyer.ID, constants.OrderStatusPaid, "400.00", "30.00", "0")

	if err := svc.ProcessOrder(order.ID); err != nil {
		t.Fatalf("process order failed: %v", err)
	}

	legacy, err := repository.NewCommissionRepository(db).GetReferralCommissionByOrderID(order.ID)
	if err != nil || legacy == nil {
		t.Fatalf("expected legacy commission, got %v (err %v)", legacy, err)
	}
	if legacy.Source != constants.ReferralCommissionSourceOrder {
		t.Fatalf("expected source referral_order, got %s", legacy.Source)
	}
	if legacy.Status != constants.ReferralCommissionStatusApproved {
		t.Fatalf("expected approved status, got %s", legacy.Status)
	}
	if !legacy.Amount.Decimal.Equal(mustMoney(t, "20.00").Decimal) {
		t.Fatalf("expected amount 20.00, got %s", legacy.Amount)
	}

	// 结算账本不走审批，入账即计入余额
	reloaded := reloadCommissionTestProfile(t, db, profile.ID)
	if !reloaded.Balance.Decimal.Equal(mustMoney(t, "20.00").Decimal) {
		t.Fatalf("expected balance 20.00, got %s", reloaded.Balance)
	}
}

func TestProcessOrderProfileRateOverride(t *testing.T) {
	svc, db := setupCommissionServiceTest(t)

	promoter := createCommissionTestUser(t, db, "promoter-rate@example.com", "")
	profile := createCommissionTestProfile(t, db, promoter.ID, "FARM0006")
	override := models.NewMoneyFromFloat(10)
	if err := db.Model(&models.AffiliateProfile{}).Where("id = ?", profile.ID).
		Update("commission_rate_percent", override).Error; err != nil {
		t.Fatalf("set rate override failed: %v", err)
	}
	buyer := createCommissionTestUser(t, db, "buyer-rate@example.com", "")
	createCommissionTestAttribution(t, db, profile.ID, buyer.ID)
	order := createCommissionTestOrder(t, db, buyer.ID, constants.OrderStatusPaid, "200.00", "0", "0")

	if err := svc.ProcessOrder(order.ID); err != nil {
		t.Fatalf("process order failed: %v", err)
	}

	commission, err := repository.NewCommissionRepository(db).GetAttributionCommissionByOrderID(order.ID)
	if err != nil || commission == nil {
		t.Fatalf("expected commission, got %v (err %v)", commission, err)
	}
	if !commission.CommissionAmount.Decimal.Equal(mustMoney(t, "20.00").Decimal) {
		t.Fatalf("expected override rate 10%% to yield 20.00, got %s", commission.CommissionAmount)
	}
}

func TestRecordSignupReferralCreditsBonus(t *testing.T) {
	svc, db := setupCommissionServiceTest(t)

	promoter := createCommissionTestUser(t, db, "promoter-signup@example.com", "")
	profile := createCommissionTestProfile(t, db, promoter.ID, "FARM0007")
	newcomer := createCommissionTestUser(t, db, "newcomer@example.com", "FARM0007")

	if err := svc.RecordSignupReferral(newcomer.ID, newcomer.Email, "farm0007"); err != nil {
		t.Fatalf("record signup referral failed: %v", err)
	}

	var bonus models.ReferralCommission
	if err := db.Where("affiliate_profile_id = ? AND source = ?", profile.ID, constants.ReferralCommissionSourceSignup).
		First(&bonus).Error; err != nil {
		t.Fatalf("load signup bonus failed: %v", err)
	}
	if bonus.Status != constants.ReferralCommissionStatusApproved {
		t.Fatalf("expected approved bonus, got %s", bonus.Status)
	}
	if !bonus.Amount.Decimal.Equal(mustMoney(t, "2.00").Decimal) {
		t.Fatalf("expected bonus 2.00, got %s", bonus.Amount)
	}
	if bonus.OrderID != nil {
		t.Fatalf("signup bonus must not reference an order")
	}

	reloaded := reloadCommissionTestProfile(t, db, profile.ID)
	if !reloaded.Balance.Decimal.Equal(mustMoney(t, "2.00").Decimal) {
		t.Fatalf("expected balance 2.00, got %s", reloaded.Balance)
	}
}

func setupCommissionServiceTest(t *testing.T) (*CommissionService, *gorm.DB) {
	t.Helper()

	dsn := fmt.Sprintf("file:commission_service_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(
		&models.User{},
		&models.AffiliateProfile{},
		&models.Attribution{},
		&models.AttributionCommission{},
		&models.ReferralCommission{},
		&models.Order{},
		&models.OrderItem{},
	); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}

	settingSvc := NewSettingService(newMockSettingRepo())
	if _, err := settingSvc.UpdateAffiliateSetting(AffiliateSetting{
		Enabled:                true,
		CommissionRate:         5,
		AttributionWindowHours: 24,
		SignupBonusAmount:      2,
	}); err != nil {
		t.Fatalf("init affiliate setting failed: %v", err)
	}

	attributionRepo := repository.NewAttributionRepository(db)
	affiliateRepo := repository.NewAffiliateRepository(db)
	userRepo := repository.NewUserRepository(db)
	attributionSvc := NewAttributionService(attributionRepo, affiliateRepo, userRepo, settingSvc)
	svc := NewCommissionService(
		repository.NewCommissionRepository(db),
		attributionSvc,
		affiliateRepo,
		attributionRepo,
		userRepo,
		repository.NewOrderRepository(db),
		settingSvc,
	)
	return svc, db
}

func createCommissionTestUser(t *testing.T, db *gorm.DB, email, referredByCode string) models.User {
	t.Helper()

	row := models.User{
		Email:          email,
		PasswordHash:   "hash",
		DisplayName:    "tester",
		Status:         constants.UserStatusActive,
		ReferredByCode: referredByCode,
		CreatedAt:      time.Now(),
		UpdatedAt:      time.Now(),
	}
	if err := db.Create(&row).Error; err != nil {
		t.Fatalf("create user failed: %v", err)
	}
	return row
}

func createCommissionTestProfile(t *testing.T, db *gorm.DB, userID uint, code string) models.AffiliateProfile {
	t.Helper()

	row := models.AffiliateProfile{
		UserID:        userID,
		AffiliateCode: code,
		Status:        constants.AffiliateProfileStatusActive,
		CreatedAt:     time.Now(),
		UpdatedAt:     time.Now(),
	}
	if err := db.Create(&row).Error; err != nil {
		t.Fatalf("create affiliate profile failed: %v", err)
	}
	return row
}

func createCommissionTestAttribution(t *testing.T, db *gorm.DB, profileID, userID uint) models.Attribution {
	t.Helper()

	now := time.Now()
	row := models.Attribution{
		AffiliateProfileID: profileID,
		VisitorKey:         fmt.Sprintf("visitor-%d-%d", profileID, userID),
		UserID:             &userID,
		FirstClickAt:       now,
		LastClickAt:        now,
		WindowExpiresAt:    now.Add(24 * time.Hour),
		IsActive:           true,
		BoundAt:            &now,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := db.Create(&row).Error; err != nil {
		t.Fatalf("create attribution failed: %v", err)
	}
	return row
}

func createCommissionTestOrder(t *testing.T, db *gorm.DB, userID uint, status, subtotal, shipping, codSurcharge string) models.Order {
	t.Helper()

	items := mustMoney(t, subtotal)
	shippingFee := mustMoney(t, shipping)
	surcharge := mustMoney(t, codSurcharge)
	row := models.Order{
		OrderNo:       fmt.Sprintf("GN%d", time.Now().UnixNano()),
		UserID:        userID,
		Status:        status,
		Currency:      "USD",
		ItemsSubtotal: items,
		ShippingFee:   shippingFee,
		CODSurcharge:  surcharge,
		TotalAmount:   items.AddMoney(shippingFee).AddMoney(surcharge),
		PaymentMethod: constants.PaymentMethodOnline,
		CreatedAt:     time.Now(),
		UpdatedAt:     time.Now(),
	}
	if err := db.Create(&row).Error; err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	return row
}

func reloadCommissionTestProfile(t *testing.T, db *gorm.DB, profileID uint) models.AffiliateProfile {
	t.Helper()

	var row models.AffiliateProfile
	if err := db.First(&row, profileID).Error; err != nil {
		t.Fatalf("reload profile failed: %v", err)
	}
	return row
}

func mustMoney(t *testing.T, raw string) models.Money {
	t.Helper()

	money, err := models.NewMoneyFromString(raw)
	if err != nil {
		t.Fatalf("parse money %q failed: %v", raw, err)
	}
	return money
}
