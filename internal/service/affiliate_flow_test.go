package service

import (
	"fmt"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/grocer-next/internal/config"
	"github.com/grocer-next/internal/constants"
	"github.com/grocer-next/internal/models"
	"github.com/grocer-next/internal/repository"
	"gorm.io/gorm"
)

type affiliateFlowServices struct {
	attribution *AttributionService
	userAuth    *UserAuthService
	order       *OrderService
	sync        *SyncService
	payout      *PayoutService
}

func setupAffiliateFlowTest(t *testing.T) (affiliateFlowServices, *gorm.DB) {
	t.Helper()

	dsn := fmt.Sprintf("file:affiliate_flow_%d?mode=memory&cache=shared", time.Now().UnixNano())
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
		&models.Category{},
		&models.Product{},
		&models.Order{},
		&models.OrderItem{},
		&models.PayoutRequest{},
		&models.PayoutMethod{},
	); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}

	settingSvc := NewSettingService(newMockSettingRepo())
	if _, err := settingSvc.UpdateAffiliateSetting(AffiliateSetting{
		Enabled:                true,
		CommissionRate:         5,
		AttributionWindowHours: 24,
		MinPayoutAmount:        20,
	}); err != nil {
		t.Fatalf("init affiliate setting failed: %v", err)
	}

	attributionRepo := repository.NewAttributionRepository(db)
	affiliateRepo := repository.NewAffiliateRepository(db)
	userRepo := repository.NewUserRepository(db)
	commissionRepo := repository.NewCommissionRepository(db)
	orderRepo := repository.NewOrderRepository(db)

	attributionSvc := NewAttributionService(attributionRepo, affiliateRepo, userRepo, settingSvc)
	commissionSvc := NewCommissionService(
		commissionRepo, attributionSvc, affiliateRepo, attributionRepo, userRepo, orderRepo, settingSvc,
	)
	cfg := &config.Config{
		UserJWT: config.JWTConfig{SecretKey: "flow-test-secret", ExpireHours: 24},
	}
	return affiliateFlowServices{
		attribution: attributionSvc,
		userAuth:    NewUserAuthService(cfg, userRepo, attributionSvc, commissionSvc),
		order: NewOrderService(
			orderRepo,
			repository.NewProductRepository(db),
			settingSvc,
			commissionSvc,
			nil,
			config.OrderConfig{
				PaymentExpireMinutes: 30,
				Currency:             "USD",
				ShippingFee:          "500.00",
				CODSurcharge:         "0",
			},
		),
		sync:   NewSyncService(commissionRepo, affiliateRepo),
		payout: NewPayoutService(repository.NewPayoutRepository(db), affiliateRepo, commissionRepo, settingSvc, "USD"),
	}, db
}

// 从推广链接点击到提现清零的完整链路。
func TestAffiliateFlowClickToPayout(t *testing.T) {
	svcs, db := setupAffiliateFlowTest(t)

	grower := createAttributionTestUser(t, db, "grower-flow@example.com")
	profile := createAttributionTestProfile(t, db, grower.ID, "FARM9001", constants.AffiliateProfileStatusActive)

	// 访客点击推广链接
	visitorKey := "visitor-flow"
	sessionKey := "session-flow"
	click, err := svcs.attribution.RecordClick(AttributionTrackClickInput{
		AffiliateCode: "farm9001",
		VisitorKey:    visitorKey,
		SessionKey:    sessionKey,
		LandingPath:   "/bundles/family-veg-box",
	})
	if err != nil || click == nil {
		t.Fatalf("record click failed: %v", err)
	}

	// 一小时内注册，归因绑定到新用户
	shopper, _, _, err := svcs.userAuth.Register(UserRegisterInput{
		Email:      "shopper-flow@example.com",
		Password:   "Gr0cery?Pass",
		VisitorKey: visitorKey,
		SessionKey: sessionKey,
	})
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	bound, err := repository.NewAttributionRepository(db).GetByID(click.ID)
	if err != nil || bound == nil {
		t.Fatalf("reload attribution failed: %v", err)
	}
	if bound.UserID == nil || *bound.UserID != shopper.ID {
		t.Fatalf("expected attribution bound to shopper %d, got %+v", shopper.ID, bound.UserID)
	}

	// 下单：商品小计 5000，配送费 500
	vegBox := createOrderTestProduct(t, db, "family-veg-box", "2500.00", 3)
	order, err := svcs.order.CreateOrder(CreateOrderInput{
		UserID:        shopper.ID,
		Items:         []CreateOrderItem{{ProductID: vegBox.ID, Quantity: 2}},
		PaymentMethod: constants.PaymentMethodOnline,
	})
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	if !order.ItemsSubtotal.Decimal.Equal(mustMoney(t, "5000.00").Decimal) {
		t.Fatalf("expected subtotal 5000.00, got %s", order.ItemsSubtotal)
	}
	if !order.TotalAmount.Decimal.Equal(mustMoney(t, "5500.00").Decimal) {
		t.Fatalf("expected total 5500.00, got %s", order.TotalAmount)
	}

	// 支付触发佣金：基数剔除配送费，5% 得 250，入归因账本为待审核
	if _, err := svcs.order.PayOrder(order.ID); err != nil {
		t.Fatalf("pay order failed: %v", err)
	}
	var commission models.AttributionCommission
	if err := db.Where("order_id = ?", order.ID).First(&commission).Error; err != nil {
		t.Fatalf("load commission failed: %v", err)
	}
	if !commission.BaseAmount.Decimal.Equal(mustMoney(t, "5000.00").Decimal) {
		t.Fatalf("expected base 5000.00 excluding shipping, got %s", commission.BaseAmount)
	}
	if !commission.CommissionAmount.Decimal.Equal(mustMoney(t, "250.00").Decimal) {
		t.Fatalf("expected commission 250.00, got %s", commission.CommissionAmount)
	}
	if commission.Status != constants.AttributionCommissionStatusPending {
		t.Fatalf("expected pending commission, got %s", commission.Status)
	}
	if balance := reloadPayoutTestProfile(t, db, profile.ID).Balance; !balance.Decimal.IsZero() {
		t.Fatalf("expected balance untouched before approval, got %s", balance)
	}

	// 审批即同步：结算账本入账，余额到账
	approved, err := svcs.sync.Approve(commission.ID, 42)
	if err != nil {
		t.Fatalf("approve failed: %v", err)
	}
	if approved.Status != constants.AttributionCommissionStatusApproved || !approved.SyncedToLegacy {
		t.Fatalf("expected approved and synced, got %+v", approved)
	}
	legacy, err := repository.NewCommissionRepository(db).GetReferralCommissionByOrderID(order.ID)
	if err != nil || legacy == nil {
		t.Fatalf("expected legacy ledger row, got %v (err %v)", legacy, err)
	}
	if legacy.Status != constants.ReferralCommissionStatusApproved ||
		!legacy.Amount.Decimal.Equal(mustMoney(t, "250.00").Decimal) {
		t.Fatalf("unexpected legacy row: %+v", legacy)
	}
	if balance := reloadPayoutTestProfile(t, db, profile.ID).Balance; !balance.Decimal.Equal(mustMoney(t, "250.00").Decimal) {
		t.Fatalf("expected balance 250.00 after sync, got %s", balance)
	}

	// 全额提现，余额清零
	payout, err := svcs.payout.RequestPayout(grower.ID, PayoutApplyInput{
		Amount:      mustMoney(t, "250.00"),
		Method:      constants.PayoutMethodPayPal,
		Country:     "US",
		AccountNo:   "grower-flow@example.com",
		AccountName: "Grower Flow",
	})
	if err != nil {
		t.Fatalf("request payout failed: %v", err)
	}
	if payout.Status != constants.PayoutStatusPending {
		t.Fatalf("expected pending payout, got %s", payout.Status)
	}
	if balance := reloadPayoutTestProfile(t, db, profile.ID).Balance; !balance.Decimal.IsZero() {
		t.Fatalf("expected balance drained to zero, got %s", balance)
	}
}
