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

func TestRequestPayoutDebitsBalanceAndComputesNet(t *testing.T) {
	svc, db := setupPayoutServiceTest(t)

	user, profile := createPayoutTestProfile(t, db, "PAYU0001", "100.00")

	req, err := svc.RequestPayout(user.ID, PayoutApplyInput{
		Amount:      mustMoney(t, "25.00"),
		Method:      constants.PayoutMethodPayPal,
		Country:     "us",
		AccountNo:   "payee@example.com",
		AccountName: "Payee",
	})
	if err != nil {
		t.Fatalf("request payout failed: %v", err)
	}
	if req.Status != constants.PayoutStatusPending {
		t.Fatalf("expected pending payout, got %s", req.Status)
	}
	if req.Country != "US" {
		t.Fatalf("expected country normalized to US, got %s", req.Country)
	}
	// 美国规则：税率 0、手续费 1
	if !req.TaxAmount.Decimal.IsZero() {
		t.Fatalf("expected zero tax, got %s", req.TaxAmount)
	}
	if !req.FeeAmount.Decimal.Equal(mustMoney(t, "1.00").Decimal) {
		t.Fatalf("expected fee 1.00, got %s", req.FeeAmount)
	}
	if !req.NetAmount.Decimal.Equal(mustMoney(t, "24.00").Decimal) {
		t.Fatalf("expected net 24.00, got %s", req.NetAmount)
	}
	if req.PayoutNo == "" {
		t.Fatalf("expected payout number assigned")
	}

	reloaded := reloadPayoutTestProfile(t, db, profile.ID)
	if !reloaded.Balance.Decimal.Equal(mustMoney(t, "75.00").Decimal) {
		t.Fatalf("expected balance 75.00 after debit, got %s", reloaded.Balance)
	}
}

func TestRequestPayoutAppliesCountryTax(t *testing.T) {
	svc, db := setupPayoutServiceTest(t)

	user, _ := createPayoutTestProfile(t, db, "PAYU0002", "100.00")

	// 中国规则：税率 6%、手续费 2、仅银行卡且需开户行
	req, err := svc.RequestPayout(user.ID, PayoutApplyInput{
		Amount:      mustMoney(t, "50.00"),
		Method:      constants.PayoutMethodBank,
		Country:     "CN",
		AccountName: "收款人",
		AccountNo:   "6222000011112222",
		BankName:    "Test Bank",
		BankBranch:  "City Branch",
	})
	if err != nil {
		t.Fatalf("request payout failed: %v", err)
	}
	if !req.TaxAmount.Decimal.Equal(mustMoney(t, "3.00").Decimal) {
		t.Fatalf("expected tax 3.00, got %s", req.TaxAmount)
	}
	if !req.NetAmount.Decimal.Equal(mustMoney(t, "45.00").Decimal) {
		t.Fatalf("expected net 45.00, got %s", req.NetAmount)
	}
}

func TestRequestPayoutValidation(t *testing.T) {
	svc, db := setupPayoutServiceTest(t)

	user, profile := createPayoutTestProfile(t, db, "PAYU0003", "30.00")
	stranger := createPayoutTestUser(t, db, "stranger@example.com")

	base := PayoutApplyInput{
		Amount:      mustMoney(t, "25.00"),
		Method:      constants.PayoutMethodPayPal,
		Country:     "US",
		AccountNo:   "payee@example.com",
		AccountName: "Payee",
	}

	cases := []struct {
		name    string
		userID  uint
		mutate  func(input PayoutApplyInput) PayoutApplyInput
		wantErr error
	}{
		{
			name:   "zero amount",
			userID: user.ID,
			mutate: func(in PayoutApplyInput) PayoutApplyInput {
				in.Amount = models.Money{}
				return in
			},
			wantErr: ErrPayoutAmountInvalid,
		},
		{
			name:   "below minimum",
			userID: user.ID,
			mutate: func(in PayoutApplyInput) PayoutApplyInput {
				in.Amount = mustMoney(t, "10.00")
				return in
			},
			wantErr: ErrPayoutBelowMinimum,
		},
		{
			name:    "no affiliate profile",
			userID:  stranger.ID,
			mutate:  func(in PayoutApplyInput) PayoutApplyInput { return in },
			wantErr: ErrAffiliateNotOpened,
		},
		{
			name:   "exceeds balance",
			userID: user.ID,
			mutate: func(in PayoutApplyInput) PayoutApplyInput {
				in.Amount = mustMoney(t, "500.00")
				return in
			},
			wantErr: ErrPayoutInsufficientFunds,
		},
		{
			name:   "unsupported country",
			userID: user.ID,
			mutate: func(in PayoutApplyInput) PayoutApplyInput {
				in.Country = "FR"
				return in
			},
			wantErr: ErrPayoutMethodInvalid,
		},
		{
			name:   "method not allowed for country",
			userID: user.ID,
			mutate: func(in PayoutApplyInput) PayoutApplyInput {
				in.Country = "CN"
				in.Method = constants.PayoutMethodPayPal
				return in
			},
			wantErr: ErrPayoutMethodInvalid,
		},
		{
			name:   "bank fields missing",
			userID: user.ID,
			mutate: func(in PayoutApplyInput) PayoutApplyInput {
				in.Method = constants.PayoutMethodBank
				in.BankName = ""
				return in
			},
			wantErr: ErrPayoutFieldsMissing,
		},
	}

	for _, tc := range cases {
		if _, err := svc.RequestPayout(tc.userID, tc.mutate(base)); err != tc.wantErr {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.wantErr, err)
		}
	}

	reloaded := reloadPayoutTestProfile(t, db, profile.ID)
	if !reloaded.Balance.Decimal.Equal(mustMoney(t, "30.00").Decimal) {
		t.Fatalf("expected balance untouched by failed requests, got %s", reloaded.Balance)
	}
}

func TestRequestPayoutRejectsWhenFeeExceedsAmount(t *testing.T) {
	svc, db := setupPayoutServiceTest(t)

	user, _ := createPayoutTestProfile(t, db, "PAYU0004", "100.00")
	if _, err := svc.settingService.UpdateAffiliateSetting(AffiliateSetting{
		Enabled:                true,
		CommissionRate:         5,
		AttributionWindowHours: 24,
		MinPayoutAmount:        0,
	}); err != nil {
		t.Fatalf("update setting failed: %v", err)
	}

	_, err := svc.RequestPayout(user.ID, PayoutApplyInput{
		Amount:      mustMoney(t, "0.50"),
		Method:      constants.PayoutMethodPayPal,
		Country:     "US",
		AccountNo:   "payee@example.com",
		AccountName: "Payee",
	})
	if err != ErrPayoutFeeExceedsAmount {
		t.Fatalf("expected ErrPayoutFeeExceedsAmount, got %v", err)
	}
}

func TestRequestPayoutRejectsSecondPendingRequest(t *testing.T) {
	svc, db := setupPayoutServiceTest(t)

	user, _ := createPayoutTestProfile(t, db, "PAYU0005", "100.00")
	input := PayoutApplyInput{
		Amount:      mustMoney(t, "20.00"),
		Method:      constants.PayoutMethodPayPal,
		Country:     "US",
		AccountNo:   "payee@example.com",
		AccountName: "Payee",
	}

	if _, err := svc.RequestPayout(user.ID, input); err != nil {
		t.Fatalf("first request failed: %v", err)
	}
	if _, err := svc.RequestPayout(user.ID, input); err != ErrPayoutPendingExists {
		t.Fatalf("expected ErrPayoutPendingExists, got %v", err)
	}
}

func TestReviewPayoutRejectRefundsBalance(t *testing.T) {
	svc, db := setupPayoutServiceTest(t)

	user, profile := createPayoutTestProfile(t, db, "PAYU0006", "60.00")
	req, err := svc.RequestPayout(user.ID, PayoutApplyInput{
		Amount:      mustMoney(t, "40.00"),
		Method:      constants.PayoutMethodPayPal,
		Country:     "US",
		AccountNo:   "payee@example.com",
		AccountName: "Payee",
	})
	if err != nil {
		t.Fatalf("request payout failed: %v", err)
	}

	reviewed, err := svc.ReviewPayout(9, req.ID, constants.PayoutActionReject, "account mismatch")
	if err != nil {
		t.Fatalf("review reject failed: %v", err)
	}
	if reviewed.Status != constants.PayoutStatusRejected {
		t.Fatalf("expected rejected payout, got %s", reviewed.Status)
	}
	if reviewed.AdminNote != "account mismatch" {
		t.Fatalf("expected admin note kept, got %q", reviewed.AdminNote)
	}

	reloaded := reloadPayoutTestProfile(t, db, profile.ID)
	if !reloaded.Balance.Decimal.Equal(mustMoney(t, "60.00").Decimal) {
		t.Fatalf("expected balance restored to 60.00, got %s", reloaded.Balance)
	}

	if _, err := svc.ReviewPayout(9, req.ID, constants.PayoutActionReject, "again"); err != ErrPayoutStatusInvalid {
		t.Fatalf("expected ErrPayoutStatusInvalid on re-review, got %v", err)
	}
}

func TestReviewPayoutPayMarksCommissionsFIFO(t *testing.T) {
	svc, db := setupPayoutServiceTest(t)

	user, profile := createPayoutTestProfile(t, db, "PAYU0007", "60.00")
	first := createPayoutTestCommission(t, db, profile.ID, 501, "30.00")
	second := createPayoutTestCommission(t, db, profile.ID, 502, "30.00")

	req, err := svc.RequestPayout(user.ID, PayoutApplyInput{
		Amount:      mustMoney(t, "50.00"),
		Method:      constants.PayoutMethodPayPal,
		Country:     "US",
		AccountNo:   "payee@example.com",
		AccountName: "Payee",
	})
	if err != nil {
		t.Fatalf("request payout failed: %v", err)
	}

	reviewed, err := svc.ReviewPayout(3, req.ID, constants.PayoutActionPay, "")
	if err != nil {
		t.Fatalf("review pay failed: %v", err)
	}
	if reviewed.Status != constants.PayoutStatusPaid {
		t.Fatalf("expected paid payout, got %s", reviewed.Status)
	}
	if reviewed.PaidAt == nil {
		t.Fatalf("expected paid_at set")
	}

	for _, id := range []uint{first.ID, second.ID} {
		var row models.ReferralCommission
		if err := db.First(&row, id).Error; err != nil {
			t.Fatalf("reload commission %d failed: %v", id, err)
		}
		if row.Status != constants.ReferralCommissionStatusPaid {
			t.Fatalf("expected commission %d paid, got %s", id, row.Status)
		}
		if row.PayoutID == nil || *row.PayoutID != req.ID {
			t.Fatalf("expected commission %d linked to payout %d, got %+v", id, req.ID, row.PayoutID)
		}
	}

	reloaded := reloadPayoutTestProfile(t, db, profile.ID)
	if !reloaded.TotalPaidOut.Decimal.Equal(mustMoney(t, "50.00").Decimal) {
		t.Fatalf("expected total paid out 50.00, got %s", reloaded.TotalPaidOut)
	}
}

func TestReviewPayoutRejectsUnknownAction(t *testing.T) {
	svc, db := setupPayoutServiceTest(t)

	user, _ := createPayoutTestProfile(t, db, "PAYU0008", "60.00")
	req, err := svc.RequestPayout(user.ID, PayoutApplyInput{
		Amount:      mustMoney(t, "20.00"),
		Method:      constants.PayoutMethodPayPal,
		Country:     "US",
		AccountNo:   "payee@example.com",
		AccountName: "Payee",
	})
	if err != nil {
		t.Fatalf("request payout failed: %v", err)
	}

	if _, err := svc.ReviewPayout(1, req.ID, "approve", ""); err != ErrPayoutStatusInvalid {
		t.Fatalf("expected ErrPayoutStatusInvalid for unknown action, got %v", err)
	}
	if _, err := svc.ReviewPayout(1, 99999, constants.PayoutActionPay, ""); err != ErrPayoutNotFound {
		t.Fatalf("expected ErrPayoutNotFound, got %v", err)
	}
}

func TestRequestPayoutSavesDefaultMethod(t *testing.T) {
	svc, db := setupPayoutServiceTest(t)

	user, profile := createPayoutTestProfile(t, db, "PAYU0009", "100.00")
	if _, err := svc.RequestPayout(user.ID, PayoutApplyInput{
		Amount:      mustMoney(t, "20.00"),
		Method:      constants.PayoutMethodPayPal,
		Country:     "US",
		AccountNo:   "payee@example.com",
		AccountName: "Payee",
		SaveMethod:  true,
	}); err != nil {
		t.Fatalf("request payout failed: %v", err)
	}

	var methods []models.PayoutMethod
	if err := db.Where("affiliate_profile_id = ?", profile.ID).Find(&methods).Error; err != nil {
		t.Fatalf("load payout methods failed: %v", err)
	}
	if len(methods) != 1 {
		t.Fatalf("expected one saved method, got %d", len(methods))
	}
	if !methods[0].IsDefault || methods[0].Method != constants.PayoutMethodPayPal {
		t.Fatalf("expected default paypal method, got %+v", methods[0])
	}
}

func setupPayoutServiceTest(t *testing.T) (*PayoutService, *gorm.DB) {
	t.Helper()

	dsn := fmt.Sprintf("file:payout_service_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(
		&models.User{},
		&models.AffiliateProfile{},
		&models.ReferralCommission{},
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

	svc := NewPayoutService(
		repository.NewPayoutRepository(db),
		repository.NewAffiliateRepository(db),
		repository.NewCommissionRepository(db),
		settingSvc,
		"USD",
	)
	return svc, db
}

func createPayoutTestUser(t *testing.T, db *gorm.DB, email string) models.User {
	t.Helper()

	row := models.User{
		Email:        email,
		PasswordHash: "hash",
		Status:       constants.UserStatusActive,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	if err := db.Create(&row).Error; err != nil {
		t.Fatalf("create user failed: %v", err)
	}
	return row
}

func createPayoutTestProfile(t *testing.T, db *gorm.DB, code, balance string) (models.User, models.AffiliateProfile) {
	t.Helper()

	user := createPayoutTestUser(t, db, fmt.Sprintf("%s@example.com", code))
	row := models.AffiliateProfile{
		UserID:        user.ID,
		AffiliateCode: code,
		Status:        constants.AffiliateProfileStatusActive,
		Balance:       mustMoney(t, balance),
		TotalEarned:   mustMoney(t, balance),
		CreatedAt:     time.Now(),
		UpdatedAt:     time.Now(),
	}
	if err := db.Create(&row).Error; err != nil {
		t.Fatalf("create affiliate profile failed: %v", err)
	}
	return user, row
}

func createPayoutTestCommission(t *testing.T, db *gorm.DB, profileID, orderID uint, amount string) models.ReferralCommission {
	t.Helper()

	id := orderID
	row := models.ReferralCommission{
		AffiliateProfileID: profileID,
		UserID:             1,
		OrderID:            &id,
		Source:             constants.ReferralCommissionSourceAttributionSync,
		Amount:             mustMoney(t, amount),
		Status:             constants.ReferralCommissionStatusApproved,
		CreatedAt:          time.Now(),
		UpdatedAt:          time.Now(),
	}
	if err := db.Create(&row).Error; err != nil {
		t.Fatalf("create referral commission failed: %v", err)
	}
	return row
}

func reloadPayoutTestProfile(t *testing.T, db *gorm.DB, profileID uint) models.AffiliateProfile {
	t.Helper()

	var row models.AffiliateProfile
	if err := db.First(&row, profileID).Error; err != nil {
		t.Fatalf("reload profile failed: %v", err)
	}
	return row
}
