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

func TestApproveSyncsToLegacyLedger(t *testing.T) {
	svc, db := setupSyncServiceTest(t)

	profile := createSyncTestProfile(t, db, "SYNC0001")
	commission := createSyncTestCommission(t, db, profile.ID, 101, "50.00", constants.AttributionCommissionStatusPending)

	approved, err := svc.Approve(commission.ID, 7)
	if err != nil {
		t.Fatalf("approve failed: %v", err)
	}
	if approved.Status != constants.AttributionCommissionStatusApproved {
		t.Fatalf("expected approved status, got %s", approved.Status)
	}
	if !approved.SyncedToLegacy || approved.SyncedAt == nil {
		t.Fatalf("expected commission synced, got %+v", approved)
	}
	if approved.ReviewedBy == nil || *approved.ReviewedBy != 7 {
		t.Fatalf("expected reviewer 7, got %+v", approved.ReviewedBy)
	}
	if approved.ReviewedAt == nil {
		t.Fatalf("expected review timestamp set")
	}

	legacy, err := repository.NewCommissionRepository(db).GetReferralCommissionByOrderID(101)
	if err != nil || legacy == nil {
		t.Fatalf("expected legacy row, got %v (err %v)", legacy, err)
	}
	if legacy.Source != constants.ReferralCommissionSourceAttributionSync {
		t.Fatalf("expected source attribution_sync, got %s", legacy.Source)
	}
	if legacy.Status != constants.ReferralCommissionStatusApproved {
		t.Fatalf("expected approved legacy row, got %s", legacy.Status)
	}
	if !legacy.Amount.Decimal.Equal(mustMoney(t, "50.00").Decimal) {
		t.Fatalf("expected legacy amount 50.00, got %s", legacy.Amount)
	}

	reloaded := reloadSyncTestProfile(t, db, profile.ID)
	if !reloaded.Balance.Decimal.Equal(mustMoney(t, "50.00").Decimal) {
		t.Fatalf("expected balance credited 50.00, got %s", reloaded.Balance)
	}
	if !reloaded.TotalEarned.Decimal.Equal(mustMoney(t, "50.00").Decimal) {
		t.Fatalf("expected total earned 50.00, got %s", reloaded.TotalEarned)
	}
}

func TestApproveRejectsNonPendingAndMissing(t *testing.T) {
	svc, db := setupSyncServiceTest(t)

	profile := createSyncTestProfile(t, db, "SYNC0002")
	commission := createSyncTestCommission(t, db, profile.ID, 102, "10.00", constants.AttributionCommissionStatusPending)

	if _, err := svc.Approve(commission.ID, 1); err != nil {
		t.Fatalf("first approve failed: %v", err)
	}
	if _, err := svc.Approve(commission.ID, 1); err != ErrCommissionStatusInvalid {
		t.Fatalf("expected ErrCommissionStatusInvalid on re-approve, got %v", err)
	}
	if _, err := svc.Approve(99999, 1); err != ErrCommissionNotFound {
		t.Fatalf("expected ErrCommissionNotFound, got %v", err)
	}
}

func TestRejectLeavesLegacyLedgerUntouched(t *testing.T) {
	svc, db := setupSyncServiceTest(t)

	profile := createSyncTestProfile(t, db, "SYNC0003")
	commission := createSyncTestCommission(t, db, profile.ID, 103, "30.00", constants.AttributionCommissionStatusPending)

	rejected, err := svc.Reject(commission.ID, 5, "  suspicious order  ")
	if err != nil {
		t.Fatalf("reject failed: %v", err)
	}
	if rejected.Status != constants.AttributionCommissionStatusRejected {
		t.Fatalf("expected rejected status, got %s", rejected.Status)
	}
	if rejected.RejectReason != "suspicious order" {
		t.Fatalf("expected trimmed reject reason, got %q", rejected.RejectReason)
	}
	// 驳回记的是审核人而非审批通过人
	if rejected.ReviewedBy == nil || *rejected.ReviewedBy != 5 {
		t.Fatalf("expected reviewer 5 on rejected commission, got %+v", rejected.ReviewedBy)
	}
	if rejected.ReviewedAt == nil {
		t.Fatalf("expected review timestamp on rejected commission")
	}

	var legacyCount int64
	if err := db.Model(&models.ReferralCommission{}).Count(&legacyCount).Error; err != nil {
		t.Fatalf("count legacy rows failed: %v", err)
	}
	if legacyCount != 0 {
		t.Fatalf("expected no legacy row after reject, got %d", legacyCount)
	}
	reloaded := reloadSyncTestProfile(t, db, profile.ID)
	if !reloaded.Balance.Decimal.IsZero() {
		t.Fatalf("expected balance untouched, got %s", reloaded.Balance)
	}

	if _, err := svc.Reject(commission.ID, 5, "again"); err != ErrCommissionStatusInvalid {
		t.Fatalf("expected ErrCommissionStatusInvalid on re-reject, got %v", err)
	}
}

func TestSyncReusesExistingLegacyRowWithoutRecredit(t *testing.T) {
	svc, db := setupSyncServiceTest(t)

	profile := createSyncTestProfile(t, db, "SYNC0004")
	orderID := uint(104)
	commission := createSyncTestCommission(t, db, profile.ID, orderID, "40.00", constants.AttributionCommissionStatusPending)

	// 老链路已为同一订单入过账
	existing := models.ReferralCommission{
		AffiliateProfileID: profile.ID,
		UserID:             1,
		OrderID:            &orderID,
		Source:             constants.ReferralCommissionSourceOrder,
		Amount:             mustMoney(t, "40.00"),
		Status:             constants.ReferralCommissionStatusPending,
		CreatedAt:          time.Now(),
		UpdatedAt:          time.Now(),
	}
	if err := db.Create(&existing).Error; err != nil {
		t.Fatalf("seed legacy row failed: %v", err)
	}

	approved, err := svc.Approve(commission.ID, 2)
	if err != nil {
		t.Fatalf("approve failed: %v", err)
	}
	if !approved.SyncedToLegacy {
		t.Fatalf("expected commission marked synced")
	}

	var legacyCount int64
	if err := db.Model(&models.ReferralCommission{}).Where("order_id = ?", orderID).Count(&legacyCount).Error; err != nil {
		t.Fatalf("count legacy rows failed: %v", err)
	}
	if legacyCount != 1 {
		t.Fatalf("expected single legacy row reused, got %d", legacyCount)
	}

	var reused models.ReferralCommission
	if err := db.Where("order_id = ?", orderID).First(&reused).Error; err != nil {
		t.Fatalf("reload legacy row failed: %v", err)
	}
	if reused.Source != constants.ReferralCommissionSourceAttributionSync {
		t.Fatalf("expected source rewritten to attribution_sync, got %s", reused.Source)
	}
	if reused.Status != constants.ReferralCommissionStatusApproved {
		t.Fatalf("expected status approved, got %s", reused.Status)
	}

	// 复用既有行时不再入账
	reloaded := reloadSyncTestProfile(t, db, profile.ID)
	if !reloaded.Balance.Decimal.IsZero() {
		t.Fatalf("expected no double credit, got balance %s", reloaded.Balance)
	}
}

func TestBulkSyncProcessesApprovedBacklog(t *testing.T) {
	svc, db := setupSyncServiceTest(t)

	profile := createSyncTestProfile(t, db, "SYNC0005")
	for i := 0; i < 3; i++ {
		createSyncTestCommission(t, db, profile.ID, uint(200+i), "10.00", constants.AttributionCommissionStatusApproved)
	}
	// pending 记录不在补偿范围内
	createSyncTestCommission(t, db, profile.ID, 299, "10.00", constants.AttributionCommissionStatusPending)

	report, err := svc.BulkSync()
	if err != nil {
		t.Fatalf("bulk sync failed: %v", err)
	}
	if report.Synced != 3 || report.Skipped != 0 || report.Failed != 0 {
		t.Fatalf("unexpected report: %+v", report)
	}

	reloaded := reloadSyncTestProfile(t, db, profile.ID)
	if !reloaded.Balance.Decimal.Equal(mustMoney(t, "30.00").Decimal) {
		t.Fatalf("expected balance 30.00, got %s", reloaded.Balance)
	}

	// 重跑恰好处理剩余部分：已全部同步则无事可做
	report, err = svc.BulkSync()
	if err != nil {
		t.Fatalf("second bulk sync failed: %v", err)
	}
	if report.Synced != 0 || report.Failed != 0 {
		t.Fatalf("expected idempotent rerun, got %+v", report)
	}
}

func TestBulkSyncIsolatesSingleFailure(t *testing.T) {
	base, db := setupSyncServiceTest(t)

	profile := createSyncTestProfile(t, db, "SYNC0006")
	createSyncTestCommission(t, db, profile.ID, 301, "10.00", constants.AttributionCommissionStatusApproved)
	bad := createSyncTestCommission(t, db, profile.ID, 302, "10.00", constants.AttributionCommissionStatusApproved)

	repo := &failingCommissionRepo{
		CommissionRepository: repository.NewCommissionRepository(db),
		failID:               bad.ID,
	}
	svc := NewSyncService(repo, repository.NewAffiliateRepository(db))

	report, err := svc.BulkSync()
	if err != nil {
		t.Fatalf("bulk sync failed: %v", err)
	}
	if report.Synced != 1 || report.Failed != 1 {
		t.Fatalf("expected one synced one failed, got %+v", report)
	}

	// 失败记录留在未同步集合，补偿重跑可恢复
	report, err = base.BulkSync()
	if err != nil {
		t.Fatalf("recovery bulk sync failed: %v", err)
	}
	if report.Synced != 1 {
		t.Fatalf("expected failed record recovered, got %+v", report)
	}
}

func TestGetSyncStatusCountsLive(t *testing.T) {
	svc, db := setupSyncServiceTest(t)

	profile := createSyncTestProfile(t, db, "SYNC0007")
	createSyncTestCommission(t, db, profile.ID, 401, "10.00", constants.AttributionCommissionStatusPending)
	approved := createSyncTestCommission(t, db, profile.ID, 402, "10.00", constants.AttributionCommissionStatusApproved)

	counts, err := svc.GetSyncStatus()
	if err != nil {
		t.Fatalf("get sync status failed: %v", err)
	}
	if counts.Total != 2 || counts.Approved != 1 || counts.Synced != 0 || counts.Unsynced != 1 {
		t.Fatalf("unexpected counts before sync: %+v", counts)
	}

	if _, err := svc.syncOne(approved.ID); err != nil {
		t.Fatalf("sync one failed: %v", err)
	}

	counts, err = svc.GetSyncStatus()
	if err != nil {
		t.Fatalf("get sync status failed: %v", err)
	}
	if counts.Synced != 1 || counts.Unsynced != 0 {
		t.Fatalf("unexpected counts after sync: %+v", counts)
	}
}

// failingCommissionRepo 在指定记录上注入读取失败，模拟批量同步的单条故障
type failingCommissionRepo struct {
	repository.CommissionRepository
	failID uint
}

func (f *failingCommissionRepo) WithTx(tx *gorm.DB) repository.CommissionRepository {
	return &failingCommissionRepo{
		CommissionRepository: f.CommissionRepository.WithTx(tx),
		failID:               f.failID,
	}
}

func (f *failingCommissionRepo) GetAttributionCommissionByIDForUpdate(id uint) (*models.AttributionCommission, error) {
	if id == f.failID {
		return nil, fmt.Errorf("injected failure for commission %d", id)
	}
	return f.CommissionRepository.GetAttributionCommissionByIDForUpdate(id)
}

func setupSyncServiceTest(t *testing.T) (*SyncService, *gorm.DB) {
	t.Helper()

	dsn := fmt.Sprintf("file:sync_service_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(
		&models.User{},
		&models.AffiliateProfile{},
		&models.AttributionCommission{},
		&models.ReferralCommission{},
	); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}

	svc := NewSyncService(repository.NewCommissionRepository(db), repository.NewAffiliateRepository(db))
	return svc, db
}

func createSyncTestProfile(t *testing.T, db *gorm.DB, code string) models.AffiliateProfile {
	t.Helper()

	user := models.User{
		Email:        fmt.Sprintf("%s@example.com", code),
		PasswordHash: "hash",
		Status:       constants.UserStatusActive,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("create user failed: %v", err)
	}
	row := models.AffiliateProfile{
		UserID:        user.ID,
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

func createSyncTestCommission(t *testing.T, db *gorm.DB, profileID, orderID uint, amount, status string) models.AttributionCommission {
	t.Helper()

	row := models.AttributionCommission{
		AttributionID:      1,
		AffiliateProfileID: profileID,
		OrderID:            orderID,
		UserID:             1,
		BaseAmount:         mustMoney(t, amount),
		RatePercent:        models.NewMoneyFromFloat(5),
		CommissionAmount:   mustMoney(t, amount),
		Status:             status,
		CreatedAt:          time.Now(),
		UpdatedAt:          time.Now(),
	}
	if err := db.Create(&row).Error; err != nil {
		t.Fatalf("create attribution commission failed: %v", err)
	}
	return row
}

func reloadSyncTestProfile(t *testing.T, db *gorm.DB, profileID uint) models.AffiliateProfile {
	t.Helper()

	var row models.AffiliateProfile
	if err := db.First(&row, profileID).Error; err != nil {
		t.Fatalf("reload profile failed: %v", err)
	}
	return row
}
