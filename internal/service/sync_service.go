package service

import (
	"strings"
	"time"

	"github.com/grocer-next/internal/constants"
	"github.com/grocer-next/internal/logger"
	"github.com/grocer-next/internal/models"
	"github.com/grocer-next/internal/repository"

	"gorm.io/gorm"
)

const bulkSyncBatchSize = 200

// SyncService 佣金审批与双账本同步服务。
// 状态机：pending → approved → synced（synced 体现为 approved + synced_to_legacy），
// pending → rejected 为终态。审批与同步拆成两个事务，同步失败可由补偿重跑恢复。
type SyncService struct {
	repo          repository.CommissionRepository
	affiliateRepo repository.AffiliateRepository
}

// NewSyncService 创建同步服务
func NewSyncService(repo repository.CommissionRepository, affiliateRepo repository.AffiliateRepository) *SyncService {
	return &SyncService{repo: repo, affiliateRepo: affiliateRepo}
}

// SyncReport 批量同步结果
type SyncReport struct {
	Synced  int `json:"synced"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

// Approve 审批通过归因佣金，随后立即尝试同步到结算账本。
// 同步失败不回滚审批结果，留待批量同步补偿。
func (s *SyncService) Approve(commissionID, adminID uint) (*models.AttributionCommission, error) {
	if commissionID == 0 {
		return nil, ErrCommissionNotFound
	}

	var commission *models.AttributionCommission
	err := s.repo.Transaction(func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		locked, err := txRepo.GetAttributionCommissionByIDForUpdate(commissionID)
		if err != nil {
			return err
		}
		if locked == nil {
			return ErrCommissionNotFound
		}
		if locked.Status != constants.AttributionCommissionStatusPending {
			return ErrCommissionStatusInvalid
		}

		now := time.Now()
		locked.Status = constants.AttributionCommissionStatusApproved
		locked.ReviewedBy = &adminID
		locked.ReviewedAt = &now
		if err := txRepo.UpdateAttributionCommission(locked); err != nil {
			return err
		}
		commission = locked
		return nil
	})
	if err != nil {
		return nil, err
	}

	if _, err := s.syncOne(commissionID); err != nil {
		logger.Warnw("佣金审批后同步失败，等待批量补偿", "commission_id", commissionID, "error", err)
	}

	refreshed, err := s.repo.GetAttributionCommissionByID(commissionID)
	if err != nil || refreshed == nil {
		return commission, nil
	}
	return refreshed, nil
}

// Reject 驳回归因佣金，不触碰结算账本
func (s *SyncService) Reject(commissionID, adminID uint, reason string) (*models.AttributionCommission, error) {
	if commissionID == 0 {
		return nil, ErrCommissionNotFound
	}

	var commission *models.AttributionCommission
	err := s.repo.Transaction(func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		locked, err := txRepo.GetAttributionCommissionByIDForUpdate(commissionID)
		if err != nil {
			return err
		}
		if locked == nil {
			return ErrCommissionNotFound
		}
		if locked.Status != constants.AttributionCommissionStatusPending {
			return ErrCommissionStatusInvalid
		}

		now := time.Now()
		locked.Status = constants.AttributionCommissionStatusRejected
		locked.ReviewedBy = &adminID
		locked.ReviewedAt = &now
		locked.RejectReason = strings.TrimSpace(reason)
		if err := txRepo.UpdateAttributionCommission(locked); err != nil {
			return err
		}
		commission = locked
		return nil
	})
	if err != nil {
		return nil, err
	}
	return commission, nil
}

// syncOne 把一条已审批的归因佣金同步到结算账本，同事务给推广用户入账。
// 已同步的记录返回 false 表示跳过，整个操作可安全重放。
func (s *SyncService) syncOne(commissionID uint) (bool, error) {
	synced := false
	err := s.repo.Transaction(func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		commission, err := txRepo.GetAttributionCommissionByIDForUpdate(commissionID)
		if err != nil {
			return err
		}
		if commission == nil {
			return ErrCommissionNotFound
		}
		if commission.SyncedToLegacy {
			return nil
		}
		if commission.Status != constants.AttributionCommissionStatusApproved {
			return nil
		}

		now := time.Now()
		orderID := commission.OrderID

		existing, err := txRepo.GetReferralCommissionByOrderID(orderID)
		if err != nil {
			return err
		}
		if existing == nil {
			legacy := &models.ReferralCommission{
				AffiliateProfileID: commission.AffiliateProfileID,
				UserID:             commission.UserID,
				UserEmail:          commission.UserEmail,
				ReferralCode:       commission.ReferralCode,
				OrderID:            &orderID,
				Source:             constants.ReferralCommissionSourceAttributionSync,
				BaseAmount:         commission.BaseAmount,
				RatePercent:        commission.RatePercent,
				Amount:             commission.CommissionAmount,
				Status:             constants.ReferralCommissionStatusApproved,
			}
			if err := txRepo.CreateReferralCommission(legacy); err != nil {
				return err
			}
			if err := s.affiliateRepo.WithTx(tx).CreditBalance(commission.AffiliateProfileID, commission.CommissionAmount, now); err != nil {
				return err
			}
		} else {
			// 复用已有行，不重复入账
			existing.Source = constants.ReferralCommissionSourceAttributionSync
			existing.Status = constants.ReferralCommissionStatusApproved
			if err := txRepo.UpdateReferralCommission(existing); err != nil {
				return err
			}
		}

		commission.SyncedToLegacy = true
		commission.SyncedAt = &now
		if err := txRepo.UpdateAttributionCommission(commission); err != nil {
			return err
		}
		synced = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return synced, nil
}

// BulkSync 批量同步所有已审批未同步的佣金。
// 逐条独立事务，单条失败只计数不中断，重跑恰好处理剩余未同步部分。
func (s *SyncService) BulkSync() (SyncReport, error) {
	report := SyncReport{}
	failed := make(map[uint]struct{})
	for {
		ids, err := s.repo.ListApprovedUnsyncedIDs(bulkSyncBatchSize)
		if err != nil {
			return report, err
		}

		progressed := false
		for _, id := range ids {
			// 失败的记录留在未同步集合里，跳过避免同一轮反复重试
			if _, ok := failed[id]; ok {
				continue
			}
			synced, err := s.syncOne(id)
			if err != nil {
				report.Failed++
				failed[id] = struct{}{}
				logger.Warnw("批量同步单条佣金失败", "commission_id", id, "error", err)
				continue
			}
			progressed = true
			if synced {
				report.Synced++
			} else {
				report.Skipped++
			}
		}

		if !progressed || len(ids) < bulkSyncBatchSize {
			return report, nil
		}
	}
}

// GetSyncStatus 实时统计同步进度，永不缓存
func (s *SyncService) GetSyncStatus() (repository.SyncStatusCounts, error) {
	return s.repo.SyncStatusCounts()
}
