package service

import (
	"strings"
	"time"

	"github.com/grocer-next/internal/constants"
	"github.com/grocer-next/internal/models"
	"github.com/grocer-next/internal/repository"

	"gorm.io/gorm"
)

// AttributionService 点击归因业务服务：记录推广点击并维护最后点击归因窗口
type AttributionService struct {
	repo           repository.AttributionRepository
	affiliateRepo  repository.AffiliateRepository
	userRepo       repository.UserRepository
	settingService *SettingService
}

// NewAttributionService 创建归因服务
func NewAttributionService(
	repo repository.AttributionRepository,
	affiliateRepo repository.AffiliateRepository,
	userRepo repository.UserRepository,
	settingService *SettingService,
) *AttributionService {
	return &AttributionService{
		repo:           repo,
		affiliateRepo:  affiliateRepo,
		userRepo:       userRepo,
		settingService: settingService,
	}
}

// AttributionTrackClickInput 推广点击记录输入
type AttributionTrackClickInput struct {
	AffiliateCode string
	VisitorKey    string
	SessionKey    string
	LandingPath   string
	Referrer      string
	ClientIP      string
	UserAgent     string
}

func normalizeAffiliateCode(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}

// RecordClick 记录一次推广点击。同一访客在同一推广码下只保留一条生效归因：
// 窗口内重复点击刷新点击时间与到期时间，窗口已过则旧行失效并写入新行。
// 无效推广码与关闭状态静默忽略，点击入口不向访客暴露失败原因。
func (s *AttributionService) RecordClick(input AttributionTrackClickInput) (*models.Attribution, error) {
	if s.repo == nil {
		return nil, nil
	}
	code := normalizeAffiliateCode(input.AffiliateCode)
	visitorKey := strings.TrimSpace(input.VisitorKey)
	if code == "" || visitorKey == "" {
		return nil, nil
	}

	setting, err := s.settingService.GetAffiliateSetting()
	if err != nil {
		return nil, err
	}
	if !setting.Enabled {
		return nil, nil
	}

	profile, err := s.affiliateRepo.GetProfileByCode(code)
	if err != nil {
		return nil, err
	}
	if profile == nil || strings.TrimSpace(profile.Status) != constants.AffiliateProfileStatusActive {
		return nil, nil
	}

	now := time.Now()
	windowExpiresAt := now.Add(time.Duration(setting.AttributionWindowHours) * time.Hour)

	var result *models.Attribution
	record := func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		existing, err := txRepo.GetActiveByVisitorAndProfileForUpdate(visitorKey, profile.ID)
		if err != nil {
			return err
		}
		if existing != nil {
			if !existing.Expired(now) {
				if err := txRepo.RefreshWindow(existing.ID, now, windowExpiresAt); err != nil {
					return err
				}
				existing.LastClickAt = now
				existing.WindowExpiresAt = windowExpiresAt
				result = existing
				return nil
			}
			if err := txRepo.Deactivate(existing.ID, now); err != nil {
				return err
			}
		}

		attribution := &models.Attribution{
			AffiliateProfileID: profile.ID,
			VisitorKey:         visitorKey,
			SessionKey:         strings.TrimSpace(input.SessionKey),
			LandingPath:        strings.TrimSpace(input.LandingPath),
			Referrer:           strings.TrimSpace(input.Referrer),
			ClientIP:           strings.TrimSpace(input.ClientIP),
			UserAgent:          strings.TrimSpace(input.UserAgent),
			FirstClickAt:       now,
			LastClickAt:        now,
			WindowExpiresAt:    windowExpiresAt,
			IsActive:           true,
		}
		if err := txRepo.Create(attribution); err != nil {
			return err
		}
		result = attribution
		return nil
	}
	err = s.repo.Transaction(record)
	// 并发首次点击撞生效归因唯一索引时重试一次，改走刷新已有行的分支
	if isUniqueViolation(err) {
		err = s.repo.Transaction(record)
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}

// BindToUser 登录或注册后把浏览上下文中的归因绑定到用户。
// 找不到可绑定归因不算错误，调用方按尽力而为处理。
func (s *AttributionService) BindToUser(userID uint, userEmail, sessionKey, visitorKey string) error {
	if s.repo == nil || userID == 0 {
		return nil
	}

	attribution, err := s.repo.GetLatestUnboundByContext(sessionKey, visitorKey)
	if err != nil {
		return err
	}
	if attribution == nil || attribution.Expired(time.Now()) {
		return nil
	}

	return s.repo.BindUser(attribution.ID, userID, userEmail, time.Now())
}

// ResolveActiveForUser 订单计佣时解析用户当前生效归因。
// 到期判断由读取方执行，过期行不做清理，只视为无归因。
func (s *AttributionService) ResolveActiveForUser(userID uint, visitorKey string) (*models.Attribution, error) {
	if s.repo == nil {
		return nil, nil
	}

	now := time.Now()

	if userID != 0 {
		attribution, err := s.repo.GetLatestActiveByUserID(userID)
		if err != nil {
			return nil, err
		}
		if attribution != nil && !attribution.Expired(now) {
			return attribution, nil
		}
	}

	if key := strings.TrimSpace(visitorKey); key != "" {
		attribution, err := s.repo.GetLatestActiveByVisitorKey(key)
		if err != nil {
			return nil, err
		}
		if attribution != nil && !attribution.Expired(now) {
			return attribution, nil
		}
	}

	return nil, nil
}

// GetByID 获取归因详情
func (s *AttributionService) GetByID(id uint) (*models.Attribution, error) {
	attribution, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if attribution == nil {
		return nil, ErrAttributionNotFound
	}
	return attribution, nil
}

// ListAdminAttributions 管理端归因列表
func (s *AttributionService) ListAdminAttributions(filter repository.AttributionListFilter) ([]models.Attribution, int64, error) {
	return s.repo.List(filter)
}
