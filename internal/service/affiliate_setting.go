package service

import (
	"fmt"
	"math"

	"github.com/grocer-next/internal/constants"
	"github.com/grocer-next/internal/models"
)

const (
	affiliateCommissionRateMin      = 0
	affiliateCommissionRateMax      = 100
	affiliateAttributionHoursMin    = 1
	affiliateAttributionHoursMax    = 24 * 365
	affiliateMinPayoutAmountMin     = 0
	affiliateSignupBonusAmountMin   = 0
	affiliateDefaultCommissionRate  = 5
	affiliateDefaultWindowHours     = 24
	affiliateDefaultMinPayoutAmount = 20
)

// AffiliateSetting 推广返利配置
type AffiliateSetting struct {
	Enabled                bool    `json:"enabled"`
	CommissionRate         float64 `json:"commission_rate"`
	AttributionWindowHours int     `json:"attribution_window_hours"`
	MinPayoutAmount        float64 `json:"min_payout_amount"`
	SignupBonusAmount      float64 `json:"signup_bonus_amount"`
}

// AffiliateDefaultSetting 默认推广返利配置
func AffiliateDefaultSetting() AffiliateSetting {
	return NormalizeAffiliateSetting(AffiliateSetting{
		Enabled:                true,
		CommissionRate:         affiliateDefaultCommissionRate,
		AttributionWindowHours: affiliateDefaultWindowHours,
		MinPayoutAmount:        affiliateDefaultMinPayoutAmount,
		SignupBonusAmount:      0,
	})
}

// NormalizeAffiliateSetting 归一化推广返利配置
func NormalizeAffiliateSetting(setting AffiliateSetting) AffiliateSetting {
	setting.CommissionRate = roundSettingDecimal(setting.CommissionRate)
	if setting.CommissionRate < affiliateCommissionRateMin {
		setting.CommissionRate = affiliateCommissionRateMin
	}
	if setting.CommissionRate > affiliateCommissionRateMax {
		setting.CommissionRate = affiliateCommissionRateMax
	}

	if setting.AttributionWindowHours < affiliateAttributionHoursMin {
		setting.AttributionWindowHours = affiliateDefaultWindowHours
	}
	if setting.AttributionWindowHours > affiliateAttributionHoursMax {
		setting.AttributionWindowHours = affiliateAttributionHoursMax
	}

	setting.MinPayoutAmount = roundSettingDecimal(setting.MinPayoutAmount)
	if setting.MinPayoutAmount < affiliateMinPayoutAmountMin {
		setting.MinPayoutAmount = affiliateMinPayoutAmountMin
	}

	setting.SignupBonusAmount = roundSettingDecimal(setting.SignupBonusAmount)
	if setting.SignupBonusAmount < affiliateSignupBonusAmountMin {
		setting.SignupBonusAmount = affiliateSignupBonusAmountMin
	}

	return setting
}

// ValidateAffiliateSetting 校验推广返利配置
func ValidateAffiliateSetting(setting AffiliateSetting) error {
	normalized := NormalizeAffiliateSetting(setting)
	if normalized.CommissionRate < affiliateCommissionRateMin || normalized.CommissionRate > affiliateCommissionRateMax {
		return fmt.Errorf("%w: 返利比例必须在 0-100 之间", ErrSettingInvalid)
	}
	if normalized.AttributionWindowHours < affiliateAttributionHoursMin || normalized.AttributionWindowHours > affiliateAttributionHoursMax {
		return fmt.Errorf("%w: 归因窗口小时数超出允许范围", ErrSettingInvalid)
	}
	if normalized.MinPayoutAmount < affiliateMinPayoutAmountMin {
		return fmt.Errorf("%w: 最低提现金额不能小于 0", ErrSettingInvalid)
	}
	return nil
}

// AffiliateSettingToMap 将推广返利配置转换为 settings 存储结构
func AffiliateSettingToMap(setting AffiliateSetting) map[string]interface{} {
	normalized := NormalizeAffiliateSetting(setting)
	return map[string]interface{}{
		"enabled":                  normalized.Enabled,
		"commission_rate":          normalized.CommissionRate,
		"attribution_window_hours": normalized.AttributionWindowHours,
		"min_payout_amount":        normalized.MinPayoutAmount,
		"signup_bonus_amount":      normalized.SignupBonusAmount,
	}
}

func affiliateSettingFromJSON(raw models.JSON, fallback AffiliateSetting) AffiliateSetting {
	result := fallback

	if enabledRaw, ok := raw["enabled"]; ok {
		result.Enabled = parseSettingBool(enabledRaw)
	}
	if rateRaw, ok := raw["commission_rate"]; ok {
		if parsed, err := parseSettingFloat(rateRaw); err == nil {
			result.CommissionRate = parsed
		}
	}
	if hoursRaw, ok := raw["attribution_window_hours"]; ok {
		if parsed, err := parseSettingInt(hoursRaw); err == nil {
			result.AttributionWindowHours = parsed
		}
	}
	if minPayoutRaw, ok := raw["min_payout_amount"]; ok {
		if parsed, err := parseSettingFloat(minPayoutRaw); err == nil {
			result.MinPayoutAmount = parsed
		}
	}
	if bonusRaw, ok := raw["signup_bonus_amount"]; ok {
		if parsed, err := parseSettingFloat(bonusRaw); err == nil {
			result.SignupBonusAmount = parsed
		}
	}

	return NormalizeAffiliateSetting(result)
}

func normalizeAffiliateSettingMap(value map[string]interface{}) models.JSON {
	setting := affiliateSettingFromJSON(models.JSON(value), AffiliateDefaultSetting())
	return models.JSON(AffiliateSettingToMap(setting))
}

// GetAffiliateSetting 获取推广返利设置（优先 settings，空时回退默认）
func (s *SettingService) GetAffiliateSetting() (AffiliateSetting, error) {
	fallback := AffiliateDefaultSetting()
	if s == nil {
		return fallback, nil
	}

	value, err := s.GetByKey(constants.SettingKeyAffiliateConfig)
	if err != nil {
		return fallback, err
	}
	if value == nil {
		return fallback, nil
	}
	return affiliateSettingFromJSON(value, fallback), nil
}

// UpdateAffiliateSetting 更新推广返利设置
func (s *SettingService) UpdateAffiliateSetting(setting AffiliateSetting) (AffiliateSetting, error) {
	normalized := NormalizeAffiliateSetting(setting)
	if err := ValidateAffiliateSetting(normalized); err != nil {
		return AffiliateDefaultSetting(), err
	}
	if _, err := s.Update(constants.SettingKeyAffiliateConfig, AffiliateSettingToMap(normalized)); err != nil {
		return AffiliateDefaultSetting(), err
	}
	return normalized, nil
}

func roundSettingDecimal(value float64) float64 {
	return math.Round(value*100) / 100
}
