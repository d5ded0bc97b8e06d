package service

import (
	"fmt"
	"sort"
	"strings"

	"github.com/grocer-next/internal/constants"
	"github.com/grocer-next/internal/models"
)

const (
	payoutTaxRateMin       = 0
	payoutTaxRateMax       = 100
	payoutProcessingFeeMin = 0
	payoutCountryCodeRunes = 2
)

var payoutSupportedMethods = []string{constants.PayoutMethodBank, constants.PayoutMethodPayPal}

var payoutBankFieldNames = []string{"account_name", "account_no", "bank_name", "bank_branch"}

// PayoutCountryRule 单个国家的提现规则
type PayoutCountryRule struct {
	TaxRatePercent float64  `json:"tax_rate_percent"`
	ProcessingFee  float64  `json:"processing_fee"`
	Methods        []string `json:"methods"`
	BankFields     []string `json:"bank_fields"`
}

// PayoutFeeSetting 按国家划分的提现税费表
type PayoutFeeSetting struct {
	Countries map[string]PayoutCountryRule `json:"countries"`
}

// PayoutFeeDefaultSetting 默认提现税费表
func PayoutFeeDefaultSetting() PayoutFeeSetting {
	return NormalizePayoutFeeSetting(PayoutFeeSetting{
		Countries: map[string]PayoutCountryRule{
			"US": {
				TaxRatePercent: 0,
				ProcessingFee:  1,
				Methods:        []string{constants.PayoutMethodBank, constants.PayoutMethodPayPal},
				BankFields:     []string{"account_name", "account_no", "bank_name"},
			},
			"GB": {
				TaxRatePercent: 0,
				ProcessingFee:  1,
				Methods:        []string{constants.PayoutMethodBank, constants.PayoutMethodPayPal},
				BankFields:     []string{"account_name", "account_no", "bank_name"},
			},
			"DE": {
				TaxRatePercent: 5,
				ProcessingFee:  1.5,
				Methods:        []string{constants.PayoutMethodBank, constants.PayoutMethodPayPal},
				BankFields:     []string{"account_name", "account_no", "bank_name"},
			},
			"CN": {
				TaxRatePercent: 6,
				ProcessingFee:  2,
				Methods:        []string{constants.PayoutMethodBank},
				BankFields:     []string{"account_name", "account_no", "bank_name", "bank_branch"},
			},
		},
	})
}

// NormalizePayoutFeeSetting 归一化提现税费表
func NormalizePayoutFeeSetting(setting PayoutFeeSetting) PayoutFeeSetting {
	normalized := PayoutFeeSetting{Countries: make(map[string]PayoutCountryRule, len(setting.Countries))}
	for country, rule := range setting.Countries {
		code := normalizePayoutCountryCode(country)
		if code == "" {
			continue
		}
		normalized.Countries[code] = normalizePayoutCountryRule(rule)
	}
	return normalized
}

func normalizePayoutCountryCode(raw string) string {
	code := strings.ToUpper(strings.TrimSpace(raw))
	if len([]rune(code)) != payoutCountryCodeRunes {
		return ""
	}
	return code
}

func normalizePayoutCountryRule(rule PayoutCountryRule) PayoutCountryRule {
	rule.TaxRatePercent = roundSettingDecimal(rule.TaxRatePercent)
	if rule.TaxRatePercent < payoutTaxRateMin {
		rule.TaxRatePercent = payoutTaxRateMin
	}
	if rule.TaxRatePercent > payoutTaxRateMax {
		rule.TaxRatePercent = payoutTaxRateMax
	}

	rule.ProcessingFee = roundSettingDecimal(rule.ProcessingFee)
	if rule.ProcessingFee < payoutProcessingFeeMin {
		rule.ProcessingFee = payoutProcessingFeeMin
	}

	rule.Methods = normalizePayoutNameList(rule.Methods, payoutSupportedMethods)
	rule.BankFields = normalizePayoutNameList(rule.BankFields, payoutBankFieldNames)
	return rule
}

// normalizePayoutNameList 去重、小写并过滤到允许集合
func normalizePayoutNameList(values, allowed []string) []string {
	allowedSet := make(map[string]struct{}, len(allowed))
	for _, name := range allowed {
		allowedSet[name] = struct{}{}
	}

	result := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, raw := range values {
		name := strings.ToLower(strings.TrimSpace(raw))
		if name == "" {
			continue
		}
		if _, ok := allowedSet[name]; !ok {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		result = append(result, name)
	}
	sort.Strings(result)
	return result
}

// ValidatePayoutFeeSetting 校验提现税费表
func ValidatePayoutFeeSetting(setting PayoutFeeSetting) error {
	for country, rule := range setting.Countries {
		if normalizePayoutCountryCode(country) == "" {
			return fmt.Errorf("%w: 国家代码必须为 ISO 3166-1 两位字母", ErrSettingInvalid)
		}
		if rule.TaxRatePercent < payoutTaxRateMin || rule.TaxRatePercent > payoutTaxRateMax {
			return fmt.Errorf("%w: 税率必须在 0-100 之间", ErrSettingInvalid)
		}
		if rule.ProcessingFee < payoutProcessingFeeMin {
			return fmt.Errorf("%w: 手续费不能小于 0", ErrSettingInvalid)
		}
		if len(normalizePayoutNameList(rule.Methods, payoutSupportedMethods)) == 0 {
			return fmt.Errorf("%w: 国家 %s 未配置可用提现方式", ErrSettingInvalid, country)
		}
	}
	return nil
}

// PayoutFeeSettingToMap 将提现税费表转换为 settings 存储结构
func PayoutFeeSettingToMap(setting PayoutFeeSetting) map[string]interface{} {
	normalized := NormalizePayoutFeeSetting(setting)
	countries := make(map[string]interface{}, len(normalized.Countries))
	for country, rule := range normalized.Countries {
		countries[country] = map[string]interface{}{
			"tax_rate_percent": rule.TaxRatePercent,
			"processing_fee":   rule.ProcessingFee,
			"methods":          append([]string(nil), rule.Methods...),
			"bank_fields":      append([]string(nil), rule.BankFields...),
		}
	}
	return map[string]interface{}{"countries": countries}
}

func payoutFeeSettingFromJSON(raw models.JSON, fallback PayoutFeeSetting) PayoutFeeSetting {
	countriesRaw, ok := raw["countries"].(map[string]interface{})
	if !ok {
		return fallback
	}

	result := PayoutFeeSetting{Countries: make(map[string]PayoutCountryRule, len(countriesRaw))}
	for country, ruleRaw := range countriesRaw {
		ruleMap, ok := ruleRaw.(map[string]interface{})
		if !ok {
			continue
		}
		rule := PayoutCountryRule{}
		if parsed, err := parseSettingFloat(ruleMap["tax_rate_percent"]); err == nil {
			rule.TaxRatePercent = parsed
		}
		if parsed, err := parseSettingFloat(ruleMap["processing_fee"]); err == nil {
			rule.ProcessingFee = parsed
		}
		rule.Methods = normalizeSettingStringList(ruleMap["methods"])
		rule.BankFields = normalizeSettingStringList(ruleMap["bank_fields"])
		result.Countries[country] = rule
	}
	if len(result.Countries) == 0 {
		return fallback
	}
	return NormalizePayoutFeeSetting(result)
}

func normalizePayoutFeeSettingMap(value map[string]interface{}) models.JSON {
	setting := payoutFeeSettingFromJSON(models.JSON(value), PayoutFeeDefaultSetting())
	return models.JSON(PayoutFeeSettingToMap(setting))
}

// GetPayoutFeeSetting 获取提现税费表（优先 settings，空时回退默认）
func (s *SettingService) GetPayoutFeeSetting() (PayoutFeeSetting, error) {
	fallback := PayoutFeeDefaultSetting()
	if s == nil {
		return fallback, nil
	}

	value, err := s.GetByKey(constants.SettingKeyPayoutFeeConfig)
	if err != nil {
		return fallback, err
	}
	if value == nil {
		return fallback, nil
	}
	return payoutFeeSettingFromJSON(value, fallback), nil
}

// UpdatePayoutFeeSetting 更新提现税费表
func (s *SettingService) UpdatePayoutFeeSetting(setting PayoutFeeSetting) (PayoutFeeSetting, error) {
	normalized := NormalizePayoutFeeSetting(setting)
	if err := ValidatePayoutFeeSetting(normalized); err != nil {
		return PayoutFeeDefaultSetting(), err
	}
	if _, err := s.Update(constants.SettingKeyPayoutFeeConfig, PayoutFeeSettingToMap(normalized)); err != nil {
		return PayoutFeeDefaultSetting(), err
	}
	return normalized, nil
}

// RuleForCountry 查表取国家规则
func (s PayoutFeeSetting) RuleForCountry(country string) (PayoutCountryRule, bool) {
	code := normalizePayoutCountryCode(country)
	if code == "" {
		return PayoutCountryRule{}, false
	}
	rule, ok := s.Countries[code]
	return rule, ok
}

// SupportsMethod 国家规则是否支持指定提现方式
func (r PayoutCountryRule) SupportsMethod(method string) bool {
	name := strings.ToLower(strings.TrimSpace(method))
	for _, m := range r.Methods {
		if m == name {
			return true
		}
	}
	return false
}
