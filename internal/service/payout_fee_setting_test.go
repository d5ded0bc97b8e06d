package service

import (
	"testing"

	"github.com/grocer-next/internal/constants"
)

func TestPayoutFeeRuleForCountryNormalize(t *testing.T) {
	setting := PayoutFeeDefaultSetting()

	rule, ok := setting.RuleForCountry("  us ")
	if !ok {
		t.Fatalf("expected rule for US")
	}
	if rule.TaxRatePercent != 0 || rule.ProcessingFee != 1 {
		t.Fatalf("unexpected US rule: %+v", rule)
	}
	if !rule.SupportsMethod(constants.PayoutMethodBank) || !rule.SupportsMethod(constants.PayoutMethodPayPal) {
		t.Fatalf("expected US to support bank and paypal, got %v", rule.Methods)
	}

	if _, ok := setting.RuleForCountry("FR"); ok {
		t.Fatalf("expected no rule for FR")
	}
	if _, ok := setting.RuleForCountry("USA"); ok {
		t.Fatalf("expected three-letter code rejected")
	}
}

func TestPayoutFeeDefaultSettingCNBankOnly(t *testing.T) {
	setting := PayoutFeeDefaultSetting()

	rule, ok := setting.RuleForCountry("CN")
	if !ok {
		t.Fatalf("expected rule for CN")
	}
	if rule.TaxRatePercent != 6 || rule.ProcessingFee != 2 {
		t.Fatalf("unexpected CN rule: %+v", rule)
	}
	if rule.SupportsMethod(constants.PayoutMethodPayPal) {
		t.Fatalf("expected CN to reject paypal")
	}
	found := false
	for _, field := range rule.BankFields {
		if field == "bank_branch" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected CN bank fields to require bank_branch, got %v", rule.BankFields)
	}
}

func TestNormalizePayoutFeeSettingClampsAndDropsBadCodes(t *testing.T) {
	setting := NormalizePayoutFeeSetting(PayoutFeeSetting{
		Countries: map[string]PayoutCountryRule{
			"de": {
				TaxRatePercent: 150,
				ProcessingFee:  -3,
				Methods:        []string{" BANK ", "paypal", "cash"},
				BankFields:     []string{"account_no", "account_no", "unknown_field"},
			},
			"xyz": {TaxRatePercent: 1},
		},
	})

	if _, ok := setting.Countries["XYZ"]; ok {
		t.Fatalf("expected invalid country code dropped")
	}
	rule, ok := setting.Countries["DE"]
	if !ok {
		t.Fatalf("expected DE rule kept")
	}
	if rule.TaxRatePercent != 100 {
		t.Fatalf("expected tax rate clamp to 100, got %v", rule.TaxRatePercent)
	}
	if rule.ProcessingFee != 0 {
		t.Fatalf("expected processing fee clamp to 0, got %v", rule.ProcessingFee)
	}
	if len(rule.Methods) != 2 {
		t.Fatalf("expected unsupported methods dropped, got %v", rule.Methods)
	}
	if len(rule.BankFields) != 1 || rule.BankFields[0] != "account_no" {
		t.Fatalf("expected bank fields deduped to account_no, got %v", rule.BankFields)
	}
}

func TestGetPayoutFeeSettingFallback(t *testing.T) {
	svc := NewSettingService(newMockSettingRepo())

	setting, err := svc.GetPayoutFeeSetting()
	if err != nil {
		t.Fatalf("get payout fee setting failed: %v", err)
	}
	if len(setting.Countries) == 0 {
		t.Fatalf("expected default country rules")
	}
	if _, ok := setting.RuleForCountry("GB"); !ok {
		t.Fatalf("expected default rule for GB")
	}
}
