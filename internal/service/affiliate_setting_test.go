package service

import (
	"testing"

	"github.com/grocer-next/internal/constants"
	"github.com/grocer-next/internal/models"
)

type mockSettingRepo struct {
	store map[string]models.JSON
}

func newMockSettingRepo() *mockSettingRepo {
	return &mockSettingRepo{store: map[string]models.JSON{}}
}

func (m *mockSettingRepo) GetByKey(key string) (*models.Setting, error) {
	value, ok := m.store[key]
	if !ok {
		return nil, nil
	}
	return &models.Setting{Key: key, ValueJSON: value}, nil
}

func (m *mockSettingRepo) Upsert(key string, value models.JSON) (*models.Setting, error) {
	m.store[key] = value
	return &models.Setting{Key: key, ValueJSON: value}, nil
}

func TestGetAffiliateSettingFallback(t *testing.T) {
	repo := newMockSettingRepo()
	svc := NewSettingService(repo)

	setting, err := svc.GetAffiliateSetting()
	if err != nil {
		t.Fatalf("get affiliate setting failed: %v", err)
	}
	if !setting.Enabled {
		t.Fatalf("expected default enabled true")
	}
	if setting.CommissionRate != 5 {
		t.Fatalf("expected default commission rate 5, got %v", setting.CommissionRate)
	}
	if setting.AttributionWindowHours != 24 {
		t.Fatalf("expected default attribution window 24h, got %d", setting.AttributionWindowHours)
	}
	if setting.MinPayoutAmount != 20 {
		t.Fatalf("expected default min payout amount 20, got %v", setting.MinPayoutAmount)
	}
	if setting.SignupBonusAmount != 0 {
		t.Fatalf("expected default signup bonus 0, got %v", setting.SignupBonusAmount)
	}
}

func TestUpdateAffiliateSettingNormalize(t *testing.T) {
	repo := newMockSettingRepo()
	svc := NewSettingService(repo)

	setting, err := svc.UpdateAffiliateSetting(AffiliateSetting{
		Enabled:                true,
		CommissionRate:         123.456,
		AttributionWindowHours: -5,
		MinPayoutAmount:        -100.239,
		SignupBonusAmount:      -1,
	})
	if err != nil {
		t.Fatalf("update affiliate setting failed: %v", err)
	}
	if !setting.Enabled {
		t.Fatalf("expected enabled true")
	}
	if setting.CommissionRate != 100 {
		t.Fatalf("expected commission rate clamp to 100, got %v", setting.CommissionRate)
	}
	if setting.AttributionWindowHours != 24 {
		t.Fatalf("expected window hours fall back to 24, got %d", setting.AttributionWindowHours)
	}
	if setting.MinPayoutAmount != 0 {
		t.Fatalf("expected min payout amount clamp to 0, got %v", setting.MinPayoutAmount)
	}
	if setting.SignupBonusAmount != 0 {
		t.Fatalf("expected signup bonus clamp to 0, got %v", setting.SignupBonusAmount)
	}

	saved, ok := repo.store[constants.SettingKeyAffiliateConfig]
	if !ok {
		t.Fatalf("expected affiliate setting saved")
	}
	if saved["commission_rate"] != 100.0 {
		t.Fatalf("expected saved commission rate 100, got %v", saved["commission_rate"])
	}
}

func TestAffiliateSettingFromJSONStringNumbers(t *testing.T) {
	repo := newMockSettingRepo()
	repo.store[constants.SettingKeyAffiliateConfig] = models.JSON{
		"enabled":                  true,
		"commission_rate":          "7.5",
		"attribution_window_hours": "48",
		"min_payout_amount":        "10",
	}
	svc := NewSettingService(repo)

	setting, err := svc.GetAffiliateSetting()
	if err != nil {
		t.Fatalf("get affiliate setting failed: %v", err)
	}
	if setting.CommissionRate != 7.5 {
		t.Fatalf("expected commission rate 7.5, got %v", setting.CommissionRate)
	}
	if setting.AttributionWindowHours != 48 {
		t.Fatalf("expected attribution window 48h, got %d", setting.AttributionWindowHours)
	}
	if setting.MinPayoutAmount != 10 {
		t.Fatalf("expected min payout amount 10, got %v", setting.MinPayoutAmount)
	}
}
