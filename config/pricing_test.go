package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/cgartco6/apex-studio-platform/config"
)

func TestDefaultPricingRates(t *testing.T) {
	p := config.DefaultPricing()

	if got := p.TaxOn(50000); got != 7500 {
		t.Error("Expected 7500 tax on 50000, got", got)
	}
	if got := p.TaxOn(0); got != 0 {
		t.Error("Expected 0 tax on 0, got", got)
	}
	// rounding to whole cents
	if got := p.TaxOn(1); got != 0 {
		t.Error("Expected 0 tax on 1 cent, got", got)
	}
	if got := p.TaxOn(10); got != 2 {
		t.Error("Expected 2 (1.5 rounded) tax on 10 cents, got", got)
	}

	if got := p.CommissionOn(50000); got != 20000 {
		t.Error("Expected 20000 commission on 50000, got", got)
	}
}

func TestLoadPricingMissingFileUsesDefaults(t *testing.T) {
	p, err := config.LoadPricing(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatal("Expected missing file to fall back to defaults, got", err)
	}
	if p.Currency != "ZAR" || p.DailyClientGoal != 250 {
		t.Error("Expected default pricing values, got", p.Currency, p.DailyClientGoal)
	}
}

func TestLoadPricingOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pricing.yaml")
	data := []byte(`
currency: ZAR
tax_rate: "0.15"
commission_rate: "0.4"
tier_bonuses:
  - referrals: 5
    bonus: 500
  - referrals: 10
    bonus: 1500
daily_client_goal: 10
daily_revenue_goal: 100000
`)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatal(err)
	}

	p, err := config.LoadPricing(path)
	if err != nil {
		t.Fatal("Expected pricing file to load, got", err)
	}

	if got := p.CommissionOn(500); got != 200 {
		t.Error("Expected 200 commission on a 500 sale at 0.4, got", got)
	}
	if len(p.TierBonuses) != 2 || p.TierBonuses[0].Referrals != 5 || p.TierBonuses[0].Bonus != 500 {
		t.Error("Expected tier bonuses from the file, got", p.TierBonuses)
	}
	if p.DailyClientGoal != 10 || p.DailyRevenueGoal != 100000 {
		t.Error("Expected goal overrides, got", p.DailyClientGoal, p.DailyRevenueGoal)
	}
}

func TestLoadPricingRejectsBadRate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pricing.yaml")
	if err := os.WriteFile(path, []byte("tax_rate: \"banana\"\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := config.LoadPricing(path); err == nil {
		t.Error("Expected an error for an unparseable tax rate")
	}
}
