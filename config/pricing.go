package config

import (
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v2"
)

// TierBonus is a one-time payout granted when a referrer's conversion count
// first lands exactly on Referrals.
type TierBonus struct {
	Referrals int   `yaml:"referrals"`
	Bonus     int64 `yaml:"bonus"` // cents
}

// Pricing holds the commercial rules loaded from pricing.yaml. All amounts
// are in cents (ZAR by default).
type Pricing struct {
	Currency         string      `yaml:"currency"`
	TaxRate          string      `yaml:"tax_rate"`
	CommissionRate   string      `yaml:"commission_rate"`
	TierBonuses      []TierBonus `yaml:"tier_bonuses"`
	SignupCredits    int         `yaml:"signup_credits"`
	DailyClientGoal  int         `yaml:"daily_client_goal"`
	DailyRevenueGoal int64       `yaml:"daily_revenue_goal"`

	taxRate        decimal.Decimal
	commissionRate decimal.Decimal
}

// DefaultPricing matches the launch campaign: 15% tax, 40% referral
// commission on the R500 course, tier bonuses at 5/10/20 conversions,
// daily goals of 250 clients and R125,000.
func DefaultPricing() *Pricing {
	p := &Pricing{
		Currency:         "ZAR",
		TaxRate:          "0.15",
		CommissionRate:   "0.40",
		TierBonuses:      []TierBonus{{5, 50000}, {10, 150000}, {20, 500000}},
		SignupCredits:    10,
		DailyClientGoal:  250,
		DailyRevenueGoal: 12500000,
	}
	p.taxRate = decimal.RequireFromString(p.TaxRate)
	p.commissionRate = decimal.RequireFromString(p.CommissionRate)
	return p
}

// LoadPricing reads pricing.yaml from path, falling back to defaults for any
// field left unset. A missing file is not an error.
func LoadPricing(path string) (*Pricing, error) {
	p := DefaultPricing()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return p, nil
		}
		return nil, fmt.Errorf("read pricing file: %w", err)
	}

	if err := yaml.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("parse pricing file: %w", err)
	}

	p.taxRate, err = decimal.NewFromString(p.TaxRate)
	if err != nil {
		return nil, fmt.Errorf("invalid tax_rate %q: %w", p.TaxRate, err)
	}
	p.commissionRate, err = decimal.NewFromString(p.CommissionRate)
	if err != nil {
		return nil, fmt.Errorf("invalid commission_rate %q: %w", p.CommissionRate, err)
	}

	return p, nil
}

// TaxOn returns the tax due on a subtotal, rounded to whole cents.
func (p *Pricing) TaxOn(subtotal int64) int64 {
	return decimal.NewFromInt(subtotal).Mul(p.taxRate).Round(0).IntPart()
}

// CommissionOn returns the referral commission on a sale amount.
func (p *Pricing) CommissionOn(amount int64) int64 {
	return decimal.NewFromInt(amount).Mul(p.commissionRate).Round(0).IntPart()
}
