package referral_test

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/cgartco6/apex-studio-platform/config"
	"github.com/cgartco6/apex-studio-platform/db"
	"github.com/cgartco6/apex-studio-platform/referral"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatal("open sqlite:", err)
	}
	if err := gdb.AutoMigrate(&db.User{}); err != nil {
		t.Fatal("migrate:", err)
	}
	return gdb
}

// testPricing loads a pricing file with small literal tiers so the arithmetic
// below stays readable.
func testPricing(t *testing.T) *config.Pricing {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pricing.yaml")
	data := []byte(`
commission_rate: "0.4"
tier_bonuses:
  - referrals: 5
    bonus: 500
  - referrals: 10
    bonus: 1500
  - referrals: 20
    bonus: 5000
`)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatal(err)
	}
	p, err := config.LoadPricing(path)
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func newReferrer(t *testing.T, gdb *gorm.DB, tr *referral.Tracker) *db.User {
	t.Helper()
	user := db.User{Email: "referrer@example.com", Name: "Ref"}
	if err := tr.Register(gdb, &user); err != nil {
		t.Fatal(err)
	}
	return &user
}

func TestRegisterAssignsCodeAndLink(t *testing.T) {
	gdb := testDB(t)
	tr := referral.NewTracker(testPricing(t), "https://apex.example", nil)

	user := newReferrer(t, gdb, tr)
	if len(user.ReferralCode) != 8 {
		t.Error("Expected an 8-char referral code, got", user.ReferralCode)
	}
	if user.ReferralLink != "https://apex.example/r/"+user.ReferralCode {
		t.Error("Expected link built from the public URL, got", user.ReferralLink)
	}

	var stored db.User
	if err := gdb.First(&stored, user.ID).Error; err != nil {
		t.Fatal(err)
	}
	if stored.ReferralCode != user.ReferralCode {
		t.Error("Expected the code persisted on the user row")
	}
}

func TestProcessSaleCommission(t *testing.T) {
	gdb := testDB(t)
	tr := referral.NewTracker(testPricing(t), "https://apex.example", nil)
	user := newReferrer(t, gdb, tr)

	result, err := tr.ProcessSale(gdb, user.ReferralCode, 500)
	if err != nil {
		t.Fatal(err)
	}
	if result.Commission != 200 {
		t.Error("Expected 200 commission on a 500 sale, got", result.Commission)
	}
	if result.Bonus != 0 {
		t.Error("Expected no bonus on the first conversion, got", result.Bonus)
	}
	if result.Conversions != 1 {
		t.Error("Expected 1 conversion, got", result.Conversions)
	}

	var stored db.User
	gdb.First(&stored, user.ID)
	if stored.ReferralEarnings != 200 || stored.ReferralConversions != 1 {
		t.Error("Expected earnings written back to the user row, got",
			stored.ReferralEarnings, stored.ReferralConversions)
	}
}

func TestTierBonusOnExactThreshold(t *testing.T) {
	gdb := testDB(t)
	tr := referral.NewTracker(testPricing(t), "https://apex.example", nil)
	user := newReferrer(t, gdb, tr)

	var total int64
	for i := 1; i <= 5; i++ {
		result, err := tr.ProcessSale(gdb, user.ReferralCode, 500)
		if err != nil {
			t.Fatal(err)
		}
		total += result.Commission + result.Bonus

		if i < 5 && result.Bonus != 0 {
			t.Error("Expected no bonus at conversion", i, "got", result.Bonus)
		}
		if i == 5 && result.Bonus != 500 {
			t.Error("Expected the 500 tier bonus at conversion 5, got", result.Bonus)
		}
	}

	if total != 5*200+500 {
		t.Error("Expected 1500 total earned, got", total)
	}
}

// A referrer reseeded past a threshold never lands on it and forfeits that
// bonus: the match is exact, not >=.
func TestTierBonusForfeitedWhenSkipped(t *testing.T) {
	gdb := testDB(t)
	tr := referral.NewTracker(testPricing(t), "https://apex.example", nil)

	user := db.User{
		Email:               "seeded@example.com",
		ReferralCode:        "SEEDED01",
		ReferralConversions: 5, // already past: next sale lands on 6
	}
	if err := gdb.Create(&user).Error; err != nil {
		t.Fatal(err)
	}

	result, err := tr.ProcessSale(gdb, "SEEDED01", 500)
	if err != nil {
		t.Fatal(err)
	}
	if result.Conversions != 6 {
		t.Error("Expected conversions reseeded from the user row, got", result.Conversions)
	}
	if result.Bonus != 0 {
		t.Error("Expected the tier-5 bonus forfeited, got", result.Bonus)
	}
}

// The code column carries a unique index; a second row with the same code
// must be rejected by the database itself.
func TestReferralCodesAreUnique(t *testing.T) {
	gdb := testDB(t)

	first := db.User{Email: "one@example.com", ReferralCode: "SAMECODE"}
	if err := gdb.Create(&first).Error; err != nil {
		t.Fatal(err)
	}

	second := db.User{Email: "two@example.com", ReferralCode: "SAMECODE"}
	if err := gdb.Create(&second).Error; err == nil {
		t.Error("Expected a duplicate referral code to be rejected")
	}
}

func TestProcessSaleUnknownCode(t *testing.T) {
	gdb := testDB(t)
	tr := referral.NewTracker(testPricing(t), "https://apex.example", nil)

	if _, err := tr.ProcessSale(gdb, "NOSUCH00", 500); err != referral.ErrUnknownCode {
		t.Error("Expected ErrUnknownCode, got", err)
	}
}

func TestClickCountsOnlyKnownCodes(t *testing.T) {
	gdb := testDB(t)
	tr := referral.NewTracker(testPricing(t), "https://apex.example", nil)
	user := newReferrer(t, gdb, tr)

	tr.Click(user.ReferralCode)
	tr.Click(user.ReferralCode)
	tr.Click("NOSUCH00") // ignored

	stats, err := tr.Stats(gdb, user.ReferralCode)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Clicks != 2 {
		t.Error("Expected 2 clicks, got", stats.Clicks)
	}
}
