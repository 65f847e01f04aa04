// Referral code ledger. Click and conversion counters are held in an
// in-memory map keyed by code; only cumulative totals are written back onto
// the user row. Counters are lost on process restart.

package referral

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/cgartco6/apex-studio-platform/config"
	"github.com/cgartco6/apex-studio-platform/db"
)

var ErrUnknownCode = errors.New("unknown referral code")

type entry struct {
	UserID      uint
	Clicks      int
	Conversions int
	Earnings    int64 // cents, commissions + bonuses
	BonusEarned int64 // cents, bonuses only
}

// Stats is the per-code view returned to the referrer.
type Stats struct {
	Code        string `json:"code"`
	Link        string `json:"link"`
	Clicks      int    `json:"clicks"`
	Conversions int    `json:"conversions"`
	Earnings    int64  `json:"earnings"`
	BonusEarned int64  `json:"bonus_earned"`
}

// SaleResult reports what one attributed sale paid out.
type SaleResult struct {
	Code        string `json:"code"`
	Commission  int64  `json:"commission"`
	Bonus       int64  `json:"bonus"`
	Conversions int    `json:"conversions"`
	TotalEarned int64  `json:"total_earned"`
}

type Tracker struct {
	mu      sync.Mutex
	entries map[string]*entry

	pricing   *config.Pricing
	publicURL string
	notify    func(userEmail string, commission, bonus, total int64)
}

func NewTracker(pricing *config.Pricing, publicURL string, notify func(string, int64, int64, int64)) *Tracker {
	return &Tracker{
		entries:   make(map[string]*entry),
		pricing:   pricing,
		publicURL: publicURL,
		notify:    notify,
	}
}

// GenerateCode returns a fresh 8-character uppercase referral code.
func GenerateCode() string {
	raw := strings.ReplaceAll(uuid.New().String(), "-", "")
	return strings.ToUpper(raw[:8])
}

// Register assigns a fresh referral code to a new user, persists the row and
// seeds the in-memory entry. Codes carry a unique index, so a collision with
// a code issued before the last restart fails the insert; we retry with a
// fresh code.
func (tr *Tracker) Register(gdb *gorm.DB, user *db.User) error {
	var lastErr error
	for attempt := 0; attempt < 5; attempt++ {
		code := GenerateCode()

		tr.mu.Lock()
		_, taken := tr.entries[code]
		tr.mu.Unlock()
		if taken {
			continue
		}

		user.ReferralCode = code
		user.ReferralLink = tr.publicURL + "/r/" + code
		if err := gdb.Create(user).Error; err != nil {
			lastErr = err
			continue
		}

		tr.mu.Lock()
		tr.entries[code] = &entry{UserID: user.ID}
		tr.mu.Unlock()
		return nil
	}
	return fmt.Errorf("create user with referral code: %w", lastErr)
}

// Click increments the click counter for a code. Unknown codes are ignored;
// a dead link should still redirect.
func (tr *Tracker) Click(code string) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	if e, ok := tr.entries[code]; ok {
		e.Clicks++
	}
}

// lookup finds the entry for a code, reseeding from the user row when the
// process restarted since the code was issued. Click counts do not survive
// the reseed.
func (tr *Tracker) lookup(gdb *gorm.DB, code string) (*entry, *db.User, error) {
	var user db.User
	if err := gdb.First(&user, "referral_code = ?", code).Error; err != nil {
		return nil, nil, ErrUnknownCode
	}

	tr.mu.Lock()
	defer tr.mu.Unlock()
	e, ok := tr.entries[code]
	if !ok {
		e = &entry{
			UserID:      user.ID,
			Clicks:      user.ReferralClicks,
			Conversions: user.ReferralConversions,
			Earnings:    user.ReferralEarnings,
			BonusEarned: user.ReferralBonusEarned,
		}
		tr.entries[code] = e
	}
	return e, &user, nil
}

// Stats reports the counters for a code.
func (tr *Tracker) Stats(gdb *gorm.DB, code string) (*Stats, error) {
	e, user, err := tr.lookup(gdb, code)
	if err != nil {
		return nil, err
	}

	tr.mu.Lock()
	defer tr.mu.Unlock()
	return &Stats{
		Code:        code,
		Link:        user.ReferralLink,
		Clicks:      e.Clicks,
		Conversions: e.Conversions,
		Earnings:    e.Earnings,
		BonusEarned: e.BonusEarned,
	}, nil
}

// ProcessSale attributes a sale to a code: flat-rate commission plus a tier
// bonus when the new conversion count lands exactly on a tier threshold.
// Crossing a threshold without landing on it (e.g. 4 -> 6) grants nothing.
// Updated totals are written back onto the user row as a separate,
// non-transactional step.
func (tr *Tracker) ProcessSale(gdb *gorm.DB, code string, amount int64) (*SaleResult, error) {
	e, user, err := tr.lookup(gdb, code)
	if err != nil {
		return nil, err
	}

	commission := tr.pricing.CommissionOn(amount)

	tr.mu.Lock()
	e.Conversions++
	var bonus int64
	for _, tier := range tr.pricing.TierBonuses {
		if e.Conversions == tier.Referrals {
			bonus = tier.Bonus
			break
		}
	}
	e.Earnings += commission + bonus
	e.BonusEarned += bonus
	result := &SaleResult{
		Code:        code,
		Commission:  commission,
		Bonus:       bonus,
		Conversions: e.Conversions,
		TotalEarned: e.Earnings,
	}
	clicks := e.Clicks
	bonusEarned := e.BonusEarned
	tr.mu.Unlock()

	// write-back onto the user row; no rollback of the in-memory counters if
	// this fails
	if err := gdb.Model(&db.User{}).Where("id = ?", e.UserID).Updates(map[string]interface{}{
		"referral_clicks":       clicks,
		"referral_conversions":  result.Conversions,
		"referral_earnings":     result.TotalEarned,
		"referral_bonus_earned": bonusEarned,
	}).Error; err != nil {
		zap.L().Error("referral write-back failed", zap.String("code", code), zap.Error(err))
		return result, err
	}

	if tr.notify != nil {
		go tr.notify(user.Email, commission, bonus, result.TotalEarned)
	}

	return result, nil
}
