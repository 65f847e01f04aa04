package controllers

import (
	"errors"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/cgartco6/apex-studio-platform/db"
)

// RedeemVoucher applies a voucher to a user inside a locked transaction so a
// code cannot be redeemed twice concurrently.
func RedeemVoucher(gdb *gorm.DB, userID uint, code string) error {
	return gdb.Transaction(func(tx *gorm.DB) error {
		var user db.User
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&user, userID).Error; err != nil {
			return fmt.Errorf("user not found: %w", err)
		}

		var voucher db.Voucher
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("code = ?", code).First(&voucher).Error; err != nil {
			return fmt.Errorf("voucher not found: %w", err)
		}

		if voucher.IsUsed {
			return errors.New("voucher already used")
		}
		if time.Now().After(voucher.ExpiresAt) {
			return errors.New("voucher expired")
		}

		switch voucher.Type {
		case "credits":
			user.PurchasedCredits += voucher.Credits

		case "plan":
			now := time.Now()
			user.Plan = voucher.PlanName
			user.SubscriptionStatus = "active"
			if now.After(user.PlanEnd) {
				user.PlanStart = now
				user.PlanEnd = now.AddDate(0, voucher.PlanDuration, 0)
			} else {
				// active plan: extend from the current end date
				user.PlanEnd = user.PlanEnd.AddDate(0, voucher.PlanDuration, 0)
			}

		default:
			return fmt.Errorf("unknown voucher type %q", voucher.Type)
		}

		now := time.Now()
		voucher.IsUsed = true
		voucher.RedeemedBy = user.ID
		voucher.RedeemedAt = &now

		if err := tx.Save(&user).Error; err != nil {
			return fmt.Errorf("update user: %w", err)
		}
		if err := tx.Save(&voucher).Error; err != nil {
			return fmt.Errorf("update voucher: %w", err)
		}
		return nil
	})
}

func Redeem(c *gin.Context) {
	user, ok := c.Get("user")
	if !ok {
		c.JSON(401, gin.H{"error": "Unauthorized"})
		return
	}

	var req struct {
		Code string `json:"code"`
	}
	if err := c.BindJSON(&req); err != nil || req.Code == "" {
		c.JSON(400, gin.H{"error": "Invalid request"})
		return
	}

	if err := RedeemVoucher(db.DB, user.(db.User).ID, req.Code); err != nil {
		c.JSON(400, gin.H{"error": err.Error()})
		return
	}
	c.JSON(200, gin.H{})
}
