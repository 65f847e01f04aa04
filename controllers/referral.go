package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cgartco6/apex-studio-platform/db"
	"github.com/cgartco6/apex-studio-platform/referral"
)

// ReferralStats reports the caller's own referral counters.
func ReferralStats(c *gin.Context) {
	user, ok := c.Get("user")
	if !ok {
		c.JSON(401, gin.H{"error": "Unauthorized"})
		return
	}
	userinfo := user.(db.User)

	if userinfo.ReferralCode == "" {
		c.JSON(404, gin.H{"error": "No referral code assigned"})
		return
	}

	stats, err := Referral.Stats(db.DB, userinfo.ReferralCode)
	if err != nil {
		c.JSON(500, gin.H{"error": "Failed to fetch referral stats"})
		return
	}
	c.JSON(200, gin.H{"stats": stats})
}

// ReferralClick counts a click on a referral link and redirects to the
// storefront with the code attached. Unknown codes still redirect.
func ReferralClick(c *gin.Context) {
	code := c.Param("code")
	Referral.Click(code)
	c.Redirect(http.StatusFound, Cfg.PublicURL+"/?ref="+code)
}

// ProcessReferralSale is the admin entry for attributing an out-of-band sale
// to a referral code.
func ProcessReferralSale(c *gin.Context) {
	var req struct {
		Code   string `json:"code"`
		Amount int64  `json:"amount"` // cents
	}
	if err := c.BindJSON(&req); err != nil || req.Code == "" || req.Amount <= 0 {
		c.JSON(400, gin.H{"error": "Invalid request"})
		return
	}

	result, err := Referral.ProcessSale(db.DB, req.Code, req.Amount)
	if err != nil {
		if errors.Is(err, referral.ErrUnknownCode) {
			c.JSON(404, gin.H{"error": "Unknown referral code"})
			return
		}
		c.JSON(500, gin.H{"error": "Failed to process sale"})
		return
	}
	c.JSON(200, gin.H{"result": result})
}
