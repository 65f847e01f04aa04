package controllers

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/cgartco6/apex-studio-platform/db"
)

func ListUsers(c *gin.Context) {
	var users []db.User
	if err := db.DB.Order("created_at DESC").Find(&users).Error; err != nil {
		c.JSON(500, gin.H{"error": "Failed to fetch users"})
		return
	}

	out := make([]gin.H, 0, len(users))
	for _, u := range users {
		out = append(out, gin.H{
			"id":          u.ID,
			"email":       u.Email,
			"name":        u.Name,
			"role":        u.Role,
			"plan":        u.Plan,
			"verified":    u.IsVerified,
			"conversions": u.ReferralConversions,
			"earnings":    u.ReferralEarnings,
			"created_at":  u.CreatedAt,
		})
	}
	c.JSON(200, gin.H{"users": out})
}

func SetRole(c *gin.Context) {
	var req struct {
		UserID uint   `json:"user_id"`
		Role   string `json:"role"`
	}
	if err := c.BindJSON(&req); err != nil || req.UserID == 0 {
		c.JSON(400, gin.H{"error": "Invalid request"})
		return
	}

	switch req.Role {
	case db.RoleClient, db.RoleDesigner, db.RoleAdmin, db.RoleAgent:
	default:
		c.JSON(400, gin.H{"error": "Unknown role"})
		return
	}

	var user db.User
	if err := db.DB.First(&user, req.UserID).Error; err != nil {
		c.JSON(404, gin.H{"error": "User not found"})
		return
	}

	user.Role = req.Role
	if err := db.DB.Save(&user).Error; err != nil {
		c.JSON(500, gin.H{"error": "Failed to update user"})
		return
	}
	c.JSON(200, gin.H{})
}

func SetPlan(c *gin.Context) {
	var req struct {
		UserID   uint   `json:"user_id"`
		Plan     string `json:"plan"`
		Months   int    `json:"months"`
	}
	if err := c.BindJSON(&req); err != nil || req.UserID == 0 || req.Plan == "" {
		c.JSON(400, gin.H{"error": "Invalid request"})
		return
	}
	if req.Months < 1 {
		req.Months = 1
	}

	var user db.User
	if err := db.DB.First(&user, req.UserID).Error; err != nil {
		c.JSON(404, gin.H{"error": "User not found"})
		return
	}

	user.Plan = req.Plan
	user.PlanStart = time.Now()
	user.PlanEnd = time.Now().AddDate(0, req.Months, 0)
	user.SubscriptionStatus = "active"
	if err := db.DB.Save(&user).Error; err != nil {
		c.JSON(500, gin.H{"error": "Failed to update user"})
		return
	}
	c.JSON(200, gin.H{})
}

// GenerateVoucher mints a redemption code for credits or a plan.
func GenerateVoucher(c *gin.Context) {
	var req struct {
		Type         string `json:"type"` // "credits" or "plan"
		Description  string `json:"description"`
		Credits      int    `json:"credits"`
		PlanName     string `json:"plan_name"`
		PlanDuration int    `json:"plan_duration"` // months
		ValidDays    int    `json:"valid_days"`
	}
	if err := c.BindJSON(&req); err != nil {
		c.JSON(400, gin.H{"error": "Invalid request"})
		return
	}

	switch req.Type {
	case "credits":
		if req.Credits <= 0 {
			c.JSON(400, gin.H{"error": "Credits voucher needs a positive credit amount"})
			return
		}
	case "plan":
		if req.PlanName == "" || req.PlanDuration <= 0 {
			c.JSON(400, gin.H{"error": "Plan voucher needs a plan name and duration"})
			return
		}
	default:
		c.JSON(400, gin.H{"error": "Unknown voucher type"})
		return
	}

	if req.ValidDays < 1 {
		req.ValidDays = 30
	}

	voucher := db.Voucher{
		Code:         strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")[:12]),
		Type:         req.Type,
		Description:  req.Description,
		ExpiresAt:    time.Now().AddDate(0, 0, req.ValidDays),
		Credits:      req.Credits,
		PlanName:     req.PlanName,
		PlanDuration: req.PlanDuration,
	}
	if err := db.DB.Create(&voucher).Error; err != nil {
		c.JSON(500, gin.H{"error": "Failed to create voucher"})
		return
	}
	c.JSON(200, gin.H{"voucher": voucher})
}
