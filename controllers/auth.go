package controllers

import (
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/cgartco6/apex-studio-platform/db"
	"github.com/cgartco6/apex-studio-platform/email"
)

func Signup(c *gin.Context) {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		Name     string `json:"name"`
		Ref      string `json:"ref"` // referral code of the inviter, if any
	}

	if c.BindJSON(&body) != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Failed to read body",
		})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(body.Password), 10)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Failed to hash password.",
		})
		return
	}

	user := db.User{
		Email:    body.Email,
		Password: string(hash),
		Name:     body.Name,
		Role:     db.RoleClient,

		FreeCredits:        Pricing.SignupCredits,
		Plan:               "free",
		SubscriptionStatus: "none",

		IsVerified:  false,
		VerifyToken: uuid.New().String(),
		TokenExpiry: time.Now().Add(24 * time.Hour),

		ReferredBy: body.Ref,
	}

	if err := Referral.Register(db.DB, &user); err != nil {
		zap.L().Error("failed to create user", zap.String("email", user.Email), zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Failed to create user",
		})
		return
	}

	go func() {
		if err := email.SendVerificationEmail(user.Email, user.VerifyToken); err != nil {
			zap.L().Warn("verification email failed", zap.String("to", user.Email), zap.Error(err))
		}
	}()

	c.JSON(http.StatusOK, gin.H{})
}

func Login(c *gin.Context) {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	if c.BindJSON(&body) != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Failed to read body",
		})
		return
	}

	var user db.User
	db.DB.First(&user, "email = ?", body.Email)
	if user.ID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid email or password",
		})
		return
	}

	if !user.IsVerified {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Email not verified, please click the link in the verification email",
		})
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(body.Password)); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid email or password",
		})
		return
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": user.ID,
		"exp": time.Now().Add(time.Hour * 24 * 30).Unix(),
	})

	tokenString, err := token.SignedString([]byte(os.Getenv("SECRET")))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Failed to create token",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token": tokenString,
	})
}

// Me reports the authenticated user's profile.
func Me(c *gin.Context) {
	user, _ := c.Get("user")
	userinfo := user.(db.User)

	c.JSON(http.StatusOK, gin.H{
		"email":             userinfo.Email,
		"name":              userinfo.Name,
		"role":              userinfo.Role,
		"plan":              userinfo.Plan,
		"free_credits":      userinfo.FreeCredits,
		"purchased_credits": userinfo.PurchasedCredits,
		"used_credits":      userinfo.UsedCredits,
		"referral_code":     userinfo.ReferralCode,
		"referral_link":     userinfo.ReferralLink,
	})
}
