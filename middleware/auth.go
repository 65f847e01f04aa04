package middleware

import (
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/cgartco6/apex-studio-platform/db"
)

func userFromToken(c *gin.Context) (db.User, bool) {
	header := c.GetHeader("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return db.User{}, false
	}
	tokenString := strings.TrimPrefix(header, "Bearer ")

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(os.Getenv("SECRET")), nil
	})
	if err != nil || !token.Valid {
		return db.User{}, false
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return db.User{}, false
	}
	if exp, ok := claims["exp"].(float64); ok && float64(time.Now().Unix()) > exp {
		return db.User{}, false
	}

	sub, ok := claims["sub"].(float64)
	if !ok {
		return db.User{}, false
	}

	var user db.User
	if err := db.DB.First(&user, uint(sub)).Error; err != nil {
		return db.User{}, false
	}
	return user, true
}

// RequireAuth loads the authenticated user into the context.
func RequireAuth(c *gin.Context) {
	user, ok := userFromToken(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	c.Set("user", user)
	c.Set("userID", user.ID)
	c.Next()
}

// AdminAuth requires an authenticated admin user.
func AdminAuth(c *gin.Context) {
	user, ok := userFromToken(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	if user.Role != db.RoleAdmin {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Admin access required"})
		return
	}
	c.Set("user", user)
	c.Set("userID", user.ID)
	c.Next()
}
