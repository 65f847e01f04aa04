package controllers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cgartco6/apex-studio-platform/db"
)

// ListProducts is the public catalog, optionally filtered by category and
// ordered by trending score.
func ListProducts(c *gin.Context) {
	query := db.DB.Model(&db.Product{})
	if category := c.Query("category"); category != "" {
		query = query.Where("category = ?", category)
	}

	var products []db.Product
	if err := query.Order("trending_score DESC").Find(&products).Error; err != nil {
		c.JSON(500, gin.H{"error": "Failed to fetch products"})
		return
	}
	c.JSON(200, gin.H{"products": products})
}

func GetProduct(c *gin.Context) {
	var product db.Product
	if err := db.DB.Preload("Reviews").First(&product, c.Param("id")).Error; err != nil {
		c.JSON(404, gin.H{"error": "Product not found"})
		return
	}
	c.JSON(200, gin.H{"product": product})
}

type ProductRequest struct {
	Name          string `json:"name"`
	Description   string `json:"description"`
	Category      string `json:"category"`
	Price         int64  `json:"price"`
	DiscountPrice int64  `json:"discount_price"`
	AIGenerated   bool   `json:"ai_generated"`
}

func CreateProduct(c *gin.Context) {
	var req ProductRequest
	if err := c.BindJSON(&req); err != nil || req.Name == "" || req.Price <= 0 {
		c.JSON(400, gin.H{"error": "Invalid request"})
		return
	}

	product := db.Product{
		Name:          req.Name,
		Description:   req.Description,
		Category:      req.Category,
		Price:         req.Price,
		DiscountPrice: req.DiscountPrice,
		AIGenerated:   req.AIGenerated,
	}
	if err := db.DB.Create(&product).Error; err != nil {
		c.JSON(500, gin.H{"error": "Failed to create product"})
		return
	}
	c.JSON(200, gin.H{"product": product})
}

func UpdateProduct(c *gin.Context) {
	var product db.Product
	if err := db.DB.First(&product, c.Param("id")).Error; err != nil {
		c.JSON(404, gin.H{"error": "Product not found"})
		return
	}

	var req ProductRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(400, gin.H{"error": "Invalid request"})
		return
	}

	if req.Name != "" {
		product.Name = req.Name
	}
	if req.Description != "" {
		product.Description = req.Description
	}
	if req.Category != "" {
		product.Category = req.Category
	}
	if req.Price > 0 {
		product.Price = req.Price
	}
	product.DiscountPrice = req.DiscountPrice

	if err := db.DB.Save(&product).Error; err != nil {
		c.JSON(500, gin.H{"error": "Failed to update product"})
		return
	}
	c.JSON(200, gin.H{"product": product})
}

func DeleteProduct(c *gin.Context) {
	if err := db.DB.Delete(&db.Product{}, c.Param("id")).Error; err != nil {
		c.JSON(500, gin.H{"error": "Failed to delete product"})
		return
	}
	c.JSON(200, gin.H{})
}

func AddReview(c *gin.Context) {
	user, ok := c.Get("user")
	if !ok {
		c.JSON(401, gin.H{"error": "Unauthorized"})
		return
	}

	var req struct {
		Rating  int    `json:"rating"`
		Comment string `json:"comment"`
	}
	if err := c.BindJSON(&req); err != nil || req.Rating < 1 || req.Rating > 5 {
		c.JSON(400, gin.H{"error": "Rating must be between 1 and 5"})
		return
	}

	productID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(400, gin.H{"error": "Invalid product id"})
		return
	}
	var product db.Product
	if err := db.DB.First(&product, uint(productID)).Error; err != nil {
		c.JSON(404, gin.H{"error": "Product not found"})
		return
	}

	review := db.Review{
		ProductID: product.ID,
		UserID:    user.(db.User).ID,
		Rating:    req.Rating,
		Comment:   req.Comment,
	}
	if err := db.DB.Create(&review).Error; err != nil {
		c.JSON(500, gin.H{"error": "Failed to add review"})
		return
	}
	c.JSON(200, gin.H{"review": review})
}

// consumeCredit burns one AI credit: free credits first, then purchased.
func consumeCredit(user *db.User) bool {
	if user.FreeCredits > 0 {
		user.FreeCredits--
	} else if user.PurchasedCredits > 0 {
		user.PurchasedCredits--
	} else {
		return false
	}
	user.UsedCredits++
	return db.DB.Model(user).Updates(map[string]interface{}{
		"free_credits":      user.FreeCredits,
		"purchased_credits": user.PurchasedCredits,
		"used_credits":      user.UsedCredits,
	}).Error == nil
}

// GenerateMarketingCopy asks the content model for promo copy for a product.
// Costs one AI credit.
func GenerateMarketingCopy(c *gin.Context) {
	user, ok := c.Get("user")
	if !ok {
		c.JSON(401, gin.H{"error": "Unauthorized"})
		return
	}
	userinfo := user.(db.User)

	var req struct {
		Audience string `json:"audience"`
	}
	if err := c.BindJSON(&req); err != nil {
		c.JSON(400, gin.H{"error": "Invalid request"})
		return
	}
	if req.Audience == "" {
		req.Audience = "small business owners"
	}

	var product db.Product
	if err := db.DB.First(&product, c.Param("id")).Error; err != nil {
		c.JSON(404, gin.H{"error": "Product not found"})
		return
	}

	if !consumeCredit(&userinfo) {
		c.JSON(402, gin.H{"error": "No AI credits remaining"})
		return
	}

	text, err := Designer.MarketingCopy(product.Name, req.Audience)
	if err != nil {
		zap.L().Error("marketing copy generation failed", zap.Uint("product", product.ID), zap.Error(err))
		c.JSON(502, gin.H{"error": "Content generation failed"})
		return
	}

	c.JSON(200, gin.H{
		"product_id": product.ID,
		"copy":       text,
		"credits": gin.H{
			"free":      userinfo.FreeCredits,
			"purchased": userinfo.PurchasedCredits,
			"used":      userinfo.UsedCredits,
		},
	})
}

// GenerateDesignBrief turns an order item's specs into a brief for the
// design agent. Costs one AI credit.
func GenerateDesignBrief(c *gin.Context) {
	user, ok := c.Get("user")
	if !ok {
		c.JSON(401, gin.H{"error": "Unauthorized"})
		return
	}
	userinfo := user.(db.User)

	var item db.OrderItem
	if err := db.DB.First(&item, c.Param("item_id")).Error; err != nil {
		c.JSON(404, gin.H{"error": "Order item not found"})
		return
	}
	var order db.Order
	if err := db.DB.First(&order, item.OrderID).Error; err != nil {
		c.JSON(404, gin.H{"error": "Order not found"})
		return
	}
	if order.UserID != userinfo.ID && userinfo.Role != db.RoleAdmin {
		c.JSON(403, gin.H{"error": "Forbidden"})
		return
	}
	if item.DesignSpecs == "" {
		c.JSON(400, gin.H{"error": "Order item has no design specs"})
		return
	}

	if !consumeCredit(&userinfo) {
		c.JSON(402, gin.H{"error": "No AI credits remaining"})
		return
	}

	brief, err := Designer.DesignBrief(item.DesignSpecs)
	if err != nil {
		zap.L().Error("design brief generation failed", zap.Uint("item", item.ID), zap.Error(err))
		c.JSON(502, gin.H{"error": "Content generation failed"})
		return
	}

	c.JSON(200, gin.H{"item_id": item.ID, "brief": brief})
}
