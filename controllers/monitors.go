package controllers

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cgartco6/apex-studio-platform/db"
	"github.com/cgartco6/apex-studio-platform/gateway"
)

// StartTrendingMonitor periodically rescores the catalog from the last 7
// days of paid order lines and the review averages.
func StartTrendingMonitor(interval time.Duration) {
	go func() {
		for {
			rescoreProducts()
			time.Sleep(interval)
		}
	}()
}

func rescoreProducts() {
	var products []db.Product
	if err := db.DB.Find(&products).Error; err != nil {
		zap.L().Error("trending rescore: load products", zap.Error(err))
		return
	}

	since := time.Now().AddDate(0, 0, -7)

	for i := range products {
		p := &products[i]

		var recentOrders int64
		db.DB.Model(&db.OrderItem{}).
			Joins("JOIN orders ON orders.id = order_items.order_id").
			Where("order_items.product_id = ? AND orders.payment_status = ? AND order_items.created_at > ?",
				p.ID, db.PaymentCompleted, since).
			Count(&recentOrders)

		var avgRating float64
		db.DB.Model(&db.Review{}).
			Where("product_id = ?", p.ID).
			Select("COALESCE(AVG(rating), 0)").Scan(&avgRating)

		p.TrendingScore = float64(recentOrders)*10 + avgRating*2
		p.PopularityScore = p.PopularityScore*0.9 + p.TrendingScore*0.1

		if err := db.DB.Model(p).Updates(map[string]interface{}{
			"trending_score":   p.TrendingScore,
			"popularity_score": p.PopularityScore,
		}).Error; err != nil {
			zap.L().Warn("trending rescore: update product", zap.Uint("product", p.ID), zap.Error(err))
		}
	}

	zap.L().Info("trending scores updated", zap.Int("products", len(products)))
}

// RecomputeTrending triggers an immediate rescore outside the monitor cycle.
func RecomputeTrending(c *gin.Context) {
	rescoreProducts()
	c.JSON(200, gin.H{})
}

// StartPaymentMonitor cancels payment attempts that sat unpaid past the
// timeout and frees their reserved EFT amounts for reuse.
func StartPaymentMonitor(timeout time.Duration) {
	go func() {
		for {
			expireStalePayments(timeout)
			time.Sleep(time.Minute)
		}
	}()
}

func expireStalePayments(timeout time.Duration) {
	cutoff := time.Now().Add(-timeout)

	var stale []db.Payment
	if err := db.DB.
		Where("status IN ? AND created_at < ?", []string{db.PaymentPending, db.PaymentProcessing}, cutoff).
		Find(&stale).Error; err != nil {
		zap.L().Error("payment monitor: load stale payments", zap.Error(err))
		return
	}

	for i := range stale {
		p := &stale[i]
		p.Status = db.PaymentCancelled
		if err := db.DB.Save(p).Error; err != nil {
			zap.L().Warn("payment monitor: cancel payment", zap.Uint("payment", p.ID), zap.Error(err))
			continue
		}
		if p.Gateway == "direct-eft" && p.ReferenceAmount > 0 {
			gateway.ReleaseEFTAmount(p.ReferenceAmount)
		}
		zap.L().Info("stale payment cancelled", zap.Uint("payment", p.ID), zap.String("gateway", p.Gateway))
	}
}
