package controllers

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// RevenueMetrics reports the in-memory revenue rollups plus a short forecast.
// Admin-only; the numbers cover this process's lifetime only.
func RevenueMetrics(c *gin.Context) {
	now := time.Now()
	c.JSON(200, gin.H{
		"metrics":    Revenue.Metrics(now),
		"projection": Revenue.Project(now, 7),
	})
}

// RevenueProjection forecasts the next n days from today's growth rate.
func RevenueProjection(c *gin.Context) {
	days := 7
	if raw := c.Query("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 365 {
			c.JSON(400, gin.H{"error": "days must be between 1 and 365"})
			return
		}
		days = n
	}
	c.JSON(200, gin.H{"projection": Revenue.Project(time.Now(), days)})
}
