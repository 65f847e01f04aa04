package main

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cgartco6/apex-studio-platform/config"
	"github.com/cgartco6/apex-studio-platform/controllers"
	"github.com/cgartco6/apex-studio-platform/db"
	"github.com/cgartco6/apex-studio-platform/design"
	"github.com/cgartco6/apex-studio-platform/email"
	"github.com/cgartco6/apex-studio-platform/gateway"
	"github.com/cgartco6/apex-studio-platform/middleware"
	"github.com/cgartco6/apex-studio-platform/referral"
	"github.com/cgartco6/apex-studio-platform/revenue"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	cfg, err := config.Load()
	if err != nil {
		zap.L().Fatal("config load failed", zap.Error(err))
	}
	pricing, err := config.LoadPricing("pricing.yaml")
	if err != nil {
		zap.L().Fatal("pricing load failed", zap.Error(err))
	}

	if err := db.Connect(cfg.DatabaseDSN); err != nil {
		zap.L().Fatal("database connection failed", zap.Error(err))
	}
	if err := db.Sync(); err != nil {
		zap.L().Fatal("schema migration failed", zap.Error(err))
	}

	gateway.InitStripe(cfg.StripeSecretKey)
	if err := gateway.RestoreEFTReservations(db.DB); err != nil {
		zap.L().Fatal("eft reservation restore failed", zap.Error(err))
	}

	rev := revenue.NewTracker(pricing.DailyClientGoal, pricing.DailyRevenueGoal, func(message string) {
		go func() {
			if err := email.SendRevenueAlert(message); err != nil {
				zap.L().Warn("revenue alert email failed", zap.Error(err))
			}
		}()
	})

	ref := referral.NewTracker(pricing, cfg.PublicURL, func(to string, commission, bonus, total int64) {
		if err := email.SendCommissionEmail(to, commission, bonus, total); err != nil {
			zap.L().Warn("commission email failed", zap.String("to", to), zap.Error(err))
		}
	})

	designer := design.NewClient(cfg.GenAIBaseURL, cfg.GenAIKey, cfg.GenAIModel)

	controllers.Setup(cfg, pricing, rev, ref, designer)
	controllers.StartTrendingMonitor(cfg.TrendingInterval)
	controllers.StartPaymentMonitor(cfg.PaymentTimeout)

	r := gin.Default()
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	limiter := middleware.NewRateLimiter(cfg.RateLimitPerMin, time.Minute)
	limiter.StartCleanup(10 * time.Minute)
	r.Use(limiter.Middleware())

	r.POST("/signup", controllers.Signup)
	r.GET("/verify", controllers.VerifyEmail)
	r.POST("/login", controllers.Login)
	r.GET("/r/:code", controllers.ReferralClick)

	api := r.Group("/api")
	{
		api.GET("/products", controllers.ListProducts)
		api.GET("/products/:id", controllers.GetProduct)

		auth := api.Group("", middleware.RequireAuth)
		{
			auth.GET("/me", controllers.Me)
			auth.POST("/redeem", controllers.Redeem)

			auth.POST("/products/:id/reviews", controllers.AddReview)
			auth.POST("/products/:id/marketing-copy", controllers.GenerateMarketingCopy)

			auth.POST("/orders", controllers.CreateOrder)
			auth.GET("/orders", controllers.ListOrders)
			auth.GET("/orders/:id", controllers.GetOrder)
			auth.POST("/orders/:id/cancel", controllers.CancelOrder)
			auth.POST("/orders/:id/items/:item_id/revision", controllers.RequestRevision)
			auth.POST("/order-items/:item_id/brief", controllers.GenerateDesignBrief)

			auth.POST("/payments/create-intent", controllers.CreateIntent)
			auth.POST("/payments/confirm", controllers.ConfirmPayment)
			auth.POST("/payments/payfast/create", controllers.PayFastCreate)
			auth.POST("/payments/payshap/initiate", controllers.PayShapInitiate)
			auth.POST("/payments/direct-eft/initiate", controllers.DirectEFTInitiate)
			auth.GET("/payments", controllers.ListPayments)
			auth.GET("/payments/:id", controllers.GetPaymentStatus)

			auth.GET("/referral/stats", controllers.ReferralStats)
		}

		// gateway callbacks authenticate via signatures, not user tokens
		api.POST("/payments/webhook/stripe", controllers.StripeWebhook)
		api.POST("/payments/webhook/payfast", controllers.PayFastITN)

		admin := api.Group("/admin", middleware.RequireAuth, middleware.AdminAuth)
		{
			admin.GET("/users", controllers.ListUsers)
			admin.POST("/users/role", controllers.SetRole)
			admin.POST("/users/plan", controllers.SetPlan)
			admin.POST("/vouchers", controllers.GenerateVoucher)
			admin.POST("/trending/recompute", controllers.RecomputeTrending)

			admin.POST("/products", controllers.CreateProduct)
			admin.PUT("/products/:id", controllers.UpdateProduct)
			admin.DELETE("/products/:id", controllers.DeleteProduct)

			admin.PUT("/orders/:id/status", controllers.UpdateOrderStatus)
			admin.POST("/payments/refund", controllers.Refund)
			admin.POST("/payments/direct-eft/settle", controllers.DirectEFTSettle)

			admin.GET("/revenue/metrics", controllers.RevenueMetrics)
			admin.GET("/revenue/projection", controllers.RevenueProjection)
			admin.POST("/referral/process-sale", controllers.ProcessReferralSale)
		}
	}

	zap.L().Info("listening", zap.String("addr", cfg.ListenAddr))
	if err := r.Run(cfg.ListenAddr); err != nil {
		zap.L().Fatal("server exited", zap.Error(err))
	}
}
