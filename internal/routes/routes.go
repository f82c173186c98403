package routes

import (
	"github.com/estatedesk/backoffice/internal/handlers"
	"github.com/estatedesk/backoffice/internal/middleware"
	"github.com/gin-gonic/gin"
)

// RegisterNetworkRoutes registers the partner directory routes
func RegisterNetworkRoutes(router *gin.Engine, partnerHandler *handlers.PartnerHandler, rateLimiter *middleware.RateLimiter) {
	partnerGroup := router.Group("/api/partners")
	partnerGroup.Use(rateLimiter.Middleware())
	{
		partnerGroup.POST("", partnerHandler.Enroll)
		partnerGroup.GET("", partnerHandler.List)
		partnerGroup.GET("/:id", partnerHandler.Get)
		partnerGroup.PATCH("/:id/tier", partnerHandler.SetTier)
		partnerGroup.PATCH("/:id/active", partnerHandler.SetActive)
		partnerGroup.GET("/:id/downline", partnerHandler.Downline)
		partnerGroup.POST("/:id/refresh-stats", partnerHandler.RefreshStats)
	}

	router.GET("/api/referral-activity", rateLimiter.Middleware(), partnerHandler.ActivityFeed)
}

// RegisterCommissionRoutes registers the rule table, calculation trigger,
// ledger and simulator routes
func RegisterCommissionRoutes(router *gin.Engine, commissionHandler *handlers.CommissionHandler, rateLimiter *middleware.RateLimiter) {
	// Inbound trigger from the transaction subsystem.
	router.POST("/api/transactions/completed", commissionHandler.OnTransactionCompleted)

	ruleGroup := router.Group("/api/commission-rules")
	ruleGroup.Use(rateLimiter.Middleware())
	{
		ruleGroup.POST("", commissionHandler.CreateRule)
		ruleGroup.GET("", commissionHandler.ListRules)
		ruleGroup.DELETE("/:id", commissionHandler.DeactivateRule)
	}

	ledgerGroup := router.Group("/api/partners/:id/commissions")
	ledgerGroup.Use(rateLimiter.Middleware())
	{
		ledgerGroup.GET("", commissionHandler.ListRecords)
		ledgerGroup.GET("/summary", commissionHandler.Summary)
		ledgerGroup.POST("/simulate", commissionHandler.Simulate)
	}

	router.POST("/api/commission-adjustments", rateLimiter.Middleware(), commissionHandler.CreateAdjustment)
}

// RegisterPayoutRoutes registers qualification and payout workflow routes
func RegisterPayoutRoutes(router *gin.Engine, payoutHandler *handlers.PayoutHandler, rateLimiter *middleware.RateLimiter) {
	payoutGroup := router.Group("/api/payouts")
	payoutGroup.Use(rateLimiter.Middleware())
	{
		payoutGroup.POST("", payoutHandler.Create)
		payoutGroup.GET("/:id", payoutHandler.Get)
		payoutGroup.POST("/:id/approve", payoutHandler.Approve)
		payoutGroup.POST("/:id/mark-paid", payoutHandler.MarkPaid)
		payoutGroup.POST("/:id/cancel", payoutHandler.Cancel)
	}

	router.GET("/api/partners/:id/payouts", rateLimiter.Middleware(), payoutHandler.ListForPartner)
	router.POST("/api/qualifications/evaluate", rateLimiter.Middleware(), payoutHandler.EvaluateQualification)
}
