package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cafe-connect/trust_ledger/internal/api/handlers"
	"github.com/cafe-connect/trust_ledger/internal/api/middleware"
	"github.com/cafe-connect/trust_ledger/internal/infrastructure/di"
	"github.com/cafe-connect/trust_ledger/pkg/auth"
	"github.com/cafe-connect/trust_ledger/pkg/ratelimit"
	"github.com/cafe-connect/trust_ledger/pkg/tracing"
)

// SetupRoutes configures all application routes
func SetupRoutes(container *di.Container) *gin.Engine {
	router := gin.New()
	cfg := container.Config
	log := container.Logger

	// Global middleware
	router.Use(tracing.HTTPMiddleware())
	router.Use(middleware.RequestID())
	router.Use(middleware.Metrics())
	router.Use(middleware.Logger(log))
	router.Use(middleware.Recovery(log))
	router.Use(middleware.CORS(cfg.Server.AllowedOrigins))
	router.Use(middleware.SecurityHeaders())

	healthHandler := handlers.NewHealthHandler(container.Health)
	router.GET("/health", healthHandler.Health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	identityHandlers := handlers.NewIdentityHandlers(container.Identity, container.Stats, container.Validator, log)
	walletHandlers := handlers.NewWalletHandlers(container.Wallets, container.Validator, log)
	ledgerHandlers := handlers.NewLedgerHandlers(container.Ledger, container.Validator, log)
	trustHandlers := handlers.NewTrustHandlers(container.Trust, container.Validator, log)
	alertHandlers := handlers.NewAlertHandlers(container.Alerts, container.ScamRadar, container.Validator, log)

	v1 := router.Group("/api/v1")
	v1.Use(middleware.Authentication(auth.Config{
		Secret:   cfg.JWT.Secret,
		Issuer:   cfg.JWT.Issuer,
		Audience: cfg.JWT.Audience,
	}, log))
	v1.Use(ratelimit.Middleware(container.RateLimiter, ratelimit.PrincipalKeyFunc, log.Zap()))

	v1.GET("/stats", identityHandlers.PlatformStats)

	identityGroup := v1.Group("/identity")
	{
		identityGroup.GET("/profile", identityHandlers.GetProfile)
		identityGroup.PUT("/nickname", identityHandlers.SetNickname)
		identityGroup.PUT("/trust-score", identityHandlers.SetTrustScore)
		identityGroup.GET("/verify", identityHandlers.VerifyIdentity)
	}

	walletGroup := v1.Group("/wallet")
	{
		walletGroup.POST("", walletHandlers.CreateWallet)
		walletGroup.GET("", walletHandlers.GetWallet)
		walletGroup.PUT("/policy", walletHandlers.UpdatePolicy)
		walletGroup.PUT("/privacy", walletHandlers.UpdatePrivacy)
		walletGroup.POST("/emergency-contacts", walletHandlers.AddEmergencyContact)
	}

	ledgerGroup := v1.Group("/ledger")
	{
		ledgerGroup.GET("/balance", ledgerHandlers.GetBalance)
		ledgerGroup.POST("/deposits", ledgerHandlers.Deposit)
		ledgerGroup.GET("/deposits", ledgerHandlers.GetDeposits)
		ledgerGroup.GET("/deposits/:id", ledgerHandlers.GetDeposit)
		ledgerGroup.POST("/transfers", ledgerHandlers.SendMoney)
		ledgerGroup.GET("/transactions", ledgerHandlers.GetTransactions)
		ledgerGroup.GET("/transactions/:id", ledgerHandlers.GetTransaction)
		ledgerGroup.POST("/spending", ledgerHandlers.RecordSpending)
		ledgerGroup.GET("/spending", ledgerHandlers.GetSpendingHistory)
		ledgerGroup.GET("/spending/analysis", ledgerHandlers.GetSpendingAnalysis)
		ledgerGroup.POST("/accounts", ledgerHandlers.LinkAccount)
		ledgerGroup.GET("/accounts", ledgerHandlers.GetLinkedAccounts)
	}

	trustGroup := v1.Group("/trust")
	{
		trustGroup.POST("/connections", trustHandlers.AddConnection)
		trustGroup.GET("/connections", trustHandlers.GetConnections)
		trustGroup.POST("/inner-circle", trustHandlers.AddInnerCircleMember)
		trustGroup.GET("/inner-circle", trustHandlers.GetInnerCircle)
		trustGroup.POST("/threats", trustHandlers.FlagThreat)
		trustGroup.GET("/threats/:id", trustHandlers.GetThreat)
	}

	alertGroup := v1.Group("/alerts")
	{
		alertGroup.GET("", alertHandlers.ListAlerts)
		alertGroup.POST("/:id/ack", alertHandlers.Acknowledge)
	}

	radarGroup := v1.Group("/scam-radar")
	{
		radarGroup.POST("/analyze", alertHandlers.AnalyzeMessage)
		radarGroup.GET("/recent", alertHandlers.RecentScans)
	}

	return router
}
