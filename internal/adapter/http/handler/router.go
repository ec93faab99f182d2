package handler

import (
	"tenant-wallet-service/internal/adapter/http/middleware"
	redisStore "tenant-wallet-service/internal/adapter/storage/redis"
	"tenant-wallet-service/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	AuthSvc        ports.AuthService
	WalletSvc      ports.WalletLifecycleService
	DirectorySvc   ports.DirectoryService
	TokenSvc       ports.TokenService
	RateLimitStore *redisStore.RateLimitStore // nil = rate limiting disabled
	HealthCheckers []ports.HealthChecker
	Logger         zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.MaxBodySize(1 << 20)) // 1 MB request body limit

	// Health check (deep — verifies PostgreSQL + Redis)
	r.GET("/health", HealthCheck(deps.HealthCheckers...))

	// Rate limit rules
	rules := middleware.DefaultRateLimitRules()

	// Helper: return rate limiter middleware if store is available, else noop.
	rl := func(group string) gin.HandlerFunc {
		if deps.RateLimitStore == nil {
			return func(c *gin.Context) { c.Next() }
		}
		rule, ok := rules[group]
		if !ok {
			return func(c *gin.Context) { c.Next() }
		}
		return middleware.RateLimiter(deps.RateLimitStore, group, rule, deps.Logger)
	}

	// API v1 routes
	v1 := r.Group("/api/v1")

	// --- Public routes (no auth) ---
	authHandler := NewAuthHandler(deps.AuthSvc)
	auth := v1.Group("/auth")
	{
		auth.POST("/login", rl("auth_login"), authHandler.Login)
	}

	// --- JWT-authenticated routes ---
	jwtAuth := middleware.JWTAuth(deps.TokenSvc, deps.Logger)
	directoryHandler := NewDirectoryHandler(deps.DirectorySvc)
	walletHandler := NewWalletHandler(deps.WalletSvc)

	tenants := v1.Group("/tenants", jwtAuth)
	{
		tenants.GET("", rl("directory"), directoryHandler.ListTenants)

		wallet := tenants.Group("/:id/wallet")
		{
			wallet.POST("", rl("wallet_mutate"), walletHandler.Create)
			wallet.PATCH("", rl("wallet_mutate"), walletHandler.Update)
			wallet.POST("/rotate-secret", rl("wallet_rotate"), walletHandler.RotateSecret)
			wallet.PUT("/active", rl("wallet_mutate"), walletHandler.SetActive)
		}
	}

	return r
}
