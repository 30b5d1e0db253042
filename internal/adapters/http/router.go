// Package http contains the REST adapter: router, server and the
// middleware/handler wiring.
//
// Pattern: Adapter (Hexagonal Architecture). This layer converts HTTP
// requests into use case calls and domain errors into status codes; it
// contains no business logic.
package http

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/coinvault/coinvault/internal/adapters/http/common"
	"github.com/coinvault/coinvault/internal/adapters/http/handlers"
	"github.com/coinvault/coinvault/internal/adapters/http/middleware"
)

// RouterConfig configures the router.
type RouterConfig struct {
	Logger         *slog.Logger
	Pool           *pgxpool.Pool // for health checks
	ServiceName    string
	Version        string
	Environment    string
	Debug          bool // verbose error surfaces
	TracingEnabled bool
	AllowedOrigins []string
}

// WalletEndpoints bundles the use cases served by the wallet routes.
type WalletEndpoints struct {
	Topup   handlers.TopupUseCase
	Bonus   handlers.BonusUseCase
	Spend   handlers.SpendUseCase
	Balance handlers.GetBalanceUseCase
	History handlers.GetHistoryUseCase
}

// NewRouter builds the gin engine with the full middleware chain and all
// routes registered.
func NewRouter(cfg *RouterConfig, wallet *WalletEndpoints) *gin.Engine {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	handlers.SetupValidator()

	// Recovery first so every later panic is caught
	router.Use(middleware.Recovery(&middleware.RecoveryConfig{
		Logger:           cfg.Logger,
		EnableStackTrace: cfg.Environment != "production",
	}))
	router.Use(middleware.RequestID())
	if cfg.Environment == "production" {
		router.Use(middleware.CORS(middleware.ProductionCORSConfig(cfg.AllowedOrigins)))
	} else {
		router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	}
	router.Use(middleware.Logging(&middleware.LoggingConfig{
		Logger:    cfg.Logger,
		SkipPaths: []string{"/health", "/live", "/ready", "/metrics"},
	}))
	router.Use(middleware.RateLimit(middleware.DefaultRateLimitConfig()))
	router.Use(middleware.Metrics())
	if cfg.TracingEnabled {
		router.Use(otelgin.Middleware(cfg.ServiceName))
	}

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	healthHandler := handlers.NewHealthHandler(cfg.Pool, cfg.Version)
	healthHandler.RegisterRoutes(router)

	v1 := router.Group("/api/v1")

	if wallet != nil {
		walletHandler := handlers.NewWalletHandler(
			wallet.Topup,
			wallet.Bonus,
			wallet.Spend,
			wallet.Balance,
			wallet.History,
			cfg.Debug,
		)

		wallets := v1.Group("/wallets")
		{
			wallets.GET("/:user_id/balance", walletHandler.GetBalance)
			wallets.GET("/:user_id/transactions", walletHandler.GetHistory)

			// Postings get the stricter limit
			postings := wallets.Group("")
			postings.Use(middleware.RateLimit(middleware.MutationRateLimitConfig()))
			{
				postings.POST("/topup", walletHandler.Topup)
				postings.POST("/bonus", walletHandler.Bonus)
				postings.POST("/spend", walletHandler.Spend)
			}
		}
	}

	router.NoRoute(func(c *gin.Context) {
		common.Error(c, 404, &common.APIError{
			Code:    common.ErrCodeNotFound,
			Message: "Endpoint not found",
			Details: map[string]any{
				"path":   c.Request.URL.Path,
				"method": c.Request.Method,
			},
		})
	})

	return router
}
