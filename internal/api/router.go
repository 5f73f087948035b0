package api

import (
	"context"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"
	"go.mongodb.org/mongo-driver/mongo"

	_ "github.com/gigmarket/contract-hub/docs"
	"github.com/gigmarket/contract-hub/internal/api/handler"
	"github.com/gigmarket/contract-hub/internal/api/middleware"
	"github.com/gigmarket/contract-hub/internal/core/chat"
	"github.com/gigmarket/contract-hub/internal/core/domain"
	"github.com/gigmarket/contract-hub/internal/core/ports"
	"github.com/gigmarket/contract-hub/internal/infrastructure/ws"
)

// Dependencies are the collaborators the HTTP layer is wired to.
type Dependencies struct {
	Auth      ports.AuthService
	Contracts ports.ContractService
	Hub       *chat.Hub
	Socket    ws.Options

	// Mongo and Redis back the readiness probe; nil ones are skipped.
	Mongo *mongo.Database
	Redis *redis.Client

	// Registry receives the HTTP metrics. Defaults to the global registry.
	Registry *prometheus.Registry
	Logger   zerolog.Logger
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(deps Dependencies) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(deps.Logger)

	var (
		registerer prometheus.Registerer = prometheus.DefaultRegisterer
		gatherer   prometheus.Gatherer   = prometheus.DefaultGatherer
	)
	if deps.Registry != nil {
		registerer, gatherer = deps.Registry, deps.Registry
	}

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(echomiddleware.Logger())
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Subsystem:  "http",
		Registerer: registerer,
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/metrics"
		},
	}))

	// --- Dependencies ---
	authHandler := handler.NewAuthHandler(deps.Auth)
	contractHandler := handler.NewContractHandler(deps.Contracts)
	chatHandler := handler.NewChatHandler(deps.Auth, deps.Hub, ws.NewUpgrader(nil), deps.Socket, deps.Logger)
	authMiddleware := middleware.Auth(deps.Auth)

	// --- Auth routes ---
	e.POST("/auth/register", authHandler.Register)
	e.POST("/auth/login", authHandler.Login)
	e.GET("/auth/users/:user_id", authHandler.GetUser, authMiddleware)

	// --- Contracts ---
	e.POST("/proposals/:proposal_id/accept", contractHandler.Accept, authMiddleware, middleware.RBAC(domain.RoleClient))
	contracts := e.Group("/contracts", authMiddleware)
	contracts.GET("", contractHandler.List)
	contracts.GET("/:contract_id", contractHandler.Get)

	// --- Real-time rooms (token travels in the query string) ---
	e.GET("/ws/contracts/:contract_id", chatHandler.Connect)

	// --- Health probes (no auth required) ---
	healthHandler := handler.NewHealthHandler()
	var stats handler.HubStats
	if deps.Hub != nil {
		stats = deps.Hub
	}
	readinessHandler := handler.NewReadinessHandler(dependencyChecks(deps), stats)

	e.GET("/health", healthHandler.Liveness)           // liveness: is the process alive?
	e.GET("/health/ready", readinessHandler.Readiness) // readiness: are dependencies up?

	// --- Ops ---
	e.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{Gatherer: gatherer}))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	return e
}

func dependencyChecks(deps Dependencies) map[string]handler.DependencyCheck {
	checks := make(map[string]handler.DependencyCheck, 2)
	if deps.Mongo != nil {
		db := deps.Mongo
		checks["mongodb"] = func(ctx context.Context) error {
			return db.Client().Ping(ctx, nil)
		}
	}
	if deps.Redis != nil {
		rdb := deps.Redis
		checks["redis"] = func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		}
	}
	return checks
}
