package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/geocoder89/labsmonitor/internal/config"
	"github.com/geocoder89/labsmonitor/internal/http/handlers"
	"github.com/geocoder89/labsmonitor/internal/http/middlewares"
	"github.com/geocoder89/labsmonitor/internal/observability"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

const maxBodyBytes = 1 << 20

// AuthService is the auth surface the router needs: the handler operations
// plus bearer token resolution for RequireAuth.
type AuthService interface {
	handlers.AuthService
	middlewares.UserResolver
}

type Deps struct {
	Config config.Config
	Log    *slog.Logger
	Prom   *observability.Prom
	// Metrics serves /metrics; nil leaves the route out.
	Metrics http.Handler

	Auth    AuthService
	Records handlers.RecordService
	Panels  handlers.PanelLister

	// nil limiters fall back to in-process counters
	AuthLimiter middlewares.Limiter
	APILimiter  middlewares.Limiter

	Ready    map[string]handlers.Pinger
	Draining func() bool
}

func NewRouter(d Deps) *gin.Engine {
	if d.Config.Env != "dev" && gin.Mode() != gin.TestMode {
		gin.SetMode(gin.ReleaseMode)
	}
	if d.Log == nil {
		d.Log = slog.Default()
	}
	if d.AuthLimiter == nil {
		d.AuthLimiter = middlewares.NewMemoryLimiter(d.Config.AuthRatePerMinute, time.Minute)
	}
	if d.APILimiter == nil {
		d.APILimiter = middlewares.NewMemoryLimiter(d.Config.APIRatePerMinute, time.Minute)
	}

	r := gin.New()

	// middleware

	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware(observability.ServiceName))
	r.Use(middlewares.RequestID())
	r.Use(middlewares.RequestLogger(d.Log))
	if d.Prom != nil {
		r.Use(d.Prom.GinHandleMiddleware())
	}
	r.Use(middlewares.SecurityHeaders(d.Config.IsProd()))
	r.Use(middlewares.CORSMiddleware(d.Config.CORSOrigins))
	r.Use(middlewares.MaxBodyBytes(maxBodyBytes))

	// health
	h := handlers.NewHealthHandler(d.Ready, d.Draining)
	r.GET("/healthz", h.Healthz)
	r.GET("/readyz", h.Readyz)
	if d.Metrics != nil {
		r.GET("/metrics", gin.WrapH(d.Metrics))
	}

	api := r.Group("/api")
	api.Use(middlewares.RequireJSON())

	// auth: unauthenticated endpoints are limited per IP
	authHandler := handlers.NewAuthHandler(d.Auth, d.Config)
	authMW := middlewares.NewAuthMiddleware(d.Auth)

	authGroup := api.Group("/auth")
	authGroup.Use(middlewares.RateLimit(d.AuthLimiter, "auth", middlewares.KeyByIP, d.Prom.RateLimited))
	{
		authGroup.POST("/register", authHandler.Register)
		authGroup.POST("/login", authHandler.Login)
		authGroup.POST("/verify-email", authHandler.VerifyEmail)
		authGroup.POST("/resend-verification", authHandler.ResendVerification)
		authGroup.POST("/refresh", authHandler.Refresh)
		authGroup.POST("/logout", authHandler.Logout)
		authGroup.POST("/forgot-password", authHandler.ForgotPassword)
		authGroup.POST("/reset-password", authHandler.ResetPassword)
	}
	api.GET("/auth/verify", authMW.RequireAuth(), authHandler.Me)

	// records are always scoped to the bearer
	recordsHandler := handlers.NewRecordsHandler(d.Records)

	records := api.Group("/test-records")
	records.Use(authMW.RequireAuth())
	records.Use(middlewares.RateLimit(d.APILimiter, "api", middlewares.KeyByUserOrIP, d.Prom.RateLimited))
	{
		records.POST("", recordsHandler.Create)
		records.POST("/bulk", recordsHandler.CreateBulk)
		records.GET("", recordsHandler.List)
		records.GET("/categories", recordsHandler.Categories)
		records.GET("/category/:category", recordsHandler.ListByCategory)
	}

	panelsHandler := handlers.NewPanelsHandler(d.Panels)
	api.GET("/test-panels", panelsHandler.List)

	return r
}
