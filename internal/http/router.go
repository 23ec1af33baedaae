package http

import (
	"log/slog"

	"github.com/geocoder89/wellnesshub/internal/auth"
	"github.com/geocoder89/wellnesshub/internal/cache"
	"github.com/geocoder89/wellnesshub/internal/config"
	"github.com/geocoder89/wellnesshub/internal/http/handlers"
	"github.com/geocoder89/wellnesshub/internal/http/middlewares"
	"github.com/geocoder89/wellnesshub/internal/observability"
	"github.com/geocoder89/wellnesshub/internal/sessions"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

const serviceName = "wellnesshub-api"

// Deps are the storage backends the router serves. Cache, Prom and
// ShuttingDown are optional; Checks feed /readyz.
type Deps struct {
	Users        auth.UserStore
	Sessions     sessions.Store
	Cache        cache.Store
	Prom         *observability.Prom
	Checks       map[string]handlers.Pinger
	ShuttingDown func() bool
}

func NewRouter(log *slog.Logger, cfg config.Config, deps Deps) (*gin.Engine, error) {
	if cfg.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}

	prom := deps.Prom
	if prom == nil {
		prom = observability.NewProm(prometheus.NewRegistry())
	}

	gate, err := auth.NewGate(deps.Users, auth.NewManager(cfg.JWTSecret, cfg.JWTTTL()))
	if err != nil {
		return nil, err
	}

	opts := []sessions.Option{
		sessions.WithMetrics(prom),
		sessions.WithLogger(log),
	}
	if deps.Cache != nil {
		opts = append(opts, sessions.WithCache(deps.Cache))
	}
	svc := sessions.NewService(deps.Sessions, opts...)

	r := gin.New()

	// middleware
	r.Use(gin.Recovery())
	r.Use(middlewares.RequestID())
	r.Use(otelgin.Middleware(serviceName))
	r.Use(prom.GinHandleMiddleware())
	r.Use(middlewares.RequestLogger(log))
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddleware(cfg.CORSOrigins))
	r.Use(middlewares.MaxBodyBytes(cfg.MaxBodyBytes))
	r.Use(middlewares.RequireJSON())

	// health
	h := handlers.NewHealthHandler(deps.Checks, deps.ShuttingDown)
	r.GET("/", h.Root)
	r.GET("/healthz", h.Healthz)
	r.GET("/readyz", h.Readyz)
	r.GET("/metrics", gin.WrapH(prom.Handler()))

	// auth
	authHandler := handlers.NewAuthHandler(gate, prom, log)
	r.POST("/register", authHandler.Register)
	r.POST("/login", authHandler.Login)

	// sessions
	sessionsHandler := handlers.NewSessionsHandler(svc, log)
	authMw := middlewares.NewAuthMiddleware(gate)

	r.GET("/sessions", sessionsHandler.ListPublished)

	my := r.Group("/my-sessions", authMw.RequireAuth())
	{
		my.GET("", sessionsHandler.ListMine)
		my.GET("/:id", sessionsHandler.GetMine)
		my.POST("/save-draft", sessionsHandler.SaveDraft)
		my.POST("/publish", sessionsHandler.Publish)
	}

	return r, nil
}
