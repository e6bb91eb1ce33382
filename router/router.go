package router

import (
	"io/fs"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/padraicbc/inscricoes/handlers"
	applog "github.com/padraicbc/inscricoes/logger"
	mw "github.com/padraicbc/inscricoes/middleware"
	"github.com/padraicbc/inscricoes/web"
)

// Config carries everything New wires into the echo instance.
type Config struct {
	Handler   *handlers.Handler
	Logger    *zap.Logger
	Sessions  mw.Sessions
	AdminRole string
	LoginPath string

	// Registry receives the HTTP metrics and is served on /metrics.
	Registry *prometheus.Registry
	// Pages defaults to the embedded web build.
	Pages fs.FS
}

// New builds the echo instance with middleware, API routes and pages.
func New(cfg Config) *echo.Echo {
	if cfg.Pages == nil {
		cfg.Pages = web.Build()
	}
	if cfg.Registry == nil {
		cfg.Registry = prometheus.NewRegistry()
	}
	h := cfg.Handler

	e := echo.New()
	e.HideBanner = true
	e.Validator = handlers.NewValidator()

	e.Use(echomw.RequestIDWithConfig(echomw.RequestIDConfig{Generator: uuid.NewString}))
	e.Use(applog.Requests(cfg.Logger))
	e.Use(echomw.Recover())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowHeaders:     []string{echo.HeaderContentType, echo.HeaderAuthorization},
		AllowCredentials: true,
	}))
	e.Use(mw.NewMetrics(cfg.Registry).Middleware())

	e.GET("/health", h.Health)
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(cfg.Registry, promhttp.HandlerOpts{})))

	// Public
	e.GET("/registrations", h.Registrations)
	e.GET("/kits", h.Kits)
	e.GET("/tiers", h.Tiers)
	e.GET("/results", h.Results)
	e.POST("/auth/signin", h.Signin)
	e.POST("/auth/signout", h.Signout)

	// Admin only
	e.PUT("/pickup/:id", h.SetKitPickup, mw.JWT(cfg.Sessions), mw.RequireRole(cfg.AdminRole))

	// Pages
	admin := e.Group("/admin", mw.PageGuard(cfg.Sessions, cfg.LoginPath))
	admin.GET("", web.SPA(cfg.Pages, "admin/index.html"))
	admin.GET("/*", web.SPA(cfg.Pages, "admin/index.html"))
	e.GET("/*", web.SPA(web.Without(cfg.Pages, "admin"), "index.html"))

	return e
}
