package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	mw "github.com/padraicbc/inscricoes/middleware"
	"github.com/padraicbc/inscricoes/models"
)

// Repository is the data access the handlers need. *store.Store satisfies it.
type Repository interface {
	Registrations(ctx context.Context) ([]models.Registration, error)
	Kits(ctx context.Context) ([]models.Kit, error)
	CurrentTiers(ctx context.Context, now time.Time) ([]models.Tier, error)
	ResultsByCategory(ctx context.Context, category string) ([]models.Result, error)
	SetKitPickup(ctx context.Context, id int, picked bool, at time.Time) (*models.Registration, error)
	UserByUsername(ctx context.Context, username string) (*models.User, error)
	Ping(ctx context.Context) error
}

// Options tunes sessions and the clock.
type Options struct {
	Sessions      mw.Sessions
	SessionTTL    time.Duration
	SecureCookies bool
	// Now defaults to time.Now.
	Now func() time.Time
}

// Handler holds shared dependencies used by all route handlers.
type Handler struct {
	repo Repository
	log  *zap.Logger
	opts Options
}

// New creates a Handler over repo.
func New(repo Repository, log *zap.Logger, opts Options) *Handler {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Handler{repo: repo, log: log, opts: opts}
}

// internalError logs err with context and hides it from the caller.
func (h *Handler) internalError(c echo.Context, msg string, err error, fields ...zap.Field) error {
	fields = append(fields,
		zap.Error(err),
		zap.String("method", c.Request().Method),
		zap.String("uri", c.Request().RequestURI),
		zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
	)
	h.log.Error(msg, fields...)
	return echo.NewHTTPError(http.StatusInternalServerError, "internal server error").SetInternal(err)
}
