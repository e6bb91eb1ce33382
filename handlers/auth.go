package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/padraicbc/inscricoes/store"
)

type credentials struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// HashPassword validates username/password input and returns a bcrypt hash for storage.
func HashPassword(username, password string) (string, error) {
	if strings.TrimSpace(username) == "" {
		return "", errors.New("username is required")
	}
	if strings.TrimSpace(password) == "" {
		return "", errors.New("password is required")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// Signin checks credentials and starts a session: the token is returned in
// the body and also set as an HttpOnly cookie for page navigation.
func (h *Handler) Signin(c echo.Context) error {
	var creds credentials
	if err := c.Bind(&creds); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid credentials payload").SetInternal(err)
	}
	creds.Username = strings.TrimSpace(creds.Username)
	if err := c.Validate(&creds); err != nil {
		return err
	}

	user, err := h.repo.UserByUsername(c.Request().Context(), creds.Username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return echo.NewHTTPError(http.StatusUnauthorized, "incorrect username or password")
		}
		return h.internalError(c, "signin lookup failed", err, zap.String("username", creds.Username))
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(creds.Password)); err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "incorrect username or password")
	}

	token, expiresAt, err := h.opts.Sessions.Issue(user.Username, user.Role, h.opts.SessionTTL, h.opts.Now())
	if err != nil {
		return h.internalError(c, "signing session failed", err)
	}

	c.SetCookie(h.sessionCookie(token, expiresAt))
	return c.JSON(http.StatusOK, map[string]interface{}{
		"token":     token,
		"role":      user.Role,
		"expiresAt": expiresAt,
	})
}

// Signout drops the session cookie.
func (h *Handler) Signout(c echo.Context) error {
	ck := h.sessionCookie("", time.Unix(0, 0))
	ck.MaxAge = -1
	c.SetCookie(ck)
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) sessionCookie(value string, expires time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     h.opts.Sessions.Cookie,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   h.opts.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	}
}

// Health reports whether the database answers.
func (h *Handler) Health(c echo.Context) error {
	if err := h.repo.Ping(c.Request().Context()); err != nil {
		h.log.Warn("health check failed", zap.Error(err))
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
