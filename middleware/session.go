package middleware

import (
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

// Context keys set by JWT once a session is accepted.
const (
	ContextUsername = "username"
	ContextRole     = "role"
)

var errNoSession = errors.New("no session token")

// Claims extends jwt.RegisteredClaims with the caller's identity.
type Claims struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// Sessions signs and reads HS256 session tokens. A token is accepted from
// the Authorization header ("Bearer <token>" or the bare token) or, failing
// that, from the cookie named Cookie.
type Sessions struct {
	Key    []byte
	Cookie string
}

// Issue signs a token for username/role that expires ttl after now.
func (s Sessions) Issue(username, role string, ttl time.Duration, now time.Time) (string, time.Time, error) {
	expiresAt := now.Add(ttl)
	claims := &Claims{
		Username: username,
		Role:     role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.Key)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, expiresAt, nil
}

// Parse validates token and returns its claims.
func (s Sessions) Parse(token string) (*Claims, error) {
	claims := &Claims{}
	tkn, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return s.Key, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	if !tkn.Valid {
		return nil, jwt.ErrTokenSignatureInvalid
	}
	return claims, nil
}

func (s Sessions) fromRequest(c echo.Context) (*Claims, error) {
	token := strings.TrimSpace(c.Request().Header.Get(echo.HeaderAuthorization))
	token = strings.TrimSpace(strings.TrimPrefix(token, "Bearer "))
	if token == "" && s.Cookie != "" {
		if ck, err := c.Cookie(s.Cookie); err == nil {
			token = ck.Value
		}
	}
	if token == "" {
		return nil, errNoSession
	}
	return s.Parse(token)
}

// JWT rejects requests without a valid session with 401 and stores the
// session's username and role on the context.
func JWT(s Sessions) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			claims, err := s.fromRequest(c)
			if err != nil {
				msg := "invalid session"
				switch {
				case errors.Is(err, errNoSession):
					msg = "missing session"
				case errors.Is(err, jwt.ErrTokenExpired):
					msg = "session expired"
				}
				return echo.NewHTTPError(http.StatusUnauthorized, msg).SetInternal(err)
			}

			c.Set(ContextUsername, claims.Username)
			c.Set(ContextRole, claims.Role)
			return next(c)
		}
	}
}

// RequireRole must run after JWT. Any role other than role is answered with 401.
func RequireRole(role string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			got, _ := c.Get(ContextRole).(string)
			if got != role {
				return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
			}
			return next(c)
		}
	}
}

// PageGuard redirects visitors without a valid session to loginPath, passing
// the requested URI as ?next=. It does not look at the role.
func PageGuard(s Sessions, loginPath string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			claims, err := s.fromRequest(c)
			if err != nil {
				target := loginPath + "?next=" + url.QueryEscape(c.Request().URL.RequestURI())
				return c.Redirect(http.StatusFound, target)
			}

			c.Set(ContextUsername, claims.Username)
			c.Set(ContextRole, claims.Role)
			return next(c)
		}
	}
}
