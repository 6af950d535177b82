package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/gpio_shop/internal/logging"
	"github.com/Skotchmaster/gpio_shop/internal/models"
	"github.com/Skotchmaster/gpio_shop/internal/tokens"
)

const (
	UserIDKey  = "userId"
	AdminIDKey = "adminId"
)

type TokenAuth struct {
	JWTSecret []byte
}

func NewTokenAuth(secret []byte) *TokenAuth {
	return &TokenAuth{JWTSecret: secret}
}

func (m *TokenAuth) RequireUser(next echo.HandlerFunc) echo.HandlerFunc {
	return m.require(models.RoleUser, next)
}

func (m *TokenAuth) RequireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return m.require(models.RoleAdmin, next)
}

func (m *TokenAuth) require(role models.Role, next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		l := logging.FromContext(c.Request().Context()).With("mw", "auth", "want_role", role)

		raw := bearer(c.Request().Header.Get(echo.HeaderAuthorization))
		if raw == "" {
			l.Warn("auth_error", "status", 401, "reason", "missing token")
			return echo.NewHTTPError(http.StatusUnauthorized, "No token provided")
		}

		claims, err := tokens.Parse(raw, m.JWTSecret)
		if err != nil {
			l.Warn("auth_error", "status", 401, "reason", "invalid token", "error", err)
			return echo.NewHTTPError(http.StatusUnauthorized, "Invalid token")
		}
		id, err := claims.Identity()
		if err != nil {
			l.Warn("auth_error", "status", 401, "reason", "malformed claims", "error", err)
			return echo.NewHTTPError(http.StatusUnauthorized, "Invalid token")
		}
		if id.Role() != role {
			l.Warn("auth_error", "status", 403, "reason", "token kind mismatch", "got_role", id.Role())
			return echo.NewHTTPError(http.StatusForbidden, "Invalid token kind")
		}

		setIdentity(c, id)
		return next(c)
	}
}

// bearer accepts the raw token or the conventional "Bearer <token>" form.
func bearer(header string) string {
	header = strings.TrimSpace(header)
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return header
}

func setIdentity(c echo.Context, id tokens.Identity) {
	switch id.Role() {
	case models.RoleAdmin:
		c.Set(AdminIDKey, id.ID())
	default:
		c.Set(UserIDKey, id.ID())
	}
	req := c.Request()
	l := logging.FromContext(req.Context()).With("role", id.Role(), "principal_id", id.ID())
	c.SetRequest(req.WithContext(logging.IntoContext(req.Context(), l)))
}

func UserID(c echo.Context) string {
	v, _ := c.Get(UserIDKey).(string)
	return v
}

func AdminID(c echo.Context) string {
	v, _ := c.Get(AdminIDKey).(string)
	return v
}
