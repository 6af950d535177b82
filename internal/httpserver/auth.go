package httpserver

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/gpio_shop/internal/logging"
	"github.com/Skotchmaster/gpio_shop/internal/models"
	"github.com/Skotchmaster/gpio_shop/internal/service"
	"github.com/Skotchmaster/gpio_shop/internal/transport"
)

type AuthHTTP struct {
	Svc *service.AuthService
}

var registeredMessage = map[models.Role]string{
	models.RoleUser:  "User registered",
	models.RoleAdmin: "Admin registered",
}

func (h *AuthHTTP) Register(role models.Role) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		l := logging.FromContext(ctx).With("handler", "auth.register", "role", role)

		req, err := transport.BindCredentials(c)
		if err != nil {
			l.Warn("register_error", "status", 400, "reason", "invalid body", "error", err)
			return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
		}

		if err := h.Svc.Register(ctx, role, req.Email, req.Password); err != nil {
			switch {
			case errors.Is(err, service.ErrValidation):
				return echo.NewHTTPError(http.StatusBadRequest, "Email and password are required")
			case errors.Is(err, service.ErrConflict):
				return echo.NewHTTPError(http.StatusConflict, "Email already registered")
			default:
				return transport.Error(c, http.StatusInternalServerError, "Error registering", err)
			}
		}

		l.Info("register_success")
		return transport.Message(c, http.StatusCreated, registeredMessage[role])
	}
}

func (h *AuthHTTP) Login(role models.Role) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		l := logging.FromContext(ctx).With("handler", "auth.login", "role", role)

		req, err := transport.BindCredentials(c)
		if err != nil {
			l.Warn("login_error", "status", 400, "reason", "invalid body", "error", err)
			return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
		}

		res, err := h.Svc.Login(ctx, role, req.Email, req.Password)
		if err != nil {
			switch {
			case errors.Is(err, service.ErrValidation):
				return echo.NewHTTPError(http.StatusBadRequest, "Email and password are required")
			case errors.Is(err, service.ErrInvalidCredentials):
				return echo.NewHTTPError(http.StatusBadRequest, "Invalid credentials")
			default:
				return transport.Error(c, http.StatusInternalServerError, "Error logging in", err)
			}
		}

		l.Info("login_success")
		return c.JSON(http.StatusOK, transport.TokenResponse{Token: res.Token})
	}
}
