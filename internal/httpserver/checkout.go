package httpserver

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/gpio_shop/internal/logging"
	authmw "github.com/Skotchmaster/gpio_shop/internal/middleware/auth"
	"github.com/Skotchmaster/gpio_shop/internal/service"
	"github.com/Skotchmaster/gpio_shop/internal/transport"
)

type CheckoutHTTP struct {
	Svc *service.CheckoutService
}

func (h *CheckoutHTTP) CheckoutSuccess(c echo.Context) error {
	// the device sequence runs to the end even if the client hangs up
	ctx := context.WithoutCancel(c.Request().Context())
	userID := authmw.UserID(c)
	l := logging.FromContext(ctx).With("handler", "checkout.success")

	req, err := transport.BindCheckout(c)
	if err != nil {
		l.Warn("checkout_error", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	res, err := h.Svc.Checkout(ctx, userID, req.Items)
	if err != nil {
		var te *service.TriggerError
		if errors.As(err, &te) {
			l.Error("checkout_error", "status", 500, "failed_item", te.ItemID, "triggered", te.Triggered, "error", te.Err)
			return transport.Error(c, http.StatusInternalServerError, "Error controlling GPIO", te.Err)
		}
		if errors.Is(err, service.ErrValidation) {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
		}
		return transport.Error(c, http.StatusInternalServerError, "Error controlling GPIO", err)
	}

	l.Info("checkout_success", "triggered", len(res.Triggered), "skipped", len(res.Skipped))
	return transport.Message(c, http.StatusOK, "GPIO controlled successfully")
}
