package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	authmw "github.com/Skotchmaster/gpio_shop/internal/middleware/auth"
	"github.com/Skotchmaster/gpio_shop/internal/models"
	"github.com/Skotchmaster/gpio_shop/internal/upload"
)

type Deps struct {
	AuthHandler     *AuthHTTP
	CatalogHandler  *CatalogHTTP
	CheckoutHandler *CheckoutHTTP
	Uploads         *upload.Handler
	JWTSecret       []byte
	// SearchEnabled registers the product search route.
	SearchEnabled bool
	// Ready backs /health/ready. Nil means always ready.
	Ready func(ctx context.Context) error
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", readiness(d.Ready))

	d.Uploads.Register(e)

	e.POST("/register", d.AuthHandler.Register(models.RoleUser))
	e.POST("/login", d.AuthHandler.Login(models.RoleUser))
	e.POST("/admin/register", d.AuthHandler.Register(models.RoleAdmin))
	e.POST("/admin/login", d.AuthHandler.Login(models.RoleAdmin))

	tokenAuth := authmw.NewTokenAuth(d.JWTSecret)

	admin := e.Group("/admin/products", tokenAuth.RequireAdmin)
	admin.POST("", d.CatalogHandler.CreateProduct)
	admin.GET("", d.CatalogHandler.ListProducts)
	if d.SearchEnabled {
		admin.GET("/search", d.CatalogHandler.SearchProducts)
	}
	admin.PUT("/:id", d.CatalogHandler.UpdateProduct)
	admin.DELETE("/:id", d.CatalogHandler.DeleteProduct)

	e.POST("/checkout-success", d.CheckoutHandler.CheckoutSuccess, tokenAuth.RequireUser)
}

func readiness(ready func(ctx context.Context) error) echo.HandlerFunc {
	return func(c echo.Context) error {
		if ready == nil {
			return c.NoContent(http.StatusOK)
		}
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()
		if err := ready(ctx); err != nil {
			return echo.NewHTTPError(http.StatusServiceUnavailable, "not ready")
		}
		return c.NoContent(http.StatusOK)
	}
}
