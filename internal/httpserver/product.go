package httpserver

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/gpio_shop/internal/logging"
	"github.com/Skotchmaster/gpio_shop/internal/service"
	"github.com/Skotchmaster/gpio_shop/internal/transport"
	"github.com/Skotchmaster/gpio_shop/internal/upload"
)

type CatalogHTTP struct {
	Svc     *service.CatalogService
	Uploads *upload.Handler
}

func (h *CatalogHTTP) CreateProduct(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.create")

	fields, err := transport.ProductPatchFromRequest(c)
	if err != nil {
		l.Warn("product_create_error", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	image, err := h.Uploads.FromRequest(c)
	if err != nil {
		l.Error("product_create_error", "status", 500, "reason", "cannot store image", "error", err)
		return transport.Error(c, http.StatusInternalServerError, "Error adding product", err)
	}

	prod, err := h.Svc.CreateProduct(ctx, fields, image)
	if err != nil {
		l.Error("product_create_error", "status", 500, "reason", "cannot add product to db", "error", err)
		return transport.Error(c, http.StatusInternalServerError, "Error adding product", err)
	}

	l.Info("create_product_success", "productID", prod.ID)
	return c.JSON(http.StatusCreated, prod)
}

// UpdateProduct answers 200 with null when the id matches nothing.
func (h *CatalogHTTP) UpdateProduct(c echo.Context) error {
	ctx := c.Request().Context()
	id := c.Param("id")
	l := logging.FromContext(ctx).With("handler", "product.update", "productID", id)

	fields, err := transport.ProductPatchFromRequest(c)
	if err != nil {
		l.Warn("product_update_error", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	image, err := h.Uploads.FromRequest(c)
	if err != nil {
		l.Error("product_update_error", "status", 500, "reason", "cannot store image", "error", err)
		return transport.Error(c, http.StatusInternalServerError, "Error updating product", err)
	}

	prod, err := h.Svc.UpdateProduct(ctx, id, fields, image)
	if err != nil {
		l.Error("product_update_error", "status", 500, "reason", "cannot update product", "error", err)
		return transport.Error(c, http.StatusInternalServerError, "Error updating product", err)
	}

	l.Info("update_product_success", "found", prod != nil)
	return c.JSON(http.StatusOK, prod)
}

func (h *CatalogHTTP) DeleteProduct(c echo.Context) error {
	ctx := c.Request().Context()
	id := c.Param("id")
	l := logging.FromContext(ctx).With("handler", "product.delete", "productID", id)

	if err := h.Svc.DeleteProduct(ctx, id); err != nil {
		l.Error("product_delete_error", "status", 500, "reason", "cannot delete product from db", "error", err)
		return transport.Error(c, http.StatusInternalServerError, "Error deleting product", err)
	}

	l.Info("delete_product_success")
	return transport.Message(c, http.StatusOK, "Product deleted")
}

func (h *CatalogHTTP) ListProducts(c echo.Context) error {
	ctx := c.Request().Context()

	items, err := h.Svc.ListProducts(ctx)
	if err != nil {
		logging.FromContext(ctx).Error("list_products_error", "status", 500, "error", err)
		return transport.Error(c, http.StatusInternalServerError, "Error fetching products", err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *CatalogHTTP) SearchProducts(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.search")

	items, err := h.Svc.SearchProducts(ctx, c.QueryParam("q"))
	if err != nil {
		if errors.Is(err, service.ErrSearchDisabled) {
			return echo.NewHTTPError(http.StatusServiceUnavailable, "search is not configured")
		}
		l.Error("search_products_error", "status", 500, "error", err)
		return transport.Error(c, http.StatusInternalServerError, "Error searching products", err)
	}
	return c.JSON(http.StatusOK, items)
}
