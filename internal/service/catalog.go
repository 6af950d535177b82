package service

import (
	"context"
	"errors"

	"github.com/Skotchmaster/gpio_shop/internal/events"
	"github.com/Skotchmaster/gpio_shop/internal/logging"
	"github.com/Skotchmaster/gpio_shop/internal/models"
	"github.com/Skotchmaster/gpio_shop/internal/repo"
	"github.com/Skotchmaster/gpio_shop/internal/search"
)

const searchSize = 50

type CatalogService struct {
	Repo   repo.ProductRepo
	Events events.Publisher
	// Index is optional; without it Search is unavailable.
	Index search.Index
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}

// CreateProduct stores the submitted fields. image is the reference path of
// the uploaded file or "" when none was attached.
func (s *CatalogService) CreateProduct(ctx context.Context, fields models.ProductPatch, image string) (*models.Product, error) {
	prod := &models.Product{
		Name:        deref(fields.Name),
		Price:       deref(fields.Price),
		Description: deref(fields.Description),
		GPIOPin:     deref(fields.GPIOPin),
		GPIOAction:  deref(fields.GPIOAction),
		Image:       image,
	}

	created, err := s.Repo.CreateProduct(ctx, prod)
	if err != nil {
		return nil, err
	}

	s.index(ctx, created)
	publish(ctx, s.Events, events.TopicProduct, created.ID, map[string]any{
		"type":      "product_created",
		"productID": created.ID,
		"name":      created.Name,
	})
	return created, nil
}

// UpdateProduct writes only the submitted fields. An uploaded image replaces
// the stored one; otherwise a submitted image value is written as is. A nil
// product with a nil error means the id matched nothing.
func (s *CatalogService) UpdateProduct(ctx context.Context, id string, fields models.ProductPatch, image string) (*models.Product, error) {
	if image != "" {
		fields.Image = &image
	}

	prod, err := s.Repo.UpdateProduct(ctx, id, fields)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			logging.FromContext(ctx).Info("update_product_miss", "productID", id)
			return nil, nil
		}
		return nil, err
	}

	s.index(ctx, prod)
	publish(ctx, s.Events, events.TopicProduct, prod.ID, map[string]any{
		"type":      "product_updated",
		"productID": prod.ID,
		"name":      prod.Name,
	})
	return prod, nil
}

func (s *CatalogService) DeleteProduct(ctx context.Context, id string) error {
	if err := s.Repo.DeleteProduct(ctx, id); err != nil {
		return err
	}

	if s.Index != nil {
		if err := s.Index.DeleteProduct(ctx, id); err != nil {
			logging.FromContext(ctx).Warn("unindex_product_failed", "productID", id, "error", err)
		}
	}
	publish(ctx, s.Events, events.TopicProduct, id, map[string]any{
		"type":      "product_deleted",
		"productID": id,
	})
	return nil
}

func (s *CatalogService) ListProducts(ctx context.Context) ([]models.Product, error) {
	return s.Repo.ListProducts(ctx)
}

func (s *CatalogService) SearchProducts(ctx context.Context, q string) ([]models.Product, error) {
	if s.Index == nil {
		return nil, ErrSearchDisabled
	}
	q, ok := search.Normalize(q)
	if !ok {
		return []models.Product{}, nil
	}
	return s.Index.Search(ctx, q, searchSize)
}

func (s *CatalogService) index(ctx context.Context, p *models.Product) {
	if s.Index == nil {
		return
	}
	if err := s.Index.IndexProduct(ctx, p); err != nil {
		logging.FromContext(ctx).Warn("index_product_failed", "productID", p.ID, "error", err)
	}
}
