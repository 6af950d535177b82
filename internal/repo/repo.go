package repo

import (
	"context"
	"errors"

	"github.com/Skotchmaster/gpio_shop/internal/models"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrAlreadyExist = errors.New("principal already exist")
)

type PrincipalRepo interface {
	// CreatePrincipal stores p in the partition of role unless the email is taken.
	CreatePrincipal(ctx context.Context, role models.Role, p *models.Principal) error
	FindPrincipalByEmail(ctx context.Context, role models.Role, email string) (*models.Principal, error)
}

type ProductRepo interface {
	CreateProduct(ctx context.Context, p *models.Product) (*models.Product, error)
	// UpdateProduct returns ErrNotFound when no product has the id.
	UpdateProduct(ctx context.Context, id string, patch models.ProductPatch) (*models.Product, error)
	// DeleteProduct is a no-op for unknown ids.
	DeleteProduct(ctx context.Context, id string) error
	GetProduct(ctx context.Context, id string) (*models.Product, error)
	ListProducts(ctx context.Context) ([]models.Product, error)
}

type Store interface {
	PrincipalRepo
	ProductRepo
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}
