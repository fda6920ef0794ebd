package repo

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/internal/filter"
	"github.com/Skotchmaster/storefront/internal/models"
)

// ErrProductMissing is returned when an order references a product that does not exist.
var ErrProductMissing = errors.New("product does not exist")

// ErrProductInUse is returned when deleting a product still referenced by order items.
var ErrProductInUse = errors.New("product is referenced by orders")

type GormRepo struct {
	DB *gorm.DB
}

type Catalog interface {
	GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error)
	ListProducts(ctx context.Context, spec filter.Spec) (int64, []models.Product, error)
	CreateProduct(ctx context.Context, prod *models.Product) error
	UpdateProduct(ctx context.Context, id uuid.UUID, mutate func(*models.Product) error) (*models.Product, error)
	DeleteProduct(ctx context.Context, id uuid.UUID) error
	ProductInfo(ctx context.Context) (ProductInfo, error)
}

type Orders interface {
	ListOrders(ctx context.Context, scope Scope, spec filter.Spec) (int64, []models.Order, error)
	GetOrder(ctx context.Context, scope Scope, id uuid.UUID) (*models.Order, error)
	CreateOrder(ctx context.Context, order *models.Order, lines []ItemLine) error
	UpdateOrder(ctx context.Context, scope Scope, id uuid.UUID, mutate func(*models.Order) error, lines []ItemLine) (*models.Order, error)
	DeleteOrder(ctx context.Context, scope Scope, id uuid.UUID) error
}

type Users interface {
	FindUserByUsername(ctx context.Context, username string) (*models.User, error)
	CreateUserIfNotExists(ctx context.Context, u *models.User) error
}

var (
	_ Catalog = (*GormRepo)(nil)
	_ Orders  = (*GormRepo)(nil)
	_ Users   = (*GormRepo)(nil)
)
