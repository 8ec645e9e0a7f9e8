package store

import (
	"context"
	"errors"

	"github.com/baawa1/baawa-accessories-inventory-sub000/internal/model"
	"github.com/google/uuid"
)

var (
	ErrNotFound = errors.New("record not found")
	ErrConflict = errors.New("duplicate key value violates unique constraint")
)

// ProductFilter narrows ListProducts. Zero values match everything.
type ProductFilter struct {
	Status     string
	CategoryID *uuid.UUID
	Query      string
}

// ReconciliationFilter narrows ListReconciliations
type ReconciliationFilter struct {
	Status string
}

// AdjustmentFilter narrows ListAdjustments
type AdjustmentFilter struct {
	ProductID *uuid.UUID
}

// Repository is the persistence collaborator used by the HTTP layer.
// Services depend on the narrower interfaces they declare themselves.
type Repository interface {
	FindCategoryByName(ctx context.Context, name string) (*model.Category, error)
	FindBrandByName(ctx context.Context, name string) (*model.Brand, error)
	FindSupplierByName(ctx context.Context, name string) (*model.Supplier, error)
	ListCategories(ctx context.Context) ([]model.Category, error)
	ListBrands(ctx context.Context) ([]model.Brand, error)
	ListSuppliers(ctx context.Context) ([]model.Supplier, error)
	CreateCategory(ctx context.Context, c *model.Category) error
	CreateBrand(ctx context.Context, b *model.Brand) error
	CreateSupplier(ctx context.Context, s *model.Supplier) error

	SKUExists(ctx context.Context, sku string, exclude *uuid.UUID) (bool, error)
	GetProduct(ctx context.Context, id uuid.UUID) (*model.Product, error)
	ListProducts(ctx context.Context, filter ProductFilter) ([]model.Product, error)
	CreateProduct(ctx context.Context, p *model.Product) error
	UpdateProduct(ctx context.Context, p *model.Product) error
	DeleteProduct(ctx context.Context, id uuid.UUID) error
	UpsertProduct(ctx context.Context, p *model.Product, columns []string) error
	UpsertVariant(ctx context.Context, v *model.ProductVariant) error
	UpsertImage(ctx context.Context, img *model.ProductImage) error
	GetImage(ctx context.Context, productID, imageID uuid.UUID) (*model.ProductImage, error)
	DeleteImage(ctx context.Context, productID, imageID uuid.UUID) error
	SetProductQuantity(ctx context.Context, id uuid.UUID, qty int) error

	CreateReconciliation(ctx context.Context, r *model.StockReconciliation) error
	UpdateReconciliation(ctx context.Context, r *model.StockReconciliation) error
	GetReconciliation(ctx context.Context, id uuid.UUID) (*model.StockReconciliation, error)
	ListReconciliations(ctx context.Context, filter ReconciliationFilter) ([]model.StockReconciliation, error)

	AdjustStock(ctx context.Context, adj *model.StockAdjustment) error
	ListAdjustments(ctx context.Context, filter AdjustmentFilter) ([]model.StockAdjustment, error)
}
