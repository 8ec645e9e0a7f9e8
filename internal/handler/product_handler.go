package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/baawa1/baawa-accessories-inventory-sub000/internal/apperror"
	"github.com/baawa1/baawa-accessories-inventory-sub000/internal/inventory"
	"github.com/baawa1/baawa-accessories-inventory-sub000/internal/model"
	"github.com/baawa1/baawa-accessories-inventory-sub000/internal/store"
	"github.com/baawa1/baawa-accessories-inventory-sub000/pkg/logger"
	"github.com/baawa1/baawa-accessories-inventory-sub000/prometheus"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ProductStore is what the product endpoints read and write
type ProductStore interface {
	SKUExists(ctx context.Context, sku string, exclude *uuid.UUID) (bool, error)
	GetProduct(ctx context.Context, id uuid.UUID) (*model.Product, error)
	ListProducts(ctx context.Context, filter store.ProductFilter) ([]model.Product, error)
	CreateProduct(ctx context.Context, p *model.Product) error
	UpdateProduct(ctx context.Context, p *model.Product) error
	DeleteProduct(ctx context.Context, id uuid.UUID) error
}

// ProductRequest defines the structure for product creation/update requests
type ProductRequest struct {
	SKU            string           `json:"sku" validate:"required"`
	Name           string           `json:"name" validate:"required"`
	ModelName      string           `json:"model_name"`
	Description    string           `json:"description"`
	CategoryID     *uuid.UUID       `json:"category_id"`
	BrandID        *uuid.UUID       `json:"brand_id"`
	SupplierID     *uuid.UUID       `json:"supplier_id"`
	CostPrice      *decimal.Decimal `json:"cost_price"`
	SellingPrice   *decimal.Decimal `json:"selling_price"`
	QuantityOnHand *int             `json:"quantity_on_hand"`
	ReorderLevel   *int             `json:"reorder_level"`
	Status         string           `json:"status"`
	Tags           []string         `json:"tags"`
}

func (r *ProductRequest) apply(p *model.Product) error {
	status := model.ProductActive
	if r.Status != "" {
		var ok bool
		if status, ok = model.ParseProductStatus(r.Status); !ok {
			return &apperror.InvalidEnumError{Field: "status", Value: r.Status, Allowed: model.ProductStatuses}
		}
	}
	tags := pq.StringArray{}
	for _, t := range r.Tags {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}

	p.SKU = strings.TrimSpace(r.SKU)
	p.Name = strings.TrimSpace(r.Name)
	p.ModelName = r.ModelName
	p.Description = r.Description
	p.CategoryID = r.CategoryID
	p.BrandID = r.BrandID
	p.SupplierID = r.SupplierID
	p.CostPrice = r.CostPrice
	p.SellingPrice = r.SellingPrice
	p.QuantityOnHand = r.QuantityOnHand
	p.ReorderLevel = r.ReorderLevel
	p.Status = status
	p.Tags = tags
	return nil
}

type ProductHandler struct {
	store     ProductStore
	inventory *inventory.Service
}

func NewProductHandler(s ProductStore, inv *inventory.Service) *ProductHandler {
	return &ProductHandler{store: s, inventory: inv}
}

// ListProducts handles retrieving all products with optional filtering
func (h *ProductHandler) ListProducts(c echo.Context) error {
	log := logger.FromEcho(c)

	filter := store.ProductFilter{
		Status: c.QueryParam("status"),
		Query:  strings.TrimSpace(c.QueryParam("q")),
	}
	if filter.Status != "" {
		status, ok := model.ParseProductStatus(filter.Status)
		if !ok {
			return respondError(c, "Invalid product status filter",
				&apperror.InvalidEnumError{Field: "status", Value: filter.Status, Allowed: model.ProductStatuses})
		}
		filter.Status = string(status)
	}
	categoryID, err := optionalUUID(c, "category_id")
	if err != nil {
		return respondError(c, "Invalid category filter", err)
	}
	filter.CategoryID = categoryID

	products, err := h.store.ListProducts(c.Request().Context(), filter)
	if err != nil {
		return respondError(c, "Failed to list products", storeError("list products", "products", err))
	}

	log.Info("Products retrieved successfully", zap.Int("count", len(products)))
	return c.JSON(http.StatusOK, products)
}

// GetProduct returns one product with its variants and images
func (h *ProductHandler) GetProduct(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, "Invalid product id", err)
	}

	product, err := h.store.GetProduct(c.Request().Context(), id)
	if err != nil {
		return respondError(c, "Failed to get product", storeError("get product", "Product", err))
	}
	return c.JSON(http.StatusOK, product)
}

// CreateProduct handles creating a new product
func (h *ProductHandler) CreateProduct(c echo.Context) error {
	log := logger.FromEcho(c)
	ctx := c.Request().Context()

	var req ProductRequest
	if err := bind(c, &req); err != nil {
		return respondError(c, "Invalid product request", err)
	}

	var product model.Product
	if err := req.apply(&product); err != nil {
		return respondError(c, "Invalid product request", err)
	}

	unique, err := h.inventory.IsSKUUnique(ctx, product.SKU, nil)
	if err != nil {
		return respondError(c, "Failed to check SKU", err)
	}
	if !unique {
		return respondError(c, "Product with this SKU already exists",
			&apperror.ConflictError{Message: "Product with this SKU already exists"})
	}

	if err := h.store.CreateProduct(ctx, &product); err != nil {
		return respondError(c, "Failed to create product", storeError("create product", "Product", err))
	}
	prometheus.RecordProductOperation("create")

	log.Info("Product created successfully",
		zap.String("product_id", product.ID.String()),
		zap.String("sku", product.SKU))
	return c.JSON(http.StatusCreated, product)
}

// UpdateProduct handles updating an existing product
func (h *ProductHandler) UpdateProduct(c echo.Context) error {
	log := logger.FromEcho(c)
	ctx := c.Request().Context()

	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, "Invalid product id", err)
	}

	var req ProductRequest
	if err := bind(c, &req); err != nil {
		return respondError(c, "Invalid product request", err)
	}

	existing, err := h.store.GetProduct(ctx, id)
	if err != nil {
		return respondError(c, "Failed to load product", storeError("get product", "Product", err))
	}
	oldSKU := existing.SKU

	if err := req.apply(existing); err != nil {
		return respondError(c, "Invalid product request", err)
	}
	if existing.SKU != oldSKU {
		unique, err := h.inventory.IsSKUUnique(ctx, existing.SKU, &id)
		if err != nil {
			return respondError(c, "Failed to check SKU", err)
		}
		if !unique {
			return respondError(c, "Product with this SKU already exists",
				&apperror.ConflictError{Message: "Product with this SKU already exists"})
		}
	}

	existing.Variants, existing.Images = nil, nil
	if err := h.store.UpdateProduct(ctx, existing); err != nil {
		return respondError(c, "Failed to update product", storeError("update product", "Product", err))
	}
	prometheus.RecordProductOperation("update")

	updated, err := h.store.GetProduct(ctx, id)
	if err != nil {
		return respondError(c, "Failed to load product", storeError("get product", "Product", err))
	}

	log.Info("Product updated successfully",
		zap.String("product_id", id.String()),
		zap.String("old_sku", oldSKU),
		zap.String("new_sku", updated.SKU))
	return c.JSON(http.StatusOK, updated)
}

// DeleteProduct removes a product together with its variants and images
func (h *ProductHandler) DeleteProduct(c echo.Context) error {
	log := logger.FromEcho(c)

	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, "Invalid product id", err)
	}

	if err := h.store.DeleteProduct(c.Request().Context(), id); err != nil {
		return respondError(c, "Failed to delete product", storeError("delete product", "Product", err))
	}
	prometheus.RecordProductOperation("delete")

	log.Info("Product deleted successfully", zap.String("product_id", id.String()))
	return c.JSON(http.StatusOK, echo.Map{
		"message": "Product deleted successfully",
	})
}

// CheckSKU reports whether a SKU is free. productId excludes the product
// being edited.
func (h *ProductHandler) CheckSKU(c echo.Context) error {
	exclude, err := optionalUUID(c, "productId")
	if err != nil {
		return respondError(c, "Invalid productId", err)
	}

	unique, err := h.inventory.IsSKUUnique(c.Request().Context(), strings.TrimSpace(c.QueryParam("sku")), exclude)
	if err != nil {
		status := apperror.HTTPStatus(err)
		logger.FromEcho(c).Warn("SKU check failed", zap.Int("status", status), zap.Error(err))
		return c.JSON(status, echo.Map{"unique": false, "error": apperror.Message(err)})
	}
	return c.JSON(http.StatusOK, echo.Map{"unique": unique})
}

func (h *ProductHandler) Register(g *echo.Group) {
	g.GET("", h.ListProducts)
	g.POST("", h.CreateProduct)
	g.GET("/check-sku", h.CheckSKU)
	g.GET("/:id", h.GetProduct)
	g.PUT("/:id", h.UpdateProduct)
	g.DELETE("/:id", h.DeleteProduct)
}
