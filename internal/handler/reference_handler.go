package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/baawa1/baawa-accessories-inventory-sub000/internal/model"
	"github.com/baawa1/baawa-accessories-inventory-sub000/pkg/logger"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// ReferenceStore holds the categories, brands and suppliers products point at
type ReferenceStore interface {
	ListCategories(ctx context.Context) ([]model.Category, error)
	ListBrands(ctx context.Context) ([]model.Brand, error)
	ListSuppliers(ctx context.Context) ([]model.Supplier, error)
	CreateCategory(ctx context.Context, c *model.Category) error
	CreateBrand(ctx context.Context, b *model.Brand) error
	CreateSupplier(ctx context.Context, s *model.Supplier) error
}

type CategoryRequest struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
}

type BrandRequest struct {
	Name string `json:"name" validate:"required"`
}

type SupplierRequest struct {
	Name          string `json:"name" validate:"required"`
	ContactPerson string `json:"contact_person"`
	Email         string `json:"email" validate:"omitempty,email"`
	Phone         string `json:"phone"`
	Address       string `json:"address"`
	PaymentTerms  string `json:"payment_terms"`
	Notes         string `json:"notes"`
}

type ReferenceHandler struct {
	store ReferenceStore
}

func NewReferenceHandler(s ReferenceStore) *ReferenceHandler {
	return &ReferenceHandler{store: s}
}

func (h *ReferenceHandler) ListCategories(c echo.Context) error {
	categories, err := h.store.ListCategories(c.Request().Context())
	if err != nil {
		return respondError(c, "Failed to list categories", storeError("list categories", "categories", err))
	}
	return c.JSON(http.StatusOK, categories)
}

func (h *ReferenceHandler) CreateCategory(c echo.Context) error {
	var req CategoryRequest
	if err := bind(c, &req); err != nil {
		return respondError(c, "Invalid category request", err)
	}

	category := model.Category{Name: strings.TrimSpace(req.Name), Description: req.Description}
	if err := h.store.CreateCategory(c.Request().Context(), &category); err != nil {
		return respondError(c, "Failed to create category", storeError("create category", "Category", err))
	}

	logger.FromEcho(c).Info("Category created",
		zap.String("category_id", category.ID.String()),
		zap.String("name", category.Name))
	return c.JSON(http.StatusCreated, category)
}

func (h *ReferenceHandler) ListBrands(c echo.Context) error {
	brands, err := h.store.ListBrands(c.Request().Context())
	if err != nil {
		return respondError(c, "Failed to list brands", storeError("list brands", "brands", err))
	}
	return c.JSON(http.StatusOK, brands)
}

func (h *ReferenceHandler) CreateBrand(c echo.Context) error {
	var req BrandRequest
	if err := bind(c, &req); err != nil {
		return respondError(c, "Invalid brand request", err)
	}

	brand := model.Brand{Name: strings.TrimSpace(req.Name)}
	if err := h.store.CreateBrand(c.Request().Context(), &brand); err != nil {
		return respondError(c, "Failed to create brand", storeError("create brand", "Brand", err))
	}

	logger.FromEcho(c).Info("Brand created",
		zap.String("brand_id", brand.ID.String()),
		zap.String("name", brand.Name))
	return c.JSON(http.StatusCreated, brand)
}

func (h *ReferenceHandler) ListSuppliers(c echo.Context) error {
	suppliers, err := h.store.ListSuppliers(c.Request().Context())
	if err != nil {
		return respondError(c, "Failed to list suppliers", storeError("list suppliers", "suppliers", err))
	}
	return c.JSON(http.StatusOK, suppliers)
}

func (h *ReferenceHandler) CreateSupplier(c echo.Context) error {
	var req SupplierRequest
	if err := bind(c, &req); err != nil {
		return respondError(c, "Invalid supplier request", err)
	}

	supplier := model.Supplier{
		Name:          strings.TrimSpace(req.Name),
		ContactPerson: req.ContactPerson,
		Email:         req.Email,
		Phone:         req.Phone,
		Address:       req.Address,
		PaymentTerms:  req.PaymentTerms,
		Notes:         req.Notes,
	}
	if err := h.store.CreateSupplier(c.Request().Context(), &supplier); err != nil {
		return respondError(c, "Failed to create supplier", storeError("create supplier", "Supplier", err))
	}

	logger.FromEcho(c).Info("Supplier created",
		zap.String("supplier_id", supplier.ID.String()),
		zap.String("name", supplier.Name))
	return c.JSON(http.StatusCreated, supplier)
}

func (h *ReferenceHandler) Register(api *echo.Group) {
	api.GET("/categories", h.ListCategories)
	api.POST("/categories", h.CreateCategory)
	api.GET("/brands", h.ListBrands)
	api.POST("/brands", h.CreateBrand)
	api.GET("/suppliers", h.ListSuppliers)
	api.POST("/suppliers", h.CreateSupplier)
}
