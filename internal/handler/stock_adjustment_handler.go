package handler

import (
	"net/http"

	"github.com/baawa1/baawa-accessories-inventory-sub000/internal/inventory"
	"github.com/baawa1/baawa-accessories-inventory-sub000/internal/middleware"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// StockAdjustmentRequest is a manual stock change. quantity_changed is
// signed: negative for shrinkage, positive for found stock.
type StockAdjustmentRequest struct {
	ProductID       uuid.UUID  `json:"product_id"`
	VariantID       *uuid.UUID `json:"variant_id"`
	UserID          string     `json:"user_id"`
	AdjustmentType  string     `json:"adjustment_type"`
	QuantityChanged int        `json:"quantity_changed"`
	Reason          string     `json:"reason"`
}

type StockAdjustmentHandler struct {
	inventory *inventory.Service
}

func NewStockAdjustmentHandler(inv *inventory.Service) *StockAdjustmentHandler {
	return &StockAdjustmentHandler{inventory: inv}
}

func (h *StockAdjustmentHandler) Create(c echo.Context) error {
	var req StockAdjustmentRequest
	if err := bind(c, &req); err != nil {
		return respondError(c, "Invalid stock adjustment request", err)
	}

	userID := req.UserID
	if userID == "" {
		userID = middleware.UserID(c)
	}

	adj, err := h.inventory.Adjust(c.Request().Context(), inventory.AdjustmentRequest{
		ProductID:       req.ProductID,
		VariantID:       req.VariantID,
		UserID:          userID,
		AdjustmentType:  req.AdjustmentType,
		QuantityChanged: req.QuantityChanged,
		Reason:          req.Reason,
	})
	if err != nil {
		return respondError(c, "Failed to adjust stock", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "newQty": adj.NewQuantity})
}

func (h *StockAdjustmentHandler) List(c echo.Context) error {
	productID, err := optionalUUID(c, "product_id")
	if err != nil {
		return respondError(c, "Invalid product filter", err)
	}

	adjustments, err := h.inventory.ListAdjustments(c.Request().Context(), productID)
	if err != nil {
		return respondError(c, "Failed to list stock adjustments", err)
	}
	return c.JSON(http.StatusOK, adjustments)
}

func (h *StockAdjustmentHandler) Register(g *echo.Group) {
	g.GET("", h.List)
	g.POST("", h.Create)
}
