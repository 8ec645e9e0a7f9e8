package inventory

import (
	"context"
	"errors"
	"strings"

	"github.com/baawa1/baawa-accessories-inventory-sub000/internal/apperror"
	"github.com/baawa1/baawa-accessories-inventory-sub000/internal/lock"
	"github.com/baawa1/baawa-accessories-inventory-sub000/internal/model"
	"github.com/baawa1/baawa-accessories-inventory-sub000/internal/store"
	"github.com/baawa1/baawa-accessories-inventory-sub000/pkg/logger"
	"github.com/baawa1/baawa-accessories-inventory-sub000/prometheus"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Store interface {
	AdjustStock(ctx context.Context, adj *model.StockAdjustment) error
	ListAdjustments(ctx context.Context, filter store.AdjustmentFilter) ([]model.StockAdjustment, error)
	SKUExists(ctx context.Context, sku string, exclude *uuid.UUID) (bool, error)
}

// AdjustmentRequest is a manual change of stock. VariantID selects a
// variant's quantity instead of the product's.
type AdjustmentRequest struct {
	ProductID       uuid.UUID
	VariantID       *uuid.UUID
	UserID          string
	AdjustmentType  string
	QuantityChanged int
	Reason          string
}

type Service struct {
	store  Store
	locker lock.Locker
}

func NewService(s Store, locker lock.Locker) *Service {
	return &Service{store: s, locker: locker}
}

// Adjust adds req.QuantityChanged to the current quantity and records the
// adjustment. The returned row carries the previous and new quantity.
func (s *Service) Adjust(ctx context.Context, req AdjustmentRequest) (*model.StockAdjustment, error) {
	log := logger.FromContext(ctx)

	switch {
	case req.ProductID == uuid.Nil:
		return nil, apperror.Validation("product_id", "is required")
	case strings.TrimSpace(req.AdjustmentType) == "":
		return nil, apperror.Validation("adjustment_type", "is required")
	case req.QuantityChanged == 0:
		return nil, apperror.Validation("quantity_changed", "must not be zero")
	}

	key := lock.ProductKey(req.ProductID)
	release, err := s.locker.Obtain(ctx, key)
	if errors.Is(err, lock.ErrNotObtained) {
		return nil, &apperror.ConflictError{Message: "product is being updated by another request, try again"}
	}
	if err != nil {
		return nil, apperror.Persistence("obtain lock", err)
	}
	defer func() {
		if err := release(context.WithoutCancel(ctx)); err != nil {
			log.Warn("Failed to release lock", zap.String("key", key), zap.Error(err))
		}
	}()

	adj := &model.StockAdjustment{
		ProductID:       req.ProductID,
		VariantID:       req.VariantID,
		UserID:          req.UserID,
		AdjustmentType:  strings.TrimSpace(req.AdjustmentType),
		QuantityChanged: req.QuantityChanged,
		Reason:          req.Reason,
	}
	if err := s.store.AdjustStock(ctx, adj); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			if req.VariantID != nil {
				return nil, apperror.Precondition("variant %s of product %s not found", *req.VariantID, req.ProductID)
			}
			return nil, apperror.Precondition("product %s not found", req.ProductID)
		}
		log.Error("Failed to adjust stock",
			zap.String("product_id", req.ProductID.String()),
			zap.Error(err))
		return nil, apperror.Persistence("adjust stock", err)
	}

	prometheus.RecordStockAdjustment(adj.AdjustmentType)
	log.Info("Stock adjusted",
		zap.String("product_id", adj.ProductID.String()),
		zap.String("adjustment_type", adj.AdjustmentType),
		zap.Int("quantity_changed", adj.QuantityChanged),
		zap.Int("previous_quantity", adj.PreviousQuantity),
		zap.Int("new_quantity", adj.NewQuantity))
	return adj, nil
}

func (s *Service) ListAdjustments(ctx context.Context, productID *uuid.UUID) ([]model.StockAdjustment, error) {
	out, err := s.store.ListAdjustments(ctx, store.AdjustmentFilter{ProductID: productID})
	if err != nil {
		return nil, apperror.Persistence("list stock adjustments", err)
	}
	return out, nil
}

// IsSKUUnique reports whether no product other than exclude uses sku
func (s *Service) IsSKUUnique(ctx context.Context, sku string, exclude *uuid.UUID) (bool, error) {
	if sku == "" {
		return false, apperror.Validation("sku", "is required")
	}
	taken, err := s.store.SKUExists(ctx, sku, exclude)
	if err != nil {
		return false, apperror.Persistence("check sku", err)
	}
	return !taken, nil
}
