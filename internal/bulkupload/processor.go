package bulkupload

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/baawa1/baawa-accessories-inventory-sub000/internal/apperror"
	"github.com/baawa1/baawa-accessories-inventory-sub000/internal/model"
	"github.com/baawa1/baawa-accessories-inventory-sub000/internal/store"
	"github.com/baawa1/baawa-accessories-inventory-sub000/pkg/logger"
	"github.com/baawa1/baawa-accessories-inventory-sub000/prometheus"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Store is the persistence the processor needs
type Store interface {
	FindCategoryByName(ctx context.Context, name string) (*model.Category, error)
	FindBrandByName(ctx context.Context, name string) (*model.Brand, error)
	FindSupplierByName(ctx context.Context, name string) (*model.Supplier, error)
	SKUExists(ctx context.Context, sku string, exclude *uuid.UUID) (bool, error)
	UpsertProduct(ctx context.Context, p *model.Product, columns []string) error
	UpsertVariant(ctx context.Context, v *model.ProductVariant) error
	UpsertImage(ctx context.Context, img *model.ProductImage) error
}

type RowStatus string

const (
	StatusAdded   RowStatus = "added"
	StatusUpdated RowStatus = "updated"
	StatusFailed  RowStatus = "failed"
)

// Result is the outcome of one input row
type Result struct {
	Row    Row
	Status RowStatus
	Error  string
}

type Summary struct {
	Added   int
	Updated int
	Failed  int
}

// Processor upserts uploaded rows one at a time, in input order
type Processor struct {
	store      Store
	rowTimeout time.Duration
}

// NewProcessor returns a Processor. rowTimeout bounds the store work of a
// single row; zero disables the bound.
func NewProcessor(s Store, rowTimeout time.Duration) *Processor {
	return &Processor{store: s, rowTimeout: rowTimeout}
}

// Process handles every row of table and returns one result per row, in
// the same order. A failing row never stops the rows after it.
func (p *Processor) Process(ctx context.Context, table *Table) ([]Result, Summary) {
	log := logger.FromContext(ctx)
	results := make([]Result, 0, len(table.Rows))
	var summary Summary

	for _, row := range table.Rows {
		status, err := p.processRow(ctx, row)
		result := Result{Row: row, Status: status}
		switch status {
		case StatusAdded:
			summary.Added++
		case StatusUpdated:
			summary.Updated++
		default:
			summary.Failed++
			result.Error = apperror.Message(err)
			log.Warn("Bulk upload row failed",
				zap.Int("line", row.Line),
				zap.String("sku", row.Get(ColSKU)),
				zap.Error(err))
		}
		prometheus.RecordBulkUploadRow(string(status))
		results = append(results, result)
	}

	log.Info("Bulk upload processed",
		zap.Int("rows", len(table.Rows)),
		zap.Int("added", summary.Added),
		zap.Int("updated", summary.Updated),
		zap.Int("failed", summary.Failed))
	return results, summary
}

func (p *Processor) processRow(ctx context.Context, row Row) (RowStatus, error) {
	if p.rowTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.rowTimeout)
		defer cancel()
	}

	status, err := p.upsertRow(ctx, row)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return StatusFailed, &apperror.TimeoutError{Op: fmt.Sprintf("row %d", row.Line)}
		}
		return StatusFailed, err
	}
	return status, nil
}

func (p *Processor) upsertRow(ctx context.Context, row Row) (RowStatus, error) {
	categoryID, err := p.resolve("category", row.Get(ColCategory), func(name string) (uuid.UUID, error) {
		c, err := p.store.FindCategoryByName(ctx, name)
		if err != nil {
			return uuid.Nil, err
		}
		return c.ID, nil
	})
	if err != nil {
		return StatusFailed, err
	}
	brandID, err := p.resolve("brand", row.Get(ColBrand), func(name string) (uuid.UUID, error) {
		b, err := p.store.FindBrandByName(ctx, name)
		if err != nil {
			return uuid.Nil, err
		}
		return b.ID, nil
	})
	if err != nil {
		return StatusFailed, err
	}
	supplierID, err := p.resolve("supplier", row.Get(ColSupplier), func(name string) (uuid.UUID, error) {
		s, err := p.store.FindSupplierByName(ctx, name)
		if err != nil {
			return uuid.Nil, err
		}
		return s.ID, nil
	})
	if err != nil {
		return StatusFailed, err
	}

	parsed, err := ParseRow(row)
	if err != nil {
		return StatusFailed, err
	}
	product := &parsed.Product
	product.CategoryID = categoryID
	product.BrandID = brandID
	product.SupplierID = supplierID

	var exclude *uuid.UUID
	if parsed.HasID {
		exclude = &product.ID
	}
	taken, err := p.store.SKUExists(ctx, product.SKU, exclude)
	if err != nil {
		return StatusFailed, apperror.Persistence("check sku", err)
	}
	if taken {
		return StatusFailed, &apperror.ConflictError{Message: fmt.Sprintf("SKU already exists: %s", product.SKU)}
	}

	if err := p.store.UpsertProduct(ctx, product, parsed.Columns); err != nil {
		return StatusFailed, apperror.Persistence("upsert product", err)
	}
	if parsed.Variant != nil {
		parsed.Variant.ProductID = product.ID
		if err := p.store.UpsertVariant(ctx, parsed.Variant); err != nil {
			return StatusFailed, apperror.Persistence("upsert variant", err)
		}
	}
	if parsed.Image != nil {
		parsed.Image.ProductID = product.ID
		if err := p.store.UpsertImage(ctx, parsed.Image); err != nil {
			return StatusFailed, apperror.Persistence("upsert image", err)
		}
	}

	if parsed.HasID {
		return StatusUpdated, nil
	}
	return StatusAdded, nil
}

// resolve looks a reference up by name. An empty name resolves to nil.
func (p *Processor) resolve(kind, name string, find func(string) (uuid.UUID, error)) (*uuid.UUID, error) {
	if name == "" {
		return nil, nil
	}
	id, err := find(name)
	if errors.Is(err, store.ErrNotFound) {
		return nil, &apperror.ReferenceNotFoundError{Kind: kind, Name: name}
	}
	if err != nil {
		return nil, apperror.Persistence("find "+kind, err)
	}
	return &id, nil
}
