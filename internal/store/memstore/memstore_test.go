package memstore

import (
	"context"
	"testing"

	"github.com/baawa1/baawa-accessories-inventory-sub000/internal/model"
	"github.com/baawa1/baawa-accessories-inventory-sub000/internal/store"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func TestFindByNameIsCaseInsensitiveAndTrimmed(t *testing.T) {
	ctx := context.Background()
	s := New()
	require.NoError(t, s.CreateCategory(ctx, &model.Category{Name: "Watches"}))

	c, err := s.FindCategoryByName(ctx, "  wAtChEs ")
	require.NoError(t, err)
	assert.Equal(t, "Watches", c.Name)

	_, err = s.FindCategoryByName(ctx, "Rings")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestUpsertProductKeepsSKUUnique(t *testing.T) {
	ctx := context.Background()
	s := New()
	first := &model.Product{SKU: "X1", Name: "Widget"}
	require.NoError(t, s.UpsertProduct(ctx, first, nil))
	require.NotEqual(t, uuid.Nil, first.ID)

	err := s.UpsertProduct(ctx, &model.Product{SKU: "X1", Name: "Other"}, nil)
	assert.ErrorIs(t, err, store.ErrConflict)

	first.Name = "Widget v2"
	require.NoError(t, s.UpsertProduct(ctx, first, []string{"name"}))
	got, err := s.GetProduct(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "Widget v2", got.Name)
	assert.Equal(t, model.ProductActive, got.Status)
}

func TestUpsertProductWritesOnlyNamedColumns(t *testing.T) {
	ctx := context.Background()
	s := New()
	p := &model.Product{SKU: "X1", Name: "Widget", ModelName: "MX-1", QuantityOnHand: intPtr(4), ReorderLevel: intPtr(7)}
	require.NoError(t, s.CreateProduct(ctx, p))

	update := &model.Product{ID: p.ID, SKU: "X1", Name: "Widget v2", Status: model.ProductDraft}
	require.NoError(t, s.UpsertProduct(ctx, update, []string{"sku", "name", "status", "model_name"}))

	got, err := s.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Widget v2", got.Name)
	assert.Equal(t, model.ProductDraft, got.Status)
	assert.Empty(t, got.ModelName)
	assert.Equal(t, 4, *got.QuantityOnHand)
	assert.Equal(t, 7, *got.ReorderLevel)
	assert.Equal(t, p.CreatedAt, got.CreatedAt)
}

func TestUpsertVariantAndImageByNaturalKey(t *testing.T) {
	ctx := context.Background()
	s := New()
	p := &model.Product{SKU: "X1", Name: "Widget"}
	require.NoError(t, s.CreateProduct(ctx, p))

	require.NoError(t, s.UpsertVariant(ctx, &model.ProductVariant{ProductID: p.ID, SKUVariant: "X1-RED", Color: "red"}))
	require.NoError(t, s.UpsertVariant(ctx, &model.ProductVariant{ProductID: p.ID, SKUVariant: "X1-RED", Color: "crimson"}))
	require.NoError(t, s.UpsertImage(ctx, &model.ProductImage{ProductID: p.ID, ImageURL: "https://img/x1.png"}))
	require.NoError(t, s.UpsertImage(ctx, &model.ProductImage{ProductID: p.ID, ImageURL: "https://img/x1.png", AltText: "front"}))

	got, err := s.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, got.Variants, 1)
	assert.Equal(t, "crimson", got.Variants[0].Color)
	require.Len(t, got.Images, 1)
	assert.Equal(t, "front", got.Images[0].AltText)
	assert.Equal(t, 1, got.Images[0].DisplayOrder)

	err = s.UpsertVariant(ctx, &model.ProductVariant{ProductID: uuid.New(), SKUVariant: "ORPHAN"})
	assert.Error(t, err)
}

func TestSKUExistsExcludesProduct(t *testing.T) {
	ctx := context.Background()
	s := New()
	p := &model.Product{SKU: "X1", Name: "Widget"}
	require.NoError(t, s.CreateProduct(ctx, p))

	exists, err := s.SKUExists(ctx, "X1", nil)
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = s.SKUExists(ctx, "X1", &p.ID)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestAdjustStockProductAndVariant(t *testing.T) {
	ctx := context.Background()
	s := New()
	p := &model.Product{SKU: "X1", Name: "Widget", QuantityOnHand: intPtr(5)}
	require.NoError(t, s.CreateProduct(ctx, p))
	v := &model.ProductVariant{ProductID: p.ID, SKUVariant: "X1-S", QuantityVariant: intPtr(2)}
	require.NoError(t, s.UpsertVariant(ctx, v))

	adj := &model.StockAdjustment{ProductID: p.ID, AdjustmentType: "damage", QuantityChanged: -3}
	require.NoError(t, s.AdjustStock(ctx, adj))
	assert.Equal(t, 5, adj.PreviousQuantity)
	assert.Equal(t, 2, adj.NewQuantity)

	vadj := &model.StockAdjustment{ProductID: p.ID, VariantID: &v.ID, AdjustmentType: "restock", QuantityChanged: 4}
	require.NoError(t, s.AdjustStock(ctx, vadj))
	assert.Equal(t, 6, vadj.NewQuantity)

	got, err := s.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Quantity())
	assert.Equal(t, 6, *got.Variants[0].QuantityVariant)

	list, err := s.ListAdjustments(ctx, store.AdjustmentFilter{ProductID: &p.ID})
	require.NoError(t, err)
	assert.Len(t, list, 2)

	err = s.AdjustStock(ctx, &model.StockAdjustment{ProductID: uuid.New(), QuantityChanged: 1})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestReconciliationCopiesAreIsolated(t *testing.T) {
	ctx := context.Background()
	s := New()
	r := &model.StockReconciliation{Status: model.ReconciliationDraft, Data: []model.ReconciliationLine{{Name: "a"}}}
	require.NoError(t, s.CreateReconciliation(ctx, r))

	r.Data[0].Name = "mutated"
	got, err := s.GetReconciliation(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, "a", got.Data[0].Name)

	err = s.UpdateReconciliation(ctx, &model.StockReconciliation{ID: uuid.New()})
	assert.ErrorIs(t, err, store.ErrNotFound)
}
