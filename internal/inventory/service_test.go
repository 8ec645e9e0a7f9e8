package inventory

import (
	"context"
	"errors"
	"testing"

	"github.com/baawa1/baawa-accessories-inventory-sub000/internal/apperror"
	"github.com/baawa1/baawa-accessories-inventory-sub000/internal/lock"
	"github.com/baawa1/baawa-accessories-inventory-sub000/internal/model"
	"github.com/baawa1/baawa-accessories-inventory-sub000/internal/store/memstore"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) (*Service, *memstore.Store, *model.Product) {
	t.Helper()
	s := memstore.New()
	qty := 10
	p := &model.Product{SKU: "X1", Name: "Widget", QuantityOnHand: &qty}
	require.NoError(t, s.CreateProduct(context.Background(), p))
	return NewService(s, lock.NewLocal()), s, p
}

func TestAdjustAddsToCurrentQuantity(t *testing.T) {
	svc, s, p := setup(t)
	ctx := context.Background()

	adj, err := svc.Adjust(ctx, AdjustmentRequest{ProductID: p.ID, UserID: "u1", AdjustmentType: "damage", QuantityChanged: -4, Reason: "broken"})
	require.NoError(t, err)
	assert.Equal(t, 10, adj.PreviousQuantity)
	assert.Equal(t, 6, adj.NewQuantity)

	adj, err = svc.Adjust(ctx, AdjustmentRequest{ProductID: p.ID, AdjustmentType: "restock", QuantityChanged: 5})
	require.NoError(t, err)
	assert.Equal(t, 11, adj.NewQuantity)

	got, err := s.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 11, got.Quantity())

	log, err := svc.ListAdjustments(ctx, &p.ID)
	require.NoError(t, err)
	require.Len(t, log, 2)
	assert.Equal(t, "restock", log[0].AdjustmentType)
	assert.Equal(t, "u1", log[1].UserID)
}

func TestAdjustValidation(t *testing.T) {
	svc, _, p := setup(t)
	for field, req := range map[string]AdjustmentRequest{
		"product_id":       {AdjustmentType: "damage", QuantityChanged: 1},
		"adjustment_type":  {ProductID: p.ID, QuantityChanged: 1},
		"quantity_changed": {ProductID: p.ID, AdjustmentType: "damage"},
	} {
		_, err := svc.Adjust(context.Background(), req)
		var ve *apperror.ValidationError
		require.ErrorAs(t, err, &ve, field)
		assert.Equal(t, field, ve.Field)
	}
}

func TestAdjustUnknownProduct(t *testing.T) {
	svc, _, p := setup(t)
	_, err := svc.Adjust(context.Background(), AdjustmentRequest{ProductID: uuid.New(), AdjustmentType: "damage", QuantityChanged: 1})
	var pe *apperror.PreconditionError
	assert.ErrorAs(t, err, &pe)

	variant := uuid.New()
	_, err = svc.Adjust(context.Background(), AdjustmentRequest{ProductID: p.ID, VariantID: &variant, AdjustmentType: "damage", QuantityChanged: 1})
	assert.ErrorAs(t, err, &pe)
}

type brokenStore struct{ Store }

func (brokenStore) AdjustStock(context.Context, *model.StockAdjustment) error {
	return errors.New(`relation "stock_adjustments" does not exist`)
}

func TestAdjustPassesStoreMessageThrough(t *testing.T) {
	_, s, p := setup(t)
	svc := NewService(brokenStore{s}, lock.NewLocal())
	_, err := svc.Adjust(context.Background(), AdjustmentRequest{ProductID: p.ID, AdjustmentType: "damage", QuantityChanged: 1})
	var pe *apperror.PersistenceError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, `relation "stock_adjustments" does not exist`, err.Error())
}

func TestIsSKUUnique(t *testing.T) {
	svc, _, p := setup(t)
	ctx := context.Background()

	unique, err := svc.IsSKUUnique(ctx, "X1", nil)
	require.NoError(t, err)
	assert.False(t, unique)

	unique, err = svc.IsSKUUnique(ctx, "X1", &p.ID)
	require.NoError(t, err)
	assert.True(t, unique)

	unique, err = svc.IsSKUUnique(ctx, "NEW", nil)
	require.NoError(t, err)
	assert.True(t, unique)

	_, err = svc.IsSKUUnique(ctx, "", nil)
	var ve *apperror.ValidationError
	assert.ErrorAs(t, err, &ve)
}
