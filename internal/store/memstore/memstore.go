// Package memstore keeps every table in process memory. It backs
// STORE_DRIVER=memory and the service tests.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/baawa1/baawa-accessories-inventory-sub000/internal/model"
	"github.com/baawa1/baawa-accessories-inventory-sub000/internal/store"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

type Store struct {
	mu              sync.RWMutex
	categories      []model.Category
	brands          []model.Brand
	suppliers       []model.Supplier
	products        map[uuid.UUID]*model.Product
	variants        map[string]*model.ProductVariant
	images          map[string]*model.ProductImage
	reconciliations map[uuid.UUID]*model.StockReconciliation
	adjustments     []model.StockAdjustment
	now             func() time.Time
}

func New() *Store {
	return &Store{
		products:        make(map[uuid.UUID]*model.Product),
		variants:        make(map[string]*model.ProductVariant),
		images:          make(map[string]*model.ProductImage),
		reconciliations: make(map[uuid.UUID]*model.StockReconciliation),
		now:             time.Now,
	}
}

func sameName(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

func (s *Store) FindCategoryByName(ctx context.Context, name string) (*model.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.categories {
		if sameName(c.Name, name) {
			c := c
			return &c, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) FindBrandByName(ctx context.Context, name string) (*model.Brand, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, b := range s.brands {
		if sameName(b.Name, name) {
			b := b
			return &b, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) FindSupplierByName(ctx context.Context, name string) (*model.Supplier, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, sup := range s.suppliers {
		if sameName(sup.Name, name) {
			sup := sup
			return &sup, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) ListCategories(ctx context.Context) ([]model.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := append([]model.Category(nil), s.categories...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) ListBrands(ctx context.Context) ([]model.Brand, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := append([]model.Brand(nil), s.brands...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) ListSuppliers(ctx context.Context) ([]model.Supplier, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := append([]model.Supplier(nil), s.suppliers...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) CreateCategory(ctx context.Context, c *model.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.categories {
		if existing.Name == c.Name {
			return fmt.Errorf("%w: category %q", store.ErrConflict, c.Name)
		}
	}
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	c.CreatedAt, c.UpdatedAt = s.now(), s.now()
	s.categories = append(s.categories, *c)
	return nil
}

func (s *Store) CreateBrand(ctx context.Context, b *model.Brand) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.brands {
		if existing.Name == b.Name {
			return fmt.Errorf("%w: brand %q", store.ErrConflict, b.Name)
		}
	}
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	b.CreatedAt, b.UpdatedAt = s.now(), s.now()
	s.brands = append(s.brands, *b)
	return nil
}

func (s *Store) CreateSupplier(ctx context.Context, sup *model.Supplier) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sup.ID == uuid.Nil {
		sup.ID = uuid.New()
	}
	sup.CreatedAt, sup.UpdatedAt = s.now(), s.now()
	s.suppliers = append(s.suppliers, *sup)
	return nil
}

func (s *Store) skuTaken(sku string, exclude uuid.UUID) bool {
	for id, p := range s.products {
		if p.SKU == sku && id != exclude {
			return true
		}
	}
	return false
}

func (s *Store) SKUExists(ctx context.Context, sku string, exclude *uuid.UUID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var ex uuid.UUID
	if exclude != nil {
		ex = *exclude
	}
	return s.skuTaken(sku, ex), nil
}

func copyProduct(p *model.Product) *model.Product {
	cp := *p
	if p.Tags != nil {
		cp.Tags = append(pq.StringArray{}, p.Tags...)
	}
	cp.Variants = nil
	cp.Images = nil
	return &cp
}

func (s *Store) GetProduct(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.products[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	out := copyProduct(p)
	for _, v := range s.variants {
		if v.ProductID == id {
			out.Variants = append(out.Variants, *v)
		}
	}
	for _, img := range s.images {
		if img.ProductID == id {
			out.Images = append(out.Images, *img)
		}
	}
	sort.Slice(out.Variants, func(i, j int) bool { return out.Variants[i].SKUVariant < out.Variants[j].SKUVariant })
	sort.Slice(out.Images, func(i, j int) bool { return out.Images[i].DisplayOrder < out.Images[j].DisplayOrder })
	return out, nil
}

func (s *Store) ListProducts(ctx context.Context, filter store.ProductFilter) ([]model.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	q := strings.ToLower(strings.TrimSpace(filter.Query))
	var out []model.Product
	for _, p := range s.products {
		if filter.Status != "" && string(p.Status) != filter.Status {
			continue
		}
		if filter.CategoryID != nil && (p.CategoryID == nil || *p.CategoryID != *filter.CategoryID) {
			continue
		}
		if q != "" && !strings.Contains(strings.ToLower(p.Name), q) && !strings.Contains(strings.ToLower(p.SKU), q) {
			continue
		}
		out = append(out, *copyProduct(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) putProduct(p *model.Product) error {
	if s.skuTaken(p.SKU, p.ID) {
		return fmt.Errorf("%w: Key (sku)=(%s) already exists.", store.ErrConflict, p.SKU)
	}
	if p.Status == "" {
		p.Status = model.ProductActive
	}
	p.UpdatedAt = s.now()
	if existing, ok := s.products[p.ID]; ok {
		p.CreatedAt = existing.CreatedAt
	} else {
		p.CreatedAt = p.UpdatedAt
	}
	s.products[p.ID] = copyProduct(p)
	return nil
}

func (s *Store) CreateProduct(ctx context.Context, p *model.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if _, ok := s.products[p.ID]; ok {
		return fmt.Errorf("%w: Key (id)=(%s) already exists.", store.ErrConflict, p.ID)
	}
	return s.putProduct(p)
}

func (s *Store) UpdateProduct(ctx context.Context, p *model.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.products[p.ID]; !ok {
		return store.ErrNotFound
	}
	return s.putProduct(p)
}

func (s *Store) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.products[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.products, id)
	for k, v := range s.variants {
		if v.ProductID == id {
			delete(s.variants, k)
		}
	}
	for k, img := range s.images {
		if img.ProductID == id {
			delete(s.images, k)
		}
	}
	return nil
}

// UpsertProduct inserts p, or copies the named columns of p onto the
// product with the same id.
func (s *Store) UpsertProduct(ctx context.Context, p *model.Product, columns []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	existing, ok := s.products[p.ID]
	if !ok {
		return s.putProduct(p)
	}
	merged := copyProduct(existing)
	for _, col := range columns {
		switch col {
		case "sku":
			merged.SKU = p.SKU
		case "name":
			merged.Name = p.Name
		case "model_name":
			merged.ModelName = p.ModelName
		case "description":
			merged.Description = p.Description
		case "category_id":
			merged.CategoryID = p.CategoryID
		case "brand_id":
			merged.BrandID = p.BrandID
		case "supplier_id":
			merged.SupplierID = p.SupplierID
		case "cost_price":
			merged.CostPrice = p.CostPrice
		case "selling_price":
			merged.SellingPrice = p.SellingPrice
		case "quantity_on_hand":
			merged.QuantityOnHand = p.QuantityOnHand
		case "reorder_level":
			merged.ReorderLevel = p.ReorderLevel
		case "status":
			merged.Status = p.Status
		case "tags":
			merged.Tags = p.Tags
		}
	}
	return s.putProduct(merged)
}

func (s *Store) UpsertVariant(ctx context.Context, v *model.ProductVariant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.products[v.ProductID]; !ok {
		return fmt.Errorf("insert or update on table \"product_variants\" violates foreign key constraint: product %s", v.ProductID)
	}
	now := s.now()
	if existing, ok := s.variants[v.SKUVariant]; ok {
		v.ID = existing.ID
		v.CreatedAt = existing.CreatedAt
	} else {
		if v.ID == uuid.Nil {
			v.ID = uuid.New()
		}
		v.CreatedAt = now
	}
	v.UpdatedAt = now
	cp := *v
	s.variants[v.SKUVariant] = &cp
	return nil
}

func (s *Store) UpsertImage(ctx context.Context, img *model.ProductImage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.products[img.ProductID]; !ok {
		return fmt.Errorf("insert or update on table \"product_images\" violates foreign key constraint: product %s", img.ProductID)
	}
	if img.DisplayOrder == 0 {
		img.DisplayOrder = 1
	}
	if existing, ok := s.images[img.ImageURL]; ok {
		img.ID = existing.ID
		img.CreatedAt = existing.CreatedAt
	} else {
		if img.ID == uuid.Nil {
			img.ID = uuid.New()
		}
		img.CreatedAt = s.now()
	}
	cp := *img
	s.images[img.ImageURL] = &cp
	return nil
}

func (s *Store) GetImage(ctx context.Context, productID, imageID uuid.UUID) (*model.ProductImage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, img := range s.images {
		if img.ID == imageID && img.ProductID == productID {
			cp := *img
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) DeleteImage(ctx context.Context, productID, imageID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, img := range s.images {
		if img.ID == imageID && img.ProductID == productID {
			delete(s.images, k)
			return nil
		}
	}
	return store.ErrNotFound
}

func (s *Store) SetProductQuantity(ctx context.Context, id uuid.UUID, qty int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok {
		return store.ErrNotFound
	}
	p.QuantityOnHand = &qty
	p.UpdatedAt = s.now()
	return nil
}

func copyReconciliation(r *model.StockReconciliation) *model.StockReconciliation {
	cp := *r
	cp.Data = append([]model.ReconciliationLine(nil), r.Data...)
	return &cp
}

func (s *Store) CreateReconciliation(ctx context.Context, r *model.StockReconciliation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	if _, ok := s.reconciliations[r.ID]; ok {
		return fmt.Errorf("%w: Key (id)=(%s) already exists.", store.ErrConflict, r.ID)
	}
	r.CreatedAt, r.UpdatedAt = s.now(), s.now()
	s.reconciliations[r.ID] = copyReconciliation(r)
	return nil
}

func (s *Store) UpdateReconciliation(ctx context.Context, r *model.StockReconciliation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.reconciliations[r.ID]
	if !ok {
		return store.ErrNotFound
	}
	r.CreatedAt = existing.CreatedAt
	r.UpdatedAt = s.now()
	s.reconciliations[r.ID] = copyReconciliation(r)
	return nil
}

func (s *Store) GetReconciliation(ctx context.Context, id uuid.UUID) (*model.StockReconciliation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.reconciliations[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return copyReconciliation(r), nil
}

func (s *Store) ListReconciliations(ctx context.Context, filter store.ReconciliationFilter) ([]model.StockReconciliation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.StockReconciliation
	for _, r := range s.reconciliations {
		if filter.Status != "" && string(r.Status) != filter.Status {
			continue
		}
		out = append(out, *copyReconciliation(r))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) AdjustStock(ctx context.Context, adj *model.StockAdjustment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[adj.ProductID]
	if !ok {
		return store.ErrNotFound
	}
	if adj.VariantID != nil {
		var variant *model.ProductVariant
		for _, v := range s.variants {
			if v.ID == *adj.VariantID && v.ProductID == adj.ProductID {
				variant = v
				break
			}
		}
		if variant == nil {
			return store.ErrNotFound
		}
		adj.PreviousQuantity = 0
		if variant.QuantityVariant != nil {
			adj.PreviousQuantity = *variant.QuantityVariant
		}
		adj.NewQuantity = adj.PreviousQuantity + adj.QuantityChanged
		qty := adj.NewQuantity
		variant.QuantityVariant = &qty
	} else {
		adj.PreviousQuantity = p.Quantity()
		adj.NewQuantity = adj.PreviousQuantity + adj.QuantityChanged
		qty := adj.NewQuantity
		p.QuantityOnHand = &qty
	}
	if adj.ID == uuid.Nil {
		adj.ID = uuid.New()
	}
	adj.CreatedAt = s.now()
	s.adjustments = append(s.adjustments, *adj)
	return nil
}

func (s *Store) ListAdjustments(ctx context.Context, filter store.AdjustmentFilter) ([]model.StockAdjustment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.StockAdjustment
	for i := len(s.adjustments) - 1; i >= 0; i-- {
		a := s.adjustments[i]
		if filter.ProductID != nil && a.ProductID != *filter.ProductID {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

var _ store.Repository = (*Store)(nil)
