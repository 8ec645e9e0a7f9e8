package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/baawa1/baawa-accessories-inventory-sub000/internal/model"
	"github.com/baawa1/baawa-accessories-inventory-sub000/prometheus"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const uniqueViolation = "23505"

// Store implements Repository on top of gorm and PostgreSQL
type Store struct {
	db *gorm.DB
}

// New returns a Store using db
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// translate maps driver errors onto ErrNotFound and ErrConflict and returns
// everything else unchanged.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		if pgErr.Detail != "" {
			return fmt.Errorf("%w: %s", ErrConflict, pgErr.Detail)
		}
		return ErrConflict
	}
	return err
}

func (s *Store) findByName(ctx context.Context, dest interface{}, name string) error {
	defer prometheus.TrackDBOperation("query")(time.Now())
	return translate(s.db.WithContext(ctx).
		Where("LOWER(TRIM(name)) = LOWER(?)", strings.TrimSpace(name)).
		First(dest).Error)
}

func (s *Store) FindCategoryByName(ctx context.Context, name string) (*model.Category, error) {
	var c model.Category
	if err := s.findByName(ctx, &c, name); err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *Store) FindBrandByName(ctx context.Context, name string) (*model.Brand, error) {
	var b model.Brand
	if err := s.findByName(ctx, &b, name); err != nil {
		return nil, err
	}
	return &b, nil
}

func (s *Store) FindSupplierByName(ctx context.Context, name string) (*model.Supplier, error) {
	var sup model.Supplier
	if err := s.findByName(ctx, &sup, name); err != nil {
		return nil, err
	}
	return &sup, nil
}

func (s *Store) ListCategories(ctx context.Context) ([]model.Category, error) {
	defer prometheus.TrackDBOperation("query")(time.Now())
	var out []model.Category
	err := s.db.WithContext(ctx).Order("name").Find(&out).Error
	return out, translate(err)
}

func (s *Store) ListBrands(ctx context.Context) ([]model.Brand, error) {
	defer prometheus.TrackDBOperation("query")(time.Now())
	var out []model.Brand
	err := s.db.WithContext(ctx).Order("name").Find(&out).Error
	return out, translate(err)
}

func (s *Store) ListSuppliers(ctx context.Context) ([]model.Supplier, error) {
	defer prometheus.TrackDBOperation("query")(time.Now())
	var out []model.Supplier
	err := s.db.WithContext(ctx).Order("name").Find(&out).Error
	return out, translate(err)
}

func (s *Store) CreateCategory(ctx context.Context, c *model.Category) error {
	defer prometheus.TrackDBOperation("insert")(time.Now())
	return translate(s.db.WithContext(ctx).Create(c).Error)
}

func (s *Store) CreateBrand(ctx context.Context, b *model.Brand) error {
	defer prometheus.TrackDBOperation("insert")(time.Now())
	return translate(s.db.WithContext(ctx).Create(b).Error)
}

func (s *Store) CreateSupplier(ctx context.Context, sup *model.Supplier) error {
	defer prometheus.TrackDBOperation("insert")(time.Now())
	return translate(s.db.WithContext(ctx).Create(sup).Error)
}

// SKUExists reports whether a product other than exclude already uses sku
func (s *Store) SKUExists(ctx context.Context, sku string, exclude *uuid.UUID) (bool, error) {
	defer prometheus.TrackDBOperation("query")(time.Now())
	query := s.db.WithContext(ctx).Model(&model.Product{}).Where("sku = ?", sku)
	if exclude != nil {
		query = query.Where("id <> ?", *exclude)
	}
	var count int64
	if err := query.Limit(1).Count(&count).Error; err != nil {
		return false, translate(err)
	}
	return count > 0, nil
}

func (s *Store) GetProduct(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	defer prometheus.TrackDBOperation("query")(time.Now())
	var p model.Product
	err := s.db.WithContext(ctx).
		Preload("Variants").
		Preload("Images", func(db *gorm.DB) *gorm.DB { return db.Order("display_order") }).
		First(&p, "id = ?", id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func (s *Store) ListProducts(ctx context.Context, filter ProductFilter) ([]model.Product, error) {
	defer prometheus.TrackDBOperation("query")(time.Now())
	query := s.db.WithContext(ctx)
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.CategoryID != nil {
		query = query.Where("category_id = ?", *filter.CategoryID)
	}
	if q := strings.TrimSpace(filter.Query); q != "" {
		like := "%" + strings.ToLower(q) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(sku) LIKE ?", like, like)
	}
	var out []model.Product
	err := query.Order("name").Find(&out).Error
	return out, translate(err)
}

func (s *Store) CreateProduct(ctx context.Context, p *model.Product) error {
	defer prometheus.TrackDBOperation("insert")(time.Now())
	return translate(s.db.WithContext(ctx).Omit(clause.Associations).Create(p).Error)
}

func (s *Store) UpdateProduct(ctx context.Context, p *model.Product) error {
	defer prometheus.TrackDBOperation("update")(time.Now())
	result := s.db.WithContext(ctx).Model(p).Omit(clause.Associations, "created_at").
		Select("*").Updates(p)
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	defer prometheus.TrackDBOperation("delete")(time.Now())
	result := s.db.WithContext(ctx).Delete(&model.Product{}, "id = ?", id)
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// UpsertProduct inserts p or, when a product with the same id exists,
// overwrites only the named columns and updated_at. Associations are
// written separately.
func (s *Store) UpsertProduct(ctx context.Context, p *model.Product, columns []string) error {
	defer prometheus.TrackDBOperation("upsert")(time.Now())
	set := make([]string, 0, len(columns)+1)
	for _, col := range columns {
		if col != "created_at" && col != "updated_at" {
			set = append(set, col)
		}
	}
	set = append(set, "updated_at")
	return translate(s.db.WithContext(ctx).
		Omit(clause.Associations).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns(set),
		}).
		Create(p).Error)
}

func (s *Store) UpsertVariant(ctx context.Context, v *model.ProductVariant) error {
	defer prometheus.TrackDBOperation("upsert")(time.Now())
	return translate(s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "sku_variant"}},
			DoUpdates: clause.AssignmentColumns([]string{"product_id", "color", "size", "price_variant", "quantity_variant", "updated_at"}),
		}).
		Create(v).Error)
}

func (s *Store) UpsertImage(ctx context.Context, img *model.ProductImage) error {
	defer prometheus.TrackDBOperation("upsert")(time.Now())
	if img.DisplayOrder == 0 {
		img.DisplayOrder = 1
	}
	return translate(s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "image_url"}},
			DoUpdates: clause.AssignmentColumns([]string{"product_id", "alt_text", "display_order"}),
		}).
		Create(img).Error)
}

func (s *Store) GetImage(ctx context.Context, productID, imageID uuid.UUID) (*model.ProductImage, error) {
	defer prometheus.TrackDBOperation("query")(time.Now())
	var img model.ProductImage
	err := s.db.WithContext(ctx).First(&img, "id = ? AND product_id = ?", imageID, productID).Error
	if err != nil {
		return nil, translate(err)
	}
	return &img, nil
}

func (s *Store) DeleteImage(ctx context.Context, productID, imageID uuid.UUID) error {
	defer prometheus.TrackDBOperation("delete")(time.Now())
	result := s.db.WithContext(ctx).Delete(&model.ProductImage{}, "id = ? AND product_id = ?", imageID, productID)
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// SetProductQuantity overwrites the recorded on-hand quantity of a product
func (s *Store) SetProductQuantity(ctx context.Context, id uuid.UUID, qty int) error {
	defer prometheus.TrackDBOperation("update")(time.Now())
	result := s.db.WithContext(ctx).Model(&model.Product{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"quantity_on_hand": qty, "updated_at": time.Now()})
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) CreateReconciliation(ctx context.Context, r *model.StockReconciliation) error {
	defer prometheus.TrackDBOperation("insert")(time.Now())
	return translate(s.db.WithContext(ctx).Create(r).Error)
}

func (s *Store) UpdateReconciliation(ctx context.Context, r *model.StockReconciliation) error {
	defer prometheus.TrackDBOperation("update")(time.Now())
	result := s.db.WithContext(ctx).Model(r).Omit("created_at").Select("*").Updates(r)
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) GetReconciliation(ctx context.Context, id uuid.UUID) (*model.StockReconciliation, error) {
	defer prometheus.TrackDBOperation("query")(time.Now())
	var r model.StockReconciliation
	if err := s.db.WithContext(ctx).First(&r, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &r, nil
}

func (s *Store) ListReconciliations(ctx context.Context, filter ReconciliationFilter) ([]model.StockReconciliation, error) {
	defer prometheus.TrackDBOperation("query")(time.Now())
	query := s.db.WithContext(ctx)
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	var out []model.StockReconciliation
	err := query.Order("created_at DESC").Find(&out).Error
	return out, translate(err)
}

// AdjustStock applies adj.QuantityChanged to the product, or to the variant
// when adj.VariantID is set, and appends the audit row. The read and the
// write happen in one transaction under a row lock. PreviousQuantity and
// NewQuantity are filled in on success.
func (s *Store) AdjustStock(ctx context.Context, adj *model.StockAdjustment) error {
	defer prometheus.TrackDBOperation("transaction")(time.Now())
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		locked := tx.Clauses(clause.Locking{Strength: "UPDATE"})
		if adj.VariantID != nil {
			var v model.ProductVariant
			if err := locked.First(&v, "id = ? AND product_id = ?", *adj.VariantID, adj.ProductID).Error; err != nil {
				return err
			}
			if v.QuantityVariant != nil {
				adj.PreviousQuantity = *v.QuantityVariant
			}
			adj.NewQuantity = adj.PreviousQuantity + adj.QuantityChanged
			if err := tx.Model(&v).Update("quantity_variant", adj.NewQuantity).Error; err != nil {
				return err
			}
		} else {
			var p model.Product
			if err := locked.First(&p, "id = ?", adj.ProductID).Error; err != nil {
				return err
			}
			adj.PreviousQuantity = p.Quantity()
			adj.NewQuantity = adj.PreviousQuantity + adj.QuantityChanged
			if err := tx.Model(&p).Update("quantity_on_hand", adj.NewQuantity).Error; err != nil {
				return err
			}
		}
		return tx.Create(adj).Error
	})
	return translate(err)
}

func (s *Store) ListAdjustments(ctx context.Context, filter AdjustmentFilter) ([]model.StockAdjustment, error) {
	defer prometheus.TrackDBOperation("query")(time.Now())
	query := s.db.WithContext(ctx)
	if filter.ProductID != nil {
		query = query.Where("product_id = ?", *filter.ProductID)
	}
	var out []model.StockAdjustment
	err := query.Order("created_at DESC").Find(&out).Error
	return out, translate(err)
}

var _ Repository = (*Store)(nil)
