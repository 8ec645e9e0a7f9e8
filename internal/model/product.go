package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func init() {
	// Prices travel as JSON numbers, as the web client sends and expects them.
	decimal.MarshalJSONWithoutQuotes = true
}

// ProductStatus is the lifecycle state of a product
type ProductStatus string

const (
	ProductActive   ProductStatus = "active"
	ProductDraft    ProductStatus = "draft"
	ProductArchived ProductStatus = "archived"
)

// ProductStatuses lists the accepted product statuses
var ProductStatuses = []string{string(ProductActive), string(ProductDraft), string(ProductArchived)}

// ParseProductStatus matches s case-insensitively against the product statuses
func ParseProductStatus(s string) (ProductStatus, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "active":
		return ProductActive, true
	case "draft":
		return ProductDraft, true
	case "archived":
		return ProductArchived, true
	}
	return "", false
}

// Product represents the product master data
type Product struct {
	ID             uuid.UUID        `json:"id" gorm:"type:uuid;primaryKey"`
	SKU            string           `json:"sku" gorm:"type:varchar(100);uniqueIndex;not null"`
	Name           string           `json:"name" gorm:"type:varchar(255);not null"`
	ModelName      string           `json:"model_name" gorm:"type:varchar(255)"`
	Description    string           `json:"description" gorm:"type:text"`
	CategoryID     *uuid.UUID       `json:"category_id" gorm:"type:uuid;index"`
	BrandID        *uuid.UUID       `json:"brand_id" gorm:"type:uuid;index"`
	SupplierID     *uuid.UUID       `json:"supplier_id" gorm:"type:uuid;index"`
	CostPrice      *decimal.Decimal `json:"cost_price" gorm:"type:numeric(12,2)"`
	SellingPrice   *decimal.Decimal `json:"selling_price" gorm:"type:numeric(12,2)"`
	QuantityOnHand *int             `json:"quantity_on_hand"`
	ReorderLevel   *int             `json:"reorder_level"`
	Status         ProductStatus    `json:"status" gorm:"type:varchar(20);not null;default:active;index"`
	Tags           pq.StringArray   `json:"tags" gorm:"type:text[]"`
	Variants       []ProductVariant `json:"variants,omitempty" gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	Images         []ProductImage   `json:"images,omitempty" gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
}

// BeforeCreate assigns an id to products inserted without one
func (p *Product) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// Quantity returns the recorded on-hand quantity, zero when unset
func (p *Product) Quantity() int {
	if p.QuantityOnHand == nil {
		return 0
	}
	return *p.QuantityOnHand
}

// ProductVariant is a sellable variation of a product (color, size)
type ProductVariant struct {
	ID              uuid.UUID        `json:"id" gorm:"type:uuid;primaryKey"`
	ProductID       uuid.UUID        `json:"product_id" gorm:"type:uuid;index;not null"`
	Color           string           `json:"color" gorm:"type:varchar(50)"`
	Size            string           `json:"size" gorm:"type:varchar(50)"`
	SKUVariant      string           `json:"sku_variant" gorm:"column:sku_variant;type:varchar(100);uniqueIndex;not null"`
	PriceVariant    *decimal.Decimal `json:"price_variant" gorm:"type:numeric(12,2)"`
	QuantityVariant *int             `json:"quantity_variant"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

func (v *ProductVariant) BeforeCreate(tx *gorm.DB) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	return nil
}

// ProductImage is an image attached to a product, ordered by DisplayOrder
type ProductImage struct {
	ID           uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	ProductID    uuid.UUID `json:"product_id" gorm:"type:uuid;index;not null"`
	ImageURL     string    `json:"image_url" gorm:"type:text;uniqueIndex;not null"`
	AltText      string    `json:"alt_text" gorm:"type:varchar(255)"`
	DisplayOrder int       `json:"display_order" gorm:"not null;default:1"`
	CreatedAt    time.Time `json:"created_at"`
}

func (i *ProductImage) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}
