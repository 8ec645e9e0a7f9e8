package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// StockAdjustment is the audit row written for every manual quantity change
type StockAdjustment struct {
	ID               uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey"`
	ProductID        uuid.UUID  `json:"product_id" gorm:"type:uuid;index;not null"`
	VariantID        *uuid.UUID `json:"variant_id,omitempty" gorm:"type:uuid;index"`
	UserID           string     `json:"user_id" gorm:"type:varchar(64);index"`
	AdjustmentType   string     `json:"adjustment_type" gorm:"type:varchar(50);not null"`
	QuantityChanged  int        `json:"quantity_changed" gorm:"not null"`
	PreviousQuantity int        `json:"previous_quantity"`
	NewQuantity      int        `json:"new_quantity"`
	Reason           string     `json:"reason" gorm:"type:text"`
	CreatedAt        time.Time  `json:"created_at"`
}

func (a *StockAdjustment) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// AllModels lists every table managed by the service, in migration order
func AllModels() []interface{} {
	return []interface{}{
		&Category{},
		&Brand{},
		&Supplier{},
		&Product{},
		&ProductVariant{},
		&ProductImage{},
		&StockReconciliation{},
		&StockAdjustment{},
	}
}
