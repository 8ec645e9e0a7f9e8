package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ReconciliationStatus is the state of a stock reconciliation document
type ReconciliationStatus string

const (
	ReconciliationDraft    ReconciliationStatus = "draft"
	ReconciliationPending  ReconciliationStatus = "pending"
	ReconciliationApproved ReconciliationStatus = "approved"
	ReconciliationRejected ReconciliationStatus = "rejected"
)

// IsTerminal reports whether no further transition is allowed
func (s ReconciliationStatus) IsTerminal() bool {
	return s == ReconciliationApproved || s == ReconciliationRejected
}

// PhysicalCount is the counted quantity as typed by the user. The empty
// string means "not counted yet". JSON numbers are accepted as well as
// strings because older clients sent either.
type PhysicalCount string

func (p *PhysicalCount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*p = ""
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*p = PhysicalCount(s)
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("physicalCount: %w", err)
		}
		*p = PhysicalCount(n.String())
	}
	return nil
}

// ReconciliationLine is one product line of a reconciliation. Discrepancy
// and EstimatedImpact are derived from PhysicalCount and never set directly.
type ReconciliationLine struct {
	ProductID       uuid.UUID        `json:"id"`
	Name            string           `json:"name"`
	SKU             string           `json:"sku,omitempty"`
	QuantityOnHand  int              `json:"quantity_on_hand"`
	SellingPrice    *decimal.Decimal `json:"selling_price"`
	PhysicalCount   PhysicalCount    `json:"physicalCount"`
	Discrepancy     int              `json:"discrepancy"`
	EstimatedImpact decimal.Decimal  `json:"estimatedImpact"`
	Reason          string           `json:"reason"`
	Applied         bool             `json:"applied,omitempty"`
}

// StockReconciliation compares recorded quantities to a physical count
type StockReconciliation struct {
	ID              uuid.UUID                              `json:"id" gorm:"type:uuid;primaryKey"`
	CreatedBy       string                                 `json:"created_by" gorm:"type:varchar(64);index"`
	ApprovedBy      string                                 `json:"approved_by,omitempty" gorm:"type:varchar(64)"`
	Status          ReconciliationStatus                   `json:"status" gorm:"type:varchar(20);not null;index"`
	Notes           string                                 `json:"notes" gorm:"type:text"`
	ApprovalNotes   string                                 `json:"approval_notes,omitempty" gorm:"type:text"`
	Discrepancies   int                                    `json:"discrepancies"`
	EstimatedImpact decimal.Decimal                        `json:"estimated_impact" gorm:"type:numeric(14,2)"`
	Data            datatypes.JSONSlice[ReconciliationLine] `json:"data" gorm:"type:jsonb"`
	ApprovedAt      *time.Time                             `json:"approved_at,omitempty"`
	CreatedAt       time.Time                              `json:"created_at"`
	UpdatedAt       time.Time                              `json:"updated_at"`
}

func (r *StockReconciliation) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// PendingLines returns the indexes of lines not yet written back to products
func (r *StockReconciliation) PendingLines() []int {
	var idx []int
	for i, line := range r.Data {
		if !line.Applied && line.PhysicalCount != "" {
			idx = append(idx, i)
		}
	}
	return idx
}
