package reconciliation

import (
	"strconv"
	"strings"

	"github.com/baawa1/baawa-accessories-inventory-sub000/internal/apperror"
	"github.com/baawa1/baawa-accessories-inventory-sub000/internal/model"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Reasons are the discrepancy reasons offered to users. SetReason accepts
// any text; IsKnownReason is there for callers that want to restrict it.
var Reasons = []string{
	"Fraud",
	"Lost",
	"Data Entry Error",
	"Expired",
	"Others",
	"Supplier Error",
	"Overstocking",
	"Understocking",
}

func IsKnownReason(reason string) bool {
	for _, r := range Reasons {
		if r == reason {
			return true
		}
	}
	return false
}

// Worksheet is the ordered set of lines being counted. Derived fields of a
// line are recomputed on every change to its physical count.
type Worksheet struct {
	lines []model.ReconciliationLine
}

// NewWorksheet starts a worksheet from previously saved lines. Derived
// fields are recomputed, whatever values the lines carried.
func NewWorksheet(lines []model.ReconciliationLine) *Worksheet {
	w := &Worksheet{}
	for _, l := range lines {
		if w.index(l.ProductID) >= 0 {
			continue
		}
		l.Discrepancy, l.EstimatedImpact = derive(l, l.PhysicalCount)
		w.lines = append(w.lines, l)
	}
	return w
}

func (w *Worksheet) index(productID uuid.UUID) int {
	for i := range w.lines {
		if w.lines[i].ProductID == productID {
			return i
		}
	}
	return -1
}

// Has reports whether the worksheet has a line for productID
func (w *Worksheet) Has(productID uuid.UUID) bool {
	return w.index(productID) >= 0
}

// AddLine appends an uncounted line for p. It returns false and changes
// nothing when p already has a line.
func (w *Worksheet) AddLine(p *model.Product) bool {
	if w.Has(p.ID) {
		return false
	}
	w.lines = append(w.lines, model.ReconciliationLine{
		ProductID:       p.ID,
		Name:            p.Name,
		SKU:             p.SKU,
		QuantityOnHand:  p.Quantity(),
		SellingPrice:    p.SellingPrice,
		EstimatedImpact: decimal.Zero,
	})
	return true
}

// AddSnapshot appends line as saved earlier, keeping its recorded quantity
// and price. Physical count and reason are cleared.
func (w *Worksheet) AddSnapshot(line model.ReconciliationLine) bool {
	if w.Has(line.ProductID) {
		return false
	}
	line.PhysicalCount = ""
	line.Reason = ""
	line.Discrepancy = 0
	line.EstimatedImpact = decimal.Zero
	line.Applied = false
	w.lines = append(w.lines, line)
	return true
}

func (w *Worksheet) RemoveLine(productID uuid.UUID) {
	if i := w.index(productID); i >= 0 {
		w.lines = append(w.lines[:i], w.lines[i+1:]...)
	}
}

// SetPhysicalCount records the counted quantity. An empty value clears the
// count. A value that is not a non-negative integer is rejected and the line
// is left as it was.
func (w *Worksheet) SetPhysicalCount(productID uuid.UUID, raw string) error {
	i := w.index(productID)
	if i < 0 {
		return nil
	}
	count := model.PhysicalCount(strings.TrimSpace(raw))
	if count != "" {
		n, err := strconv.Atoi(string(count))
		if err != nil {
			return apperror.Validation("physicalCount", "physical count for %s must be a whole number, got %q", w.lines[i].Name, raw)
		}
		if n < 0 {
			return apperror.Validation("physicalCount", "physical count for %s cannot be negative", w.lines[i].Name)
		}
	}
	line := &w.lines[i]
	line.PhysicalCount = count
	line.Discrepancy, line.EstimatedImpact = derive(*line, count)
	return nil
}

func (w *Worksheet) SetReason(productID uuid.UUID, reason string) {
	if i := w.index(productID); i >= 0 {
		w.lines[i].Reason = reason
	}
}

// derive computes discrepancy and impact of line for count. Counts that do
// not parse derive zero, like an empty count.
func derive(line model.ReconciliationLine, count model.PhysicalCount) (int, decimal.Decimal) {
	if count == "" {
		return 0, decimal.Zero
	}
	n, err := strconv.Atoi(string(count))
	if err != nil {
		return 0, decimal.Zero
	}
	discrepancy := n - line.QuantityOnHand
	if line.SellingPrice == nil {
		return discrepancy, decimal.Zero
	}
	return discrepancy, decimal.NewFromInt(int64(discrepancy)).Mul(*line.SellingPrice)
}

// Lines returns a copy of the lines in insertion order
func (w *Worksheet) Lines() []model.ReconciliationLine {
	return append([]model.ReconciliationLine(nil), w.lines...)
}

func (w *Worksheet) Len() int { return len(w.lines) }

// Totals sums discrepancy and estimated impact over the current lines
func (w *Worksheet) Totals() (int, decimal.Decimal) {
	discrepancies := 0
	impact := decimal.Zero
	for _, l := range w.lines {
		discrepancies += l.Discrepancy
		impact = impact.Add(l.EstimatedImpact)
	}
	return discrepancies, impact
}
