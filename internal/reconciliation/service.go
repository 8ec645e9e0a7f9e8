package reconciliation

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/baawa1/baawa-accessories-inventory-sub000/internal/apperror"
	"github.com/baawa1/baawa-accessories-inventory-sub000/internal/lock"
	"github.com/baawa1/baawa-accessories-inventory-sub000/internal/model"
	"github.com/baawa1/baawa-accessories-inventory-sub000/internal/store"
	"github.com/baawa1/baawa-accessories-inventory-sub000/pkg/logger"
	"github.com/baawa1/baawa-accessories-inventory-sub000/prometheus"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Store is the persistence the reconciliation service needs
type Store interface {
	GetProduct(ctx context.Context, id uuid.UUID) (*model.Product, error)
	SetProductQuantity(ctx context.Context, id uuid.UUID, qty int) error
	CreateReconciliation(ctx context.Context, r *model.StockReconciliation) error
	UpdateReconciliation(ctx context.Context, r *model.StockReconciliation) error
	GetReconciliation(ctx context.Context, id uuid.UUID) (*model.StockReconciliation, error)
	ListReconciliations(ctx context.Context, filter store.ReconciliationFilter) ([]model.StockReconciliation, error)
}

// Decision is the outcome chosen by an approver
type Decision string

const (
	Approve Decision = "approve"
	Reject  Decision = "reject"
)

var statuses = []string{
	string(model.ReconciliationDraft),
	string(model.ReconciliationPending),
	string(model.ReconciliationApproved),
	string(model.ReconciliationRejected),
}

// SaveRequest carries a create (ID nil) or an update of a reconciliation.
// Lines nil keeps the saved lines; an empty slice clears them. Only the
// product id, physical count and reason of each line are read.
type SaveRequest struct {
	ID        *uuid.UUID
	CreatedBy string
	Status    model.ReconciliationStatus
	Notes     *string
	Lines     []model.ReconciliationLine
}

// FailedProduct is a line whose physical count could not be written back
type FailedProduct struct {
	ProductID uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Error     string    `json:"error"`
}

// DecisionResult reports an approval, rejection or write-back retry
type DecisionResult struct {
	Reconciliation *model.StockReconciliation `json:"reconciliation"`
	Applied        int                        `json:"applied"`
	FailedProducts []FailedProduct            `json:"failed_products,omitempty"`
}

type Service struct {
	store  Store
	locker lock.Locker
	now    func() time.Time
}

func NewService(s Store, locker lock.Locker) *Service {
	return &Service{store: s, locker: locker, now: time.Now}
}

func (s *Service) obtain(ctx context.Context, key string) (lock.Release, error) {
	release, err := s.locker.Obtain(ctx, key)
	if errors.Is(err, lock.ErrNotObtained) {
		return nil, &apperror.ConflictError{Message: "resource is locked by another request, try again"}
	}
	if err != nil {
		return nil, apperror.Persistence("obtain lock", err)
	}
	return release, nil
}

func (s *Service) release(ctx context.Context, release lock.Release, key string) {
	if err := release(context.WithoutCancel(ctx)); err != nil {
		logger.FromContext(ctx).Warn("Failed to release lock", zap.String("key", key), zap.Error(err))
	}
}

func (s *Service) load(ctx context.Context, id uuid.UUID) (*model.StockReconciliation, error) {
	doc, err := s.store.GetReconciliation(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperror.Precondition("reconciliation %s not found", id)
	}
	if err != nil {
		return nil, apperror.Persistence("load reconciliation", err)
	}
	return doc, nil
}

// checkSave allows new|draft -> draft|pending and pending -> pending
func checkSave(from string, to model.ReconciliationStatus) error {
	switch {
	case to != model.ReconciliationDraft && to != model.ReconciliationPending:
		return &apperror.InvalidStateError{From: from, To: string(to)}
	case from == string(model.ReconciliationApproved), from == string(model.ReconciliationRejected):
		return &apperror.InvalidStateError{From: from, To: string(to)}
	case from == string(model.ReconciliationPending) && to == model.ReconciliationDraft:
		return &apperror.InvalidStateError{From: from, To: string(to)}
	}
	return nil
}

// SaveOrSubmit creates or updates a reconciliation as draft or pending. Lines
// are rebuilt from the products and the saved snapshot, so derived values
// sent by the client are ignored and the totals always match the lines.
func (s *Service) SaveOrSubmit(ctx context.Context, req SaveRequest) (*model.StockReconciliation, error) {
	log := logger.FromContext(ctx)

	doc := &model.StockReconciliation{CreatedBy: req.CreatedBy}
	from := "new"
	if req.ID != nil {
		key := lock.ReconciliationKey(*req.ID)
		release, err := s.obtain(ctx, key)
		if err != nil {
			return nil, err
		}
		defer s.release(ctx, release, key)

		if doc, err = s.load(ctx, *req.ID); err != nil {
			return nil, err
		}
		from = string(doc.Status)
	}

	status := req.Status
	if status == "" {
		status = model.ReconciliationDraft
		if req.ID != nil {
			status = doc.Status
		}
	}
	if err := checkSave(from, status); err != nil {
		return nil, err
	}

	ws := NewWorksheet(doc.Data)
	if req.Lines != nil {
		var err error
		if ws, err = s.buildWorksheet(ctx, doc.Data, req.Lines); err != nil {
			return nil, err
		}
	}
	if status == model.ReconciliationPending {
		if err := checkSubmittable(ws); err != nil {
			return nil, err
		}
	}

	doc.Status = status
	if req.Notes != nil {
		doc.Notes = *req.Notes
	}
	doc.Data = ws.Lines()
	doc.Discrepancies, doc.EstimatedImpact = ws.Totals()

	var err error
	if req.ID == nil {
		err = s.store.CreateReconciliation(ctx, doc)
	} else {
		err = s.store.UpdateReconciliation(ctx, doc)
	}
	if err != nil {
		log.Error("Failed to save reconciliation", zap.String("status", string(status)), zap.Error(err))
		return nil, apperror.Persistence("save reconciliation", err)
	}

	prometheus.RecordReconciliationTransition(string(status))
	log.Info("Reconciliation saved",
		zap.String("reconciliation_id", doc.ID.String()),
		zap.String("from", from),
		zap.String("status", string(status)),
		zap.Int("lines", len(doc.Data)),
		zap.Int("discrepancies", doc.Discrepancies),
		zap.String("estimated_impact", doc.EstimatedImpact.String()))
	return doc, nil
}

// buildWorksheet turns the client lines into a worksheet. Products already
// on the saved document keep their recorded snapshot, new ones are read
// from the store.
func (s *Service) buildWorksheet(ctx context.Context, saved []model.ReconciliationLine, input []model.ReconciliationLine) (*Worksheet, error) {
	snapshots := make(map[uuid.UUID]model.ReconciliationLine, len(saved))
	for _, l := range saved {
		snapshots[l.ProductID] = l
	}

	ws := &Worksheet{}
	for i, in := range input {
		if in.ProductID == uuid.Nil {
			return nil, apperror.Validation("data", "line %d has no product id", i+1)
		}
		if ws.Has(in.ProductID) {
			continue
		}
		if snap, ok := snapshots[in.ProductID]; ok {
			ws.AddSnapshot(snap)
		} else {
			p, err := s.store.GetProduct(ctx, in.ProductID)
			if errors.Is(err, store.ErrNotFound) {
				return nil, apperror.Validation("data", "product %s not found", in.ProductID)
			}
			if err != nil {
				return nil, apperror.Persistence("load product", err)
			}
			ws.AddLine(p)
		}
		if err := ws.SetPhysicalCount(in.ProductID, string(in.PhysicalCount)); err != nil {
			return nil, err
		}
		ws.SetReason(in.ProductID, strings.TrimSpace(in.Reason))
	}
	return ws, nil
}

func checkSubmittable(ws *Worksheet) error {
	if ws.Len() == 0 {
		return apperror.Validation("data", "add at least one product before submitting")
	}
	for _, l := range ws.Lines() {
		if l.PhysicalCount == "" {
			return apperror.Validation("physicalCount", "physical count missing for %s", l.Name)
		}
		if l.Reason == "" {
			return apperror.Validation("reason", "reason missing for %s", l.Name)
		}
	}
	return nil
}

// ApproveOrReject decides a pending reconciliation. The decision is saved
// first; on approval every counted line is then written back to its product.
// Write-back failures do not undo the decision, they are returned in the
// result and can be retried with ApplyApproved.
func (s *Service) ApproveOrReject(ctx context.Context, id uuid.UUID, decision Decision, approver, notes string) (*DecisionResult, error) {
	log := logger.FromContext(ctx)

	var to model.ReconciliationStatus
	switch decision {
	case Approve:
		to = model.ReconciliationApproved
	case Reject:
		to = model.ReconciliationRejected
	default:
		return nil, &apperror.InvalidEnumError{Field: "action", Value: string(decision), Allowed: []string{string(Approve), string(Reject)}}
	}

	key := lock.ReconciliationKey(id)
	release, err := s.obtain(ctx, key)
	if err != nil {
		return nil, err
	}
	defer s.release(ctx, release, key)

	doc, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc.Status != model.ReconciliationPending {
		return nil, &apperror.InvalidStateError{From: string(doc.Status), To: string(to)}
	}

	now := s.now()
	doc.Status = to
	doc.ApprovedBy = approver
	doc.ApprovalNotes = notes
	doc.ApprovedAt = &now
	if err := s.store.UpdateReconciliation(ctx, doc); err != nil {
		log.Error("Failed to save reconciliation decision",
			zap.String("reconciliation_id", id.String()),
			zap.String("status", string(to)),
			zap.Error(err))
		return nil, apperror.Persistence("save reconciliation", err)
	}
	prometheus.RecordReconciliationTransition(string(to))
	log.Info("Reconciliation decided",
		zap.String("reconciliation_id", id.String()),
		zap.String("status", string(to)),
		zap.String("approved_by", approver))

	result := &DecisionResult{Reconciliation: doc}
	if to == model.ReconciliationApproved {
		s.writeBack(ctx, doc, result)
	}
	return result, nil
}

// ApplyApproved writes back the lines of an approved reconciliation that
// have not been applied yet.
func (s *Service) ApplyApproved(ctx context.Context, id uuid.UUID) (*DecisionResult, error) {
	key := lock.ReconciliationKey(id)
	release, err := s.obtain(ctx, key)
	if err != nil {
		return nil, err
	}
	defer s.release(ctx, release, key)

	doc, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc.Status != model.ReconciliationApproved {
		return nil, &apperror.InvalidStateError{From: string(doc.Status), To: "applied"}
	}

	result := &DecisionResult{Reconciliation: doc}
	s.writeBack(ctx, doc, result)
	return result, nil
}

func (s *Service) writeBack(ctx context.Context, doc *model.StockReconciliation, result *DecisionResult) {
	log := logger.FromContext(ctx).With(zap.String("reconciliation_id", doc.ID.String()))

	applied := 0
	for _, i := range doc.PendingLines() {
		line := &doc.Data[i]
		if err := s.applyLine(ctx, line); err != nil {
			prometheus.RecordReconciliationWriteBack("failed")
			log.Error("Failed to write back physical count",
				zap.String("product_id", line.ProductID.String()),
				zap.String("physical_count", string(line.PhysicalCount)),
				zap.Error(err))
			result.FailedProducts = append(result.FailedProducts, FailedProduct{
				ProductID: line.ProductID,
				Name:      line.Name,
				Error:     apperror.Message(err),
			})
			continue
		}
		prometheus.RecordReconciliationWriteBack("applied")
		line.Applied = true
		applied++
	}
	result.Applied = applied

	if applied == 0 {
		return
	}
	// A lost applied flag only causes the same count to be written again.
	if err := s.store.UpdateReconciliation(ctx, doc); err != nil {
		log.Error("Failed to record applied lines", zap.Error(err))
	}
	log.Info("Physical counts written back",
		zap.Int("applied", applied),
		zap.Int("failed", len(result.FailedProducts)))
}

func (s *Service) applyLine(ctx context.Context, line *model.ReconciliationLine) error {
	qty, err := strconv.Atoi(string(line.PhysicalCount))
	if err != nil {
		return apperror.Validation("physicalCount", "physical count for %s is not a whole number", line.Name)
	}

	key := lock.ProductKey(line.ProductID)
	release, err := s.obtain(ctx, key)
	if err != nil {
		return err
	}
	defer s.release(ctx, release, key)

	if err := s.store.SetProductQuantity(ctx, line.ProductID, qty); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return apperror.Precondition("product %s not found", line.ProductID)
		}
		return apperror.Persistence("update product quantity", err)
	}
	return nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.StockReconciliation, error) {
	return s.load(ctx, id)
}

// List returns reconciliations newest first, optionally only those in status
func (s *Service) List(ctx context.Context, status string) ([]model.StockReconciliation, error) {
	if status != "" {
		known := false
		for _, st := range statuses {
			known = known || st == status
		}
		if !known {
			return nil, &apperror.InvalidEnumError{Field: "status", Value: status, Allowed: statuses}
		}
	}
	out, err := s.store.ListReconciliations(ctx, store.ReconciliationFilter{Status: status})
	if err != nil {
		return nil, apperror.Persistence("list reconciliations", err)
	}
	return out, nil
}
