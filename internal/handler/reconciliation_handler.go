package handler

import (
	"net/http"

	"github.com/baawa1/baawa-accessories-inventory-sub000/internal/apperror"
	"github.com/baawa1/baawa-accessories-inventory-sub000/internal/middleware"
	"github.com/baawa1/baawa-accessories-inventory-sub000/internal/model"
	"github.com/baawa1/baawa-accessories-inventory-sub000/internal/reconciliation"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// ReconciliationRequest is the body of create and update. Data replaces the
// lines when present; discrepancy and impact values in it are recomputed.
type ReconciliationRequest struct {
	ID        *uuid.UUID                 `json:"id"`
	CreatedBy string                     `json:"created_by"`
	Status    string                     `json:"status" validate:"omitempty,oneof=draft pending"`
	Notes     *string                    `json:"notes"`
	Data      []model.ReconciliationLine `json:"data"`
}

// DecisionRequest is the optional body of approve and reject
type DecisionRequest struct {
	ApprovedBy    string `json:"approved_by"`
	ApprovalNotes string `json:"approval_notes"`
}

type decisionResponse struct {
	Success bool `json:"success"`
	*reconciliation.DecisionResult
}

type ReconciliationHandler struct {
	service *reconciliation.Service
}

func NewReconciliationHandler(s *reconciliation.Service) *ReconciliationHandler {
	return &ReconciliationHandler{service: s}
}

func (h *ReconciliationHandler) save(c echo.Context, req *ReconciliationRequest) error {
	createdBy := req.CreatedBy
	if createdBy == "" {
		createdBy = middleware.UserID(c)
	}

	doc, err := h.service.SaveOrSubmit(c.Request().Context(), reconciliation.SaveRequest{
		ID:        req.ID,
		CreatedBy: createdBy,
		Status:    model.ReconciliationStatus(req.Status),
		Notes:     req.Notes,
		Lines:     req.Data,
	})
	if err != nil {
		return respondError(c, "Failed to save reconciliation", err)
	}

	status := http.StatusOK
	if req.ID == nil {
		status = http.StatusCreated
	}
	return c.JSON(status, echo.Map{"success": true, "reconciliation": doc})
}

// Create stores a new draft or pending reconciliation
func (h *ReconciliationHandler) Create(c echo.Context) error {
	var req ReconciliationRequest
	if err := bind(c, &req); err != nil {
		return respondError(c, "Invalid reconciliation request", err)
	}
	req.ID = nil
	return h.save(c, &req)
}

// Update changes a reconciliation identified by the path id or, on the
// collection route, by the id in the body.
func (h *ReconciliationHandler) Update(c echo.Context) error {
	var req ReconciliationRequest
	if err := bind(c, &req); err != nil {
		return respondError(c, "Invalid reconciliation request", err)
	}
	if c.Param("id") != "" {
		id, err := paramID(c, "id")
		if err != nil {
			return respondError(c, "Invalid reconciliation id", err)
		}
		req.ID = &id
	}
	if req.ID == nil || *req.ID == uuid.Nil {
		return respondError(c, "Missing reconciliation id", apperror.Validation("id", "is required"))
	}
	return h.save(c, &req)
}

func (h *ReconciliationHandler) decide(c echo.Context, decision reconciliation.Decision) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, "Invalid reconciliation id", err)
	}

	var req DecisionRequest
	if err := bindOptional(c, &req); err != nil {
		return respondError(c, "Invalid decision request", err)
	}
	approver := middleware.UserID(c)
	if approver == "" {
		approver = req.ApprovedBy
	}

	result, err := h.service.ApproveOrReject(c.Request().Context(), id, decision, approver, req.ApprovalNotes)
	if err != nil {
		return respondError(c, "Failed to "+string(decision)+" reconciliation", err)
	}
	return c.JSON(http.StatusOK, decisionResponse{Success: true, DecisionResult: result})
}

func (h *ReconciliationHandler) Approve(c echo.Context) error {
	return h.decide(c, reconciliation.Approve)
}

func (h *ReconciliationHandler) Reject(c echo.Context) error {
	return h.decide(c, reconciliation.Reject)
}

// Apply retries the stock write-back of an approved reconciliation
func (h *ReconciliationHandler) Apply(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, "Invalid reconciliation id", err)
	}

	result, err := h.service.ApplyApproved(c.Request().Context(), id)
	if err != nil {
		return respondError(c, "Failed to apply reconciliation", err)
	}
	return c.JSON(http.StatusOK, decisionResponse{Success: true, DecisionResult: result})
}

func (h *ReconciliationHandler) Get(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, "Invalid reconciliation id", err)
	}

	doc, err := h.service.Get(c.Request().Context(), id)
	if err != nil {
		return respondError(c, "Failed to get reconciliation", err)
	}
	return c.JSON(http.StatusOK, doc)
}

func (h *ReconciliationHandler) List(c echo.Context) error {
	docs, err := h.service.List(c.Request().Context(), c.QueryParam("status"))
	if err != nil {
		return respondError(c, "Failed to list reconciliations", err)
	}
	return c.JSON(http.StatusOK, docs)
}

func (h *ReconciliationHandler) Register(g *echo.Group) {
	g.GET("", h.List)
	g.POST("", h.Create)
	g.PUT("", h.Update)
	g.GET("/:id", h.Get)
	g.PUT("/:id", h.Update)
	g.POST("/:id/approve", h.Approve)
	g.POST("/:id/reject", h.Reject)
	g.POST("/:id/apply", h.Apply)
}
