package handler

import (
	"bytes"
	"errors"
	"io"
	"net/http"

	"github.com/baawa1/baawa-accessories-inventory-sub000/internal/apperror"
	"github.com/baawa1/baawa-accessories-inventory-sub000/internal/store"
	"github.com/baawa1/baawa-accessories-inventory-sub000/pkg/logger"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// respondError answers with the status that matches err and {"error": msg}
func respondError(c echo.Context, msg string, err error) error {
	log := logger.FromEcho(c)
	status := apperror.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		log.Error(msg, zap.Int("status", status), zap.Error(err))
	} else {
		log.Warn(msg, zap.Int("status", status), zap.Error(err))
	}
	return c.JSON(status, echo.Map{"error": apperror.Message(err)})
}

// storeError classifies the sentinel errors of the store package
func storeError(op, what string, err error) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return apperror.Precondition("%s not found", what)
	case errors.Is(err, store.ErrConflict):
		return &apperror.ConflictError{Message: err.Error()}
	default:
		return apperror.Persistence(op, err)
	}
}

func paramID(c echo.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, apperror.Validation(name, "must be a UUID")
	}
	return id, nil
}

// optionalUUID parses a query parameter that may be absent
func optionalUUID(c echo.Context, name string) (*uuid.UUID, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, apperror.Validation(name, "must be a UUID")
	}
	return &id, nil
}

// bind decodes the request body and runs the struct validation rules
func bind(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return apperror.Validation("", "Invalid request data")
	}
	if err := c.Validate(req); err != nil {
		return err
	}
	return nil
}

// bindOptional is bind for endpoints whose body may be left out. An empty
// body, chunked or not, leaves req untouched.
func bindOptional(c echo.Context, req interface{}) error {
	r := c.Request()
	if r.Body == nil || r.Body == http.NoBody {
		return nil
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return apperror.Validation("", "Invalid request data")
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	r.Body = io.NopCloser(bytes.NewReader(body))
	r.ContentLength = int64(len(body))
	return bind(c, req)
}
