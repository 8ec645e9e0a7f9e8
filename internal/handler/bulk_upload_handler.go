package handler

import (
	"bytes"
	"errors"
	"net/http"

	"github.com/baawa1/baawa-accessories-inventory-sub000/internal/bulkupload"
	"github.com/baawa1/baawa-accessories-inventory-sub000/pkg/logger"
	"github.com/baawa1/baawa-accessories-inventory-sub000/prometheus"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const reportFilename = "bulk-upload-status.csv"

type BulkUploadHandler struct {
	processor *bulkupload.Processor
	maxBytes  int64
}

// NewBulkUploadHandler builds the upload endpoint. maxBytes <= 0 disables
// the request size limit.
func NewBulkUploadHandler(p *bulkupload.Processor, maxBytes int64) *BulkUploadHandler {
	return &BulkUploadHandler{processor: p, maxBytes: maxBytes}
}

// Upload upserts every row of the multipart "file" (CSV or XLSX) and answers
// with a CSV report holding one line per input row.
func (h *BulkUploadHandler) Upload(c echo.Context) error {
	log := logger.FromEcho(c)

	if h.maxBytes > 0 {
		c.Request().Body = http.MaxBytesReader(c.Response(), c.Request().Body, h.maxBytes)
	}

	fh, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			log.Warn("Bulk upload too large", zap.Int64("limit", tooLarge.Limit))
			prometheus.RecordBulkUploadBatch("rejected")
			return c.JSON(http.StatusRequestEntityTooLarge, echo.Map{"error": "File too large"})
		}
		log.Warn("No file uploaded", zap.Error(err))
		prometheus.RecordBulkUploadBatch("rejected")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "No file uploaded"})
	}

	f, err := fh.Open()
	if err != nil {
		log.Error("Failed to open upload", zap.Error(err))
		prometheus.RecordBulkUploadBatch("failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": err.Error()})
	}
	defer f.Close()

	table, err := bulkupload.ReadTable(fh.Filename, f)
	if err != nil {
		log.Error("Failed to parse upload", zap.String("filename", fh.Filename), zap.Error(err))
		prometheus.RecordBulkUploadBatch("failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": err.Error()})
	}

	results, summary := h.processor.Process(c.Request().Context(), table)

	var report bytes.Buffer
	if err := bulkupload.WriteReport(&report, table, results); err != nil {
		log.Error("Failed to write bulk upload report", zap.Error(err))
		prometheus.RecordBulkUploadBatch("failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": err.Error()})
	}
	prometheus.RecordBulkUploadBatch("completed")

	log.Info("Bulk upload processed",
		zap.String("filename", fh.Filename),
		zap.Int("rows", len(results)),
		zap.Int("added", summary.Added),
		zap.Int("updated", summary.Updated),
		zap.Int("failed", summary.Failed))

	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+reportFilename+`"`)
	return c.Blob(http.StatusOK, "text/csv", report.Bytes())
}

func (h *BulkUploadHandler) Register(g *echo.Group) {
	g.POST("/bulk-upload", h.Upload)
}
