package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Authentication metrics
	AuthAttemptsCounter prometheus.Counter
	AuthErrorsCounter   prometheus.Counter

	// Database operation metrics
	DbOperationDuration *prometheus.HistogramVec

	// Product metrics
	ProductOperationsCounter *prometheus.CounterVec

	// Bulk upload metrics
	BulkUploadRowsCounter    *prometheus.CounterVec
	BulkUploadBatchesCounter *prometheus.CounterVec

	// Reconciliation metrics
	ReconciliationTransitionsCounter *prometheus.CounterVec
	ReconciliationWriteBackCounter   *prometheus.CounterVec

	// Stock adjustment metrics
	StockAdjustmentsCounter *prometheus.CounterVec
)

// InitMetrics creates the domain metrics and registers them with reg.
// Until it is called every Record helper is a no-op.
func InitMetrics(prefix string, reg prometheus.Registerer) {
	factory := promauto.With(reg)

	AuthAttemptsCounter = factory.NewCounter(
		prometheus.CounterOpts{
			Name: prefix + "_auth_attempts_total",
			Help: "Total number of authentication attempts",
		},
	)

	AuthErrorsCounter = factory.NewCounter(
		prometheus.CounterOpts{
			Name: prefix + "_auth_errors_total",
			Help: "Total number of authentication errors",
		},
	)

	DbOperationDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    prefix + "_db_operation_duration_seconds",
			Help:    "Duration of database operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation_type"},
	)

	ProductOperationsCounter = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_product_operations_total",
			Help: "Total number of product operations",
		},
		[]string{"operation"},
	)

	BulkUploadRowsCounter = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_bulk_upload_rows_total",
			Help: "Bulk upload rows processed, by outcome",
		},
		[]string{"status"},
	)

	BulkUploadBatchesCounter = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_bulk_upload_batches_total",
			Help: "Bulk upload requests, by outcome",
		},
		[]string{"outcome"},
	)

	ReconciliationTransitionsCounter = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_reconciliation_transitions_total",
			Help: "Stock reconciliation documents persisted, by resulting status",
		},
		[]string{"status"},
	)

	ReconciliationWriteBackCounter = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_reconciliation_writeback_total",
			Help: "Approved reconciliation lines written back to products, by outcome",
		},
		[]string{"outcome"},
	)

	StockAdjustmentsCounter = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_stock_adjustments_total",
			Help: "Stock adjustments applied, by adjustment type",
		},
		[]string{"adjustment_type"},
	)
}

// TrackDBOperation returns a function that records the duration of a database operation
func TrackDBOperation(operationType string) func(startTime time.Time) {
	return func(startTime time.Time) {
		if DbOperationDuration == nil {
			return
		}
		DbOperationDuration.WithLabelValues(operationType).Observe(time.Since(startTime).Seconds())
	}
}

// RecordProductOperation increments the counter for product operations
func RecordProductOperation(operation string) {
	if ProductOperationsCounter != nil {
		ProductOperationsCounter.WithLabelValues(operation).Inc()
	}
}

// RecordBulkUploadRow counts one processed bulk upload row
func RecordBulkUploadRow(status string) {
	if BulkUploadRowsCounter != nil {
		BulkUploadRowsCounter.WithLabelValues(status).Inc()
	}
}

// RecordBulkUploadBatch counts one bulk upload request
func RecordBulkUploadBatch(outcome string) {
	if BulkUploadBatchesCounter != nil {
		BulkUploadBatchesCounter.WithLabelValues(outcome).Inc()
	}
}

// RecordReconciliationTransition counts a reconciliation persisted with status
func RecordReconciliationTransition(status string) {
	if ReconciliationTransitionsCounter != nil {
		ReconciliationTransitionsCounter.WithLabelValues(status).Inc()
	}
}

// RecordReconciliationWriteBack counts one line write-back attempt
func RecordReconciliationWriteBack(outcome string) {
	if ReconciliationWriteBackCounter != nil {
		ReconciliationWriteBackCounter.WithLabelValues(outcome).Inc()
	}
}

// RecordStockAdjustment counts one applied stock adjustment
func RecordStockAdjustment(adjustmentType string) {
	if StockAdjustmentsCounter != nil {
		StockAdjustmentsCounter.WithLabelValues(adjustmentType).Inc()
	}
}

// RecordAuthAttempt counts an authentication attempt and, when failed, an auth error
func RecordAuthAttempt(failed bool) {
	if AuthAttemptsCounter == nil {
		return
	}
	AuthAttemptsCounter.Inc()
	if failed {
		AuthErrorsCounter.Inc()
	}
}
