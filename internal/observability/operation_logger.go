package observability

import (
	"context"

	"github.com/MarkoPoloResearchLab/motocare/pkg/booking"
	"go.uber.org/zap"
)

const logMessageOperation = "booking operation"

// OperationLogger writes booking operation logs to zap and counts them.
type OperationLogger struct {
	logger  *zap.Logger
	metrics *Metrics
}

var _ booking.OperationLogger = (*OperationLogger)(nil)

// NewOperationLogger returns an OperationLogger. metrics may be nil.
func NewOperationLogger(logger *zap.Logger, metrics *Metrics) *OperationLogger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OperationLogger{logger: logger.Named("booking"), metrics: metrics}
}

// LogOperation logs entry at Info on success, Warn on a domain rejection and Error otherwise.
func (operationLogger *OperationLogger) LogOperation(_ context.Context, entry booking.OperationLog) {
	if operationLogger.metrics != nil {
		operationLogger.metrics.Operations.WithLabelValues(entry.Operation, entry.Status).Inc()
	}
	fields := []zap.Field{
		zap.String("operation", entry.Operation),
		zap.String("status", entry.Status),
	}
	if !entry.UserID.IsZero() {
		fields = append(fields, zap.String("user_id", entry.UserID.String()))
	}
	if entry.AppointmentID != nil {
		fields = append(fields, zap.String("appointment_id", entry.AppointmentID.String()))
	}
	if entry.InvoiceID != nil {
		fields = append(fields, zap.String("invoice_id", entry.InvoiceID.String()))
	}
	if entry.FromStatus != "" {
		fields = append(fields, zap.String("from_status", entry.FromStatus))
	}
	if entry.ToStatus != "" {
		fields = append(fields, zap.String("to_status", entry.ToStatus))
	}
	if entry.Points != 0 {
		fields = append(fields, zap.Int64("points", entry.Points))
	}
	switch {
	case entry.Error == nil:
		operationLogger.logger.Info(logMessageOperation, fields...)
	case booking.IsDomainError(entry.Error):
		operationLogger.logger.Warn(logMessageOperation, append(fields, zap.Error(entry.Error))...)
	default:
		operationLogger.logger.Error(logMessageOperation, append(fields, zap.Error(entry.Error))...)
	}
}
