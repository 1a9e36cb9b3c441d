// Package telemetry provides booking.OperationLogger implementations.
package telemetry

import (
	"context"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/MarkoPoloResearchLab/voyages/pkg/booking"
)

// ZapOperationLogger writes one structured entry per booking operation.
type ZapOperationLogger struct {
	logger *zap.Logger
}

// NewZapOperationLogger wraps logger; a nil logger discards entries.
func NewZapOperationLogger(logger *zap.Logger) *ZapOperationLogger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ZapOperationLogger{logger: logger}
}

// LogOperation logs successes at info, business rejections at warn and
// everything else at error.
func (operationLogger *ZapOperationLogger) LogOperation(_ context.Context, entry booking.OperationLog) {
	fields := []zap.Field{
		zap.String("operation", entry.Operation),
		zap.String("status", entry.Status),
		zap.String("actor_id", entry.ActorID.String()),
	}
	if entry.VoyageID.String() != "" {
		fields = append(fields, zap.String("voyage_id", entry.VoyageID.String()))
	}
	if entry.ReservationID.String() != "" {
		fields = append(fields, zap.String("reservation_id", entry.ReservationID.String()))
	}
	if entry.Seats > 0 {
		fields = append(fields, zap.Int("seats", entry.Seats.Int()))
	}
	level := zapcore.InfoLevel
	if entry.Error != nil {
		kind := booking.KindOf(entry.Error)
		fields = append(fields, zap.String("error_kind", string(kind)), zap.Error(entry.Error))
		level = zapcore.WarnLevel
		if kind == booking.KindInternal {
			level = zapcore.ErrorLevel
		}
	}
	operationLogger.logger.Log(level, "booking operation", fields...)
}

// MultiOperationLogger fans one entry out to several loggers.
type MultiOperationLogger []booking.OperationLogger

// LogOperation forwards entry to every non-nil logger in order.
func (loggers MultiOperationLogger) LogOperation(ctx context.Context, entry booking.OperationLog) {
	for _, logger := range loggers {
		if logger != nil {
			logger.LogOperation(ctx, entry)
		}
	}
}
