// Package logging provides the structured zap logger and the
// logr bridge used by the controller manager and its background
// components (sigs.k8s.io/controller-runtime expects a logr.Logger).
package logging

import (
	"context"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ContextKey is the type for context keys used by this package.
type ContextKey string

// RequestIDKey is the context key for the request/invocation ID.
const RequestIDKey ContextKey = "requestID"

// NewLogger creates a new structured zap logger. Production mode
// emits JSON; development mode emits colorized console output.
func NewLogger(development bool) (*zap.Logger, error) {
	var config zap.Config
	if development {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		config = zap.NewProductionConfig()
	}

	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return config.Build(
		zap.AddCaller(),
		zap.AddStacktrace(zapcore.ErrorLevel),
	)
}

// NewZapLogger bridges a zap.Logger into a logr.Logger for use with
// controller-runtime's log.FromContext.
func NewZapLogger(zapLogger *zap.Logger, development bool) logr.Logger {
	return zapr.NewLogger(zapLogger)
}

// WithRequestID attaches a fresh request/invocation ID to the context.
func WithRequestID(ctx context.Context) context.Context {
	return context.WithValue(ctx, RequestIDKey, uuid.New().String())
}

// GetRequestID retrieves the request ID from the context, or "" if absent.
func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok {
		return requestID
	}
	return ""
}

// WithRequestIDField returns logger with a requestID field attached,
// if the context carries one; otherwise it returns logger unchanged.
func WithRequestIDField(ctx context.Context, logger *zap.Logger) *zap.Logger {
	if requestID := GetRequestID(ctx); requestID != "" {
		return logger.With(zap.String("requestID", requestID))
	}
	return logger
}

// LogVersionIncompatible logs a fatal version compatibility gate failure.
func LogVersionIncompatible(logger *zap.Logger, controllerID, controllerVersion, participantID, participantVersion string) {
	logger.Error("version compatibility gate failed",
		zap.String("controller", controllerID),
		zap.String("controllerVersion", controllerVersion),
		zap.String("participant", participantID),
		zap.String("participantVersion", participantVersion),
	)
}

// LogParticipantVersionMissing logs a warning for a participant with
// no declared version; the compatibility check is skipped for it.
func LogParticipantVersionMissing(logger *zap.Logger, participantID string) {
	logger.Warn("participant has no declared version, skipping compatibility check",
		zap.String("participant", participantID),
	)
}

// LogResourceComputeStart logs the start of per-resource computation.
func LogResourceComputeStart(logger *zap.Logger, resource string, mode string) {
	logger.Info("computing intermediate state for resource",
		zap.String("resource", resource),
		zap.String("mode", mode),
	)
}

// LogResourceComputeComplete logs the completion of per-resource
// computation along with classification counts.
func LogResourceComputeComplete(logger *zap.Logger, resource string, recovery, loadBalance, none int) {
	logger.Info("finished computing intermediate state for resource",
		zap.String("resource", resource),
		zap.Int("recoveryBalanceCount", recovery),
		zap.Int("loadBalanceCount", loadBalance),
		zap.Int("noneCount", none),
	)
}

// LogPartitionClassified logs a single partition's classification.
func LogPartitionClassified(logger *zap.Logger, resource, partition, rebalanceType string) {
	logger.Debug("partition classified",
		zap.String("resource", resource),
		zap.String("partition", partition),
		zap.String("rebalanceType", rebalanceType),
	)
}

// LogLoadBalanceThrottled logs a partition whose load-balance
// admission was throttled this cycle.
func LogLoadBalanceThrottled(logger *zap.Logger, resource, partition string) {
	logger.Info("load balance throttled",
		zap.String("resource", resource),
		zap.String("partition", partition),
	)
}

// LogRecoverySuppressesLoadBalance logs that a resource's recovery
// set is non-empty, so its load-balance partitions retain current
// state this cycle.
func LogRecoverySuppressesLoadBalance(logger *zap.Logger, resource string, loadBalanceCount int) {
	logger.Info("recovery in progress, load balance skipped for resource",
		zap.String("resource", resource),
		zap.Int("loadBalanceCount", loadBalanceCount),
	)
}

// LogComputeStart logs the start of a full computation invocation.
func LogComputeStart(logger *zap.Logger, resourceCount int) {
	logger.Info("starting intermediate state computation", zap.Int("resourceCount", resourceCount))
}

// LogComputeComplete logs the successful completion of a full
// computation invocation.
func LogComputeComplete(logger *zap.Logger, resourceCount int, duration string) {
	logger.Info("intermediate state computation completed",
		zap.Int("resourceCount", resourceCount),
		zap.String("duration", duration),
	)
}

// LogComputeFailed logs a fatal failure of a computation invocation.
func LogComputeFailed(logger *zap.Logger, err error, reason string) {
	logger.Error("intermediate state computation failed",
		zap.Error(err),
		zap.String("reason", reason),
	)
}
