package audit

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/clustersync/controller/internal/logging"
	"github.com/clustersync/controller/pkg/clustermodel"
	"github.com/clustersync/controller/pkg/metrics"
)

// AuditEvent represents a structured audit log entry.
type AuditEvent struct {
	Timestamp time.Time               `json:"timestamp"`
	EventType EventType               `json:"eventType"`
	Category  EventCategory           `json:"category"`
	Severity  EventSeverity           `json:"severity"`
	RequestID string                  `json:"requestId,omitempty"`
	Actor     string                  `json:"actor,omitempty"`
	Resource  *ResourceInfo           `json:"resource,omitempty"`
	Details   map[string]interface{}  `json:"details,omitempty"`
	Outcome   string                  `json:"outcome,omitempty"`
	Message   string                  `json:"message,omitempty"`
	Duration  time.Duration           `json:"duration,omitempty"`
}

// ResourceInfo identifies the resource or partition an event concerns.
type ResourceInfo struct {
	Kind      string `json:"kind"`
	Name      string `json:"name"`
	Partition string `json:"partition,omitempty"`
}

// AuditLogger handles audit event logging for the intermediate-state
// computation: gate failures, admission decisions, and throttle
// exhaustion events.
type AuditLogger struct {
	logger       *zap.Logger
	enabled      bool
	mu           sync.RWMutex
	defaultActor string
	eventSinks   []EventSink
}

// EventSink defines an interface for custom audit event destinations.
type EventSink interface {
	Write(event *AuditEvent) error
	Close() error
}

// AuditLoggerConfig configures the audit logger.
type AuditLoggerConfig struct {
	Enabled      bool
	Logger       *zap.Logger
	DefaultActor string
	EventSinks   []EventSink
}

// NewAuditLogger creates a new audit logger.
func NewAuditLogger(config *AuditLoggerConfig) *AuditLogger {
	if config == nil {
		config = &AuditLoggerConfig{Enabled: true, Logger: zap.NewNop()}
	}
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditLogger{
		logger:       logger.Named("audit"),
		enabled:      config.Enabled,
		defaultActor: config.DefaultActor,
		eventSinks:   config.EventSinks,
	}
}

// Log records an audit event.
func (a *AuditLogger) Log(ctx context.Context, event *AuditEvent) {
	a.mu.RLock()
	enabled := a.enabled
	a.mu.RUnlock()
	if !enabled {
		return
	}

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if event.Category == "" {
		event.Category = GetCategory(event.EventType)
	}
	if event.Severity == "" {
		event.Severity = GetSeverity(event.EventType)
	}
	if event.RequestID == "" {
		event.RequestID = logging.GetRequestID(ctx)
	}
	if event.Actor == "" {
		event.Actor = a.defaultActor
	}

	fields := a.buildFields(event)
	switch event.Severity {
	case SeverityCritical, SeverityError:
		a.logger.Error(event.Message, fields...)
	case SeverityWarning:
		a.logger.Warn(event.Message, fields...)
	default:
		a.logger.Info(event.Message, fields...)
	}

	metrics.AuditEventsTotal.WithLabelValues(
		string(event.EventType),
		string(event.Category),
		string(event.Severity),
	).Inc()

	for _, sink := range a.eventSinks {
		if err := sink.Write(event); err != nil {
			a.logger.Warn("failed to write audit event to sink",
				zap.Error(err), zap.String("eventType", string(event.EventType)))
		}
	}
}

func (a *AuditLogger) buildFields(event *AuditEvent) []zapcore.Field {
	fields := []zapcore.Field{
		zap.Time("timestamp", event.Timestamp),
		zap.String("eventType", string(event.EventType)),
		zap.String("category", string(event.Category)),
		zap.String("severity", string(event.Severity)),
	}
	if event.RequestID != "" {
		fields = append(fields, zap.String("requestId", event.RequestID))
	}
	if event.Actor != "" {
		fields = append(fields, zap.String("actor", event.Actor))
	}
	if event.Outcome != "" {
		fields = append(fields, zap.String("outcome", event.Outcome))
	}
	if event.Duration > 0 {
		fields = append(fields, zap.Duration("duration", event.Duration))
	}
	if event.Resource != nil {
		fields = append(fields, zap.Object("resource", zapResourceInfo{event.Resource}))
	}
	if len(event.Details) > 0 {
		detailsJSON, _ := json.Marshal(event.Details)
		fields = append(fields, zap.String("details", string(detailsJSON)))
	}
	return fields
}

type zapResourceInfo struct {
	*ResourceInfo
}

func (r zapResourceInfo) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("kind", r.Kind)
	enc.AddString("name", r.Name)
	if r.Partition != "" {
		enc.AddString("partition", r.Partition)
	}
	return nil
}

// Enable enables audit logging.
func (a *AuditLogger) Enable() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.enabled = true
}

// Disable disables audit logging.
func (a *AuditLogger) Disable() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.enabled = false
}

// IsEnabled returns whether audit logging is enabled.
func (a *AuditLogger) IsEnabled() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.enabled
}

// Close closes all event sinks.
func (a *AuditLogger) Close() error {
	for _, sink := range a.eventSinks {
		if err := sink.Close(); err != nil {
			a.logger.Warn("failed to close audit event sink", zap.Error(err))
		}
	}
	return nil
}

// Domain helper methods, called from pkg/stage without a context
// since the computation itself never blocks or propagates one.

// LogVersionGateFailed logs a fatal version compatibility gate failure.
func (a *AuditLogger) LogVersionGateFailed(err error) {
	a.Log(context.Background(), &AuditEvent{
		EventType: EventVersionGateFailed,
		Message:   "version compatibility gate failed",
		Outcome:   "failure",
		Details: map[string]interface{}{
			"error": err.Error(),
		},
	})
}

// LogVersionGatePassed logs a successful version compatibility check.
func (a *AuditLogger) LogVersionGatePassed(controller clustermodel.InstanceID) {
	a.Log(context.Background(), &AuditEvent{
		EventType: EventVersionGatePassed,
		Message:   "version compatibility gate passed",
		Outcome:   "success",
		Resource:  &ResourceInfo{Kind: "controller", Name: string(controller)},
	})
}

// LogRecoveryAdmitted logs a partition admitted for recovery.
func (a *AuditLogger) LogRecoveryAdmitted(resource clustermodel.ResourceName, partition clustermodel.PartitionName) {
	a.Log(context.Background(), &AuditEvent{
		EventType: EventRecoveryAdmitted,
		Message:   "partition admitted for recovery",
		Outcome:   "success",
		Resource:  &ResourceInfo{Kind: "resource", Name: string(resource), Partition: string(partition)},
	})
}

// LogLoadBalanceAdmitted logs a partition admitted for load balancing.
func (a *AuditLogger) LogLoadBalanceAdmitted(resource clustermodel.ResourceName, partition clustermodel.PartitionName) {
	a.Log(context.Background(), &AuditEvent{
		EventType: EventLoadBalanceAdmitted,
		Message:   "partition admitted for load balance",
		Outcome:   "success",
		Resource:  &ResourceInfo{Kind: "resource", Name: string(resource), Partition: string(partition)},
	})
}

// LogLoadBalanceThrottled logs a partition whose load-balance
// admission was throttled.
func (a *AuditLogger) LogLoadBalanceThrottled(resource clustermodel.ResourceName, partition clustermodel.PartitionName) {
	a.Log(context.Background(), &AuditEvent{
		EventType: EventLoadBalanceThrottled,
		Message:   "load balance throttled",
		Outcome:   "throttled",
		Resource:  &ResourceInfo{Kind: "resource", Name: string(resource), Partition: string(partition)},
	})
}

// LogComputeFailed logs a fatal failure of the intermediate-state computation.
func (a *AuditLogger) LogComputeFailed(err error) {
	a.Log(context.Background(), &AuditEvent{
		EventType: EventComputeFailed,
		Message:   "intermediate state computation failed",
		Outcome:   "failure",
		Details: map[string]interface{}{
			"error": err.Error(),
		},
	})
}

// Global audit logger instance.
var (
	globalAuditLogger   *AuditLogger
	globalAuditLoggerMu sync.RWMutex
)

// GetGlobalAuditLogger returns the global audit logger instance. If
// none has been set via SetGlobalAuditLogger, a default no-op logger
// is created and returned.
func GetGlobalAuditLogger() *AuditLogger {
	globalAuditLoggerMu.RLock()
	logger := globalAuditLogger
	globalAuditLoggerMu.RUnlock()
	if logger != nil {
		return logger
	}

	globalAuditLoggerMu.Lock()
	defer globalAuditLoggerMu.Unlock()
	if globalAuditLogger != nil {
		return globalAuditLogger
	}
	globalAuditLogger = NewAuditLogger(nil)
	return globalAuditLogger
}

// SetGlobalAuditLogger sets the global audit logger instance. Safe
// for concurrent use with GetGlobalAuditLogger.
func SetGlobalAuditLogger(logger *AuditLogger) {
	globalAuditLoggerMu.Lock()
	defer globalAuditLoggerMu.Unlock()
	globalAuditLogger = logger
}
