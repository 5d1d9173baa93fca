package controller

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/go-logr/zapr"
	"go.uber.org/zap"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/client-go/kubernetes"
	clientgoscheme "k8s.io/client-go/kubernetes/scheme"
	"k8s.io/client-go/rest"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/healthz"
	"sigs.k8s.io/controller-runtime/pkg/metrics/server"

	"github.com/clustersync/controller/pkg/audit"
	"github.com/clustersync/controller/pkg/clustermodel"
	"github.com/clustersync/controller/pkg/clustersource"
	"github.com/clustersync/controller/pkg/metrics"
	"github.com/clustersync/controller/pkg/stage"
	"github.com/clustersync/controller/pkg/stageerrors"
)

// clusterSource is the interface ControllerManager drives the
// computation through, satisfied by both clustersource.StaticSource
// and clustersource.K8sSource.
type clusterSource interface {
	clustermodel.ClusterDataCache
	clustermodel.ManagerHandle
	BuildStageInput() clustermodel.StageInput
}

// ControllerManager owns the controller-runtime manager, the cluster
// data source, and the ticker that periodically invokes the
// intermediate-state computation.
type ControllerManager struct {
	config        *rest.Config
	options       *Options
	mgr           ctrl.Manager
	k8sClient     kubernetes.Interface
	source        clusterSource
	healthChecker *HealthChecker
	logger        *zap.Logger
	scheme        *runtime.Scheme
	auditLogger   *audit.AuditLogger
}

// NewManager creates a new ControllerManager.
func NewManager(config *rest.Config, opts *Options) (*ControllerManager, error) {
	if opts == nil {
		return nil, fmt.Errorf("options cannot be nil")
	}

	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}

	logger, err := newLogger(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	scheme := runtime.NewScheme()
	if err := clientgoscheme.AddToScheme(scheme); err != nil {
		return nil, fmt.Errorf("failed to add core types to scheme: %w", err)
	}

	var source clusterSource
	var k8sClient kubernetes.Interface
	var checkFunc CheckFunc

	if opts.StaticConfigPath != "" {
		static, err := clustersource.LoadStaticConfig(opts.StaticConfigPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load static cluster config: %w", err)
		}
		source = static
		checkFunc = func(ctx context.Context) error { return nil }
	} else {
		if config == nil {
			return nil, fmt.Errorf("kubeconfig cannot be nil when no static config path is set")
		}

		k8sClient, err = kubernetes.NewForConfig(config)
		if err != nil {
			return nil, fmt.Errorf("failed to create kubernetes client: %w", err)
		}

		serverVersion, err := k8sClient.Discovery().ServerVersion()
		if err != nil {
			return nil, fmt.Errorf("failed to get cluster version: %w", err)
		}

		instanceID := clustermodel.InstanceID(podName())
		k8sSource := clustersource.NewK8sSource(k8sClient, opts.ClusterNamespace, instanceID, serverVersion.GitVersion)
		if err := k8sSource.Refresh(context.Background()); err != nil {
			return nil, fmt.Errorf("initial cluster data refresh failed: %w", err)
		}
		source = k8sSource
		checkFunc = k8sSource.Refresh
	}

	var mgr ctrl.Manager
	if config != nil {
		mgr, err = ctrl.NewManager(config, ctrl.Options{
			Scheme: scheme,
			Metrics: server.Options{
				BindAddress: opts.MetricsAddr,
			},
			HealthProbeBindAddress:  opts.HealthProbeAddr,
			LeaderElection:          opts.EnableLeaderElection,
			LeaderElectionID:        opts.LeaderElectionID,
			LeaderElectionNamespace: opts.LeaderElectionNamespace,
			Logger:                  zapr.NewLogger(logger),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create manager: %w", err)
		}
	}

	healthChecker := NewHealthChecker(checkFunc)
	auditLogger := audit.NewAuditLogger(&audit.AuditLoggerConfig{Enabled: true, Logger: logger})

	cm := &ControllerManager{
		config:        config,
		options:       opts,
		mgr:           mgr,
		k8sClient:     k8sClient,
		source:        source,
		healthChecker: healthChecker,
		logger:        logger,
		scheme:        scheme,
		auditLogger:   auditLogger,
	}

	if mgr != nil {
		if err := cm.setupHealthChecks(); err != nil {
			return nil, fmt.Errorf("failed to setup health checks: %w", err)
		}
	}

	return cm, nil
}

func podName() string {
	if name := os.Getenv("POD_NAME"); name != "" {
		return name
	}
	return "clustersync-controller"
}

// setupHealthChecks configures the health check endpoints.
func (cm *ControllerManager) setupHealthChecks() error {
	if err := cm.mgr.AddHealthzCheck("healthz", cm.healthzCheck); err != nil {
		return fmt.Errorf("failed to add healthz check: %w", err)
	}

	if err := cm.mgr.AddReadyzCheck("readyz", cm.readyzCheck); err != nil {
		return fmt.Errorf("failed to add readyz check: %w", err)
	}

	if err := cm.mgr.AddHealthzCheck("ping", healthz.Ping); err != nil {
		return fmt.Errorf("failed to add ping check: %w", err)
	}

	return nil
}

// healthzCheck implements the liveness probe.
func (cm *ControllerManager) healthzCheck(req *http.Request) error {
	if !cm.healthChecker.IsHealthy() {
		lastErr := cm.healthChecker.LastError()
		if lastErr != nil {
			return fmt.Errorf("health check failed: %w", lastErr)
		}
		return fmt.Errorf("controller is not healthy")
	}
	return nil
}

// readyzCheck implements the readiness probe.
func (cm *ControllerManager) readyzCheck(req *http.Request) error {
	if !cm.healthChecker.IsReady() {
		lastErr := cm.healthChecker.LastError()
		if lastErr != nil {
			return fmt.Errorf("readiness check failed: %w", lastErr)
		}
		return fmt.Errorf("controller is not ready")
	}
	return nil
}

// Start starts the controller manager and blocks until the context is cancelled.
func (cm *ControllerManager) Start(ctx context.Context) error {
	cm.logger.Info("starting cluster sync controller",
		zap.Bool("leader_election", cm.options.EnableLeaderElection),
		zap.String("metrics_addr", cm.options.MetricsAddr),
		zap.String("health_addr", cm.options.HealthProbeAddr),
		zap.Duration("sync_period", cm.options.SyncPeriod),
	)

	if err := cm.healthChecker.Start(ctx); err != nil {
		return fmt.Errorf("failed to start health checker: %w", err)
	}
	cm.logger.Info("health checks initialized successfully")

	cm.runComputationLoop(ctx)

	if cm.mgr != nil {
		cm.logger.Info("starting controller-runtime manager")
		if err := cm.mgr.Start(ctx); err != nil {
			return fmt.Errorf("failed to start manager: %w", err)
		}
		return nil
	}

	<-ctx.Done()
	return nil
}

// runComputationLoop starts the background ticker that invokes
// stage.ComputeIntermediateState once per sync period.
func (cm *ControllerManager) runComputationLoop(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(cm.options.SyncPeriod)
		defer ticker.Stop()

		cm.runOnce(ctx)

		for {
			select {
			case <-ctx.Done():
				cm.logger.Info("stopping computation loop")
				return
			case <-ticker.C:
				cm.runOnce(ctx)
			}
		}
	}()
}

func (cm *ControllerManager) runOnce(ctx context.Context) {
	input := cm.source.BuildStageInput()

	start := time.Now()
	output, err := stage.ComputeIntermediateState(input, stage.ComputeOptions{
		Logger: cm.logger,
		Audit:  cm.auditLogger,
	})
	elapsed := time.Since(start).Seconds()

	if err != nil {
		metrics.ObserveComputeDuration("error", elapsed)
		metrics.RecordComputeError(errorType(err))
		cm.logger.Error("intermediate state computation failed", zap.Error(err))
		return
	}

	metrics.ObserveComputeDuration("success", elapsed)
	for name, partitions := range output.Resources {
		metrics.RecordResourceProcessed(string(input.Resources[name].RebalanceMode))
		cm.logger.Info("computed intermediate state",
			zap.String("resource", string(name)),
			zap.Int("partitions", len(partitions)),
			zap.Duration("elapsed", time.Since(start)),
		)
	}
}

func errorType(err error) string {
	switch {
	case stageerrors.IsMissingInput(err):
		return "missing_input"
	case stageerrors.IsMissingControllerVersion(err), stageerrors.IsIncompatibleVersion(err):
		return "version_gate"
	default:
		return "unknown"
	}
}

// GetManager returns the controller-runtime manager.
func (cm *ControllerManager) GetManager() ctrl.Manager {
	return cm.mgr
}

// GetKubernetesClient returns the Kubernetes clientset.
func (cm *ControllerManager) GetKubernetesClient() kubernetes.Interface {
	return cm.k8sClient
}

// GetLogger returns the logger.
func (cm *ControllerManager) GetLogger() *zap.Logger {
	return cm.logger
}

// GetHealthChecker returns the health checker.
func (cm *ControllerManager) GetHealthChecker() *HealthChecker {
	return cm.healthChecker
}

// Shutdown gracefully shuts down the controller manager.
func (cm *ControllerManager) Shutdown(ctx context.Context) error {
	cm.logger.Info("initiating graceful shutdown")

	cm.healthChecker.SetReady(false)

	shutdownDelay := 5 * time.Second
	cm.logger.Info("waiting before shutdown", zap.Duration("delay", shutdownDelay))

	select {
	case <-time.After(shutdownDelay):
	case <-ctx.Done():
		cm.logger.Warn("shutdown deadline exceeded during delay")
	}

	cm.logger.Info("shutdown complete")
	return nil
}

// newLogger creates a new zap logger based on options.
func newLogger(opts *Options) (*zap.Logger, error) {
	var config zap.Config

	if opts.DevelopmentMode {
		config = zap.NewDevelopmentConfig()
	} else {
		config = zap.NewProductionConfig()
	}

	switch opts.LogLevel {
	case "debug":
		config.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "info":
		config.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	case "warn":
		config.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		config.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	default:
		config.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}

	if opts.LogFormat == "console" {
		config.Encoding = "console"
	} else {
		config.Encoding = "json"
	}

	logger, err := config.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}

	return logger, nil
}
