package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"k8s.io/apimachinery/pkg/runtime"
	clientgoscheme "k8s.io/client-go/kubernetes/scheme"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"

	"github.com/clustersync/controller/pkg/controller"
)

// Version information, set via ldflags during build.
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

// scheme is registered at package init so tests (and newRootCommand's
// Run closure) can inspect it without constructing a manager.
var scheme = runtime.NewScheme()

func init() {
	if err := clientgoscheme.AddToScheme(scheme); err != nil {
		panic(fmt.Sprintf("failed to register core types: %v", err))
	}
}

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := controller.NewDefaultOptions()

	cmd := &cobra.Command{
		Use:          "clustersync-controller",
		Short:        "Cluster sync controller: Apache-Helix-style rebalance throttling",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRootCommand(cmd, opts)
		},
	}

	addFlags(cmd, opts)
	return cmd
}

// addFlags registers every CLI flag and binds it to the matching
// viper key so CLUSTERSYNC_-prefixed environment variables and
// --config file values can override the default.
func addFlags(cmd *cobra.Command, opts *controller.Options) {
	flags := cmd.Flags()

	flags.String("config", "", "Path to a YAML config file")
	flags.String("kubeconfig", "", "Path to kubeconfig file (optional, uses in-cluster config if not specified)")
	flags.String("static-config", opts.StaticConfigPath, "Path to a static cluster config file, bypassing the Kubernetes cluster source")
	flags.String("cluster-namespace", opts.ClusterNamespace, "Namespace holding the resource and throttle-config ConfigMaps and participant Leases")
	flags.String("metrics-addr", opts.MetricsAddr, "Address the metrics endpoint binds to")
	flags.String("health-addr", opts.HealthProbeAddr, "Address the health probe endpoint binds to")
	flags.Bool("leader-election", opts.EnableLeaderElection, "Enable leader election for controller manager")
	flags.String("leader-election-id", opts.LeaderElectionID, "Leader election lease name")
	flags.String("leader-election-namespace", opts.LeaderElectionNamespace, "Leader election lease namespace")
	flags.Duration("resync-interval", opts.SyncPeriod, "Interval between intermediate-state computations")
	flags.Bool("throttle-enabled", opts.ThrottleEnabled, "Enable throttling of recovery/load-balance transitions")
	flags.Int("cluster-recovery-limit", opts.ClusterRecoveryBalanceLimit, "Cluster-wide recovery-balance in-flight limit (0 disables)")
	flags.Int("cluster-load-balance-limit", opts.ClusterLoadBalanceLimit, "Cluster-wide load-balance in-flight limit")
	flags.Int("resource-recovery-limit", opts.DefaultResourceRecoveryBalanceLimit, "Default per-resource recovery-balance in-flight limit (0 disables)")
	flags.Int("resource-load-balance-limit", opts.DefaultResourceLoadBalanceLimit, "Default per-resource load-balance in-flight limit")
	flags.Int("instance-recovery-limit", opts.DefaultInstanceRecoveryBalanceLimit, "Default per-instance recovery-balance in-flight limit (0 disables)")
	flags.Int("instance-load-balance-limit", opts.DefaultInstanceLoadBalanceLimit, "Default per-instance load-balance in-flight limit")
	flags.String("log-level", opts.LogLevel, "Log level (debug, info, warn, error)")
	flags.String("log-format", opts.LogFormat, "Log format (json, console)")
	flags.Bool("development", opts.DevelopmentMode, "Enable development-mode logging")

	_ = viper.BindPFlags(flags)
	viper.SetEnvPrefix("clustersync")
	viper.AutomaticEnv()
}

// runRootCommand loads the config file (if any), applies flag/env
// overrides onto opts, validates and completes it, builds the
// manager, and blocks until an interrupt or terminate signal arrives.
func runRootCommand(cmd *cobra.Command, opts *controller.Options) error {
	if cfgPath, _ := cmd.Flags().GetString("config"); cfgPath != "" {
		viper.SetConfigFile(cfgPath)
		if err := viper.ReadInConfig(); err != nil {
			return fmt.Errorf("reading config file: %w", err)
		}
	}

	applyViperOverrides(opts)

	if err := opts.Complete(); err != nil {
		return fmt.Errorf("completing options: %w", err)
	}
	if err := opts.Validate(); err != nil {
		return fmt.Errorf("invalid options: %w", err)
	}

	var k8sConfig *rest.Config
	if opts.StaticConfigPath == "" {
		cfg, err := buildKubeConfig(opts.Kubeconfig)
		if err != nil {
			return fmt.Errorf("building kubeconfig: %w", err)
		}
		k8sConfig = cfg
	}

	mgr, err := controller.NewManager(k8sConfig, opts)
	if err != nil {
		return fmt.Errorf("creating controller manager: %w", err)
	}

	ctx, cancel := signalContext()
	defer cancel()

	if err := mgr.Start(ctx); err != nil {
		return fmt.Errorf("controller manager stopped with error: %w", err)
	}
	return nil
}

func applyViperOverrides(opts *controller.Options) {
	if v := viper.GetString("kubeconfig"); v != "" {
		opts.Kubeconfig = v
	}
	if v := viper.GetString("static-config"); v != "" {
		opts.StaticConfigPath = v
	}
	if v := viper.GetString("cluster-namespace"); v != "" {
		opts.ClusterNamespace = v
	}
	if v := viper.GetString("metrics-addr"); v != "" {
		opts.MetricsAddr = v
	}
	if v := viper.GetString("health-addr"); v != "" {
		opts.HealthProbeAddr = v
	}
	opts.EnableLeaderElection = viper.GetBool("leader-election")
	if v := viper.GetString("leader-election-id"); v != "" {
		opts.LeaderElectionID = v
	}
	if v := viper.GetString("leader-election-namespace"); v != "" {
		opts.LeaderElectionNamespace = v
	}
	if v := viper.GetDuration("resync-interval"); v > 0 {
		opts.SyncPeriod = v
	}
	opts.ThrottleEnabled = viper.GetBool("throttle-enabled")
	opts.ClusterRecoveryBalanceLimit = viper.GetInt("cluster-recovery-limit")
	opts.ClusterLoadBalanceLimit = viper.GetInt("cluster-load-balance-limit")
	opts.DefaultResourceRecoveryBalanceLimit = viper.GetInt("resource-recovery-limit")
	opts.DefaultResourceLoadBalanceLimit = viper.GetInt("resource-load-balance-limit")
	opts.DefaultInstanceRecoveryBalanceLimit = viper.GetInt("instance-recovery-limit")
	opts.DefaultInstanceLoadBalanceLimit = viper.GetInt("instance-load-balance-limit")
	if v := viper.GetString("log-level"); v != "" {
		opts.LogLevel = v
	}
	if v := viper.GetString("log-format"); v != "" {
		opts.LogFormat = v
	}
	opts.DevelopmentMode = viper.GetBool("development")
}

// buildKubeConfig creates a Kubernetes client configuration, using an
// out-of-cluster kubeconfig file if one is given and falling back to
// in-cluster config otherwise.
func buildKubeConfig(kubeconfig string) (*rest.Config, error) {
	if kubeconfig != "" {
		cfg, err := clientcmd.BuildConfigFromFlags("", kubeconfig)
		if err != nil {
			return nil, fmt.Errorf("failed to build config from kubeconfig: %w", err)
		}
		return cfg, nil
	}

	cfg, err := rest.InClusterConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to get in-cluster config: %w", err)
	}
	return cfg, nil
}

// getKubeconfigPath normalizes an empty kubeconfig flag into the
// "in-cluster" sentinel used in log messages.
func getKubeconfigPath(kubeconfig string) string {
	if kubeconfig == "" {
		return "in-cluster"
	}
	return filepath.Clean(kubeconfig)
}

// configureLogLevel raises a logger's minimum level to the given one,
// treating an unrecognized level string as info. A level below the
// logger's current level leaves it unchanged (zap.IncreaseLevel).
func configureLogLevel(logger *zap.Logger, level string) *zap.Logger {
	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info":
		zapLevel = zapcore.InfoLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}
	return logger.WithOptions(zap.IncreaseLevel(zapLevel))
}

// signalContext returns a context cancelled on SIGINT/SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigCh
		cancel()
		<-sigCh
		os.Exit(1)
	}()

	return ctx, cancel
}

