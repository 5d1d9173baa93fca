package controller

import (
	"fmt"
	"time"
)

// Options holds configuration options for the controller manager.
type Options struct {
	// Kubeconfig is the path to the kubeconfig file.
	// If empty, uses in-cluster configuration.
	Kubeconfig string

	// MetricsAddr is the address the metric endpoint binds to.
	MetricsAddr string

	// HealthProbeAddr is the address the health probe endpoint binds to.
	HealthProbeAddr string

	// EnableLeaderElection enables leader election for the controller
	// manager. Enabling this ensures only one active controller drives
	// state transitions at a time.
	EnableLeaderElection bool

	// LeaderElectionID is the name of the Lease that leader election will use.
	LeaderElectionID string

	// LeaderElectionNamespace is the namespace where the leader election Lease lives.
	LeaderElectionNamespace string

	// ClusterNamespace is the namespace holding the ideal-state and
	// state-model ConfigMaps and the participant liveness Leases.
	ClusterNamespace string

	// SyncPeriod is the interval between intermediate-state computations.
	SyncPeriod time.Duration

	// StaticConfigPath, when set, bypasses the Kubernetes-backed cluster
	// source and loads ideal state, current state, resources and
	// throttle configuration from a single JSON file instead.
	StaticConfigPath string

	// ThrottleEnabled and the limit fields below are parsed from flags
	// and checked by Validate, but ControllerManager does not pass them
	// to the computation: the throttle configuration it applies is the
	// one returned by the cluster source's ThrottleConfig.
	ThrottleEnabled bool

	// ClusterRecoveryBalanceLimit and ClusterLoadBalanceLimit are
	// cluster-wide recovery/load-balance limits. Zero means unbounded.
	ClusterRecoveryBalanceLimit int
	ClusterLoadBalanceLimit     int

	// DefaultResourceRecoveryBalanceLimit and DefaultResourceLoadBalanceLimit
	// are the fallback per-resource limits applied when a resource has
	// no entry of its own.
	DefaultResourceRecoveryBalanceLimit int
	DefaultResourceLoadBalanceLimit     int

	// DefaultInstanceRecoveryBalanceLimit and DefaultInstanceLoadBalanceLimit
	// are the fallback per-instance limits applied when an instance has
	// no entry of its own.
	DefaultInstanceRecoveryBalanceLimit int
	DefaultInstanceLoadBalanceLimit     int

	// LogLevel is the log verbosity level (debug, info, warn, error).
	LogLevel string

	// LogFormat is the log format (json, console).
	LogFormat string

	// DevelopmentMode enables development mode with more verbose logging.
	DevelopmentMode bool
}

// NewDefaultOptions returns Options with default values.
func NewDefaultOptions() *Options {
	return &Options{
		MetricsAddr:             ":8080",
		HealthProbeAddr:         ":8081",
		EnableLeaderElection:    true,
		LeaderElectionID:        "clustersync-controller-leader",
		LeaderElectionNamespace: "kube-system",
		ClusterNamespace:        "kube-system",
		SyncPeriod:              30 * time.Second,
		ThrottleEnabled:         true,
		LogLevel:                "info",
		LogFormat:               "json",
		DevelopmentMode:         false,
	}
}

// Validate validates the options and returns an error if any option is invalid.
func (o *Options) Validate() error {
	if o.MetricsAddr == "" {
		return fmt.Errorf("metrics address cannot be empty")
	}

	if o.HealthProbeAddr == "" {
		return fmt.Errorf("health probe address cannot be empty")
	}

	if o.MetricsAddr == o.HealthProbeAddr {
		return fmt.Errorf("metrics address and health probe address cannot be the same")
	}

	if o.EnableLeaderElection {
		if o.LeaderElectionID == "" {
			return fmt.Errorf("leader election ID cannot be empty when leader election is enabled")
		}
		if o.LeaderElectionNamespace == "" {
			return fmt.Errorf("leader election namespace cannot be empty when leader election is enabled")
		}
	}

	if o.StaticConfigPath == "" && o.ClusterNamespace == "" {
		return fmt.Errorf("cluster namespace cannot be empty unless a static config path is set")
	}

	if o.SyncPeriod <= 0 {
		return fmt.Errorf("sync period must be greater than zero")
	}

	for _, limit := range []int{
		o.ClusterRecoveryBalanceLimit, o.ClusterLoadBalanceLimit,
		o.DefaultResourceRecoveryBalanceLimit, o.DefaultResourceLoadBalanceLimit,
		o.DefaultInstanceRecoveryBalanceLimit, o.DefaultInstanceLoadBalanceLimit,
	} {
		if limit < 0 {
			return fmt.Errorf("throttle limits cannot be negative")
		}
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[o.LogLevel] {
		return fmt.Errorf("invalid log level '%s', must be one of: debug, info, warn, error", o.LogLevel)
	}

	validLogFormats := map[string]bool{
		"json":    true,
		"console": true,
	}
	if !validLogFormats[o.LogFormat] {
		return fmt.Errorf("invalid log format '%s', must be one of: json, console", o.LogFormat)
	}

	return nil
}

// Complete fills in any fields not set that are required to have valid data.
func (o *Options) Complete() error {
	defaults := NewDefaultOptions()

	if o.MetricsAddr == "" {
		o.MetricsAddr = defaults.MetricsAddr
	}

	if o.HealthProbeAddr == "" {
		o.HealthProbeAddr = defaults.HealthProbeAddr
	}

	if o.LeaderElectionID == "" {
		o.LeaderElectionID = defaults.LeaderElectionID
	}

	if o.LeaderElectionNamespace == "" {
		o.LeaderElectionNamespace = defaults.LeaderElectionNamespace
	}

	if o.ClusterNamespace == "" {
		o.ClusterNamespace = defaults.ClusterNamespace
	}

	if o.SyncPeriod == 0 {
		o.SyncPeriod = defaults.SyncPeriod
	}

	if o.LogLevel == "" {
		o.LogLevel = defaults.LogLevel
	}

	if o.LogFormat == "" {
		o.LogFormat = defaults.LogFormat
	}

	return nil
}
