package main

import (
	"os"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/clustersync/controller/pkg/controller"
)

func TestConfigureLogLevel(t *testing.T) {
	tests := []struct {
		name     string
		logLevel string
	}{
		{"debug level", "debug"},
		{"info level", "info"},
		{"warn level", "warn"},
		{"error level", "error"},
		{"invalid level defaults to info", "invalid"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := zap.NewProductionConfig()
			logger, err := config.Build()
			require.NoError(t, err)

			logger = configureLogLevel(logger, tt.logLevel)
			require.NotNil(t, logger)

			logger.Debug("debug message")
			logger.Info("info message")
			logger.Warn("warn message")
			logger.Error("error message")
		})
	}
}

func TestGetKubeconfigPath(t *testing.T) {
	tests := []struct {
		name       string
		kubeconfig string
		expected   string
	}{
		{"empty kubeconfig returns in-cluster", "", "in-cluster"},
		{"file path returns cleaned path", "/path/to/kubeconfig", "/path/to/kubeconfig"},
		{"relative path", "./kubeconfig", "kubeconfig"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := getKubeconfigPath(tt.kubeconfig)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestBuildKubeConfig(t *testing.T) {
	t.Run("with kubeconfig file", func(t *testing.T) {
		tmpFile, err := os.CreateTemp("", "kubeconfig-*.yaml")
		require.NoError(t, err)
		defer os.Remove(tmpFile.Name())

		kubeconfigContent := `
apiVersion: v1
kind: Config
clusters:
- cluster:
    server: https://localhost:6443
  name: test-cluster
contexts:
- context:
    cluster: test-cluster
    user: test-user
  name: test-context
current-context: test-context
users:
- name: test-user
  user:
    token: test-token
`
		_, err = tmpFile.WriteString(kubeconfigContent)
		require.NoError(t, err)
		tmpFile.Close()

		config, err := buildKubeConfig(tmpFile.Name())
		require.NoError(t, err)
		assert.NotNil(t, config)
		assert.Equal(t, "https://localhost:6443", config.Host)
	})

	t.Run("with invalid kubeconfig file", func(t *testing.T) {
		config, err := buildKubeConfig("/nonexistent/kubeconfig")
		assert.Error(t, err)
		assert.Nil(t, config)
		assert.Contains(t, err.Error(), "failed to build config from kubeconfig")
	})

	t.Run("in-cluster config fails outside cluster", func(t *testing.T) {
		config, err := buildKubeConfig("")
		if err != nil {
			assert.Nil(t, config)
			assert.Contains(t, err.Error(), "failed to get in-cluster config")
		} else {
			assert.NotNil(t, config)
		}
	})
}

func TestNewRootCommand(t *testing.T) {
	cmd := newRootCommand()

	assert.NotNil(t, cmd)
	assert.Equal(t, "clustersync-controller", cmd.Use)
	assert.Contains(t, cmd.Short, "Cluster sync controller")
	assert.True(t, cmd.SilenceUsage)

	flags := cmd.Flags()
	assert.NotNil(t, flags.Lookup("kubeconfig"))
	assert.NotNil(t, flags.Lookup("static-config"))
	assert.NotNil(t, flags.Lookup("cluster-namespace"))
	assert.NotNil(t, flags.Lookup("metrics-addr"))
	assert.NotNil(t, flags.Lookup("health-addr"))
	assert.NotNil(t, flags.Lookup("leader-election"))
	assert.NotNil(t, flags.Lookup("leader-election-id"))
	assert.NotNil(t, flags.Lookup("leader-election-namespace"))
	assert.NotNil(t, flags.Lookup("resync-interval"))
	assert.NotNil(t, flags.Lookup("throttle-enabled"))
	assert.NotNil(t, flags.Lookup("log-level"))
	assert.NotNil(t, flags.Lookup("log-format"))
	assert.NotNil(t, flags.Lookup("development"))
}

func TestAddFlags(t *testing.T) {
	cmd := &cobra.Command{
		Use:   "test",
		Short: "test command",
	}
	opts := controller.NewDefaultOptions()

	addFlags(cmd, opts)

	flags := cmd.Flags()

	metricsFlag := flags.Lookup("metrics-addr")
	assert.NotNil(t, metricsFlag)
	assert.Equal(t, ":8080", metricsFlag.DefValue)

	healthFlag := flags.Lookup("health-addr")
	assert.NotNil(t, healthFlag)
	assert.Equal(t, ":8081", healthFlag.DefValue)

	leaderElectionFlag := flags.Lookup("leader-election")
	assert.NotNil(t, leaderElectionFlag)
	assert.Equal(t, "true", leaderElectionFlag.DefValue)

	leaderElectionIDFlag := flags.Lookup("leader-election-id")
	assert.NotNil(t, leaderElectionIDFlag)
	assert.Equal(t, "clustersync-controller-leader", leaderElectionIDFlag.DefValue)

	leaderElectionNsFlag := flags.Lookup("leader-election-namespace")
	assert.NotNil(t, leaderElectionNsFlag)

	clusterNsFlag := flags.Lookup("cluster-namespace")
	assert.NotNil(t, clusterNsFlag)
	assert.Equal(t, "kube-system", clusterNsFlag.DefValue)

	resyncFlag := flags.Lookup("resync-interval")
	assert.NotNil(t, resyncFlag)
	assert.Equal(t, "30s", resyncFlag.DefValue)

	throttleFlag := flags.Lookup("throttle-enabled")
	assert.NotNil(t, throttleFlag)
	assert.Equal(t, "true", throttleFlag.DefValue)

	logLevelFlag := flags.Lookup("log-level")
	assert.NotNil(t, logLevelFlag)
	assert.Equal(t, "info", logLevelFlag.DefValue)

	logFormatFlag := flags.Lookup("log-format")
	assert.NotNil(t, logFormatFlag)
	assert.Equal(t, "json", logFormatFlag.DefValue)

	developmentFlag := flags.Lookup("development")
	assert.NotNil(t, developmentFlag)
	assert.Equal(t, "false", developmentFlag.DefValue)
}

func TestVersionInfo(t *testing.T) {
	originalVersion := Version
	originalCommit := Commit
	originalBuildDate := BuildDate

	Version = "v1.0.0"
	Commit = "abc123"
	BuildDate = "2025-10-17"

	assert.Equal(t, "v1.0.0", Version)
	assert.Equal(t, "abc123", Commit)
	assert.Equal(t, "2025-10-17", BuildDate)

	Version = originalVersion
	Commit = originalCommit
	BuildDate = originalBuildDate
}

func TestSchemeInitialization(t *testing.T) {
	assert.NotNil(t, scheme)

	allKinds := scheme.AllKnownTypes()
	assert.NotEmpty(t, allKinds)

	hasK8sTypes := false
	for gvk := range allKinds {
		if gvk.Group == "" && gvk.Version == "v1" {
			hasK8sTypes = true
			break
		}
	}
	assert.True(t, hasK8sTypes, "Standard Kubernetes types should be registered")
}

func TestRun_OptionValidation(t *testing.T) {
	t.Run("invalid options fail validation without completion", func(t *testing.T) {
		opts := &controller.Options{
			MetricsAddr:             "",
			HealthProbeAddr:         ":8081",
			LeaderElectionID:        "test",
			LeaderElectionNamespace: "default",
			ClusterNamespace:        "default",
			SyncPeriod:              time.Minute,
			LogLevel:                "info",
			LogFormat:               "json",
		}

		err := opts.Validate()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "metrics address")
	})

	t.Run("valid options pass validation", func(t *testing.T) {
		opts := controller.NewDefaultOptions()

		err := opts.Complete()
		require.NoError(t, err)

		err = opts.Validate()
		assert.NoError(t, err)
	})

	t.Run("options completion fills defaults", func(t *testing.T) {
		opts := &controller.Options{}
		err := opts.Complete()
		require.NoError(t, err)

		assert.Equal(t, ":8080", opts.MetricsAddr)
		assert.Equal(t, ":8081", opts.HealthProbeAddr)
		assert.Equal(t, "clustersync-controller-leader", opts.LeaderElectionID)
		assert.Equal(t, "kube-system", opts.ClusterNamespace)
	})
}

func TestCLIFlags_DefaultValues(t *testing.T) {
	cmd := newRootCommand()

	err := cmd.ParseFlags([]string{})
	require.NoError(t, err)

	flags := cmd.Flags()

	metricsAddr, _ := flags.GetString("metrics-addr")
	assert.Equal(t, ":8080", metricsAddr)

	healthAddr, _ := flags.GetString("health-addr")
	assert.Equal(t, ":8081", healthAddr)

	leaderElection, _ := flags.GetBool("leader-election")
	assert.True(t, leaderElection)

	logLevel, _ := flags.GetString("log-level")
	assert.Equal(t, "info", logLevel)

	logFormat, _ := flags.GetString("log-format")
	assert.Equal(t, "json", logFormat)

	development, _ := flags.GetBool("development")
	assert.False(t, development)
}

func TestCLIFlags_CustomValues(t *testing.T) {
	cmd := newRootCommand()

	args := []string{
		"--metrics-addr=:9090",
		"--health-addr=:9091",
		"--leader-election=false",
		"--log-level=debug",
		"--log-format=console",
		"--development=true",
		"--resync-interval=5m",
		"--static-config=/tmp/cluster.json",
		"--cluster-namespace=my-namespace",
	}

	err := cmd.ParseFlags(args)
	require.NoError(t, err)

	flags := cmd.Flags()

	metricsAddr, _ := flags.GetString("metrics-addr")
	assert.Equal(t, ":9090", metricsAddr)

	healthAddr, _ := flags.GetString("health-addr")
	assert.Equal(t, ":9091", healthAddr)

	leaderElection, _ := flags.GetBool("leader-election")
	assert.False(t, leaderElection)

	logLevel, _ := flags.GetString("log-level")
	assert.Equal(t, "debug", logLevel)

	logFormat, _ := flags.GetString("log-format")
	assert.Equal(t, "console", logFormat)

	development, _ := flags.GetBool("development")
	assert.True(t, development)

	resyncInterval, _ := flags.GetDuration("resync-interval")
	assert.Equal(t, "5m0s", resyncInterval.String())

	staticConfig, _ := flags.GetString("static-config")
	assert.Equal(t, "/tmp/cluster.json", staticConfig)

	clusterNs, _ := flags.GetString("cluster-namespace")
	assert.Equal(t, "my-namespace", clusterNs)
}
