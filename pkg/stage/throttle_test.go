package stage

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/clustersync/controller/pkg/clustermodel"
)

func TestThrottleController_UnboundedByDefault(t *testing.T) {
	cfg := clustermodel.ThrottleConfig{Enabled: true}
	tc := newThrottleController(cfg, nil, nil)

	assert.False(t, tc.throttleForResource(clustermodel.RebalanceLoadBalance, "db"))
	assert.False(t, tc.throttleForInstance(clustermodel.RebalanceLoadBalance, "i1"))
}

func TestThrottleController_InstanceQuotaExhausted(t *testing.T) {
	cfg := clustermodel.ThrottleConfig{
		Enabled:         true,
		DefaultInstance: clustermodel.ThrottleLimits{LoadBalance: 1},
	}
	tc := newThrottleController(cfg, nil, nil)

	assert.False(t, tc.throttleForInstance(clustermodel.RebalanceLoadBalance, "i1"))
	tc.chargeInstance(clustermodel.RebalanceLoadBalance, "i1")
	assert.True(t, tc.throttleForInstance(clustermodel.RebalanceLoadBalance, "i1"))

	// A different rebalance type has its own, separate counter.
	assert.False(t, tc.throttleForInstance(clustermodel.RebalanceRecoveryBalance, "i1"))
}

func TestThrottleController_ClusterShortCircuitsResourceAndInstance(t *testing.T) {
	cfg := clustermodel.ThrottleConfig{
		Enabled: true,
		Cluster: clustermodel.ThrottleLimits{LoadBalance: 1},
	}
	tc := newThrottleController(cfg, nil, nil)
	tc.chargeCluster(clustermodel.RebalanceLoadBalance)

	assert.True(t, tc.throttleForResource(clustermodel.RebalanceLoadBalance, "db"))
	assert.True(t, tc.throttleForInstance(clustermodel.RebalanceLoadBalance, "i1"))
}

func TestThrottleController_ResourceScoped(t *testing.T) {
	cfg := clustermodel.ThrottleConfig{
		Enabled:  true,
		Resource: map[clustermodel.ResourceName]clustermodel.ThrottleLimits{"db": {LoadBalance: 1}},
	}
	tc := newThrottleController(cfg, nil, nil)

	assert.False(t, tc.throttleForResource(clustermodel.RebalanceLoadBalance, "db"))
	tc.chargeResource(clustermodel.RebalanceLoadBalance, "db")
	assert.True(t, tc.throttleForResource(clustermodel.RebalanceLoadBalance, "db"))

	// A different resource is unaffected.
	assert.False(t, tc.throttleForResource(clustermodel.RebalanceLoadBalance, "cache"))
}
