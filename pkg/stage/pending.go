package stage

import "github.com/clustersync/controller/pkg/clustermodel"

// partitionClass carries a partition's classification alongside its
// identity so the pending accountant and the admission phases of the
// Intermediate Computer can share one pre-computed pass.
type partitionClass struct {
	resource  clustermodel.ResourceName
	partition clustermodel.PartitionName
	rtype     clustermodel.RebalanceType
	best      clustermodel.PartitionStateMap
	current   clustermodel.PartitionStateMap
	pending   clustermodel.PartitionStateMap
}

// chargePending pre-charges the throttle controller for transitions
// already in flight, so that fresh admission decisions in this
// invocation respect the budget those transitions are already
// consuming. It must run exactly once per invocation, before any new
// admission; calling it twice double-counts by design.
func chargePending(t *throttleController, classes []partitionClass) {
	for _, c := range classes {
		if len(c.pending) == 0 {
			continue
		}
		t.chargeCluster(c.rtype)
		t.chargeResource(c.rtype, c.resource)
		for instance, pendingState := range c.pending {
			currentState, hasCurrent := c.current[instance]
			if !hasCurrent || currentState != pendingState {
				t.chargeInstance(c.rtype, instance)
			}
		}
	}
}
