package stage

import "github.com/clustersync/controller/pkg/clustermodel"

// stateCounts tallies replica counts per state from an
// instance->state mapping. The empty input yields an empty output;
// no returned entry has count zero.
func stateCounts(m clustermodel.PartitionStateMap) map[clustermodel.State]int {
	counts := make(map[clustermodel.State]int, len(m))
	for _, state := range m {
		counts[state]++
	}
	return counts
}
