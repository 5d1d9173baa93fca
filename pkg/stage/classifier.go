package stage

import "github.com/clustersync/controller/pkg/clustermodel"

// classify compares a partition's best-possible map against its
// current map under the given state model and returns the rebalance
// type the partition needs: NONE, RECOVERY_BALANCE, or LOAD_BALANCE.
//
// The priority states are evaluated in order, highest first; the
// first state with an unexplained deficit that is not a reserved
// state wins and forces RECOVERY_BALANCE, exactly as a higher
// priority state pre-empts evaluation of a lower one.
func classify(best, current clustermodel.PartitionStateMap, model clustermodel.StateModelDefinition) clustermodel.RebalanceType {
	if mapsEqual(best, current) {
		return clustermodel.RebalanceNone
	}

	bestCounts := stateCounts(best)
	currentCounts := stateCounts(current)

	for _, s := range model.PriorityStates {
		b, bOK := bestCounts[s]
		c, cOK := currentCounts[s]
		if !bOK && !cOK {
			continue
		}
		deficit := (bOK != cOK) || c < b
		if deficit && !model.IsReserved(s) {
			return clustermodel.RebalanceRecoveryBalance
		}
	}

	return clustermodel.RebalanceLoadBalance
}

func mapsEqual(a, b clustermodel.PartitionStateMap) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if bv, ok := b[k]; !ok || bv != v {
			return false
		}
	}
	return true
}
