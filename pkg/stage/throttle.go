package stage

import "github.com/clustersync/controller/pkg/clustermodel"

// throttleController is a plain value type owning three nested
// counters keyed by rebalance type and scope id, following the
// config-driven decision-object shape used elsewhere in this
// codebase for policy engines: queries are read-only, charges mutate
// counters, and there is no locking because a computation is
// single-threaded.
type throttleController struct {
	config clustermodel.ThrottleConfig

	cluster  map[clustermodel.RebalanceType]int
	resource map[clustermodel.RebalanceType]map[clustermodel.ResourceName]int
	instance map[clustermodel.RebalanceType]map[clustermodel.InstanceID]int
}

// newThrottleController constructs a throttle controller with fresh,
// zeroed counters for the given throttle configuration. Resources and
// live instances are accepted for parity with the spec's construction
// signature; counters are created lazily per scope id as charges
// arrive.
func newThrottleController(config clustermodel.ThrottleConfig, resources []clustermodel.ResourceName, instances []clustermodel.InstanceID) *throttleController {
	return &throttleController{
		config:   config,
		cluster:  make(map[clustermodel.RebalanceType]int),
		resource: make(map[clustermodel.RebalanceType]map[clustermodel.ResourceName]int),
		instance: make(map[clustermodel.RebalanceType]map[clustermodel.InstanceID]int),
	}
}

func (t *throttleController) isThrottleEnabled() bool {
	return t.config.Enabled
}

func (t *throttleController) clusterLimit(rt clustermodel.RebalanceType) (int, bool) {
	switch rt {
	case clustermodel.RebalanceRecoveryBalance:
		return t.config.Cluster.RecoveryBalance, t.config.Cluster.RecoveryBalance > 0
	case clustermodel.RebalanceLoadBalance:
		return t.config.Cluster.LoadBalance, t.config.Cluster.LoadBalance > 0
	default:
		return 0, false
	}
}

func (t *throttleController) resourceLimit(rt clustermodel.RebalanceType, resource clustermodel.ResourceName) (int, bool) {
	limits := t.config.ResourceLimits(resource)
	switch rt {
	case clustermodel.RebalanceRecoveryBalance:
		return limits.RecoveryBalance, limits.RecoveryBalance > 0
	case clustermodel.RebalanceLoadBalance:
		return limits.LoadBalance, limits.LoadBalance > 0
	default:
		return 0, false
	}
}

func (t *throttleController) instanceLimit(rt clustermodel.RebalanceType, instance clustermodel.InstanceID) (int, bool) {
	limits := t.config.InstanceLimits(instance)
	switch rt {
	case clustermodel.RebalanceRecoveryBalance:
		return limits.RecoveryBalance, limits.RecoveryBalance > 0
	case clustermodel.RebalanceLoadBalance:
		return limits.LoadBalance, limits.LoadBalance > 0
	default:
		return 0, false
	}
}

// throttleForCluster reports whether the cluster has reached its
// quota for rt. Absence of a configured limit means unbounded.
func (t *throttleController) throttleForCluster(rt clustermodel.RebalanceType) bool {
	limit, bounded := t.clusterLimit(rt)
	if !bounded {
		return false
	}
	return t.cluster[rt] >= limit
}

// throttleForResource reports whether resource has reached its quota
// for rt. Cluster-scope throttling short-circuits this check.
func (t *throttleController) throttleForResource(rt clustermodel.RebalanceType, resource clustermodel.ResourceName) bool {
	if t.throttleForCluster(rt) {
		return true
	}
	limit, bounded := t.resourceLimit(rt, resource)
	if !bounded {
		return false
	}
	return t.resource[rt][resource] >= limit
}

// throttleForInstance reports whether instance has reached its quota
// for rt. Cluster-scope throttling short-circuits this check.
func (t *throttleController) throttleForInstance(rt clustermodel.RebalanceType, instance clustermodel.InstanceID) bool {
	if t.throttleForCluster(rt) {
		return true
	}
	limit, bounded := t.instanceLimit(rt, instance)
	if !bounded {
		return false
	}
	return t.instance[rt][instance] >= limit
}

func (t *throttleController) chargeCluster(rt clustermodel.RebalanceType) {
	t.cluster[rt]++
}

func (t *throttleController) chargeResource(rt clustermodel.RebalanceType, resource clustermodel.ResourceName) {
	if t.resource[rt] == nil {
		t.resource[rt] = make(map[clustermodel.ResourceName]int)
	}
	t.resource[rt][resource]++
}

func (t *throttleController) chargeInstance(rt clustermodel.RebalanceType, instance clustermodel.InstanceID) {
	if t.instance[rt] == nil {
		t.instance[rt] = make(map[clustermodel.InstanceID]int)
	}
	t.instance[rt][instance]++
}
