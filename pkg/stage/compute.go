// Package stage implements the intermediate-state computation: the
// version compatibility gate, the rebalance classifier, the throttle
// controller, the pending-transition accountant, and the orchestrator
// that ties them together per resource. The core stays a pure
// function of clustermodel.StageInput — it never imports Kubernetes
// or network packages.
package stage

import (
	"sort"

	"go.uber.org/zap"

	"github.com/clustersync/controller/pkg/audit"
	"github.com/clustersync/controller/pkg/clustermodel"
	"github.com/clustersync/controller/pkg/metrics"
	"github.com/clustersync/controller/pkg/stageerrors"
)

// ComputeOptions carries the ambient collaborators the stage logs and
// records through: a logger and an optional audit trail. Both are
// safe to leave zero-valued; a nil AuditLogger simply means no audit
// events are recorded.
type ComputeOptions struct {
	Logger *zap.Logger
	Audit  *audit.AuditLogger
}

// ComputeIntermediateState orchestrates the full pipeline: it
// validates the inputs are present, runs the version compatibility
// gate against every live instance, then computes, per resource, the
// intermediate assignment the controller should drive toward.
func ComputeIntermediateState(input clustermodel.StageInput, opts ComputeOptions) (clustermodel.IntermediateStateOutput, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	if err := validateInput(input); err != nil {
		return clustermodel.IntermediateStateOutput{}, err
	}

	instances := liveInstances(input)
	if err := checkVersionCompatibility(logger, input.Controller.ControllerInfo(), input.ClusterCache, instances); err != nil {
		if opts.Audit != nil {
			opts.Audit.LogVersionGateFailed(err)
		}
		return clustermodel.IntermediateStateOutput{}, err
	}

	output := clustermodel.NewIntermediateStateOutput()
	throttleConfig := input.ClusterCache.ThrottleConfig()

	resourceNames := make([]clustermodel.ResourceName, 0, len(input.Resources))
	for name := range input.Resources {
		resourceNames = append(resourceNames, name)
	}
	sort.Slice(resourceNames, func(i, j int) bool { return resourceNames[i] < resourceNames[j] })

	// Classify every resource's partitions before any admission runs.
	// The throttle ledger spans the whole invocation, not one
	// resource, so its pre-charge must see every resource's pending
	// set before a single admission decision is made.
	classifications := make([]resourceClassification, 0, len(resourceNames))
	var pendingSet []partitionClass
	for _, name := range resourceNames {
		rc := classifyResource(input.Resources[name], input, throttleConfig)
		classifications = append(classifications, rc)
		if !rc.passthrough {
			pendingSet = append(pendingSet, rc.recovery...)
			pendingSet = append(pendingSet, rc.loadBalance...)
		}
	}

	throttleCtl := newThrottleController(throttleConfig, resourceNames, instances)
	chargePending(throttleCtl, pendingSet)

	for _, rc := range classifications {
		logger.Info("computing intermediate state for resource", zap.String("resource", string(rc.name)))

		output.Resources[rc.name] = admitResource(logger, opts.Audit, rc, throttleCtl, instances)

		logger.Info("finished computing intermediate state for resource", zap.String("resource", string(rc.name)))
	}

	return output, nil
}

func validateInput(input clustermodel.StageInput) error {
	var missing []string
	if input.CurrentState == nil {
		missing = append(missing, "currentState")
	}
	if input.BestPossible == nil {
		missing = append(missing, "bestPossible")
	}
	if input.Resources == nil {
		missing = append(missing, "resourceMap")
	}
	if input.ClusterCache == nil {
		missing = append(missing, "clusterDataCache")
	}
	if input.Controller == nil {
		missing = append(missing, "helixManager")
	}
	if len(missing) > 0 {
		return stageerrors.NewMissingInputError(missing...)
	}
	return nil
}

func liveInstances(input clustermodel.StageInput) []clustermodel.InstanceID {
	seen := make(map[clustermodel.InstanceID]bool)
	for _, partitions := range input.CurrentState {
		for _, ps := range partitions {
			for instance := range ps.Current {
				seen[instance] = true
			}
			for instance := range ps.Pending {
				seen[instance] = true
			}
		}
	}
	for _, rpsm := range input.BestPossible {
		for _, psm := range rpsm {
			for instance := range psm {
				seen[instance] = true
			}
		}
	}
	instances := make([]clustermodel.InstanceID, 0, len(seen))
	for instance := range seen {
		instances = append(instances, instance)
	}
	sort.Slice(instances, func(i, j int) bool { return instances[i] < instances[j] })
	return instances
}

// resourceClassification holds one resource's partitions classified
// into recovery/load-balance buckets, ready for admission against a
// throttle ledger shared across the whole invocation. passthrough
// resources (not FULL_AUTO, or throttling disabled) carry their final
// intermediate map already and skip admission entirely.
type resourceClassification struct {
	name         clustermodel.ResourceName
	intermediate clustermodel.ResourcePartitionStateMap
	recovery     []partitionClass
	loadBalance  []partitionClass
	passthrough  bool
}

// classifyResource implements §4.6's classification step for a single
// resource: passthrough when not FULL_AUTO or throttling is disabled,
// otherwise bucket each partition into none/recovery/load-balance.
// Admission is deferred to admitResource so every resource's pending
// set can be pre-charged against one shared throttle ledger first.
func classifyResource(
	resource clustermodel.Resource,
	input clustermodel.StageInput,
	throttleConfig clustermodel.ThrottleConfig,
) resourceClassification {
	best := input.BestPossible[resource.Name]

	if resource.RebalanceMode != clustermodel.FullAuto || !throttleConfig.Enabled {
		return resourceClassification{name: resource.Name, intermediate: copyResourceStateMap(best), passthrough: true}
	}

	current := input.CurrentState[resource.Name]
	partitionNames := make([]clustermodel.PartitionName, 0, len(best))
	seen := make(map[clustermodel.PartitionName]bool)
	for p := range best {
		if !seen[p] {
			partitionNames = append(partitionNames, p)
			seen[p] = true
		}
	}
	for p := range current {
		if !seen[p] {
			partitionNames = append(partitionNames, p)
			seen[p] = true
		}
	}
	sort.Slice(partitionNames, func(i, j int) bool { return partitionNames[i] < partitionNames[j] })

	intermediate := make(clustermodel.ResourcePartitionStateMap, len(partitionNames))
	var recovery, loadBalance []partitionClass

	for _, p := range partitionNames {
		bestMap := best[p]
		currentEntry := current[p]
		rt := classify(bestMap, currentEntry.Current, resource.StateModel)

		pc := partitionClass{
			resource:  resource.Name,
			partition: p,
			rtype:     rt,
			best:      bestMap,
			current:   currentEntry.Current,
			pending:   currentEntry.Pending,
		}

		metrics.RecordClassification(string(resource.Name), string(rt))

		switch rt {
		case clustermodel.RebalanceNone:
			intermediate[p] = copyPartitionStateMap(bestMap)
		case clustermodel.RebalanceRecoveryBalance:
			recovery = append(recovery, pc)
		case clustermodel.RebalanceLoadBalance:
			loadBalance = append(loadBalance, pc)
		}
	}

	return resourceClassification{name: resource.Name, intermediate: intermediate, recovery: recovery, loadBalance: loadBalance}
}

// admitResource implements §4.6's admission step for one resource
// against throttleCtl, a ledger shared across every resource in this
// invocation: admit recovery unconditionally, then admit load-balance
// only when the resource's own recovery set is empty.
func admitResource(
	logger *zap.Logger,
	auditLog *audit.AuditLogger,
	rc resourceClassification,
	throttleCtl *throttleController,
	instances []clustermodel.InstanceID,
) clustermodel.ResourcePartitionStateMap {
	if rc.passthrough {
		return rc.intermediate
	}

	for _, pc := range rc.recovery {
		rc.intermediate[pc.partition] = copyPartitionStateMap(pc.best)
		if auditLog != nil {
			auditLog.LogRecoveryAdmitted(rc.name, pc.partition)
		}
	}

	if len(rc.recovery) > 0 {
		for _, pc := range rc.loadBalance {
			rc.intermediate[pc.partition] = copyPartitionStateMap(pc.current)
		}
		return rc.intermediate
	}

	for _, pc := range rc.loadBalance {
		admitLoadBalance(logger, auditLog, throttleCtl, rc.name, pc, rc.intermediate, instances)
	}

	return rc.intermediate
}

// admitLoadBalance implements §4.6 step 5: a load-balance partition
// is admitted toward best-possible unless the resource or one of its
// changed instances has exhausted its LOAD_BALANCE quota.
func admitLoadBalance(
	logger *zap.Logger,
	auditLog *audit.AuditLogger,
	throttleCtl *throttleController,
	resource clustermodel.ResourceName,
	pc partitionClass,
	intermediate clustermodel.ResourcePartitionStateMap,
	instances []clustermodel.InstanceID,
) {
	all := unionInstances(pc.current, pc.best)

	throttled := throttleCtl.throttleForResource(clustermodel.RebalanceLoadBalance, resource)
	var changed []clustermodel.InstanceID
	if !throttled {
		for _, instance := range all {
			if pc.best[instance] == pc.current[instance] {
				continue
			}
			changed = append(changed, instance)
			if throttleCtl.throttleForInstance(clustermodel.RebalanceLoadBalance, instance) {
				throttled = true
				break
			}
		}
	}

	if throttled {
		logger.Info("load balance throttled",
			zap.String("resource", string(resource)),
			zap.String("partition", string(pc.partition)))
		metrics.RecordThrottled(string(resource), string(clustermodel.RebalanceLoadBalance))
		if auditLog != nil {
			auditLog.LogLoadBalanceThrottled(resource, pc.partition)
		}
		intermediate[pc.partition] = copyPartitionStateMap(pc.current)
		return
	}

	intermediate[pc.partition] = copyPartitionStateMap(pc.best)
	for _, instance := range changed {
		throttleCtl.chargeInstance(clustermodel.RebalanceLoadBalance, instance)
	}
	throttleCtl.chargeResource(clustermodel.RebalanceLoadBalance, resource)
	throttleCtl.chargeCluster(clustermodel.RebalanceLoadBalance)
	if auditLog != nil {
		auditLog.LogLoadBalanceAdmitted(resource, pc.partition)
	}
}

func unionInstances(a, b clustermodel.PartitionStateMap) []clustermodel.InstanceID {
	seen := make(map[clustermodel.InstanceID]bool, len(a)+len(b))
	for instance := range a {
		seen[instance] = true
	}
	for instance := range b {
		seen[instance] = true
	}
	all := make([]clustermodel.InstanceID, 0, len(seen))
	for instance := range seen {
		all = append(all, instance)
	}
	sort.Slice(all, func(i, j int) bool { return all[i] < all[j] })
	return all
}

func copyPartitionStateMap(m clustermodel.PartitionStateMap) clustermodel.PartitionStateMap {
	out := make(clustermodel.PartitionStateMap, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func copyResourceStateMap(m clustermodel.ResourcePartitionStateMap) clustermodel.ResourcePartitionStateMap {
	out := make(clustermodel.ResourcePartitionStateMap, len(m))
	for p, psm := range m {
		out[p] = copyPartitionStateMap(psm)
	}
	return out
}
