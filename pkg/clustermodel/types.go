// Package clustermodel defines the typed data model shared by the
// version gate, classifier, throttle controller and intermediate
// computer: instance/resource/partition identifiers, state-model
// definitions, ideal and current state maps, throttle configuration,
// and the collaborator interfaces the computation depends on.
package clustermodel

import "fmt"

// InstanceID identifies a participant process in the cluster.
type InstanceID string

// ResourceName identifies a resource (a collection of partitions).
type ResourceName string

// PartitionName identifies a single partition of a resource.
type PartitionName string

// State is a state-model state, e.g. "MASTER", "SLAVE", "OFFLINE".
type State string

const (
	// StateDropped marks a partition as no longer assigned anywhere.
	StateDropped State = "DROPPED"
	// StateError marks a partition replica in an error state.
	StateError State = "ERROR"
	// StateOffline is the typical initial/terminal state of a state model.
	StateOffline State = "OFFLINE"
)

// RebalanceType classifies why a partition needs to move.
type RebalanceType string

const (
	RebalanceNone             RebalanceType = "NONE"
	RebalanceRecoveryBalance  RebalanceType = "RECOVERY_BALANCE"
	RebalanceLoadBalance      RebalanceType = "LOAD_BALANCE"
)

// RebalanceMode selects whether the controller computes and drives
// transitions automatically. Only FullAuto subjects a resource to
// throttling; other modes pass the best-possible assignment through
// unchanged.
type RebalanceMode string

const (
	FullAuto    RebalanceMode = "FULL_AUTO"
	SemiAuto    RebalanceMode = "SEMI_AUTO"
	UserDefined RebalanceMode = "USER_DEFINED"
)

// PartitionKey names one partition replica on one instance.
type PartitionKey struct {
	Resource  ResourceName
	Partition PartitionName
	Instance  InstanceID
}

func (k PartitionKey) String() string {
	return fmt.Sprintf("%s/%s/%s", k.Resource, k.Partition, k.Instance)
}

// PartitionStateMap maps each instance currently (or ideally) holding
// a replica of one partition to its state.
type PartitionStateMap map[InstanceID]State

// ResourcePartitionStateMap maps each partition of a resource to its
// per-instance state map.
type ResourcePartitionStateMap map[PartitionName]PartitionStateMap

// StateModelDefinition describes the states of a resource's state
// model and which ones are structural/reserved rather than counted
// load states.
type StateModelDefinition struct {
	Name string
	// PriorityStates lists states in priority order, highest first.
	// This is a total order over the states the classifier compares.
	PriorityStates []State
	InitialState   State
	ReservedStates map[State]bool
}

// IsReserved reports whether a state is excluded from deficit
// detection: DROPPED, ERROR, the model's initial state, and any state
// listed in ReservedStates.
func (d StateModelDefinition) IsReserved(s State) bool {
	if s == StateDropped || s == StateError || s == d.InitialState {
		return true
	}
	return d.ReservedStates[s]
}

// IdealState is the best-possible per-partition assignment computed
// by the rebalance strategy for one resource, together with the state
// model it was computed against.
type IdealState struct {
	Resource   ResourceName
	StateModel StateModelDefinition
	Partitions ResourcePartitionStateMap
}

// Resource carries the per-resource configuration needed by the
// throttle controller and intermediate computer: its rebalance mode
// and the state model used to interpret its partition states.
type Resource struct {
	Name          ResourceName
	RebalanceMode RebalanceMode
	StateModel    StateModelDefinition
}

// PartitionCurrentState is the observed state of one partition: its
// settled current map plus any pending (in-flight, unacknowledged)
// transitions.
type PartitionCurrentState struct {
	Current PartitionStateMap
	Pending PartitionStateMap
}

// ThrottleLimits bounds the number of in-flight transitions allowed
// for one rebalance type at one scope (cluster, resource, or
// instance). A value of zero means unbounded, not "admit none" —
// there is no way to express a real zero-cap with this value type.
type ThrottleLimits struct {
	RecoveryBalance int
	LoadBalance     int
}

// ThrottleConfig is the full set of throttle limits the Throttle
// Controller enforces, plus a master switch.
type ThrottleConfig struct {
	Enabled  bool
	Cluster  ThrottleLimits
	Resource map[ResourceName]ThrottleLimits
	Instance map[InstanceID]ThrottleLimits

	// DefaultResource/DefaultInstance apply when a resource or
	// instance has no entry in Resource/Instance above.
	DefaultResource ThrottleLimits
	DefaultInstance ThrottleLimits
}

// ResourceLimits returns the effective limits for a resource,
// falling back to DefaultResource.
func (c ThrottleConfig) ResourceLimits(r ResourceName) ThrottleLimits {
	if l, ok := c.Resource[r]; ok {
		return l
	}
	return c.DefaultResource
}

// InstanceLimits returns the effective limits for an instance,
// falling back to DefaultInstance.
func (c ThrottleConfig) InstanceLimits(i InstanceID) ThrottleLimits {
	if l, ok := c.Instance[i]; ok {
		return l
	}
	return c.DefaultInstance
}

// ControllerInfo describes the controller process driving the
// computation: its own declared version, used by the version
// compatibility gate against each participant's version.
type ControllerInfo struct {
	InstanceID InstanceID
	Version    string
}

// ClusterDataCache is the read-only view of cluster metadata the
// computation needs beyond the StageInput fields: per-instance
// declared versions and the throttle configuration in effect.
type ClusterDataCache interface {
	ParticipantVersion(instance InstanceID) (string, bool)
	ThrottleConfig() ThrottleConfig
}

// ManagerHandle exposes the controller-process facts the computation
// consults: the controller's own info.
type ManagerHandle interface {
	ControllerInfo() ControllerInfo
}

// StageInput is the single typed record passed into the computation.
// There is deliberately no generic attribute bag here: every field
// the computation reads is named and typed.
type StageInput struct {
	CurrentState map[ResourceName]map[PartitionName]PartitionCurrentState
	BestPossible map[ResourceName]ResourcePartitionStateMap
	Resources    map[ResourceName]Resource
	ClusterCache ClusterDataCache
	Controller   ManagerHandle
}

// IntermediateStateOutput is the per-resource intermediate assignment
// the computation produces: the states the controller should drive
// toward next. Each partition's map equals either its best-possible
// map or, when the partition is held back this cycle, its current map.
type IntermediateStateOutput struct {
	Resources map[ResourceName]ResourcePartitionStateMap
}

// NewIntermediateStateOutput returns an output with its map
// populated and ready to receive entries.
func NewIntermediateStateOutput() IntermediateStateOutput {
	return IntermediateStateOutput{Resources: make(map[ResourceName]ResourcePartitionStateMap)}
}
