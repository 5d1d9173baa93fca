// Package clustersource provides the two concrete sources of cluster
// data the controller can drive its computation from: an in-memory
// one loaded from a JSON file for tests and standalone runs, and a
// Kubernetes-backed one for real clusters.
package clustersource

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/clustersync/controller/pkg/clustermodel"
)

// StaticResource is the JSON-friendly shape of one resource's
// configuration in a static cluster config file.
type StaticResource struct {
	RebalanceMode  clustermodel.RebalanceMode            `json:"rebalanceMode"`
	StateModel     StaticStateModel                      `json:"stateModel"`
	BestPossible   clustermodel.ResourcePartitionStateMap `json:"bestPossible"`
	CurrentState   map[clustermodel.PartitionName]StaticPartitionState `json:"currentState"`
}

// StaticStateModel is the JSON-friendly shape of a state model definition.
type StaticStateModel struct {
	Name           string               `json:"name"`
	PriorityStates []clustermodel.State `json:"priorityStates"`
	InitialState   clustermodel.State   `json:"initialState"`
	ReservedStates []clustermodel.State `json:"reservedStates"`
}

func (m StaticStateModel) toDefinition() clustermodel.StateModelDefinition {
	reserved := make(map[clustermodel.State]bool, len(m.ReservedStates))
	for _, s := range m.ReservedStates {
		reserved[s] = true
	}
	return clustermodel.StateModelDefinition{
		Name:           m.Name,
		PriorityStates: m.PriorityStates,
		InitialState:   m.InitialState,
		ReservedStates: reserved,
	}
}

// StaticPartitionState is the JSON-friendly shape of a partition's
// current and pending state maps.
type StaticPartitionState struct {
	Current clustermodel.PartitionStateMap `json:"current"`
	Pending clustermodel.PartitionStateMap `json:"pending,omitempty"`
}

// StaticConfig is the full JSON document loaded for --static-config:
// every resource's ideal state and current state, the declared
// participant versions, the throttle configuration, and the
// controller's own identity.
type StaticConfig struct {
	Controller           clustermodel.ControllerInfo            `json:"controller"`
	ParticipantVersions  map[clustermodel.InstanceID]string      `json:"participantVersions"`
	Throttle             clustermodel.ThrottleConfig             `json:"throttle"`
	Resources            map[clustermodel.ResourceName]StaticResource `json:"resources"`
}

// StaticSource is an in-memory clustermodel.ClusterDataCache and
// clustermodel.ManagerHandle backed by a config loaded once at
// startup. It never changes after construction, matching the static
// nature of the file it was loaded from.
type StaticSource struct {
	config StaticConfig
}

// LoadStaticConfig reads and parses a static cluster config file.
func LoadStaticConfig(path string) (*StaticSource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading static config: %w", err)
	}

	var cfg StaticConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing static config: %w", err)
	}

	return &StaticSource{config: cfg}, nil
}

// NewStaticSource builds a StaticSource directly from an in-memory
// config, bypassing the file. Used by tests.
func NewStaticSource(cfg StaticConfig) *StaticSource {
	return &StaticSource{config: cfg}
}

// ParticipantVersion implements clustermodel.ClusterDataCache.
func (s *StaticSource) ParticipantVersion(instance clustermodel.InstanceID) (string, bool) {
	v, ok := s.config.ParticipantVersions[instance]
	return v, ok
}

// ThrottleConfig implements clustermodel.ClusterDataCache.
func (s *StaticSource) ThrottleConfig() clustermodel.ThrottleConfig {
	return s.config.Throttle
}

// ControllerInfo implements clustermodel.ManagerHandle.
func (s *StaticSource) ControllerInfo() clustermodel.ControllerInfo {
	return s.config.Controller
}

// BuildStageInput assembles a clustermodel.StageInput from the loaded
// static config, ready to pass to stage.ComputeIntermediateState.
func (s *StaticSource) BuildStageInput() clustermodel.StageInput {
	resources := make(map[clustermodel.ResourceName]clustermodel.Resource, len(s.config.Resources))
	bestPossible := make(map[clustermodel.ResourceName]clustermodel.ResourcePartitionStateMap, len(s.config.Resources))
	currentState := make(map[clustermodel.ResourceName]map[clustermodel.PartitionName]clustermodel.PartitionCurrentState, len(s.config.Resources))

	for name, r := range s.config.Resources {
		resources[name] = clustermodel.Resource{
			Name:          name,
			RebalanceMode: r.RebalanceMode,
			StateModel:    r.StateModel.toDefinition(),
		}
		bestPossible[name] = r.BestPossible

		partitions := make(map[clustermodel.PartitionName]clustermodel.PartitionCurrentState, len(r.CurrentState))
		for p, cs := range r.CurrentState {
			partitions[p] = clustermodel.PartitionCurrentState{Current: cs.Current, Pending: cs.Pending}
		}
		currentState[name] = partitions
	}

	return clustermodel.StageInput{
		CurrentState: currentState,
		BestPossible: bestPossible,
		Resources:    resources,
		ClusterCache: s,
		Controller:   s,
	}
}
