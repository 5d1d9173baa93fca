package clustersource

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	coordinationv1 "k8s.io/api/coordination/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"

	"github.com/clustersync/controller/pkg/clustermodel"
)

// Lease annotation and ConfigMap naming conventions this source reads.
// A participant renews its Lease (the same liveness primitive kubelet
// itself uses) and stamps its declared version on it; the controller
// never writes these, only reads them.
const (
	participantVersionAnnotation = "clustersync.io/participant-version"
	resourcesConfigMapName       = "clustersync-resources"
	throttleConfigMapName        = "clustersync-throttle-config"
	participantLeaseLabel        = "clustersync.io/participant"
)

// resourceDocument is the JSON shape stored per-key in the
// clustersync-resources ConfigMap: one resource's ideal state, state
// model and observed current state.
type resourceDocument struct {
	RebalanceMode clustermodel.RebalanceMode                          `json:"rebalanceMode"`
	StateModel    StaticStateModel                                    `json:"stateModel"`
	BestPossible  clustermodel.ResourcePartitionStateMap              `json:"bestPossible"`
	CurrentState  map[clustermodel.PartitionName]StaticPartitionState `json:"currentState"`
}

// K8sSource is a Kubernetes-backed clustermodel.ClusterDataCache and
// clustermodel.ManagerHandle. Ideal states and state-model definitions
// live in ConfigMap data (JSON-encoded, one key per resource); live
// instance membership and declared participant versions are read from
// coordination.k8s.io/v1 Leases renewed by each participant.
//
// Reads are served from an in-memory snapshot refreshed by Refresh;
// this mirrors the teacher's label-selector Lease/Node listing in
// pkg/rebalancer/analyzer.go and keeps every StageInput build a single
// fast, lock-protected read instead of a live API round trip per field.
type K8sSource struct {
	client     kubernetes.Interface
	namespace  string
	instanceID clustermodel.InstanceID
	version    string

	mu                  sync.RWMutex
	participantVersions map[clustermodel.InstanceID]string
	throttle            clustermodel.ThrottleConfig
	resources           map[clustermodel.ResourceName]resourceDocument
}

// NewK8sSource constructs a K8sSource. controllerVersion is typically
// sourced from the discovery client's ServerVersion() at startup,
// grounded on version_validation.go's GetClusterVersion.
func NewK8sSource(client kubernetes.Interface, namespace string, instanceID clustermodel.InstanceID, controllerVersion string) *K8sSource {
	return &K8sSource{
		client:              client,
		namespace:           namespace,
		instanceID:          instanceID,
		version:             controllerVersion,
		participantVersions: make(map[clustermodel.InstanceID]string),
		resources:           make(map[clustermodel.ResourceName]resourceDocument),
	}
}

// Refresh re-reads the resource and throttle ConfigMaps and the
// participant Leases, replacing the in-memory snapshot atomically.
func (k *K8sSource) Refresh(ctx context.Context) error {
	leases, err := k.client.CoordinationV1().Leases(k.namespace).List(ctx, metav1.ListOptions{
		LabelSelector: participantLeaseLabel,
	})
	if err != nil {
		return fmt.Errorf("listing participant leases: %w", err)
	}
	versions := make(map[clustermodel.InstanceID]string, len(leases.Items))
	for _, lease := range leases.Items {
		versions[clustermodel.InstanceID(lease.Name)] = leaseParticipantVersion(lease)
	}

	resourcesCM, err := k.client.CoreV1().ConfigMaps(k.namespace).Get(ctx, resourcesConfigMapName, metav1.GetOptions{})
	if err != nil {
		return fmt.Errorf("reading resources config map: %w", err)
	}
	resources := make(map[clustermodel.ResourceName]resourceDocument, len(resourcesCM.Data))
	for name, raw := range resourcesCM.Data {
		var doc resourceDocument
		if err := json.Unmarshal([]byte(raw), &doc); err != nil {
			return fmt.Errorf("parsing resource %q: %w", name, err)
		}
		resources[clustermodel.ResourceName(name)] = doc
	}

	throttle, err := k.readThrottleConfig(ctx)
	if err != nil {
		return err
	}

	k.mu.Lock()
	k.participantVersions = versions
	k.resources = resources
	k.throttle = throttle
	k.mu.Unlock()

	return nil
}

func (k *K8sSource) readThrottleConfig(ctx context.Context) (clustermodel.ThrottleConfig, error) {
	cm, err := k.client.CoreV1().ConfigMaps(k.namespace).Get(ctx, throttleConfigMapName, metav1.GetOptions{})
	if err != nil {
		if apierrors.IsNotFound(err) {
			return clustermodel.ThrottleConfig{Enabled: false}, nil
		}
		return clustermodel.ThrottleConfig{}, fmt.Errorf("reading throttle config map: %w", err)
	}

	raw, ok := cm.Data["config"]
	if !ok {
		return clustermodel.ThrottleConfig{Enabled: false}, nil
	}

	var cfg clustermodel.ThrottleConfig
	if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
		return clustermodel.ThrottleConfig{}, fmt.Errorf("parsing throttle config: %w", err)
	}
	return cfg, nil
}

func leaseParticipantVersion(lease coordinationv1.Lease) string {
	if lease.Annotations == nil {
		return ""
	}
	return lease.Annotations[participantVersionAnnotation]
}

// ParticipantVersion implements clustermodel.ClusterDataCache.
func (k *K8sSource) ParticipantVersion(instance clustermodel.InstanceID) (string, bool) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	v, ok := k.participantVersions[instance]
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// ThrottleConfig implements clustermodel.ClusterDataCache.
func (k *K8sSource) ThrottleConfig() clustermodel.ThrottleConfig {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.throttle
}

// ControllerInfo implements clustermodel.ManagerHandle.
func (k *K8sSource) ControllerInfo() clustermodel.ControllerInfo {
	return clustermodel.ControllerInfo{InstanceID: k.instanceID, Version: k.version}
}

// BuildStageInput assembles a clustermodel.StageInput from the most
// recent snapshot taken by Refresh.
func (k *K8sSource) BuildStageInput() clustermodel.StageInput {
	k.mu.RLock()
	defer k.mu.RUnlock()

	resources := make(map[clustermodel.ResourceName]clustermodel.Resource, len(k.resources))
	bestPossible := make(map[clustermodel.ResourceName]clustermodel.ResourcePartitionStateMap, len(k.resources))
	currentState := make(map[clustermodel.ResourceName]map[clustermodel.PartitionName]clustermodel.PartitionCurrentState, len(k.resources))

	for name, doc := range k.resources {
		resources[name] = clustermodel.Resource{
			Name:          name,
			RebalanceMode: doc.RebalanceMode,
			StateModel:    doc.StateModel.toDefinition(),
		}
		bestPossible[name] = doc.BestPossible

		partitions := make(map[clustermodel.PartitionName]clustermodel.PartitionCurrentState, len(doc.CurrentState))
		for p, cs := range doc.CurrentState {
			partitions[p] = clustermodel.PartitionCurrentState{Current: cs.Current, Pending: cs.Pending}
		}
		currentState[name] = partitions
	}

	return clustermodel.StageInput{
		CurrentState: currentState,
		BestPossible: bestPossible,
		Resources:    resources,
		ClusterCache: k,
		Controller:   k,
	}
}
