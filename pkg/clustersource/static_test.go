package clustersource

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clustersync/controller/pkg/clustermodel"
)

func sampleStaticConfig() StaticConfig {
	return StaticConfig{
		Controller: clustermodel.ControllerInfo{InstanceID: "controller-1", Version: "1.0.0"},
		ParticipantVersions: map[clustermodel.InstanceID]string{
			"a": "1.0.0",
		},
		Throttle: clustermodel.ThrottleConfig{Enabled: true},
		Resources: map[clustermodel.ResourceName]StaticResource{
			"db": {
				RebalanceMode: clustermodel.FullAuto,
				StateModel: StaticStateModel{
					Name:           "MasterSlave",
					PriorityStates: []clustermodel.State{"MASTER", "SLAVE"},
					InitialState:   clustermodel.StateOffline,
					ReservedStates: []clustermodel.State{"MASTER"},
				},
				BestPossible: clustermodel.ResourcePartitionStateMap{
					"p1": {"a": "MASTER"},
				},
				CurrentState: map[clustermodel.PartitionName]StaticPartitionState{
					"p1": {Current: clustermodel.PartitionStateMap{"a": "SLAVE"}},
				},
			},
		},
	}
}

func TestNewStaticSource_ParticipantVersion(t *testing.T) {
	s := NewStaticSource(sampleStaticConfig())

	v, ok := s.ParticipantVersion("a")
	assert.True(t, ok)
	assert.Equal(t, "1.0.0", v)

	_, ok = s.ParticipantVersion("unknown")
	assert.False(t, ok)
}

func TestNewStaticSource_ThrottleConfig(t *testing.T) {
	s := NewStaticSource(sampleStaticConfig())
	assert.True(t, s.ThrottleConfig().Enabled)
}

func TestNewStaticSource_ControllerInfo(t *testing.T) {
	s := NewStaticSource(sampleStaticConfig())
	info := s.ControllerInfo()
	assert.Equal(t, clustermodel.InstanceID("controller-1"), info.InstanceID)
	assert.Equal(t, "1.0.0", info.Version)
}

func TestNewStaticSource_BuildStageInput(t *testing.T) {
	s := NewStaticSource(sampleStaticConfig())
	input := s.BuildStageInput()

	require.Contains(t, input.Resources, clustermodel.ResourceName("db"))
	res := input.Resources["db"]
	assert.Equal(t, clustermodel.FullAuto, res.RebalanceMode)
	assert.Equal(t, "MasterSlave", res.StateModel.Name)
	assert.True(t, res.StateModel.IsReserved("MASTER"))

	require.Contains(t, input.BestPossible, clustermodel.ResourceName("db"))
	assert.Equal(t, clustermodel.State("MASTER"), input.BestPossible["db"]["p1"]["a"])

	require.Contains(t, input.CurrentState, clustermodel.ResourceName("db"))
	assert.Equal(t, clustermodel.State("SLAVE"), input.CurrentState["db"]["p1"].Current["a"])

	assert.Same(t, s, input.ClusterCache.(*StaticSource))
	assert.Same(t, s, input.Controller.(*StaticSource))
}

func TestLoadStaticConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cluster.json")
	err := os.WriteFile(path, []byte(`{
		"controller": {"instanceID": "controller-1", "version": "1.0.0"},
		"participantVersions": {"a": "1.0.0"},
		"throttle": {"Enabled": true},
		"resources": {}
	}`), 0o644)
	require.NoError(t, err)

	s, err := LoadStaticConfig(path)
	require.NoError(t, err)
	require.NotNil(t, s)

	v, ok := s.ParticipantVersion("a")
	assert.True(t, ok)
	assert.Equal(t, "1.0.0", v)
}

func TestLoadStaticConfig_MissingFile(t *testing.T) {
	_, err := LoadStaticConfig("/nonexistent/path/cluster.json")
	assert.Error(t, err)
}

func TestLoadStaticConfig_InvalidJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cluster.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o644))

	_, err := LoadStaticConfig(path)
	assert.Error(t, err)
}
