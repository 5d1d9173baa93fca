package stage

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/clustersync/controller/pkg/clustermodel"
)

func TestStateCounts_Empty(t *testing.T) {
	counts := stateCounts(clustermodel.PartitionStateMap{})
	assert.Empty(t, counts)
}

func TestStateCounts_NoZeroEntries(t *testing.T) {
	m := clustermodel.PartitionStateMap{
		"a": clustermodel.State("MASTER"),
		"b": clustermodel.State("SLAVE"),
		"c": clustermodel.State("SLAVE"),
	}

	counts := stateCounts(m)

	assert.Equal(t, 1, counts[clustermodel.State("MASTER")])
	assert.Equal(t, 2, counts[clustermodel.State("SLAVE")])
	for _, c := range counts {
		assert.NotZero(t, c)
	}
}
