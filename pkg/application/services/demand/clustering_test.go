package demand

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vsinha/seasonplan/pkg/domain/entities"
	testhelpers "github.com/vsinha/seasonplan/pkg/infrastructure/testing"
)

func TestAssignClusters_Preassigned(t *testing.T) {
	assignment, err := AssignClusters(testhelpers.BuildRegionalStores(), 5)
	require.NoError(t, err)

	assert.Equal(t, []entities.ClusterID{"C1", "C2", "C3"}, assignment.Order)
	assert.Equal(t, []entities.StoreID{"S001", "S002", "S003"}, assignment.Members("C1"))
	assert.Equal(t, []entities.StoreID{"S007", "S008", "S009"}, assignment.Members("C3"))
}

func TestAssignClusters_ByAttributes(t *testing.T) {
	stores := testhelpers.BuildUnclusteredStores(7)
	assignment, err := AssignClusters(stores, 3)
	require.NoError(t, err)

	require.Len(t, assignment.Order, 3)
	assert.Len(t, assignment.ByStore, 7)
	// near-equal groups, highest-scoring stores first
	assert.Len(t, assignment.Members("C1"), 3)
	assert.Len(t, assignment.Members("C2"), 2)
	assert.Len(t, assignment.Members("C3"), 2)
	assert.Equal(t, entities.ClusterID("C1"), assignment.ByStore["S001"])
	assert.Equal(t, entities.ClusterID("C3"), assignment.ByStore["S007"])
}

func TestAssignClusters_MoreClustersThanStores(t *testing.T) {
	assignment, err := AssignClusters(testhelpers.BuildUnclusteredStores(2), 3)
	require.NoError(t, err)
	assert.Len(t, assignment.Order, 2)
}

func TestAssignClusters_Errors(t *testing.T) {
	_, err := AssignClusters(nil, 3)
	assert.ErrorIs(t, err, entities.ErrInsufficientData)

	_, err = AssignClusters(testhelpers.BuildUnclusteredStores(3), 0)
	assert.ErrorIs(t, err, entities.ErrInvalidInput)

	partial := testhelpers.BuildUnclusteredStores(3)
	partial[0].ClusterID = "C1"
	_, err = AssignClusters(partial, 2)
	assert.ErrorIs(t, err, entities.ErrInvalidInput)
}
