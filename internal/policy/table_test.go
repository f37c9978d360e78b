package policy

import (
	"errors"
	"testing"

	"rl-rebalancer-go/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLegalActionsRespectLimitAndBounds(t *testing.T) {
	table := NewTable(5, 1, 2)

	assert.Equal(t, []int{0, 1}, table.LegalActions(0))
	assert.Equal(t, []int{1, 2, 3}, table.LegalActions(2))
	assert.Equal(t, []int{3, 4}, table.LegalActions(4))
	assert.Nil(t, table.LegalActions(5))
	assert.Nil(t, table.LegalActions(-1))
}

func TestLegalityIsSymmetricAndReflexive(t *testing.T) {
	table := NewTable(11, 2, 1)
	for b := 0; b < 11; b++ {
		assert.True(t, table.IsLegal(b, b), "no-op must be legal from %d", b)
		for a := 0; a < 11; a++ {
			assert.Equal(t, table.IsLegal(b, a), table.IsLegal(a, b), "legality of %d<->%d", b, a)
		}
	}
}

func TestZeroLimitOnlyAllowsNoOp(t *testing.T) {
	table := NewTable(3, 0, 1)
	for b := 0; b < 3; b++ {
		assert.Equal(t, []int{b}, table.LegalActions(b))
	}
}

func TestWeightsForCreatesRowLazilyAtZero(t *testing.T) {
	table := NewTable(3, 1, 2)
	state := models.State{BalanceIndex: 1, ForecastBin: 1}

	weights := table.WeightsFor(state)
	assert.Equal(t, map[int]float64{0: 0, 1: 0, 2: 0}, weights)

	ordered := table.Weights(state)
	require.Len(t, ordered, 3)
	for i, aw := range ordered {
		assert.Equal(t, i, aw.Action)
		assert.Zero(t, aw.Weight)
	}
}

func TestUpdateAccumulates(t *testing.T) {
	table := NewTable(3, 1, 1)
	state := models.State{BalanceIndex: 0, ForecastBin: 0}

	require.NoError(t, table.Update(state, 1, 0.005))
	require.NoError(t, table.Update(state, 1, 0.010))

	w, ok := table.Weight(state, 1)
	require.True(t, ok)
	assert.InDelta(t, 0.015, w, 1e-12)

	w, ok = table.Weight(state, 0)
	require.True(t, ok)
	assert.Zero(t, w)
}

func TestUpdateRejectsIllegalAction(t *testing.T) {
	table := NewTable(3, 1, 1)
	state := models.State{BalanceIndex: 0, ForecastBin: 0}

	err := table.Update(state, 2, 1.0)
	var unknown *models.UnknownActionError
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, 2, unknown.Action)
	assert.Equal(t, state, unknown.State)

	_, ok := table.Weight(state, 2)
	assert.False(t, ok)
}

func TestSnapshotHasFullShapeAndIsDetached(t *testing.T) {
	table := NewTable(3, 1, 2)
	state := models.State{BalanceIndex: 2, ForecastBin: 1}
	require.NoError(t, table.Update(state, 1, 0.5))

	snap := table.Snapshot()
	require.Len(t, snap, 6)
	assert.Equal(t, models.State{BalanceIndex: 0, ForecastBin: 0}, snap[0].State)
	assert.Equal(t, []int{0, 1}, snap[0].Actions)
	assert.Equal(t, []float64{0, 0}, snap[0].Weights)

	last := snap[5]
	assert.Equal(t, state, last.State)
	assert.Equal(t, []int{1, 2}, last.Actions)
	assert.Equal(t, []float64{0.5, 0}, last.Weights)

	last.Weights[0] = 99
	w, _ := table.Weight(state, 1)
	assert.Equal(t, 0.5, w)
}

func TestCloneIsIndependent(t *testing.T) {
	table := NewTable(2, 1, 1)
	state := models.State{BalanceIndex: 0, ForecastBin: 0}
	require.NoError(t, table.Update(state, 0, 1))

	clone := table.Clone()
	require.NoError(t, clone.Update(state, 0, 1))

	orig, _ := table.Weight(state, 0)
	cloned, _ := clone.Weight(state, 0)
	assert.Equal(t, 1.0, orig)
	assert.Equal(t, 2.0, cloned)
}
