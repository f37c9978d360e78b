package decision

import (
	"testing"

	"rl-rebalancer-go/internal/models"
	"rl-rebalancer-go/internal/policy"
	"rl-rebalancer-go/internal/randsrc"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedSource replays fixed draws and records the bounds requested from Intn.
type scriptedSource struct {
	floats []float64
	ints   []int
	bounds []int
}

func (s *scriptedSource) Float64() float64 {
	f := s.floats[0]
	s.floats = s.floats[1:]
	return f
}

func (s *scriptedSource) Intn(n int) int {
	s.bounds = append(s.bounds, n)
	i := s.ints[0]
	s.ints = s.ints[1:]
	return i
}

func TestGreedyBreaksTiesAmongAllMaxima(t *testing.T) {
	table := policy.NewTable(3, 1, 1)
	state := models.State{BalanceIndex: 0, ForecastBin: 0}
	src := &scriptedSource{ints: []int{1}}

	d := NewEngine(table, src, 0).Decide(state, false)

	assert.Equal(t, 1, d.Action)
	assert.False(t, d.Explored)
	assert.Equal(t, []int{2}, src.bounds, "tie-break must be over both zero-weight actions")
}

func TestGreedyPicksUniqueMaximum(t *testing.T) {
	table := policy.NewTable(5, 2, 1)
	state := models.State{BalanceIndex: 2, ForecastBin: 0}
	require.NoError(t, table.Update(state, 3, 0.2))
	require.NoError(t, table.Update(state, 0, -0.1))
	src := &scriptedSource{ints: []int{0}}

	d := NewEngine(table, src, 0).Decide(state, false)

	assert.Equal(t, 3, d.Action)
	assert.Equal(t, []int{1}, src.bounds)
}

func TestGreedyTieSetExcludesLowerWeights(t *testing.T) {
	table := policy.NewTable(5, 2, 1)
	state := models.State{BalanceIndex: 2, ForecastBin: 0}
	require.NoError(t, table.Update(state, 1, 0.3))
	require.NoError(t, table.Update(state, 4, 0.3))
	require.NoError(t, table.Update(state, 2, 0.1))
	src := &scriptedSource{ints: []int{1}}

	d := NewEngine(table, src, 0).Decide(state, false)

	assert.Equal(t, 4, d.Action)
	assert.Equal(t, []int{2}, src.bounds)
}

func TestExploreDrawsFromLegalActions(t *testing.T) {
	table := policy.NewTable(5, 1, 1)
	state := models.State{BalanceIndex: 4, ForecastBin: 0}
	require.NoError(t, table.Update(state, 4, 1.0))
	src := &scriptedSource{floats: []float64{0.1}, ints: []int{0}}

	d := NewEngine(table, src, 0.5).Decide(state, true)

	assert.Equal(t, 3, d.Action)
	assert.True(t, d.Explored)
	assert.Equal(t, []int{2}, src.bounds)
}

func TestExploreDrawAboveRateFallsBackToGreedy(t *testing.T) {
	table := policy.NewTable(3, 1, 1)
	state := models.State{BalanceIndex: 1, ForecastBin: 0}
	require.NoError(t, table.Update(state, 2, 1.0))
	src := &scriptedSource{floats: []float64{0.9}, ints: []int{0}}

	d := NewEngine(table, src, 0.5).Decide(state, true)

	assert.Equal(t, 2, d.Action)
	assert.False(t, d.Explored)
}

func TestNotExploringNeverDrawsExplorationCoin(t *testing.T) {
	table := policy.NewTable(3, 1, 1)
	state := models.State{BalanceIndex: 1, ForecastBin: 0}
	src := &scriptedSource{ints: []int{2}}

	d := NewEngine(table, src, 1.0).Decide(state, false)

	assert.Equal(t, 2, d.Action)
	assert.Empty(t, src.floats)
}

func TestDecisionsAreAlwaysLegal(t *testing.T) {
	table := policy.NewTable(11, 2, 3)
	engine := NewEngine(table, randsrc.New(3), 0.5)
	for b := 0; b < 11; b++ {
		for f := 0; f < 3; f++ {
			for i := 0; i < 20; i++ {
				d := engine.Decide(models.State{BalanceIndex: b, ForecastBin: f}, true)
				assert.True(t, table.IsLegal(b, d.Action))
			}
		}
	}
}
