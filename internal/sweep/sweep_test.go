package sweep

import (
	"context"
	"sort"
	"testing"

	"rl-rebalancer-go/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func sweepRecords() []models.StepRecord {
	returns := []float64{0.02, -0.01, 0.03, 0.01, -0.02, 0.04, 0.00, 0.01}
	records := make([]models.StepRecord, len(returns))
	for i, r := range returns {
		records[i] = models.StepRecord{Index: i, ForecastBin: i % 2, RealizedReturn: r}
	}
	return records
}

func TestExpandCartesianProduct(t *testing.T) {
	base := models.DefaultAgentConfig()
	jobs := Expand(models.SweepConfig{
		Seeds:            []int64{1, 2},
		LearningRates:    []float64{0.01, 0.05, 0.1},
		ExplorationRates: []float64{0.1, 0.3},
	}, base, 3)

	require.Len(t, jobs, 12)
	assert.Equal(t, models.RunParams{Seed: 1, LearningRate: 0.01, ExplorationRate: 0.1, Episodes: 3}, jobs[0].Params)
	assert.Equal(t, models.RunParams{Seed: 2, LearningRate: 0.1, ExplorationRate: 0.3, Episodes: 3}, jobs[11].Params)
}

func TestExpandFallsBackToBase(t *testing.T) {
	base := models.DefaultAgentConfig()
	jobs := Expand(models.SweepConfig{}, base, 1)

	require.Len(t, jobs, 1)
	assert.Equal(t, base.RandomSeed, jobs[0].Params.Seed)
	assert.Equal(t, base.LearningRate, jobs[0].Params.LearningRate)
	assert.Equal(t, base.ExplorationRate, jobs[0].Params.ExplorationRate)
}

func TestJobIDIsStableAndDistinct(t *testing.T) {
	a := Job{Params: models.RunParams{Seed: 1, LearningRate: 0.05, ExplorationRate: 0.3, Episodes: 2}}
	b := a
	b.Params.Seed = 2

	assert.Equal(t, a.ID(), a.ID())
	assert.NotEqual(t, a.ID(), b.ID())
	assert.NotEmpty(t, a.ID())
}

func TestRunnerProducesOneResultPerJob(t *testing.T) {
	base := models.DefaultAgentConfig()
	base.InitialCapital = 1000
	jobs := Expand(models.SweepConfig{
		Seeds:         []int64{1, 2, 3},
		LearningRates: []float64{0.01, 0.05},
	}, base, 2)

	repo := newMockResultRepository()
	c := NewCollector(repo, zap.NewNop())
	c.Start()
	err := NewRunner(base, sweepRecords(), 3, c, zap.NewNop()).Run(context.Background(), jobs)
	c.Stop()
	require.NoError(t, err)

	results := c.Results()
	require.Len(t, results, len(jobs))
	assert.Equal(t, len(jobs), repo.count())
	for _, r := range results {
		assert.Empty(t, r.Error)
		assert.Equal(t, len(sweepRecords()), r.Summary.Steps)
		assert.NotEmpty(t, r.Policy)
		assert.Equal(t, resultVersion, r.Version)
	}
}

func TestRunnerIsDeterministicAcrossWorkerCounts(t *testing.T) {
	base := models.DefaultAgentConfig()
	jobs := Expand(models.SweepConfig{Seeds: []int64{7, 8, 9, 10}}, base, 2)

	run := func(workers int) map[string]float64 {
		c := NewCollector(nil, zap.NewNop())
		c.Start()
		require.NoError(t, NewRunner(base, sweepRecords(), workers, c, zap.NewNop()).Run(context.Background(), jobs))
		c.Stop()
		out := make(map[string]float64)
		for _, r := range c.Results() {
			out[r.RunID] = r.Summary.FinalValue
		}
		return out
	}

	assert.Equal(t, run(1), run(4))
}

func TestRunnerRecordsFailedRuns(t *testing.T) {
	base := models.DefaultAgentConfig()
	base.AssetBalanceLevels = []float64{1.0}
	base.RebalanceLimitSteps = 0
	base.InitialBalanceIndex = 0
	records := []models.StepRecord{{Index: 0, RealizedReturn: -1.5}}

	c := NewCollector(nil, zap.NewNop())
	c.Start()
	err := NewRunner(base, records, 2, c, zap.NewNop()).Run(context.Background(),
		Expand(models.SweepConfig{Seeds: []int64{1, 2}}, base, 1))
	c.Stop()
	require.NoError(t, err)

	results := c.Results()
	require.Len(t, results, 2)
	sort.Slice(results, func(i, j int) bool { return results[i].Params.Seed < results[j].Params.Seed })
	for _, r := range results {
		assert.Contains(t, r.Error, "zero or below")
	}
}

func TestRunnerStopsOnCancelledContext(t *testing.T) {
	base := models.DefaultAgentConfig()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := NewCollector(nil, zap.NewNop())
	c.Start()
	err := NewRunner(base, sweepRecords(), 2, c, zap.NewNop()).Run(ctx, Expand(models.SweepConfig{Seeds: []int64{1, 2}}, base, 1))
	c.Stop()

	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, c.Results())
}
