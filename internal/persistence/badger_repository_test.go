package persistence

import (
	"testing"
	"time"

	"rl-rebalancer-go/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleResult(id string, sharpe float64) *models.RunResult {
	return &models.RunResult{
		RunID:   id,
		Version: 1,
		Params:  models.RunParams{Seed: 42, LearningRate: 0.05, ExplorationRate: 0.3, Episodes: 2},
		Summary: models.RunSummary{Steps: 10, FinalValue: 1010, SharpeRatio: sharpe},
		Policy: []models.PolicyRow{
			{State: models.State{BalanceIndex: 0, ForecastBin: 1}, Actions: []int{0, 1}, Weights: []float64{0, 0.005}},
		},
		StartedAt:   time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		CompletedAt: time.Date(2024, 5, 1, 12, 0, 1, 0, time.UTC),
	}
}

func TestBadgerRepositoryRoundTrip(t *testing.T) {
	repo, err := NewBadgerRepository(t.TempDir())
	require.NoError(t, err)
	defer repo.Close()

	want := sampleResult("abc", 1.2)
	require.NoError(t, repo.SaveResult(want))

	got, err := repo.LoadResult("abc")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, want.Params, got.Params)
	assert.Equal(t, want.Summary, got.Summary)
	assert.Equal(t, want.Policy, got.Policy)
	assert.True(t, want.StartedAt.Equal(got.StartedAt))
}

func TestBadgerRepositoryMissingResult(t *testing.T) {
	repo, err := NewInMemoryBadgerRepository()
	require.NoError(t, err)
	defer repo.Close()

	got, err := repo.LoadResult("nope")
	assert.NoError(t, err)
	assert.Nil(t, got)
}

func TestBadgerRepositoryListIsOrderedAndOverwrites(t *testing.T) {
	repo, err := NewInMemoryBadgerRepository()
	require.NoError(t, err)
	defer repo.Close()

	require.NoError(t, repo.SaveResult(sampleResult("b", 1)))
	require.NoError(t, repo.SaveResult(sampleResult("a", 2)))
	require.NoError(t, repo.SaveResult(sampleResult("b", 3)))

	results, err := repo.ListResults()
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "a", results[0].RunID)
	assert.Equal(t, "b", results[1].RunID)
	assert.Equal(t, 3.0, results[1].Summary.SharpeRatio)
}

func TestBadgerRepositoryRejectsEmptyID(t *testing.T) {
	repo, err := NewInMemoryBadgerRepository()
	require.NoError(t, err)
	defer repo.Close()

	assert.Error(t, repo.SaveResult(&models.RunResult{}))
}
