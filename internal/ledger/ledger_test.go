package ledger

import (
	"errors"
	"math"
	"testing"

	"rl-rebalancer-go/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdvanceHalfAllocation(t *testing.T) {
	l := NewLedger([]float64{0, 0.5, 1}, 100, 0)

	value, reward, err := l.Advance(1, 0.10)
	require.NoError(t, err)

	assert.InDelta(t, 105.0, value, 1e-9)
	assert.InDelta(t, 0.05, reward, 1e-12)
	assert.Equal(t, 1, l.BalanceIndex())
	assert.Equal(t, 1, l.Steps())
	assert.Equal(t, []float64{100, value}, l.EquityCurve)
}

func TestCashEarnsNothing(t *testing.T) {
	l := NewLedger([]float64{0, 1}, 250, 1)

	value, reward, err := l.Advance(0, -0.3)
	require.NoError(t, err)

	assert.Equal(t, 250.0, value)
	assert.Zero(t, reward)
	assert.Equal(t, 0, l.BalanceIndex())
}

func TestValueRecurrenceOverManySteps(t *testing.T) {
	levels := []float64{0, 0.25, 0.5, 0.75, 1}
	returns := []float64{0.01, -0.02, 0.03, 0.0, -0.015, 0.07}
	actions := []int{4, 3, 2, 1, 0, 4}
	l := NewLedger(levels, 1000, 0)

	prev := l.Value()
	for i, r := range returns {
		value, _, err := l.Advance(actions[i], r)
		require.NoError(t, err)
		expected := prev * (1 + levels[actions[i]]*r)
		assert.LessOrEqual(t, math.Abs(value-expected)/expected, 1e-9)
		prev = value
	}
}

func TestNonPositiveValueLeavesLedgerUntouched(t *testing.T) {
	l := NewLedger([]float64{0, 0.5, 1}, 100, 2)

	_, _, err := l.Advance(2, -1.0)
	var npv *models.NonPositiveValueError
	require.True(t, errors.As(err, &npv))
	assert.Equal(t, 2, npv.Action)
	assert.Equal(t, -1.0, npv.Return)

	assert.Equal(t, 100.0, l.Value())
	assert.Equal(t, 2, l.BalanceIndex())
	assert.Zero(t, l.Steps())
	assert.Len(t, l.EquityCurve, 1)
}

func TestReturnJustAboveThresholdIsAccepted(t *testing.T) {
	l := NewLedger([]float64{0, 0.5}, 100, 0)

	value, _, err := l.Advance(1, -1.9)
	require.NoError(t, err)
	assert.Greater(t, value, 0.0)

	_, _, err = l.Advance(1, -2.0)
	assert.Error(t, err)
}

func TestAdvanceRejectsUnknownIndex(t *testing.T) {
	l := NewLedger([]float64{0, 1}, 100, 0)
	_, _, err := l.Advance(2, 0.1)
	assert.Error(t, err)
}
