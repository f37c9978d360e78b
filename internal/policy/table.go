// Package policy holds the state -> action -> weight table the agent learns.
package policy

import (
	"sort"

	"rl-rebalancer-go/internal/models"
)

// ActionWeight pairs a legal action with its current weight.
type ActionWeight struct {
	Action int
	Weight float64
}

// Table maps (balance index, forecast bin) states to weights over legal actions.
//
// Rows are created lazily with every legal action at 0.0. The legal action set depends only on
// the balance index, so it is computed once per index and shared by all rows. Entries are never
// removed. A Table is not safe for concurrent use.
type Table struct {
	levels int
	limit  int
	bins   int
	legal  [][]int
	rows   map[models.State][]float64
}

// NewTable builds an empty table for the given number of balance levels, rebalance limit, and
// forecast bins.
func NewTable(levels, rebalanceLimit, bins int) *Table {
	legal := make([][]int, levels)
	for b := 0; b < levels; b++ {
		lo := b - rebalanceLimit
		if lo < 0 {
			lo = 0
		}
		hi := b + rebalanceLimit
		if hi > levels-1 {
			hi = levels - 1
		}
		actions := make([]int, 0, hi-lo+1)
		for a := lo; a <= hi; a++ {
			actions = append(actions, a)
		}
		legal[b] = actions
	}
	return &Table{
		levels: levels,
		limit:  rebalanceLimit,
		bins:   bins,
		legal:  legal,
		rows:   make(map[models.State][]float64),
	}
}

// Levels returns the number of balance levels.
func (t *Table) Levels() int { return t.levels }

// Bins returns the number of forecast bins.
func (t *Table) Bins() int { return t.bins }

// RebalanceLimit returns the maximum index distance of a legal action.
func (t *Table) RebalanceLimit() int { return t.limit }

// LegalActions returns the actions reachable from balanceIndex in ascending order.
// The returned slice is shared and must not be modified. It is nil for an unknown index.
func (t *Table) LegalActions(balanceIndex int) []int {
	if balanceIndex < 0 || balanceIndex >= t.levels {
		return nil
	}
	return t.legal[balanceIndex]
}

// IsLegal reports whether action may be taken from balanceIndex.
func (t *Table) IsLegal(balanceIndex, action int) bool {
	return t.indexOf(balanceIndex, action) >= 0
}

// Weights returns the row for state ordered by action, creating it if needed.
func (t *Table) Weights(state models.State) []ActionWeight {
	row := t.row(state)
	actions := t.LegalActions(state.BalanceIndex)
	out := make([]ActionWeight, len(actions))
	for i, a := range actions {
		out[i] = ActionWeight{Action: a, Weight: row[i]}
	}
	return out
}

// WeightsFor returns the row for state as a map, creating it if needed.
func (t *Table) WeightsFor(state models.State) map[int]float64 {
	row := t.row(state)
	actions := t.LegalActions(state.BalanceIndex)
	out := make(map[int]float64, len(actions))
	for i, a := range actions {
		out[a] = row[i]
	}
	return out
}

// Weight returns the stored weight of (state, action). ok is false when the action is illegal.
func (t *Table) Weight(state models.State, action int) (weight float64, ok bool) {
	i := t.indexOf(state.BalanceIndex, action)
	if i < 0 {
		return 0, false
	}
	row, exists := t.rows[state]
	if !exists {
		return 0, true
	}
	return row[i], true
}

// Update adds delta to the weight of (state, action).
func (t *Table) Update(state models.State, action int, delta float64) error {
	i := t.indexOf(state.BalanceIndex, action)
	if i < 0 {
		return &models.UnknownActionError{State: state, Action: action}
	}
	t.row(state)[i] += delta
	return nil
}

// Snapshot returns a deep copy of every state row, including rows never touched, ordered by
// balance index then forecast bin.
func (t *Table) Snapshot() []models.PolicyRow {
	out := make([]models.PolicyRow, 0, t.levels*t.bins)
	for b := 0; b < t.levels; b++ {
		for f := 0; f < t.bins; f++ {
			out = append(out, t.snapshotRow(models.State{BalanceIndex: b, ForecastBin: f}))
		}
	}
	// rows outside the configured bin range can only exist if a caller bypassed ingestion checks
	var extra []models.State
	for s := range t.rows {
		if s.ForecastBin < 0 || s.ForecastBin >= t.bins {
			extra = append(extra, s)
		}
	}
	sort.Slice(extra, func(i, j int) bool {
		if extra[i].BalanceIndex != extra[j].BalanceIndex {
			return extra[i].BalanceIndex < extra[j].BalanceIndex
		}
		return extra[i].ForecastBin < extra[j].ForecastBin
	})
	for _, s := range extra {
		out = append(out, t.snapshotRow(s))
	}
	return out
}

// Clone returns an independent copy of the table.
func (t *Table) Clone() *Table {
	c := NewTable(t.levels, t.limit, t.bins)
	for s, row := range t.rows {
		c.rows[s] = append([]float64(nil), row...)
	}
	return c
}

func (t *Table) snapshotRow(s models.State) models.PolicyRow {
	actions := t.LegalActions(s.BalanceIndex)
	weights := make([]float64, len(actions))
	if row, ok := t.rows[s]; ok {
		copy(weights, row)
	}
	return models.PolicyRow{
		State:   s,
		Actions: append([]int(nil), actions...),
		Weights: weights,
	}
}

func (t *Table) row(state models.State) []float64 {
	row, ok := t.rows[state]
	if !ok {
		row = make([]float64, len(t.LegalActions(state.BalanceIndex)))
		t.rows[state] = row
	}
	return row
}

// indexOf returns the position of action within the legal set of balanceIndex, or -1.
func (t *Table) indexOf(balanceIndex, action int) int {
	actions := t.LegalActions(balanceIndex)
	if len(actions) == 0 || action < actions[0] || action > actions[len(actions)-1] {
		return -1
	}
	return action - actions[0]
}
