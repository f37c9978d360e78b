// Package decision selects the next allocation from the policy table.
package decision

import (
	"rl-rebalancer-go/internal/models"
	"rl-rebalancer-go/internal/policy"
	"rl-rebalancer-go/internal/randsrc"
)

// Decision is the chosen action and whether it came from exploration.
type Decision struct {
	Action   int
	Explored bool
}

// Engine chooses actions either at random (explore) or greedily from the table (exploit).
type Engine struct {
	table           *policy.Table
	rng             randsrc.Source
	explorationRate float64
}

// NewEngine creates an Engine reading from table and drawing from rng.
func NewEngine(table *policy.Table, rng randsrc.Source, explorationRate float64) *Engine {
	return &Engine{
		table:           table,
		rng:             rng,
		explorationRate: explorationRate,
	}
}

// Decide returns the action for state.
//
// When exploring, one draw is taken to decide whether to explore; on explore a uniformly random
// legal action is returned. Otherwise the greedy action is returned, breaking ties among all
// maximal actions uniformly at random.
func (e *Engine) Decide(state models.State, exploring bool) Decision {
	if exploring && e.rng.Float64() < e.explorationRate {
		legal := e.table.LegalActions(state.BalanceIndex)
		return Decision{Action: legal[e.rng.Intn(len(legal))], Explored: true}
	}
	return Decision{Action: e.greedy(state)}
}

func (e *Engine) greedy(state models.State) int {
	weights := e.table.Weights(state)
	best := make([]int, 0, len(weights))
	var highest float64
	for i, aw := range weights {
		switch {
		case i == 0 || aw.Weight > highest:
			highest = aw.Weight
			best = append(best[:0], aw.Action)
		case aw.Weight == highest:
			best = append(best, aw.Action)
		}
	}
	return best[e.rng.Intn(len(best))]
}
