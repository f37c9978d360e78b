// Package credit distributes a newly observed reward over recent decisions.
package credit

import (
	"fmt"
	"math"

	"rl-rebalancer-go/internal/models"
	"rl-rebalancer-go/internal/policy"
)

// Entry is one (state, action) decision in the trailing history.
type Entry struct {
	State  models.State
	Action int
}

// Assigner updates policy weights from a reward and the trailing history (oldest first).
type Assigner interface {
	Assign(reward float64, history []Entry, learningRate float64) error
}

// Indiscriminate gives every decision in the window the same credit, reward * learningRate,
// no matter how many steps ago it was made.
type Indiscriminate struct {
	table *policy.Table
}

// NewIndiscriminate returns an Indiscriminate assigner writing to table.
func NewIndiscriminate(table *policy.Table) *Indiscriminate {
	return &Indiscriminate{table: table}
}

func (a *Indiscriminate) Assign(reward float64, history []Entry, learningRate float64) error {
	delta := reward * learningRate
	for _, e := range history {
		if err := a.table.Update(e.State, e.Action, delta); err != nil {
			return err
		}
	}
	return nil
}

// Discounted scales credit by decay^k, where k is how many steps before the newest entry the
// decision was made. A decay of 1 is equivalent to Indiscriminate.
type Discounted struct {
	table *policy.Table
	decay float64
}

// NewDiscounted returns a Discounted assigner writing to table.
func NewDiscounted(table *policy.Table, decay float64) *Discounted {
	return &Discounted{table: table, decay: decay}
}

func (a *Discounted) Assign(reward float64, history []Entry, learningRate float64) error {
	base := reward * learningRate
	n := len(history)
	for i, e := range history {
		delta := base * math.Pow(a.decay, float64(n-1-i))
		if err := a.table.Update(e.State, e.Action, delta); err != nil {
			return err
		}
	}
	return nil
}

// New returns the assigner for scheme. An empty scheme selects Indiscriminate.
func New(scheme string, decay float64, table *policy.Table) (Assigner, error) {
	switch scheme {
	case "", models.CreditIndiscriminate:
		return NewIndiscriminate(table), nil
	case models.CreditDiscounted:
		return NewDiscounted(table, decay), nil
	default:
		return nil, fmt.Errorf("unknown credit scheme %q", scheme)
	}
}
