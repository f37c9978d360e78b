// Package randsrc provides the seedable uniform random source used by the decision engine.
package randsrc

import "math/rand"

// Source is the minimal uniform random interface an agent draws from.
type Source interface {
	// Float64 returns a uniform draw in [0,1).
	Float64() float64
	// Intn returns a uniform integer in [0,n). It panics if n <= 0.
	Intn(n int) int
}

// seeded wraps a private *rand.Rand so that no two agents share generator state.
type seeded struct {
	rng *rand.Rand
}

// New returns a Source seeded with seed. Equal seeds produce equal sequences.
func New(seed int64) Source {
	return &seeded{rng: rand.New(rand.NewSource(seed))}
}

func (s *seeded) Float64() float64 { return s.rng.Float64() }

func (s *seeded) Intn(n int) int { return s.rng.Intn(n) }
