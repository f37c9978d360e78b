package dataset

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Discretizer maps a raw forecast value onto quantile bins fit on a calibration sample.
type Discretizer struct {
	edges []float64
}

// FitQuantile computes bins-1 interior edges at the empirical quantiles k/bins of sample.
// Only values available before the series being binned should be passed, so that no record is
// classified with information from its own future.
func FitQuantile(sample []float64, bins int) (*Discretizer, error) {
	if bins < 1 {
		return nil, fmt.Errorf("discretizer: bins must be positive, got %d", bins)
	}
	if len(sample) == 0 {
		return nil, fmt.Errorf("discretizer: empty calibration sample")
	}
	sorted := make([]float64, len(sample))
	copy(sorted, sample)
	for _, v := range sorted {
		if math.IsNaN(v) {
			return nil, fmt.Errorf("discretizer: calibration sample contains NaN")
		}
	}
	sort.Float64s(sorted)

	edges := make([]float64, bins-1)
	for k := 1; k < bins; k++ {
		edges[k-1] = stat.Quantile(float64(k)/float64(bins), stat.Empirical, sorted, nil)
	}
	return &Discretizer{edges: edges}, nil
}

// Bins returns the number of bins.
func (d *Discretizer) Bins() int { return len(d.edges) + 1 }

// Edges returns a copy of the interior bin edges.
func (d *Discretizer) Edges() []float64 { return append([]float64(nil), d.edges...) }

// Bin returns the bin of x: the number of edges that are <= x.
func (d *Discretizer) Bin(x float64) int {
	return sort.Search(len(d.edges), func(i int) bool { return d.edges[i] > x })
}
