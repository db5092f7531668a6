package bootstrap

import (
	"math/rand"

	"github.com/chimerahq/chimera/pkg/api"
)

// DefaultSeed is the fixed default seed, reproducible across runs of the
// same worker unless overridden (spec.md §4.3).
const DefaultSeed = 0

// Bootstrapper draws a resampled-with-replacement copy of a training
// table: n row indices drawn uniformly from [0, n), applied identically
// to X and y so labels move with their rows.
type Bootstrapper struct {
	rng *rand.Rand
}

// New creates a Bootstrapper seeded with seed.
func New(seed int64) *Bootstrapper {
	return &Bootstrapper{rng: rand.New(rand.NewSource(seed))}
}

// NewDefault creates a Bootstrapper seeded with DefaultSeed.
func NewDefault() *Bootstrapper {
	return New(DefaultSeed)
}

// Run resamples X and y by the same row indices, drawn uniformly with
// replacement. The output has the same shape as the input for any n >= 1;
// the probability that any given row is omitted approaches 1/e as
// n -> infinity.
func (b *Bootstrapper) Run(x, y api.Frame) (api.Frame, api.Frame, error) {
	if len(x.Rows) != len(y.Rows) {
		return api.Frame{}, api.Frame{}, api.NewValidationError("X and y must have the same number of rows")
	}

	n := len(x.Rows)
	indices := make([]int, n)
	for i := range indices {
		indices[i] = b.rng.Intn(n)
	}

	return reindex(x, indices), reindex(y, indices), nil
}

func reindex(f api.Frame, indices []int) api.Frame {
	rows := make([][]any, len(indices))
	for i, idx := range indices {
		rows[i] = f.Rows[idx]
	}
	return api.Frame{Columns: f.Columns, Rows: rows}
}
