package model

import (
	"fmt"
	"math"

	"github.com/chimerahq/chimera/pkg/api"
)

// toMatrix converts every row of a Frame into a []float64, coercing
// JSON-decoded scalars (float64, string, bool) into numbers.
func toMatrix(f api.Frame) ([][]float64, error) {
	out := make([][]float64, len(f.Rows))
	for i, row := range f.Rows {
		vec := make([]float64, len(row))
		for j, v := range row {
			n, err := toFloat(v)
			if err != nil {
				return nil, fmt.Errorf("row %d col %d: %w", i, j, err)
			}
			vec[j] = n
		}
		out[i] = vec
	}
	return out, nil
}

// toVector converts a single-column Frame (or the first column of a
// wider one) into a []float64, used for label frames.
func toVector(f api.Frame) ([]float64, error) {
	out := make([]float64, len(f.Rows))
	for i, row := range f.Rows {
		if len(row) == 0 {
			return nil, fmt.Errorf("row %d: empty label row", i)
		}
		n, err := toFloat(row[0])
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		out[i] = n
	}
	return out, nil
}

func toFloat(v any) (float64, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case int:
		return float64(x), nil
	case bool:
		if x {
			return 1, nil
		}
		return 0, nil
	case string:
		var f float64
		if _, err := fmt.Sscanf(x, "%g", &f); err != nil {
			return 0, fmt.Errorf("cannot parse %q as a number", x)
		}
		return f, nil
	case nil:
		return 0, fmt.Errorf("value is nil")
	default:
		return 0, fmt.Errorf("unsupported scalar type %T", v)
	}
}

func dot(w []float64, x []float64) float64 {
	var sum float64
	n := len(w)
	if len(x) < n {
		n = len(x)
	}
	for i := 0; i < n; i++ {
		sum += w[i] * x[i]
	}
	return sum
}

func sigmoid(z float64) float64 {
	return 1 / (1 + math.Exp(-z))
}
