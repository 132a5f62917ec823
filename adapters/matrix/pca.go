package matrix

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"perturbscope/domain/stage"
)

// Reducer projects normalized RNA expression onto its top principal
// components. The embedding is only used for nearest-control matching, so
// deterministic output matters more than speed here.
type Reducer struct{}

// NewReducer creates a new PCA reducer
func NewReducer() *Reducer {
	return &Reducer{}
}

// Reduce computes the principal-component embedding of the normalized RNA
// matrix. Components is capped at min(cells-1, genes).
func (r *Reducer) Reduce(n *stage.Normalized, components int) (*stage.Reduced, error) {
	if components < 1 {
		return nil, fmt.Errorf("components must be at least 1, got %d", components)
	}
	rows, cols := n.RNA.Data.Dims()
	maxComponents := rows - 1
	if cols < maxComponents {
		maxComponents = cols
	}
	if maxComponents < 1 {
		return nil, fmt.Errorf("matrix too small for PCA: %d cells x %d genes", rows, cols)
	}
	if components > maxComponents {
		components = maxComponents
	}

	var pc stat.PC
	if ok := pc.PrincipalComponents(n.RNA.Data, nil); !ok {
		return nil, fmt.Errorf("principal component decomposition failed")
	}

	var vectors mat.Dense
	pc.VectorsTo(&vectors)
	vars := pc.VarsTo(nil)

	// Project the centered data onto the leading components.
	centered := centerColumns(n.RNA.Data)
	loading := vectors.Slice(0, cols, 0, components)
	coords := mat.NewDense(rows, components, nil)
	coords.Mul(centered, loading)

	total := 0.0
	for _, v := range vars {
		total += v
	}
	explained := make([]float64, components)
	if total > 0 {
		for i := 0; i < components; i++ {
			explained[i] = vars[i] / total
		}
	}

	return &stage.Reduced{
		Normalized:        n,
		Coords:            coords,
		ExplainedVariance: explained,
	}, nil
}

// centerColumns subtracts each column's mean.
func centerColumns(m *mat.Dense) *mat.Dense {
	rows, cols := m.Dims()
	out := mat.NewDense(rows, cols, nil)
	col := make([]float64, rows)
	for j := 0; j < cols; j++ {
		mat.Col(col, j, m)
		mean := 0.0
		for _, v := range col {
			mean += v
		}
		mean /= float64(rows)
		for i, v := range col {
			out.Set(i, j, v-mean)
		}
	}
	return out
}
