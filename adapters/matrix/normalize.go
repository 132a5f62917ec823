package matrix

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"perturbscope/domain/expr"
	"perturbscope/domain/stage"
)

// ScaleFactor is the per-cell library size target for RNA normalization
// (counts per ten thousand, the scanpy/Seurat convention).
const ScaleFactor = 1e4

// Normalizer converts raw counts into normalized expression: log1p CP10K
// for RNA, centered log-ratio for protein.
type Normalizer struct{}

// NewNormalizer creates a new normalizer
func NewNormalizer() *Normalizer {
	return &Normalizer{}
}

// Normalize produces the normalized stage record. The input bundle is not
// modified.
func (n *Normalizer) Normalize(b *expr.Bundle) (*stage.Normalized, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}

	rna, err := logNormalize(b.RNA)
	if err != nil {
		return nil, err
	}

	var protein *expr.Matrix
	if b.Protein != nil {
		protein, err = clrNormalize(b.Protein)
		if err != nil {
			return nil, err
		}
	}

	return &stage.Normalized{Bundle: b, RNA: rna, Protein: protein}, nil
}

// logNormalize scales each cell to ScaleFactor total counts and applies
// log1p.
func logNormalize(m *expr.Matrix) (*expr.Matrix, error) {
	rows, cols := m.Data.Dims()
	out := mat.NewDense(rows, cols, nil)
	row := make([]float64, cols)
	for i := 0; i < rows; i++ {
		m.Row(row, i)
		total := 0.0
		for _, v := range row {
			total += v
		}
		if total == 0 {
			// Empty cell: leave the row zero rather than dividing by zero.
			continue
		}
		scale := ScaleFactor / total
		for j, v := range row {
			out.Set(i, j, math.Log1p(v*scale))
		}
	}
	return expr.New(m.CellIDs, m.Genes, out)
}

// clrNormalize applies the centered log-ratio transform per cell:
// log1p(x) minus the cell's mean log1p value.
func clrNormalize(m *expr.Matrix) (*expr.Matrix, error) {
	rows, cols := m.Data.Dims()
	out := mat.NewDense(rows, cols, nil)
	row := make([]float64, cols)
	for i := 0; i < rows; i++ {
		m.Row(row, i)
		meanLog := 0.0
		for _, v := range row {
			meanLog += math.Log1p(v)
		}
		meanLog /= float64(cols)
		for j, v := range row {
			out.Set(i, j, math.Log1p(v)-meanLog)
		}
	}
	return expr.New(m.CellIDs, m.Genes, out)
}
