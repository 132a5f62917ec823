// Package mixscape implements the perturbation-signature calculation and
// the mixture-model classification of perturbed cells.
package mixscape

import (
	"gonum.org/v1/gonum/mat"

	"perturbscope/adapters/matrix"
	"perturbscope/domain/core"
	"perturbscope/domain/expr"
	"perturbscope/domain/mixscape"
	"perturbscope/domain/stage"
)

// SignatureCalculator computes the per-cell perturbation signature:
// normalized expression minus the mean expression of the cell's k nearest
// non-targeting neighbors in PC space, matched within the same biological
// replicate.
type SignatureCalculator struct{}

// NewSignatureCalculator creates a new signature calculator
func NewSignatureCalculator() *SignatureCalculator {
	return &SignatureCalculator{}
}

// Compute builds the signature stage record. For a non-targeting cell the
// cell itself is excluded from its own neighborhood, which can shrink an
// exactly-k control pool by one; only the configured fallback decides
// whether an undersized pool is an error.
func (s *SignatureCalculator) Compute(r *stage.Reduced, params mixscape.Params) (*stage.Signature, error) {
	bundle := r.Normalized.Bundle
	rna := r.Normalized.RNA
	rows, cols := rna.Data.Dims()

	ntRows := make(map[int]bool)
	for _, row := range bundle.Groups().Controls() {
		ntRows[row] = true
	}

	out := mat.NewDense(rows, cols, nil)
	cellRow := make([]float64, cols)
	neighborRow := make([]float64, cols)

	for replicate, repRows := range bundle.Replicates() {
		controls := make([]int, 0, len(repRows))
		for _, row := range repRows {
			if ntRows[row] {
				controls = append(controls, row)
			}
		}

		k := params.Neighbors
		if len(controls) < k {
			if params.ControlFallback == mixscape.FallbackShrink && len(controls) > 1 {
				k = len(controls)
			} else {
				return nil, core.NewInsufficientControlsError(replicate, len(controls), k)
			}
		}

		for _, row := range repRows {
			neighbors := matrix.NearestRows(r.Coords, row, controls, k)
			if len(neighbors) == 0 {
				return nil, core.NewInsufficientControlsError(replicate, len(controls), k)
			}

			rna.Row(cellRow, row)
			background := make([]float64, cols)
			for _, n := range neighbors {
				rna.Row(neighborRow, n)
				for j, v := range neighborRow {
					background[j] += v
				}
			}
			scale := 1.0 / float64(len(neighbors))
			for j := range background {
				out.Set(row, j, cellRow[j]-background[j]*scale)
			}
		}
	}

	sig, err := expr.New(rna.CellIDs, rna.Genes, out)
	if err != nil {
		return nil, err
	}
	return &stage.Signature{Reduced: r, Matrix: sig}, nil
}
