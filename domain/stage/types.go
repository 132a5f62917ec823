// Package stage defines the immutable records passed between pipeline
// stages. Each stage consumes the previous record and produces a new one;
// nothing is mutated in place, so any stage can be re-run or tested in
// isolation.
package stage

import (
	"gonum.org/v1/gonum/mat"

	"perturbscope/domain/expr"
	"perturbscope/domain/mixscape"
)

// Normalized holds the expression matrices after normalization. The raw
// bundle is retained for metadata access; its matrices are left untouched.
type Normalized struct {
	Bundle *expr.Bundle
	// RNA is log1p counts-per-10k normalized expression.
	RNA *expr.Matrix
	// Protein is CLR-normalized protein abundance, nil when the dataset
	// carries no protein assay.
	Protein *expr.Matrix
}

// Reduced adds the principal-component embedding used for neighbor
// matching.
type Reduced struct {
	Normalized *Normalized
	// Coords is cells x components.
	Coords *mat.Dense
	// ExplainedVariance is the per-component variance fraction, descending.
	ExplainedVariance []float64
}

// Signature adds the perturbation-signature matrix: per-cell normalized
// expression minus the mean of its matched non-targeting neighbors.
type Signature struct {
	Reduced *Reduced
	Matrix  *expr.Matrix
}

// Classified is the final per-group classification output.
type Classified struct {
	Signature *Signature
	Groups    []mixscape.GroupOutcome
}

// Outcomes returns the classified group outcomes keyed by target gene.
func (c *Classified) Outcomes() map[string]mixscape.GroupOutcome {
	out := make(map[string]mixscape.GroupOutcome, len(c.Groups))
	for _, g := range c.Groups {
		out[g.TargetGene] = g
	}
	return out
}
