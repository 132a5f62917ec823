package ports

import (
	"context"

	"perturbscope/domain/expr"
	"perturbscope/domain/mixscape"
	"perturbscope/domain/stage"
)

// NormalizerPort produces normalized expression from raw counts.
type NormalizerPort interface {
	Normalize(b *expr.Bundle) (*stage.Normalized, error)
}

// ReducerPort computes the principal-component embedding used for
// control matching.
type ReducerPort interface {
	Reduce(n *stage.Normalized, components int) (*stage.Reduced, error)
}

// SignaturePort computes the perturbation signature by nearest-control
// matching within each biological replicate.
type SignaturePort interface {
	Compute(r *stage.Reduced, params mixscape.Params) (*stage.Signature, error)
}

// ClassifierPort runs the mixture-model classification for every target
// group. Unclassifiable groups are reported in the output, never dropped.
type ClassifierPort interface {
	Classify(ctx context.Context, s *stage.Signature, params mixscape.Params) (*stage.Classified, error)
}

// ExtractorPort filters classified cells into the deduplicated,
// probability-sorted knockout gene list.
type ExtractorPort interface {
	Extract(c *stage.Classified, threshold float64) ([]mixscape.KnockoutGene, error)
}
