package expr

import (
	"fmt"

	"perturbscope/domain/cell"
	"perturbscope/domain/core"
)

// Bundle is a loaded single-cell dataset: RNA counts, optional protein
// counts, and per-cell metadata, row-aligned across all three.
type Bundle struct {
	ID      core.DatasetID
	Name    string
	RNA     *Matrix
	Protein *Matrix
	Meta    []cell.Metadata
}

// Validate checks row alignment and the metadata invariants: every cell
// carries valid annotations and belongs to exactly one perturbation group.
func (b *Bundle) Validate() error {
	if b.RNA == nil {
		return fmt.Errorf("%w: bundle has no RNA matrix", core.ErrEmptyMatrix)
	}
	n := b.RNA.Cells()
	if len(b.Meta) != n {
		return core.NewDimensionMismatchError("cell metadata", len(b.Meta), n)
	}
	if b.Protein != nil && b.Protein.Cells() != n {
		return core.NewDimensionMismatchError("protein matrix rows", b.Protein.Cells(), n)
	}
	for i, m := range b.Meta {
		if err := m.Validate(); err != nil {
			return fmt.Errorf("%w: %v", core.ErrMalformedMetadata, err)
		}
		if m.CellID != b.RNA.CellIDs[i] {
			return fmt.Errorf("%w: metadata row %d is %s, matrix row is %s",
				core.ErrMalformedMetadata, i, m.CellID, b.RNA.CellIDs[i])
		}
	}
	if len(cell.BuildGroupIndex(b.Meta).Controls()) == 0 {
		return fmt.Errorf("%w: dataset has no non-targeting control cells", core.ErrMalformedMetadata)
	}
	return nil
}

// Groups returns the perturbation group index for the bundle.
func (b *Bundle) Groups() cell.GroupIndex {
	return cell.BuildGroupIndex(b.Meta)
}

// Replicates returns cell rows partitioned by biological replicate.
func (b *Bundle) Replicates() map[string][]int {
	return cell.ReplicateIndex(b.Meta)
}
