package ports

import (
	"context"

	"perturbscope/domain/expr"
)

// DatasetReaderPort loads a pre-bundled single-cell dataset from a
// directory of assay files.
type DatasetReaderPort interface {
	Read(ctx context.Context, dir string) (*expr.Bundle, error)
}
