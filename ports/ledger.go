package ports

import (
	"context"

	"perturbscope/domain/core"
	"perturbscope/domain/mixscape"
)

// LedgerPort records completed classification runs for audit and later
// re-extraction.
type LedgerPort interface {
	SaveRun(ctx context.Context, run *mixscape.RunRecord) error
	GetRun(ctx context.Context, id core.RunID) (*mixscape.RunRecord, error)
	ListRuns(ctx context.Context, datasetID core.DatasetID) ([]mixscape.RunRecord, error)
}
