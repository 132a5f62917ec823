package app

import (
	"context"

	"perturbscope/domain/cell"
	"perturbscope/domain/core"
	"perturbscope/domain/mixscape"
	"perturbscope/domain/stage"
	"perturbscope/ports"
)

// ExtractService re-runs knockout gene extraction against a stored run,
// allowing the posterior threshold to be revisited without reclassifying.
type ExtractService struct {
	ledger    ports.LedgerPort
	extractor ports.ExtractorPort
}

// NewExtractService creates a new extract service
func NewExtractService(ledger ports.LedgerPort, extractor ports.ExtractorPort) *ExtractService {
	return &ExtractService{ledger: ledger, extractor: extractor}
}

// Extract loads the run, applies the threshold, and returns the refreshed
// gene list without touching the stored record.
func (s *ExtractService) Extract(ctx context.Context, runID core.RunID, threshold float64) ([]mixscape.KnockoutGene, error) {
	run, err := s.ledger.GetRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	classified := &stage.Classified{Groups: run.Groups}
	return s.extractor.Extract(classified, threshold)
}

// NTInvariantHolds verifies that every non-targeting cell in the stored
// run is labeled NT. The classifier guarantees this by construction; the
// check exists for audit tooling over externally produced records.
func NTInvariantHolds(run *mixscape.RunRecord) bool {
	for _, g := range run.Groups {
		for _, c := range g.Cells {
			if g.TargetGene == cell.NTGroup && c.Label != cell.LabelNT {
				return false
			}
		}
	}
	return true
}
