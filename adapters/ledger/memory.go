// Package ledger persists classification runs. The SQL adapter backs the
// CLI and API; the in-memory adapter backs tests.
package ledger

import (
	"context"
	"sync"

	"perturbscope/domain/core"
	"perturbscope/domain/mixscape"
)

// Memory is an in-memory run ledger, safe for concurrent use.
type Memory struct {
	mu   sync.RWMutex
	runs map[core.RunID]mixscape.RunRecord
}

// NewMemory creates a new in-memory ledger
func NewMemory() *Memory {
	return &Memory{runs: make(map[core.RunID]mixscape.RunRecord)}
}

// SaveRun stores a copy of the run record.
func (m *Memory) SaveRun(ctx context.Context, run *mixscape.RunRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs[run.ID] = *run
	return nil
}

// GetRun returns the run with the given ID.
func (m *Memory) GetRun(ctx context.Context, id core.RunID) (*mixscape.RunRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	run, ok := m.runs[id]
	if !ok {
		return nil, core.ErrRunNotFound
	}
	return &run, nil
}

// ListRuns returns runs for a dataset, or all runs when datasetID is empty.
func (m *Memory) ListRuns(ctx context.Context, datasetID core.DatasetID) ([]mixscape.RunRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]mixscape.RunRecord, 0, len(m.runs))
	for _, run := range m.runs {
		if datasetID != "" && run.DatasetID != datasetID {
			continue
		}
		out = append(out, run)
	}
	return out, nil
}
