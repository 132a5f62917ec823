package ledger

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	// Database drivers are selected by DSN at startup.
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"perturbscope/domain/core"
	"perturbscope/domain/mixscape"
	apperrors "perturbscope/internal/errors"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	dataset_id TEXT NOT NULL,
	payload    TEXT NOT NULL,
	started_at TIMESTAMP NOT NULL,
	ended_at   TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS runs_dataset_idx ON runs (dataset_id);
`

// SQL is a run ledger backed by Postgres ("postgres" driver) or a local
// SQLite file ("sqlite" driver). Run records are stored as JSON payloads;
// the ledger is an audit trail, not a query surface.
type SQL struct {
	db *sqlx.DB
}

// Open connects, verifies the connection, and ensures the schema exists.
func Open(driver, dsn string) (*SQL, error) {
	db, err := sqlx.Connect(driver, dsn)
	if err != nil {
		return nil, apperrors.LedgerError("connecting to run ledger", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, apperrors.LedgerError("creating ledger schema", err)
	}
	return &SQL{db: db}, nil
}

// Close releases the underlying connection pool.
func (s *SQL) Close() error {
	return s.db.Close()
}

type runRow struct {
	ID        string    `db:"id"`
	DatasetID string    `db:"dataset_id"`
	Payload   string    `db:"payload"`
	StartedAt time.Time `db:"started_at"`
	EndedAt   time.Time `db:"ended_at"`
}

// SaveRun upserts the run record.
func (s *SQL) SaveRun(ctx context.Context, run *mixscape.RunRecord) error {
	payload, err := json.Marshal(run)
	if err != nil {
		return apperrors.LedgerError("encoding run record", err)
	}
	query := s.db.Rebind(`
		INSERT INTO runs (id, dataset_id, payload, started_at, ended_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			payload = excluded.payload,
			ended_at = excluded.ended_at`)
	_, err = s.db.ExecContext(ctx, query,
		run.ID.String(), run.DatasetID.String(), string(payload),
		run.StartedAt.Time(), run.EndedAt.Time())
	if err != nil {
		return apperrors.LedgerError("saving run record", err)
	}
	return nil
}

// GetRun loads one run record by ID.
func (s *SQL) GetRun(ctx context.Context, id core.RunID) (*mixscape.RunRecord, error) {
	var row runRow
	query := s.db.Rebind(`SELECT id, dataset_id, payload, started_at, ended_at FROM runs WHERE id = ?`)
	if err := s.db.GetContext(ctx, &row, query, id.String()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, core.ErrRunNotFound
		}
		return nil, apperrors.LedgerError("loading run record", err)
	}
	return decodeRun(row)
}

// ListRuns returns runs for a dataset, or all runs when datasetID is empty.
func (s *SQL) ListRuns(ctx context.Context, datasetID core.DatasetID) ([]mixscape.RunRecord, error) {
	var rows []runRow
	var err error
	if datasetID == "" {
		err = s.db.SelectContext(ctx, &rows,
			`SELECT id, dataset_id, payload, started_at, ended_at FROM runs ORDER BY started_at`)
	} else {
		query := s.db.Rebind(`SELECT id, dataset_id, payload, started_at, ended_at FROM runs WHERE dataset_id = ? ORDER BY started_at`)
		err = s.db.SelectContext(ctx, &rows, query, datasetID.String())
	}
	if err != nil {
		return nil, apperrors.LedgerError("listing run records", err)
	}

	out := make([]mixscape.RunRecord, 0, len(rows))
	for _, row := range rows {
		run, err := decodeRun(row)
		if err != nil {
			return nil, err
		}
		out = append(out, *run)
	}
	return out, nil
}

func decodeRun(row runRow) (*mixscape.RunRecord, error) {
	var run mixscape.RunRecord
	if err := json.Unmarshal([]byte(row.Payload), &run); err != nil {
		return nil, apperrors.LedgerError("decoding run record", err)
	}
	return &run, nil
}
