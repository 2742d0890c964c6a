package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/shark-voyager/voyager-cli/internal/grid"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck,gosec
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	command    TEXT NOT NULL,
	region     TEXT NOT NULL,
	start_date TEXT NOT NULL,
	end_date   TEXT NOT NULL,
	status     TEXT NOT NULL DEFAULT 'running',
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS run_variables (
	run_id  TEXT NOT NULL REFERENCES runs(id),
	name    TEXT NOT NULL,
	status  TEXT NOT NULL,
	reason  TEXT,
	outputs TEXT,
	PRIMARY KEY (run_id, name)
);

CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_run_variables_run_id ON run_variables(run_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateRun(ctx context.Context, command string, region grid.Region, startDate, endDate string) (*Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	regionJSON, err := json.Marshal(region)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal region")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO runs (id, command, region, start_date, end_date, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, command, string(regionJSON), startDate, endDate, string(RunRunning), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert run")
	}

	return &Run{
		ID:        id,
		Command:   command,
		Region:    region,
		StartDate: startDate,
		EndDate:   endDate,
		Status:    RunRunning,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (s *SQLiteStore) CompleteRun(ctx context.Context, runID string, status RunStatus) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: complete run %s", runID)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return eris.Errorf("sqlite: run %s not found", runID)
	}
	return nil
}

func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, command, region, start_date, end_date, status, created_at, updated_at
		 FROM runs WHERE id = ?`, runID)
	return scanRun(row)
}

func (s *SQLiteStore) ListRuns(ctx context.Context, filter RunFilter) ([]Run, error) {
	query := `SELECT id, command, region, start_date, end_date, status, created_at, updated_at
	          FROM runs WHERE 1=1`
	var args []any
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY created_at DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close() //nolint:errcheck

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: iterate runs")
}

func (s *SQLiteStore) RecordVariable(ctx context.Context, v Variable) error {
	outputsJSON, err := json.Marshal(v.Outputs)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal outputs")
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO run_variables (run_id, name, status, reason, outputs)
		 VALUES (?, ?, ?, ?, ?)`,
		v.RunID, v.Name, v.Status, v.Reason, string(outputsJSON),
	)
	return eris.Wrapf(err, "sqlite: record variable %s", v.Name)
}

func (s *SQLiteStore) ListVariables(ctx context.Context, runID string) ([]Variable, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, name, status, reason, outputs FROM run_variables WHERE run_id = ? ORDER BY name`,
		runID)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list variables %s", runID)
	}
	defer rows.Close() //nolint:errcheck

	var vars []Variable
	for rows.Next() {
		var v Variable
		var reason sql.NullString
		var outputsJSON sql.NullString
		if err := rows.Scan(&v.RunID, &v.Name, &v.Status, &reason, &outputsJSON); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan variable")
		}
		v.Reason = reason.String
		if outputsJSON.Valid && outputsJSON.String != "" {
			if err := json.Unmarshal([]byte(outputsJSON.String), &v.Outputs); err != nil {
				return nil, eris.Wrap(err, "sqlite: unmarshal outputs")
			}
		}
		vars = append(vars, v)
	}
	return vars, eris.Wrap(rows.Err(), "sqlite: iterate variables")
}

// scanner covers *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*Run, error) {
	var run Run
	var regionJSON string
	var status string
	if err := row.Scan(&run.ID, &run.Command, &regionJSON, &run.StartDate, &run.EndDate,
		&status, &run.CreatedAt, &run.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, eris.Wrap(err, "sqlite: run not found")
		}
		return nil, eris.Wrap(err, "sqlite: scan run")
	}
	run.Status = RunStatus(status)
	if err := json.Unmarshal([]byte(regionJSON), &run.Region); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal region")
	}
	return &run, nil
}
