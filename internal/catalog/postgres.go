package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/shark-voyager/voyager-cli/internal/grid"
)

// Pool is the subset of pgxpool.Pool the catalog uses. Tests substitute a
// mock pool.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool Pool
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	pgxCfg.MaxConns = 5
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

// NewPostgresWithPool wraps an existing pool. Used by tests.
func NewPostgresWithPool(pool Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	command    TEXT NOT NULL,
	region     JSONB NOT NULL,
	start_date TEXT NOT NULL,
	end_date   TEXT NOT NULL,
	status     TEXT NOT NULL DEFAULT 'running',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS run_variables (
	run_id  TEXT NOT NULL REFERENCES runs(id),
	name    TEXT NOT NULL,
	status  TEXT NOT NULL,
	reason  TEXT,
	outputs JSONB,
	PRIMARY KEY (run_id, name)
);

CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_run_variables_run_id ON run_variables(run_id);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) CreateRun(ctx context.Context, command string, region grid.Region, startDate, endDate string) (*Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	regionJSON, err := json.Marshal(region)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal region")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO runs (id, command, region, start_date, end_date, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		id, command, regionJSON, startDate, endDate, string(RunRunning), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert run")
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

func (s *PostgresStore) CompleteRun(ctx context.Context, runID string, status RunStatus) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE runs SET status = $1, updated_at = $2 WHERE id = $3`,
		string(status), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: complete run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("postgres: run %s not found", runID)
	}
	return nil
}

func (s *PostgresStore) GetRun(ctx context.Context, runID string) (*Run, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, command, region, start_date, end_date, status, created_at, updated_at
		 FROM runs WHERE id = $1`, runID)
	return scanPGRun(row)
}

func (s *PostgresStore) ListRuns(ctx context.Context, filter RunFilter) ([]Run, error) {
	query := `SELECT id, command, region, start_date, end_date, status, created_at, updated_at
	          FROM runs WHERE ($1 = '' OR status = $1) ORDER BY created_at DESC LIMIT $2`
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.pool.Query(ctx, query, string(filter.Status), limit)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanPGRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: iterate runs")
}

func (s *PostgresStore) RecordVariable(ctx context.Context, v Variable) error {
	outputsJSON, err := json.Marshal(v.Outputs)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal outputs")
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO run_variables (run_id, name, status, reason, outputs)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (run_id, name) DO UPDATE SET status = $3, reason = $4, outputs = $5`,
		v.RunID, v.Name, v.Status, v.Reason, outputsJSON,
	)
	return eris.Wrapf(err, "postgres: record variable %s", v.Name)
}

func (s *PostgresStore) ListVariables(ctx context.Context, runID string) ([]Variable, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT run_id, name, status, reason, outputs FROM run_variables WHERE run_id = $1 ORDER BY name`,
		runID)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: list variables %s", runID)
	}
	defer rows.Close()

	var vars []Variable
	for rows.Next() {
		var v Variable
		var reason *string
		var outputsJSON []byte
		if err := rows.Scan(&v.RunID, &v.Name, &v.Status, &reason, &outputsJSON); err != nil {
			return nil, eris.Wrap(err, "postgres: scan variable")
		}
		if reason != nil {
			v.Reason = *reason
		}
		if len(outputsJSON) > 0 {
			if err := json.Unmarshal(outputsJSON, &v.Outputs); err != nil {
				return nil, eris.Wrap(err, "postgres: unmarshal outputs")
			}
		}
		vars = append(vars, v)
	}
	return vars, eris.Wrap(rows.Err(), "postgres: iterate variables")
}

func scanPGRun(row pgx.Row) (*Run, error) {
	var run Run
	var regionJSON []byte
	var status string
	if err := row.Scan(&run.ID, &run.Command, &regionJSON, &run.StartDate, &run.EndDate,
		&status, &run.CreatedAt, &run.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, eris.Wrap(err, "postgres: run not found")
		}
		return nil, eris.Wrap(err, "postgres: scan run")
	}
	run.Status = RunStatus(status)
	if err := json.Unmarshal(regionJSON, &run.Region); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal region")
	}
	return &run, nil
}
