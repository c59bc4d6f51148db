package store

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/cavena/mobility-cli/internal/model"
	"github.com/cavena/mobility-cli/pkg/geocode"
)

// pgxQuerier is the subset of pgxpool.Pool the store uses. pgxmock
// satisfies it in tests.
type pgxQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    pgxQuerier
	closeFn func()
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	pgxCfg.MaxConns = 10
	pgxCfg.MinConns = 2
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
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	site_name  TEXT NOT NULL DEFAULT '',
	city       TEXT NOT NULL DEFAULT '',
	status     TEXT NOT NULL DEFAULT 'queued',
	summaries  JSONB,
	state      JSONB,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS geocode_cache (
	key        TEXT PRIMARY KEY,
	lat        DOUBLE PRECISION NOT NULL,
	lon        DOUBLE PRECISION NOT NULL,
	source     TEXT NOT NULL DEFAULT '',
	matched    BOOLEAN NOT NULL DEFAULT true,
	cached_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	expires_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_runs_site ON runs(site_name);
CREATE INDEX IF NOT EXISTS idx_geocode_cache_expires_at ON geocode_cache(expires_at);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) CreateRun(ctx context.Context, siteName, city string) (*model.Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO runs (id, site_name, city, status, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		id, siteName, city, string(model.RunStatusQueued), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert run")
	}

	return &model.Run{
		ID:        id,
		SiteName:  siteName,
		City:      city,
		Status:    model.RunStatusQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (s *PostgresStore) UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE runs SET status = $1, updated_at = $2 WHERE id = $3`,
		string(status), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update run status %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "%s", runID)
	}
	return nil
}

func (s *PostgresStore) CompleteRun(ctx context.Context, runID string, status model.RunStatus, summaries []model.StageSummary, state *model.RunState) error {
	summariesJSON, err := json.Marshal(summaries)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal summaries")
	}
	stateJSON, err := json.Marshal(state)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal state")
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE runs SET status = $1, summaries = $2, state = $3, updated_at = $4 WHERE id = $5`,
		string(status), summariesJSON, stateJSON, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: complete run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "%s", runID)
	}
	return nil
}

func (s *PostgresStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, site_name, city, status, summaries, state, created_at, updated_at FROM runs WHERE id = $1`,
		runID,
	)
	return scanPgRun(row)
}

func (s *PostgresStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query := `SELECT id, site_name, city, status, summaries, state, created_at, updated_at FROM runs WHERE 1=1`
	var args []any

	if filter.Status != "" {
		args = append(args, string(filter.Status))
		query += ` AND status = $1`
	}
	if filter.Site != "" {
		args = append(args, filter.Site)
		query += ` AND site_name = $` + strconv.Itoa(len(args))
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	args = append(args, limit)
	query += ` LIMIT $` + strconv.Itoa(len(args))

	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += ` OFFSET $` + strconv.Itoa(len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		r, err := scanPgRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list runs iterate")
}

func (s *PostgresStore) LookupGeocode(ctx context.Context, key string) (*geocode.Entry, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT lat, lon, source, matched FROM geocode_cache WHERE key = $1 AND expires_at > now()`,
		key,
	)

	var e geocode.Entry
	err := row.Scan(&e.Point.Lat, &e.Point.Lon, &e.Point.Source, &e.Matched)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: lookup geocode")
	}
	return &e, nil
}

func (s *PostgresStore) StoreGeocode(ctx context.Context, key string, entry geocode.Entry, ttl time.Duration) error {
	now := time.Now().UTC()
	_, err := s.pool.Exec(ctx,
		`INSERT INTO geocode_cache (key, lat, lon, source, matched, cached_at, expires_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (key) DO UPDATE SET
			lat = EXCLUDED.lat, lon = EXCLUDED.lon, source = EXCLUDED.source,
			matched = EXCLUDED.matched, cached_at = EXCLUDED.cached_at,
			expires_at = EXCLUDED.expires_at`,
		key, entry.Point.Lat, entry.Point.Lon, entry.Point.Source, entry.Matched, now, now.Add(ttl),
	)
	return eris.Wrap(err, "postgres: store geocode")
}

func (s *PostgresStore) DeleteExpiredGeocodes(ctx context.Context) (int, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM geocode_cache WHERE expires_at <= now()`,
	)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: delete expired geocodes")
	}
	return int(tag.RowsAffected()), nil
}

func scanPgRun(row pgx.Row) (*model.Run, error) {
	var r model.Run
	var summariesJSON, stateJSON []byte

	err := row.Scan(&r.ID, &r.SiteName, &r.City, &r.Status, &summariesJSON, &stateJSON, &r.CreatedAt, &r.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: scan run")
	}

	if len(summariesJSON) > 0 {
		if err := json.Unmarshal(summariesJSON, &r.Summaries); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal summaries")
		}
	}
	// A nil state marshals as the literal "null"; keep run.State nil then.
	if len(stateJSON) > 0 && string(stateJSON) != "null" {
		r.State = &model.RunState{}
		if err := json.Unmarshal(stateJSON, r.State); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal state")
		}
	}
	return &r, nil
}

