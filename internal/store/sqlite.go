package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/cavena/mobility-cli/internal/model"
	"github.com/cavena/mobility-cli/pkg/geocode"
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
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	site_name  TEXT NOT NULL DEFAULT '',
	city       TEXT NOT NULL DEFAULT '',
	status     TEXT NOT NULL DEFAULT 'queued',
	summaries  TEXT,
	state      TEXT,
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS geocode_cache (
	key        TEXT PRIMARY KEY,
	lat        REAL NOT NULL,
	lon        REAL NOT NULL,
	source     TEXT NOT NULL DEFAULT '',
	matched    INTEGER NOT NULL DEFAULT 1,
	cached_at  DATETIME NOT NULL DEFAULT (datetime('now')),
	expires_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_runs_site ON runs(site_name);
CREATE INDEX IF NOT EXISTS idx_geocode_cache_expires_at ON geocode_cache(expires_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateRun(ctx context.Context, siteName, city string) (*model.Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, site_name, city, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		id, siteName, city, string(model.RunStatusQueued), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert run")
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

func (s *SQLiteStore) UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update run status %s", runID)
	}
	return checkRowsAffected(res, runID)
}

func (s *SQLiteStore) CompleteRun(ctx context.Context, runID string, status model.RunStatus, summaries []model.StageSummary, state *model.RunState) error {
	summariesJSON, err := json.Marshal(summaries)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal summaries")
	}
	stateJSON, err := json.Marshal(state)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal state")
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, summaries = ?, state = ?, updated_at = ? WHERE id = ?`,
		string(status), string(summariesJSON), string(stateJSON), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: complete run %s", runID)
	}
	return checkRowsAffected(res, runID)
}

func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, site_name, city, status, summaries, state, created_at, updated_at FROM runs WHERE id = ?`,
		runID,
	)
	return scanRun(row)
}

func (s *SQLiteStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query := `SELECT id, site_name, city, status, summaries, state, created_at, updated_at FROM runs WHERE 1=1`
	var args []any

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	if filter.Site != "" {
		query += ` AND site_name = ?`
		args = append(args, filter.Site)
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list runs iterate")
}

func (s *SQLiteStore) LookupGeocode(ctx context.Context, key string) (*geocode.Entry, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT lat, lon, source, matched FROM geocode_cache
		 WHERE key = ? AND expires_at > datetime('now')`,
		key,
	)

	var e geocode.Entry
	var matched int
	err := row.Scan(&e.Point.Lat, &e.Point.Lon, &e.Point.Source, &matched)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: lookup geocode")
	}
	e.Matched = matched != 0
	return &e, nil
}

func (s *SQLiteStore) StoreGeocode(ctx context.Context, key string, entry geocode.Entry, ttl time.Duration) error {
	now := time.Now().UTC()
	matched := 0
	if entry.Matched {
		matched = 1
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO geocode_cache (key, lat, lon, source, matched, cached_at, expires_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET
			lat = excluded.lat, lon = excluded.lon, source = excluded.source,
			matched = excluded.matched, cached_at = excluded.cached_at,
			expires_at = excluded.expires_at`,
		key, entry.Point.Lat, entry.Point.Lon, entry.Point.Source, matched, now, now.Add(ttl),
	)
	return eris.Wrap(err, "sqlite: store geocode")
}

func (s *SQLiteStore) DeleteExpiredGeocodes(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM geocode_cache WHERE expires_at <= datetime('now')`,
	)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: delete expired geocodes")
	}
	n, err := res.RowsAffected()
	return int(n), eris.Wrap(err, "sqlite: rows affected")
}

// helpers

func checkRowsAffected(res sql.Result, runID string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "%s", runID)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanRun(row scannable) (*model.Run, error) {
	var r model.Run
	var summariesJSON, stateJSON sql.NullString

	err := row.Scan(&r.ID, &r.SiteName, &r.City, &r.Status, &summariesJSON, &stateJSON, &r.CreatedAt, &r.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan run")
	}

	if summariesJSON.Valid && summariesJSON.String != "" {
		if err := json.Unmarshal([]byte(summariesJSON.String), &r.Summaries); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal summaries")
		}
	}
	// A nil state marshals as the literal "null"; keep run.State nil then.
	if stateJSON.Valid && stateJSON.String != "" && stateJSON.String != "null" {
		r.State = &model.RunState{}
		if err := json.Unmarshal([]byte(stateJSON.String), r.State); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal state")
		}
	}
	return &r, nil
}
