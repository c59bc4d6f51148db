package store

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cavena/mobility-cli/internal/model"
	"github.com/cavena/mobility-cli/pkg/geocode"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	s := &PostgresStore{pool: mock}
	return s, mock
}

func TestPostgresStore_CreateRun(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO runs`).
		WithArgs(pgxmock.AnyArg(), "Site Principal", "Lyon", "queued", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	run, err := s.CreateRun(context.Background(), "Site Principal", "Lyon")
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, model.RunStatusQueued, run.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetRun_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT id, site_name, city, status, summaries, state, created_at, updated_at FROM runs WHERE id = \$1`).
		WithArgs("nonexistent-run").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetRun(context.Background(), "nonexistent-run")
	require.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpdateRunStatus_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE runs SET status`).
		WithArgs("failed", pgxmock.AnyArg(), "nonexistent-run").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := s.UpdateRunStatus(context.Background(), "nonexistent-run", model.RunStatusFailed)
	require.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CompleteRun(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE runs SET status = \$1, summaries = \$2, state = \$3`).
		WithArgs("complete", pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), "run-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	state := &model.RunState{CurrentStage: model.StageMap}
	summaries := []model.StageSummary{{Stage: model.StageCSV, Attempted: 1, Succeeded: 1}}
	err := s.CompleteRun(context.Background(), "run-1", model.RunStatusComplete, summaries, state)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_LookupGeocode_Miss(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT lat, lon, source, matched FROM geocode_cache`).
		WithArgs("unknown address").
		WillReturnError(pgx.ErrNoRows)

	entry, err := s.LookupGeocode(context.Background(), "unknown address")
	require.NoError(t, err)
	assert.Nil(t, entry)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_LookupGeocode_Hit(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	rows := pgxmock.NewRows([]string{"lat", "lon", "source", "matched"}).
		AddRow(45.75, 4.85, "ban", true)
	mock.ExpectQuery(`SELECT lat, lon, source, matched FROM geocode_cache`).
		WithArgs("12 rue des lilas lyon").
		WillReturnRows(rows)

	entry, err := s.LookupGeocode(context.Background(), "12 rue des lilas lyon")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, model.GeoPoint{Lat: 45.75, Lon: 4.85, Source: "ban"}, entry.Point)
	assert.True(t, entry.Matched)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_StoreGeocode(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO geocode_cache`).
		WithArgs("addr", 1.0, 2.0, "nominatim", true, pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	entry := geocode.Entry{Point: model.GeoPoint{Lat: 1, Lon: 2, Source: "nominatim"}, Matched: true}
	err := s.StoreGeocode(context.Background(), "addr", entry, time.Hour)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListRuns_StatusFilter(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	now := time.Now().UTC()
	rows := pgxmock.NewRows([]string{"id", "site_name", "city", "status", "summaries", "state", "created_at", "updated_at"}).
		AddRow("run-1", "Site A", "Lyon", "complete", []byte(nil), []byte(nil), now, now)
	mock.ExpectQuery(`SELECT .* FROM runs WHERE 1=1 AND status = \$1`).
		WithArgs("complete", 100).
		WillReturnRows(rows)

	runs, err := s.ListRuns(context.Background(), RunFilter{Status: model.RunStatusComplete})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "run-1", runs[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
