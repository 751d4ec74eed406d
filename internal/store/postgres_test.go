package store

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/kval/internal/model"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	return &PostgresStore{pool: mock}, mock
}

func TestPostgresGetSnapshotNotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT payload FROM snapshots WHERE slot = \$1`).
		WithArgs("current").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetSnapshot(context.Background())
	require.True(t, eris.Is(err, ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresGetSnapshot(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	payload, err := json.Marshal(testSnapshot())
	require.NoError(t, err)
	mock.ExpectQuery(`SELECT payload FROM snapshots WHERE slot = \$1`).
		WithArgs("current").
		WillReturnRows(pgxmock.NewRows([]string{"payload"}).AddRow(payload))

	got, err := s.GetSnapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, testSnapshot(), got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSaveSnapshotUpsert(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO snapshots .* ON CONFLICT \(slot\) DO UPDATE`).
		WithArgs("current", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, s.SaveSnapshot(context.Background(), testSnapshot()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSavePolicyUpsert(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO policies .* ON CONFLICT \(slot\) DO UPDATE`).
		WithArgs("current", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, s.SavePolicy(context.Background(), &model.Policy{MinReliability: 0.7}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSaveReport(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO reports`).
		WithArgs(pgxmock.AnyArg(), "snap-001", model.ModeDeterministic, pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	id, err := s.SaveReport(context.Background(), testReport("snap-001", 1))
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresGetLatestReportNotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT payload FROM reports ORDER BY created_at DESC`).
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetLatestReport(context.Background())
	require.True(t, eris.Is(err, ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresListReports(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	report := testReport("snap-001", 2)
	payload, err := json.Marshal(report)
	require.NoError(t, err)
	now := time.Now().UTC()

	mock.ExpectQuery(`SELECT id, payload, created_at FROM reports`).
		WithArgs(5).
		WillReturnRows(pgxmock.NewRows([]string{"id", "payload", "created_at"}).
			AddRow("report-1", payload, now))

	history, err := s.ListReports(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "report-1", history[0].ID)
	assert.Equal(t, "snap-001", history[0].Report.SnapshotID)
	assert.Len(t, history[0].Report.Issues, 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresMigrate(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS snapshots`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
