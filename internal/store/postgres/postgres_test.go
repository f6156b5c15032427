package postgres

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/geoql-project/geoql/internal/store/sqlutil"
	"github.com/geoql-project/geoql/pkg/object"
)

func newMockBackend(t *testing.T) (*sqlutil.Backend, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	mock.ExpectExec(".*").WillReturnResult(sqlmock.NewResult(0, 0))
	b, err := sqlutil.Open(db, sqlutil.Dollar)
	require.NoError(t, err)
	return b, mock
}

func TestBackendGetReturnsNodeFromMockedRows(t *testing.T) {
	b, mock := newMockBackend(t)
	mock.ExpectQuery("SELECT id FROM nodes").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(1)))
	mock.ExpectQuery("SELECT key, value FROM node_tags").
		WillReturnRows(sqlmock.NewRows([]string{"key", "value"}).AddRow("amenity", "cafe"))
	mock.ExpectQuery("SELECT lat_e7, lon_e7 FROM nodes").
		WillReturnRows(sqlmock.NewRows([]string{"lat_e7", "lon_e7"}).AddRow(int32(507000000), int32(70000000)))

	o, ok, err := b.Get(context.Background(), object.VariantNode, 1)
	require.NoError(t, err)
	require.True(t, ok)
	require.NotNil(t, o.Node)
	require.Equal(t, "cafe", o.Node.Tags["amenity"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBackendSnapshotTimestampReturnsEmptyWithNoRows(t *testing.T) {
	b, mock := newMockBackend(t)
	mock.ExpectQuery("SELECT base_ts, area_ts FROM snapshot_meta").
		WillReturnRows(sqlmock.NewRows([]string{"base_ts", "area_ts"}))

	base, area, err := b.SnapshotTimestamp(context.Background())
	require.NoError(t, err)
	require.Empty(t, base)
	require.Empty(t, area)
}
