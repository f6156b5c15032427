// Package postgres is a store.Backend backed by a Postgres database: the
// multi-reader, network-attached option for snapshots shared across
// several query servers instead of one process's local disk.
package postgres

import (
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/geoql-project/geoql/internal/store"
	"github.com/geoql-project/geoql/internal/store/sqlutil"
)

func init() {
	store.Register("postgres", Open)
}

// Open connects to the Postgres instance named by dsn (a standard
// postgres:// connection string) and applies sqlutil.Schema to it.
func Open(dsn string) (store.Backend, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}
	b, err := sqlutil.Open(db, sqlutil.Dollar)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return b, nil
}
