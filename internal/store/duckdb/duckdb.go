// Package duckdb is a store.Backend backed by an embedded DuckDB database
// file: a single-process, columnar-on-disk snapshot suited to analytical
// scans over a map-data extract too large to hold comfortably in memory.
package duckdb

import (
	"database/sql"
	"fmt"

	_ "github.com/marcboeker/go-duckdb"

	"github.com/geoql-project/geoql/internal/store"
	"github.com/geoql-project/geoql/internal/store/sqlutil"
)

func init() {
	store.Register("duckdb", Open)
}

// Open opens (creating if necessary) the DuckDB database file at dsn and
// applies sqlutil.Schema to it.
func Open(dsn string) (store.Backend, error) {
	db, err := sql.Open("duckdb", dsn)
	if err != nil {
		return nil, fmt.Errorf("duckdb: open %q: %w", dsn, err)
	}
	b, err := sqlutil.Open(db, sqlutil.QuestionMark)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return b, nil
}
