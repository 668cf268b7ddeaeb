package csql

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/lib/pq" // load database driver for postgres

	"github.com/yavuzelcil/rustyflow-iot/core/logger"
)

// DB encapsulates a standard sql.DB for the rustyflow postgres database.
type DB struct {
	*sql.DB
}

// ErrNoRows is returned by Scan when QueryRow doesn't return a
// row. In such a case, QueryRow returns a placeholder *Row value that
// defers this error until a Scan.
var ErrNoRows = sql.ErrNoRows

// Open connects to the rustyflow postgres database and verifies the
// connection with a short ping. Unlike the listening socket, the database
// is an optional collaborator, hence an error return instead of a panic.
func Open(dataSourceName string) (*DB, error) {
	logger.Default().Infoln("connecting to postgres database")
	db, err := sql.Open("postgres", dataSourceName)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(5)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return &DB{DB: db}, nil
}
