// Package storage is the Storage Adapter (spec.md §4.1): a thin imperative
// wrapper over the native SQLite engine (github.com/mattn/go-sqlite3) and
// the origin-private file pool (storage/filepool), exposing
// Open/Execute/Wipe/Close.
//
// A *sql.DB pinned to a single connection, opened against a fixed logical
// path, with custom functions registered on every fresh connection.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"go.sqlitecoord.dev/core/dberrors"
	"go.sqlitecoord.dev/core/sqlfn"
	"go.sqlitecoord.dev/core/storage/filepool"
)

// driverSeq gives every Adapter its own go-sqlite3 driver registration,
// since sql.Register panics if the same name is registered twice and each
// Adapter wants its own ConnectHook closure for custom-function state.
var driverSeq atomic.Uint64

// Config names the database file within an origin's directory.
type Config struct {
	Dir          string // origin directory; must exist
	DatabaseName string // default "worker.db"
}

// Adapter is the Storage Adapter for one origin. It must not be shared
// concurrently by more than one node, exclusivity is enforced by the
// filepool lock acquired in Open, mirroring spec.md invariant I2.
type Adapter struct {
	cfg    Config
	db     *sql.DB
	handle filepool.Handle
	path   string
}

// New returns an unopened Adapter. Call Open before use.
func New(cfg Config) *Adapter {
	if cfg.DatabaseName == "" {
		cfg.DatabaseName = "worker.db"
	}
	return &Adapter{cfg: cfg, path: filepath.Join(cfg.Dir, cfg.DatabaseName)}
}

// Open installs (idempotently, via a fresh driver registration per
// Adapter) the custom function registry, acquires the origin-private
// exclusive file-pool handle, and opens the database connection.
//
// Fails with dberrors.StorageUnavailable if the file pool cannot grant
// exclusive access (e.g. another leader is already holding it, this
// should not happen if Open is only called after winning election, but
// is checked regardless since it is cheap and catches programmer error).
func (a *Adapter) Open(ctx context.Context) error {
	if err := os.MkdirAll(a.cfg.Dir, 0755); err != nil {
		return dberrors.Newf(dberrors.StorageUnavailable, "creating origin directory: %v", err)
	}

	var lockPath = a.path + ".leader"
	var h, err = filepool.Open(lockPath, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return dberrors.Newf(dberrors.StorageUnavailable, "acquiring file-pool exclusivity: %v", err)
	}
	a.handle = h

	var driverName = fmt.Sprintf("sqlitecoord-%d", driverSeq.Add(1))
	if err := sqlfn.Register(driverName); err != nil {
		h.Close()
		return dberrors.Newf(dberrors.StorageUnavailable, "registering custom functions: %v", err)
	}

	var db *sql.DB
	if db, err = sql.Open(driverName, a.path); err != nil {
		h.Close()
		return dberrors.Newf(dberrors.StorageUnavailable, "opening sqlite database: %v", err)
	}
	// Exactly one connection: the engine must not be re-entered (spec.md §5),
	// and this package assumes a single physical connection throughout
	// (Execute's "SELECT changes()" follow-up relies on it).
	db.SetMaxOpenConns(1)

	if err = db.PingContext(ctx); err != nil {
		db.Close()
		h.Close()
		return dberrors.Newf(dberrors.StorageUnavailable, "opening sqlite database: %v", err)
	}
	a.db = db

	if opts, err := CompiledOptions(ctx, db); err != nil {
		log.WithError(err).Debug("could not query sqlite compile_options")
	} else {
		var _, walCapable = opts["ENABLE_BATCH_ATOMIC_WRITE"]
		log.WithField("walCapable", walCapable).Debug("opened storage adapter")
	}
	return nil
}

// Execute compiles and runs a single statement, binding |args| in order.
// Column conversion follows the table in spec.md §4.1. Non-row statements
// return a "Rows affected: <N>" summary using the engine's own change
// count (sqlite3_changes), queried on the same pinned connection.
func (a *Adapter) Execute(ctx context.Context, sqlText string, args []Value) (Result, error) {
	if a.db == nil {
		return Result{}, dberrors.New(dberrors.StorageUnavailable, "adapter is not open")
	}

	var driverArgs = make([]any, len(args))
	for i, v := range args {
		driverArgs[i] = v.driverValue()
	}

	var stmt, err = a.db.PrepareContext(ctx, sqlText)
	if err != nil {
		return Result{}, translateEngineErr(err)
	}
	defer stmt.Close()

	rows, err := stmt.QueryContext(ctx, driverArgs...)
	if err != nil {
		return Result{}, translateEngineErr(err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return Result{}, translateEngineErr(err)
	}

	if len(cols) == 0 {
		// Step the statement once so it actually runs; a zero-column
		// statement yields no rows, so Next reports false on completion.
		rows.Next()
		var rowsErr = rows.Err()
		rows.Close() // release the pinned connection before querying it again below
		if rowsErr != nil {
			return Result{}, translateEngineErr(rowsErr)
		}
		var n int64
		if row := a.db.QueryRowContext(ctx, "SELECT changes()"); row != nil {
			_ = row.Scan(&n) // best-effort; n defaults to 0 on error
		}
		return Result{Summary: fmt.Sprintf("Rows affected: %d", n)}, nil
	}

	var scanDest = make([]any, len(cols))
	var scanBuf = make([]any, len(cols))
	for i := range scanBuf {
		scanDest[i] = &scanBuf[i]
	}

	var rowSet RowSet
	for rows.Next() {
		if err := rows.Scan(scanDest...); err != nil {
			return Result{}, translateEngineErr(err)
		}
		var row = make(Row, len(cols))
		for i, col := range cols {
			row[i] = Cell{Column: col, Value: FromScanned(scanBuf[i])}
		}
		rowSet = append(rowSet, row)
	}
	if err := rows.Err(); err != nil {
		return Result{}, translateEngineErr(err)
	}
	return Result{HasRows: true, Rows: rowSet}, nil
}

// Wipe drops every trigger, view, index, and table (in that order) found
// in sqlite_master, inside a single transaction so a failure partway
// through leaves the database exactly as it was (spec.md §4.1).
func (a *Adapter) Wipe(ctx context.Context) error {
	if a.db == nil {
		return dberrors.New(dberrors.StorageUnavailable, "adapter is not open")
	}

	var tx, err = a.db.BeginTx(ctx, nil)
	if err != nil {
		return translateEngineErr(err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op once Commit succeeds

	for _, objType := range []string{"trigger", "view", "index", "table"} {
		var names []string
		rows, err := tx.QueryContext(ctx,
			`SELECT name FROM sqlite_master WHERE type = ? AND name NOT LIKE 'sqlite_%'`, objType)
		if err != nil {
			return errors.WithMessagef(translateEngineErr(err), "listing %ss", objType)
		}
		for rows.Next() {
			var name string
			if err := rows.Scan(&name); err != nil {
				rows.Close()
				return errors.WithMessagef(translateEngineErr(err), "scanning %s name", objType)
			}
			names = append(names, name)
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return errors.WithMessagef(translateEngineErr(err), "listing %ss", objType)
		}
		rows.Close()

		for _, name := range names {
			var stmt = fmt.Sprintf("DROP %s IF EXISTS %s", objType, quoteIdent(name))
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return errors.WithMessagef(translateEngineErr(err), "dropping %s %q", objType, name)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return translateEngineErr(err)
	}
	return nil
}

// Close releases the connection and the file-pool exclusivity handle. It
// is idempotent.
func (a *Adapter) Close() error {
	var err error
	if a.db != nil {
		err = a.db.Close()
		a.db = nil
	}
	if a.handle != nil {
		if cerr := a.handle.Close(); cerr != nil && err == nil {
			err = cerr
		}
		a.handle = nil
	}
	return err
}

// CompiledOptions returns the set of SQLITE_* compile-time options the
// linked engine was built with (the "SQLITE_" prefix is dropped).
// Informational only.
func CompiledOptions(ctx context.Context, db *sql.DB) (map[string]struct{}, error) {
	rows, err := db.QueryContext(ctx, "PRAGMA compile_options;")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out = make(map[string]struct{})
	for rows.Next() {
		var opt string
		if err := rows.Scan(&opt); err != nil {
			return nil, err
		}
		out[opt] = struct{}{}
	}
	return out, rows.Err()
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// translateEngineErr wraps a raw go-sqlite3/database/sql error into the
// dberrors.SqlEngine taxonomy, carrying the engine's own code when present.
func translateEngineErr(err error) error {
	if err == nil {
		return nil
	}
	if sqliteErr, ok := err.(sqlite3.Error); ok {
		return dberrors.Newf(dberrors.SqlEngine, "%s", sqliteErr.Error()).
			WithDetail(map[string]any{"code": int(sqliteErr.Code), "extendedCode": int(sqliteErr.ExtendedCode)})
	}
	return dberrors.Newf(dberrors.SqlEngine, "%s", err.Error())
}
