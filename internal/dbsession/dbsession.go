// Package dbsession is the database-access contract the core treats as an
// external collaborator (spec §1): a session that accepts parameterised
// SQL strings and yields typed rows. The lib/pq-backed implementation is
// grounded on the teacher's database/postgres driver, which runs its
// introspection and DDL queries straight against a *sql.DB obtained the
// same way.
package dbsession

import (
	"context"
	"database/sql"

	_ "github.com/lib/pq"

	"github.com/psqlpack/psqlpack/internal/perrors"
)

// Session is the minimal surface the capability probe and publish
// executor need: parameterised queries/execs and transaction control.
// Capability probes never start a transaction; the publish executor opens
// one per transactional delta group.
type Session interface {
	Query(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRow(ctx context.Context, query string, args ...interface{}) *sql.Row
	Exec(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	Begin(ctx context.Context) (Tx, error)
	Close() error
}

// Tx is a single transactional group's handle, matching spec §4.7's
// per-group open/run-statements/commit-or-rollback lifecycle.
type Tx interface {
	Exec(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	Commit() error
	Rollback() error
}

type session struct {
	db *sql.DB
}

// Open establishes a session against a PostgreSQL-family server.
// connStr follows lib/pq's DSN or URL conventions.
func Open(connStr string) (Session, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, perrors.NewDatabaseError(err)
	}
	return &session{db: db}, nil
}

// FromDB wraps an already-open *sql.DB as a Session, letting tests inject
// a sqlmock-backed *sql.DB without going through a real DSN.
func FromDB(db *sql.DB) Session {
	return &session{db: db}
}

func (s *session) Query(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, perrors.NewDatabaseError(err)
	}
	return rows, nil
}

func (s *session) QueryRow(ctx context.Context, query string, args ...interface{}) *sql.Row {
	return s.db.QueryRowContext(ctx, query, args...)
}

func (s *session) Exec(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, perrors.NewDatabaseError(err)
	}
	return res, nil
}

func (s *session) Begin(ctx context.Context) (Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, perrors.NewDatabaseError(err)
	}
	return &sessionTx{tx: tx}, nil
}

func (s *session) Close() error {
	return s.db.Close()
}

type sessionTx struct {
	tx *sql.Tx
}

func (t *sessionTx) Exec(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	res, err := t.tx.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, perrors.NewDatabaseError(err)
	}
	return res, nil
}

func (t *sessionTx) Commit() error {
	if err := t.tx.Commit(); err != nil {
		return perrors.NewDatabaseError(err)
	}
	return nil
}

func (t *sessionTx) Rollback() error {
	if err := t.tx.Rollback(); err != nil {
		return perrors.NewDatabaseError(err)
	}
	return nil
}
