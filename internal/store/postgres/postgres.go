// Package postgres implements the store.Store interface backed by PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"

	"github.com/forgeline/stageflow/internal/model"
	"github.com/forgeline/stageflow/internal/store"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// PostgresStore implements store.Store backed by a PostgreSQL database.
type PostgresStore struct {
	db *sql.DB
}

// Compile-time check that PostgresStore implements store.Store.
var _ store.Store = (*PostgresStore)(nil)

// New opens a connection to the PostgreSQL database at the given URL,
// configures the connection pool, and runs any pending migrations.
func New(databaseURL string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

func runMigrations(db *sql.DB) error {
	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	dbDriver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create migration db driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "postgres", dbDriver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("apply migrations: %w", err)
	}

	return nil
}

// Close closes the underlying database connection.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func (s *PostgresStore) CreateCursor(ctx context.Context, cursor *model.Cursor) error {
	return queryCreateCursor(ctx, s.db, cursor)
}

func (s *PostgresStore) GetCursor(ctx context.Context, project string) (*model.Cursor, error) {
	return queryGetCursor(ctx, s.db, project)
}

func (s *PostgresStore) UpdateCursor(ctx context.Context, cursor *model.Cursor) error {
	return queryUpdateCursor(ctx, s.db, cursor)
}

func (s *PostgresStore) ListCursors(ctx context.Context) ([]*model.Cursor, error) {
	return queryListCursors(ctx, s.db)
}

func (s *PostgresStore) GetViewState(ctx context.Context, project, user string) (*model.ViewState, error) {
	return queryGetViewState(ctx, s.db, project, user)
}

func (s *PostgresStore) PutViewState(ctx context.Context, vs *model.ViewState) error {
	return queryPutViewState(ctx, s.db, vs)
}

func (s *PostgresStore) ListViewStates(ctx context.Context, project string) ([]*model.ViewState, error) {
	return queryListViewStates(ctx, s.db, project)
}

func (s *PostgresStore) CreateGate(ctx context.Context, gate *model.GateRecord) error {
	return queryCreateGate(ctx, s.db, gate)
}

func (s *PostgresStore) GetGate(ctx context.Context, project, stageID string) (*model.GateRecord, error) {
	return queryGetGate(ctx, s.db, project, stageID)
}

func (s *PostgresStore) SaveGate(ctx context.Context, gate *model.GateRecord) error {
	return querySaveGate(ctx, s.db, gate)
}

func (s *PostgresStore) ListGates(ctx context.Context, project string) ([]*model.GateRecord, error) {
	return queryListGates(ctx, s.db, project)
}

func (s *PostgresStore) AppendCommit(ctx context.Context, commit *model.Commit) (int64, error) {
	return queryAppendCommit(ctx, s.db, commit)
}

func (s *PostgresStore) GetCommit(ctx context.Context, project string, id int64) (*model.Commit, error) {
	return queryGetCommit(ctx, s.db, project, id)
}

func (s *PostgresStore) ListCommits(ctx context.Context, project string, filter model.CommitFilter) ([]*model.Commit, int, error) {
	return queryListCommits(ctx, s.db, project, filter)
}

func (s *PostgresStore) ArtifactHead(ctx context.Context, project, name string) (int64, error) {
	return queryArtifactHead(ctx, s.db, project, name)
}

func (s *PostgresStore) ListArtifacts(ctx context.Context, project string) ([]*model.ArtifactState, error) {
	return queryListArtifacts(ctx, s.db, project)
}

func (s *PostgresStore) RecordEvent(ctx context.Context, event *model.Event) error {
	return queryRecordEvent(ctx, s.db, event)
}

func (s *PostgresStore) ListEvents(ctx context.Context, project string) ([]*model.Event, error) {
	return queryListEvents(ctx, s.db, project)
}

// RunInTransaction begins a database transaction, creates a txStore that
// delegates to it, calls fn, and commits on success or rolls back on error.
func (s *PostgresStore) RunInTransaction(ctx context.Context, fn func(tx store.Store) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	txS := &txStore{tx: tx}
	if err := fn(txS); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// txStore implements store.Store using a *sql.Tx.
type txStore struct {
	tx *sql.Tx
}

// Compile-time check that txStore implements store.Store.
var _ store.Store = (*txStore)(nil)

func (s *txStore) CreateCursor(ctx context.Context, cursor *model.Cursor) error {
	return queryCreateCursor(ctx, s.tx, cursor)
}

func (s *txStore) GetCursor(ctx context.Context, project string) (*model.Cursor, error) {
	return queryGetCursor(ctx, s.tx, project)
}

func (s *txStore) UpdateCursor(ctx context.Context, cursor *model.Cursor) error {
	return queryUpdateCursor(ctx, s.tx, cursor)
}

func (s *txStore) ListCursors(ctx context.Context) ([]*model.Cursor, error) {
	return queryListCursors(ctx, s.tx)
}

func (s *txStore) GetViewState(ctx context.Context, project, user string) (*model.ViewState, error) {
	return queryGetViewState(ctx, s.tx, project, user)
}

func (s *txStore) PutViewState(ctx context.Context, vs *model.ViewState) error {
	return queryPutViewState(ctx, s.tx, vs)
}

func (s *txStore) ListViewStates(ctx context.Context, project string) ([]*model.ViewState, error) {
	return queryListViewStates(ctx, s.tx, project)
}

func (s *txStore) CreateGate(ctx context.Context, gate *model.GateRecord) error {
	return queryCreateGate(ctx, s.tx, gate)
}

func (s *txStore) GetGate(ctx context.Context, project, stageID string) (*model.GateRecord, error) {
	return queryGetGate(ctx, s.tx, project, stageID)
}

func (s *txStore) SaveGate(ctx context.Context, gate *model.GateRecord) error {
	return querySaveGate(ctx, s.tx, gate)
}

func (s *txStore) ListGates(ctx context.Context, project string) ([]*model.GateRecord, error) {
	return queryListGates(ctx, s.tx, project)
}

func (s *txStore) AppendCommit(ctx context.Context, commit *model.Commit) (int64, error) {
	return queryAppendCommit(ctx, s.tx, commit)
}

func (s *txStore) GetCommit(ctx context.Context, project string, id int64) (*model.Commit, error) {
	return queryGetCommit(ctx, s.tx, project, id)
}

func (s *txStore) ListCommits(ctx context.Context, project string, filter model.CommitFilter) ([]*model.Commit, int, error) {
	return queryListCommits(ctx, s.tx, project, filter)
}

func (s *txStore) ArtifactHead(ctx context.Context, project, name string) (int64, error) {
	return queryArtifactHead(ctx, s.tx, project, name)
}

func (s *txStore) ListArtifacts(ctx context.Context, project string) ([]*model.ArtifactState, error) {
	return queryListArtifacts(ctx, s.tx, project)
}

func (s *txStore) RecordEvent(ctx context.Context, event *model.Event) error {
	return queryRecordEvent(ctx, s.tx, event)
}

func (s *txStore) ListEvents(ctx context.Context, project string) ([]*model.Event, error) {
	return queryListEvents(ctx, s.tx, project)
}

// RunInTransaction on a txStore reuses the existing transaction (no nesting).
func (s *txStore) RunInTransaction(ctx context.Context, fn func(tx store.Store) error) error {
	return fn(s)
}

// Close is a no-op for a transaction store; the parent store owns the connection.
func (s *txStore) Close() error {
	return nil
}
