package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"dirsnap/internal/database/migrations"
	"dirsnap/internal/dirsnap"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// Operation statuses.
const (
	StatusRunning = "running"
	StatusSuccess = "success"
	StatusError   = "error"
)

// SQLiteDatabase is the local journal: operation history and the digest of
// every snapshot written.
type SQLiteDatabase struct {
	db      *sql.DB
	queries *Queries
	path    string
	clock   dirsnap.Clock
}

// NewSQLiteDatabase opens the journal at path, which can be a file path or
// ":memory:". A nil clock uses the real time.
func NewSQLiteDatabase(path string, clock dirsnap.Clock) (*SQLiteDatabase, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}
	if clock == nil {
		clock = dirsnap.RealClock{}
	}

	return &SQLiteDatabase{
		db:      db,
		queries: NewQueries(db),
		path:    path,
		clock:   clock,
	}, nil
}

// OpenConnection opens and configures a SQLite database connection with appropriate PRAGMAs.
// path can be a file path or ":memory:" for in-memory database.
func OpenConnection(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// One connection: the CLI is single-threaded and ":memory:" is per-connection.
	db.SetMaxOpenConns(1)

	// Enable foreign key constraints (SQLite default is OFF for backward compatibility)
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	return db, nil
}

// Operation tracking

func (s *SQLiteDatabase) CreateOperation(operation string, parameters string) (*Operation, error) {
	op, err := s.queries.InsertOperation(context.Background(), InsertOperationParams{
		Operation:  operation,
		Parameters: parameters,
		StartedAt:  s.clock.Now().UTC(),
	})
	if err != nil {
		return nil, fmt.Errorf("creating operation: %w", err)
	}
	return &op, nil
}

func (s *SQLiteDatabase) FinishOperation(id int64, status string) error {
	n, err := s.queries.UpdateOperationFinished(context.Background(), UpdateOperationFinishedParams{
		FinishedAt: sql.NullTime{Time: s.clock.Now().UTC(), Valid: true},
		Status:     status,
		ID:         id,
	})
	if err != nil {
		return fmt.Errorf("finishing operation: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("finishing operation: no operation with id %d", id)
	}
	return nil
}

// ListOperations returns the most recent operations, newest first.
func (s *SQLiteDatabase) ListOperations(limit int) ([]*Operation, error) {
	ops, err := s.queries.GetOperations(context.Background(), int64(limit))
	if err != nil {
		return nil, fmt.Errorf("listing operations: %w", err)
	}

	result := make([]*Operation, len(ops))
	for i := range ops {
		result[i] = &ops[i]
	}
	return result, nil
}

// Archive records

// RecordArchive stores rec for the snapshot in destination, replacing any
// earlier record for the same zip filename there.
func (s *SQLiteDatabase) RecordArchive(destination string, rec *dirsnap.ArchiveRecord) error {
	err := s.queries.UpsertArchive(context.Background(), Archive{
		ID:            rec.ID,
		Destination:   destination,
		ZipFilename:   rec.ZipFilename,
		Digest:        rec.Digest,
		FileCount:     int64(rec.FileCount),
		EmptyDirCount: int64(rec.EmptyDirCount),
		CreatedUtc:    rec.CreatedUTC.UTC().Format(dirsnap.CreatedUTCLayout),
		OperationID:   sql.NullInt64{Int64: rec.OperationID, Valid: rec.OperationID != 0},
	})
	if err != nil {
		return fmt.Errorf("recording archive: %w", err)
	}
	return nil
}

// FindArchive returns the record for zipFilename in destination, or nil if none.
func (s *SQLiteDatabase) FindArchive(destination, zipFilename string) (*Archive, error) {
	a, err := s.queries.GetArchive(context.Background(), GetArchiveParams{
		Destination: destination,
		ZipFilename: zipFilename,
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("finding archive: %w", err)
	}
	return &a, nil
}

// Path returns the database file path (or ":memory:" for in-memory databases).
func (s *SQLiteDatabase) Path() string {
	return s.path
}

// CheckMigrations verifies the database schema is up-to-date.
func (s *SQLiteDatabase) CheckMigrations() error {
	return migrations.CheckDBMigrationStatus(s.db)
}

// MigrateUp applies all pending schema migrations.
func (s *SQLiteDatabase) MigrateUp() error {
	return migrations.MigrateUp(s.db)
}

// Close closes the database connection.
func (s *SQLiteDatabase) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
