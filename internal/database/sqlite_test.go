package database

import (
	"path/filepath"
	"testing"
	"time"

	"dirsnap/internal/config"
	"dirsnap/internal/dirsnap"
)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

// newTestDB creates a new in-memory database with migrations applied.
func newTestDB(t *testing.T) *SQLiteDatabase {
	t.Helper()

	db, err := NewSQLiteDatabase(":memory:", fixedClock{time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)})
	if err != nil {
		t.Fatalf("failed to create database: %v", err)
	}
	t.Cleanup(func() {
		db.Close()
	})

	if err := db.MigrateUp(); err != nil {
		t.Fatalf("failed to apply migrations: %v", err)
	}
	return db
}

func TestSQLiteDatabase_Operations(t *testing.T) {
	t.Run("create and finish", func(t *testing.T) {
		db := newTestDB(t)

		op, err := db.CreateOperation("Archive", "source=/src")
		if err != nil {
			t.Fatalf("CreateOperation() error = %v", err)
		}
		if op.ID == 0 {
			t.Fatal("expected non-zero operation ID")
		}
		if op.Status != StatusRunning {
			t.Errorf("Status = %q, want %q", op.Status, StatusRunning)
		}

		if err := db.FinishOperation(op.ID, StatusSuccess); err != nil {
			t.Fatalf("FinishOperation() error = %v", err)
		}

		ops, err := db.ListOperations(10)
		if err != nil {
			t.Fatalf("ListOperations() error = %v", err)
		}
		if len(ops) != 1 {
			t.Fatalf("expected 1 operation, got %d", len(ops))
		}
		got := ops[0]
		if got.Operation != "Archive" || got.Parameters != "source=/src" || got.Status != StatusSuccess {
			t.Errorf("unexpected operation %+v", got)
		}
		if !got.FinishedAt.Valid {
			t.Error("FinishedAt not set")
		}
		if !got.StartedAt.Equal(time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)) {
			t.Errorf("StartedAt = %v", got.StartedAt)
		}
	})

	t.Run("finish unknown operation", func(t *testing.T) {
		db := newTestDB(t)
		if err := db.FinishOperation(42, StatusError); err == nil {
			t.Error("expected error for unknown operation")
		}
	})

	t.Run("list is newest first and limited", func(t *testing.T) {
		db := newTestDB(t)
		for _, name := range []string{"Archive", "Extract", "Archive"} {
			if _, err := db.CreateOperation(name, ""); err != nil {
				t.Fatalf("CreateOperation() error = %v", err)
			}
		}

		ops, err := db.ListOperations(2)
		if err != nil {
			t.Fatalf("ListOperations() error = %v", err)
		}
		if len(ops) != 2 {
			t.Fatalf("expected 2 operations, got %d", len(ops))
		}
		if ops[0].ID <= ops[1].ID {
			t.Errorf("expected descending IDs, got %d then %d", ops[0].ID, ops[1].ID)
		}
		if ops[1].Operation != "Extract" {
			t.Errorf("second operation = %q, want Extract", ops[1].Operation)
		}
	})
}

func TestSQLiteDatabase_Archives(t *testing.T) {
	newRecord := func(id, digest string, opID int64) *dirsnap.ArchiveRecord {
		return &dirsnap.ArchiveRecord{
			ID:            id,
			ZipFilename:   "2024-01-15_10-30-00_nightly.zip",
			Digest:        digest,
			FileCount:     3,
			EmptyDirCount: 1,
			CreatedUTC:    time.Date(2024, 1, 15, 10, 30, 0, 123456000, time.UTC),
			OperationID:   opID,
		}
	}

	t.Run("returns nil when not found", func(t *testing.T) {
		db := newTestDB(t)
		a, err := db.FindArchive("/dst", "missing.zip")
		if err != nil {
			t.Fatalf("FindArchive() error = %v", err)
		}
		if a != nil {
			t.Errorf("FindArchive() = %+v, want nil", a)
		}
	})

	t.Run("records and finds", func(t *testing.T) {
		db := newTestDB(t)
		op, err := db.CreateOperation("Archive", "")
		if err != nil {
			t.Fatalf("CreateOperation() error = %v", err)
		}
		if err := db.RecordArchive("/dst", newRecord("id-1", "abcd", op.ID)); err != nil {
			t.Fatalf("RecordArchive() error = %v", err)
		}

		a, err := db.FindArchive("/dst", "2024-01-15_10-30-00_nightly.zip")
		if err != nil {
			t.Fatalf("FindArchive() error = %v", err)
		}
		if a == nil {
			t.Fatal("expected archive record")
		}
		if a.Digest != "abcd" || a.FileCount != 3 || a.EmptyDirCount != 1 {
			t.Errorf("unexpected record %+v", a)
		}
		if a.CreatedUtc != "2024-01-15T10:30:00.123456Z" {
			t.Errorf("CreatedUtc = %q", a.CreatedUtc)
		}
		if !a.OperationID.Valid || a.OperationID.Int64 != op.ID {
			t.Errorf("OperationID = %+v, want %d", a.OperationID, op.ID)
		}
	})

	t.Run("scoped by destination", func(t *testing.T) {
		db := newTestDB(t)
		if err := db.RecordArchive("/dst", newRecord("id-1", "abcd", 0)); err != nil {
			t.Fatalf("RecordArchive() error = %v", err)
		}
		a, err := db.FindArchive("/elsewhere", "2024-01-15_10-30-00_nightly.zip")
		if err != nil {
			t.Fatalf("FindArchive() error = %v", err)
		}
		if a != nil {
			t.Errorf("found record from another destination: %+v", a)
		}
	})

	t.Run("re-recording replaces", func(t *testing.T) {
		db := newTestDB(t)
		if err := db.RecordArchive("/dst", newRecord("id-1", "old", 0)); err != nil {
			t.Fatalf("RecordArchive() error = %v", err)
		}
		if err := db.RecordArchive("/dst", newRecord("id-2", "new", 0)); err != nil {
			t.Fatalf("RecordArchive() error = %v", err)
		}
		j := NewArchiveJournal(db, "/dst")
		digest, err := j.FindArchiveDigest("2024-01-15_10-30-00_nightly.zip")
		if err != nil {
			t.Fatalf("FindArchiveDigest() error = %v", err)
		}
		if digest != "new" {
			t.Errorf("digest = %q, want new", digest)
		}
	})
}

func TestArchiveJournal(t *testing.T) {
	db := newTestDB(t)
	j := NewArchiveJournal(db, "/dst")

	digest, err := j.FindArchiveDigest("none.zip")
	if err != nil || digest != "" {
		t.Fatalf("FindArchiveDigest() = %q, %v; want \"\", nil", digest, err)
	}

	rec := &dirsnap.ArchiveRecord{ID: "id-1", ZipFilename: "a.zip", Digest: "ff00", CreatedUTC: time.Now()}
	if err := j.RecordArchive(rec); err != nil {
		t.Fatalf("RecordArchive() error = %v", err)
	}
	digest, err = j.FindArchiveDigest("a.zip")
	if err != nil || digest != "ff00" {
		t.Errorf("FindArchiveDigest() = %q, %v; want ff00, nil", digest, err)
	}
}

func TestSQLiteDatabase_CheckMigrations(t *testing.T) {
	db, err := NewSQLiteDatabase(":memory:", nil)
	if err != nil {
		t.Fatalf("NewSQLiteDatabase() error = %v", err)
	}
	defer db.Close()

	if err := db.CheckMigrations(); err == nil {
		t.Error("expected error before migration")
	}
	if err := db.MigrateUp(); err != nil {
		t.Fatalf("MigrateUp() error = %v", err)
	}
	if err := db.CheckMigrations(); err != nil {
		t.Errorf("CheckMigrations() after migration error = %v", err)
	}
}

func TestNewDatabaseFromConfigSQLiteFile(t *testing.T) {
	t.Run("memory database", func(t *testing.T) {
		got, err := NewDatabaseFromConfig(config.DatabaseConfig{Type: "memory"})
		if err != nil {
			t.Fatalf("NewDatabaseFromConfig() unexpected error: %v", err)
		}
		got.Close()
	})

	t.Run("sqlite database", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "data")
		got, err := NewDatabaseFromConfig(config.DatabaseConfig{Type: "sqlite", DataDir: dir})
		if err != nil {
			t.Fatalf("NewDatabaseFromConfig() unexpected error: %v", err)
		}
		defer got.Close()
		if want := filepath.Join(dir, DatabaseFilename); got.Path() != want {
			t.Errorf("Path() = %q, want %q", got.Path(), want)
		}
	})

	t.Run("sqlite without data dir", func(t *testing.T) {
		if _, err := NewDatabaseFromConfig(config.DatabaseConfig{Type: "sqlite"}); err == nil {
			t.Error("expected error for missing data_dir")
		}
	})

	t.Run("unknown type", func(t *testing.T) {
		if _, err := NewDatabaseFromConfig(config.DatabaseConfig{Type: "postgres"}); err == nil {
			t.Error("expected error for unknown type")
		}
	})
}
