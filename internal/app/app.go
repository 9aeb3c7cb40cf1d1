package app

import (
	"fmt"
	"io"
	"os"

	"dirsnap/internal/archive"
	"dirsnap/internal/config"
	"dirsnap/internal/database"
	"dirsnap/internal/dirsnap"
	"dirsnap/internal/fs"
	"dirsnap/internal/staging"
	"dirsnap/internal/vault"
)

// App is the application layer between the CLI and dirsnap.Service.
// It constructs all dependencies from config, exposes high-level operations
// that accept raw string paths, and manages the DB lifecycle on Close.
type App struct {
	cfg      *config.Config
	db       *database.SQLiteDatabase
	staging  dirsnap.StagingArea
	archiver dirsnap.Archiver
	logger   dirsnap.Logger
	clock    dirsnap.Clock
	idgen    dirsnap.IDGenerator
	op       *Operation
	opID     string
	logFile  *os.File
}

// NewApp creates a fully wired App from the given config.
// operation names the CLI command being run (e.g. "archive", "extract").
// Warnings and errors are echoed to console as well as the log file.
// The caller must call Close when done.
func NewApp(cfg *config.Config, operation string, console io.Writer) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	db, err := database.NewDatabaseFromConfig(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("creating database: %w", err)
	}

	if cfg.Database.Type == "memory" {
		err = db.MigrateUp()
	} else if err = db.CheckMigrations(); err != nil {
		err = fmt.Errorf("%w (run 'dirsnap config init' to migrate)", err)
	}
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("database schema out of date: %w", err)
	}

	idgen := dirsnap.UUIDGenerator{}
	sa, err := staging.NewStagingAreaFromConfig(cfg.Staging, idgen)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating staging area: %w", err)
	}

	clock := dirsnap.RealClock{}
	opID, err := newOperationID(clock.Now())
	if err != nil {
		db.Close()
		return nil, err
	}
	logger, logFile, err := newLogger(cfg.LogDir, opID, console)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating logger: %w", err)
	}

	return &App{
		cfg:      cfg,
		db:       db,
		staging:  sa,
		archiver: archive.NewZipArchiver(),
		logger:   &slogAdapter{l: logger},
		clock:    clock,
		idgen:    idgen,
		op:       NewOperation(operation),
		opID:     opID,
		logFile:  logFile,
	}, nil
}

// OperationID returns the identifier tagging this run's log lines.
func (a *App) OperationID() string {
	return a.opID
}

// persistOperation saves the operation to the database, giving it an auto-increment ID.
// This should only be called for commands that write to a destination.
func (a *App) persistOperation(parameters string) error {
	if a.op.Persisted() {
		return nil
	}
	a.op.Parameters = parameters
	dbOp, err := a.db.CreateOperation(a.op.Name, a.op.Parameters)
	if err != nil {
		return fmt.Errorf("persisting operation: %w", err)
	}
	a.op.ID = dbOp.ID
	return nil
}

// serviceFor builds a Service bound to the destination directory. matcher is
// only consulted by Archive and may be nil otherwise.
func (a *App) serviceFor(destination string, matcher fs.Matcher) (*dirsnap.Service, error) {
	v, err := vault.NewFileSystemVault(destination)
	if err != nil {
		return nil, fmt.Errorf("opening destination: %w", err)
	}
	journal := database.NewArchiveJournal(a.db, v.Root())
	fsmgr := fs.NewOSFilesystemManager(matcher)
	return dirsnap.NewService(fsmgr, a.archiver, v, a.staging, journal, a.logger, a.clock, a.idgen), nil
}

// ArchiveRequest holds the raw CLI inputs of an archive operation.
type ArchiveRequest struct {
	Source      string
	Destination string
	// IgnoreFile is optional; empty means only the built-in ignores apply.
	IgnoreFile string
	Comment    string

	OnScan    dirsnap.ScanProgressFunc
	OnArchive dirsnap.ArchiveProgressFunc
}

// Archive resolves the request paths, loads the ignore file and writes a new
// snapshot into the destination.
func (a *App) Archive(req ArchiveRequest) (*dirsnap.Snapshot, error) {
	source, destination, err := resolvePair(req.Source, req.Destination)
	if err != nil {
		return nil, err
	}
	ignorePath, err := fs.ResolveFile(req.IgnoreFile)
	if err != nil {
		return nil, fmt.Errorf("resolving ignore file: %w", err)
	}
	matcher, err := fs.LoadIgnoreMatcher(ignorePath)
	if err != nil {
		return nil, err
	}

	svc, err := a.serviceFor(destination, matcher)
	if err != nil {
		return nil, err
	}
	if err := a.persistOperation(fmt.Sprintf("source=%s destination=%s", source, destination)); err != nil {
		return nil, err
	}

	a.logger.Debug("ignore rules loaded", "file", ignorePath, "rules", matcher.Len())
	snap, err := svc.Archive(dirsnap.ArchiveRequest{
		SourceRoot:  source,
		RawSource:   req.Source,
		Comment:     req.Comment,
		OperationID: a.op.ID,
		OnScan:      req.OnScan,
		OnArchive:   req.OnArchive,
	})
	if err != nil {
		a.op.Fail()
		a.logger.Error("archive failed", "error", err.Error())
		return nil, err
	}
	return snap, nil
}

// ListSnapshots returns the valid snapshots in the destination, newest first.
func (a *App) ListSnapshots(rawDestination string) ([]*dirsnap.Snapshot, error) {
	destination, err := fs.ResolveDir(rawDestination)
	if err != nil {
		return nil, fmt.Errorf("resolving destination: %w", err)
	}
	svc, err := a.serviceFor(destination, nil)
	if err != nil {
		return nil, err
	}
	return svc.List()
}

// Extract replaces the contents of the source directory with snap.
// confirmation must be exactly dirsnap.ConfirmationToken.
func (a *App) Extract(rawSource, rawDestination string, snap *dirsnap.Snapshot, confirmation string) error {
	if !dirsnap.IsConfirmed(confirmation) {
		return dirsnap.NewNotConfirmed()
	}
	source, destination, err := resolvePair(rawSource, rawDestination)
	if err != nil {
		return err
	}
	svc, err := a.serviceFor(destination, nil)
	if err != nil {
		return err
	}
	if err := a.persistOperation(fmt.Sprintf("source=%s snapshot=%s", source, snap.ZipFilename)); err != nil {
		return err
	}

	if err := svc.Restore(snap, source, confirmation); err != nil {
		a.op.Fail()
		a.logger.Error("extract failed", "error", err.Error())
		return err
	}
	return nil
}

// VerifySnapshot checks snap without restoring it.
func (a *App) VerifySnapshot(rawDestination string, snap *dirsnap.Snapshot) error {
	destination, err := fs.ResolveDir(rawDestination)
	if err != nil {
		return fmt.Errorf("resolving destination: %w", err)
	}
	svc, err := a.serviceFor(destination, nil)
	if err != nil {
		return err
	}
	return svc.Verify(snap)
}

// GetHistory returns the most recent persisted operations.
func (a *App) GetHistory(limit int) ([]*database.Operation, error) {
	return a.db.ListOperations(limit)
}

// Close finalizes the operation and closes all resources.
func (a *App) Close() error {
	var firstErr error

	if a.op.Persisted() {
		if err := a.db.FinishOperation(a.op.ID, a.op.Status); err != nil {
			firstErr = fmt.Errorf("finishing operation: %w", err)
		}
	}

	if err := a.db.Close(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("closing database: %w", err)
	}

	if a.logFile != nil {
		a.logFile.Close()
	}

	return firstErr
}

// resolvePair resolves source and destination to existing directories and
// rejects destinations inside the source (or the reverse).
func resolvePair(rawSource, rawDestination string) (string, string, error) {
	source, err := fs.ResolveDir(rawSource)
	if err != nil {
		return "", "", fmt.Errorf("resolving source: %w", err)
	}
	destination, err := fs.ResolveDir(rawDestination)
	if err != nil {
		return "", "", fmt.Errorf("resolving destination: %w", err)
	}
	if err := fs.CheckDisjoint(source, destination); err != nil {
		return "", "", err
	}
	return source, destination, nil
}
