package dirsnap

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/zeebo/xxh3"
)

// Service is the orchestration layer that archives a source tree into a
// destination vault, lists the snapshots held there, and restores them.
type Service struct {
	fsmgr    FilesystemManager
	archiver Archiver
	vault    Vault
	staging  StagingArea
	journal  Journal
	logger   Logger
	clock    Clock
	idgen    IDGenerator
}

// NewService creates a Service bound to one destination vault.
func NewService(fsmgr FilesystemManager, archiver Archiver, vault Vault, staging StagingArea, journal Journal, logger Logger, clock Clock, idgen IDGenerator) *Service {
	return &Service{
		fsmgr:    fsmgr,
		archiver: archiver,
		vault:    vault,
		staging:  staging,
		journal:  journal,
		logger:   logger,
		clock:    clock,
		idgen:    idgen,
	}
}

// ArchiveRequest describes one archive operation.
type ArchiveRequest struct {
	// SourceRoot is the resolved absolute source directory.
	SourceRoot string
	// RawSource is the source argument exactly as the user typed it.
	RawSource string
	Comment   string

	// OperationID links the journal record to a persisted operation; 0 for none.
	OperationID int64

	OnScan    ScanProgressFunc
	OnArchive ArchiveProgressFunc
}

// Archive scans the source tree and writes a new snapshot pair to the vault.
//
// Configuration errors (empty filename segment, collision, nothing to archive)
// are returned before any file is created. The zip is written first and the
// metadata last, so a failure at any point leaves no snapshot that List would
// accept.
func (s *Service) Archive(req ArchiveRequest) (*Snapshot, error) {
	comment := strings.TrimSpace(req.Comment)
	segment := Sanitize(comment)
	if segment == "" {
		return nil, NewEmptySegment(comment)
	}

	now := s.clock.Now()
	base := BaseName(now, segment)
	zipName := base + ZipExt
	jsonName := base + MetadataExt

	if err := s.checkCollision(zipName, jsonName); err != nil {
		return nil, err
	}

	s.logger.Info("archive started", "source", req.SourceRoot, "snapshot", base)

	result, err := s.fsmgr.Scan(req.SourceRoot, req.RawSource, req.OnScan)
	if err != nil {
		return nil, err
	}
	for _, e := range result.Skipped {
		s.logger.Warn("skipping "+e.Kind.String(), "path", e.SlashPath())
	}
	if result.Empty() {
		return nil, NewNothingToArchive(req.SourceRoot)
	}

	files := result.FilePaths()
	emptyDirs := result.EmptyDirPaths()

	h := xxh3.New()
	err = s.vault.Put(zipName, func(w io.Writer) error {
		return s.archiver.Create(io.MultiWriter(w, h), req.SourceRoot, files, emptyDirs, req.OnArchive)
	})
	if err != nil {
		return nil, fmt.Errorf("writing archive: %w", err)
	}

	md := NewMetadata(now, comment, segment, zipName, files, emptyDirs)
	if err := s.writeMetadata(jsonName, md); err != nil {
		if rmErr := s.vault.Remove(zipName); rmErr != nil {
			s.logger.Error("removing orphaned archive", "file", zipName, "error", rmErr.Error())
		}
		return nil, fmt.Errorf("writing metadata: %w", err)
	}

	sum := h.Sum128().Bytes()
	rec := &ArchiveRecord{
		ID:            s.idgen.New(),
		ZipFilename:   zipName,
		Digest:        hex.EncodeToString(sum[:]),
		FileCount:     len(files),
		EmptyDirCount: len(emptyDirs),
		CreatedUTC:    now.UTC(),
		OperationID:   req.OperationID,
	}
	if err := s.journal.RecordArchive(rec); err != nil {
		// The snapshot pair is complete and valid on its own.
		s.logger.Warn("recording archive in journal", "file", zipName, "error", err.Error())
	}

	snap, err := s.loadSnapshot(jsonName)
	if err != nil {
		return nil, fmt.Errorf("reading back snapshot: %w", err)
	}

	s.logger.Info("archive complete", "snapshot", base, "files", len(files), "empty_dirs", len(emptyDirs))
	return snap, nil
}

// checkCollision fails if either file of the pair already exists.
func (s *Service) checkCollision(names ...string) error {
	for _, name := range names {
		exists, err := s.vault.Exists(name)
		if err != nil {
			return fmt.Errorf("checking for existing %s: %w", name, err)
		}
		if exists {
			return NewCollision(s.vault.Path(name))
		}
	}
	return nil
}

func (s *Service) writeMetadata(name string, md *Metadata) error {
	data, err := EncodeMetadata(md)
	if err != nil {
		return err
	}
	return s.vault.Put(name, func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	})
}

// digestFile returns the xxh3-128 digest of the file at path as lowercase hex.
func digestFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := xxh3.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	sum := h.Sum128().Bytes()
	return hex.EncodeToString(sum[:]), nil
}
