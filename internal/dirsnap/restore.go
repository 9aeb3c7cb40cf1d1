package dirsnap

import (
	"fmt"
	"slices"
)

// ConfirmationToken is the exact input that authorizes a restore.
const ConfirmationToken = "yes"

// IsConfirmed reports whether input is exactly ConfirmationToken. Case, surrounding
// whitespace and empty input all count as a refusal.
func IsConfirmed(input string) bool {
	return input == ConfirmationToken
}

// Restore replaces the contents of sourceRoot with the contents of snap.
//
// The archive is verified completely before anything is touched: CRC and size of
// every entry, entry names, agreement with the metadata lists, and the digest
// recorded when the snapshot was written (if the journal has one). The archive is
// then extracted into a staging directory beside sourceRoot and swapped in, so a
// failed extraction leaves sourceRoot as it was.
func (s *Service) Restore(snap *Snapshot, sourceRoot string, confirmation string) error {
	if !IsConfirmed(confirmation) {
		return NewNotConfirmed()
	}

	s.logger.Info("restore started", "snapshot", snap.ZipFilename, "source", sourceRoot)

	if err := s.verify(snap); err != nil {
		s.logger.Error("snapshot failed verification", "snapshot", snap.ZipFilename, "error", err.Error())
		return err
	}

	staged, err := s.staging.Prepare(sourceRoot)
	if err != nil {
		return NewRestoreFailed(sourceRoot, fmt.Errorf("preparing staging directory: %w", err))
	}

	if err := s.archiver.Extract(snap.ZipPath, staged); err != nil {
		s.discard(staged)
		return NewRestoreFailed(sourceRoot, fmt.Errorf("extracting archive: %w", err))
	}

	if err := s.staging.Commit(staged, sourceRoot); err != nil {
		if !IsCode(err, CodeCleanup) {
			s.discard(staged)
			return NewRestoreFailed(sourceRoot, err)
		}
		s.logger.Warn("previous source contents left behind", "error", err.Error())
	}

	s.logger.Info("restore complete", "snapshot", snap.ZipFilename, "files", len(snap.ArchivedFiles), "empty_dirs", len(snap.EmptyDirectories))
	return nil
}

// Verify runs every integrity check Restore performs, without restoring.
func (s *Service) Verify(snap *Snapshot) error {
	return s.verify(snap)
}

func (s *Service) verify(snap *Snapshot) error {
	manifest, err := s.archiver.Verify(snap.ZipPath)
	if err != nil {
		if IsCode(err, CodeIntegrity) {
			return err
		}
		return NewIntegrity(snap.ZipPath, "verifying archive", err)
	}

	if !slices.Equal(manifest.Files, snap.ArchivedFiles) {
		return NewIntegrity(snap.ZipPath, "archive files do not match metadata archived_files", nil)
	}
	if !slices.Equal(manifest.EmptyDirs, snap.EmptyDirectories) {
		return NewIntegrity(snap.ZipPath, "archive directories do not match metadata empty_directories", nil)
	}

	want, err := s.journal.FindArchiveDigest(snap.ZipFilename)
	if err != nil {
		s.logger.Warn("journal lookup failed, skipping digest check", "snapshot", snap.ZipFilename, "error", err.Error())
		return nil
	}
	if want == "" {
		s.logger.Debug("no journal digest for snapshot", "snapshot", snap.ZipFilename)
		return nil
	}

	got, err := digestFile(snap.ZipPath)
	if err != nil {
		return NewIntegrity(snap.ZipPath, "computing archive digest", err)
	}
	if got != want {
		return NewIntegrity(snap.ZipPath, fmt.Sprintf("archive digest %s does not match recorded %s", got, want), nil)
	}
	return nil
}

func (s *Service) discard(staged string) {
	if err := s.staging.Discard(staged); err != nil {
		s.logger.Error("removing staging directory", "path", staged, "error", err.Error())
	}
}
