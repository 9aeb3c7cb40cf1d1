package database

import "dirsnap/internal/dirsnap"

// ArchiveJournal scopes the archive records of a SQLiteDatabase to one
// destination directory.
type ArchiveJournal struct {
	db          *SQLiteDatabase
	destination string
}

// NewArchiveJournal returns the journal for snapshots kept in destination.
func NewArchiveJournal(db *SQLiteDatabase, destination string) *ArchiveJournal {
	return &ArchiveJournal{db: db, destination: destination}
}

func (j *ArchiveJournal) RecordArchive(rec *dirsnap.ArchiveRecord) error {
	return j.db.RecordArchive(j.destination, rec)
}

func (j *ArchiveJournal) FindArchiveDigest(zipFilename string) (string, error) {
	a, err := j.db.FindArchive(j.destination, zipFilename)
	if err != nil || a == nil {
		return "", err
	}
	return a.Digest, nil
}

// Compile-time check that ArchiveJournal implements dirsnap.Journal interface
var _ dirsnap.Journal = (*ArchiveJournal)(nil)
