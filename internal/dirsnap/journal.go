package dirsnap

import "time"

// ArchiveRecord is the journal's account of one written snapshot.
type ArchiveRecord struct {
	ID            string
	ZipFilename   string
	Digest        string // xxh3-128 of the zip bytes, lowercase hex
	FileCount     int
	EmptyDirCount int
	CreatedUTC    time.Time
	OperationID   int64 // 0 when the archive was not part of a persisted operation
}

// Journal records written snapshots so later restores can detect a replaced or
// damaged archive. It is not part of the snapshot format: snapshots stay valid
// without it.
type Journal interface {
	// RecordArchive stores a record for a newly written snapshot.
	RecordArchive(rec *ArchiveRecord) error

	// FindArchiveDigest returns the digest recorded for zipFilename, or "" if unknown.
	FindArchiveDigest(zipFilename string) (string, error)
}
