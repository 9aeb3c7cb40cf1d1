package database

import (
	"database/sql"
	"time"
)

// Operation is one CLI invocation that touched a destination.
type Operation struct {
	ID         int64
	Operation  string
	Parameters string
	StartedAt  time.Time
	FinishedAt sql.NullTime
	Status     string
}

// Archive is the journal row for one written snapshot.
type Archive struct {
	ID            string
	Destination   string
	ZipFilename   string
	Digest        string
	FileCount     int64
	EmptyDirCount int64
	CreatedUtc    string
	OperationID   sql.NullInt64
}
