package database

import (
	"context"
	"database/sql"
	"time"
)

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

// Queries holds the SQL statements used by SQLiteDatabase.
type Queries struct {
	db DBTX
}

func NewQueries(db DBTX) *Queries {
	return &Queries{db: db}
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

const insertOperation = `
INSERT INTO operations (operation, parameters, started_at, status)
VALUES (?, ?, ?, 'running')
`

type InsertOperationParams struct {
	Operation  string
	Parameters string
	StartedAt  time.Time
}

func (q *Queries) InsertOperation(ctx context.Context, arg InsertOperationParams) (Operation, error) {
	res, err := q.db.ExecContext(ctx, insertOperation, arg.Operation, arg.Parameters, arg.StartedAt)
	if err != nil {
		return Operation{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Operation{}, err
	}
	return Operation{
		ID:         id,
		Operation:  arg.Operation,
		Parameters: arg.Parameters,
		StartedAt:  arg.StartedAt,
		Status:     "running",
	}, nil
}

const updateOperationFinished = `
UPDATE operations SET finished_at = ?, status = ? WHERE id = ?
`

type UpdateOperationFinishedParams struct {
	FinishedAt sql.NullTime
	Status     string
	ID         int64
}

func (q *Queries) UpdateOperationFinished(ctx context.Context, arg UpdateOperationFinishedParams) (int64, error) {
	res, err := q.db.ExecContext(ctx, updateOperationFinished, arg.FinishedAt, arg.Status, arg.ID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const getOperations = `
SELECT id, operation, parameters, started_at, finished_at, status
FROM operations
ORDER BY id DESC
LIMIT ?
`

func (q *Queries) GetOperations(ctx context.Context, limit int64) ([]Operation, error) {
	rows, err := q.db.QueryContext(ctx, getOperations, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Operation
	for rows.Next() {
		var i Operation
		if err := rows.Scan(&i.ID, &i.Operation, &i.Parameters, &i.StartedAt, &i.FinishedAt, &i.Status); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const upsertArchive = `
INSERT INTO archives (id, destination, zip_filename, digest, file_count, empty_dir_count, created_utc, operation_id)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (destination, zip_filename) DO UPDATE SET
    id = excluded.id,
    digest = excluded.digest,
    file_count = excluded.file_count,
    empty_dir_count = excluded.empty_dir_count,
    created_utc = excluded.created_utc,
    operation_id = excluded.operation_id
`

func (q *Queries) UpsertArchive(ctx context.Context, arg Archive) error {
	_, err := q.db.ExecContext(ctx, upsertArchive,
		arg.ID,
		arg.Destination,
		arg.ZipFilename,
		arg.Digest,
		arg.FileCount,
		arg.EmptyDirCount,
		arg.CreatedUtc,
		arg.OperationID,
	)
	return err
}

const getArchive = `
SELECT id, destination, zip_filename, digest, file_count, empty_dir_count, created_utc, operation_id
FROM archives
WHERE destination = ? AND zip_filename = ?
`

type GetArchiveParams struct {
	Destination string
	ZipFilename string
}

func (q *Queries) GetArchive(ctx context.Context, arg GetArchiveParams) (Archive, error) {
	row := q.db.QueryRowContext(ctx, getArchive, arg.Destination, arg.ZipFilename)
	var i Archive
	err := row.Scan(
		&i.ID,
		&i.Destination,
		&i.ZipFilename,
		&i.Digest,
		&i.FileCount,
		&i.EmptyDirCount,
		&i.CreatedUtc,
		&i.OperationID,
	)
	return i, err
}
