package app

import "dirsnap/internal/database"

// Operation tracks one CLI invocation. It lives in memory with ID=0 until a
// command that writes to the destination (archive or extract) persists it.
type Operation struct {
	ID         int64
	Name       string
	Parameters string
	Status     string
}

// NewOperation returns an in-memory operation that will finish as success
// unless marked failed.
func NewOperation(name string) *Operation {
	return &Operation{
		Name:   name,
		Status: database.StatusSuccess,
	}
}

// Persisted reports whether the operation row exists in the database.
func (op *Operation) Persisted() bool {
	return op.ID != 0
}

// Fail marks the operation as finished with an error.
func (op *Operation) Fail() {
	op.Status = database.StatusError
}
