package metadata

import (
	"context"
)

// Store is the relational metadata store contract. The core never
// embeds SQL or schema concerns outside this package; it only issues
// these operations.
type Store interface {
	// List returns all records.
	List(ctx context.Context) ([]*FileRecord, error)

	// Get returns the record with the given id, or a not-found error.
	Get(ctx context.Context, id string) (*FileRecord, error)

	// GetByPath returns the record for a relative path, or a
	// not-found error.
	GetByPath(ctx context.Context, relativePath string) (*FileRecord, error)

	// Create inserts a new record.
	Create(ctx context.Context, rec *FileRecord) error

	// Update refreshes the mutable fields of the record at the path.
	Update(ctx context.Context, relativePath string, fields FieldUpdate) error

	// Delete hard-removes the record at the path.
	Delete(ctx context.Context, relativePath string) error

	// Apply commits a batch of creates, updates and deletes in a
	// single transaction. On any failure nothing is applied.
	Apply(ctx context.Context, batch *Batch) error

	// IncrementAccess bumps a record's access count by one and
	// returns the new value. Independent of reconciliation.
	IncrementAccess(ctx context.Context, id string) (int64, error)

	// Close releases the underlying connection.
	Close() error
}
