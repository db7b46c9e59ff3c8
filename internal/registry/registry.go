package registry

import "context"

// Store defines the training-run operations. Consumers should depend on
// this interface rather than the concrete *DB type.
type Store interface {
	Record(ctx context.Context, r Run) error
	List(ctx context.Context, limit int) ([]Run, error)
	Latest(ctx context.Context) (*Run, error)
	Close() error
}

// Verify *DB satisfies Store at compile time.
var _ Store = (*DB)(nil)
