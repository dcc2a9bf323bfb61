// Package storage defines the seen-item persistence interface and its
// implementations.
package storage

import "context"

// Storage is the durable set of item identifiers already processed,
// partitioned by endpoint name. One scheduler loop is the only writer for
// its own endpoint's records.
type Storage interface {
	MarkSeen(ctx context.Context, endpoint, guid string) error
	IsSeen(ctx context.Context, endpoint, guid string) (bool, error)
	PruneSeen(ctx context.Context, endpoint string, keep int) error

	Close() error
}
