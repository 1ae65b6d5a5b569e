package driven

import "context"

// KVStore defines the driven port for durable key-value persistence. Values
// are opaque strings; callers own their serialization format.
type KVStore interface {
	// Get returns the value stored under key. ok is false when no value exists.
	Get(ctx context.Context, key string) (value string, ok bool, err error)

	// Set stores or replaces the value under key. The write is all-or-nothing.
	Set(ctx context.Context, key, value string) error

	// Update replaces the value under key with fn's result. Reading the
	// current value and writing the new one happen atomically with respect to
	// every other writer of the store, including other processes. If fn
	// returns an error nothing is written and that error is returned.
	Update(ctx context.Context, key string, fn func(current string, ok bool) (string, error)) error
}
