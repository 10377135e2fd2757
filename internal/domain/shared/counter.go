package shared

import "context"

// CounterRepository allocates monotonically increasing values from named counters
type CounterRepository interface {
	// Next increments the named counter and returns the new value
	Next(ctx context.Context, name string) (int64, error)
	// Current returns the counter value without incrementing it (0 when unset)
	Current(ctx context.Context, name string) (int64, error)
	// Advance raises the counter to at least value, used when callers supply identifiers
	Advance(ctx context.Context, name string, value int64) error
}
