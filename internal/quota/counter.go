// Package quota enforces the daily ceiling on speech-synthesis calls.
package quota

import "context"

// Counter is the per-user, per-day play counter. Implementations must apply
// each increment as one atomic operation in the backing store.
type Counter interface {
	// IncrementPlayCount adds one play and returns the post-increment count.
	IncrementPlayCount(ctx context.Context, userID, day string) (int, error)
	// IncrementPlayCountWithin adds one play only while the count is below
	// ceiling. It returns the resulting count and whether a play was added.
	IncrementPlayCountWithin(ctx context.Context, userID, day string, ceiling int) (int, bool, error)
	// GetPlayCount returns the count for the day, zero if nothing was recorded.
	GetPlayCount(ctx context.Context, userID, day string) (int, error)
}
