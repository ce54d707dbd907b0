package ports

import (
	"context"
	"time"
)

// RevocationStore is the durable set of spent refresh token ids
type RevocationStore interface {
	// Add records id as revoked until notValidAfter. Adding an id twice is not an
	// error; added reports whether this call created the record.
	Add(ctx context.Context, id string, notValidAfter time.Time) (added bool, err error)

	// Contains reports whether id has been revoked
	Contains(ctx context.Context, id string) (bool, error)

	// Sweep removes records whose notValidAfter is before now
	Sweep(ctx context.Context, now time.Time) (removed int, err error)
}
