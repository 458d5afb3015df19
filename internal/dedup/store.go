package dedup

import "time"

// Marker records that an inbound notification id has been handled.
// Markers are write-once; existence is the sole deduplication signal.
type Marker struct {
	ID     string    `json:"id"`
	SeenAt time.Time `json:"seen_at"`
}

// Store is the idempotency store for inbound notification ids.
type Store interface {
	// Seen reports whether id has already been handled.
	Seen(id string) (bool, error)
	// Mark records id as handled.
	Mark(id string) error
	// MarkIfNew atomically records id and reports whether this call was
	// the first to do so. Two concurrent deliveries of the same id cannot
	// both observe true.
	MarkIfNew(id string) (bool, error)
	// List returns the most recent markers, newest first.
	List(limit int) ([]Marker, error)
	// Prune deletes markers older than the cutoff and returns the count.
	Prune(cutoff time.Time) (int64, error)
}
