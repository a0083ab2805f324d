package store

import (
	"time"
)

// Entry is the stored envelope around a serialized payload.
type Entry struct {
	// Payload is the serialized RecordSet (opaque to this package).
	Payload []byte `json:"payload"`

	// CachedAt is when the entry was written.
	CachedAt time.Time `json:"cached_at"`
}

// Age returns how long ago the entry was written.
func (e *Entry) Age() time.Duration {
	return time.Since(e.CachedAt)
}
