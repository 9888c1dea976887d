package attempts

import (
	"context"
	"time"
)

// Record is the persisted state for one identifier.
type Record struct {
	Identifier      string
	Count           int
	WindowStartedAt time.Time
}

// Store persists attempt records.
//
// Increment must count one attempt atomically with respect to other Increment
// and Delete calls for the same identifier, producing the record
// [NextRecord] describes. window is the lockout duration; a store may drop a
// record once its window has passed.
type Store interface {
	Load(ctx context.Context, identifier string) (Record, bool, error)
	Increment(ctx context.Context, identifier string, now time.Time, window time.Duration) (Record, error)
	Delete(ctx context.Context, identifier string) error
}

// NextRecord returns the record that follows cur after one more attempt at
// now. A missing record, or one whose window started more than window before
// now, is replaced by a fresh record with a count of one.
func NextRecord(identifier string, cur Record, exists bool, now time.Time, window time.Duration) Record {
	if !exists || windowExpired(cur.WindowStartedAt, now, window) {
		return Record{Identifier: identifier, Count: 1, WindowStartedAt: now}
	}
	cur.Identifier = identifier
	cur.Count++
	return cur
}

func windowExpired(started, now time.Time, window time.Duration) bool {
	return now.Sub(started) > window
}
