package sync

import (
	"time"

	"github.com/tracks2cal/tracks2cal/pkg/calendar"
	"github.com/tracks2cal/tracks2cal/pkg/track"
)

// fuzzWindow is the tolerance within which two timestamps are considered
// equal for deduplication.
const fuzzWindow = 2 * time.Second

// EventCache is a read-only snapshot of the target calendar's events, loaded
// once at the start of a run. Events created during the run are not visible
// to it, so identical records within one batch are not mutually deduplicated.
type EventCache struct {
	events []calendar.Event
}

func NewEventCache(events []calendar.Event) *EventCache {
	return &EventCache{events: events}
}

func (c *EventCache) Size() int {
	return len(c.events)
}

// HasMatch reports whether the cache already holds an event for the record:
// same title, with start and end each within the fuzz window. The window is
// one-sided: an existing event slightly earlier than the record matches, one
// slightly later does not. This mirrors the long-standing behavior of the
// original time-window query and is pinned by tests; do not "fix" it without
// a product decision.
func (c *EventCache) HasMatch(record track.Record) bool {
	for _, existing := range c.events {
		if existing.Title != record.Title {
			continue
		}
		if withinFuzz(record.Start, existing.Start) && withinFuzz(record.End, existing.End) {
			return true
		}
	}
	return false
}

func withinFuzz(recordTime, existingTime time.Time) bool {
	d := recordTime.Sub(existingTime)
	return d >= 0 && d < fuzzWindow
}
