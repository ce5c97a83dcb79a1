package dialog

import (
	"sync"
	"time"
)

// replayGuard remembers recently seen inbound message ids so redelivered
// webhook payloads are dropped before they touch the database. Entries
// expire after the retention window; pruning happens inline on insert.
type replayGuard struct {
	mu        sync.Mutex
	seen      map[string]time.Time
	retention time.Duration
}

func newReplayGuard(retention time.Duration) *replayGuard {
	if retention <= 0 {
		retention = 5 * time.Minute
	}
	return &replayGuard{seen: make(map[string]time.Time), retention: retention}
}

// Seen records id and reports whether it was already present. An empty id
// is never considered a replay.
func (g *replayGuard) Seen(id string, now time.Time) bool {
	if id == "" {
		return false
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	cutoff := now.Add(-g.retention)
	for k, t := range g.seen {
		if t.Before(cutoff) {
			delete(g.seen, k)
		}
	}
	if _, ok := g.seen[id]; ok {
		return true
	}
	g.seen[id] = now
	return false
}
