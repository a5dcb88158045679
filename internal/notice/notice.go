// Package notice holds the shared, mutex-guarded list of tasks the time
// wheel has retired on natural schedule exhaustion (repeat budget spent,
// or the cron schedule yields no further instant). The wheel has no
// reference back into the manager's id-keyed maps, so it leaves a note
// here instead; the manager drains it once per reactor harvest to prune
// its own bookkeeping.
package notice

import (
	"sync"

	"github.com/cherish-ltt/lynn-sundial/pkg/types"
)

// List is the shared notice mailbox. The zero value is ready to use.
type List struct {
	mu      sync.Mutex
	entries []types.NoticeEntry
}

// New builds an empty notice list.
func New() *List {
	return &List{}
}

// Add records a task id the wheel just retired, replacing any earlier
// unseen entry for the same id.
func (l *List) Add(id types.TaskID, status types.Status) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := range l.entries {
		if l.entries[i].ID == id {
			l.entries[i].Status = status
			return
		}
	}
	l.entries = append(l.entries, types.NoticeEntry{ID: id, Status: status})
}

// Drain removes and returns every pending entry at once. The manager calls
// this once per reactor harvest to prune its bookkeeping for every task
// the wheel retired since the last drain.
func (l *List) Drain() []types.NoticeEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.entries) == 0 {
		return nil
	}
	out := l.entries
	l.entries = nil
	return out
}
