package memory

import (
	"context"
	"sync"
	"time"

	appoutbox "venuecal/internal/app/outbox"
)

type outboxEntry struct {
	record    appoutbox.EventRecord
	claimed   bool
	attempts  int
	nextTry   time.Time
	lastError string
}

// Outbox keeps event records in memory. With retain set, records stay until a worker
// marks them sent; otherwise Flush discards them.
type Outbox struct {
	mu      sync.Mutex
	entries []*outboxEntry
	retain  bool
}

func NewOutbox(retain bool) *Outbox {
	return &Outbox{retain: retain}
}

func (o *Outbox) Add(ctx context.Context, record appoutbox.EventRecord) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.entries = append(o.entries, &outboxEntry{record: record, nextTry: time.Now()})
	return nil
}

func (o *Outbox) Flush(ctx context.Context) error {
	if o.retain {
		return nil
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.entries = nil
	return nil
}

// Pending returns a copy of records not yet sent.
func (o *Outbox) Pending() []appoutbox.EventRecord {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]appoutbox.EventRecord, 0, len(o.entries))
	for _, e := range o.entries {
		out = append(out, e.record)
	}
	return out
}

func (o *Outbox) Claim(ctx context.Context, workerID string) (*appoutbox.Claimed, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	now := time.Now()
	for _, e := range o.entries {
		if e.claimed || e.nextTry.After(now) {
			continue
		}
		e.claimed = true
		return &appoutbox.Claimed{Record: e.record, Attempts: e.attempts}, nil
	}
	return nil, nil
}

func (o *Outbox) MarkSent(ctx context.Context, id string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	for i, e := range o.entries {
		if e.record.ID == id {
			o.entries = append(o.entries[:i], o.entries[i+1:]...)
			return nil
		}
	}
	return nil
}

func (o *Outbox) MarkFailed(ctx context.Context, id string, next time.Time, errMsg string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, e := range o.entries {
		if e.record.ID == id {
			e.claimed = false
			e.attempts++
			e.nextTry = next
			e.lastError = errMsg
		}
	}
	return nil
}

var (
	_ appoutbox.Outbox     = (*Outbox)(nil)
	_ appoutbox.ClaimStore = (*Outbox)(nil)
)
