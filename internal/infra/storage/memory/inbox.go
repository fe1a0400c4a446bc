package memory

import (
	"context"
	"sync"
)

// Inbox remembers consumed message ids for the process lifetime.
type Inbox struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

func NewInbox() *Inbox {
	return &Inbox{seen: make(map[string]struct{})}
}

// Seen records id and reports whether it had been recorded before.
func (i *Inbox) Seen(ctx context.Context, id string) (bool, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if _, ok := i.seen[id]; ok {
		return true, nil
	}
	i.seen[id] = struct{}{}
	return false, nil
}

// Forget drops id so a failed message can be retried.
func (i *Inbox) Forget(ctx context.Context, id string) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	delete(i.seen, id)
	return nil
}
