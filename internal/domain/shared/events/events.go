package events

import "time"

// DomainEvent is a fact about a change in the reservation ledger.
type DomainEvent interface {
	EventName() string
	AggregateID() string
	OccurredAt() time.Time
}

// Batch collects events raised by one operation before they are handed to the outbox.
type Batch []DomainEvent

func (b *Batch) Add(event DomainEvent) {
	if event == nil {
		return
	}
	*b = append(*b, event)
}

func (b Batch) Names() []string {
	out := make([]string, 0, len(b))
	for _, ev := range b {
		out = append(out, ev.EventName())
	}
	return out
}
