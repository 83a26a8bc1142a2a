// Package events delivers journal change notifications to in-process
// subscribers and, optionally, to a redis channel.
package events

import (
	"sync"

	"github.com/google/uuid"
	"github.com/terraincognita07/medjournal/internal/services"
)

const defaultSubscriberBuffer = 16

// Broadcaster fans changes out to subscribers of a journal. A subscriber whose
// buffer is full misses the change; writers never block.
type Broadcaster struct {
	mu          sync.Mutex
	subscribers map[uuid.UUID]map[*subscription]struct{}
	buffer      int
}

type subscription struct {
	changes chan services.JournalChange
	once    sync.Once
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		subscribers: map[uuid.UUID]map[*subscription]struct{}{},
		buffer:      defaultSubscriberBuffer,
	}
}

// Subscribe registers interest in journalID. Call the returned cancel func to
// unsubscribe; it closes the channel and is safe to call more than once.
func (broadcaster *Broadcaster) Subscribe(journalID uuid.UUID) (<-chan services.JournalChange, func()) {
	sub := &subscription{changes: make(chan services.JournalChange, broadcaster.buffer)}

	broadcaster.mu.Lock()
	if broadcaster.subscribers[journalID] == nil {
		broadcaster.subscribers[journalID] = map[*subscription]struct{}{}
	}
	broadcaster.subscribers[journalID][sub] = struct{}{}
	broadcaster.mu.Unlock()

	cancel := func() {
		broadcaster.mu.Lock()
		defer broadcaster.mu.Unlock()
		if subs, ok := broadcaster.subscribers[journalID]; ok {
			delete(subs, sub)
			if len(subs) == 0 {
				delete(broadcaster.subscribers, journalID)
			}
		}
		sub.once.Do(func() { close(sub.changes) })
	}
	return sub.changes, cancel
}

func (broadcaster *Broadcaster) Notify(change services.JournalChange) {
	broadcaster.mu.Lock()
	defer broadcaster.mu.Unlock()
	for sub := range broadcaster.subscribers[change.JournalID] {
		select {
		case sub.changes <- change:
		default:
		}
	}
}

func (broadcaster *Broadcaster) SubscriberCount(journalID uuid.UUID) int {
	broadcaster.mu.Lock()
	defer broadcaster.mu.Unlock()
	return len(broadcaster.subscribers[journalID])
}
