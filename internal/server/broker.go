package server

import (
	"encoding/json"
	"sync"

	"github.com/facequest/trainer/internal/game"
)

// Message is one encoded event queued for a subscriber.
type Message struct {
	Type string
	Data []byte
}

// Broker is an in-process pub/sub for session events, keyed by session ID.
type Broker struct {
	mu      sync.RWMutex
	subs    map[string]map[chan Message]struct{}
	dropped map[string]uint64
}

func NewBroker() *Broker {
	return &Broker{
		subs:    make(map[string]map[chan Message]struct{}),
		dropped: make(map[string]uint64),
	}
}

// Subscribe returns a channel that receives the session's events.
func (b *Broker) Subscribe(sessionID string) chan Message {
	ch := make(chan Message, 16)
	b.mu.Lock()
	if b.subs[sessionID] == nil {
		b.subs[sessionID] = make(map[chan Message]struct{})
	}
	b.subs[sessionID][ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes a channel from the session's subscribers.
func (b *Broker) Unsubscribe(sessionID string, ch chan Message) {
	b.mu.Lock()
	delete(b.subs[sessionID], ch)
	if len(b.subs[sessionID]) == 0 {
		delete(b.subs, sessionID)
		delete(b.dropped, sessionID)
	}
	b.mu.Unlock()
}

// Publish sends an event to all subscribers of the given session.
func (b *Broker) Publish(sessionID string, event game.Event) {
	data, err := json.Marshal(event)
	if err != nil {
		return
	}
	msg := Message{Type: string(event.Type), Data: data}

	b.mu.RLock()
	var dropped uint64
	for ch := range b.subs[sessionID] {
		select {
		case ch <- msg:
		default:
			// Drop if subscriber is slow.
			dropped++
		}
	}
	b.mu.RUnlock()

	if dropped > 0 {
		b.mu.Lock()
		if b.subs[sessionID] != nil {
			b.dropped[sessionID] += dropped
		}
		b.mu.Unlock()
	}
}

// Dropped returns how many events slow subscribers of a session missed.
func (b *Broker) Dropped(sessionID string) uint64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.dropped[sessionID]
}
