// Package memory provides an in-process publisher that records run events
// for inspection in tests.
package memory

import (
	"context"
	"fmt"
	"sync"
)

// Publisher records every publish call instead of sending it anywhere.
type Publisher struct {
	mu     sync.RWMutex
	events []Event
	seq    int
}

// Event is one recorded publish.
type Event struct {
	ID      string
	Topic   string
	Payload any
}

// New returns an empty Publisher.
func New() *Publisher {
	return &Publisher{}
}

// Publish records the event and returns its pseudo ID.
func (p *Publisher) Publish(_ context.Context, topic string, payload any) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.seq++
	id := fmt.Sprintf("mem-%04d", p.seq)
	p.events = append(p.events, Event{ID: id, Topic: topic, Payload: payload})
	return id, nil
}

// Events returns a copy of everything recorded, in publish order.
func (p *Publisher) Events() []Event {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]Event, len(p.events))
	copy(out, p.events)
	return out
}

// EventsFor returns the recorded events for one topic.
func (p *Publisher) EventsFor(topic string) []Event {
	p.mu.RLock()
	defer p.mu.RUnlock()
	var out []Event
	for _, ev := range p.events {
		if ev.Topic == topic {
			out = append(out, ev)
		}
	}
	return out
}

// Reset drops everything recorded so far. The ID sequence keeps counting.
func (p *Publisher) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = nil
}
