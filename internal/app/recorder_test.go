package app

import (
	"sync"

	"github.com/tobiasps/signalmaster/internal/domain"
)

// emitted is one delivery observed by the recorder, one entry per recipient.
type emitted struct {
	to      domain.ClientID
	event   string
	payload any
}

// recorder is an Emitter that captures every delivery for assertions.
type recorder struct {
	mu     sync.Mutex
	events []emitted
}

func (r *recorder) ToClient(id domain.ClientID, event string, payload any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, emitted{to: id, event: event, payload: payload})
}

func (r *recorder) Broadcast(ids []domain.ClientID, event string, payload any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range ids {
		r.events = append(r.events, emitted{to: id, event: event, payload: payload})
	}
}

func (r *recorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

func (r *recorder) all() []emitted {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]emitted, len(r.events))
	copy(out, r.events)
	return out
}

func (r *recorder) forClient(id domain.ClientID) []emitted {
	var out []emitted
	for _, e := range r.all() {
		if e.to == id {
			out = append(out, e)
		}
	}
	return out
}

func (r *recorder) countFor(id domain.ClientID, event string) int {
	n := 0
	for _, e := range r.forClient(id) {
		if e.event == event {
			n++
		}
	}
	return n
}

func (r *recorder) lastFor(id domain.ClientID, event string) (emitted, bool) {
	var found emitted
	ok := false
	for _, e := range r.forClient(id) {
		if e.event == event {
			found = e
			ok = true
		}
	}
	return found, ok
}
