// Package supersede lets only the latest request per client key finish.
//
// Interactive lookups (typeahead suggestions, re-centred parking searches) are
// issued far faster than upstream services answer. A Coordinator hands out one
// Ticket per request; starting a new ticket for the same key cancels the older
// one so its result is never written back to the client.
package supersede

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

// ErrSuperseded is returned when a newer request for the same key has started.
var ErrSuperseded = errors.New("superseded by a newer request")

// Coordinator tracks the live ticket for each key. The zero value is not
// usable; call New.
type Coordinator struct {
	mu     sync.Mutex
	seq    uint64
	latest map[string]*Ticket
}

// New creates an empty Coordinator.
func New() *Coordinator {
	return &Coordinator{latest: make(map[string]*Ticket)}
}

// Ticket represents one in-flight request for a key.
type Ticket struct {
	c          *Coordinator
	key        string
	id         uint64
	superseded atomic.Bool
	cancel     context.CancelCauseFunc
}

// Begin registers a new request for key and cancels the previous one, if any.
// The returned context is cancelled with ErrSuperseded as its cause when a
// newer ticket for the same key begins. Callers must Release the ticket.
func (c *Coordinator) Begin(ctx context.Context, key string) (context.Context, *Ticket) {
	ctx, cancel := context.WithCancelCause(ctx)

	c.mu.Lock()
	c.seq++
	t := &Ticket{c: c, key: key, id: c.seq, cancel: cancel}
	prev := c.latest[key]
	c.latest[key] = t
	c.mu.Unlock()

	if prev != nil {
		prev.superseded.Store(true)
		prev.cancel(ErrSuperseded)
	}
	return ctx, t
}

// Len returns the number of keys with a live ticket.
func (c *Coordinator) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.latest)
}

// Superseded reports whether a newer ticket for the same key has begun.
func (t *Ticket) Superseded() bool {
	return t.superseded.Load()
}

// Err returns ErrSuperseded once the ticket has been superseded, otherwise nil.
func (t *Ticket) Err() error {
	if t.Superseded() {
		return ErrSuperseded
	}
	return nil
}

// Settle waits for the quiescence window. It returns ErrSuperseded if a newer
// ticket arrived in the meantime, or the context error if ctx ends first.
// A non-positive window only checks for supersession.
func (t *Ticket) Settle(ctx context.Context, window time.Duration) error {
	if window > 0 {
		timer := time.NewTimer(window)
		defer timer.Stop()

		select {
		case <-ctx.Done():
			if t.Superseded() {
				return ErrSuperseded
			}
			return ctx.Err()
		case <-timer.C:
		}
	}
	return t.Err()
}

// Release removes the ticket from its coordinator and cancels its context.
// It is safe to call more than once.
func (t *Ticket) Release() {
	t.c.mu.Lock()
	if t.c.latest[t.key] == t {
		delete(t.c.latest, t.key)
	}
	t.c.mu.Unlock()
	t.cancel(context.Canceled)
}
