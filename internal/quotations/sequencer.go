package quotations

import (
	"context"
	"sync"
)

// Sequencer orders operations that share a key. Beginning a new operation cancels the
// context of the one before it, and only the latest ticket for a key is current.
type Sequencer struct {
	mu    sync.Mutex
	lanes map[string]*lane
}

type lane struct {
	gen    uint64
	cancel context.CancelFunc
	open   int
}

// Ticket identifies one sequenced operation.
type Ticket struct {
	seq    *Sequencer
	key    string
	gen    uint64
	cancel context.CancelFunc
}

func NewSequencer() *Sequencer {
	return &Sequencer{lanes: map[string]*lane{}}
}

// Begin starts an operation for key and supersedes any operation already running for it.
// The returned context is cancelled when a newer operation begins or the ticket is released.
func (s *Sequencer) Begin(ctx context.Context, key string) (context.Context, *Ticket) {
	opCtx, cancel := context.WithCancel(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.lanes[key]
	if !ok {
		l = &lane{}
		s.lanes[key] = l
	}
	if l.cancel != nil {
		l.cancel()
	}
	l.gen++
	l.cancel = cancel
	l.open++
	return opCtx, &Ticket{seq: s, key: key, gen: l.gen, cancel: cancel}
}

// Supersede invalidates whatever is in flight for key without starting anything new.
func (s *Sequencer) Supersede(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.lanes[key]
	if !ok {
		return
	}
	if l.cancel != nil {
		l.cancel()
		l.cancel = nil
	}
	l.gen++
}

// Current reports whether t is still the latest operation for its key.
func (t *Ticket) Current() bool {
	t.seq.mu.Lock()
	defer t.seq.mu.Unlock()
	l, ok := t.seq.lanes[t.key]
	return ok && l.gen == t.gen
}

// Release ends the operation. Every ticket must be released exactly once.
func (t *Ticket) Release() {
	t.cancel()

	t.seq.mu.Lock()
	defer t.seq.mu.Unlock()
	l, ok := t.seq.lanes[t.key]
	if !ok {
		return
	}
	if l.gen == t.gen {
		l.cancel = nil
	}
	l.open--
	if l.open <= 0 {
		delete(t.seq.lanes, t.key)
	}
}
