package billing

import (
	"context"
	"errors"
	"sync"
)

// ErrStaleRetrieval is returned when a retrieval finished after a newer one started
var ErrStaleRetrieval = errors.New("retrieval superseded by a newer request")

// Ticket identifies one staged retrieval. Its context is cancelled as soon
// as a newer ticket is issued by the same Sequencer.
type Ticket struct {
	ctx    context.Context
	cancel context.CancelFunc
	seq    uint64
	owner  *Sequencer
}

// Context returns the context the retrieval must run under
func (t *Ticket) Context() context.Context {
	return t.ctx
}

// Seq returns the ticket's sequence number
func (t *Ticket) Seq() uint64 {
	return t.seq
}

// IsCurrent reports whether no newer ticket has been issued
func (t *Ticket) IsCurrent() bool {
	return t.owner.Current() == t.seq
}

// Finish releases the ticket's context
func (t *Ticket) Finish() {
	t.cancel()
}

// Sequencer issues monotonically increasing tickets. Beginning a new ticket
// cancels the previous one so late results can be recognised and dropped.
type Sequencer struct {
	mu      sync.Mutex
	current uint64
	cancel  context.CancelFunc
}

// NewSequencer creates a sequencer with no ticket issued
func NewSequencer() *Sequencer {
	return &Sequencer{}
}

// Begin cancels the in-flight ticket, if any, and issues a new one
func (s *Sequencer) Begin(parent context.Context) *Ticket {
	ctx, cancel := context.WithCancel(parent)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}
	s.current++
	s.cancel = cancel
	return &Ticket{ctx: ctx, cancel: cancel, seq: s.current, owner: s}
}

// Current returns the sequence number of the latest ticket
func (s *Sequencer) Current() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Commit runs fn only if t is still the latest ticket. The check and fn run
// under the sequencer lock so no newer ticket can slip in between.
func (s *Sequencer) Commit(t *Ticket, fn func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.seq != s.current {
		return ErrStaleRetrieval
	}
	fn()
	return nil
}
