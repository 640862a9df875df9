package billing

import (
	"context"
	"errors"
	"sync"
	"time"
)

// Session keeps the last committed snapshot of one booking. A Refresh
// cancels the retrieval still in flight and commits only its own results
// if nothing newer started meanwhile.
type Session struct {
	bookingID string
	loader    *Loader
	seq       *Sequencer

	mu       sync.RWMutex
	snapshot *Snapshot
	lastUsed time.Time
}

// NewSession creates an empty session for a booking
func NewSession(bookingID string, loader *Loader) *Session {
	return &Session{
		bookingID: bookingID,
		loader:    loader,
		seq:       NewSequencer(),
		lastUsed:  time.Now(),
	}
}

// BookingID returns the booking the session belongs to
func (s *Session) BookingID() string {
	return s.bookingID
}

// Refresh runs a staged retrieval and commits it if still current
func (s *Session) Refresh(ctx context.Context) (Snapshot, error) {
	ticket := s.seq.Begin(ctx)
	defer ticket.Finish()

	s.touch()
	snap, err := s.loader.Load(ticket.Context(), s.bookingID)
	if err != nil {
		if !ticket.IsCurrent() && ctx.Err() == nil {
			return Snapshot{}, ErrStaleRetrieval
		}
		return Snapshot{}, err
	}
	snap.Seq = ticket.Seq()

	err = s.seq.Commit(ticket, func() {
		s.mu.Lock()
		s.snapshot = &snap
		s.mu.Unlock()
	})
	if err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}

// Current returns the last committed snapshot
func (s *Session) Current() (Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.snapshot == nil {
		return Snapshot{}, false
	}
	return *s.snapshot, true
}

// Invalidate drops the committed snapshot and supersedes any retrieval in flight
func (s *Session) Invalidate() {
	ticket := s.seq.Begin(context.Background())
	defer ticket.Finish()
	_ = s.seq.Commit(ticket, func() {
		s.mu.Lock()
		s.snapshot = nil
		s.mu.Unlock()
	})
}

// IdleSince returns when the session was last refreshed
func (s *Session) IdleSince() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastUsed
}

func (s *Session) touch() {
	s.mu.Lock()
	s.lastUsed = time.Now()
	s.mu.Unlock()
}

// IsStale reports whether err means a newer retrieval won
func IsStale(err error) bool {
	return errors.Is(err, ErrStaleRetrieval)
}
