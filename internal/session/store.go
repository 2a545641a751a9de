package session

import (
	"context"
	"sync"
	"time"
)

type Kind string

const (
	KindNone                   Kind = "none"
	KindAwaitingTopUpMethod    Kind = "awaiting_topup_method"
	KindAwaitingTopUpAmount    Kind = "awaiting_topup_amount"
	KindAwaitingWithdrawAmount Kind = "awaiting_withdraw_amount"
)

// State is a user's pending conversational flow. Method is set once a top-up
// method has been chosen.
type State struct {
	Kind      Kind
	Method    string
	UpdatedAt time.Time
}

func (s State) Pending() bool {
	return s.Kind != "" && s.Kind != KindNone
}

type userLock struct {
	mu   sync.Mutex
	refs int
}

// Store holds pending flows in memory. Entries older than ttl read as KindNone.
// Nothing survives a restart.
type Store struct {
	mu     sync.Mutex
	states map[int64]State
	locks  map[int64]*userLock
	ttl    time.Duration
	now    func() time.Time
}

func NewStore(ttl time.Duration) *Store {
	return &Store{
		states: make(map[int64]State),
		locks:  make(map[int64]*userLock),
		ttl:    ttl,
		now:    time.Now,
	}
}

func (s *Store) Get(userID int64) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.states[userID]
	if !ok {
		return State{Kind: KindNone}
	}
	if s.expired(st) {
		delete(s.states, userID)
		return State{Kind: KindNone}
	}
	return st
}

// Set replaces the user's state. Setting KindNone is the same as Clear.
func (s *Store) Set(userID int64, st State) {
	if !st.Pending() {
		s.Clear(userID)
		return
	}
	st.UpdatedAt = s.now()
	s.mu.Lock()
	s.states[userID] = st
	s.mu.Unlock()
}

func (s *Store) Clear(userID int64) {
	s.mu.Lock()
	delete(s.states, userID)
	s.mu.Unlock()
}

// Len counts pending flows, including ones that expired but were not swept yet.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.states)
}

func (s *Store) expired(st State) bool {
	return s.ttl > 0 && s.now().Sub(st.UpdatedAt) > s.ttl
}

// Sweep drops expired flows and returns how many were removed.
func (s *Store) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, st := range s.states {
		if s.expired(st) {
			delete(s.states, id)
			n++
		}
	}
	return n
}

// Run sweeps every interval until ctx is done. onSweep, if set, gets the removed count.
func (s *Store) Run(ctx context.Context, interval time.Duration, onSweep func(removed int)) {
	tick := time.NewTicker(interval)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
			n := s.Sweep()
			if onSweep != nil {
				onSweep(n)
			}
		}
	}
}

// Lock serialises event handling for one user. The returned func releases it.
func (s *Store) Lock(userID int64) (unlock func()) {
	s.mu.Lock()
	l, ok := s.locks[userID]
	if !ok {
		l = &userLock{}
		s.locks[userID] = l
	}
	l.refs++
	s.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		s.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, userID)
		}
		s.mu.Unlock()
	}
}
