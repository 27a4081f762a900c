package wizard

import (
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const (
	// DefaultSessionTTL bounds how long an abandoned wizard lingers.
	DefaultSessionTTL = 2 * time.Hour
	// DefaultSessionCapacity bounds the total number of live wizards.
	DefaultSessionCapacity = 4096
)

// Store holds the active wizard states, keyed by user and wizard kind.
// Entries expire after a bounded idle period and the oldest are evicted when
// the capacity is reached, so an abandoned wizard never leaks.
type Store struct {
	cache *expirable.LRU[string, *State]
	locks sync.Map // user -> *sync.Mutex

	// onCount, when set, receives +1/-1 as sessions appear and disappear.
	onCount func(delta int64)
}

// NewStore builds a session store. Zero capacity or TTL fall back to the
// defaults. onCount may be nil.
func NewStore(capacity int, ttl time.Duration, onCount func(delta int64)) *Store {
	if capacity <= 0 {
		capacity = DefaultSessionCapacity
	}
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	s := &Store{onCount: onCount}
	s.cache = expirable.NewLRU[string, *State](capacity, func(string, *State) {
		s.count(-1)
	}, ttl)
	return s
}

func (s *Store) count(delta int64) {
	if s.onCount != nil {
		s.onCount(delta)
	}
}

func sessionKey(user string, kind Kind) string {
	return fmt.Sprintf("%s|%s", user, kind)
}

// Lock serializes wizard steps for one user and returns the unlock func.
// Interactions from different users never contend with each other.
func (s *Store) Lock(user string) func() {
	v, _ := s.locks.LoadOrStore(user, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// Get returns the user's active wizard of the given kind.
func (s *Store) Get(user string, kind Kind) (*State, bool) {
	return s.cache.Get(sessionKey(user, kind))
}

// Put installs a wizard state, replacing any previous instance of the same
// kind for that user.
func (s *Store) Put(user string, st *State) {
	key := sessionKey(user, st.Kind)
	if _, exists := s.cache.Peek(key); !exists {
		s.count(1)
	}
	s.cache.Add(key, st)
}

// Delete removes the user's wizard of the given kind, if present.
func (s *Store) Delete(user string, kind Kind) {
	s.cache.Remove(sessionKey(user, kind))
}

// Len reports the number of live wizard states.
func (s *Store) Len() int {
	return s.cache.Len()
}
