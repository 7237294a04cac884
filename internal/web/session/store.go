package session

import (
	"sort"
	"sync"
)

// User is the authenticated QuickVideo account held by a session.
type User struct {
	ID     string `json:"id"`
	Email  string `json:"email"`
	Tokens int    `json:"tokens"`
	Auth   string `json:"auth"`
}

// Snapshot is an immutable view of the store contents at a point in time.
type Snapshot struct {
	User *User
}

// Authenticated reports whether the snapshot carries a user.
func (s Snapshot) Authenticated() bool {
	return s.User != nil
}

// Listener receives the new snapshot after every change to a Store.
type Listener func(Snapshot)

// Store holds at most one authenticated user. Changes are pushed to
// subscribers; reads are synchronous snapshots.
type Store struct {
	mu        sync.RWMutex
	user      *User
	listeners map[int]Listener
	nextID    int
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{listeners: make(map[int]Listener)}
}

// User returns a copy of the current user, if any.
func (s *Store) User() (*User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil, false
	}
	copied := *s.user
	return &copied, true
}

// Snapshot returns the current store contents.
func (s *Store) Snapshot() Snapshot {
	user, _ := s.User()
	return Snapshot{User: user}
}

// SetUser replaces the stored user wholesale. Storing a record equal to the
// current one leaves the store untouched and notifies nobody.
func (s *Store) SetUser(user User) {
	s.mu.Lock()
	if s.user != nil && *s.user == user {
		s.mu.Unlock()
		return
	}
	copied := user
	s.user = &copied
	listeners := s.listenersLocked()
	s.mu.Unlock()

	published := user
	notify(listeners, Snapshot{User: &published})
}

// ClearUser empties the store.
func (s *Store) ClearUser() {
	s.mu.Lock()
	if s.user == nil {
		s.mu.Unlock()
		return
	}
	s.user = nil
	listeners := s.listenersLocked()
	s.mu.Unlock()

	notify(listeners, Snapshot{})
}

// Subscribe registers a listener and returns a function that removes it.
func (s *Store) Subscribe(listener Listener) (cancel func()) {
	if listener == nil {
		return func() {}
	}
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = listener
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.listeners, id)
			s.mu.Unlock()
		})
	}
}

func (s *Store) listenersLocked() []Listener {
	if len(s.listeners) == 0 {
		return nil
	}
	ids := make([]int, 0, len(s.listeners))
	for id := range s.listeners {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	out := make([]Listener, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.listeners[id])
	}
	return out
}

// listeners run outside the store lock so they may read the store.
func notify(listeners []Listener, snap Snapshot) {
	for _, l := range listeners {
		l(snap)
	}
}
