package session

import (
	"sync"
	"time"
)

// Registry defines the concurrency-safe contract for accessing and mutating
// in-memory session state. Every operation is atomic with respect to
// concurrent callers; a session whose participant count reaches zero is
// removed rather than retained with stale media state.
type Registry interface {
	// Create returns the session for id, creating it if absent. Idempotent.
	Create(id ID) Session

	// Get returns a copy of the session for id, if present.
	Get(id ID) (Session, bool)

	// SetMedia records the session's current media URL, creating the
	// session if it has not been seen before.
	SetMedia(id ID, url string)

	// SetPlaybackState records the authoritative (playing, position) pair.
	// Updates are last-writer-wins.
	SetPlaybackState(id ID, playing bool, position float64)

	// IncrementParticipants bumps the participant count and returns the new
	// value, creating the session if absent.
	IncrementParticipants(id ID) int

	// DecrementParticipants lowers the participant count and returns the new
	// value. The count never goes negative; at zero the session is deleted.
	DecrementParticipants(id ID) int

	// ActiveSessionCount returns the number of live sessions. Used for metrics.
	ActiveSessionCount() int

	// TotalParticipants returns the participant count summed over all
	// sessions. Used for metrics.
	TotalParticipants() int
}

// InMemoryRegistry is a concurrency-safe in-memory implementation of Registry.
// It uses a Store for persistence; by default that is an InMemoryStore.
type InMemoryRegistry struct {
	mu    sync.RWMutex
	store Store
}

// NewInMemoryRegistry constructs a new registry with a default in-memory store.
func NewInMemoryRegistry() *InMemoryRegistry {
	return NewInMemoryRegistryWithStore(NewInMemoryStore())
}

// NewInMemoryRegistryWithStore constructs a registry that uses the given Store.
// Useful for testing or for plugging in a different persistence backend.
func NewInMemoryRegistryWithStore(store Store) *InMemoryRegistry {
	return &InMemoryRegistry{store: store}
}

// Create implements Registry.Create.
func (r *InMemoryRegistry) Create(id ID) Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	return *r.getOrCreateLocked(id)
}

// Get implements Registry.Get.
func (r *InMemoryRegistry) Get(id ID) (Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sess, ok := r.store.GetSession(id)
	if !ok {
		return Session{}, false
	}
	return *sess, true
}

// SetMedia implements Registry.SetMedia.
func (r *InMemoryRegistry) SetMedia(id ID, url string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sess := r.getOrCreateLocked(id)
	sess.MediaURL = url
	sess.LastUpdated = time.Now().UTC()
}

// SetPlaybackState implements Registry.SetPlaybackState.
func (r *InMemoryRegistry) SetPlaybackState(id ID, playing bool, position float64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sess := r.getOrCreateLocked(id)
	sess.Playing = playing
	sess.Position = position
	sess.LastUpdated = time.Now().UTC()
}

// IncrementParticipants implements Registry.IncrementParticipants.
func (r *InMemoryRegistry) IncrementParticipants(id ID) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	sess := r.getOrCreateLocked(id)
	sess.Participants++
	sess.LastUpdated = time.Now().UTC()
	return sess.Participants
}

// DecrementParticipants implements Registry.DecrementParticipants.
func (r *InMemoryRegistry) DecrementParticipants(id ID) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	sess, ok := r.store.GetSession(id)
	if !ok {
		return 0
	}

	if sess.Participants > 0 {
		sess.Participants--
	}
	if sess.Participants == 0 {
		r.store.DeleteSession(id)
		return 0
	}

	sess.LastUpdated = time.Now().UTC()
	return sess.Participants
}

// ActiveSessionCount implements Registry.ActiveSessionCount.
func (r *InMemoryRegistry) ActiveSessionCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.store.ListSessionIDs())
}

// TotalParticipants implements Registry.TotalParticipants.
func (r *InMemoryRegistry) TotalParticipants() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, id := range r.store.ListSessionIDs() {
		if sess, ok := r.store.GetSession(id); ok {
			n += sess.Participants
		}
	}
	return n
}

// getOrCreateLocked returns an existing session or creates a new one.
// Caller must hold r.mu in write mode.
func (r *InMemoryRegistry) getOrCreateLocked(id ID) *Session {
	if sess, ok := r.store.GetSession(id); ok {
		return sess
	}

	sess := &Session{
		ID:          id,
		LastUpdated: time.Now().UTC(),
	}
	r.store.SetSession(sess)
	return sess
}
