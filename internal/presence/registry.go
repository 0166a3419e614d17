// Package presence tracks which users currently hold an open real-time
// connection. The registry is advisory process-local state: it drives the
// initial delivery status of new messages and the online/offline
// broadcasts, and it empties on restart.
package presence

import "sync"

// Registry keeps a multiset of connection ids per user so that a second
// simultaneous session does not displace the first. It is safe for
// concurrent use and meant to be injected, not accessed as a global.
type Registry struct {
	mu    sync.RWMutex
	conns map[int64]map[string]struct{}
}

func NewRegistry() *Registry {
	return &Registry{conns: make(map[int64]map[string]struct{})}
}

// Register records a connection for the user. It reports whether this is
// the user's first open connection, i.e. the offline→online edge.
func (r *Registry) Register(userID int64, connID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.conns[userID]
	if !ok {
		set = make(map[string]struct{})
		r.conns[userID] = set
	}
	set[connID] = struct{}{}
	return len(set) == 1
}

// Unregister removes a connection for the user. It reports whether the
// user now has no open connections, i.e. the online→offline edge.
// Unknown connection ids are ignored.
func (r *Registry) Unregister(userID int64, connID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.conns[userID]
	if !ok {
		return false
	}
	if _, exists := set[connID]; !exists {
		return false
	}
	delete(set, connID)
	if len(set) == 0 {
		delete(r.conns, userID)
		return true
	}
	return false
}

func (r *Registry) IsOnline(userID int64) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns[userID]) > 0
}

// Connections returns the number of open connections for the user.
func (r *Registry) Connections(userID int64) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns[userID])
}
