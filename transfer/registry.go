package transfer

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// Registry routes external cancellation requests to live transfer
// instances. It is the only shared mutable state between otherwise
// independent transfers, holds no ownership beyond lookup, and its
// lifecycle is tied to the application shell that creates it.
type Registry struct {
	mu        sync.RWMutex
	transfers map[string]*Transfer
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{transfers: make(map[string]*Transfer)}
}

// Register adds a transfer under its ID, replacing any previous entry.
func (r *Registry) Register(t *Transfer) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.transfers[t.ID()] = t

	logrus.WithFields(logrus.Fields{
		"function": "Register",
		"id":       t.ID(),
		"count":    len(r.transfers),
	}).Debug("Registered transfer")
}

// Lookup returns the transfer registered under id, or nil.
func (r *Registry) Lookup(id string) *Transfer {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.transfers[id]
}

// Remove drops the transfer registered under id.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.transfers, id)
}

// Cancel cancels the transfer registered under id, if any, and reports
// whether a transfer was found. Cancelling an already-finished transfer is
// a no-op.
func (r *Registry) Cancel(id string) bool {
	t := r.Lookup(id)
	if t == nil {
		return false
	}
	t.Cancel()
	return true
}
