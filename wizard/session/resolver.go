package session

import (
	"context"
	"sync"
)

// Resolver resolves the effective session identifier from an ordered list
// of candidate sources:
//
//  1. a per-process cache set by a previous successful resolution
//  2. a field on the shared configuration object
//  3. the "active session" pointer in persistent storage
//
// The first non-empty result wins and is cached. An empty result from all
// sources signals "new session required".
type Resolver struct {
	mu     sync.Mutex
	cached string

	// fromConfig reads the session id field off the shared configuration
	// object. May be nil when no configuration is mounted yet.
	fromConfig func() string

	store Store
}

// NewResolver creates a Resolver over the given config field reader and
// store. fromConfig may be nil; store must not be nil.
func NewResolver(fromConfig func() string, store Store) *Resolver {
	return &Resolver{
		fromConfig: fromConfig,
		store:      store,
	}
}

// Resolve returns the effective session id, or "" when no source resolves.
//
// The store is only consulted when both the cache and the configuration
// field come up empty. Errors from the store are returned as-is; a missing
// pointer is not an error.
func (r *Resolver) Resolve(ctx context.Context) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cached != "" {
		return r.cached, nil
	}

	if r.fromConfig != nil {
		if id := r.fromConfig(); id != "" {
			r.cached = id
			return id, nil
		}
	}

	id, err := r.store.ActiveSession(ctx)
	if err != nil {
		return "", err
	}
	if id != "" {
		r.cached = id
	}
	return id, nil
}

// Prime seeds the cache directly, e.g. after creating a brand-new session.
func (r *Resolver) Prime(id string) {
	r.mu.Lock()
	r.cached = id
	r.mu.Unlock()
}

// Invalidate clears the cache so the next Resolve re-walks the sources.
func (r *Resolver) Invalidate() {
	r.mu.Lock()
	r.cached = ""
	r.mu.Unlock()
}
