// Package session keeps anonymous cart state in server memory, keyed
// by an opaque token carried on a cookie. Lines use the same
// product -> quantity merge contract as the persistent cart; entries
// expire after a sliding TTL and survive only for the session's
// lifetime.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

type entry struct {
	lines   map[uint]int
	touched time.Time
}

type Store struct {
	mu    sync.Mutex
	ttl   time.Duration
	now   func() time.Time
	carts map[string]*entry
}

func NewStore(ttl time.Duration) *Store {
	return &Store{
		ttl:   ttl,
		now:   time.Now,
		carts: make(map[string]*entry),
	}
}

// NewToken mints an opaque session token.
func NewToken() string {
	return uuid.NewString()
}

// Run sweeps expired sessions until the context is cancelled.
func (s *Store) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.purgeExpired()
		}
	}
}

func (s *Store) purgeExpired() {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := s.now().Add(-s.ttl)
	for token, e := range s.carts {
		if e.touched.Before(cutoff) {
			delete(s.carts, token)
		}
	}
}

// get returns the live entry for token, dropping it if expired.
// Callers must hold mu.
func (s *Store) get(token string) *entry {
	e, ok := s.carts[token]
	if !ok {
		return nil
	}
	if e.touched.Before(s.now().Add(-s.ttl)) {
		delete(s.carts, token)
		return nil
	}
	return e
}

// Add merges quantity into the token's line for the product and
// returns the merged quantity. The session cart is created lazily.
func (s *Store) Add(token string, productID uint, quantity int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.get(token)
	if e == nil {
		e = &entry{lines: make(map[uint]int)}
		s.carts[token] = e
	}
	e.lines[productID] += quantity
	e.touched = s.now()
	return e.lines[productID]
}

// Set replaces the line quantity; zero or below removes the line. It
// returns the resulting quantity and whether the line existed.
func (s *Store) Set(token string, productID uint, quantity int) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.get(token)
	if e == nil {
		return 0, false
	}
	if _, ok := e.lines[productID]; !ok {
		return 0, false
	}
	e.touched = s.now()
	if quantity <= 0 {
		delete(e.lines, productID)
		return 0, true
	}
	e.lines[productID] = quantity
	return quantity, true
}

// Lines returns a copy of the token's product -> quantity map. Reading
// refreshes the sliding expiry.
func (s *Store) Lines(token string) map[uint]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.get(token)
	if e == nil {
		return map[uint]int{}
	}
	e.touched = s.now()
	lines := make(map[uint]int, len(e.lines))
	for id, qty := range e.lines {
		lines[id] = qty
	}
	return lines
}

// Clear drops every line for the token.
func (s *Store) Clear(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.carts, token)
}
