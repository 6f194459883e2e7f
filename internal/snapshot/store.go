// Package snapshot stores the most recent poll outcome per endpoint.
package snapshot

import (
	"sync"
	"time"
)

// Result is the latest settled poll outcome for one endpoint.
type Result struct {
	// Endpoint is the logical endpoint name.
	Endpoint string

	// Data is the payload that was broadcast. Nil when the poll failed.
	Data any

	// Err is the error that was broadcast. Nil when the poll succeeded.
	Err error

	// At is when the fetch settled.
	At time.Time
}

// Store holds the latest [Result] per endpoint.
//
// New results replace previous values for the same endpoint. All
// methods are safe for concurrent use.
type Store struct {
	mu      sync.RWMutex
	results map[string]Result
}

// NewStore creates an empty [Store]. It is immediately ready for use
// and needs no cleanup.
func NewStore() *Store {
	return &Store{results: make(map[string]Result)}
}

// Update stores a result, replacing any previous value for its endpoint.
func (s *Store) Update(result Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[result.Endpoint] = result
}

// Get returns the latest result for an endpoint.
func (s *Store) Get(endpoint string) (Result, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result, ok := s.results[endpoint]
	return result, ok
}

// GetAll returns a snapshot of all stored results.
//
// The returned slice is a copy; order is not guaranteed.
func (s *Store) GetAll() []Result {
	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make([]Result, 0, len(s.results))
	for _, result := range s.results {
		results = append(results, result)
	}
	return results
}
