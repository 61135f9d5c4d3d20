// internal/storage/storage.go
package storage

import (
	"container/list"
	"sync"
)

// BoundedSet is an insertion-ordered set of string keys with an explicit
// oldest-first eviction policy. It backs the processed-signature set and the
// known-announcement sets of the monitor.
//
// Re-adding an existing key does not refresh its position: forgetting is
// driven purely by insertion order.
type BoundedSet struct {
	mu    sync.RWMutex
	order *list.List
	index map[string]*list.Element
}

// NewBoundedSet создаёт пустое множество.
func NewBoundedSet() *BoundedSet {
	return &BoundedSet{
		order: list.New(),
		index: make(map[string]*list.Element),
	}
}

// Has reports whether key was added and not yet pruned.
func (s *BoundedSet) Has(key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.index[key]
	return ok
}

// Add inserts key. It returns false when the key was already present.
func (s *BoundedSet) Add(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.index[key]; ok {
		return false
	}
	s.index[key] = s.order.PushBack(key)
	return true
}

// Prune drops the oldest keys until at most maxSize remain and returns the
// number of evicted keys. A negative maxSize is treated as zero.
func (s *BoundedSet) Prune(maxSize int) int {
	if maxSize < 0 {
		maxSize = 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	evicted := 0
	for s.order.Len() > maxSize {
		oldest := s.order.Front()
		s.order.Remove(oldest)
		delete(s.index, oldest.Value.(string))
		evicted++
	}
	return evicted
}

// Len returns the current cardinality.
func (s *BoundedSet) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.order.Len()
}
