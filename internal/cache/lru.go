package cache

import (
	"container/list"
	"time"
)

// entry is one cached fetch result. It is replaced wholesale, never mutated.
type entry struct {
	key       string
	data      any
	timestamp time.Time
	expiresAt time.Time
	gen       uint64 // flight that produced it
}

// store is an LRU-ordered entry map. maxSize <= 0 means unbounded.
// Callers hold Cache.mu.
type store struct {
	maxSize int
	items   map[string]*list.Element
	lru     *list.List
}

func newStore(maxSize int) *store {
	return &store{
		maxSize: maxSize,
		items:   make(map[string]*list.Element),
		lru:     list.New(),
	}
}

// get returns the entry and marks it most recently used.
func (s *store) get(key string) (*entry, bool) {
	elem, exists := s.items[key]
	if !exists {
		return nil, false
	}
	s.lru.MoveToFront(elem)
	return elem.Value.(*entry), true
}

// peek returns the entry without touching recency.
func (s *store) peek(key string) (*entry, bool) {
	elem, exists := s.items[key]
	if !exists {
		return nil, false
	}
	return elem.Value.(*entry), true
}

// set stores e and returns the number of entries evicted to make room.
func (s *store) set(e *entry) int {
	if elem, exists := s.items[e.key]; exists {
		elem.Value = e
		s.lru.MoveToFront(elem)
		return 0
	}

	elem := s.lru.PushFront(e)
	s.items[e.key] = elem

	evicted := 0
	for s.maxSize > 0 && s.lru.Len() > s.maxSize {
		oldest := s.lru.Back()
		if oldest == nil {
			break
		}
		s.removeElement(oldest)
		evicted++
	}
	return evicted
}

func (s *store) delete(key string) bool {
	if elem, exists := s.items[key]; exists {
		s.removeElement(elem)
		return true
	}
	return false
}

// deleteWhere removes every entry for which match returns true.
func (s *store) deleteWhere(match func(*entry) bool) int {
	var toRemove []*list.Element
	for elem := s.lru.Front(); elem != nil; elem = elem.Next() {
		if match(elem.Value.(*entry)) {
			toRemove = append(toRemove, elem)
		}
	}
	for _, elem := range toRemove {
		s.removeElement(elem)
	}
	return len(toRemove)
}

func (s *store) removeElement(elem *list.Element) {
	e := elem.Value.(*entry)
	delete(s.items, e.key)
	s.lru.Remove(elem)
}

func (s *store) reset() {
	s.items = make(map[string]*list.Element)
	s.lru.Init()
}

func (s *store) len() int {
	return len(s.items)
}
