package feed

// Store is the bounded, newest-first post list. It is not safe for concurrent
// use on its own; the Manager serializes access and persists after every
// mutation.
type Store struct {
	items    []Item
	capacity int
}

// NewStore returns a store holding at most capacity items. Capacity is forced
// to at least 1.
func NewStore(capacity int) *Store {
	if capacity < 1 {
		capacity = 1
	}
	return &Store{capacity: capacity}
}

// Append inserts item at the front and evicts trailing (oldest) items beyond
// capacity. It returns the number of evicted items. Relative order of the
// retained items is preserved.
func (s *Store) Append(item Item) int {
	s.items = append([]Item{item}, s.items...)
	evicted := len(s.items) - s.capacity
	if evicted > 0 {
		s.items = s.items[:s.capacity]
		return evicted
	}
	return 0
}

// List returns a copy of the items, newest first.
func (s *Store) List() []Item {
	out := make([]Item, len(s.items))
	copy(out, s.items)
	return out
}

// Len returns the current item count.
func (s *Store) Len() int { return len(s.items) }

// Capacity returns the configured bound.
func (s *Store) Capacity() int { return s.capacity }

// SetCapacity adjusts the bound, evicting oldest items if the store already
// holds more than the new capacity. Values below 1 are forced to 1.
func (s *Store) SetCapacity(capacity int) {
	if capacity < 1 {
		capacity = 1
	}
	s.capacity = capacity
	if len(s.items) > capacity {
		s.items = s.items[:capacity]
	}
}

// Replace swaps in a full item list (newest first), trimming to capacity.
// Used when rehydrating from the settings blob.
func (s *Store) Replace(items []Item) {
	s.items = make([]Item, len(items))
	copy(s.items, items)
	if len(s.items) > s.capacity {
		s.items = s.items[:s.capacity]
	}
}

// Clear drops all items.
func (s *Store) Clear() { s.items = nil }
