package target

// Set is an ordered mapping from Key to Value. Insertion order is preserved;
// replacing an existing key keeps its original position.
//
// A nil *Set reads as empty. Set is not safe for concurrent mutation.
type Set struct {
	order  []Key
	values map[Key]Value
}

// NewSet returns an empty set.
func NewSet() *Set {
	return &Set{values: make(map[Key]Value)}
}

// Put stores v under k and returns the set so layers can be built fluently.
func (s *Set) Put(k Key, v Value) *Set {
	if s.values == nil {
		s.values = make(map[Key]Value)
	}
	if _, exists := s.values[k]; !exists {
		s.order = append(s.order, k)
	}
	s.values[k] = v
	return s
}

// Get returns the value stored under k.
func (s *Set) Get(k Key) (Value, bool) {
	if s == nil {
		return Value{}, false
	}
	v, ok := s.values[k]
	return v, ok
}

// Has reports whether k is present.
func (s *Set) Has(k Key) bool {
	_, ok := s.Get(k)
	return ok
}

// Delete removes k. It is a no-op when k is absent.
func (s *Set) Delete(k Key) {
	if s == nil {
		return
	}
	if _, ok := s.values[k]; !ok {
		return
	}
	delete(s.values, k)
	for i, key := range s.order {
		if key == k {
			s.order = append(s.order[:i:i], s.order[i+1:]...)
			break
		}
	}
}

// Len returns the number of keys.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.order)
}

// Keys returns the keys in insertion order. The slice is a copy.
func (s *Set) Keys() []Key {
	if s == nil {
		return nil
	}
	keys := make([]Key, len(s.order))
	copy(keys, s.order)
	return keys
}

// Clone returns an independent copy.
func (s *Set) Clone() *Set {
	c := NewSet()
	if s == nil {
		return c
	}
	c.order = make([]Key, len(s.order))
	copy(c.order, s.order)
	for k, v := range s.values {
		c.values[k] = v
	}
	return c
}
