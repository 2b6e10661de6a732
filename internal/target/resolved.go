package target

import (
	"crypto/sha256"
	"encoding/hex"
)

// Layer records where a resolved value came from.
type Layer uint8

// Value origins.
const (
	LayerBase Layer = iota + 1
	LayerOverride
	LayerDerived
)

// String returns the layer name.
func (l Layer) String() string {
	switch l {
	case LayerBase:
		return "base"
	case LayerOverride:
		return "override"
	case LayerDerived:
		return "derived"
	default:
		return "unknown"
	}
}

// Entry is one resolved key. Ref is set when the value was defined by
// reference to another key; Value always holds the dereferenced value.
type Entry struct {
	Key   Key
	Value Value
	Ref   Key
	Layer Layer
}

// Resolved is a merged and validated configuration.
//
// Thread Safety:
//   - Resolved has no mutators. It may be shared by pointer across goroutines
//     without synchronisation.
type Resolved struct {
	entries     []Entry
	index       map[Key]int
	fingerprint string
}

func newResolved(entries []Entry) *Resolved {
	r := &Resolved{
		entries: entries,
		index:   make(map[Key]int, len(entries)),
	}
	h := sha256.New()
	for i, e := range entries {
		r.index[e.Key] = i
		h.Write([]byte(string(e.Key) + "=" + e.Value.canonical()))
		if e.Ref != "" {
			h.Write([]byte("@" + string(e.Ref)))
		}
		h.Write([]byte{'\n'})
	}
	r.fingerprint = hex.EncodeToString(h.Sum(nil))
	return r
}

// Get returns the resolved value of k.
func (r *Resolved) Get(k Key) (Value, bool) {
	e, ok := r.Entry(k)
	return e.Value, ok
}

// Entry returns the full resolved entry of k.
func (r *Resolved) Entry(k Key) (Entry, bool) {
	i, ok := r.index[k]
	if !ok {
		return Entry{}, false
	}
	return r.entries[i], true
}

// Entries returns every resolved entry in resolution order. The slice is a copy.
func (r *Resolved) Entries() []Entry {
	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

// Keys returns the resolved keys in order.
func (r *Resolved) Keys() []Key {
	keys := make([]Key, len(r.entries))
	for i, e := range r.entries {
		keys[i] = e.Key
	}
	return keys
}

// Len returns the number of resolved keys.
func (r *Resolved) Len() int {
	return len(r.entries)
}

// Fingerprint is a hex SHA-256 digest of the resolved keys, values and
// references. Identical resolutions have identical fingerprints; the layer a
// value came from does not contribute.
func (r *Resolved) Fingerprint() string {
	return r.fingerprint
}

// Equal reports whether two resolutions hold the same keys, values and
// references in the same order.
func (r *Resolved) Equal(o *Resolved) bool {
	if r == nil || o == nil {
		return r == o
	}
	return r.fingerprint == o.fingerprint
}

// AsBaseLayer returns the resolution as a fresh Set. Referenced entries are
// written back as references so that re-resolving reproduces them.
func (r *Resolved) AsBaseLayer() *Set {
	s := NewSet()
	for _, e := range r.entries {
		if e.Ref != "" {
			s.Put(e.Key, Ref(e.Ref))
			continue
		}
		s.Put(e.Key, e.Value)
	}
	return s
}

func (r *Resolved) uint(k Key) uint64 {
	v, _ := r.Get(k)
	n, _ := v.Uint64()
	return n
}

// flag reads a boolean key; absent keys read as false.
func (r *Resolved) flag(k Key) bool {
	v, _ := r.Get(k)
	b, _ := v.Bool()
	return b
}

func (r *Resolved) symbol(k Key) string {
	v, _ := r.Get(k)
	return v.Symbol()
}
