package pkgspace

import "sync"

// store wraps a persistentMap with a writer mutex: reads dereference
// the current root without locking, writes lock, build a new root off
// the latest value, and swap it in.
type store struct {
	mu   sync.Mutex
	root *persistentMap
}

func newStore() *store { return &store{root: emptyMap()} }

func (s *store) Get(key string) (interface{}, bool) {
	return s.root.Get(key)
}

func (s *store) Put(key string, val interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.root = s.root.Put(key, val)
}

// GetOrCreate returns the existing slot for key, or atomically installs
// the result of zero() as the new slot if none exists yet, the
// create-on-demand behavior both package-qualified global lookup and
// persistent-slot allocation need.
func (s *store) GetOrCreate(key string, zero func() interface{}) interface{} {
	if v, ok := s.root.Get(key); ok {
		return v
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.root.Get(key); ok {
		return v
	}
	v := zero()
	s.root = s.root.Put(key, v)
	return v
}

func (s *store) Range(f func(key string, val interface{}) bool) {
	s.root.Range(f)
}

func (s *store) Len() int { return s.root.Len() }
