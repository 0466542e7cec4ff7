package checkpoint

import (
	"sync"

	"github.com/fortiblox/intcode/internal/types"
)

// MemoryStore keeps encoded checkpoints in a map. It is safe for concurrent
// use and mostly useful for tests and short-lived servers.
type MemoryStore struct {
	mu     sync.RWMutex
	data   map[types.Digest][]byte
	closed bool
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[types.Digest][]byte)}
}

// Put implements Store.
func (s *MemoryStore) Put(cp *Checkpoint) (types.Digest, error) {
	data, err := Marshal(cp)
	if err != nil {
		return types.Digest{}, err
	}
	id := cp.ID()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return types.Digest{}, ErrClosed
	}
	if _, ok := s.data[id]; !ok {
		s.data[id] = data
	}
	return id, nil
}

// Get implements Store.
func (s *MemoryStore) Get(id types.Digest) (*Checkpoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}
	data, ok := s.data[id]
	if !ok {
		return nil, ErrNotFound
	}
	return Unmarshal(data)
}

// Has implements Store.
func (s *MemoryStore) Has(id types.Digest) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return false, ErrClosed
	}
	_, ok := s.data[id]
	return ok, nil
}

// Delete implements Store.
func (s *MemoryStore) Delete(id types.Digest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if _, ok := s.data[id]; !ok {
		return ErrNotFound
	}
	delete(s.data, id)
	return nil
}

// List implements Store.
func (s *MemoryStore) List(program types.Digest) ([]Info, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}
	var infos []Info
	for _, data := range s.data {
		cp, err := Unmarshal(data)
		if err != nil {
			return nil, err
		}
		if !program.IsZero() && cp.Program != program {
			continue
		}
		infos = append(infos, cp.Info())
	}
	sortInfos(infos)
	return infos, nil
}

// Close implements Store.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.closed = true
	s.data = nil
	return nil
}
