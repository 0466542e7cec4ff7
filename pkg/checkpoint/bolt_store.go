package checkpoint

import (
	"bytes"
	"fmt"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/fortiblox/intcode/internal/types"
)

// Bucket names for BoltDB.
var (
	// bucketCheckpoints stores encoded checkpoints keyed by ID.
	bucketCheckpoints = []byte("checkpoints")

	// bucketByProgram indexes checkpoint IDs by program digest.
	bucketByProgram = []byte("by_program")
)

// BoltStore implements Store using BoltDB.
type BoltStore struct {
	db   *bolt.DB
	path string

	mu     sync.RWMutex
	closed bool
}

// OpenBolt creates or opens a BoltDB checkpoint database file.
func OpenBolt(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	s := &BoltStore{db: db, path: path}
	if err := s.initBuckets(); err != nil {
		db.Close()
		return nil, fmt.Errorf("init buckets: %w", err)
	}
	return s, nil
}

// initBuckets creates all required buckets.
func (s *BoltStore) initBuckets() error {
	return s.db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{bucketCheckpoints, bucketByProgram} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("create bucket %s: %w", name, err)
			}
		}
		return nil
	})
}

func (s *BoltStore) checkOpen() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	return nil
}

// Put implements Store.
func (s *BoltStore) Put(cp *Checkpoint) (types.Digest, error) {
	if err := s.checkOpen(); err != nil {
		return types.Digest{}, err
	}
	data, err := Marshal(cp)
	if err != nil {
		return types.Digest{}, err
	}
	id := cp.ID()

	err = s.db.Update(func(tx *bolt.Tx) error {
		checkpoints := tx.Bucket(bucketCheckpoints)
		if checkpoints.Get(id[:]) != nil {
			return nil
		}
		if err := checkpoints.Put(id[:], data); err != nil {
			return err
		}
		return tx.Bucket(bucketByProgram).Put(programKey(cp.Program, id), []byte{})
	})
	if err != nil {
		return types.Digest{}, fmt.Errorf("put checkpoint: %w", err)
	}
	return id, nil
}

// Get implements Store.
func (s *BoltStore) Get(id types.Digest) (*Checkpoint, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	var cp *Checkpoint
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketCheckpoints).Get(id[:])
		if data == nil {
			return ErrNotFound
		}
		var err error
		cp, err = Unmarshal(data)
		return err
	})
	if err != nil {
		return nil, err
	}
	return cp, nil
}

// Has implements Store.
func (s *BoltStore) Has(id types.Digest) (bool, error) {
	if err := s.checkOpen(); err != nil {
		return false, err
	}
	var found bool
	err := s.db.View(func(tx *bolt.Tx) error {
		found = tx.Bucket(bucketCheckpoints).Get(id[:]) != nil
		return nil
	})
	return found, err
}

// Delete implements Store.
func (s *BoltStore) Delete(id types.Digest) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		checkpoints := tx.Bucket(bucketCheckpoints)
		data := checkpoints.Get(id[:])
		if data == nil {
			return ErrNotFound
		}
		cp, err := Unmarshal(data)
		if err != nil {
			return err
		}
		if err := tx.Bucket(bucketByProgram).Delete(programKey(cp.Program, id)); err != nil {
			return err
		}
		return checkpoints.Delete(id[:])
	})
}

// List implements Store.
func (s *BoltStore) List(program types.Digest) ([]Info, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	var infos []Info
	err := s.db.View(func(tx *bolt.Tx) error {
		checkpoints := tx.Bucket(bucketCheckpoints)
		add := func(data []byte) error {
			cp, err := Unmarshal(data)
			if err != nil {
				return err
			}
			infos = append(infos, cp.Info())
			return nil
		}

		if program.IsZero() {
			return checkpoints.ForEach(func(_, v []byte) error { return add(v) })
		}

		c := tx.Bucket(bucketByProgram).Cursor()
		for k, _ := c.Seek(program[:]); k != nil && bytes.HasPrefix(k, program[:]); k, _ = c.Next() {
			data := checkpoints.Get(k[types.DigestSize:])
			if data == nil {
				continue
			}
			if err := add(data); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sortInfos(infos)
	return infos, nil
}

// Close implements Store.
func (s *BoltStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.closed = true
	return s.db.Close()
}
