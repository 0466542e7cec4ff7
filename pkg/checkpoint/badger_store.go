package checkpoint

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/dgraph-io/badger/v4"

	"github.com/fortiblox/intcode/internal/types"
)

// Key prefixes for BadgerDB storage.
var (
	// prefixCheckpoint is the prefix for encoded checkpoints.
	// Key format: prefixCheckpoint + id (32 bytes)
	prefixCheckpoint = []byte{0x01}

	// prefixProgram is the prefix for the program index.
	// Key format: prefixProgram + program digest (32 bytes) + id (32 bytes)
	prefixProgram = []byte{0x02}
)

// BadgerConfig contains configuration for BadgerStore.
type BadgerConfig struct {
	// Path is the directory path for the database.
	Path string

	// InMemory runs the database in memory (for testing).
	InMemory bool

	// SyncWrites ensures writes are synced to disk.
	SyncWrites bool

	// Logger is an optional logger. Nil disables badger's own logging.
	Logger badger.Logger
}

// BadgerStore implements Store using BadgerDB.
type BadgerStore struct {
	db     *badger.DB
	closed atomic.Bool
}

// OpenBadger creates or opens a BadgerDB checkpoint database.
func OpenBadger(cfg BadgerConfig) (*BadgerStore, error) {
	opts := badger.DefaultOptions(cfg.Path)
	if cfg.InMemory {
		opts = opts.WithInMemory(true).WithDir("").WithValueDir("")
	}
	opts = opts.
		WithSyncWrites(cfg.SyncWrites).
		WithLogger(cfg.Logger)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	return &BadgerStore{db: db}, nil
}

func checkpointKey(id types.Digest) []byte {
	key := make([]byte, 1+types.DigestSize)
	key[0] = prefixCheckpoint[0]
	copy(key[1:], id[:])
	return key
}

func indexKey(program, id types.Digest) []byte {
	return append(append([]byte{}, prefixProgram...), programKey(program, id)...)
}

// Put implements Store.
func (s *BadgerStore) Put(cp *Checkpoint) (types.Digest, error) {
	if s.closed.Load() {
		return types.Digest{}, ErrClosed
	}
	data, err := Marshal(cp)
	if err != nil {
		return types.Digest{}, err
	}
	id := cp.ID()

	err = s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(checkpointKey(id), data); err != nil {
			return err
		}
		return txn.Set(indexKey(cp.Program, id), []byte{})
	})
	if err != nil {
		return types.Digest{}, fmt.Errorf("put checkpoint: %w", err)
	}
	return id, nil
}

// Get implements Store.
func (s *BadgerStore) Get(id types.Digest) (*Checkpoint, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}

	var cp *Checkpoint
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(checkpointKey(id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			cp, err = Unmarshal(val)
			return err
		})
	})
	if err != nil {
		return nil, err
	}
	return cp, nil
}

// Has implements Store.
func (s *BadgerStore) Has(id types.Digest) (bool, error) {
	if s.closed.Load() {
		return false, ErrClosed
	}
	err := s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(checkpointKey(id))
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Delete implements Store.
func (s *BadgerStore) Delete(id types.Digest) error {
	if s.closed.Load() {
		return ErrClosed
	}
	cp, err := s.Get(id)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Delete(indexKey(cp.Program, id)); err != nil {
			return err
		}
		return txn.Delete(checkpointKey(id))
	})
}

// List implements Store.
func (s *BadgerStore) List(program types.Digest) ([]Info, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}

	var infos []Info
	err := s.db.View(func(txn *badger.Txn) error {
		decode := func(item *badger.Item) error {
			return item.Value(func(val []byte) error {
				cp, err := Unmarshal(val)
				if err != nil {
					return err
				}
				infos = append(infos, cp.Info())
				return nil
			})
		}

		opts := badger.DefaultIteratorOptions
		if program.IsZero() {
			opts.Prefix = prefixCheckpoint
			it := txn.NewIterator(opts)
			defer it.Close()
			for it.Rewind(); it.Valid(); it.Next() {
				if err := decode(it.Item()); err != nil {
					return err
				}
			}
			return nil
		}

		opts.Prefix = append(append([]byte{}, prefixProgram...), program[:]...)
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			key := it.Item().Key()
			var id types.Digest
			copy(id[:], key[len(opts.Prefix):])

			item, err := txn.Get(checkpointKey(id))
			if errors.Is(err, badger.ErrKeyNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			if err := decode(item); err != nil {
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

// RunGC runs value log garbage collection once.
func (s *BadgerStore) RunGC() error {
	if s.closed.Load() {
		return ErrClosed
	}
	err := s.db.RunValueLogGC(0.5)
	if errors.Is(err, badger.ErrNoRewrite) {
		return nil
	}
	return err
}

// Close implements Store.
func (s *BadgerStore) Close() error {
	if s.closed.Swap(true) {
		return ErrClosed
	}
	return s.db.Close()
}
