package checkpoint

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/fortiblox/intcode/internal/types"
)

// Backend names accepted by Open.
const (
	BackendMemory = "memory"
	BackendBolt   = "bolt"
	BackendBadger = "badger"
)

// ErrUnknownBackend is returned by Open for an unsupported backend.
var ErrUnknownBackend = errors.New("unknown checkpoint backend")

// Store persists checkpoints by ID.
type Store interface {
	// Put stores cp and returns its ID. Storing an existing checkpoint again
	// is a no-op.
	Put(cp *Checkpoint) (types.Digest, error)

	// Get returns the checkpoint with the given ID or ErrNotFound.
	Get(id types.Digest) (*Checkpoint, error)

	// Has reports whether a checkpoint exists.
	Has(id types.Digest) (bool, error)

	// Delete removes a checkpoint. Deleting a missing one returns ErrNotFound.
	Delete(id types.Digest) error

	// List returns checkpoints of program, newest first. A zero digest
	// lists every checkpoint.
	List(program types.Digest) ([]Info, error)

	// Close releases the store.
	Close() error
}

// Config selects and configures a store backend.
type Config struct {
	// Backend is one of memory, bolt or badger.
	Backend string

	// Path is the data directory for persistent backends.
	Path string

	// Logger receives store diagnostics.
	Logger zerolog.Logger
}

// DefaultConfig returns the default store configuration.
func DefaultConfig(path string) Config {
	return Config{
		Backend: BackendBolt,
		Path:    path,
		Logger:  zerolog.Nop(),
	}
}

// Open creates or opens the configured store.
func Open(cfg Config) (Store, error) {
	backend := strings.ToLower(strings.TrimSpace(cfg.Backend))
	if backend == BackendMemory {
		return NewMemoryStore(), nil
	}
	if backend != BackendBolt && backend != BackendBadger {
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Backend)
	}
	if cfg.Path == "" {
		return nil, fmt.Errorf("open %s store: empty path", backend)
	}
	if err := os.MkdirAll(cfg.Path, 0o755); err != nil {
		return nil, fmt.Errorf("create directory: %w", err)
	}

	log := cfg.Logger.With().Str("component", "checkpoint").Str("backend", backend).Logger()
	switch backend {
	case BackendBolt:
		s, err := OpenBolt(filepath.Join(cfg.Path, "checkpoints.db"))
		if err != nil {
			return nil, err
		}
		log.Debug().Str("path", s.path).Msg("opened checkpoint store")
		return s, nil
	default:
		dir := filepath.Join(cfg.Path, "checkpoints.badger")
		s, err := OpenBadger(BadgerConfig{Path: dir})
		if err != nil {
			return nil, err
		}
		log.Debug().Str("path", dir).Msg("opened checkpoint store")
		return s, nil
	}
}

// sortInfos orders infos newest first, breaking ties by ID.
func sortInfos(infos []Info) {
	sort.Slice(infos, func(i, j int) bool {
		if !infos[i].CreatedAt.Equal(infos[j].CreatedAt) {
			return infos[i].CreatedAt.After(infos[j].CreatedAt)
		}
		return infos[i].ID.String() < infos[j].ID.String()
	})
}

// programKey is the secondary index key: program digest then checkpoint ID.
func programKey(program, id types.Digest) []byte {
	key := make([]byte, 0, 2*types.DigestSize)
	key = append(key, program[:]...)
	return append(key, id[:]...)
}
