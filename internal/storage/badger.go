package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/badger/v3"
)

// DefaultSessionTTL bounds how long a persisted session survives without
// being refreshed by a write.
const DefaultSessionTTL = 12 * time.Hour

// BadgerConfig configures BadgerStorage.
type BadgerConfig struct {
	// Dir is the database directory. Ignored when InMemory is set.
	Dir string

	// InMemory keeps the database entirely in memory.
	InMemory bool

	// TTL is attached to every entry written. Zero means DefaultSessionTTL.
	TTL time.Duration
}

// DefaultSessionDir returns the per-user directory for the session database.
// It prefers XDG_RUNTIME_DIR, which the OS empties at logout, and falls
// back to the temp directory.
func DefaultSessionDir() string {
	base := os.Getenv("XDG_RUNTIME_DIR")
	if base == "" {
		base = filepath.Join(os.TempDir(), fmt.Sprintf("prodadmin-%d", os.Getuid()))
	}
	return filepath.Join(base, "prodadmin", "session")
}

// BadgerStorage implements Storage on top of Badger v3.
type BadgerStorage struct {
	db     *badger.DB
	ttl    time.Duration
	logger *slog.Logger
	closed atomic.Bool
}

var _ Storage = (*BadgerStorage)(nil)

// NewBadgerStorage opens (or creates) a Badger-backed session storage.
func NewBadgerStorage(cfg BadgerConfig, logger *slog.Logger) (*BadgerStorage, error) {
	if !cfg.InMemory && cfg.Dir == "" {
		return nil, fmt.Errorf("badger: dir is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultSessionTTL
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Dir, 0700); err != nil {
			return nil, fmt.Errorf("badger: create dir: %w", err)
		}
		opts = badger.DefaultOptions(cfg.Dir)
	}
	opts.Logger = &badgerLogger{logger: logger}
	// One token does not need big tables.
	opts.MemTableSize = 1 << 20
	opts.ValueLogFileSize = 1 << 20
	// Must stay below the batch limit derived from MemTableSize.
	opts.ValueThreshold = 1 << 10
	opts.NumVersionsToKeep = 1

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("badger: open db: %w", err)
	}

	logger.Debug("session storage opened",
		"dir", cfg.Dir,
		"in_memory", cfg.InMemory,
		"ttl", cfg.TTL)

	return &BadgerStorage{db: db, ttl: cfg.TTL, logger: logger}, nil
}

// Get retrieves a value by key. Expired entries are reported as missing.
func (s *BadgerStorage) Get(_ context.Context, key string) (string, error) {
	if s.closed.Load() {
		return "", ErrClosed
	}

	var value []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return ErrKeyNotFound
			}
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return "", err
	}
	return string(value), nil
}

// Set stores a value with the configured TTL.
func (s *BadgerStorage) Set(_ context.Context, key, value string) error {
	if s.closed.Load() {
		return ErrClosed
	}
	return s.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry([]byte(key), []byte(value)).WithTTL(s.ttl)
		return txn.SetEntry(e)
	})
}

// Remove deletes a key.
func (s *BadgerStorage) Remove(_ context.Context, key string) error {
	if s.closed.Load() {
		return ErrClosed
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
}

// Clear drops every key in the database.
func (s *BadgerStorage) Clear(_ context.Context) error {
	if s.closed.Load() {
		return ErrClosed
	}
	if err := s.db.DropAll(); err != nil {
		return fmt.Errorf("badger: drop all: %w", err)
	}
	return nil
}

// Close closes the database. Safe to call more than once.
func (s *BadgerStorage) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	return s.db.Close()
}

// badgerLogger adapts slog to Badger's logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

// Badger is chatty at info level; fold it into debug.
func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}
