package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/storyreel/storyreel/internal/logging"
	"github.com/storyreel/storyreel/internal/store"
)

const (
	DefaultKey = "workflow_session"
	DefaultTTL = 24 * time.Hour
)

var ErrInvalidStep = errors.New("invalid workflow step")

// Storage is a durable string key/value port. *store.KV implements it.
type Storage interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}

// PersistenceError reports a session read or write that failed. The
// session remains usable in memory.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("session %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

type Options struct {
	Key string
	TTL time.Duration
	Now func() time.Time
}

// Store saves, loads and expires the wizard session under a single key.
type Store struct {
	storage Storage
	key     string
	ttl     time.Duration
	now     func() time.Time
	logger  *slog.Logger

	mu sync.Mutex
}

func NewStore(storage Storage, opts Options, logger *slog.Logger) *Store {
	if opts.Key == "" {
		opts.Key = DefaultKey
	}
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Store{
		storage: storage,
		key:     opts.Key,
		ttl:     opts.TTL,
		now:     opts.Now,
		logger:  logging.WithComponent(logging.OrDiscard(logger), "session"),
	}
}

// Save merges p into the stored session and persists the result. When the
// write fails the merged session is still returned together with a
// *PersistenceError.
func (s *Store) Save(ctx context.Context, p Patch) (*Session, error) {
	if p.Step != "" && !p.Step.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStep, p.Step)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prior, _ := s.load(ctx)
	merged := merge(prior, p, s.now())

	data, err := json.Marshal(merged)
	if err != nil {
		return merged, &PersistenceError{Op: "encode", Err: err}
	}
	if err := s.storage.Set(ctx, s.key, string(data)); err != nil {
		s.logger.Warn("failed to persist session", "error", err, "bytes", len(data))
		return merged, &PersistenceError{Op: "save", Err: err}
	}

	s.logger.Debug("session saved", "step", merged.Step, "bytes", len(data))
	return merged, nil
}

// Load returns the stored session. Expired, unreadable and malformed
// sessions are reported as absent; expired ones are also removed.
func (s *Store) Load(ctx context.Context) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx)
}

func (s *Store) load(ctx context.Context) (*Session, bool) {
	raw, ok, err := s.storage.Get(ctx, s.key)
	if err != nil {
		s.logger.Warn("failed to read session", "error", err)
		return nil, false
	}
	if !ok {
		return nil, false
	}

	var sess Session
	if err := json.Unmarshal([]byte(raw), &sess); err != nil {
		s.logger.Warn("discarding malformed session", "error", err)
		return nil, false
	}
	if !sess.Step.Valid() {
		s.logger.Warn("discarding session with unknown step", "step", sess.Step)
		return nil, false
	}

	age := s.now().Sub(sess.SavedAt())
	if age > s.ttl {
		s.logger.Info("session expired", "age", age.Round(time.Second).String())
		if err := s.storage.Remove(ctx, s.key); err != nil {
			s.logger.Warn("failed to remove expired session", "error", err)
		}
		return nil, false
	}
	return &sess, true
}

// Clear deletes the stored session.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.storage.Remove(ctx, s.key); err != nil {
		return &PersistenceError{Op: "clear", Err: err}
	}
	return nil
}

// MemoryStorage is an in-process Storage, used when no database is
// configured and in tests.
type MemoryStorage struct {
	mu       sync.Mutex
	data     map[string]string
	maxBytes int
}

// NewMemoryStorage returns an empty storage. maxBytes <= 0 disables the ceiling.
func NewMemoryStorage(maxBytes int) *MemoryStorage {
	return &MemoryStorage{data: make(map[string]string), maxBytes: maxBytes}
}

func (m *MemoryStorage) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *MemoryStorage) Set(_ context.Context, key, value string) error {
	if m.maxBytes > 0 && len(value) > m.maxBytes {
		return fmt.Errorf("set %q (%d bytes, limit %d): %w", key, len(value), m.maxBytes, store.ErrQuotaExceeded)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *MemoryStorage) Remove(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}
