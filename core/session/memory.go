package session

import (
	"context"
	"hash/fnv"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// shardCount is the number of lock stripes in the memory store. Striping
// keeps concurrent requests for different ids off a single global mutex
// while the per-shard lock still serializes conflicting writes to one id.
const shardCount = 32

const (
	defaultMaxAge       = 24 * time.Hour
	defaultReapInterval = time.Minute
)

type memoryShard[Data any] struct {
	mu      sync.RWMutex
	entries map[string]Session[Data]
}

// MemoryStore is a process-local Store with periodic background reaping of
// expired entries. The reaper is a cleanup optimization only: Get performs
// its own expiry check, so the store answers correctly between sweeps.
//
// Call Start to begin reaping; the zero lifecycle (never started) is valid
// and only means expired entries linger until overwritten or destroyed.
type MemoryStore[Data any] struct {
	shards [shardCount]*memoryShard[Data]

	maxAge       time.Duration
	reapInterval time.Duration
	logger       *slog.Logger

	ctx     context.Context
	cancel  context.CancelFunc
	mu      sync.Mutex // guards ctx/cancel lifecycle
	running atomic.Bool
	closed  atomic.Bool
}

// MemoryStoreOption configures a MemoryStore.
type MemoryStoreOption func(*memoryStoreConfig)

type memoryStoreConfig struct {
	maxAge       time.Duration
	reapInterval time.Duration
	logger       *slog.Logger
}

// WithMaxAge sets the time-to-live measured from a session's last access.
func WithMaxAge(maxAge time.Duration) MemoryStoreOption {
	return func(c *memoryStoreConfig) {
		if maxAge > 0 {
			c.maxAge = maxAge
		}
	}
}

// WithReapInterval sets how often the background sweep removes expired
// entries.
func WithReapInterval(interval time.Duration) MemoryStoreOption {
	return func(c *memoryStoreConfig) {
		if interval > 0 {
			c.reapInterval = interval
		}
	}
}

// WithLogger sets the logger for reaper lifecycle events.
func WithLogger(logger *slog.Logger) MemoryStoreOption {
	return func(c *memoryStoreConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewMemoryStore creates an in-memory session store.
// Call Start to begin background reaping.
func NewMemoryStore[Data any](opts ...MemoryStoreOption) *MemoryStore[Data] {
	cfg := memoryStoreConfig{
		maxAge:       defaultMaxAge,
		reapInterval: defaultReapInterval,
		logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	ms := &MemoryStore[Data]{
		maxAge:       cfg.maxAge,
		reapInterval: cfg.reapInterval,
		logger:       cfg.logger,
	}
	for i := range ms.shards {
		ms.shards[i] = &memoryShard[Data]{entries: make(map[string]Session[Data])}
	}
	return ms
}

func (ms *MemoryStore[Data]) shard(id string) *memoryShard[Data] {
	h := fnv.New32a()
	h.Write([]byte(id))
	return ms.shards[h.Sum32()%shardCount]
}

// Get returns the session for id, or ErrNotFound when the id is unknown or
// the entry has outlived the store's max age.
func (ms *MemoryStore[Data]) Get(ctx context.Context, id string) (Session[Data], error) {
	if err := ctx.Err(); err != nil {
		return Session[Data]{}, err
	}

	s := ms.shard(id)
	s.mu.RLock()
	sess, ok := s.entries[id]
	s.mu.RUnlock()

	if !ok || sess.Expired(ms.maxAge) {
		return Session[Data]{}, ErrNotFound
	}
	return sess, nil
}

// Set upserts the session and bumps its last-access time to now.
func (ms *MemoryStore[Data]) Set(ctx context.Context, id string, sess Session[Data]) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if ms.closed.Load() {
		return ErrClosed
	}

	sess.Touch()

	s := ms.shard(id)
	s.mu.Lock()
	s.entries[id] = sess
	s.mu.Unlock()
	return nil
}

// Destroy removes the session. Destroying an absent id is a no-op.
func (ms *MemoryStore[Data]) Destroy(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if ms.closed.Load() {
		return ErrClosed
	}

	s := ms.shard(id)
	s.mu.Lock()
	delete(s.entries, id)
	s.mu.Unlock()
	return nil
}

// All returns a snapshot of the live sessions. Each shard is read under its
// own lock, so the snapshot is per-shard consistent but not global.
func (ms *MemoryStore[Data]) All(ctx context.Context) ([]Session[Data], error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var out []Session[Data]
	for _, s := range ms.shards {
		s.mu.RLock()
		for _, sess := range s.entries {
			if !sess.Expired(ms.maxAge) {
				out = append(out, sess)
			}
		}
		s.mu.RUnlock()
	}
	return out, nil
}

// Len returns the count of live sessions.
func (ms *MemoryStore[Data]) Len(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	var n int
	for _, s := range ms.shards {
		s.mu.RLock()
		for _, sess := range s.entries {
			if !sess.Expired(ms.maxAge) {
				n++
			}
		}
		s.mu.RUnlock()
	}
	return n, nil
}

// Start runs the background reaper until the context is cancelled or Stop
// is called. It blocks; run it in a goroutine or an errgroup.
func (ms *MemoryStore[Data]) Start(ctx context.Context) error {
	ms.mu.Lock()
	if ms.cancel != nil {
		ms.mu.Unlock()
		return ErrAlreadyStarted
	}
	ms.ctx, ms.cancel = context.WithCancel(ctx)
	ms.mu.Unlock()

	ms.running.Store(true)
	defer ms.running.Store(false)

	ms.logger.InfoContext(ms.ctx, "session store reaper started",
		slog.Duration("reap_interval", ms.reapInterval),
		slog.Duration("max_age", ms.maxAge))

	ticker := time.NewTicker(ms.reapInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ms.ctx.Done():
			return ms.ctx.Err()
		case <-ticker.C:
			removed := ms.reap()
			if removed > 0 {
				ms.logger.DebugContext(ms.ctx, "reaped expired sessions",
					slog.Int("removed", removed))
			}
		}
	}
}

// Stop halts the reaper and closes the store for writes. Reads keep working
// so in-flight requests can finish. The close is one-way: a stopped store
// stays closed for writes even if Start is called again. Stopping a store
// that was never started returns ErrNotStarted and leaves it usable.
func (ms *MemoryStore[Data]) Stop() error {
	ms.mu.Lock()
	cancel := ms.cancel
	ms.cancel = nil
	ms.mu.Unlock()

	if cancel == nil {
		return ErrNotStarted
	}
	ms.closed.Store(true)
	cancel()
	return nil
}

// reap sweeps all shards and removes expired entries, locking one shard at
// a time so concurrent requests are never blocked for the whole sweep.
func (ms *MemoryStore[Data]) reap() int {
	var removed int
	for _, s := range ms.shards {
		s.mu.Lock()
		for id, sess := range s.entries {
			if sess.Expired(ms.maxAge) {
				delete(s.entries, id)
				removed++
			}
		}
		s.mu.Unlock()
	}
	return removed
}

var _ Store[any] = (*MemoryStore[any])(nil)
