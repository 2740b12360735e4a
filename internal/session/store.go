// Package session keeps per-user conversation memory for the router.
package session

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/crickmate/coach/internal/domain"
)

type record struct {
	mu       sync.Mutex
	mem      domain.SessionMemory
	lastSeen atomic.Int64
	held     atomic.Int32
	evicted  bool // guarded by mu
}

// Store maps user ids to session memory. Records are created lazily and
// live until process exit unless an idle TTL is configured, in which case
// the sweeper removes records that are idle and not held.
type Store struct {
	records sync.Map // userID -> *record
	idleTTL time.Duration
	now     func() time.Time
	log     *slog.Logger
}

// New creates a session store. idleTTL <= 0 disables eviction.
func New(idleTTL time.Duration, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{idleTTL: idleTTL, now: time.Now, log: logger}
}

func (s *Store) load(userID string) *record {
	if v, ok := s.records.Load(userID); ok {
		return v.(*record)
	}
	rec := &record{mem: domain.SessionMemory{UserID: userID}}
	rec.lastSeen.Store(s.now().UnixNano())
	v, loaded := s.records.LoadOrStore(userID, rec)
	if !loaded {
		s.log.Debug("Session created", "user_id", userID)
	}
	return v.(*record)
}

// GetOrCreate returns the shared memory record for userID without locking it.
// Repeated and concurrent calls for one id return the same pointer, and
// distinct ids get distinct records; it exists to expose that identity.
// It does not refresh the idle clock. All writes, including every write made
// while serving a chat turn, must go through Acquire.
func (s *Store) GetOrCreate(userID string) *domain.SessionMemory {
	return &s.load(userID).mem
}

// Acquire locks the record for userID and returns it with a release func.
// At most one caller holds a given user's record at a time; different users
// never contend. release is safe to call more than once.
func (s *Store) Acquire(userID string) (*domain.SessionMemory, func()) {
	for {
		rec := s.load(userID)
		rec.held.Add(1)
		rec.mu.Lock()
		if rec.evicted {
			// Lost a race with the sweeper; the id now maps to a new record.
			rec.mu.Unlock()
			rec.held.Add(-1)
			continue
		}
		rec.lastSeen.Store(s.now().UnixNano())

		var once sync.Once
		release := func() {
			once.Do(func() {
				rec.lastSeen.Store(s.now().UnixNano())
				rec.mu.Unlock()
				rec.held.Add(-1)
			})
		}
		return &rec.mem, release
	}
}

// Snapshot returns a copy of the memory for userID, if it exists.
func (s *Store) Snapshot(userID string) (domain.SessionMemory, bool) {
	v, ok := s.records.Load(userID)
	if !ok {
		return domain.SessionMemory{}, false
	}
	rec := v.(*record)
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return rec.mem, true
}

// Len returns the number of live records.
func (s *Store) Len() int {
	n := 0
	s.records.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// Sweep evicts records idle longer than the TTL that nobody holds. It
// returns the number of evicted records.
func (s *Store) Sweep() int {
	if s.idleTTL <= 0 {
		return 0
	}
	cutoff := s.now().Add(-s.idleTTL).UnixNano()
	evicted := 0

	s.records.Range(func(key, value any) bool {
		rec := value.(*record)
		if rec.held.Load() > 0 || rec.lastSeen.Load() > cutoff {
			return true
		}
		if !rec.mu.TryLock() {
			return true
		}
		if rec.held.Load() == 0 && rec.lastSeen.Load() <= cutoff {
			if s.records.CompareAndDelete(key, rec) {
				rec.evicted = true
				evicted++
			}
		}
		rec.mu.Unlock()
		return true
	})

	if evicted > 0 {
		s.log.Info("Session sweeper evicted idle sessions", "count", evicted, "idle_ttl", s.idleTTL)
	}
	return evicted
}

// StartSweeper runs Sweep every interval until ctx is done. It returns a
// channel closed when the goroutine exits. With eviction disabled no
// goroutine is started and the returned channel is already closed.
func (s *Store) StartSweeper(ctx context.Context, interval time.Duration) <-chan struct{} {
	done := make(chan struct{})
	if s.idleTTL <= 0 || interval <= 0 {
		s.log.Info("Session eviction disabled")
		close(done)
		return done
	}

	ticker := time.NewTicker(interval)
	go func() {
		defer close(done)
		defer ticker.Stop()
		s.log.Info("Session sweeper started", "interval", interval, "idle_ttl", s.idleTTL)

		for {
			select {
			case <-ticker.C:
				s.Sweep()
			case <-ctx.Done():
				s.log.Info("Session sweeper shutting down", "reason", ctx.Err())
				return
			}
		}
	}()
	return done
}
