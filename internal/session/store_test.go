package session

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/crickmate/coach/internal/domain"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestGetOrCreateIsIdempotent(t *testing.T) {
	s := New(0, nil)

	a := s.GetOrCreate("USER0001")
	b := s.GetOrCreate("USER0001")
	if a != b {
		t.Fatal("expected the same record for the same user id")
	}
	a.SelectArea("A2")
	if b.LastTechnicalArea != "A2" {
		t.Fatal("mutation not visible through second lookup")
	}
	if s.GetOrCreate("USER0002") == a {
		t.Fatal("different users must not share a record")
	}
}

func TestGetOrCreateSharesAcquiredRecord(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	s := New(time.Minute, nil)
	s.now = clock.Now

	mem, release := s.Acquire("USER0001")
	mem.SelectArea("A3")
	release()

	if got := s.GetOrCreate("USER0001"); got != mem || got.LastTechnicalArea != "A3" {
		t.Fatalf("GetOrCreate returned %p (%+v), want the acquired record %p", got, got, mem)
	}

	// Reads alone do not keep a session alive.
	clock.Advance(2 * time.Minute)
	s.GetOrCreate("USER0001")
	if n := s.Sweep(); n != 1 {
		t.Fatalf("Sweep() = %d, want 1", n)
	}
}

func TestConcurrentGetOrCreateSingleRecord(t *testing.T) {
	s := New(0, nil)
	const n = 64

	var wg sync.WaitGroup
	ptrs := make([]*domain.SessionMemory, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ptrs[i] = s.GetOrCreate("USER0001")
		}(i)
	}
	wg.Wait()

	for i := 1; i < n; i++ {
		if ptrs[i] != ptrs[0] {
			t.Fatalf("goroutine %d got a different record", i)
		}
	}
	if s.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", s.Len())
	}
}

func TestAcquireSerializesPerUser(t *testing.T) {
	s := New(0, nil)
	const workers = 32

	var inFlight, maxInFlight atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			mem, release := s.Acquire("USER0001")
			defer release()

			cur := inFlight.Add(1)
			for {
				old := maxInFlight.Load()
				if cur <= old || maxInFlight.CompareAndSwap(old, cur) {
					break
				}
			}
			mem.Advance(1)
			inFlight.Add(-1)
		}()
	}
	wg.Wait()

	if maxInFlight.Load() != 1 {
		t.Fatalf("max concurrent holders = %d, want 1", maxInFlight.Load())
	}
	snap, _ := s.Snapshot("USER0001")
	if snap.DrillCursor != workers {
		t.Fatalf("DrillCursor = %d, want %d", snap.DrillCursor, workers)
	}
}

func TestAcquireDifferentUsersDoNotBlock(t *testing.T) {
	s := New(0, nil)
	_, releaseA := s.Acquire("USER0001")
	defer releaseA()

	done := make(chan struct{})
	go func() {
		_, releaseB := s.Acquire("USER0002")
		releaseB()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("acquiring another user blocked")
	}
}

func TestReleaseIsIdempotent(t *testing.T) {
	s := New(0, nil)
	_, release := s.Acquire("USER0001")
	release()
	release()

	_, again := s.Acquire("USER0001")
	again()
}

func TestSnapshotIsACopy(t *testing.T) {
	s := New(0, nil)
	if _, ok := s.Snapshot("nobody"); ok {
		t.Fatal("expected no snapshot for unknown user")
	}

	mem, release := s.Acquire("USER0001")
	mem.SelectCategory("B")
	release()

	snap, ok := s.Snapshot("USER0001")
	if !ok || snap.LastTechnicalCategory != "B" {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
	snap.LastTechnicalCategory = "Z"
	if s.GetOrCreate("USER0001").LastTechnicalCategory != "B" {
		t.Fatal("snapshot mutation leaked into the store")
	}
}

func TestSweepNeverEvictsWithoutTTL(t *testing.T) {
	s := New(0, nil)
	s.GetOrCreate("USER0001")
	if n := s.Sweep(); n != 0 || s.Len() != 1 {
		t.Fatalf("Sweep() = %d, Len() = %d", n, s.Len())
	}
}

func TestSweepEvictsIdleUnheldRecords(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	s := New(time.Minute, nil)
	s.now = clock.Now

	s.GetOrCreate("idle")
	_, release := s.Acquire("busy")

	clock.Advance(2 * time.Minute)
	if n := s.Sweep(); n != 1 {
		t.Fatalf("Sweep() = %d, want 1", n)
	}
	if _, ok := s.Snapshot("idle"); ok {
		t.Fatal("idle record should be evicted")
	}
	release()

	// The released record is fresh again.
	if n := s.Sweep(); n != 0 {
		t.Fatalf("Sweep() = %d, want 0 right after release", n)
	}
	clock.Advance(2 * time.Minute)
	if n := s.Sweep(); n != 1 {
		t.Fatalf("Sweep() = %d, want 1 after idling", n)
	}

	mem := s.GetOrCreate("idle")
	if mem.HasArea() || mem.UserID != "idle" {
		t.Fatalf("recreated record should be fresh: %+v", mem)
	}
}

func TestStartSweeperStopsOnCancel(t *testing.T) {
	s := New(time.Millisecond, nil)
	ctx, cancel := context.WithCancel(context.Background())

	done := s.StartSweeper(ctx, time.Millisecond)
	s.GetOrCreate("USER0001")

	deadline := time.After(2 * time.Second)
	for s.Len() != 0 {
		select {
		case <-deadline:
			cancel()
			t.Fatal("sweeper never evicted the idle record")
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("sweeper did not stop")
	}
}

func TestStartSweeperDisabled(t *testing.T) {
	s := New(0, nil)
	select {
	case <-s.StartSweeper(context.Background(), time.Second):
	default:
		t.Fatal("disabled sweeper should return a closed channel")
	}
}
