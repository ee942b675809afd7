package sv

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestLockTable_ExclusivePerID(t *testing.T) {
	t.Parallel()
	table := newLockTable()

	var inside, maxInside atomic.Int32
	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := table.Lock("a")
			defer unlock()
			n := inside.Add(1)
			for {
				m := maxInside.Load()
				if n <= m || maxInside.CompareAndSwap(m, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			inside.Add(-1)
		}()
	}
	wg.Wait()

	if got := maxInside.Load(); got != 1 {
		t.Errorf("max concurrent holders = %d, want 1", got)
	}
	if n := table.size(); n != 0 {
		t.Errorf("size() = %d after release, want 0", n)
	}
}

func TestLockTable_ReadersShare(t *testing.T) {
	t.Parallel()
	table := newLockTable()

	first := table.RLock("a")
	acquired := make(chan struct{})
	go func() {
		second := table.RLock("a")
		close(acquired)
		second()
	}()

	select {
	case <-acquired:
	case <-time.After(5 * time.Second):
		t.Fatal("second reader blocked behind first")
	}
	first()
}

func TestLockTable_IndependentIDs(t *testing.T) {
	t.Parallel()
	table := newLockTable()

	unlockA := table.Lock("a")
	defer unlockA()

	acquired := make(chan struct{})
	go func() {
		unlock := table.Lock("b")
		close(acquired)
		unlock()
	}()

	select {
	case <-acquired:
	case <-time.After(5 * time.Second):
		t.Fatal("lock on b blocked behind lock on a")
	}
	if n := table.size(); n != 1 {
		t.Errorf("size() = %d, want 1", n)
	}
}

func TestLockTable_WriterWaitsForReader(t *testing.T) {
	t.Parallel()
	table := newLockTable()

	runlock := table.RLock("a")
	var got atomic.Bool
	done := make(chan struct{})
	go func() {
		unlock := table.Lock("a")
		got.Store(true)
		unlock()
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	if got.Load() {
		t.Fatal("writer acquired lock while reader held it")
	}
	runlock()
	<-done
}
