package queue

import (
	"sync"
	"testing"
	"time"
)

func TestPopEmptyNonBlockingReturnsFalse(t *testing.T) {
	q := New[int](4)
	start := time.Now()
	v, ok := q.PopTimeout(0)
	if ok || v != 0 {
		t.Fatalf("expected (0,false), got (%d,%v)", v, ok)
	}
	if elapsed := time.Since(start); elapsed > 50*time.Millisecond {
		t.Fatalf("PopTimeout(0) blocked for %v", elapsed)
	}
}

func TestPushFullNonBlockingRetainsItem(t *testing.T) {
	q := New[int](2)
	if !q.Push(1) || !q.Push(2) {
		t.Fatal("expected first two pushes to succeed")
	}
	ok := q.PushTimeout(3, 0)
	if ok {
		t.Fatal("expected push to a full queue with timeout 0 to fail")
	}
	if q.Size() != 2 {
		t.Fatalf("expected size 2, got %d", q.Size())
	}
}

func TestPushPopRoundTrip(t *testing.T) {
	q := New[int](8)
	for i := 0; i < 8; i++ {
		if !q.Push(i) {
			t.Fatalf("push %d failed", i)
		}
	}
	for i := 0; i < 8; i++ {
		v, ok := q.Pop()
		if !ok || v != i {
			t.Fatalf("pop %d: got (%d,%v)", i, v, ok)
		}
	}
}

func TestSizeBoundedByTwoCapacity(t *testing.T) {
	const cap = 4
	q := New[int](cap)
	for i := 0; i < cap; i++ {
		q.Push(i)
	}
	// Pop none yet: pop-buffer refill happens lazily, so push-buffer alone
	// holds cap items and size must never exceed 2*cap regardless of when
	// refill happens.
	if s := q.Size(); s > 2*cap {
		t.Fatalf("size %d exceeds 2*C", s)
	}
	v, ok := q.Pop()
	if !ok || v != 0 {
		t.Fatalf("expected first pop to be 0, got (%d,%v)", v, ok)
	}
}

func TestFlushDisposesResidentExactlyOnce(t *testing.T) {
	q := New[int](8)
	for i := 0; i < 5; i++ {
		q.Push(i)
	}
	disposed := map[int]int{}
	var mu sync.Mutex
	q.Flush(func(v int) {
		mu.Lock()
		disposed[v]++
		mu.Unlock()
	})
	for i := 0; i < 5; i++ {
		if disposed[i] != 1 {
			t.Fatalf("item %d disposed %d times, want 1", i, disposed[i])
		}
	}
	if q.Size() != 0 {
		t.Fatalf("expected empty queue after flush, got size %d", q.Size())
	}
}

func TestFlushWakesBlockedPopWithFalse(t *testing.T) {
	q := New[int](4)
	done := make(chan bool, 1)
	go func() {
		_, ok := q.Pop()
		done <- ok
	}()
	// Give the popper time to block.
	time.Sleep(20 * time.Millisecond)
	q.Flush(nil)

	select {
	case ok := <-done:
		if ok {
			t.Fatal("expected flushed Pop to return false")
		}
	case <-time.After(time.Second):
		t.Fatal("Pop did not wake up after Flush")
	}
}

func TestFlushWakesBlockedPushWithFalseAndRetainsOwnership(t *testing.T) {
	q := New[int](1)
	q.Push(1) // fill push-buffer

	done := make(chan bool, 1)
	go func() {
		ok := q.Push(2)
		done <- ok
	}()
	time.Sleep(20 * time.Millisecond)
	q.Flush(nil)

	select {
	case ok := <-done:
		if ok {
			t.Fatal("expected flushed Push to return false")
		}
	case <-time.After(time.Second):
		t.Fatal("Push did not wake up after Flush")
	}
}

func TestQueueReusableAfterFlush(t *testing.T) {
	q := New[int](4)
	q.Push(1)
	q.Flush(nil)

	// After all waiters (there were none blocked) drain, the flush flag
	// must have self-cleared so the queue works normally again.
	if !q.Push(42) {
		t.Fatal("expected queue to accept pushes after flush self-clears")
	}
	v, ok := q.Pop()
	if !ok || v != 42 {
		t.Fatalf("got (%d,%v), want (42,true)", v, ok)
	}
}

func TestRefillBySwapDeliversPushedItemsToConsumer(t *testing.T) {
	q := New[int](4)
	var wg sync.WaitGroup
	results := make([]int, 4)
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := range results {
			v, ok := q.Pop()
			if !ok {
				t.Errorf("unexpected flush during pop %d", i)
				return
			}
			results[i] = v
		}
	}()
	for i := 0; i < 4; i++ {
		q.Push(i)
	}
	wg.Wait()
	for i, v := range results {
		if v != i {
			t.Fatalf("results[%d] = %d, want %d", i, v, i)
		}
	}
}
