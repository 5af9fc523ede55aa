package keylock

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestKeyedMutex_SerializesSameKey(t *testing.T) {
	km := New()
	ctx := context.Background()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		inside  int
		maxSeen int
		counter int
	)

	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := km.Lock(ctx, "user-1")
			if err != nil {
				t.Errorf("Lock() error = %v", err)
				return
			}
			defer unlock()

			mu.Lock()
			inside++
			if inside > maxSeen {
				maxSeen = inside
			}
			mu.Unlock()

			counter++ // guarded by the keyed lock only

			mu.Lock()
			inside--
			mu.Unlock()
		}()
	}
	wg.Wait()

	if maxSeen != 1 {
		t.Errorf("max concurrent holders = %d, want 1", maxSeen)
	}
	if counter != 100 {
		t.Errorf("counter = %d, want 100", counter)
	}
	if km.Len() != 0 {
		t.Errorf("Len() = %d after all released, want 0", km.Len())
	}
}

func TestKeyedMutex_DifferentKeysIndependent(t *testing.T) {
	km := New()
	ctx := context.Background()

	unlockA, err := km.Lock(ctx, "a")
	if err != nil {
		t.Fatalf("Lock(a) error = %v", err)
	}
	defer unlockA()

	done := make(chan struct{})
	go func() {
		unlockB, err := km.Lock(ctx, "b")
		if err == nil {
			unlockB()
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Lock(b) blocked while a was held")
	}
}

func TestKeyedMutex_ContextCancel(t *testing.T) {
	km := New()

	unlock, err := km.Lock(context.Background(), "a")
	if err != nil {
		t.Fatalf("Lock() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if _, err := km.Lock(ctx, "a"); err == nil {
		t.Fatal("expected context error while key is held")
	}

	unlock()
	unlock() // second call is a no-op

	if km.Len() != 0 {
		t.Errorf("Len() = %d, want 0", km.Len())
	}
}
