package sta

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestDoRunsOnSingleThread(t *testing.T) {
	d := New(8)
	defer shutdown(t, d)

	// Tasks observe strictly serial execution.
	var mu sync.Mutex
	running := false
	for i := 0; i < 10; i++ {
		err := d.Do(func() error {
			mu.Lock()
			if running {
				mu.Unlock()
				t.Error("two tasks running concurrently")
				return nil
			}
			running = true
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			running = false
			mu.Unlock()
			return nil
		})
		if err != nil {
			t.Fatalf("Do: %v", err)
		}
	}
}

func TestDoReturnsTaskError(t *testing.T) {
	d := New(1)
	defer shutdown(t, d)

	want := errors.New("boom")
	if got := d.Do(func() error { return want }); !errors.Is(got, want) {
		t.Fatalf("Do = %v, want %v", got, want)
	}
}

func TestDoAfterShutdownFails(t *testing.T) {
	d := New(1)
	shutdown(t, d)

	if err := d.Do(func() error { return nil }); !errors.Is(err, ErrStopped) {
		t.Fatalf("Do after Shutdown = %v, want ErrStopped", err)
	}
}

func TestPanicDoesNotKillDispatcher(t *testing.T) {
	d := New(4)
	defer shutdown(t, d)

	if err := d.Do(func() error { panic("test panic") }); err == nil {
		t.Fatal("panicking task should surface an error")
	}
	if err := d.Do(func() error { return nil }); err != nil {
		t.Fatalf("dispatcher dead after panic: %v", err)
	}
}

func TestShutdownDrainsQueued(t *testing.T) {
	d := New(8)

	var mu sync.Mutex
	count := 0
	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d.Do(func() error {
				mu.Lock()
				count++
				mu.Unlock()
				return nil
			})
		}()
	}
	wg.Wait()
	shutdown(t, d)

	mu.Lock()
	defer mu.Unlock()
	if count != 5 {
		t.Fatalf("count = %d, want 5", count)
	}
}

func shutdown(t *testing.T, d *Dispatcher) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	d.Shutdown(ctx)
}
