package lookup

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestOnlyLatestInputIsLookedUp(t *testing.T) {
	var mu sync.Mutex
	var seen []string
	d := New(30*time.Millisecond, func(_ context.Context, input string) (string, error) {
		mu.Lock()
		seen = append(seen, input)
		mu.Unlock()
		return "ticket:" + input, nil
	})
	defer d.Close()

	d.Submit("A")
	d.Submit("AB")
	d.Submit("ABC")

	select {
	case r := <-d.Results():
		if r.Input != "ABC" || r.Value != "ticket:ABC" || r.Err != nil {
			t.Fatalf("unexpected result %+v", r)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for result")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(seen) != 1 || seen[0] != "ABC" {
		t.Fatalf("lookups = %v, want only ABC", seen)
	}
}

func TestStaleInFlightResultIsDropped(t *testing.T) {
	release := make(chan struct{})
	started := make(chan string, 2)
	d := New(time.Millisecond, func(ctx context.Context, input string) (string, error) {
		started <- input
		if input == "slow" {
			<-release
			return "stale", nil
		}
		return "fresh", nil
	})
	defer d.Close()

	d.Submit("slow")
	if got := <-started; got != "slow" {
		t.Fatalf("started %q", got)
	}
	d.Submit("fast")
	close(release)

	select {
	case r := <-d.Results():
		if r.Input != "fast" || r.Value != "fresh" {
			t.Fatalf("unexpected result %+v", r)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for result")
	}
	select {
	case r := <-d.Results():
		t.Fatalf("stale result delivered: %+v", r)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestLookupCancelledOnNewInput(t *testing.T) {
	cancelled := make(chan struct{})
	started := make(chan struct{})
	d := New(time.Millisecond, func(ctx context.Context, input string) (int, error) {
		if input == "first" {
			close(started)
			<-ctx.Done()
			close(cancelled)
			return 0, ctx.Err()
		}
		return 2, nil
	})
	defer d.Close()

	d.Submit("first")
	<-started
	d.Submit("second")

	select {
	case <-cancelled:
	case <-time.After(2 * time.Second):
		t.Fatal("in-flight lookup was not cancelled")
	}
}

func TestBlankInputOnlyCancels(t *testing.T) {
	var calls atomic.Int32
	d := New(20*time.Millisecond, func(context.Context, string) (int, error) {
		calls.Add(1)
		return 1, nil
	})

	d.Submit("ABC")
	d.Submit("   ")
	time.Sleep(80 * time.Millisecond)
	d.Close()

	if n := calls.Load(); n != 0 {
		t.Fatalf("lookups = %d, want 0", n)
	}
	if _, ok := <-d.Results(); ok {
		t.Fatal("expected closed results channel")
	}
}

func TestErrorsAreDelivered(t *testing.T) {
	boom := errors.New("not found")
	d := New(time.Millisecond, func(context.Context, string) (int, error) {
		return 0, boom
	})
	defer d.Close()

	d.Submit("X")
	r := <-d.Results()
	if !errors.Is(r.Err, boom) || r.Input != "X" {
		t.Fatalf("unexpected result %+v", r)
	}
}

func TestSubmitAfterCloseIsIgnored(t *testing.T) {
	d := New(time.Millisecond, func(context.Context, string) (int, error) {
		t.Error("lookup after close")
		return 0, nil
	})
	d.Close()
	d.Close()
	d.Submit("X")
}
