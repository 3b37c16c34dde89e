// Package lookup runs as-you-type lookups: each new input cancels the
// previous one, waits for a quiet period and then issues a single call.
package lookup

import (
	"context"
	"strings"
	"sync"
	"time"
)

type Func[T any] func(ctx context.Context, input string) (T, error)

type Result[T any] struct {
	Input string
	Value T
	Err   error
}

// Debouncer delivers only the result for the most recent input. Results for
// superseded inputs are dropped, even if their lookup already finished.
type Debouncer[T any] struct {
	quiet  time.Duration
	lookup Func[T]

	results chan Result[T]
	wg      sync.WaitGroup

	mu     sync.Mutex
	seq    uint64
	cancel context.CancelFunc
	closed bool
}

func New[T any](quiet time.Duration, lookup Func[T]) *Debouncer[T] {
	return &Debouncer[T]{
		quiet:   quiet,
		lookup:  lookup,
		results: make(chan Result[T], 1),
	}
}

// Results is closed by Close.
func (d *Debouncer[T]) Results() <-chan Result[T] {
	return d.results
}

// Submit replaces the pending input. A blank input only cancels.
func (d *Debouncer[T]) Submit(input string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}

	d.seq++
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}

	input = strings.TrimSpace(input)
	if input == "" {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	d.cancel = cancel
	d.wg.Add(1)
	go d.run(ctx, d.seq, input)
}

func (d *Debouncer[T]) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.mu.Unlock()

	d.wg.Wait()
	close(d.results)
}

func (d *Debouncer[T]) run(ctx context.Context, seq uint64, input string) {
	defer d.wg.Done()

	timer := time.NewTimer(d.quiet)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return
	case <-timer.C:
	}

	value, err := d.lookup(ctx, input)
	if ctx.Err() != nil {
		return
	}
	d.deliver(seq, Result[T]{Input: input, Value: value, Err: err})
}

func (d *Debouncer[T]) deliver(seq uint64, result Result[T]) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed || seq != d.seq {
		return
	}
	select {
	case <-d.results:
	default:
	}
	d.results <- result
}
