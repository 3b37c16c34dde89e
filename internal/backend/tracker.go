package backend

import (
	"strings"
	"sync"

	"github.com/go-resty/resty/v2"
)

// SkipLoaderHeader marks a request that must not toggle the busy indicator.
const SkipLoaderHeader = "X-Skip-Loader"

// Tracker counts in-flight API requests so the terminal can show a busy
// indicator while any of them is pending.
type Tracker struct {
	mu        sync.Mutex
	active    int
	listeners []func(busy bool)
}

func NewTracker() *Tracker {
	return &Tracker{}
}

// Attach installs the counting hooks on a resty client. Every request that
// passes the before-request hook ends in exactly one success or error hook.
func (t *Tracker) Attach(client *resty.Client) {
	client.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		if !skipped(req) {
			t.show()
		}
		return nil
	})
	client.OnSuccess(func(_ *resty.Client, resp *resty.Response) {
		if !skipped(resp.Request) {
			t.hide()
		}
	})
	client.OnError(func(req *resty.Request, _ error) {
		if !skipped(req) {
			t.hide()
		}
	})
}

func (t *Tracker) OnChange(fn func(busy bool)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.listeners = append(t.listeners, fn)
}

func (t *Tracker) Busy() bool {
	return t.Active() > 0
}

func (t *Tracker) Active() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.active
}

// Reset clears a counter left hanging by an abandoned request.
func (t *Tracker) Reset() {
	t.update(func(int) int { return 0 })
}

func (t *Tracker) show() {
	t.update(func(n int) int { return n + 1 })
}

func (t *Tracker) hide() {
	t.update(func(n int) int { return max(0, n-1) })
}

func (t *Tracker) update(next func(int) int) {
	t.mu.Lock()
	wasBusy := t.active > 0
	t.active = next(t.active)
	busy := t.active > 0
	listeners := append([]func(bool){}, t.listeners...)
	t.mu.Unlock()

	if busy == wasBusy {
		return
	}
	for _, fn := range listeners {
		fn(busy)
	}
}

func skipped(req *resty.Request) bool {
	if req == nil {
		return false
	}
	return strings.EqualFold(req.Header.Get(SkipLoaderHeader), "true")
}
