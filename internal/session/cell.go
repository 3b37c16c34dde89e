package session

import "sync"

// Cell holds one value and broadcasts every change to its subscribers.
// Subscribers only ever see the newest value; a slow reader skips
// intermediate updates instead of queueing them.
type Cell[T any] struct {
	mu     sync.RWMutex
	value  T
	nextID int
	subs   map[int]chan T
}

func NewCell[T any](initial T) *Cell[T] {
	return &Cell[T]{value: initial, subs: make(map[int]chan T)}
}

func (c *Cell[T]) Get() T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.value
}

func (c *Cell[T]) Set(value T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.value = value
	for _, ch := range c.subs {
		offerLatest(ch, value)
	}
}

// Subscribe returns a channel that immediately holds the current value and
// then every later one. The returned func unsubscribes and closes the channel.
func (c *Cell[T]) Subscribe() (<-chan T, func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.nextID
	c.nextID++
	ch := make(chan T, 1)
	ch <- c.value
	c.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			delete(c.subs, id)
			close(ch)
		})
	}
}

// offerLatest replaces any unread value. Callers hold the write lock, so no
// other sender can refill the slot between the drain and the send.
func offerLatest[T any](ch chan T, value T) {
	select {
	case <-ch:
	default:
	}
	ch <- value
}
