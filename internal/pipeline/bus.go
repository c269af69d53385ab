package pipeline

import (
	"context"
	"errors"
	"sync"
)

// ErrClosed is returned when posting to a session or bus that has shut down.
var ErrClosed = errors.New("pipeline: closed")

// Policy controls how a subscription receives values.
type Policy int

const (
	// Block delivers every value in order. Publish waits while the
	// subscription's buffer is full.
	Block Policy = iota
	// Latest keeps only the newest undelivered value. Publish never waits.
	Latest
)

type subscription[T any] struct {
	ch     chan T
	policy Policy
	mu     sync.Mutex // serializes drain+send for Latest
}

// Bus fans values out to independent subscriptions.
type Bus[T any] struct {
	mu     sync.RWMutex
	subs   []*subscription[T]
	closed bool

	done      chan struct{}
	closeOnce sync.Once
	active    sync.WaitGroup // in-flight Publish calls
}

// NewBus returns an open bus with no subscribers.
func NewBus[T any]() *Bus[T] {
	return &Bus[T]{done: make(chan struct{})}
}

// Subscribe registers a subscription. buffer applies to Block subscriptions;
// Latest subscriptions always hold one value. Close closes the channels of
// subscriptions that are still registered. Subscribing to a closed bus
// returns a closed channel.
func (b *Bus[T]) Subscribe(policy Policy, buffer int) (<-chan T, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		ch := make(chan T)
		close(ch)
		return ch, func() {}
	}

	if policy == Latest || buffer < 0 {
		buffer = 1
	}
	sub := &subscription[T]{ch: make(chan T, buffer), policy: policy}
	b.subs = append(b.subs, sub)

	unsubscribe := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		for i, s := range b.subs {
			if s == sub {
				b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
				break
			}
		}
		// In-flight publishers may still hold sub, so ch is never closed here.
	}
	return sub.ch, unsubscribe
}

// Publish delivers v to every subscription. It returns ErrClosed once the
// bus is closed and ctx.Err() if ctx ends while a Block subscriber is full.
func (b *Bus[T]) Publish(ctx context.Context, v T) error {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return ErrClosed
	}
	b.active.Add(1)
	subs := make([]*subscription[T], len(b.subs))
	copy(subs, b.subs)
	b.mu.RUnlock()
	defer b.active.Done()

	for _, sub := range subs {
		if sub.policy == Latest {
			sub.replace(v)
			continue
		}
		select {
		case sub.ch <- v:
		case <-ctx.Done():
			return ctx.Err()
		case <-b.done:
			return ErrClosed
		}
	}
	return nil
}

func (s *subscription[T]) replace(v T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for {
		select {
		case s.ch <- v:
			return
		default:
		}
		select {
		case <-s.ch:
		default:
		}
	}
}

// Close stops the bus and closes every subscription channel. Values still
// buffered remain readable. Safe to call more than once.
func (b *Bus[T]) Close() {
	b.closeOnce.Do(func() {
		b.mu.Lock()
		b.closed = true
		b.mu.Unlock()

		close(b.done)
		b.active.Wait()

		b.mu.Lock()
		for _, sub := range b.subs {
			close(sub.ch)
		}
		b.subs = nil
		b.mu.Unlock()
	})
}
