package framework

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
)

// ErrNotAnnounced indicates a Finalize or Abandon without an announced slot.
var ErrNotAnnounced = errors.New("no announced slot to finalize")

// Item is a finalized result with the time it belongs to.
type Item[T any] struct {
	Timestamp time.Time `json:"timestamp"`
	Data      T         `json:"data"`
}

type futureSlot[T any] struct {
	timestamp *time.Time
	data      *T
}

type futureQueue[T any] struct {
	mu       sync.Mutex
	clk      clock.Clock
	slots    []futureSlot[T]
	last     time.Time
	capacity int
	dropped  int
}

// QueueOption configures a future queue.
type QueueOption func(*queueOptions)

type queueOptions struct {
	clk      clock.Clock
	capacity int
}

// WithClock sets the clock stamping slots finalized before any consume.
func WithClock(clk clock.Clock) QueueOption {
	return func(o *queueOptions) {
		o.clk = clk
	}
}

// WithCapacity bounds the number of finalized items waiting for the consumer. The oldest ones are
// dropped.
func WithCapacity(capacity int) QueueOption {
	return func(o *queueOptions) {
		o.capacity = capacity
	}
}

// NewFutureQueue returns the producer and consumer ends of a future queue.
func NewFutureQueue[T any](opts ...QueueOption) (*Producer[T], *Consumer[T]) {
	options := queueOptions{clk: clock.New()}
	for _, opt := range opts {
		opt(&options)
	}
	queue := &futureQueue[T]{clk: options.clk, capacity: options.capacity}
	return &Producer[T]{queue: queue}, &Consumer[T]{queue: queue}
}

// Producer announces work and later attaches its result.
type Producer[T any] struct {
	queue *futureQueue[T]
}

// Announce appends an empty slot. The consumer will not move past it until it is finalized.
func (p *Producer[T]) Announce() {
	q := p.queue
	q.mu.Lock()
	defer q.mu.Unlock()
	q.slots = append(q.slots, futureSlot[T]{})
}

// firstAnnounced returns the index of the oldest slot without data.
func (q *futureQueue[T]) firstAnnounced() int {
	for i, slot := range q.slots {
		if slot.data == nil {
			return i
		}
	}
	return -1
}

// Finalize attaches value to the oldest announced slot. A slot no consumer stamped yet gets the
// current time.
func (p *Producer[T]) Finalize(value T) error {
	q := p.queue
	q.mu.Lock()
	defer q.mu.Unlock()
	index := q.firstAnnounced()
	if index < 0 {
		return ErrNotAnnounced
	}
	slot := &q.slots[index]
	if slot.timestamp == nil {
		now := q.clk.Now()
		slot.timestamp = &now
	}
	slot.data = &value
	q.enforceCapacity()
	return nil
}

// Abandon removes the oldest announced slot, e.g. when the producing cycle failed.
func (p *Producer[T]) Abandon() error {
	q := p.queue
	q.mu.Lock()
	defer q.mu.Unlock()
	index := q.firstAnnounced()
	if index < 0 {
		return ErrNotAnnounced
	}
	q.slots = append(q.slots[:index], q.slots[index+1:]...)
	return nil
}

func (q *futureQueue[T]) enforceCapacity() {
	if q.capacity <= 0 {
		return
	}
	finalized := 0
	for _, slot := range q.slots {
		if slot.data != nil {
			finalized++
		}
	}
	for i := 0; finalized > q.capacity && i < len(q.slots); {
		if q.slots[i].data == nil {
			i++
			continue
		}
		q.slots = append(q.slots[:i], q.slots[i+1:]...)
		finalized--
		q.dropped++
	}
}

// Consumer drains finalized items in announce order.
type Consumer[T any] struct {
	queue *futureQueue[T]
}

// Consume stamps slots without a timestamp with now and returns the finalized items at the front
// of the queue that belong to now or earlier. The second result is the timestamp of the first
// slot still waiting for data, or nil if there is none. Timestamps never decrease.
func (c *Consumer[T]) Consume(now time.Time) ([]Item[T], *time.Time) {
	q := c.queue
	q.mu.Lock()
	defer q.mu.Unlock()
	for i := range q.slots {
		if q.slots[i].timestamp == nil {
			stamp := now
			q.slots[i].timestamp = &stamp
		}
	}

	var items []Item[T]
	drained := 0
	for _, slot := range q.slots {
		if slot.data == nil || slot.timestamp.After(now) {
			break
		}
		timestamp := *slot.timestamp
		if timestamp.Before(q.last) {
			timestamp = q.last
		}
		q.last = timestamp
		items = append(items, Item[T]{Timestamp: timestamp, Data: *slot.data})
		drained++
	}
	q.slots = q.slots[drained:]

	var pending *time.Time
	if index := q.firstAnnounced(); index >= 0 {
		timestamp := *q.slots[index].timestamp
		pending = &timestamp
	}
	return items, pending
}

// Len is the number of slots in the queue.
func (c *Consumer[T]) Len() int {
	c.queue.mu.Lock()
	defer c.queue.mu.Unlock()
	return len(c.queue.slots)
}

// Dropped counts the items removed by the capacity bound.
func (c *Consumer[T]) Dropped() int {
	c.queue.mu.Lock()
	defer c.queue.mu.Unlock()
	return c.queue.dropped
}
