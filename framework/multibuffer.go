// Package framework contains the data flow primitives connecting cyclers: multi buffers for
// snapshots and future queues for timestamped results of slower producers.
package framework

import (
	"sync"

	"github.com/pkg/errors"
)

// ErrBufferClosed indicates that a slot was published after the buffer was closed.
var ErrBufferClosed = errors.New("buffer is closed")

type slotState struct {
	readers  int
	writer   bool
	lastUsed uint64
}

type multiBuffer[T any] struct {
	mu      sync.Mutex
	values  []T
	states  []slotState
	latest  int
	uses    uint64
	closed  bool
	clone   func(T) T
	changed chan struct{}
}

// NewMultiBuffer allocates 2 + readers slots holding initial and returns the single writer and
// the readers. Values are copied by assignment.
func NewMultiBuffer[T any](initial T, readers int) (*Writer[T], []*Reader[T]) {
	return NewMultiBufferWithCopy(initial, readers, func(value T) T { return value })
}

// NewMultiBufferWithCopy is like NewMultiBuffer but copies values with clone, for values that
// hold references.
func NewMultiBufferWithCopy[T any](initial T, readers int, clone func(T) T) (*Writer[T], []*Reader[T]) {
	readers = max(readers, 0)
	buffer := &multiBuffer[T]{
		values:  make([]T, 2+readers),
		states:  make([]slotState, 2+readers),
		clone:   clone,
		changed: make(chan struct{}, 1),
	}
	for i := range buffer.values {
		buffer.values[i] = clone(initial)
	}
	result := make([]*Reader[T], readers)
	for i := range result {
		result[i] = &Reader[T]{buffer: buffer}
	}
	return &Writer[T]{buffer: buffer}, result
}

// Writer is the single writing end of a multi buffer.
type Writer[T any] struct {
	buffer *multiBuffer[T]
	held   *WriterSlot[T]
}

// WriterSlot is a slot exclusively owned by the writer until it is published or discarded.
type WriterSlot[T any] struct {
	writer *Writer[T]
	index  int
	done   bool
}

// Next hands out the least recently used slot nobody holds, loaded with a copy of the latest
// value. A slot still held from the previous call is discarded.
func (w *Writer[T]) Next() *WriterSlot[T] {
	if w.held != nil {
		w.held.Discard()
	}
	b := w.buffer
	b.mu.Lock()
	index := -1
	for i, state := range b.states {
		if i == b.latest || state.readers > 0 || state.writer {
			continue
		}
		if index < 0 || state.lastUsed < b.states[index].lastUsed {
			index = i
		}
	}
	b.states[index].writer = true
	latest := b.values[b.latest]
	b.mu.Unlock()

	// the slot is exclusively ours now, copying happens outside the lock
	b.values[index] = b.clone(latest)
	w.held = &WriterSlot[T]{writer: w, index: index}
	return w.held
}

// Changed is signalled after every publish. Signals that are not received in time are coalesced.
func (w *Writer[T]) Changed() <-chan struct{} {
	return w.buffer.changed
}

// Close makes further publishes fail. Readers keep the last published value.
func (w *Writer[T]) Close() {
	w.buffer.mu.Lock()
	defer w.buffer.mu.Unlock()
	w.buffer.closed = true
}

// Value points into the slot. It must not be used after Publish or Discard.
func (s *WriterSlot[T]) Value() *T {
	return &s.writer.buffer.values[s.index]
}

// Publish makes the slot the latest value.
func (s *WriterSlot[T]) Publish() error {
	if s.done {
		return nil
	}
	b := s.writer.buffer
	b.mu.Lock()
	s.release(b)
	if b.closed {
		b.mu.Unlock()
		return ErrBufferClosed
	}
	b.latest = s.index
	b.mu.Unlock()

	select {
	case b.changed <- struct{}{}:
	default:
	}
	return nil
}

// Discard releases the slot without publishing it.
func (s *WriterSlot[T]) Discard() {
	if s.done {
		return
	}
	b := s.writer.buffer
	b.mu.Lock()
	defer b.mu.Unlock()
	s.release(b)
}

func (s *WriterSlot[T]) release(b *multiBuffer[T]) {
	s.done = true
	b.uses++
	b.states[s.index].writer = false
	b.states[s.index].lastUsed = b.uses
	if s.writer.held == s {
		s.writer.held = nil
	}
}

// Reader is one reading end of a multi buffer. A reader holds at most one slot.
type Reader[T any] struct {
	buffer *multiBuffer[T]
	held   *ReaderSlot[T]
}

// ReaderSlot is a shared snapshot of a published value.
type ReaderSlot[T any] struct {
	reader *Reader[T]
	index  int
	done   bool
}

// Next releases the previously held slot and returns the latest published value.
func (r *Reader[T]) Next() *ReaderSlot[T] {
	b := r.buffer
	b.mu.Lock()
	defer b.mu.Unlock()
	if r.held != nil {
		r.held.release(b)
	}
	b.states[b.latest].readers++
	r.held = &ReaderSlot[T]{reader: r, index: b.latest}
	return r.held
}

// Value points to the snapshot. It must be treated as read only.
func (s *ReaderSlot[T]) Value() *T {
	return &s.reader.buffer.values[s.index]
}

// Release gives the slot back to the writer.
func (s *ReaderSlot[T]) Release() {
	b := s.reader.buffer
	b.mu.Lock()
	defer b.mu.Unlock()
	s.release(b)
}

func (s *ReaderSlot[T]) release(b *multiBuffer[T]) {
	if s.done {
		return
	}
	s.done = true
	b.states[s.index].readers--
	if s.reader.held == s {
		s.reader.held = nil
	}
}
