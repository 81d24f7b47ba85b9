package config

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/naosoccer/stack/framework"
	"github.com/naosoccer/stack/logging"
)

// Store holds the active parameter document and publishes its typed form to the cyclers. It is
// the single writer of the parameters; every change is validated by decoding before it becomes
// visible.
type Store[T any] struct {
	logger logging.Logger

	mu       sync.Mutex
	document map[string]any
	writer   *framework.Writer[T]
}

// NewStore decodes document and returns the store together with readers for the typed
// parameters.
func NewStore[T any](document map[string]any, readers int, logger logging.Logger) (*Store[T], []*framework.Reader[T], error) {
	var parameters T
	if err := Decode(document, &parameters); err != nil {
		return nil, nil, errors.Wrap(err, "decoding parameters")
	}
	writer, result := framework.NewMultiBuffer(parameters, readers)
	return &Store[T]{logger: logger, document: Clone(document), writer: writer}, result, nil
}

// Document returns a copy of the active document.
func (s *Store[T]) Document() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Clone(s.document)
}

// Get returns the value at a dotted path of the active document.
func (s *Store[T]) Get(path string) (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	value, err := Get(s.document, path)
	if err != nil {
		return nil, err
	}
	return cloneValue(value), nil
}

// Update replaces a single value. An update that does not decode is rejected and the previous
// parameters stay active.
func (s *Store[T]) Update(path string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	document := Clone(s.document)
	if err := Set(document, path, value); err != nil {
		return err
	}
	if err := s.publish(document); err != nil {
		return errors.Wrapf(err, "rejected update of %q", path)
	}
	s.logger.Infow("updated parameter", "path", path)
	return nil
}

// Replace swaps in a whole new document, for example after the files changed.
func (s *Store[T]) Replace(document map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.publish(Clone(document)); err != nil {
		return errors.Wrap(err, "rejected parameters")
	}
	return nil
}

func (s *Store[T]) publish(document map[string]any) error {
	var parameters T
	if err := Decode(document, &parameters); err != nil {
		return err
	}
	slot := s.writer.Next()
	*slot.Value() = parameters
	if err := slot.Publish(); err != nil {
		return err
	}
	s.document = document
	return nil
}

// Changed is signalled after every accepted change.
func (s *Store[T]) Changed() <-chan struct{} {
	return s.writer.Changed()
}

// Close stops publishing. Readers keep the last parameters.
func (s *Store[T]) Close() {
	s.writer.Close()
}
