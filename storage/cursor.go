package storage

import (
	"errors"
	"io"
)

type cursorState int

const (
	stateFresh cursorState = iota
	stateActive
	stateEnd
)

// source is the backend side of a cursor.
type source[T any] interface {
	Next() (T, error)
	Close() error
}

// cursor drives a source through the Fresh, Active and End states.
// End is sticky. The first item is fetched lazily.
type cursor[T any] struct {
	src      source[T]
	state    cursorState
	item     T
	err      error
	reported bool
	released bool
	detach   func()
	// wrap classifies source failures; nil means wrapIO
	wrap func(error) error
}

func (c *cursor[T]) classify(err error) error {
	if c.wrap != nil {
		return c.wrap(err)
	}
	return wrapIO(err)
}

func (c *cursor[T]) fetch() {
	item, err := c.src.Next()
	if err != nil {
		if !errors.Is(err, io.EOF) {
			c.err = c.classify(err)
		}
		c.finish()
		return
	}
	c.item = item
	c.state = stateActive
}

func (c *cursor[T]) start() {
	if c.state == stateFresh {
		c.fetch()
	}
}

// finish moves to End and releases the backend traversal. The cursor stays
// attached to its storage until Close.
func (c *cursor[T]) finish() {
	var zero T
	c.state = stateEnd
	c.item = zero
	if !c.released {
		c.released = true
		if err := c.src.Close(); err != nil && c.err == nil {
			c.err = c.classify(err)
		}
	}
}

func (c *cursor[T]) end() bool {
	c.start()
	return c.state == stateEnd
}

func (c *cursor[T]) current() (T, error) {
	c.start()
	if c.state != stateActive {
		var zero T
		return zero, ErrCursorEnd
	}
	return c.item, nil
}

func (c *cursor[T]) advance() {
	c.start()
	if c.state == stateActive {
		c.fetch()
	}
}

func (c *cursor[T]) close() error {
	c.finish()
	if c.detach != nil {
		c.detach()
		c.detach = nil
	}
	return c.err
}

// takeErr returns the terminal error once.
func (c *cursor[T]) takeErr() error {
	if c.reported {
		return nil
	}
	c.reported = true
	return c.err
}

// all yields the remaining items and releases the cursor when the loop ends.
func (c *cursor[T]) all(yield func(T, error) bool) {
	defer c.close()
	for !c.end() {
		if !yield(c.item, nil) {
			return
		}
		c.advance()
	}
	if err := c.takeErr(); err != nil {
		var zero T
		yield(zero, err)
	}
}

func (c *cursor[T]) collect() ([]T, error) {
	var items []T
	for !c.end() {
		items = append(items, c.item)
		c.advance()
	}
	err := c.takeErr()
	c.close()
	return items, err
}

// distinct drops items already produced by the wrapped source.
type distinct[T comparable] struct {
	src  source[T]
	seen map[T]struct{}
}

func newDistinct[T comparable](src source[T]) *distinct[T] {
	return &distinct[T]{src: src, seen: make(map[T]struct{})}
}

func (d *distinct[T]) Next() (T, error) {
	for {
		item, err := d.src.Next()
		if err != nil {
			return item, err
		}
		if _, ok := d.seen[item]; ok {
			continue
		}
		d.seen[item] = struct{}{}
		return item, nil
	}
}

func (d *distinct[T]) Close() error {
	d.seen = nil
	return d.src.Close()
}

// sliceSource yields the items of a slice.
type sliceSource[T any] struct {
	items []T
	pos   int
}

func (s *sliceSource[T]) Next() (T, error) {
	if s.pos >= len(s.items) {
		var zero T
		return zero, io.EOF
	}
	item := s.items[s.pos]
	s.pos++
	return item, nil
}

func (s *sliceSource[T]) Close() error {
	s.items = nil
	return nil
}

// mapSource converts the items of a source.
type mapSource[S, T any] struct {
	src source[S]
	fn  func(S) T
}

func (m *mapSource[S, T]) Next() (T, error) {
	item, err := m.src.Next()
	if err != nil {
		var zero T
		return zero, err
	}
	return m.fn(item), nil
}

func (m *mapSource[S, T]) Close() error {
	return m.src.Close()
}

// checkedSource fails the traversal on the first item rejected by check.
type checkedSource[T any] struct {
	src   source[T]
	check func(T) error
}

func (c *checkedSource[T]) Next() (T, error) {
	item, err := c.src.Next()
	if err != nil {
		return item, err
	}
	if err := c.check(item); err != nil {
		var zero T
		return zero, err
	}
	return item, nil
}

func (c *checkedSource[T]) Close() error {
	return c.src.Close()
}
