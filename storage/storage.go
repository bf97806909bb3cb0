// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/poiesic/graphstore/core"
)

// DefaultName is the factory used when New is called with an empty name.
const DefaultName = "memory"

type lifecycle int

const (
	constructed lifecycle = iota
	opened
	closed
)

// releasable is an open Stream or Iterator tracked by its Storage.
type releasable interface {
	forceClose()
}

// Storage is a handle bound to exactly one backend instance. It validates
// every call and forwards it to the backend. A Storage is used by one
// goroutine at a time.
type Storage struct {
	name    string
	opts    Options
	backend Backend
	model   Model
	state   lifecycle
	open    map[releasable]struct{}
	logger  *slog.Logger
}

// New constructs a Storage using the factory registered under name.
// On failure it returns a nil Storage and a *ConstructError.
func New(ctx context.Context, registry *Registry, name string, opts Options) (*Storage, error) {
	if name == "" {
		name = DefaultName
	}
	factory, err := registry.Resolve(name)
	if err != nil {
		return nil, &ConstructError{Name: name, Options: opts, Err: err}
	}
	backend, err := factory.New(ctx, opts)
	if err != nil {
		return nil, &ConstructError{Name: name, Options: opts, Err: wrapIO(err)}
	}
	return &Storage{
		name:    name,
		opts:    opts,
		backend: backend,
		open:    make(map[releasable]struct{}),
		logger:  slog.Default().With("component", "storage", "backend", name),
	}, nil
}

// Name returns the factory name the storage was constructed with.
func (s *Storage) Name() string {
	return s.name
}

// Options returns the construction options.
func (s *Storage) Options() Options {
	return s.opts
}

// Backend returns the underlying backend.
func (s *Storage) Backend() Backend {
	return s.backend
}

// Model returns the model the storage is opened against, or nil.
func (s *Storage) Model() Model {
	return s.model
}

// SupportsContexts reports whether the storage was constructed in quad mode.
func (s *Storage) SupportsContexts() bool {
	return s.opts.Contexts
}

// Open binds the storage to a model. It must precede every query and mutation.
func (s *Storage) Open(ctx context.Context, model Model) error {
	switch s.state {
	case opened:
		return ErrAlreadyOpen
	case closed:
		return ErrClosed
	}
	if model == nil {
		return fmt.Errorf("%w: model cannot be nil", core.ErrInvalidArgument)
	}
	if err := s.backend.Open(ctx, model); err != nil {
		return wrapIO(err)
	}
	s.model = model
	s.state = opened
	s.logger.Debug("storage opened", "model", model.Name(), "options", s.opts.String())
	return nil
}

// Close releases the backend. Cursors still open are released first.
// Subsequent calls return ErrClosed.
func (s *Storage) Close() error {
	if s.state == closed {
		return ErrClosed
	}
	if n := len(s.open); n > 0 {
		s.logger.Warn("closing storage with open cursors", "count", n)
		for r := range s.open {
			r.forceClose()
		}
	}
	s.open = nil
	s.model = nil
	s.state = closed
	return wrapIO(s.backend.Close())
}

func (s *Storage) ready() error {
	switch s.state {
	case constructed:
		return ErrNotOpen
	case closed:
		return ErrClosed
	}
	return nil
}

// checkGround validates a quad for a mutation or an exact lookup.
func (s *Storage) checkGround(q core.Quad) error {
	if err := core.ValidateGround(q.Statement); err != nil {
		return err
	}
	return s.checkContext(q.Context)
}

func (s *Storage) checkContext(c core.Term) error {
	if err := core.ValidateContext(c); err != nil {
		return err
	}
	if c.IsBound() && !s.opts.Contexts {
		return ErrContextsDisabled
	}
	return nil
}

// AddStatement stores a ground statement without a context.
func (s *Storage) AddStatement(ctx context.Context, stmt core.Statement) error {
	return s.add(ctx, core.NewQuad(stmt, core.Any))
}

// AddStatementInContext stores a ground statement under context c.
func (s *Storage) AddStatementInContext(ctx context.Context, stmt core.Statement, c core.Node) error {
	return s.add(ctx, core.NewQuad(stmt, core.Bind(c)))
}

func (s *Storage) add(ctx context.Context, q core.Quad) error {
	if err := s.ready(); err != nil {
		return err
	}
	if err := s.checkGround(q); err != nil {
		return err
	}
	return wrapIO(s.backend.Add(ctx, q))
}

// RemoveStatement deletes a ground statement stored without a context.
func (s *Storage) RemoveStatement(ctx context.Context, stmt core.Statement) error {
	return s.remove(ctx, core.NewQuad(stmt, core.Any))
}

// RemoveStatementInContext deletes a ground statement stored under context c.
func (s *Storage) RemoveStatementInContext(ctx context.Context, stmt core.Statement, c core.Node) error {
	return s.remove(ctx, core.NewQuad(stmt, core.Bind(c)))
}

func (s *Storage) remove(ctx context.Context, q core.Quad) error {
	if err := s.ready(); err != nil {
		return err
	}
	if err := s.checkGround(q); err != nil {
		return err
	}
	return wrapIO(s.backend.Remove(ctx, q))
}

// AddStatements consumes a stream of ground statements and returns how many
// were consumed. It is not atomic: it stops at the first failure, leaving
// earlier inserts in place. The stream is released on return.
func (s *Storage) AddStatements(ctx context.Context, stream *Stream) (int, error) {
	defer stream.Close()
	if err := s.ready(); err != nil {
		return 0, err
	}

	if bulk, ok := s.backend.(BulkAdder); ok {
		checked := NewStream(&checkedSource[core.Quad]{
			src:   streamSource{s: stream},
			check: s.checkGround,
		})
		defer checked.Close()
		n, err := bulk.AddStatements(ctx, checked)
		return n, wrapIO(err)
	}

	n := 0
	for q, err := range stream.All() {
		if err != nil {
			return n, err
		}
		if err := s.add(ctx, q); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

// Size returns the number of stored statements or SizeUnknown.
func (s *Storage) Size(ctx context.Context) (int, error) {
	if err := s.ready(); err != nil {
		return 0, err
	}
	n, err := s.backend.Size(ctx)
	if err != nil {
		return 0, wrapIO(err)
	}
	return n, nil
}

// ContainsStatement reports whether a ground statement is stored in any context.
func (s *Storage) ContainsStatement(ctx context.Context, stmt core.Statement) (bool, error) {
	return s.contains(ctx, core.NewQuad(stmt, core.Any))
}

// ContainsStatementInContext reports whether a ground statement is stored under context c.
func (s *Storage) ContainsStatementInContext(ctx context.Context, stmt core.Statement, c core.Node) (bool, error) {
	return s.contains(ctx, core.NewQuad(stmt, core.Bind(c)))
}

func (s *Storage) contains(ctx context.Context, q core.Quad) (bool, error) {
	if err := s.ready(); err != nil {
		return false, err
	}
	if err := s.checkGround(q); err != nil {
		return false, err
	}
	ok, err := s.backend.Contains(ctx, q)
	return ok, wrapIO(err)
}

// Serialise returns a Stream over the whole store.
func (s *Storage) Serialise(ctx context.Context) (*Stream, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	cur, err := s.backend.Serialise(ctx)
	if err != nil {
		return nil, wrapIO(err)
	}
	return s.attachStream(cur), nil
}

// FindStatements returns a Stream over the statements matching pattern in
// any context. Each result carries its stored context.
func (s *Storage) FindStatements(ctx context.Context, pattern core.Statement) (*Stream, error) {
	return s.find(ctx, core.NewQuad(pattern, core.Any))
}

// FindStatementsInContext returns a Stream over the statements matching
// pattern under context c.
func (s *Storage) FindStatementsInContext(ctx context.Context, pattern core.Statement, c core.Node) (*Stream, error) {
	return s.find(ctx, core.NewQuad(pattern, core.Bind(c)))
}

func (s *Storage) find(ctx context.Context, q core.Quad) (*Stream, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	if err := core.ValidatePattern(q.Statement); err != nil {
		return nil, err
	}
	if err := s.checkContext(q.Context); err != nil {
		return nil, err
	}
	cur, err := s.backend.Find(ctx, q)
	if err != nil {
		return nil, wrapIO(err)
	}
	return s.attachStream(cur), nil
}

// FindSources returns the distinct subjects of statements (?, arc, target).
func (s *Storage) FindSources(ctx context.Context, arc, target core.Node) (*Iterator, error) {
	return s.findNodes(ctx, core.RoleSubject, core.NewPattern(core.Any, core.Bind(arc), core.Bind(target)))
}

// FindArcs returns the distinct predicates of statements (source, ?, target).
func (s *Storage) FindArcs(ctx context.Context, source, target core.Node) (*Iterator, error) {
	return s.findNodes(ctx, core.RolePredicate, core.NewPattern(core.Bind(source), core.Any, core.Bind(target)))
}

// FindTargets returns the distinct objects of statements (source, arc, ?).
func (s *Storage) FindTargets(ctx context.Context, source, arc core.Node) (*Iterator, error) {
	return s.findNodes(ctx, core.RoleObject, core.NewPattern(core.Bind(source), core.Bind(arc), core.Any))
}

func (s *Storage) findNodes(ctx context.Context, role core.Role, pattern core.Statement) (*Iterator, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	if err := core.ValidatePattern(pattern); err != nil {
		return nil, err
	}
	q := core.NewQuad(pattern, core.Any)

	var src source[core.NodeMatch]
	if finder, ok := s.backend.(NodeFinder); ok {
		cur, err := finder.FindNodes(ctx, role, q)
		if err != nil {
			return nil, wrapIO(err)
		}
		src = cur
	} else {
		cur, err := s.backend.Find(ctx, q)
		if err != nil {
			return nil, wrapIO(err)
		}
		src = &mapSource[core.Quad, core.NodeMatch]{
			src: cur,
			fn: func(q core.Quad) core.NodeMatch {
				n, _ := q.Term(role).Node()
				return core.NodeMatch{Node: n, Context: q.Context}
			},
		}
	}
	if !s.opts.Contexts {
		src = &mapSource[core.NodeMatch, core.NodeMatch]{
			src: src,
			fn: func(m core.NodeMatch) core.NodeMatch {
				return core.NodeMatch{Node: m.Node}
			},
		}
	}

	it := &Iterator{c: cursor[core.NodeMatch]{src: newDistinct(src)}}
	s.track(it, &it.c.detach)
	return it, nil
}

func (s *Storage) attachStream(cur StatementCursor) *Stream {
	st := &Stream{c: cursor[core.Quad]{src: newDistinct[core.Quad](cur)}}
	s.track(st, &st.c.detach)
	return st
}

func (s *Storage) track(r releasable, detach *func()) {
	s.open[r] = struct{}{}
	*detach = func() {
		if s.open != nil {
			delete(s.open, r)
		}
	}
}
