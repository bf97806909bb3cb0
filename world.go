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

// Package graphstore is the session layer of the graph store: a World owns
// the storage factory registry and a Model is the graph a Storage is opened
// against.
package graphstore

import (
	"context"
	"errors"
	"log/slog"

	"github.com/poiesic/graphstore/storage"
	"github.com/poiesic/graphstore/storage/badger"
	"github.com/poiesic/graphstore/storage/memory"
	"github.com/poiesic/graphstore/storage/sqlite"
)

// ErrWorldClosed is returned by a World used after Close.
var ErrWorldClosed = errors.New("world is closed")

// World is one storage session. It is created once at startup, owns the
// factory registry and is torn down once at shutdown.
type World struct {
	registry *storage.Registry
	logger   *slog.Logger
	closed   bool
}

// WorldOption configures a World.
type WorldOption func(*worldOptions)

type worldOptions struct {
	builtins bool
	logger   *slog.Logger
}

// WithoutBuiltins leaves the registry empty instead of registering the
// memory, hashes and sqlite factories.
func WithoutBuiltins() WorldOption {
	return func(o *worldOptions) {
		o.builtins = false
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) WorldOption {
	return func(o *worldOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// NewWorld creates a World and registers the built-in storage factories.
func NewWorld(opts ...WorldOption) (*World, error) {
	options := &worldOptions{
		builtins: true,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(options)
	}

	w := &World{
		registry: storage.NewRegistry(),
		logger:   options.logger.With("component", "world"),
	}
	if options.builtins {
		builtins := []storage.Factory{
			{Name: memory.Name, Description: memory.Description, New: memory.New},
			{Name: badger.Name, Description: badger.Description, New: badger.New},
			{Name: sqlite.Name, Description: sqlite.Description, New: sqlite.New},
		}
		for _, f := range builtins {
			if err := w.registry.Register(f.Name, f.Description, f.New); err != nil {
				w.registry.Close()
				return nil, err
			}
		}
	}
	return w, nil
}

// Registry returns the factory registry owned by the World.
func (w *World) Registry() *storage.Registry {
	return w.registry
}

// RegisterStorage adds a storage factory. Factories must be registered
// before storages are constructed from them.
func (w *World) RegisterStorage(name, description string, ctor storage.Constructor) error {
	if w.closed {
		return ErrWorldClosed
	}
	return w.registry.Register(name, description, ctor)
}

// StorageNames lists the registered factory names in registration order.
func (w *World) StorageNames() []string {
	return w.registry.Names()
}

// NewStorage constructs a storage from a registered factory. An empty name
// selects storage.DefaultName.
func (w *World) NewStorage(ctx context.Context, name string, opts storage.Options) (*storage.Storage, error) {
	if w.closed {
		return nil, ErrWorldClosed
	}
	st, err := storage.New(ctx, w.registry, name, opts)
	if err != nil {
		w.logger.Debug("storage construction failed", "name", name, "err", err)
		return nil, err
	}
	return st, nil
}

// ParseStorage constructs a storage from an option string such as
// "hash-type='disk',dir='.',contexts='yes'". identifier names the store.
func (w *World) ParseStorage(ctx context.Context, name, identifier, options string) (*storage.Storage, error) {
	opts, err := storage.ParseOptions(options)
	opts.Identifier = identifier
	if err != nil {
		w.logger.Debug("storage options rejected", "name", name, "options", options, "err", err)
		return nil, &storage.ConstructError{Name: name, Options: opts, Err: err}
	}
	return w.NewStorage(ctx, name, opts)
}

// NewModel opens st against a new Model. The Model owns the storage from
// then on; closing the Model closes it.
func (w *World) NewModel(ctx context.Context, name string, st *storage.Storage) (*Model, error) {
	if w.closed {
		return nil, ErrWorldClosed
	}
	m := &Model{name: name, storage: st, logger: w.logger.With("model", name)}
	if err := st.Open(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

// Close tears down the registry. Storages must be closed first.
func (w *World) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	w.registry.Close()
	return nil
}
