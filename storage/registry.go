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
	"fmt"
	"log/slog"

	"github.com/poiesic/graphstore/core"
)

// Factory binds a backend name to its constructor.
type Factory struct {
	Name        string
	Description string
	New         Constructor
}

// Registry maps backend names to factories. A Registry is owned by one
// session value and is populated during startup, before any Storage is
// constructed from it. It is not safe for concurrent registration.
type Registry struct {
	factories map[string]*Factory
	order     []string
	closed    bool
	logger    *slog.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]*Factory),
		logger:    slog.Default().With("component", "storage-registry"),
	}
}

// Register adds a factory. Names are unique within a registry.
func (r *Registry) Register(name, description string, ctor Constructor) error {
	if r.closed {
		return ErrRegistryClosed
	}
	if name == "" {
		return fmt.Errorf("%w: factory name cannot be empty", core.ErrInvalidArgument)
	}
	if ctor == nil {
		return fmt.Errorf("%w: factory %q has no constructor", core.ErrInvalidArgument, name)
	}
	if _, ok := r.factories[name]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateName, name)
	}
	r.factories[name] = &Factory{Name: name, Description: description, New: ctor}
	r.order = append(r.order, name)
	r.logger.Debug("registered storage factory", "name", name)
	return nil
}

// Resolve returns the factory registered under name.
func (r *Registry) Resolve(name string) (*Factory, error) {
	if r.closed {
		return nil, ErrRegistryClosed
	}
	f, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrFactoryNotFound, name)
	}
	return f, nil
}

// Names lists the registered names in registration order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}

// Factories lists the registered factories in registration order.
func (r *Registry) Factories() []*Factory {
	fs := make([]*Factory, 0, len(r.order))
	for _, name := range r.order {
		fs = append(fs, r.factories[name])
	}
	return fs
}

// Close tears the registry down and releases all records. Closing twice is a no-op.
func (r *Registry) Close() {
	if r.closed {
		return
	}
	r.closed = true
	r.factories = nil
	r.order = nil
}
