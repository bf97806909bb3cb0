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
	"errors"
	"fmt"

	"github.com/poiesic/graphstore/core"
)

var (
	// ErrConfiguration indicates a bad option or an unknown factory name.
	ErrConfiguration = errors.New("configuration error")

	// ErrFactoryNotFound indicates no factory is registered under the requested name.
	ErrFactoryNotFound = fmt.Errorf("%w: storage factory not found", ErrConfiguration)

	// ErrInvalidOption indicates a malformed option string or option value.
	ErrInvalidOption = fmt.Errorf("%w: invalid option", ErrConfiguration)

	// ErrContextsDisabled indicates a context was supplied to a storage
	// constructed without the contexts option.
	ErrContextsDisabled = fmt.Errorf("%w: contexts not enabled", ErrConfiguration)

	// ErrNotOpen indicates an operation on a storage that has not been opened.
	ErrNotOpen = errors.New("storage not open")

	// ErrAlreadyOpen indicates a second Open on the same storage.
	ErrAlreadyOpen = errors.New("storage already open")

	// ErrClosed indicates that the storage has been closed.
	ErrClosed = errors.New("storage is closed")

	// ErrReadOnly indicates a mutation on a storage opened without the write option.
	ErrReadOnly = errors.New("storage is read-only")

	// ErrDuplicateName indicates a factory name is already registered.
	ErrDuplicateName = errors.New("duplicate factory name")

	// ErrRegistryClosed indicates use of a registry after teardown.
	ErrRegistryClosed = errors.New("registry is closed")

	// ErrIO wraps an opaque backend failure.
	ErrIO = errors.New("storage i/o error")

	// ErrInput marks a failure of a caller-supplied cursor, such as a
	// syntax error from a parser feeding AddStatements.
	ErrInput = errors.New("invalid input")

	// ErrCursorEnd indicates the current item of a cursor was read outside the Active state.
	ErrCursorEnd = errors.New("cursor at end")

	// ErrSerializationFailed indicates a serialization/deserialization failure.
	ErrSerializationFailed = errors.New("serialization failed")
)

// ErrorCode is a stable classification of an error for diagnostics.
type ErrorCode string

const (
	CodeOK               ErrorCode = "ok"
	CodeConfiguration    ErrorCode = "configuration"
	CodeFactoryNotFound  ErrorCode = "factory_not_found"
	CodeContextsDisabled ErrorCode = "contexts_disabled"
	CodeNotOpen          ErrorCode = "not_open"
	CodeAlreadyOpen      ErrorCode = "already_open"
	CodeClosed           ErrorCode = "closed"
	CodeReadOnly         ErrorCode = "read_only"
	CodeInvalidPattern   ErrorCode = "invalid_pattern"
	CodeInvalidArgument  ErrorCode = "invalid_argument"
	CodeDuplicateName    ErrorCode = "duplicate_name"
	CodeRegistryClosed   ErrorCode = "registry_closed"
	CodeCursorEnd        ErrorCode = "cursor_end"
	CodeInput            ErrorCode = "input"
	CodeIO               ErrorCode = "io"
)

// ordered most specific first
var errorCodes = []struct {
	err  error
	code ErrorCode
}{
	{ErrFactoryNotFound, CodeFactoryNotFound},
	{ErrContextsDisabled, CodeContextsDisabled},
	{ErrConfiguration, CodeConfiguration},
	{ErrNotOpen, CodeNotOpen},
	{ErrAlreadyOpen, CodeAlreadyOpen},
	{ErrClosed, CodeClosed},
	{ErrReadOnly, CodeReadOnly},
	{core.ErrInvalidPattern, CodeInvalidPattern},
	{core.ErrInvalidArgument, CodeInvalidArgument},
	{ErrDuplicateName, CodeDuplicateName},
	{ErrRegistryClosed, CodeRegistryClosed},
	{ErrCursorEnd, CodeCursorEnd},
	{ErrInput, CodeInput},
}

// Code classifies err. Errors outside the taxonomy are reported as CodeIO.
func Code(err error) ErrorCode {
	if err == nil {
		return CodeOK
	}
	for _, c := range errorCodes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return CodeIO
}

// wrapIO passes taxonomy errors through and wraps anything else as ErrIO.
func wrapIO(err error) error {
	if err == nil || errors.Is(err, ErrIO) {
		return err
	}
	if Code(err) != CodeIO {
		return err
	}
	return fmt.Errorf("%w: %w", ErrIO, err)
}

// wrapInput classifies a failure of a caller-supplied cursor as ErrInput.
// Taxonomy errors, already wrapped backend errors and context errors pass
// through.
func wrapInput(err error) error {
	if err == nil || errors.Is(err, ErrIO) || Code(err) != CodeIO {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrInput, err)
}

// ConstructError reports a failed storage construction with the attempted
// factory name and options.
type ConstructError struct {
	Name    string
	Options Options
	Err     error
}

func (e *ConstructError) Error() string {
	return fmt.Sprintf("construct storage %q with options %q: %v", e.Name, e.Options.String(), e.Err)
}

func (e *ConstructError) Unwrap() error {
	return e.Err
}
