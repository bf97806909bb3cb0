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


package core

import "errors"

// Domain validation errors
var (
	// ErrInvalidPattern indicates a wildcard slot where a ground value is required,
	// e.g. in a mutating call.
	ErrInvalidPattern = errors.New("invalid pattern")

	// ErrInvalidArgument indicates an empty or malformed Node where a value is required.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrEmptyNode indicates the zero Node was supplied.
	ErrEmptyNode = errors.New("node is empty")

	// ErrEmptyURI indicates a URI node with an empty string.
	ErrEmptyURI = errors.New("uri cannot be empty")

	// ErrEmptyBlankID indicates a blank node with an empty identifier.
	ErrEmptyBlankID = errors.New("blank node identifier cannot be empty")

	// ErrLanguageAndDatatype indicates a literal carrying both a language tag and a datatype.
	ErrLanguageAndDatatype = errors.New("literal cannot have both language and datatype")
)
