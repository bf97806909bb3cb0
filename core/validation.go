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

import (
	"fmt"
)

// ValidateNode validates a Node according to domain rules.
//
// Validation rules:
//   - Node must not be empty
//   - URI nodes must have a non-empty URI
//   - Blank nodes must have a non-empty identifier
//   - Literals must not carry both a language tag and a datatype
//
// NOT validated:
//   - URI syntax (nodes are trusted as canonical)
//   - Literal lexical form (the empty string is a valid literal)
func ValidateNode(n Node) error {
	switch n.kind {
	case KindURI:
		if n.value == "" {
			return fmt.Errorf("%w: %w", ErrInvalidArgument, ErrEmptyURI)
		}
	case KindBlank:
		if n.value == "" {
			return fmt.Errorf("%w: %w", ErrInvalidArgument, ErrEmptyBlankID)
		}
	case KindLiteral:
		if n.lang != "" && n.datatype != "" {
			return fmt.Errorf("%w: %w", ErrInvalidArgument, ErrLanguageAndDatatype)
		}
	default:
		return fmt.Errorf("%w: %w", ErrInvalidArgument, ErrEmptyNode)
	}
	return nil
}

// ValidatePattern validates every bound slot of a pattern. Wildcards are allowed.
func ValidatePattern(s Statement) error {
	for _, r := range []Role{RoleSubject, RolePredicate, RoleObject} {
		t := s.Term(r)
		if !t.bound {
			continue
		}
		if err := ValidateNode(t.node); err != nil {
			return fmt.Errorf("%s: %w", r, err)
		}
	}
	return nil
}

// ValidateGround validates a statement used for mutation or an existence test.
// Every slot must be bound to a valid node.
func ValidateGround(s Statement) error {
	for _, r := range []Role{RoleSubject, RolePredicate, RoleObject} {
		if !s.Term(r).bound {
			return fmt.Errorf("%w: %s is a wildcard", ErrInvalidPattern, r)
		}
	}
	return ValidatePattern(s)
}

// ValidateContext validates an optional context. A wildcard is allowed.
func ValidateContext(t Term) error {
	if !t.bound {
		return nil
	}
	if err := ValidateNode(t.node); err != nil {
		return fmt.Errorf("context: %w", err)
	}
	return nil
}
