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
	"slices"
	"strings"
)

// Cross-backend option keys.
const (
	OptionContexts = "contexts"
	OptionWrite    = "write"
	OptionNew      = "new"
)

// Options configures storage construction. Contexts, Write and New are the
// cross-backend options; Extra holds backend-specific keys verbatim.
type Options struct {
	// Contexts enables quad mode.
	Contexts bool
	// Write opens the store for mutation.
	Write bool
	// New creates or truncates a fresh store.
	New bool
	// Identifier names the store; backends use it to build file paths.
	Identifier string
	// Extra holds backend-specific options.
	Extra map[string]string
}

// Get returns a backend-specific option.
func (o Options) Get(key string) (string, bool) {
	v, ok := o.Extra[key]
	return v, ok
}

// GetDefault returns a backend-specific option or def when it is unset.
func (o Options) GetDefault(key, def string) string {
	if v, ok := o.Extra[key]; ok {
		return v
	}
	return def
}

// Bool reads a backend-specific boolean option.
func (o Options) Bool(key string, def bool) (bool, error) {
	v, ok := o.Extra[key]
	if !ok {
		return def, nil
	}
	return parseBool(key, v)
}

// Set returns a copy of o with a backend-specific option set.
func (o Options) Set(key, value string) Options {
	extra := make(map[string]string, len(o.Extra)+1)
	for k, v := range o.Extra {
		extra[k] = v
	}
	extra[key] = value
	o.Extra = extra
	return o
}

// String renders the options in option-string syntax. The output is
// deterministic and parses back to the same Options, minus Identifier.
func (o Options) String() string {
	var parts []string
	if o.Contexts {
		parts = append(parts, OptionContexts+"='yes'")
	}
	if o.Write {
		parts = append(parts, OptionWrite+"='yes'")
	}
	if o.New {
		parts = append(parts, OptionNew+"='yes'")
	}
	keys := make([]string, 0, len(o.Extra))
	for k := range o.Extra {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		parts = append(parts, k+"='"+o.Extra[k]+"'")
	}
	return strings.Join(parts, ",")
}

// ParseOptions parses a flat option string of the form
//
//	hash-type='disk',dir='.',contexts='yes',new
//
// Values may be single- or double-quoted or bare. A key without a value
// means "yes". Booleans accept yes/no/true/false/1/0.
func ParseOptions(s string) (Options, error) {
	var opts Options
	pairs, err := splitOptions(s)
	if err != nil {
		return Options{}, err
	}
	for _, p := range pairs {
		switch p.key {
		case OptionContexts, OptionWrite, OptionNew:
			b, err := parseBool(p.key, p.value)
			if err != nil {
				return Options{}, err
			}
			switch p.key {
			case OptionContexts:
				opts.Contexts = b
			case OptionWrite:
				opts.Write = b
			case OptionNew:
				opts.New = b
			}
		default:
			if opts.Extra == nil {
				opts.Extra = make(map[string]string)
			}
			opts.Extra[p.key] = p.value
		}
	}
	return opts, nil
}

type optionPair struct {
	key, value string
}

func splitOptions(s string) ([]optionPair, error) {
	var pairs []optionPair
	i := 0
	for i < len(s) {
		// skip separators and whitespace
		for i < len(s) && (s[i] == ',' || s[i] == ' ' || s[i] == '\t') {
			i++
		}
		if i >= len(s) {
			break
		}

		start := i
		for i < len(s) && isKeyChar(s[i]) {
			i++
		}
		key := s[start:i]
		if key == "" {
			return nil, fmt.Errorf("%w: unexpected %q at offset %d", ErrInvalidOption, s[i], i)
		}
		for i < len(s) && s[i] == ' ' {
			i++
		}

		if i >= len(s) || s[i] == ',' {
			pairs = append(pairs, optionPair{key: key, value: "yes"})
			continue
		}
		if s[i] != '=' {
			return nil, fmt.Errorf("%w: expected '=' after %q", ErrInvalidOption, key)
		}
		i++
		for i < len(s) && s[i] == ' ' {
			i++
		}

		var value string
		if i < len(s) && (s[i] == '\'' || s[i] == '"') {
			quote := s[i]
			end := strings.IndexByte(s[i+1:], quote)
			if end < 0 {
				return nil, fmt.Errorf("%w: unterminated quote in value of %q", ErrInvalidOption, key)
			}
			value = s[i+1 : i+1+end]
			i += end + 2
		} else {
			start = i
			for i < len(s) && s[i] != ',' {
				i++
			}
			value = strings.TrimSpace(s[start:i])
		}

		for i < len(s) && s[i] == ' ' {
			i++
		}
		if i < len(s) && s[i] != ',' {
			return nil, fmt.Errorf("%w: unexpected %q after value of %q", ErrInvalidOption, s[i], key)
		}
		pairs = append(pairs, optionPair{key: key, value: value})
	}
	return pairs, nil
}

func isKeyChar(c byte) bool {
	return c == '-' || c == '_' || c == '.' ||
		(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

func parseBool(key, v string) (bool, error) {
	switch strings.ToLower(v) {
	case "yes", "true", "1":
		return true, nil
	case "no", "false", "0":
		return false, nil
	default:
		return false, fmt.Errorf("%w: %s='%s' is not a boolean", ErrInvalidOption, key, v)
	}
}
