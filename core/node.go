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
	"encoding/binary"
	"strconv"
	"strings"

	"github.com/go-crypt/x/blake2b"
)

// ID is a content-derived identifier for a Node.
type ID uint64

// Kind identifies the type of a Node.
type Kind uint8

const (
	// KindURI represents a URI reference.
	KindURI Kind = iota + 1
	// KindBlank represents a blank node.
	KindBlank
	// KindLiteral represents a literal value.
	KindLiteral
)

// String returns the lowercase name of the kind.
func (k Kind) String() string {
	switch k {
	case KindURI:
		return "uri"
	case KindBlank:
		return "blank"
	case KindLiteral:
		return "literal"
	default:
		return "unknown"
	}
}

// Node is an immutable graph vertex: a URI, a blank node or a literal.
// Nodes are comparable with == and may be used as map keys.
// The zero Node is empty and is never a valid value.
type Node struct {
	kind     Kind
	value    string // URI string, blank identifier or literal lexical form
	lang     string
	datatype string
}

// NewURI creates a URI node.
func NewURI(uri string) Node {
	return Node{kind: KindURI, value: uri}
}

// NewBlank creates a blank node with the given identifier.
func NewBlank(id string) Node {
	return Node{kind: KindBlank, value: id}
}

// NewLiteral creates a plain literal with an optional language tag.
func NewLiteral(value, lang string) Node {
	return Node{kind: KindLiteral, value: value, lang: strings.ToLower(lang)}
}

// NewTypedLiteral creates a literal with a datatype URI.
func NewTypedLiteral(value, datatype string) Node {
	return Node{kind: KindLiteral, value: value, datatype: datatype}
}

// NewNode assembles a node from its parts. It is used by decoders and
// performs no validation.
func NewNode(kind Kind, value, lang, datatype string) Node {
	return Node{kind: kind, value: value, lang: lang, datatype: datatype}
}

func (n Node) Kind() Kind { return n.kind }
func (n Node) Value() string { return n.value }
func (n Node) Lang() string { return n.lang }
func (n Node) Datatype() string { return n.datatype }
func (n Node) IsZero() bool { return n == Node{} }
func (n Node) IsURI() bool { return n.kind == KindURI }
func (n Node) IsBlank() bool { return n.kind == KindBlank }
func (n Node) IsLiteral() bool { return n.kind == KindLiteral }
func (n Node) Equal(o Node) bool { return n == o }

// String renders the node in N-Triples syntax.
func (n Node) String() string {
	switch n.kind {
	case KindURI:
		return "<" + n.value + ">"
	case KindBlank:
		return "_:" + n.value
	case KindLiteral:
		var b strings.Builder
		b.WriteString(strconv.Quote(n.value))
		if n.lang != "" {
			b.WriteString("@")
			b.WriteString(n.lang)
		} else if n.datatype != "" {
			b.WriteString("^^<")
			b.WriteString(n.datatype)
			b.WriteString(">")
		}
		return b.String()
	default:
		return "(empty)"
	}
}

// Key returns a canonical string that uniquely identifies the node.
// Distinct nodes always produce distinct keys.
func (n Node) Key() string {
	var b strings.Builder
	b.Grow(len(n.value) + len(n.lang) + len(n.datatype) + 8)
	b.WriteByte(byte('0' + n.kind))
	b.WriteString(strconv.Itoa(len(n.value)))
	b.WriteByte(':')
	b.WriteString(n.value)
	b.WriteString(strconv.Itoa(len(n.lang)))
	b.WriteByte(':')
	b.WriteString(n.lang)
	b.WriteString(n.datatype)
	return b.String()
}

// IDFromNode derives a deterministic 64-bit ID from a node using BLAKE2b hashing.
// Identical nodes always produce identical IDs.
func IDFromNode(n Node) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(n.Key()))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}
