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

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/varint"
	"github.com/poiesic/graphstore/core"
)

// NodeMUS is the MUS serializer for core.Node.
// Layout: kind (varint), value, lang, datatype (length-prefixed strings).
var NodeMUS = nodeMUS{}

type nodeMUS struct{}

func (nodeMUS) Marshal(n core.Node, bs []byte) (sz int) {
	sz = varint.Uint8.Marshal(uint8(n.Kind()), bs)
	sz += ord.String.Marshal(n.Value(), bs[sz:])
	sz += ord.String.Marshal(n.Lang(), bs[sz:])
	return sz + ord.String.Marshal(n.Datatype(), bs[sz:])
}

func (nodeMUS) Unmarshal(bs []byte) (n core.Node, sz int, err error) {
	kind, sz, err := varint.Uint8.Unmarshal(bs)
	if err != nil {
		return
	}
	if core.Kind(kind) > core.KindLiteral {
		err = fmt.Errorf("unknown node kind %d", kind)
		return
	}
	var (
		value, lang, datatype string
		n1                    int
	)
	value, n1, err = ord.String.Unmarshal(bs[sz:])
	sz += n1
	if err != nil {
		return
	}
	lang, n1, err = ord.String.Unmarshal(bs[sz:])
	sz += n1
	if err != nil {
		return
	}
	datatype, n1, err = ord.String.Unmarshal(bs[sz:])
	sz += n1
	if err != nil {
		return
	}
	n = core.NewNode(core.Kind(kind), value, lang, datatype)
	return
}

func (nodeMUS) Size(n core.Node) (sz int) {
	sz = varint.Uint8.Size(uint8(n.Kind()))
	sz += ord.String.Size(n.Value())
	sz += ord.String.Size(n.Lang())
	return sz + ord.String.Size(n.Datatype())
}

// QuadMUS is the MUS serializer for core.Quad. Wildcard slots are encoded
// as an absent flag followed by nothing.
var QuadMUS = quadMUS{}

type quadMUS struct{}

func (quadMUS) Marshal(q core.Quad, bs []byte) (sz int) {
	for _, t := range quadTerms(q) {
		sz += termMarshal(t, bs[sz:])
	}
	return sz
}

func (quadMUS) Unmarshal(bs []byte) (q core.Quad, sz int, err error) {
	var terms [4]core.Term
	for i := range terms {
		var n1 int
		terms[i], n1, err = termUnmarshal(bs[sz:])
		sz += n1
		if err != nil {
			return
		}
	}
	q = core.NewQuad(core.NewPattern(terms[0], terms[1], terms[2]), terms[3])
	return
}

func (quadMUS) Size(q core.Quad) (sz int) {
	for _, t := range quadTerms(q) {
		sz += termSize(t)
	}
	return sz
}

func quadTerms(q core.Quad) [4]core.Term {
	return [4]core.Term{q.Subject, q.Predicate, q.Object, q.Context}
}

func termMarshal(t core.Term, bs []byte) (sz int) {
	n, ok := t.Node()
	sz = ord.Bool.Marshal(ok, bs)
	if ok {
		sz += NodeMUS.Marshal(n, bs[sz:])
	}
	return sz
}

func termUnmarshal(bs []byte) (t core.Term, sz int, err error) {
	ok, sz, err := ord.Bool.Unmarshal(bs)
	if err != nil || !ok {
		return
	}
	n, n1, err := NodeMUS.Unmarshal(bs[sz:])
	sz += n1
	if err != nil {
		return
	}
	t = core.Bind(n)
	return
}

func termSize(t core.Term) int {
	n, ok := t.Node()
	sz := ord.Bool.Size(ok)
	if ok {
		sz += NodeMUS.Size(n)
	}
	return sz
}

// MarshalNode serializes a Node to bytes.
func MarshalNode(n core.Node) []byte {
	buf := make([]byte, NodeMUS.Size(n))
	NodeMUS.Marshal(n, buf)
	return buf
}

// UnmarshalNode deserializes a Node from bytes.
func UnmarshalNode(data []byte) (core.Node, error) {
	n, sz, err := NodeMUS.Unmarshal(data)
	if err != nil {
		return core.Node{}, fmt.Errorf("%w: node: %w", ErrSerializationFailed, err)
	}
	if sz != len(data) {
		return core.Node{}, fmt.Errorf("%w: node: %d trailing bytes", ErrSerializationFailed, len(data)-sz)
	}
	return n, nil
}

// MarshalQuad serializes a Quad to bytes.
func MarshalQuad(q core.Quad) []byte {
	buf := make([]byte, QuadMUS.Size(q))
	QuadMUS.Marshal(q, buf)
	return buf
}

// UnmarshalQuad deserializes a Quad from bytes.
func UnmarshalQuad(data []byte) (core.Quad, error) {
	q, sz, err := QuadMUS.Unmarshal(data)
	if err != nil {
		return core.Quad{}, fmt.Errorf("%w: quad: %w", ErrSerializationFailed, err)
	}
	if sz != len(data) {
		return core.Quad{}, fmt.Errorf("%w: quad: %d trailing bytes", ErrSerializationFailed, len(data)-sz)
	}
	return q, nil
}
