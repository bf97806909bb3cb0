package storage

import (
	"testing"

	"github.com/poiesic/graphstore/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalUnmarshalNode(t *testing.T) {
	tests := []struct {
		name string
		node core.Node
	}{
		{"uri", core.NewURI("http://example.org/a")},
		{"blank", core.NewBlank("b0")},
		{"plain literal", core.NewLiteral("hello", "")},
		{"empty literal", core.NewLiteral("", "")},
		{"language literal", core.NewLiteral("bonjour", "fr")},
		{"typed literal", core.NewTypedLiteral("42", "http://www.w3.org/2001/XMLSchema#integer")},
		{"unicode", core.NewLiteral("日本語 é", "ja")},
		{"empty node", core.Node{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := MarshalNode(tt.node)
			require.NotEmpty(t, data)

			decoded, err := UnmarshalNode(data)
			require.NoError(t, err)
			assert.Equal(t, tt.node, decoded)
		})
	}
}

func TestUnmarshalNode_Invalid(t *testing.T) {
	valid := MarshalNode(core.NewURI("http://example.org/a"))

	tests := []struct {
		name string
		data []byte
	}{
		{"empty data", []byte{}},
		{"truncated", valid[:len(valid)-3]},
		{"trailing bytes", append(append([]byte{}, valid...), 0x01)},
		{"unknown kind", append([]byte{0x09}, valid[1:]...)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := UnmarshalNode(tt.data)
			assert.ErrorIs(t, err, ErrSerializationFailed)
		})
	}
}

func TestMarshalUnmarshalQuad(t *testing.T) {
	a := core.NewURI("http://example.org/a")
	p := core.NewURI("http://example.org/p")
	v := core.NewLiteral("v", "en")
	c := core.NewBlank("g")

	tests := []struct {
		name string
		quad core.Quad
	}{
		{"triple", core.NewQuad(core.NewStatement(a, p, v), core.Any)},
		{"quad", core.NewQuad(core.NewStatement(a, p, v), core.Bind(c))},
		{"pattern", core.NewQuad(core.NewPattern(core.Any, core.Bind(p), core.Any), core.Any)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decoded, err := UnmarshalQuad(MarshalQuad(tt.quad))
			require.NoError(t, err)
			assert.Equal(t, tt.quad, decoded)
		})
	}
}

func TestMarshalNode_Canonical(t *testing.T) {
	// equal nodes encode identically, so encodings can be compared as keys
	a := MarshalNode(core.NewLiteral("x", "EN"))
	b := MarshalNode(core.NewLiteral("x", "en"))
	assert.Equal(t, a, b)
	assert.NotEqual(t, MarshalNode(core.NewURI("x")), MarshalNode(core.NewBlank("x")))
}
