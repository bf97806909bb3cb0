package core

import (
	"testing"
)

func TestIDFromNode(t *testing.T) {
	tests := []struct {
		name string
		node Node
	}{
		{
			name: "uri",
			node: NewURI("http://example.org/a"),
		},
		{
			name: "blank",
			node: NewBlank("b0"),
		},
		{
			name: "empty literal",
			node: NewLiteral("", ""),
		},
		{
			name: "typed literal",
			node: NewTypedLiteral("42", "http://www.w3.org/2001/XMLSchema#integer"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id1 := IDFromNode(tt.node)
			id2 := IDFromNode(tt.node)

			if id1 != id2 {
				t.Errorf("IDFromNode() produced different IDs for same node: %d vs %d", id1, id2)
			}
		})
	}
}

func TestIDFromNode_Different(t *testing.T) {
	// Same text, different kinds
	uri := NewURI("x")
	blank := NewBlank("x")
	literal := NewLiteral("x", "")

	if IDFromNode(uri) == IDFromNode(blank) || IDFromNode(uri) == IDFromNode(literal) || IDFromNode(blank) == IDFromNode(literal) {
		t.Errorf("IDFromNode() produced same ID for nodes of different kinds")
	}
}

func TestNode_Key(t *testing.T) {
	// A literal whose value ends like a language tag must not collide with a tagged literal.
	a := NewNode(KindLiteral, "a1:b", "", "")
	b := NewNode(KindLiteral, "a", "b", "")
	if a.Key() == b.Key() {
		t.Fatalf("Key() collision: %q", a.Key())
	}
}

func TestNode_Equality(t *testing.T) {
	if NewURI("http://example.org/a") != NewURI("http://example.org/a") {
		t.Error("equal URIs should compare equal")
	}
	if NewLiteral("v", "EN") != NewLiteral("v", "en") {
		t.Error("language tags should be case-normalised")
	}
	if NewLiteral("v", "") == NewTypedLiteral("v", "http://www.w3.org/2001/XMLSchema#string") {
		t.Error("plain and typed literal should differ")
	}
	if !(Node{}).IsZero() {
		t.Error("zero node should be empty")
	}
}

func TestNode_String(t *testing.T) {
	tests := []struct {
		name string
		node Node
		want string
	}{
		{"uri", NewURI("http://example.org/a"), "<http://example.org/a>"},
		{"blank", NewBlank("b1"), "_:b1"},
		{"plain literal", NewLiteral("v", ""), `"v"`},
		{"language literal", NewLiteral("chat", "fr"), `"chat"@fr`},
		{"typed literal", NewTypedLiteral("1", "http://www.w3.org/2001/XMLSchema#int"), `"1"^^<http://www.w3.org/2001/XMLSchema#int>`},
		{"escaped literal", NewLiteral("a\"b\n", ""), `"a\"b\n"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.node.String(); got != tt.want {
				t.Errorf("Node.String() = %v, want %v", got, tt.want)
			}
		})
	}
}
