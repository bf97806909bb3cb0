package nquads

import (
	"errors"
	"fmt"

	"github.com/cayleygraph/quad"
	"github.com/poiesic/graphstore/core"
)

var (
	errMissingTerm = errors.New("missing term")
	errNotResource = errors.New("expected an IRI or blank node")
	errNotIRI      = errors.New("expected an IRI")
)

// fromQuad converts a parsed quad, checking the term kinds each position
// allows.
func fromQuad(pq quad.Quad) (core.Quad, error) {
	s, err := resource(pq.Subject, "subject")
	if err != nil {
		return core.Quad{}, err
	}
	p, err := toNode(pq.Predicate)
	if err != nil {
		return core.Quad{}, fmt.Errorf("predicate: %w", err)
	}
	if !p.IsURI() {
		return core.Quad{}, fmt.Errorf("predicate: %w", errNotIRI)
	}
	if err := core.ValidateNode(p); err != nil {
		return core.Quad{}, fmt.Errorf("predicate: %w", err)
	}
	o, err := toNode(pq.Object)
	if err != nil {
		return core.Quad{}, fmt.Errorf("object: %w", err)
	}
	if err := core.ValidateNode(o); err != nil {
		return core.Quad{}, fmt.Errorf("object: %w", err)
	}

	c := core.Any
	if pq.Label != nil {
		g, err := resource(pq.Label, "graph")
		if err != nil {
			return core.Quad{}, err
		}
		c = core.Bind(g)
	}
	return core.NewQuad(core.NewStatement(s, p, o), c), nil
}

func resource(v quad.Value, role string) (core.Node, error) {
	n, err := toNode(v)
	if err != nil {
		return core.Node{}, fmt.Errorf("%s: %w", role, err)
	}
	if n.IsLiteral() {
		return core.Node{}, fmt.Errorf("%s: %w", role, errNotResource)
	}
	if err := core.ValidateNode(n); err != nil {
		return core.Node{}, fmt.Errorf("%s: %w", role, err)
	}
	return n, nil
}

// toNode converts a parser value. Native values such as quad.Int come back
// as typed literals in their canonical lexical form.
func toNode(v quad.Value) (core.Node, error) {
	switch v := v.(type) {
	case nil:
		return core.Node{}, errMissingTerm
	case quad.IRI:
		return core.NewURI(string(v)), nil
	case quad.BNode:
		return core.NewBlank(string(v)), nil
	case quad.String:
		return core.NewLiteral(string(v), ""), nil
	case quad.LangString:
		return core.NewLiteral(string(v.Value), v.Lang), nil
	case quad.TypedString:
		return core.NewTypedLiteral(string(v.Value), string(v.Type)), nil
	case quad.TypedStringer:
		ts := v.TypedString()
		return core.NewTypedLiteral(string(ts.Value), string(ts.Type)), nil
	}
	return core.Node{}, fmt.Errorf("unsupported term %T", v)
}

// toValue converts a node for the encoder. The empty node has no value.
func toValue(n core.Node) quad.Value {
	switch n.Kind() {
	case core.KindURI:
		return quad.IRI(n.Value())
	case core.KindBlank:
		return quad.BNode(n.Value())
	case core.KindLiteral:
		switch {
		case n.Lang() != "":
			return quad.LangString{Value: quad.String(n.Value()), Lang: n.Lang()}
		case n.Datatype() != "":
			return quad.TypedString{Value: quad.String(n.Value()), Type: quad.IRI(n.Datatype())}
		}
		return quad.String(n.Value())
	}
	return nil
}
