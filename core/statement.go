package core

import "strings"

// Term is one slot of a Statement: either bound to a Node or a wildcard.
// Wildcard and the empty Node are distinct; Bind(Node{}) is a bound slot
// holding an invalid value.
type Term struct {
	node  Node
	bound bool
}

// Any is the wildcard Term.
var Any = Term{}

// Bind returns a Term bound to n.
func Bind(n Node) Term {
	return Term{node: n, bound: true}
}

// Node returns the bound node and true, or the zero Node and false for a wildcard.
func (t Term) Node() (Node, bool) {
	return t.node, t.bound
}

// IsBound reports whether the term holds a value.
func (t Term) IsBound() bool { return t.bound }

// IsWildcard reports whether the term is unbound.
func (t Term) IsWildcard() bool { return !t.bound }

// Matches reports whether a stored term satisfies this pattern term.
// A wildcard matches everything; a bound term matches only an equal bound term.
func (t Term) Matches(stored Term) bool {
	if !t.bound {
		return true
	}
	return stored.bound && t.node == stored.node
}

// String renders the node, or "?" for a wildcard.
func (t Term) String() string {
	if !t.bound {
		return "?"
	}
	return t.node.String()
}

// Statement is a (subject, predicate, object) triple. Each slot may be a wildcard;
// a statement with all slots bound is ground.
type Statement struct {
	Subject   Term
	Predicate Term
	Object    Term
}

// NewStatement creates a ground statement.
func NewStatement(subject, predicate, object Node) Statement {
	return Statement{Subject: Bind(subject), Predicate: Bind(predicate), Object: Bind(object)}
}

// NewPattern creates a statement pattern from terms.
func NewPattern(subject, predicate, object Term) Statement {
	return Statement{Subject: subject, Predicate: predicate, Object: object}
}

// IsGround reports whether every slot is bound.
func (s Statement) IsGround() bool {
	return s.Subject.bound && s.Predicate.bound && s.Object.bound
}

// Matches reports whether the stored statement satisfies this pattern.
func (s Statement) Matches(stored Statement) bool {
	return s.Subject.Matches(stored.Subject) &&
		s.Predicate.Matches(stored.Predicate) &&
		s.Object.Matches(stored.Object)
}

// String renders the statement as "{subject, predicate, object}".
func (s Statement) String() string {
	return "{" + s.Subject.String() + ", " + s.Predicate.String() + ", " + s.Object.String() + "}"
}

// Quad is a statement with an optional context. For stored facts an unbound
// Context means "no context"; in a query it means "any context".
type Quad struct {
	Statement
	Context Term
}

// NewQuad creates a quad from a statement and an optional context.
func NewQuad(s Statement, context Term) Quad {
	return Quad{Statement: s, Context: context}
}

// Matches reports whether the stored quad satisfies this pattern. The context
// is compared only when the pattern binds it.
func (q Quad) Matches(stored Quad) bool {
	return q.Statement.Matches(stored.Statement) && q.Context.Matches(stored.Context)
}

// String renders the quad, appending the context when present.
func (q Quad) String() string {
	if !q.Context.bound {
		return q.Statement.String()
	}
	var b strings.Builder
	b.WriteString(q.Statement.String())
	b.WriteString(" with context ")
	b.WriteString(q.Context.node.String())
	return b.String()
}

// Role names a position within a statement.
type Role int

const (
	RoleSubject Role = iota
	RolePredicate
	RoleObject
)

// String returns the role name.
func (r Role) String() string {
	switch r {
	case RoleSubject:
		return "subject"
	case RolePredicate:
		return "predicate"
	case RoleObject:
		return "object"
	default:
		return "unknown"
	}
}

// Term returns the slot of s occupying role r.
func (s Statement) Term(r Role) Term {
	switch r {
	case RoleSubject:
		return s.Subject
	case RolePredicate:
		return s.Predicate
	default:
		return s.Object
	}
}

// NodeMatch is a node produced by a node query, tagged with the context of the
// statement it came from.
type NodeMatch struct {
	Node    Node
	Context Term
}
