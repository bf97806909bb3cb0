package graphstore

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/poiesic/graphstore/core"
	"github.com/poiesic/graphstore/ingestion"
	"github.com/poiesic/graphstore/nquads"
	"github.com/poiesic/graphstore/storage"
)

// Model is a named graph over one Storage. It builds statements from nodes
// and forwards them to the storage.
type Model struct {
	name    string
	storage *storage.Storage
	logger  *slog.Logger
}

var _ storage.Model = (*Model)(nil)

// Name returns the model name.
func (m *Model) Name() string {
	return m.name
}

// Storage returns the storage the model is opened on.
func (m *Model) Storage() *storage.Storage {
	return m.storage
}

// SupportsContexts reports whether statements may carry a context.
func (m *Model) SupportsContexts() bool {
	return m.storage.SupportsContexts()
}

// Close closes the underlying storage.
func (m *Model) Close() error {
	return m.storage.Close()
}

// Size returns the number of statements or storage.SizeUnknown.
func (m *Model) Size(ctx context.Context) (int, error) {
	return m.storage.Size(ctx)
}

func (m *Model) AddStatement(ctx context.Context, stmt core.Statement) error {
	return m.storage.AddStatement(ctx, stmt)
}

func (m *Model) AddStatementInContext(ctx context.Context, stmt core.Statement, c core.Node) error {
	return m.storage.AddStatementInContext(ctx, stmt, c)
}

// Add stores the statement (subject, predicate, object).
func (m *Model) Add(ctx context.Context, subject, predicate, object core.Node) error {
	return m.storage.AddStatement(ctx, core.NewStatement(subject, predicate, object))
}

// AddTypedLiteral stores a statement whose object is a literal with an
// optional language or datatype.
func (m *Model) AddTypedLiteral(ctx context.Context, subject, predicate core.Node, value, lang, datatype string) error {
	object := core.NewLiteral(value, lang)
	if datatype != "" {
		if lang != "" {
			return core.ErrLanguageAndDatatype
		}
		object = core.NewTypedLiteral(value, datatype)
	}
	return m.Add(ctx, subject, predicate, object)
}

// AddStatements stores every statement of a stream. See
// storage.Storage.AddStatements.
func (m *Model) AddStatements(ctx context.Context, stream *storage.Stream) (int, error) {
	return m.storage.AddStatements(ctx, stream)
}

func (m *Model) RemoveStatement(ctx context.Context, stmt core.Statement) error {
	return m.storage.RemoveStatement(ctx, stmt)
}

func (m *Model) RemoveStatementInContext(ctx context.Context, stmt core.Statement, c core.Node) error {
	return m.storage.RemoveStatementInContext(ctx, stmt, c)
}

func (m *Model) ContainsStatement(ctx context.Context, stmt core.Statement) (bool, error) {
	return m.storage.ContainsStatement(ctx, stmt)
}

func (m *Model) ContainsStatementInContext(ctx context.Context, stmt core.Statement, c core.Node) (bool, error) {
	return m.storage.ContainsStatementInContext(ctx, stmt, c)
}

func (m *Model) Serialise(ctx context.Context) (*storage.Stream, error) {
	return m.storage.Serialise(ctx)
}

func (m *Model) FindStatements(ctx context.Context, pattern core.Statement) (*storage.Stream, error) {
	return m.storage.FindStatements(ctx, pattern)
}

func (m *Model) FindStatementsInContext(ctx context.Context, pattern core.Statement, c core.Node) (*storage.Stream, error) {
	return m.storage.FindStatementsInContext(ctx, pattern, c)
}

// Sources returns the subjects of statements (?, arc, target).
func (m *Model) Sources(ctx context.Context, arc, target core.Node) (*storage.Iterator, error) {
	return m.storage.FindSources(ctx, arc, target)
}

// Arcs returns the predicates of statements (source, ?, target).
func (m *Model) Arcs(ctx context.Context, source, target core.Node) (*storage.Iterator, error) {
	return m.storage.FindArcs(ctx, source, target)
}

// Targets returns the objects of statements (source, arc, ?).
func (m *Model) Targets(ctx context.Context, source, arc core.Node) (*storage.Iterator, error) {
	return m.storage.FindTargets(ctx, source, arc)
}

// Source returns one subject of a statement (?, arc, target). ok is false
// when there is none.
func (m *Model) Source(ctx context.Context, arc, target core.Node) (core.Node, bool, error) {
	return first(m.Sources(ctx, arc, target))
}

// Arc returns one predicate of a statement (source, ?, target).
func (m *Model) Arc(ctx context.Context, source, target core.Node) (core.Node, bool, error) {
	return first(m.Arcs(ctx, source, target))
}

// Target returns one object of a statement (source, arc, ?).
func (m *Model) Target(ctx context.Context, source, arc core.Node) (core.Node, bool, error) {
	return first(m.Targets(ctx, source, arc))
}

func first(it *storage.Iterator, err error) (core.Node, bool, error) {
	if err != nil {
		return core.Node{}, false, err
	}
	defer it.Close()
	if it.End() {
		return core.Node{}, false, it.Err()
	}
	n, err := it.Node()
	return n, err == nil, err
}

// ArcsIn returns the predicates of statements whose object is node.
func (m *Model) ArcsIn(ctx context.Context, node core.Node) (*storage.Iterator, error) {
	return m.arcs(ctx, core.NewPattern(core.Any, core.Any, core.Bind(node)))
}

// ArcsOut returns the predicates of statements whose subject is node.
func (m *Model) ArcsOut(ctx context.Context, node core.Node) (*storage.Iterator, error) {
	return m.arcs(ctx, core.NewPattern(core.Bind(node), core.Any, core.Any))
}

func (m *Model) arcs(ctx context.Context, pattern core.Statement) (*storage.Iterator, error) {
	stream, err := m.storage.FindStatements(ctx, pattern)
	if err != nil {
		return nil, err
	}
	return storage.NewIterator(&arcCursor{
		stream:   stream,
		contexts: m.storage.SupportsContexts(),
		seen:     make(map[core.NodeMatch]struct{}),
	}), nil
}

// HasArcIn reports whether some statement (?, arc, node) exists.
func (m *Model) HasArcIn(ctx context.Context, node, arc core.Node) (bool, error) {
	return m.exists(ctx, core.NewPattern(core.Any, core.Bind(arc), core.Bind(node)))
}

// HasArcOut reports whether some statement (node, arc, ?) exists.
func (m *Model) HasArcOut(ctx context.Context, node, arc core.Node) (bool, error) {
	return m.exists(ctx, core.NewPattern(core.Bind(node), core.Bind(arc), core.Any))
}

func (m *Model) exists(ctx context.Context, pattern core.Statement) (bool, error) {
	stream, err := m.storage.FindStatements(ctx, pattern)
	if err != nil {
		return false, err
	}
	defer stream.Close()
	found := !stream.End()
	return found, stream.Err()
}

// Serialize writes the whole model to w and returns the number of
// statements written.
func (m *Model) Serialize(ctx context.Context, w io.Writer, format nquads.Format) (int, error) {
	stream, err := m.storage.Serialise(ctx)
	if err != nil {
		return 0, err
	}
	enc := nquads.NewWriter(w, format)
	n, err := enc.WriteStream(stream)
	return n, errors.Join(err, enc.Flush())
}

// Parse reads N-Triples or N-Quads from r into the model.
func (m *Model) Parse(ctx context.Context, r io.Reader, format nquads.Format) (int, error) {
	n, err := m.storage.AddStatements(ctx, storage.NewStream(nquads.NewReader(r, format)))
	if err != nil {
		m.logger.Debug("parse stopped", "stored", n, "err", err)
	}
	return n, err
}

// NewIngestionPipeline creates a pipeline that loads sources into the model.
func (m *Model) NewIngestionPipeline(opts ...ingestion.Option) (*ingestion.Pipeline, error) {
	return ingestion.NewPipeline(m.storage, opts...)
}

// arcCursor reduces a statement stream to its distinct predicates.
type arcCursor struct {
	stream   *storage.Stream
	contexts bool
	seen     map[core.NodeMatch]struct{}
}

func (c *arcCursor) Next() (core.NodeMatch, error) {
	for !c.stream.End() {
		q, err := c.stream.Quad()
		c.stream.Advance()
		if err != nil {
			return core.NodeMatch{}, err
		}
		p, _ := q.Predicate.Node()
		match := core.NodeMatch{Node: p}
		if c.contexts {
			match.Context = q.Context
		}
		if _, ok := c.seen[match]; ok {
			continue
		}
		c.seen[match] = struct{}{}
		return match, nil
	}
	if err := c.stream.Err(); err != nil {
		return core.NodeMatch{}, err
	}
	return core.NodeMatch{}, io.EOF
}

func (c *arcCursor) Close() error {
	c.seen = nil
	return c.stream.Close()
}
