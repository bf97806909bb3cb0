package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/poiesic/graphstore"
	"github.com/poiesic/graphstore/core"
	"github.com/poiesic/graphstore/ingestion"
	"github.com/poiesic/graphstore/nquads"
	"github.com/poiesic/graphstore/storage"
)

// env is what a command runs against.
type env struct {
	ctx   context.Context
	model *graphstore.Model
	out   io.Writer
	err   io.Writer
}

func (e *env) printf(format string, args ...any) {
	fmt.Fprintf(e.out, program+": "+format+"\n", args...)
}

func (e *env) warnf(format string, args ...any) {
	fmt.Fprintf(e.err, program+": "+format+"\n", args...)
}

type command struct {
	name    string
	usage   string
	minArgs int
	maxArgs int
	write   bool
	run     func(e *env, args []string) error
}

var commands = []command{
	{"print", "", 0, 0, false, printCommand},
	{"serialize", "[FORMAT]", 0, 1, false, serializeCommand},
	{"parse", "FILE...", 1, 1 << 16, true, parseCommand},
	{"parse-stream", "FILE [FORMAT]", 1, 2, true, parseStreamCommand},
	{"contains", "SUBJECT PREDICATE OBJECT", 3, 3, false, containsCommand},
	{"find", "SUBJECT|- PREDICATE|- OBJECT|- [CONTEXT]", 3, 4, false, findCommand},
	{"add", "SUBJECT PREDICATE OBJECT [CONTEXT]", 3, 4, true, addCommand},
	{"add-typed", "SUBJECT PREDICATE VALUE LANG|- DATATYPE|- [CONTEXT]", 5, 6, true, addTypedCommand},
	{"remove", "SUBJECT PREDICATE OBJECT [CONTEXT]", 3, 4, true, removeCommand},
	{"sources", "ARC TARGET", 2, 2, false, nodesCommand(sources)},
	{"arcs", "SOURCE TARGET", 2, 2, false, nodesCommand(arcs)},
	{"targets", "SOURCE ARC", 2, 2, false, nodesCommand(targets)},
	{"source", "ARC TARGET", 2, 2, false, nodeCommand(sources)},
	{"arc", "SOURCE TARGET", 2, 2, false, nodeCommand(arcs)},
	{"target", "SOURCE ARC", 2, 2, false, nodeCommand(targets)},
	{"arcs-in", "NODE", 1, 1, false, arcsCommand(true)},
	{"arcs-out", "NODE", 1, 1, false, arcsCommand(false)},
	{"has-arc-in", "NODE ARC", 2, 2, false, hasArcCommand(true)},
	{"has-arc-out", "NODE ARC", 2, 2, false, hasArcCommand(false)},
}

func lookupCommand(name string) (command, bool) {
	for _, c := range commands {
		if c.name == name {
			return c, true
		}
	}
	return command{}, false
}

func commandHelp() string {
	var b strings.Builder
	for _, c := range commands {
		fmt.Fprintf(&b, "  %-13s %s\n", c.name, c.usage)
	}
	return b.String()
}

// parseResource reads a subject, predicate or context argument.
func parseResource(arg string) (core.Node, error) {
	var n core.Node
	switch {
	case strings.HasPrefix(arg, "_:"):
		n = core.NewBlank(arg[2:])
	case strings.HasPrefix(arg, "<") && strings.HasSuffix(arg, ">"):
		n = core.NewURI(arg[1 : len(arg)-1])
	default:
		n = core.NewURI(arg)
	}
	return n, core.ValidateNode(n)
}

// parseObject reads an object argument. Anything that does not look like a
// URI is a plain literal.
func parseObject(arg string) (core.Node, error) {
	if strings.HasPrefix(arg, "_:") || strings.HasPrefix(arg, "<") || looksLikeURI(arg) {
		return parseResource(arg)
	}
	n := core.NewLiteral(arg, "")
	return n, core.ValidateNode(n)
}

// looksLikeURI reports whether s starts with a scheme followed by ':' and
// contains no whitespace.
func looksLikeURI(s string) bool {
	if strings.ContainsAny(s, " \t\n\r") {
		return false
	}
	colon := strings.IndexByte(s, ':')
	if colon < 1 || colon == len(s)-1 {
		return false
	}
	for i := 0; i < colon; i++ {
		c := s[i]
		isAlpha := c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
		if i == 0 && !isAlpha {
			return false
		}
		if !isAlpha && !(c >= '0' && c <= '9') && c != '+' && c != '-' && c != '.' {
			return false
		}
	}
	return true
}

// term reads a find argument where "-" is a wildcard.
func term(arg string, parse func(string) (core.Node, error)) (core.Term, error) {
	if arg == "-" {
		return core.Any, nil
	}
	n, err := parse(arg)
	if err != nil {
		return core.Any, err
	}
	return core.Bind(n), nil
}

func statement(args []string) (core.Statement, error) {
	s, err := parseResource(args[0])
	if err != nil {
		return core.Statement{}, fmt.Errorf("subject: %w", err)
	}
	p, err := parseResource(args[1])
	if err != nil {
		return core.Statement{}, fmt.Errorf("predicate: %w", err)
	}
	o, err := parseObject(args[2])
	if err != nil {
		return core.Statement{}, fmt.Errorf("object: %w", err)
	}
	return core.NewStatement(s, p, o), nil
}

// contextArg returns the optional context argument at index i. A context on
// a store without contexts is dropped with a warning.
func (e *env) contextArg(args []string, i int) (core.Node, bool, error) {
	if len(args) <= i {
		return core.Node{}, false, nil
	}
	c, err := parseResource(args[i])
	if err != nil {
		return core.Node{}, false, fmt.Errorf("context: %w", err)
	}
	if !e.model.SupportsContexts() {
		e.warnf("WARNING: ignoring context %s, contexts are not enabled (-c)", c)
		return core.Node{}, false, nil
	}
	return c, true, nil
}

func printCommand(e *env, _ []string) error {
	stream, err := e.model.Serialise(e.ctx)
	if err != nil {
		return err
	}
	n, err := e.model.Size(e.ctx)
	if err != nil {
		stream.Close()
		return err
	}
	size := "unknown"
	if n != storage.SizeUnknown {
		size = fmt.Sprint(n)
	}
	fmt.Fprintf(e.out, "Model %s with %s statements:\n", e.model.Name(), size)
	for q, err := range stream.All() {
		if err != nil {
			return err
		}
		fmt.Fprintf(e.out, "  %s\n", q)
	}
	return nil
}

func serializeCommand(e *env, args []string) error {
	format := nquads.FormatNTriples
	if e.model.SupportsContexts() {
		format = nquads.FormatNQuads
	}
	if len(args) == 1 && args[0] != "-" {
		f, err := nquads.ParseFormat(args[0])
		if err != nil {
			return err
		}
		format = f
	}
	n, err := e.model.Serialize(e.ctx, e.out, format)
	if err != nil {
		return err
	}
	e.warnf("serialized %d statements as %s", n, format)
	return nil
}

func parseCommand(e *env, args []string) error {
	sources := make([]ingestion.Source, 0, len(args))
	for _, path := range args {
		e.printf("Parsing file %s with %s parser", path, nquads.FormatForPath(path))
		sources = append(sources, ingestion.FileSource(path))
	}

	pipeline, err := e.model.NewIngestionPipeline(ingestion.WithProgress(e.err, 10000))
	if err != nil {
		return err
	}
	defer pipeline.Release()

	n, err := pipeline.Ingest(e.ctx, sources...)
	e.warnf("Added %d triples", n)
	if err != nil {
		return fmt.Errorf("failed to parse into model: %w", err)
	}
	return nil
}

func parseStreamCommand(e *env, args []string) error {
	path := args[0]
	format := nquads.FormatForPath(path)
	if len(args) == 2 && args[1] != "-" {
		f, err := nquads.ParseFormat(args[1])
		if err != nil {
			return err
		}
		format = f
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	e.printf("Parsing file %s with %s parser", path, format)
	n, err := e.model.Parse(e.ctx, f, format)
	e.warnf("Added %d triples", n)
	if err != nil {
		return fmt.Errorf("failed to parse as stream: %w", err)
	}
	return nil
}

func containsCommand(e *env, args []string) error {
	stmt, err := statement(args)
	if err != nil {
		return err
	}
	ok, err := e.model.ContainsStatement(e.ctx, stmt)
	if err != nil {
		return err
	}
	if ok {
		e.printf("the model contains the triple")
	} else {
		e.printf("the model does not contain the triple")
	}
	return nil
}

func findCommand(e *env, args []string) error {
	s, err := term(args[0], parseResource)
	if err != nil {
		return fmt.Errorf("subject: %w", err)
	}
	p, err := term(args[1], parseResource)
	if err != nil {
		return fmt.Errorf("predicate: %w", err)
	}
	o, err := term(args[2], parseObject)
	if err != nil {
		return fmt.Errorf("object: %w", err)
	}
	pattern := core.NewPattern(s, p, o)

	var stream *storage.Stream
	if c, ok, cerr := e.contextArg(args, 3); cerr != nil {
		return cerr
	} else if ok {
		stream, err = e.model.FindStatementsInContext(e.ctx, pattern, c)
	} else {
		stream, err = e.model.FindStatements(e.ctx, pattern)
	}
	if err != nil {
		return err
	}

	count := 0
	for q, err := range stream.All() {
		if err != nil {
			return err
		}
		line := "Matched triple: " + q.Statement.String()
		if c, ok := q.Context.Node(); ok {
			line += " with context " + c.String()
		}
		fmt.Fprintln(e.out, line)
		count++
	}
	e.warnf("matching triples: %d", count)
	return nil
}

func addCommand(e *env, args []string) error {
	stmt, err := statement(args)
	if err != nil {
		return err
	}
	return e.add(stmt, args, 3)
}

func addTypedCommand(e *env, args []string) error {
	s, err := parseResource(args[0])
	if err != nil {
		return fmt.Errorf("subject: %w", err)
	}
	p, err := parseResource(args[1])
	if err != nil {
		return fmt.Errorf("predicate: %w", err)
	}
	var lang, datatype string
	if args[3] != "-" {
		lang = args[3]
	}
	if args[4] != "-" {
		datatype = strings.TrimSuffix(strings.TrimPrefix(args[4], "<"), ">")
	}
	object := core.NewLiteral(args[2], lang)
	if datatype != "" {
		if lang != "" {
			return core.ErrLanguageAndDatatype
		}
		object = core.NewTypedLiteral(args[2], datatype)
	}
	return e.add(core.NewStatement(s, p, object), args, 5)
}

func (e *env) add(stmt core.Statement, args []string, contextIndex int) error {
	c, ok, err := e.contextArg(args, contextIndex)
	if err != nil {
		return err
	}
	if ok {
		err = e.model.AddStatementInContext(e.ctx, stmt, c)
	} else {
		err = e.model.AddStatement(e.ctx, stmt)
	}
	if err != nil {
		e.printf("failed to add triple to model")
		return err
	}
	e.printf("added triple to model")
	return nil
}

func removeCommand(e *env, args []string) error {
	stmt, err := statement(args)
	if err != nil {
		return err
	}
	c, ok, err := e.contextArg(args, 3)
	if err != nil {
		return err
	}
	if ok {
		err = e.model.RemoveStatementInContext(e.ctx, stmt, c)
	} else {
		err = e.model.RemoveStatement(e.ctx, stmt)
	}
	if err != nil {
		e.printf("failed to remove triple from model")
		return err
	}
	e.printf("removed triple from model")
	return nil
}

// nodeQuery is one of the sources, arcs or targets queries. The second
// argument is an object except for targets.
type nodeQuery struct {
	run            func(e *env, a, b core.Node) (*storage.Iterator, error)
	secondIsObject bool
}

var (
	sources = nodeQuery{
		run: func(e *env, arc, target core.Node) (*storage.Iterator, error) {
			return e.model.Sources(e.ctx, arc, target)
		},
		secondIsObject: true,
	}
	arcs = nodeQuery{
		run: func(e *env, source, target core.Node) (*storage.Iterator, error) {
			return e.model.Arcs(e.ctx, source, target)
		},
		secondIsObject: true,
	}
	targets = nodeQuery{
		run: func(e *env, source, arc core.Node) (*storage.Iterator, error) {
			return e.model.Targets(e.ctx, source, arc)
		},
	}
)

func (q nodeQuery) exec(e *env, args []string) (*storage.Iterator, error) {
	a, err := parseResource(args[0])
	if err != nil {
		return nil, err
	}
	parseSecond := parseResource
	if q.secondIsObject {
		parseSecond = parseObject
	}
	b, err := parseSecond(args[1])
	if err != nil {
		return nil, err
	}
	return q.run(e, a, b)
}

func printNodes(e *env, label string, it *storage.Iterator) error {
	count := 0
	for m, err := range it.All() {
		if err != nil {
			return err
		}
		line := "Matched " + label + ": " + m.Node.String()
		if c, ok := m.Context.Node(); ok {
			line += " with context " + c.String()
		}
		fmt.Fprintln(e.out, line)
		count++
	}
	e.warnf("matching %ss: %d", label, count)
	return nil
}

func nodesCommand(q nodeQuery) func(*env, []string) error {
	return func(e *env, args []string) error {
		it, err := q.exec(e, args)
		if err != nil {
			return err
		}
		return printNodes(e, "node", it)
	}
}

var errNoMatch = errors.New("no matching node")

func nodeCommand(q nodeQuery) func(*env, []string) error {
	return func(e *env, args []string) error {
		it, err := q.exec(e, args)
		if err != nil {
			return err
		}
		defer it.Close()
		if it.End() {
			if err := it.Err(); err != nil {
				return err
			}
			return errNoMatch
		}
		n, err := it.Node()
		if err != nil {
			return err
		}
		fmt.Fprintln(e.out, "Matched node: "+n.String())
		return nil
	}
}

// nodeArg reads the node of an arcs-in or has-arc-in query, which may be a
// literal, or of an arcs-out or has-arc-out query, which may not.
func nodeArg(arg string, in bool) (core.Node, error) {
	if in {
		return parseObject(arg)
	}
	return parseResource(arg)
}

func arcsCommand(in bool) func(*env, []string) error {
	return func(e *env, args []string) error {
		n, err := nodeArg(args[0], in)
		if err != nil {
			return err
		}
		var it *storage.Iterator
		if in {
			it, err = e.model.ArcsIn(e.ctx, n)
		} else {
			it, err = e.model.ArcsOut(e.ctx, n)
		}
		if err != nil {
			return err
		}
		return printNodes(e, "arc", it)
	}
}

func hasArcCommand(in bool) func(*env, []string) error {
	return func(e *env, args []string) error {
		n, err := nodeArg(args[0], in)
		if err != nil {
			return err
		}
		arc, err := parseResource(args[1])
		if err != nil {
			return err
		}
		var ok bool
		if in {
			ok, err = e.model.HasArcIn(e.ctx, n, arc)
		} else {
			ok, err = e.model.HasArcOut(e.ctx, n, arc)
		}
		if err != nil {
			return err
		}
		if ok {
			e.printf("the model contains the arc")
		} else {
			e.printf("the model does not contain the arc")
		}
		return nil
	}
}
