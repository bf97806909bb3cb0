// Package sqlite provides a storage backend on SQLite through database/sql.
//
// Nodes are stored as their canonical binary encoding in BLOB columns of a
// single statements table whose primary key enforces set semantics. Query
// results are read in full when a cursor is created, which gives cursors
// snapshot semantics.
//
// Backend-specific options:
//
//	dir   directory holding the database file (default ".")
//	file  database file name, or ":memory:" (default identifier + ".db")
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
	"github.com/poiesic/graphstore/core"
	"github.com/poiesic/graphstore/storage"
)

//go:embed schema.sql
var schemaSQL string

// Name is the factory name of the sqlite backend.
const Name = "sqlite"

// Description is the factory description of the sqlite backend.
const Description = "SQLite database storage"

const (
	optionDir  = "dir"
	optionFile = "file"

	memoryFile        = ":memory:"
	defaultIdentifier = "graphstore"
)

// columns in role order
var columns = [3]string{"subject", "predicate", "object"}

// noContext is the stored value of an absent context. It must be non-nil so
// it binds as an empty blob rather than NULL.
var noContext = []byte{}

// Backend stores statements in a SQLite database.
type Backend struct {
	db     *sql.DB
	path   string
	write  bool
	fresh  bool
	logger *slog.Logger
}

var (
	_ storage.Backend    = (*Backend)(nil)
	_ storage.BulkAdder  = (*Backend)(nil)
	_ storage.NodeFinder = (*Backend)(nil)
)

// New creates a sqlite backend from options. It implements storage.Constructor.
// The database is opened by Open.
func New(_ context.Context, opts storage.Options) (storage.Backend, error) {
	path := opts.GetDefault(optionFile, "")
	if path == "" {
		identifier := opts.Identifier
		if identifier == "" {
			identifier = defaultIdentifier
		}
		path = identifier + ".db"
	}
	if path != memoryFile && !filepath.IsAbs(path) {
		path = filepath.Join(opts.GetDefault(optionDir, "."), path)
	}
	return &Backend{
		path:   path,
		write:  opts.Write || opts.New,
		fresh:  opts.New,
		logger: slog.Default().With("component", "sqlite-backend"),
	}, nil
}

// Path returns the database file path or ":memory:".
func (b *Backend) Path() string {
	return b.path
}

func (b *Backend) Open(ctx context.Context, model storage.Model) error {
	var dsn string
	if b.path == memoryFile {
		dsn = memoryFile
	} else {
		if err := os.MkdirAll(filepath.Dir(b.path), 0755); err != nil {
			return fmt.Errorf("create database directory: %w", err)
		}
		dsn = "file:" + b.path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	// one connection: an in-memory database lives on its connection
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return fmt.Errorf("ping database: %w", err)
	}
	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		db.Close()
		return fmt.Errorf("execute schema: %w", err)
	}
	if b.fresh {
		if _, err := db.ExecContext(ctx, "DELETE FROM statements"); err != nil {
			db.Close()
			return fmt.Errorf("truncate: %w", err)
		}
	}

	b.db = db
	b.logger.Debug("opened", "model", model.Name(), "path", b.path)
	return nil
}

func (b *Backend) Close() error {
	if b.db == nil {
		return nil
	}
	db := b.db
	b.db = nil
	return db.Close()
}

func (b *Backend) Size(ctx context.Context) (int, error) {
	var n int
	err := b.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM statements").Scan(&n)
	return n, err
}

// row returns the column values of a ground quad.
func row(q core.Quad) []any {
	args := make([]any, 0, 4)
	for _, r := range []core.Role{core.RoleSubject, core.RolePredicate, core.RoleObject} {
		n, _ := q.Term(r).Node()
		args = append(args, storage.MarshalNode(n))
	}
	return append(args, contextValue(q.Context))
}

func contextValue(t core.Term) []byte {
	if n, ok := t.Node(); ok {
		return storage.MarshalNode(n)
	}
	return noContext
}

const (
	insertSQL = "INSERT OR IGNORE INTO statements (subject, predicate, object, context) VALUES (?, ?, ?, ?)"
	deleteSQL = "DELETE FROM statements WHERE subject = ? AND predicate = ? AND object = ? AND context = ?"
)

func (b *Backend) Add(ctx context.Context, q core.Quad) error {
	if !b.write {
		return storage.ErrReadOnly
	}
	_, err := b.db.ExecContext(ctx, insertSQL, row(q)...)
	return err
}

func (b *Backend) Remove(ctx context.Context, q core.Quad) error {
	if !b.write {
		return storage.ErrReadOnly
	}
	_, err := b.db.ExecContext(ctx, deleteSQL, row(q)...)
	return err
}

// AddStatements inserts a stream inside one transaction. Rows inserted
// before a failure are committed.
func (b *Backend) AddStatements(ctx context.Context, stream *storage.Stream) (n int, err error) {
	if !b.write {
		return 0, storage.ErrReadOnly
	}
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() {
		if cerr := tx.Commit(); err == nil {
			err = cerr
		}
	}()

	stmt, err := tx.PrepareContext(ctx, insertSQL)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	for q, err := range stream.All() {
		if err != nil {
			return n, err
		}
		if _, err := stmt.ExecContext(ctx, row(q)...); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

// where builds the WHERE clause for the bound slots of a pattern.
func where(q core.Quad) (string, []any) {
	var (
		conds []string
		args  []any
	)
	for r, col := range columns {
		if n, ok := q.Term(core.Role(r)).Node(); ok {
			conds = append(conds, col+" = ?")
			args = append(args, storage.MarshalNode(n))
		}
	}
	if q.Context.IsBound() {
		conds = append(conds, "context = ?")
		args = append(args, contextValue(q.Context))
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (b *Backend) Contains(ctx context.Context, q core.Quad) (bool, error) {
	clause, args := where(q)
	var one int
	err := b.db.QueryRowContext(ctx, "SELECT 1 FROM statements"+clause+" LIMIT 1", args...).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

func (b *Backend) Serialise(ctx context.Context) (storage.StatementCursor, error) {
	return b.Find(ctx, core.NewQuad(core.NewPattern(core.Any, core.Any, core.Any), core.Any))
}

func (b *Backend) Find(ctx context.Context, pattern core.Quad) (storage.StatementCursor, error) {
	clause, args := where(pattern)
	rows, err := b.db.QueryContext(ctx, "SELECT subject, predicate, object, context FROM statements"+clause, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var quads []core.Quad
	for rows.Next() {
		var s, p, o, c []byte
		if err := rows.Scan(&s, &p, &o, &c); err != nil {
			return nil, err
		}
		q, err := decodeQuad(s, p, o, c)
		if err != nil {
			return nil, err
		}
		quads = append(quads, q)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &quadCursor{items: quads}, nil
}

func (b *Backend) FindNodes(ctx context.Context, role core.Role, q core.Quad) (storage.NodeCursor, error) {
	clause, args := where(q)
	rows, err := b.db.QueryContext(ctx, "SELECT DISTINCT "+columns[role]+", context FROM statements"+clause, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var matches []core.NodeMatch
	for rows.Next() {
		var n, c []byte
		if err := rows.Scan(&n, &c); err != nil {
			return nil, err
		}
		node, err := storage.UnmarshalNode(n)
		if err != nil {
			return nil, err
		}
		ctxTerm, err := decodeContext(c)
		if err != nil {
			return nil, err
		}
		matches = append(matches, core.NodeMatch{Node: node, Context: ctxTerm})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &nodeCursor{items: matches}, nil
}

func decodeQuad(s, p, o, c []byte) (core.Quad, error) {
	var nodes [3]core.Node
	for i, data := range [][]byte{s, p, o} {
		n, err := storage.UnmarshalNode(data)
		if err != nil {
			return core.Quad{}, err
		}
		nodes[i] = n
	}
	ctxTerm, err := decodeContext(c)
	if err != nil {
		return core.Quad{}, err
	}
	return core.NewQuad(core.NewStatement(nodes[0], nodes[1], nodes[2]), ctxTerm), nil
}

func decodeContext(c []byte) (core.Term, error) {
	if len(c) == 0 {
		return core.Any, nil
	}
	n, err := storage.UnmarshalNode(c)
	if err != nil {
		return core.Any, err
	}
	return core.Bind(n), nil
}

type quadCursor struct {
	items []core.Quad
	pos   int
}

func (c *quadCursor) Next() (core.Quad, error) {
	if c.pos >= len(c.items) {
		return core.Quad{}, io.EOF
	}
	q := c.items[c.pos]
	c.pos++
	return q, nil
}

func (c *quadCursor) Close() error {
	c.items = nil
	return nil
}

type nodeCursor struct {
	items []core.NodeMatch
	pos   int
}

func (c *nodeCursor) Next() (core.NodeMatch, error) {
	if c.pos >= len(c.items) {
		return core.NodeMatch{}, io.EOF
	}
	m := c.items[c.pos]
	c.pos++
	return m, nil
}

func (c *nodeCursor) Close() error {
	c.items = nil
	return nil
}
