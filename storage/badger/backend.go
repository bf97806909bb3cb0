// Package badger provides the "hashes" storage backend on top of BadgerDB.
//
// Statements are stored under three index permutations (SPOC, POSC, OSPC)
// keyed by BLAKE2b content IDs of their nodes, so any pattern with at least
// one bound slot is answered by a prefix scan. Cursors run inside a Badger
// read transaction and therefore see a snapshot of the store taken when the
// query was made.
//
// Backend-specific options:
//
//	hash-type  "disk" (default) or "memory"
//	dir        directory holding the store (default ".")
//
// The store directory is dir joined with the storage identifier.
package badger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/poiesic/graphstore/core"
	"github.com/poiesic/graphstore/storage"
)

// Name is the factory name of the badger backend.
const Name = "hashes"

// Description is the factory description of the badger backend.
const Description = "Indexed key/value storage on BadgerDB, on disk or in memory"

const (
	optionHashType = "hash-type"
	optionDir      = "dir"

	hashTypeDisk   = "disk"
	hashTypeMemory = "memory"

	defaultIdentifier = "graphstore"
)

// ErrIDCollision indicates two distinct nodes hashed to the same content ID.
var ErrIDCollision = errors.New("node id collision")

// Backend wraps a BadgerDB instance and implements storage.Backend.
type Backend struct {
	db       *badger.DB
	path     string
	inMemory bool
	write    bool
	fresh    bool
	logger   *slog.Logger
}

var (
	_ storage.Backend   = (*Backend)(nil)
	_ storage.BulkAdder = (*Backend)(nil)
)

// badgerLoggerAdapter adapts slog.Logger to badger.Logger interface.
type badgerLoggerAdapter struct {
	logger *slog.Logger
}

var _ badger.Logger = (*badgerLoggerAdapter)(nil)

func (bl *badgerLoggerAdapter) Errorf(msg string, items ...any) {
	bl.logger.Error(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Warningf(msg string, items ...any) {
	bl.logger.Warn(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Infof(msg string, items ...any) {
	bl.logger.Debug(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Debugf(msg string, items ...any) {
	bl.logger.Debug(fmt.Sprintf(msg, items...))
}

// New creates a hashes backend from options. It implements storage.Constructor.
// The database is opened by Open.
func New(_ context.Context, opts storage.Options) (storage.Backend, error) {
	b := &Backend{
		write:  opts.Write || opts.New,
		fresh:  opts.New,
		logger: slog.Default().With("component", "badger-backend"),
	}

	switch hashType := opts.GetDefault(optionHashType, hashTypeDisk); hashType {
	case hashTypeMemory:
		b.inMemory = true
	case hashTypeDisk, "bdb":
		identifier := opts.Identifier
		if identifier == "" {
			identifier = defaultIdentifier
		}
		b.path = filepath.Join(opts.GetDefault(optionDir, "."), identifier)
	default:
		return nil, fmt.Errorf("%w: %s='%s'", storage.ErrInvalidOption, optionHashType, hashType)
	}
	return b, nil
}

// openDB opens a BadgerDB database at the specified path.
// Creates the directory if it doesn't exist.
func openDB(filePath string, inMemory bool, logger *slog.Logger) (*badger.DB, error) {
	var opts badger.Options

	if inMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		// Ensure directory exists
		info, err := os.Stat(filePath)
		if err != nil {
			if os.IsNotExist(err) {
				if err := os.MkdirAll(filePath, 0755); err != nil {
					return nil, err
				}
				info, err = os.Stat(filePath)
				if err != nil {
					return nil, err
				}
			} else {
				return nil, err
			}
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("%s is not a directory", filePath)
		}
		opts = badger.DefaultOptions(filePath)
	}

	opts.Logger = &badgerLoggerAdapter{logger: logger}
	opts.Compression = options.None

	return badger.Open(opts)
}

func (b *Backend) Open(_ context.Context, model storage.Model) error {
	db, err := openDB(b.path, b.inMemory, b.logger)
	if err != nil {
		return err
	}
	if b.fresh {
		if err := db.DropAll(); err != nil {
			db.Close()
			return err
		}
	}
	b.db = db
	b.logger.Debug("opened", "model", model.Name(), "path", b.path, "in_memory", b.inMemory)
	return nil
}

// Close closes the BadgerDB database.
func (b *Backend) Close() error {
	if b.db == nil {
		return nil
	}
	db := b.db
	b.db = nil
	return db.Close()
}

// IsClosed returns true if the database is not open.
func (b *Backend) IsClosed() bool {
	return b.db == nil || b.db.IsClosed()
}

// Path returns the store directory, or "" for an in-memory store.
func (b *Backend) Path() string {
	return b.path
}

// withTx executes a function within a BadgerDB transaction.
// If isWrite is true, creates a read-write transaction and commits it when fn succeeds.
// The transaction is automatically discarded if fn returns an error.
func (b *Backend) withTx(fn func(tx *badger.Txn) error, isWrite bool) error {
	tx := b.db.NewTransaction(isWrite)
	defer tx.Discard()
	if err := fn(tx); err != nil {
		return err
	}
	if isWrite {
		return tx.Commit()
	}
	return nil
}

func (b *Backend) Size(context.Context) (int, error) {
	count := 0
	err := b.withTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(spocPrefix)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			count++
		}
		return nil
	}, false)
	return count, err
}

// lookup returns the stored quad under the exact key of q, if any.
// A stored quad with the same key but different nodes is an ID collision.
func lookup(tx *badger.Txn, key []byte, q core.Quad) (bool, error) {
	item, err := tx.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	var stored core.Quad
	err = item.Value(func(val []byte) error {
		var err error
		stored, err = storage.UnmarshalQuad(val)
		return err
	})
	if err != nil {
		return false, err
	}
	if stored != q {
		return false, fmt.Errorf("%w: %s and %s", ErrIDCollision, stored, q)
	}
	return true, nil
}

func addTx(tx *badger.Txn, q core.Quad) error {
	ids := idsOf(q)
	found, err := lookup(tx, spoc.makeKey(ids), q)
	if err != nil || found {
		return err
	}
	val := storage.MarshalQuad(q)
	for _, ix := range indexes {
		if err := tx.Set(ix.makeKey(ids), val); err != nil {
			return err
		}
	}
	return nil
}

func (b *Backend) Add(_ context.Context, q core.Quad) error {
	if !b.write {
		return storage.ErrReadOnly
	}
	return b.withTx(func(tx *badger.Txn) error {
		return addTx(tx, q)
	}, true)
}

func (b *Backend) Remove(_ context.Context, q core.Quad) error {
	if !b.write {
		return storage.ErrReadOnly
	}
	return b.withTx(func(tx *badger.Txn) error {
		ids := idsOf(q)
		found, err := lookup(tx, spoc.makeKey(ids), q)
		if err != nil || !found {
			return err
		}
		for _, ix := range indexes {
			if err := tx.Delete(ix.makeKey(ids)); err != nil {
				return err
			}
		}
		return nil
	}, true)
}

// AddStatements adds a stream of quads in as few transactions as Badger
// allows. Quads committed before a failure stay committed.
func (b *Backend) AddStatements(ctx context.Context, stream *storage.Stream) (int, error) {
	if !b.write {
		return 0, storage.ErrReadOnly
	}

	tx := b.db.NewTransaction(true)
	defer func() { tx.Discard() }()

	n := 0
	for q, err := range stream.All() {
		if err == nil {
			err = ctx.Err()
		}
		if err == nil {
			err = addTx(tx, q)
			if errors.Is(err, badger.ErrTxnTooBig) {
				if err = tx.Commit(); err != nil {
					return n, err
				}
				tx = b.db.NewTransaction(true)
				err = addTx(tx, q)
			}
		}
		if err != nil {
			if cerr := tx.Commit(); cerr != nil {
				return n, errors.Join(err, cerr)
			}
			return n, err
		}
		n++
	}
	return n, tx.Commit()
}

func (b *Backend) Contains(_ context.Context, q core.Quad) (bool, error) {
	var found bool
	err := b.withTx(func(tx *badger.Txn) error {
		if q.Context.IsBound() {
			var err error
			found, err = lookup(tx, spoc.makeKey(idsOf(q)), q)
			return err
		}

		opts := badger.DefaultIteratorOptions
		opts.Prefix = spoc.makePartialKey(q)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			err := iter.Item().Value(func(val []byte) error {
				stored, err := storage.UnmarshalQuad(val)
				if err != nil {
					return err
				}
				found = q.Statement.Matches(stored.Statement)
				return nil
			})
			if err != nil || found {
				return err
			}
		}
		return nil
	}, false)
	return found, err
}

func (b *Backend) Serialise(ctx context.Context) (storage.StatementCursor, error) {
	return b.Find(ctx, core.NewQuad(core.NewPattern(core.Any, core.Any, core.Any), core.Any))
}

func (b *Backend) Find(_ context.Context, pattern core.Quad) (storage.StatementCursor, error) {
	ix := chooseIndex(pattern)
	prefix := ix.makePartialKey(pattern)

	tx := b.db.NewTransaction(false)
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	return &quadCursor{
		tx:      tx,
		iter:    tx.NewIterator(opts),
		prefix:  prefix,
		pattern: pattern,
	}, nil
}

// quadCursor walks one index inside a read transaction.
type quadCursor struct {
	tx      *badger.Txn
	iter    *badger.Iterator
	prefix  []byte
	pattern core.Quad
	started bool
	done    bool
}

func (c *quadCursor) Next() (core.Quad, error) {
	if c.iter == nil || c.done {
		return core.Quad{}, io.EOF
	}
	if !c.started {
		c.iter.Seek(c.prefix)
		c.started = true
	} else {
		c.iter.Next()
	}

	for ; c.iter.ValidForPrefix(c.prefix); c.iter.Next() {
		val, err := c.iter.Item().ValueCopy(nil)
		if err != nil {
			return core.Quad{}, err
		}
		q, err := storage.UnmarshalQuad(val)
		if err != nil {
			return core.Quad{}, err
		}
		// IDs narrow the scan; nodes decide the match
		if c.pattern.Matches(q) {
			return q, nil
		}
	}
	c.done = true
	return core.Quad{}, io.EOF
}

func (c *quadCursor) Close() error {
	if c.iter == nil {
		return nil
	}
	c.iter.Close()
	c.tx.Discard()
	c.iter = nil
	c.tx = nil
	return nil
}
