package ingestion

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"runtime"
	"sync"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/graphstore/core"
	"github.com/poiesic/graphstore/storage"
)

const defaultBufferSize = 1024

// Pipeline decodes sources concurrently and stores their statements.
type Pipeline struct {
	storage        *storage.Storage
	pool           *ants.Pool
	bufferSize     int
	defaultContext core.Term
	progress       *progressConfig
	logger         *slog.Logger
}

type progressConfig struct {
	writer   io.Writer
	interval int
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithPoolSize sets the number of sources decoded concurrently.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}

		// Release old pool
		if p.pool != nil {
			p.pool.Release()
			p.pool = nil
		}

		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		p.pool = pool
		return nil
	}
}

// WithBufferSize sets the capacity of the channel between the decode workers
// and the storing goroutine. Default is 1024.
func WithBufferSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 0 {
			size = 0
		}
		p.bufferSize = size
		return nil
	}
}

// WithDefaultContext stores statements decoded without a context in c.
// The storage must support contexts.
func WithDefaultContext(c core.Node) Option {
	return func(p *Pipeline) error {
		if err := core.ValidateNode(c); err != nil {
			return err
		}
		p.defaultContext = core.Bind(c)
		return nil
	}
}

// WithProgress reports progress to w every interval statements.
func WithProgress(w io.Writer, interval int) Option {
	return func(p *Pipeline) error {
		if w == nil {
			p.progress = nil
			return nil
		}
		p.progress = &progressConfig{writer: w, interval: interval}
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// NewPipeline creates a new ingestion pipeline storing into st. The storage
// must be open before Ingest is called.
func NewPipeline(st *storage.Storage, opts ...Option) (*Pipeline, error) {
	if st == nil {
		return nil, ErrStorageRequired
	}

	// Default pool size
	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}

	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		storage:    st,
		pool:       pool,
		bufferSize: defaultBufferSize,
		logger:     slog.Default(),
	}

	// Apply options (may override defaults)
	for _, opt := range opts {
		if optErr := opt(p); optErr != nil {
			p.Release()
			return nil, optErr
		}
	}
	p.logger = p.logger.With("component", "ingestion")

	return p, nil
}

// Ingest decodes every source and stores the result. It returns the number
// of statements handed to the storage. Source failures are joined into the
// returned error as *SourceError values; a storage failure stops the run and
// is returned as is.
func (p *Pipeline) Ingest(ctx context.Context, sources ...Source) (int, error) {
	for _, src := range sources {
		if src.Open == nil {
			return 0, &SourceError{Source: src.Name, Err: ErrInvalidSource}
		}
	}

	var tracker *ProgressTracker
	if p.progress != nil {
		tracker = NewProgressTracker(p.progress.writer, len(sources), p.progress.interval)
		tracker.Start()
		defer tracker.Finish()
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	r := &run{
		ctx:     runCtx,
		out:     make(chan core.Quad, p.bufferSize),
		tracker: tracker,
		logger:  p.logger,
	}

	// Submitting blocks while the pool is busy, so it runs apart from the
	// goroutine draining the channel.
	go func() {
		defer close(r.out)
		for _, src := range sources {
			r.wg.Add(1)
			err := p.pool.Submit(func() {
				defer r.wg.Done()
				r.decode(src)
			})
			if err != nil {
				r.wg.Done()
				r.fail(src.Name, err)
			}
		}
		r.wg.Wait()
	}()

	stream := storage.NewStream(&channelSource{run: r, cancel: cancel, context: p.defaultContext})
	n, err := p.storage.AddStatements(ctx, stream)
	if err != nil {
		p.logger.Error("storing statements failed", "err", err, "stored", n)
		return n, err
	}
	if err := ctx.Err(); err != nil {
		return n, err
	}

	p.logger.Debug("ingested", "sources", len(sources), "statements", n, "failed", len(r.errs))
	return n, errors.Join(r.errs...)
}

// Release releases resources including the worker pool.
// The pipeline should not be used after calling Release.
func (p *Pipeline) Release() {
	if p.pool != nil {
		p.pool.Release()
	}
}

// run is the state shared by the workers of one Ingest call.
type run struct {
	ctx     context.Context
	out     chan core.Quad
	wg      sync.WaitGroup
	tracker *ProgressTracker
	logger  *slog.Logger

	mu   sync.Mutex
	errs []error
}

func (r *run) fail(name string, err error) {
	r.logger.Warn("source failed", "source", name, "err", err)
	r.mu.Lock()
	r.errs = append(r.errs, &SourceError{Source: name, Err: err})
	r.mu.Unlock()
}

func (r *run) decode(src Source) {
	if r.ctx.Err() != nil {
		return
	}
	cur, err := src.Open(r.ctx)
	if err != nil {
		r.fail(src.Name, err)
		return
	}
	defer cur.Close()

	count := 0
	for {
		q, err := cur.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			r.fail(src.Name, err)
			return
		}
		select {
		case r.out <- q:
			count++
		case <-r.ctx.Done():
			return
		}
	}

	r.logger.Debug("source decoded", "source", src.Name, "statements", count)
	if r.tracker != nil {
		r.tracker.SourceDone()
	}
}

// channelSource feeds the statements of a run to AddStatements. Closing it
// stops the workers.
type channelSource struct {
	run     *run
	cancel  context.CancelFunc
	context core.Term
}

func (c *channelSource) Next() (core.Quad, error) {
	q, ok := <-c.run.out
	if !ok {
		return core.Quad{}, io.EOF
	}
	if !q.Context.IsBound() {
		q.Context = c.context
	}
	if c.run.tracker != nil {
		c.run.tracker.Increment(1)
	}
	return q, nil
}

func (c *channelSource) Close() error {
	c.cancel()
	// drain so the submitter can finish
	for range c.run.out {
	}
	return nil
}
