package ingestion

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// ProgressTracker tracks and reports progress of an ingestion run.
type ProgressTracker struct {
	writer         io.Writer
	sources        int
	done           int
	statements     int
	reportInterval int
	lastReported   int
	startTime      time.Time
	started        bool
	mu             sync.Mutex
}

// NewProgressTracker creates a new progress tracker.
// writer: where to write progress output (typically os.Stderr)
// sources: total number of sources to ingest
// reportInterval: report progress every N statements
func NewProgressTracker(writer io.Writer, sources, reportInterval int) *ProgressTracker {
	if reportInterval < 1 {
		reportInterval = 1
	}
	return &ProgressTracker{
		writer:         writer,
		sources:        sources,
		reportInterval: reportInterval,
	}
}

// Start begins tracking progress.
func (p *ProgressTracker) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.startTime = time.Now()
	p.started = true
	p.done = 0
	p.statements = 0
	p.lastReported = 0
}

// Increment adds delta stored statements.
func (p *ProgressTracker) Increment(delta int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return
	}

	p.statements += delta
	if p.statements-p.lastReported >= p.reportInterval {
		p.report()
		p.lastReported = p.statements
	}
}

// SourceDone records a fully decoded source.
func (p *ProgressTracker) SourceDone() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return
	}

	if p.done < p.sources {
		p.done++
	}
	p.report()
}

// Statements returns the number of statements counted so far.
func (p *ProgressTracker) Statements() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.statements
}

// Finish prints final progress.
func (p *ProgressTracker) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return
	}

	p.report()
	fmt.Fprintln(p.writer)
}

// Elapsed returns the time elapsed since Start was called.
func (p *ProgressTracker) Elapsed() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return 0
	}

	return time.Since(p.startTime)
}

// report prints the current progress. Must be called with lock held.
func (p *ProgressTracker) report() {
	elapsed := time.Since(p.startTime)
	rate := float64(p.statements) / elapsed.Seconds()

	percentage := 0.0
	if p.sources > 0 {
		percentage = float64(p.done) / float64(p.sources) * 100.0
	}

	fmt.Fprintf(p.writer, "\rProgress: %d/%d sources (%.1f%%) - %d statements, %.1f statements/s",
		p.done, p.sources, percentage, p.statements, rate)
}
