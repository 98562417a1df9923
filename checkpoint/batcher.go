package checkpoint

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jacobsa/timeutil"

	"github.com/dendrascience/fastgen/internal/logger"
)

const (
	DefaultBatchSize     = 50
	DefaultQueueSize     = 1000
	DefaultFlushInterval = 5 * time.Second
	DefaultPollInterval  = 100 * time.Millisecond
)

type State int32

const (
	Idle State = iota
	Accumulating
	Flushing
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Accumulating:
		return "accumulating"
	case Flushing:
		return "flushing"
	}
	return fmt.Sprintf("State(%d)", int32(s))
}

type (
	// Request is one queued commit. All requests flushed together share the
	// resulting checkpoint id.
	Request struct {
		Message   string
		Paths     []string
		Timestamp time.Time

		done chan struct{}
		id   string
		err  error
	}

	Batcher struct {
		cp       Checkpointer
		cfg      batcherConfig
		requests chan *Request

		// mu guards the batch being assembled and the flush timer.
		mu        sync.Mutex
		pending   []*Request
		flushing  bool
		lastFlush time.Time

		closeMu sync.RWMutex
		closed  bool

		startOnce sync.Once
		started   bool
		stop      chan context.Context
		done      chan struct{}

		statsMu sync.Mutex
		stats   Stats
	}

	batcherConfig struct {
		batchSize     int
		queueSize     int
		flushInterval time.Duration
		pollInterval  time.Duration
		clock         timeutil.Clock
		log           logger.Logger
	}

	Option func(*batcherConfig)

	Stats struct {
		Requests       int64         `json:"requests"`
		Flushes        int64         `json:"flushes"`
		Commits        int64         `json:"commits"`
		NoopCommits    int64         `json:"noop_commits"`
		FailedFlushes  int64         `json:"failed_flushes"`
		FilesCommitted int64         `json:"files_committed"`
		TotalDuration  time.Duration `json:"total_duration_ns"`
		AvgDuration    time.Duration `json:"avg_duration_ns"`
		Pending        int           `json:"pending"`
		State          string        `json:"state"`
	}
)

func WithBatchSize(n int) Option {
	return func(c *batcherConfig) {
		if n > 0 {
			c.batchSize = n
		}
	}
}

// WithQueueSize bounds how many requests may wait for the flush goroutine.
func WithQueueSize(n int) Option {
	return func(c *batcherConfig) {
		if n > 0 {
			c.queueSize = n
		}
	}
}

func WithFlushInterval(d time.Duration) Option {
	return func(c *batcherConfig) {
		if d > 0 {
			c.flushInterval = d
		}
	}
}

func WithPollInterval(d time.Duration) Option {
	return func(c *batcherConfig) {
		if d > 0 {
			c.pollInterval = d
		}
	}
}

// WithClock sets the clock the flush interval is measured against.
func WithClock(clock timeutil.Clock) Option {
	return func(c *batcherConfig) {
		if clock != nil {
			c.clock = clock
		}
	}
}

func WithLogger(l logger.Logger) Option {
	return func(c *batcherConfig) {
		if l != nil {
			c.log = l
		}
	}
}

func NewBatcher(cp Checkpointer, opts ...Option) *Batcher {
	cfg := batcherConfig{
		batchSize:     DefaultBatchSize,
		queueSize:     DefaultQueueSize,
		flushInterval: DefaultFlushInterval,
		pollInterval:  DefaultPollInterval,
		clock:         timeutil.RealClock(),
		log:           logger.Nop(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Batcher{
		cp:       cp,
		cfg:      cfg,
		requests: make(chan *Request, cfg.queueSize),
		stop:     make(chan context.Context),
		done:     make(chan struct{}),
	}
}

// Start launches the flush goroutine. Periodic flushes run with ctx; once ctx
// ends the goroutine only waits for Close to drain what is left.
func (b *Batcher) Start(ctx context.Context) {
	b.startOnce.Do(func() {
		b.mu.Lock()
		b.lastFlush = b.cfg.clock.Now()
		b.started = true
		b.mu.Unlock()
		go b.loop(ctx)
	})
}

// Queue submits a commit request. It blocks while the request queue is full
// and returns ErrBatcherClosed once Close has been called.
func (b *Batcher) Queue(ctx context.Context, message string, paths ...string) (*Request, error) {
	b.closeMu.RLock()
	defer b.closeMu.RUnlock()
	if b.closed {
		return nil, ErrBatcherClosed
	}

	r := &Request{
		Message:   message,
		Paths:     paths,
		Timestamp: b.cfg.clock.Now(),
		done:      make(chan struct{}),
	}
	select {
	case b.requests <- r:
	default:
		select {
		case b.requests <- r:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	b.statsMu.Lock()
	b.stats.Requests++
	b.statsMu.Unlock()
	return r, nil
}

func (b *Batcher) loop(ctx context.Context) {
	defer close(b.done)
	ticker := time.NewTicker(b.cfg.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if ctx.Err() == nil {
				b.poll(ctx)
			}
		case drainCtx := <-b.stop:
			b.drain(drainCtx)
			return
		}
	}
}

// collect moves queued requests into the pending batch until it holds
// batchSize requests or the queue is empty. Caller holds mu.
func (b *Batcher) collect() {
	for len(b.pending) < b.cfg.batchSize {
		select {
		case r := <-b.requests:
			b.pending = append(b.pending, r)
		default:
			return
		}
	}
}

// due reports whether the pending batch must be flushed now. Caller holds mu.
func (b *Batcher) due() bool {
	if len(b.pending) == 0 {
		return false
	}
	return len(b.pending) >= b.cfg.batchSize ||
		b.cfg.clock.Now().Sub(b.lastFlush) >= b.cfg.flushInterval
}

func (b *Batcher) poll(ctx context.Context) {
	for {
		b.mu.Lock()
		b.collect()
		if !b.due() {
			b.mu.Unlock()
			return
		}
		batch := b.pending
		b.pending = nil
		b.flushing = true
		b.mu.Unlock()

		b.flush(ctx, batch)
	}
}

func (b *Batcher) drain(ctx context.Context) {
	for {
		b.mu.Lock()
		b.collect()
		if len(b.pending) == 0 {
			b.mu.Unlock()
			return
		}
		batch := b.pending
		b.pending = nil
		b.flushing = true
		b.mu.Unlock()

		if ctx.Err() != nil {
			b.abandon(batch, ctx.Err())
			continue
		}
		b.flush(ctx, batch)
	}
}

func (b *Batcher) abandon(batch []*Request, cause error) {
	b.cfg.log.Warn("abandoning commit batch", "requests", len(batch), "error", cause)
	for _, r := range batch {
		r.finish("", fmt.Errorf("%w: %w", ErrNotFlushed, cause))
	}
	b.mu.Lock()
	b.flushing = false
	b.mu.Unlock()
}

// CompositeMessage builds the single commit message for a batch.
func CompositeMessage(batch []*Request) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Batch commit: %d operations\n\n", len(batch))
	for i, r := range batch {
		if i > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString("- ")
		sb.WriteString(r.Message)
	}
	return sb.String()
}

func unionPaths(batch []*Request) []string {
	seen := make(map[string]struct{})
	var paths []string
	for _, r := range batch {
		for _, p := range r.Paths {
			if _, ok := seen[p]; ok {
				continue
			}
			seen[p] = struct{}{}
			paths = append(paths, p)
		}
	}
	return paths
}

// flush issues exactly one checkpoint for a non-empty batch. Failures are
// logged and the batch is dropped.
func (b *Batcher) flush(ctx context.Context, batch []*Request) {
	paths := unionPaths(batch)
	start := time.Now()

	err := b.cp.Add(ctx, paths)
	var id string
	if err == nil {
		id, err = b.cp.Commit(ctx, CompositeMessage(batch))
	}
	elapsed := time.Since(start)

	b.statsMu.Lock()
	b.stats.Flushes++
	b.stats.TotalDuration += elapsed
	switch {
	case errors.Is(err, ErrNothingToCommit):
		b.stats.NoopCommits++
	case err != nil:
		b.stats.FailedFlushes++
	default:
		b.stats.Commits++
		b.stats.FilesCommitted += int64(len(paths))
	}
	b.statsMu.Unlock()

	switch {
	case errors.Is(err, ErrNothingToCommit):
		b.cfg.log.Debug("checkpoint was a no-op", "requests", len(batch))
		err = nil
	case err != nil:
		b.cfg.log.Error("checkpoint failed, batch discarded", "requests", len(batch), "paths", len(paths), "error", err)
		err = fmt.Errorf("%w: %w", ErrBatchFailed, err)
	default:
		b.cfg.log.Debug("checkpoint committed", "id", id, "requests", len(batch), "paths", len(paths), "elapsed", elapsed)
	}
	for _, r := range batch {
		r.finish(id, err)
	}

	b.mu.Lock()
	b.lastFlush = b.cfg.clock.Now()
	b.flushing = false
	b.mu.Unlock()
}

// Close stops accepting requests and flushes everything still queued using
// ctx. If ctx ends first the remaining requests are abandoned.
func (b *Batcher) Close(ctx context.Context) error {
	b.closeMu.Lock()
	if b.closed {
		b.closeMu.Unlock()
		return nil
	}
	b.closed = true
	b.closeMu.Unlock()

	b.mu.Lock()
	started := b.started
	b.mu.Unlock()
	if !started {
		b.drain(ctx)
		return ctx.Err()
	}

	select {
	case b.stop <- ctx:
	case <-b.done:
		return nil
	}
	<-b.done
	return ctx.Err()
}

// State reports where the batcher is in its idle, accumulating, flushing
// cycle.
func (b *Batcher) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stateLocked()
}

func (b *Batcher) stateLocked() State {
	switch {
	case b.flushing:
		return Flushing
	case len(b.pending)+len(b.requests) > 0:
		return Accumulating
	}
	return Idle
}

func (b *Batcher) Stats() Stats {
	b.statsMu.Lock()
	st := b.stats
	b.statsMu.Unlock()
	if st.Flushes > 0 {
		st.AvgDuration = st.TotalDuration / time.Duration(st.Flushes)
	}
	b.mu.Lock()
	st.Pending = len(b.pending) + len(b.requests)
	st.State = b.stateLocked().String()
	b.mu.Unlock()
	return st
}

func (r *Request) finish(id string, err error) {
	r.id = id
	r.err = err
	close(r.done)
}

// Done is closed once the request's batch has been flushed or abandoned.
func (r *Request) Done() <-chan struct{} {
	return r.done
}

// Wait blocks until the request's batch is flushed and returns the shared
// checkpoint id. A no-op checkpoint yields an empty id and no error.
func (r *Request) Wait(ctx context.Context) (string, error) {
	select {
	case <-r.done:
		return r.id, r.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}
