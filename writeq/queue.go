// Package writeq persists generated files through a bounded queue drained by
// a fixed set of writer goroutines.
//
// Producers block while the queue is full. A producer whose context ends while
// it waits, or any producer in relaxed mode that finds the queue full, writes
// the file itself instead. Either way the task is never dropped by the queue.
//
// Every write goes to a temporary file in the target directory which is renamed
// into place once fully flushed, so a file on disk is either complete or
// absent.
package writeq

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/afero"

	"github.com/dendrascience/fastgen/internal/logger"
	"github.com/dendrascience/fastgen/util"
)

var ErrQueueClosed = errors.New("write queue is closed")

const (
	DefaultCapacity   = 1000
	DefaultWorkers    = 2
	DefaultBufferSize = 8192
)

type (
	Task struct {
		Path    string
		Content []byte
		// Done, when set, is called exactly once with the outcome of the write.
		// It runs on the writing goroutine and must not block for long.
		Done func(Result)
	}

	Result struct {
		Path    string
		Bytes   int64
		Digest  uint64
		Written time.Time
		// Inline is true when the producer wrote the file itself.
		Inline bool
		Err    error
	}

	Stats struct {
		Capacity     int   `json:"capacity"`
		Queued       int   `json:"queued"`
		Workers      int   `json:"workers"`
		FilesWritten int64 `json:"files_written"`
		BytesWritten int64 `json:"bytes_written"`
		Errors       int64 `json:"errors"`
		InlineWrites int64 `json:"inline_writes"`
	}

	Queue struct {
		fs    afero.Fs
		tasks chan Task
		cfg   config

		// closeMu orders Enqueue against Close. It never guards counters.
		closeMu sync.RWMutex
		closed  bool

		startOnce sync.Once
		wg        sync.WaitGroup

		// statsMu guards stats only, so writers updating counters never
		// contend with producers and consumers on the channel.
		statsMu sync.Mutex
		stats   Stats
	}

	config struct {
		capacity   int
		workers    int
		bufferSize int
		relaxed    bool
		perm       os.FileMode
		log        logger.Logger
	}

	Option func(*config)
)

func WithCapacity(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.capacity = n
		}
	}
}

func WithWorkers(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.workers = n
		}
	}
}

func WithBufferSize(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.bufferSize = n
		}
	}
}

// WithRelaxed makes Enqueue write inline instead of blocking on a full queue.
func WithRelaxed(relaxed bool) Option {
	return func(c *config) { c.relaxed = relaxed }
}

func WithPerm(perm os.FileMode) Option {
	return func(c *config) { c.perm = perm }
}

func WithLogger(l logger.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.log = l
		}
	}
}

func New(fsys afero.Fs, opts ...Option) *Queue {
	cfg := config{
		capacity:   DefaultCapacity,
		workers:    DefaultWorkers,
		bufferSize: DefaultBufferSize,
		perm:       0o644,
		log:        logger.Nop(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Queue{
		fs:    fsys,
		tasks: make(chan Task, cfg.capacity),
		cfg:   cfg,
	}
}

// Start launches the writer goroutines. Enqueue calls it on first use and
// calling it more than once is harmless.
func (q *Queue) Start() {
	q.startOnce.Do(func() {
		for i := range q.cfg.workers {
			q.wg.Add(1)
			go q.worker(i)
		}
	})
}

func (q *Queue) worker(id int) {
	defer q.wg.Done()
	for t := range q.tasks {
		q.process(t, false, id)
	}
}

// Enqueue hands t to the writers. It returns ErrQueueClosed after Close and
// otherwise always accepts the task, writing it inline when the queue cannot
// take it.
func (q *Queue) Enqueue(ctx context.Context, t Task) error {
	q.Start()
	q.closeMu.RLock()
	defer q.closeMu.RUnlock()
	if q.closed {
		return ErrQueueClosed
	}

	if q.cfg.relaxed {
		select {
		case q.tasks <- t:
		default:
			q.process(t, true, -1)
		}
		return nil
	}

	select {
	case q.tasks <- t:
		return nil
	default:
	}
	select {
	case q.tasks <- t:
	case <-ctx.Done():
		q.process(t, true, -1)
	}
	return nil
}

// Close stops accepting tasks and waits for every queued task to be written.
func (q *Queue) Close() {
	q.closeMu.Lock()
	if q.closed {
		q.closeMu.Unlock()
		return
	}
	q.closed = true
	close(q.tasks)
	q.closeMu.Unlock()

	// tasks enqueued before Start still need writers
	q.Start()
	q.wg.Wait()
}

func (q *Queue) process(t Task, inline bool, worker int) {
	res := Result{Path: t.Path, Inline: inline}
	func() {
		defer func() {
			if r := recover(); r != nil {
				res.Err = fmt.Errorf("write %s: panic: %v", t.Path, r)
			}
		}()
		res.Err = q.write(t.Path, t.Content)
	}()

	q.statsMu.Lock()
	if inline {
		q.stats.InlineWrites++
	}
	if res.Err != nil {
		q.stats.Errors++
	} else {
		q.stats.FilesWritten++
		q.stats.BytesWritten += int64(len(t.Content))
	}
	q.statsMu.Unlock()

	if res.Err != nil {
		q.cfg.log.Error("write failed", "path", t.Path, "worker", worker, "error", res.Err)
	} else {
		res.Bytes = int64(len(t.Content))
		res.Digest = util.Digest(t.Content)
		res.Written = time.Now()
	}
	if t.Done != nil {
		t.Done(res)
	}
}

func (q *Queue) write(path string, content []byte) (err error) {
	dir, base := filepath.Split(path)
	if dir == "" {
		dir = "."
	}
	f, err := afero.TempFile(q.fs, dir, "."+base+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp for %s: %w", path, err)
	}
	tmp := f.Name()
	defer func() {
		if err != nil {
			_ = q.fs.Remove(tmp)
		}
	}()

	bw := bufio.NewWriterSize(f, q.cfg.bufferSize)
	if _, err = bw.Write(content); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err = bw.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("flush %s: %w", path, err)
	}
	if err = f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	if err = q.fs.Chmod(tmp, q.cfg.perm); err != nil {
		return fmt.Errorf("chmod %s: %w", path, err)
	}
	if err = q.fs.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename %s: %w", path, err)
	}
	return nil
}

func (q *Queue) Stats() Stats {
	q.statsMu.Lock()
	st := q.stats
	q.statsMu.Unlock()
	st.Capacity = cap(q.tasks)
	st.Queued = len(q.tasks)
	st.Workers = q.cfg.workers
	return st
}
