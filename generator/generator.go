// Package generator drives a complete run: it numbers folders and files,
// produces their names and bodies, hands bodies to the write queue and
// records progress through the commit batcher.
package generator

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"

	"github.com/dendrascience/fastgen/cache"
	"github.com/dendrascience/fastgen/checkpoint"
	"github.com/dendrascience/fastgen/internal/config"
	"github.com/dendrascience/fastgen/internal/logger"
	"github.com/dendrascience/fastgen/templates"
	"github.com/dendrascience/fastgen/util"
	"github.com/dendrascience/fastgen/words"
	"github.com/dendrascience/fastgen/writeq"
)

// DrainTimeout bounds how long Run waits for queued checkpoints after the
// folders are done or the run was interrupted.
const DrainTimeout = 30 * time.Second

type (
	// ProgressFunc is called after every sub-batch of a folder.
	ProgressFunc func(folder string, done, total int)

	Generator struct {
		cfg   config.Config
		fs    afero.Fs
		log   logger.Logger
		runID string

		words   *words.Source
		bank    *templates.Bank
		cache   *cache.Cache
		stager  *cache.Stager[Material]
		queue   *writeq.Queue
		cp      checkpoint.Checkpointer
		batcher *checkpoint.Batcher

		progress  ProgressFunc
		completed atomic.Int64
	}

	Option func(*options)

	options struct {
		fs           afero.Fs
		log          logger.Logger
		checkpointer checkpoint.Checkpointer
		lists        map[words.Category][]string
		progress     ProgressFunc
		seed         *uint64
		batcherOpts  []checkpoint.Option
	}
)

// WithFs sets the filesystem output is written to. Defaults to the OS.
func WithFs(fsys afero.Fs) Option {
	return func(o *options) { o.fs = fsys }
}

func WithLogger(l logger.Logger) Option {
	return func(o *options) { o.log = l }
}

// WithCheckpointer replaces the backend chosen by checkpoint_backend.
func WithCheckpointer(cp checkpoint.Checkpointer) Option {
	return func(o *options) { o.checkpointer = cp }
}

// WithWordLists skips loading word lists from word_lists_dir.
func WithWordLists(lists map[words.Category][]string) Option {
	return func(o *options) { o.lists = lists }
}

func WithProgress(fn ProgressFunc) Option {
	return func(o *options) { o.progress = fn }
}

// WithSeed makes names and template choices reproducible.
func WithSeed(seed uint64) Option {
	return func(o *options) { o.seed = &seed }
}

// WithBatcherOptions passes extra options to the commit batcher.
func WithBatcherOptions(opts ...checkpoint.Option) Option {
	return func(o *options) { o.batcherOpts = append(o.batcherOpts, opts...) }
}

// New wires every pipeline stage from cfg. Configuration problems, such as a
// word list directory that does not exist, are reported here before anything
// is written.
func New(cfg *config.Config, opts ...Option) (*Generator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	o := options{fs: afero.NewOsFs(), log: logger.Nop()}
	for _, opt := range opts {
		opt(&o)
	}

	lists := o.lists
	if lists == nil {
		if cfg.WordListsDir == "" {
			lists = words.Builtin()
		} else {
			var err error
			if lists, err = words.LoadLists(o.fs, cfg.WordListsDir, o.log); err != nil {
				return nil, err
			}
		}
	}

	wordOpts := []words.Option{words.WithPoolSize(cfg.WordPoolSize), words.WithLogger(o.log)}
	var bankOpts []templates.Option
	if o.seed != nil {
		wordOpts = append(wordOpts, words.WithSeed(*o.seed))
		bankOpts = append(bankOpts, templates.WithSeed(*o.seed))
	}
	src := words.New(lists, wordOpts...)

	bank, err := templates.New(templates.Builtin(), bankOpts...)
	if err != nil {
		return nil, err
	}
	c, err := cache.New(cfg.CacheCapacity)
	if err != nil {
		return nil, err
	}
	stager, err := cache.NewStager(cfg.CacheCapacity, func() Material { return NewMaterial(src) },
		cache.WithLogger(o.log.With("component", "staging")))
	if err != nil {
		return nil, err
	}

	g := &Generator{
		cfg:    *cfg,
		fs:     o.fs,
		log:    o.log,
		runID:  uuid.NewString(),
		words:  src,
		bank:   bank,
		cache:  c,
		stager: stager,
		queue: writeq.New(o.fs,
			writeq.WithCapacity(cfg.QueueCapacity),
			writeq.WithWorkers(cfg.WriteWorkers),
			writeq.WithBufferSize(cfg.BufferSize),
			writeq.WithRelaxed(cfg.RelaxedWrites),
			writeq.WithLogger(o.log.With("component", "writeq")),
		),
		progress: o.progress,
	}

	if cfg.Checkpoint {
		g.cp = o.checkpointer
		if g.cp == nil {
			if g.cp, err = newCheckpointer(cfg, o.log); err != nil {
				return nil, err
			}
		}
		bopts := append([]checkpoint.Option{
			checkpoint.WithBatchSize(cfg.CommitBatchSize),
			checkpoint.WithQueueSize(cfg.CommitQueueSize),
			checkpoint.WithFlushInterval(cfg.FlushInterval),
			checkpoint.WithPollInterval(cfg.PollInterval),
			checkpoint.WithLogger(o.log.With("component", "checkpoint")),
		}, o.batcherOpts...)
		g.batcher = checkpoint.NewBatcher(g.cp, bopts...)
	}
	return g, nil
}

func newCheckpointer(cfg *config.Config, log logger.Logger) (checkpoint.Checkpointer, error) {
	root, err := filepath.Abs(cfg.OutputDir)
	if err != nil {
		return nil, err
	}
	switch cfg.CheckpointBackend {
	case "go-git":
		return checkpoint.NewGoGit(root, log), nil
	default:
		g := checkpoint.NewGitCLI(root, log)
		if !g.Available() {
			return nil, fmt.Errorf("checkpoint backend %q: git executable not found", cfg.CheckpointBackend)
		}
		return g, nil
	}
}

func (g *Generator) RunID() string {
	return g.runID
}

// Run generates every configured folder. Cancelling ctx stops new work; what
// is already queued is still written and checkpointed before Run returns, and
// the returned statistics are marked interrupted. An error is returned only
// for setup failures and for fatal disk errors such as permission denied or
// a full disk.
func (g *Generator) Run(ctx context.Context) (*util.Statistics, error) {
	stats := util.NewStatistics(g.runID, time.Now())
	stats.FoldersPlanned = g.cfg.Folders
	stats.FilesPlanned = g.cfg.TotalFiles()

	if err := g.prepareRoot(); err != nil {
		return nil, err
	}
	if g.batcher != nil {
		// Init runs to completion even if the run is already being cancelled;
		// the folder loop notices the cancellation right after.
		if err := g.cp.Init(context.WithoutCancel(ctx)); err != nil {
			return nil, fmt.Errorf("initialize checkpoint repository: %w", err)
		}
		g.batcher.Start(ctx)
	}
	g.stager.Start(ctx)
	g.queue.Start()

	g.log.Info("run started",
		"run_id", g.runID,
		"folders", g.cfg.Folders,
		"files_per_folder", g.cfg.FilesPerFolder,
		"checkpoint", g.batcher != nil,
	)

	var folders errgroup.Group
	folders.SetLimit(g.cfg.FolderWorkers)
	var fatal atomic.Bool
	for serial := 1; serial <= g.cfg.Folders; serial++ {
		if ctx.Err() != nil || fatal.Load() {
			break
		}
		folders.Go(func() error {
			if err := g.processFolder(ctx, serial); err != nil {
				fatal.Store(true)
				return err
			}
			return nil
		})
	}
	runErr := folders.Wait()

	g.shutdown(ctx)

	qs := g.queue.Stats()
	stats.FoldersCompleted = int(g.completed.Load())
	stats.TotalFiles = int(qs.FilesWritten)
	stats.TotalBytes = qs.BytesWritten
	stats.Errors = int(qs.Errors)
	stats.Interrupted = ctx.Err() != nil
	g.fillComponents(stats)
	stats.Finalize(time.Now())

	if _, err := stats.Save(g.fs, g.cfg.OutputDir); err != nil {
		g.log.Error("could not save statistics", "error", err)
		runErr = errors.Join(runErr, err)
	}

	g.log.Info("run finished",
		"folders", stats.FoldersCompleted,
		"files", stats.TotalFiles,
		"bytes", stats.TotalBytes,
		"errors", stats.Errors,
		"interrupted", stats.Interrupted,
		"seconds", stats.DurationSeconds,
	)
	return stats, runErr
}

// prepareRoot creates the output root and proves it is writable.
func (g *Generator) prepareRoot() error {
	root := g.cfg.OutputDir
	if err := g.fs.MkdirAll(root, 0o755); err != nil {
		return fmt.Errorf("%w: %s: %w", util.ErrNotWritable, root, err)
	}
	probe, err := afero.TempFile(g.fs, root, ".fastgen-probe-*")
	if err != nil {
		return fmt.Errorf("%w: %s: %w", util.ErrNotWritable, root, err)
	}
	name := probe.Name()
	probe.Close()
	return g.fs.Remove(name)
}

// shutdown drains the write queue, then the commit batcher, then stops the
// staging loop.
func (g *Generator) shutdown(ctx context.Context) {
	g.queue.Close()

	if g.batcher != nil {
		drainCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), DrainTimeout)
		if err := g.batcher.Close(drainCtx); err != nil {
			g.log.Warn("checkpoint drain incomplete", "error", err)
		}
		cancel()
	}

	if err := g.stager.Stop(); err != nil {
		g.log.Warn("staging loop did not stop", "error", err)
	}
}

func (g *Generator) fillComponents(stats *util.Statistics) {
	stats.Components["write_queue"] = g.queue.Stats()
	stats.Components["content_cache"] = g.cache.Stats()
	stats.Components["staging"] = g.stager.Stats()
	stats.Components["words"] = g.words.Stats()
	stats.Components["templates"] = map[string]any{
		"count":      g.bank.Len(),
		"usage":      g.bank.Usage(),
		"total_uses": g.bank.TotalUses(),
	}
	if g.batcher != nil {
		stats.Components["checkpoint"] = g.batcher.Stats()
	}
}

func (g *Generator) processFolder(ctx context.Context, serial int) error {
	// A slot may free up only after the run was cancelled.
	if ctx.Err() != nil {
		return nil
	}
	name := FolderName(g.words, serial)
	dir := filepath.Join(g.cfg.OutputDir, name)
	if err := g.fs.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create folder %s: %w", name, err)
	}

	planned := g.cfg.FilesPerFolder
	rec := newFolderRecord(name, dir, planned, time.Now())
	manifest := filepath.Join(name, ManifestName)
	if err := g.writeManifest(rec); err != nil {
		return err
	}
	g.queueCommit(ctx, "Created folder: "+name, manifest)

	log := g.log.With("folder", name)
	log.Debug("folder started", "planned", planned)

	caller := templates.CallerID(name)
	batchSize := g.cfg.BatchSize
	interrupted := false
	for first := 1; first <= planned; first += batchSize {
		if ctx.Err() != nil {
			log.Info("folder interrupted", "created", rec.Created(), "planned", planned)
			interrupted = true
			break
		}
		last := min(first+batchSize-1, planned)
		written, err := g.processBatch(ctx, rec, caller, first, last)
		if err != nil {
			return err
		}
		if len(written) > 0 {
			g.queueCommit(ctx, fmt.Sprintf("Added file batch %d to %s", (first-1)/batchSize+1, name), written...)
		}
		if g.progress != nil {
			g.progress(name, rec.Created(), planned)
		}
	}

	if interrupted {
		rec.interrupt(time.Now())
	} else {
		rec.finish(time.Now())
	}
	if err := g.writeManifest(rec); err != nil {
		return err
	}
	g.queueCommit(ctx, completionMessage(rec), manifest)
	if interrupted {
		return nil
	}

	if rec.Created() == planned {
		g.completed.Add(1)
	}
	if n := rec.Collisions(); n > 0 {
		log.Warn("file names collided", "collisions", n)
	}
	log.Info("folder completed",
		"files", rec.Created(),
		"bytes", rec.Bytes(),
		"errors", rec.Errors(),
		"elapsed", rec.Elapsed(),
		"write_span", rec.WriteSpan(),
	)
	return nil
}

// processBatch generates files first..last of rec and waits until each has
// been written or has failed. It returns the written paths relative to the
// output root, sorted.
func (g *Generator) processBatch(ctx context.Context, rec *FolderRecord, caller, first, last int) ([]string, error) {
	var (
		mu      sync.Mutex
		written []string
		fatal   error
		pending sync.WaitGroup
		files   errgroup.Group
	)
	files.SetLimit(g.cfg.Workers)

	for num := first; num <= last; num++ {
		files.Go(func() error {
			name := FileName(g.words, rec.Name, num, time.Now())
			body, err := g.content(rec.Name, num, caller)
			if err != nil {
				return err
			}

			pending.Add(1)
			err = g.queue.Enqueue(ctx, writeq.Task{
				Path:    filepath.Join(rec.Dir, name),
				Content: []byte(body),
				Done: func(r writeq.Result) {
					defer pending.Done()
					if r.Err != nil {
						rec.addError()
						if isFatal(r.Err) {
							mu.Lock()
							if fatal == nil {
								fatal = r.Err
							}
							mu.Unlock()
						}
						return
					}
					rec.addFile(util.FileEntry{Name: name, Size: r.Bytes, Digest: r.Digest, Written: r.Written})
					mu.Lock()
					written = append(written, filepath.Join(rec.Name, name))
					mu.Unlock()
				},
			})
			if err != nil {
				pending.Done()
				return err
			}
			return nil
		})
	}

	err := files.Wait()
	pending.Wait()
	if err == nil && fatal != nil {
		err = fmt.Errorf("write in %s: %w", rec.Name, fatal)
	}
	slices.Sort(written)
	return written, err
}

// content returns the body for one file, from the cache when present.
func (g *Generator) content(folder string, num, caller int) (string, error) {
	key := cache.Key(folder, num)
	if body, ok := g.cache.Get(key); ok {
		return body, nil
	}

	m := g.stager.Take()
	idx := g.bank.Next(caller)
	body, err := g.bank.Render(idx, map[string]string{
		"folder_name": folder,
		"file_num":    strconv.Itoa(num),
		"technical":   g.words.Combination(words.Technical),
		"art":         m.Art,
		"quote":       m.Quote,
		"fact":        m.Fact,
		"joke":        m.Joke,
	})
	if err != nil {
		return "", err
	}
	g.cache.Put(key, body)
	return body, nil
}

func (g *Generator) writeManifest(rec *FolderRecord) error {
	path := filepath.Join(rec.Dir, ManifestName)
	if err := afero.WriteFile(g.fs, path, RenderManifest(rec, util.GetVersion()), 0o644); err != nil {
		if isFatal(err) {
			return fmt.Errorf("write manifest %s: %w", path, err)
		}
		g.log.Error("could not write manifest", "path", path, "error", err)
	}
	return nil
}

func (g *Generator) queueCommit(ctx context.Context, message string, paths ...string) {
	if g.batcher == nil {
		return
	}
	if _, err := g.batcher.Queue(ctx, message, paths...); err != nil {
		subject, _, _ := strings.Cut(message, "\n")
		g.log.Warn("could not queue checkpoint", "message", subject, "error", err)
	}
}

func completionMessage(rec *FolderRecord) string {
	verb := "Completed"
	if rec.Interrupted() {
		verb = "Interrupted"
	}
	return fmt.Sprintf("%s folder %s\nFiles: %d\nSize: %.2f MB\nTime: %.2f seconds",
		verb,
		rec.Name,
		rec.Created(),
		float64(rec.Bytes())/1024/1024,
		rec.Elapsed().Seconds(),
	)
}

// isFatal reports whether err means the run cannot usefully continue.
func isFatal(err error) bool {
	return errors.Is(err, fs.ErrPermission) ||
		errors.Is(err, syscall.ENOSPC) ||
		errors.Is(err, syscall.EROFS)
}
