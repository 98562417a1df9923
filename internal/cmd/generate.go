package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/gofrs/flock"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/dendrascience/fastgen/generator"
	"github.com/dendrascience/fastgen/internal/config"
	"github.com/dendrascience/fastgen/internal/logger"
	"github.com/dendrascience/fastgen/util"
)

// LockFileName is held for the duration of a run so two generators never
// share an output directory.
const LockFileName = ".fastgen.lock"

var ErrRunInProgress = errors.New("another generator run holds the output directory")

// flagKeys maps generate flags to config keys. Only flags the user changed
// are passed on, so environment variables still apply to the rest.
var flagKeys = map[string]string{
	"output":             "output_dir",
	"folders":            "folders",
	"files-per-folder":   "files_per_folder",
	"batch-size":         "batch_size",
	"workers":            "workers",
	"folder-workers":     "folder_workers",
	"write-workers":      "write_workers",
	"queue-capacity":     "queue_capacity",
	"buffer-size":        "buffer_size",
	"relaxed-writes":     "relaxed_writes",
	"cache-capacity":     "cache_capacity",
	"word-pool-size":     "word_pool_size",
	"word-lists":         "word_lists_dir",
	"checkpoint-backend": "checkpoint_backend",
	"commit-batch-size":  "commit_batch_size",
	"flush-interval":     "flush_interval",
	"log-file":           "log_file",
	"log-level":          "log_level",
}

// NewGenerateCmd creates and returns the generate subcommand.
func NewGenerateCmd() *cobra.Command {
	var (
		verbose bool
		seed    uint64
	)

	d := config.Default()
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a synthetic folder and file tree",
		Long: `Generate numbered folders, each holding a fixed number of text files with
randomized names and templated content.

Every folder gets a README.md manifest. Unless --no-git is given, the output
directory is also a git repository and progress is checkpointed through
batched commits. Interrupting a run stops new work, drains pending writes and
commits, and still writes generation_statistics.json.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			overrides, err := collectOverrides(cmd.Flags())
			if err != nil {
				return err
			}
			cfg, err := config.Load(overrides)
			if err != nil {
				return err
			}
			var opts []generator.Option
			if verbose {
				out := cmd.ErrOrStderr()
				opts = append(opts, generator.WithProgress(func(folder string, done, total int) {
					fmt.Fprintf(out, "%s: %d/%d files\n", folder, done, total)
				}))
			}
			if cmd.Flags().Changed("seed") {
				opts = append(opts, generator.WithSeed(seed))
			}
			return runGenerate(cmd, cfg, opts...)
		},
	}

	f := cmd.Flags()
	f.StringP("output", "o", d.OutputDir, "Output directory")
	f.IntP("folders", "n", d.Folders, "Number of folders to generate")
	f.IntP("files-per-folder", "f", d.FilesPerFolder, "Files per folder")
	f.IntP("batch-size", "b", d.BatchSize, "Files per sub-batch within a folder")
	f.IntP("workers", "w", d.Workers, "Concurrent file generators per sub-batch")
	f.Int("folder-workers", d.FolderWorkers, "Folders processed concurrently")
	f.Int("write-workers", d.WriteWorkers, "Background file writers")
	f.Int("queue-capacity", d.QueueCapacity, "Pending writes before producers block")
	f.Int("buffer-size", d.BufferSize, "Write buffer size in bytes")
	f.Bool("relaxed-writes", d.RelaxedWrites, "Write inline instead of blocking when the queue is full")
	f.Int("cache-capacity", d.CacheCapacity, "Rendered content cache capacity")
	f.Int("word-pool-size", d.WordPoolSize, "Unique combinations per word category")
	f.String("word-lists", d.WordListsDir, "Directory with primary.txt, secondary.txt and technical.txt (default: built-in lists)")
	f.Bool("no-git", false, "Disable git checkpoints")
	f.String("checkpoint-backend", d.CheckpointBackend, "Checkpoint backend: git or go-git")
	f.Int("commit-batch-size", d.CommitBatchSize, "Checkpoint requests folded into one commit")
	f.Duration("flush-interval", d.FlushInterval, "Maximum time between checkpoint commits")
	f.Bool("no-log", false, "Disable the log file")
	f.String("log-file", d.LogFile, "Log file path")
	f.String("log-level", d.LogLevel, "Log level: debug, info, warn or error")
	f.Uint64Var(&seed, "seed", 0, "Seed for reproducible names and template choices")
	f.BoolVarP(&verbose, "verbose", "v", false, "Print progress after every sub-batch")

	return cmd
}

func collectOverrides(flags *pflag.FlagSet) (map[string]any, error) {
	overrides := make(map[string]any)
	for name, key := range flagKeys {
		if !flags.Changed(name) {
			continue
		}
		overrides[key] = flags.Lookup(name).Value.String()
	}
	for name, key := range map[string]string{"no-git": "checkpoint", "no-log": "log"} {
		if !flags.Changed(name) {
			continue
		}
		off, err := flags.GetBool(name)
		if err != nil {
			return nil, err
		}
		overrides[key] = !off
	}
	return overrides, nil
}

func runGenerate(cmd *cobra.Command, cfg *config.Config, opts ...generator.Option) error {
	logCfg := logger.DefaultConfig()
	logCfg.Level = cfg.LogLevel
	logCfg.Console = cmd.ErrOrStderr()
	logCfg.File = ""
	if cfg.Log {
		logCfg.File = cfg.LogFile
	}
	log, closer := logger.New(logCfg)
	defer closer.Close()

	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return fmt.Errorf("%w: %w", util.ErrNotWritable, err)
	}
	lock := flock.New(filepath.Join(cfg.OutputDir, LockFileName))
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("lock %s: %w", cfg.OutputDir, err)
	}
	if !locked {
		return fmt.Errorf("%s: %w", cfg.OutputDir, ErrRunInProgress)
	}
	defer lock.Unlock()

	opts = append([]generator.Option{
		generator.WithFs(afero.NewOsFs()),
		generator.WithLogger(log),
	}, opts...)
	g, err := generator.New(cfg, opts...)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Generating %s folders x %s files in %s (run %s)\n",
		humanize.Comma(int64(cfg.Folders)), humanize.Comma(int64(cfg.FilesPerFolder)), cfg.OutputDir, g.RunID())

	stats, err := g.Run(cmd.Context())
	if stats != nil {
		printSummary(out, stats)
	}
	return err
}

func printSummary(w io.Writer, s *util.Statistics) {
	if s.Interrupted {
		fmt.Fprintln(w, "Run interrupted; partial results were saved")
	}
	fmt.Fprintf(w, "Folders: %d/%d completed\n", s.FoldersCompleted, s.FoldersPlanned)
	fmt.Fprintf(w, "Files: %s/%s\n", humanize.Comma(int64(s.TotalFiles)), humanize.Comma(int64(s.FilesPlanned)))
	fmt.Fprintf(w, "Size: %s\n", humanize.IBytes(uint64(s.TotalBytes)))
	fmt.Fprintf(w, "Errors: %d\n", s.Errors)
	fmt.Fprintf(w, "Duration: %.2f seconds (%.1f files/s, %.2f MB/s)\n", s.DurationSeconds, s.FilesPerSecond, s.MBPerSecond)
}
