// Package config loads generator settings from defaults, FASTGEN_* environment
// variables and explicit overrides, in that order of precedence.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is stripped from environment variable names before they are
// lower-cased into config keys, so FASTGEN_BATCH_SIZE sets batch_size.
const EnvPrefix = "FASTGEN_"

type Config struct {
	OutputDir      string `koanf:"output_dir"       validate:"required"`
	Folders        int    `koanf:"folders"          validate:"min=1"`
	FilesPerFolder int    `koanf:"files_per_folder" validate:"min=1"`
	BatchSize      int    `koanf:"batch_size"       validate:"min=1"`
	Workers        int    `koanf:"workers"          validate:"min=1"`
	FolderWorkers  int    `koanf:"folder_workers"   validate:"min=1"`

	WriteWorkers  int  `koanf:"write_workers"  validate:"min=1"`
	QueueCapacity int  `koanf:"queue_capacity" validate:"min=1"`
	BufferSize    int  `koanf:"buffer_size"    validate:"min=512"`
	RelaxedWrites bool `koanf:"relaxed_writes"`

	CacheCapacity int    `koanf:"cache_capacity" validate:"min=1"`
	WordPoolSize  int    `koanf:"word_pool_size" validate:"min=1"`
	WordListsDir  string `koanf:"word_lists_dir"`

	Checkpoint        bool          `koanf:"checkpoint"`
	CheckpointBackend string        `koanf:"checkpoint_backend" validate:"oneof=git go-git"`
	CommitBatchSize   int           `koanf:"commit_batch_size"  validate:"min=1"`
	CommitQueueSize   int           `koanf:"commit_queue_size"  validate:"min=1"`
	FlushInterval     time.Duration `koanf:"flush_interval"     validate:"gt=0"`
	PollInterval      time.Duration `koanf:"poll_interval"      validate:"gt=0"`

	Log      bool   `koanf:"log"`
	LogFile  string `koanf:"log_file"`
	LogLevel string `koanf:"log_level" validate:"oneof=debug info warn error"`
}

func Default() Config {
	return Config{
		OutputDir:      "output",
		Folders:        1000,
		FilesPerFolder: 1000,
		BatchSize:      50,
		Workers:        4,
		FolderWorkers:  2,

		WriteWorkers:  2,
		QueueCapacity: 1000,
		BufferSize:    8192,

		CacheCapacity: 1000,
		WordPoolSize:  10000,

		Checkpoint:        true,
		CheckpointBackend: "git",
		CommitBatchSize:   50,
		CommitQueueSize:   1000,
		FlushInterval:     5 * time.Second,
		PollInterval:      100 * time.Millisecond,

		Log:      true,
		LogFile:  "generator.log",
		LogLevel: "info",
	}
}

// Load merges defaults, environment and overrides and validates the result.
// overrides is keyed by koanf key and typically holds the CLI flags the user
// actually set.
func Load(overrides map[string]any) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if err := k.Load(env.Provider(".", env.Opt{
		Prefix: EnvPrefix,
		TransformFunc: func(key, value string) (string, any) {
			return strings.ToLower(strings.TrimPrefix(key, EnvPrefix)), value
		},
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if len(overrides) > 0 {
		if err := k.Load(rawMap(overrides), nil); err != nil {
			return nil, fmt.Errorf("failed to load overrides: %w", err)
		}
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			WeaklyTypedInput: true,
			Result:           &cfg,
			TagName:          "koanf",
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
			),
		},
	}); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	return nil
}

// TotalFiles is the number of files a complete run produces.
func (c *Config) TotalFiles() int {
	return c.Folders * c.FilesPerFolder
}

// rawMap is a koanf.Provider over an in-memory map.
type rawMap map[string]any

func (r rawMap) Read() (map[string]any, error) {
	return r, nil
}

func (r rawMap) ReadBytes() ([]byte, error) {
	return nil, fmt.Errorf("ReadBytes not implemented")
}
