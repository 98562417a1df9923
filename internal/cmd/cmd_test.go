package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"reflect"
	"slices"
	"strings"
	"testing"

	"github.com/gofrs/flock"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dendrascience/fastgen/generator"
	"github.com/dendrascience/fastgen/internal/config"
	"github.com/dendrascience/fastgen/util"
)

func TestCollectOverrides(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want map[string]any
	}{
		{
			name: "nothing set",
			args: nil,
			want: map[string]any{},
		},
		{
			name: "short flags",
			args: []string{"-n", "3", "-o", "/tmp/x", "-b", "7"},
			want: map[string]any{"folders": "3", "output_dir": "/tmp/x", "batch_size": "7"},
		},
		{
			name: "negated switches",
			args: []string{"--no-git", "--no-log"},
			want: map[string]any{"checkpoint": false, "log": false},
		},
		{
			name: "duration and backend",
			args: []string{"--flush-interval", "2s", "--checkpoint-backend", "go-git"},
			want: map[string]any{"flush_interval": "2s", "checkpoint_backend": "go-git"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := NewGenerateCmd()
			if err := cmd.ParseFlags(tt.args); err != nil {
				t.Fatalf("ParseFlags(%v) unexpected error: %v", tt.args, err)
			}
			got, err := collectOverrides(cmd.Flags())
			if err != nil {
				t.Fatalf("collectOverrides unexpected error: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("collectOverrides(%v) = %v, expected %v", tt.args, got, tt.want)
			}
		})
	}
}

func TestOverridesLoadIntoConfig(t *testing.T) {
	cmd := NewGenerateCmd()
	require.NoError(t, cmd.ParseFlags([]string{"-n", "3", "--no-git", "--flush-interval", "250ms", "--relaxed-writes"}))
	overrides, err := collectOverrides(cmd.Flags())
	require.NoError(t, err)

	cfg, err := config.Load(overrides)
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Folders)
	assert.False(t, cfg.Checkpoint)
	assert.True(t, cfg.RelaxedWrites)
	assert.Equal(t, "250ms", cfg.FlushInterval.String())
	assert.Equal(t, config.Default().FilesPerFolder, cfg.FilesPerFolder)
}

func TestRootCommands(t *testing.T) {
	root := NewRootCmd()
	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"generate", "verify", "count", "version"} {
		if !slices.Contains(names, want) {
			t.Errorf("root command missing %q subcommand, have %v", want, names)
		}
	}
}

func generateTree(t *testing.T, fsys afero.Fs) string {
	t.Helper()
	cfg := config.Default()
	cfg.OutputDir = "/out"
	cfg.Folders = 2
	cfg.FilesPerFolder = 6
	cfg.BatchSize = 4
	cfg.WordPoolSize = 200
	cfg.Checkpoint = false

	g, err := generator.New(&cfg, generator.WithFs(fsys))
	require.NoError(t, err)
	stats, err := g.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 12, stats.TotalFiles)
	return cfg.OutputDir
}

func folderDirs(t *testing.T, fsys afero.Fs, root string) []string {
	t.Helper()
	entries, err := afero.ReadDir(fsys, root)
	require.NoError(t, err)
	var dirs []string
	for _, e := range entries {
		if e.IsDir() {
			dirs = append(dirs, filepath.Join(root, e.Name()))
		}
	}
	return dirs
}

func TestVerifyCleanTree(t *testing.T) {
	fsys := afero.NewMemMapFs()
	root := generateTree(t, fsys)

	var out bytes.Buffer
	report, err := runVerify(fsys, root, &out, true)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Checked)
	assert.Empty(t, report.Mismatched)
	assert.Empty(t, report.Incomplete)
	assert.Contains(t, out.String(), "Folders checked: 2")
	require.NotNil(t, report.Run)
	assert.Equal(t, 12, report.Run.TotalFiles)
}

func TestVerifyDetectsTampering(t *testing.T) {
	tests := []struct {
		name   string
		tamper func(t *testing.T, fsys afero.Fs, dir string)
	}{
		{
			name: "file removed",
			tamper: func(t *testing.T, fsys afero.Fs, dir string) {
				require.NoError(t, fsys.Remove(firstTxt(t, fsys, dir)))
			},
		},
		{
			name: "file rewritten",
			tamper: func(t *testing.T, fsys afero.Fs, dir string) {
				require.NoError(t, afero.WriteFile(fsys, firstTxt(t, fsys, dir), []byte("changed"), 0o644))
			},
		},
		{
			name: "extra file",
			tamper: func(t *testing.T, fsys afero.Fs, dir string) {
				require.NoError(t, afero.WriteFile(fsys, filepath.Join(dir, "stray.txt"), []byte("x"), 0o644))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fsys := afero.NewMemMapFs()
			root := generateTree(t, fsys)
			dirs := folderDirs(t, fsys, root)
			tt.tamper(t, fsys, dirs[0])

			var out bytes.Buffer
			report, err := runVerify(fsys, root, &out, false)
			require.NoError(t, err)
			assert.Equal(t, []string{filepath.Base(dirs[0])}, report.Mismatched)
			assert.Contains(t, out.String(), util.ErrManifestMismatch.Error())
		})
	}
}

func TestVerifyIncompleteFolder(t *testing.T) {
	fsys := afero.NewMemMapFs()
	dir := "/out/0001_a_b_0000000000"
	require.NoError(t, afero.WriteFile(fsys, filepath.Join(dir, generator.ManifestName),
		[]byte("# Folder 0001_a_b_0000000000\n\nPlanned files: 5\n"), 0o644))

	report, err := runVerify(fsys, "/out", &bytes.Buffer{}, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"0001_a_b_0000000000"}, report.Incomplete)
	assert.Empty(t, report.Mismatched)
}

func TestVerifyReportsInterruptedFolder(t *testing.T) {
	fsys := afero.NewMemMapFs()
	cfg := config.Default()
	cfg.OutputDir = "/out"
	cfg.Folders = 2
	cfg.FolderWorkers = 1
	cfg.FilesPerFolder = 6
	cfg.BatchSize = 2
	cfg.WordPoolSize = 200
	cfg.Checkpoint = false

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	g, err := generator.New(&cfg, generator.WithFs(fsys),
		generator.WithProgress(func(string, int, int) { cancel() }))
	require.NoError(t, err)
	stats, err := g.Run(ctx)
	require.NoError(t, err)
	require.True(t, stats.Interrupted)

	var out bytes.Buffer
	report, err := runVerify(fsys, "/out", &out, false)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Checked)
	assert.Len(t, report.Incomplete, 1)
	assert.Empty(t, report.Mismatched)
	assert.Contains(t, out.String(), "was interrupted (2 of 6 files)")
}

func TestVerifyMissingRoot(t *testing.T) {
	_, err := runVerify(afero.NewMemMapFs(), "/nope", &bytes.Buffer{}, false)
	assert.Error(t, err)
}

func firstTxt(t *testing.T, fsys afero.Fs, dir string) string {
	t.Helper()
	entries, err := afero.ReadDir(fsys, dir)
	require.NoError(t, err)
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), generator.FileExt) {
			return filepath.Join(dir, e.Name())
		}
	}
	t.Fatalf("no generated files in %s", dir)
	return ""
}

func TestCount(t *testing.T) {
	fsys := afero.NewMemMapFs()
	root := generateTree(t, fsys)
	require.NoError(t, afero.WriteFile(fsys, filepath.Join(root, ".git", "objects", "x.txt"), []byte("x"), 0o644))

	c, err := runCount(fsys, root, &bytes.Buffer{}, false)
	require.NoError(t, err)
	assert.Equal(t, 2, c.Folders)
	assert.Equal(t, 12, c.Files)
	assert.Positive(t, c.Bytes)
}

func TestGenerateCommand(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	root := NewRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs([]string{"generate", "-o", dir, "-n", "2", "-f", "5", "-b", "2", "--no-git", "--no-log", "--seed", "7", "-v"})

	require.NoError(t, root.ExecuteContext(context.Background()))
	assert.Contains(t, out.String(), "Folders: 2/2 completed")
	assert.Contains(t, errOut.String(), "5/5 files")

	_, err := os.Stat(filepath.Join(dir, util.StatisticsFileName))
	require.NoError(t, err)

	report, err := runVerify(afero.NewOsFs(), dir, &bytes.Buffer{}, false)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Checked)
	assert.Empty(t, report.Mismatched)
}

func TestGenerateRefusesLockedOutput(t *testing.T) {
	dir := t.TempDir()
	lock := flock.New(filepath.Join(dir, LockFileName))
	locked, err := lock.TryLock()
	require.NoError(t, err)
	require.True(t, locked)
	defer lock.Unlock()

	root := NewRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"generate", "-o", dir, "-n", "1", "-f", "1", "--no-git", "--no-log"})

	err = root.ExecuteContext(context.Background())
	assert.ErrorIs(t, err, ErrRunInProgress)
}

func TestGenerateInvalidConfig(t *testing.T) {
	root := NewRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"generate", "-o", t.TempDir(), "-n", "0", "--no-log"})

	assert.Error(t, root.ExecuteContext(context.Background()))
}
