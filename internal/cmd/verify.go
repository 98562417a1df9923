package cmd

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/dendrascience/fastgen/generator"
	"github.com/dendrascience/fastgen/util"
)

// NewVerifyCmd creates and returns the verify subcommand.
// It checks every folder manifest against the files actually on disk.
func NewVerifyCmd() *cobra.Command {
	var (
		outputPath string
		verbose    bool
	)

	cmd := &cobra.Command{
		Use:   "verify [PATH]",
		Short: "Check folder manifests against the files on disk",
		Long: `Check every generated folder for consistency.

For each folder the README.md manifest is parsed and its file count and
folder digest are compared with the .txt files present on disk. Folders
whose manifest never reached the completion section, including folders
stopped by an interrupt, are reported as incomplete. Exits non-zero when
any folder does not match.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				outputPath = args[0]
			}
			report, err := runVerify(afero.NewOsFs(), outputPath, cmd.OutOrStdout(), verbose)
			if err != nil {
				return err
			}
			if len(report.Mismatched) > 0 {
				return fmt.Errorf("%d folders: %w", len(report.Mismatched), util.ErrManifestMismatch)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputPath, "path", "p", "output", "Path to the generated output directory")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")

	return cmd
}

type verifyReport struct {
	Run        *util.Statistics
	Checked    int
	Incomplete []string
	Mismatched []string
}

func runVerify(fsys afero.Fs, root string, w io.Writer, verbose bool) (verifyReport, error) {
	var report verifyReport

	info, err := fsys.Stat(root)
	if err != nil {
		return report, err
	}
	if !info.IsDir() {
		return report, fmt.Errorf("%s: %w", root, util.ErrExpectedDirectory)
	}

	entries, err := afero.ReadDir(fsys, root)
	if err != nil {
		return report, err
	}
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		dir := filepath.Join(root, e.Name())
		manifest, err := readManifest(fsys, dir)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		report.Checked++
		if err == nil && !manifest.Completed {
			report.Incomplete = append(report.Incomplete, e.Name())
			if manifest.Interrupted {
				fmt.Fprintf(w, "Folder %s was interrupted (%d of %d files)\n", e.Name(), manifest.TotalFiles, manifest.PlannedFiles)
			} else if verbose {
				fmt.Fprintf(w, "Folder %s is incomplete\n", e.Name())
			}
			continue
		}
		if err == nil {
			err = verifyFolder(fsys, dir, manifest)
		}
		if err != nil {
			report.Mismatched = append(report.Mismatched, e.Name())
			fmt.Fprintf(w, "Folder %s: %v\n", e.Name(), err)
			continue
		}
		if verbose {
			fmt.Fprintf(w, "Folder %s is valid (%d files)\n", e.Name(), manifest.TotalFiles)
		}
	}

	var stats util.Statistics
	if err := util.ReadJSONFile(fsys, filepath.Join(root, util.StatisticsFileName), &stats); err == nil {
		report.Run = &stats
	} else if !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(w, "Could not read %s: %v\n", util.StatisticsFileName, err)
	}

	fmt.Fprintf(w, "\nVerification complete:\n")
	if report.Run != nil {
		fmt.Fprintf(w, "  Run: %s (version %s, %d files recorded)\n",
			report.Run.RunID, report.Run.GeneratorVersion, report.Run.TotalFiles)
	}
	fmt.Fprintf(w, "  Folders checked: %d\n", report.Checked)
	fmt.Fprintf(w, "  Incomplete: %d\n", len(report.Incomplete))
	fmt.Fprintf(w, "  Mismatched: %d\n", len(report.Mismatched))
	return report, nil
}

func readManifest(fsys afero.Fs, dir string) (*generator.Manifest, error) {
	data, err := afero.ReadFile(fsys, filepath.Join(dir, generator.ManifestName))
	if err != nil {
		return nil, err
	}
	return generator.ParseManifest(data)
}

func verifyFolder(fsys afero.Fs, dir string, m *generator.Manifest) error {
	entries, err := afero.ReadDir(fsys, dir)
	if err != nil {
		return err
	}
	pairs := make(map[string]uint64)
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != generator.FileExt {
			continue
		}
		d, err := util.FileDigest(fsys, filepath.Join(dir, e.Name()))
		if err != nil {
			return err
		}
		pairs[e.Name()] = d
	}

	if len(pairs) != m.TotalFiles {
		return fmt.Errorf("%d files on disk, manifest lists %d: %w", len(pairs), m.TotalFiles, util.ErrManifestMismatch)
	}
	for _, name := range m.Files {
		if _, ok := pairs[name]; !ok {
			return fmt.Errorf("%s missing on disk: %w", name, util.ErrManifestMismatch)
		}
	}
	if got := util.FolderDigest(pairs); got != m.Digest {
		return fmt.Errorf("digest %s, manifest has %s: %w",
			util.FormatDigest(got), util.FormatDigest(m.Digest), util.ErrManifestMismatch)
	}
	return nil
}
