package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/dendrascience/fastgen/generator"
)

// NewCountCmd creates and returns the count subcommand.
// It reports how many folders and generated files a tree holds.
func NewCountCmd() *cobra.Command {
	var (
		path         string
		showProgress bool
	)

	cmd := &cobra.Command{
		Use:   "count [PATH]",
		Short: "Count folders and files in a generated tree",
		Long: `Count the folders and generated .txt files in an output directory.

This is a utility command that recursively walks the tree. Manifests, logs
and git metadata are not counted as generated files.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				path = args[0]
			}
			c, err := runCount(afero.NewOsFs(), path, cmd.OutOrStdout(), showProgress)
			if err != nil {
				return fmt.Errorf("counting files: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Folders: %d\nFiles: %s\nSize: %s\n",
				c.Folders, humanize.Comma(int64(c.Files)), humanize.IBytes(uint64(c.Bytes)))
			return nil
		},
	}

	cmd.Flags().StringVarP(&path, "path", "p", "output", "Path to count files in")
	cmd.Flags().BoolVar(&showProgress, "progress", false, "Show progress every 10,000 files")

	return cmd
}

type counts struct {
	Folders int
	Files   int
	Bytes   int64
}

func runCount(fsys afero.Fs, root string, w io.Writer, showProgress bool) (counts, error) {
	var c counts
	err := afero.Walk(fsys, root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			if path == root {
				return nil
			}
			if info.Name() == ".git" {
				return filepath.SkipDir
			}
			if filepath.Dir(path) == filepath.Clean(root) {
				c.Folders++
			}
			return nil
		}
		if filepath.Ext(path) != generator.FileExt {
			return nil
		}
		c.Files++
		c.Bytes += info.Size()
		if showProgress && c.Files%10000 == 0 {
			fmt.Fprintf(w, "Progress: %d files counted\n", c.Files)
		}
		return nil
	})
	return c, err
}
