package cmd

import (
	"github.com/dendrascience/fastgen/version"
	"github.com/spf13/cobra"
)

// NewRootCmd creates and returns the root cobra command for the fastgen CLI.
// It sets up all subcommands, command groups, and basic configuration.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "fastgen",
		Short: "fastgen - bulk generator for synthetic folder and file trees",
		Long: `fastgen bulk-generates synthetic directory trees: numbered folders, each
holding a fixed number of text files with randomized names and templated
content, optionally checkpointed into a git history through batched commits.

Use subcommands to perform different operations:
  - generate: Generate a folder tree
  - verify: Check folder manifests against the files on disk
  - count: Count folders and files in a generated tree
  - version: Print build information`,
		Version:       version.GetFullVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	groupGeneration := "generation"
	groupUtilities := "utilities"

	rootCmd.AddGroup(&cobra.Group{
		ID:    groupGeneration,
		Title: "Generation",
	})
	rootCmd.AddGroup(&cobra.Group{
		ID:    groupUtilities,
		Title: "Utility Commands",
	})

	generateCmd := NewGenerateCmd()
	verifyCmd := NewVerifyCmd()
	countCmd := NewCountCmd()
	versionCmd := NewVersionCmd()

	generateCmd.GroupID = groupGeneration
	verifyCmd.GroupID = groupUtilities
	countCmd.GroupID = groupUtilities
	versionCmd.GroupID = groupUtilities

	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(countCmd)
	rootCmd.AddCommand(versionCmd)

	return rootCmd
}

// NewVersionCmd prints build information.
func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			version.PrintVersion(cmd.OutOrStdout(), "fastgen")
		},
	}
}
