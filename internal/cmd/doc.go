// Package cmd provides the command-line interface implementation for fastgen.
//
// Each command is implemented as a separate file with its own constructor
// function that returns a *cobra.Command:
//   - root: Main command coordinator and entry point
//   - generate: Runs the generation pipeline
//   - verify: Checks folder manifests against the files on disk
//   - count: Folder and file counting
//
// Configuration is resolved by internal/config; only flags the user actually
// set override defaults and FASTGEN_* environment variables.
package cmd
