// Package main provides the fastgen command-line interface.
//
// fastgen bulk-generates synthetic directory trees for exercising storage,
// indexing and version-control tooling. Each run creates numbered folders of
// templated text files, writes a README manifest per folder, and can record
// progress in a git history through batched commits.
//
// The main binary supports multiple subcommands:
//   - generate: Generate a folder tree
//   - verify: Check folder manifests against the files on disk
//   - count: Count folders and files in a generated tree
//   - version: Print build information
//
// An interrupt stops new work; files already queued are still written and
// committed, and the run summary is saved before the process exits.
package main
