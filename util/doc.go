// Package util provides shared building blocks for the fastgen generator.
//
// This package contains the small pieces that several pipeline stages depend on:
// sentinel errors, content digests, the per-folder file ledger, and the JSON
// statistics file written at the end of a run.
//
// Key Components:
//
// Digests:
//   - xxHash64 digests for generated file contents (Digest, FileDigest)
//   - Folder digests computed over the sorted (name, digest) pairs of a folder
//
// File Tables:
//   - FileTable and FileEntry types record every file a folder produced
//   - Size totals, name uniqueness checks and oldest/newest write timestamps
//
// Statistics:
//   - Statistics holds aggregate counters for a run plus per-component stats
//   - WriteJSONFile / ReadJSONFile persist values through an afero.Fs
//
// All filesystem access goes through afero so that callers can run the same
// code against an in-memory filesystem in tests.
package util
