// Package checkpoint records generated output in a version-control history.
//
// A Checkpointer performs the actual add and commit. It is slow and must not
// run concurrently with itself, so callers go through a Batcher which funnels
// many small commit requests into one checkpoint per batch from a single
// goroutine.
package checkpoint

import (
	"context"
	"errors"
)

var (
	// ErrNothingToCommit is returned by Commit when the working tree has no
	// staged changes. Batcher treats it as a successful no-op.
	ErrNothingToCommit = errors.New("nothing to commit")
	ErrBatcherClosed   = errors.New("commit batcher is closed")
	ErrBatchFailed     = errors.New("checkpoint batch failed")
	ErrNotFlushed      = errors.New("request was not flushed")
)

// Checkpointer is the external checkpoint tool.
type Checkpointer interface {
	// Init prepares the working tree. It must be safe to call on a tree that
	// is already initialized.
	Init(ctx context.Context) error
	// Add stages paths, given relative to the working tree or absolute.
	Add(ctx context.Context, paths []string) error
	// Commit records everything staged and returns the new checkpoint id.
	Commit(ctx context.Context, message string) (string, error)
}

// Identity and settings applied to a freshly initialized repository.
const (
	AuthorName  = "FastFileGenerator"
	AuthorEmail = "generator@example.com"
)

var repoSettings = [][2]string{
	{"user.name", AuthorName},
	{"user.email", AuthorEmail},
	{"core.autocrlf", "false"},
	{"core.compression", "0"},
	{"core.bigFileThreshold", "1m"},
}
