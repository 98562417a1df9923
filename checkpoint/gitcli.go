package checkpoint

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/dendrascience/fastgen/internal/logger"
)

// GitCLI drives the git executable found on PATH.
type GitCLI struct {
	Dir string
	// Binary defaults to "git".
	Binary string
	Log    logger.Logger
}

func NewGitCLI(dir string, log logger.Logger) *GitCLI {
	if log == nil {
		log = logger.Nop()
	}
	return &GitCLI{Dir: dir, Binary: "git", Log: log}
}

// Available reports whether the git binary can be found.
func (g *GitCLI) Available() bool {
	_, err := exec.LookPath(g.binary())
	return err == nil
}

func (g *GitCLI) binary() string {
	if g.Binary == "" {
		return "git"
	}
	return g.Binary
}

func (g *GitCLI) run(ctx context.Context, stdin []byte, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, g.binary(), append([]string{"-C", g.Dir}, args...)...)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	if stdin != nil {
		cmd.Stdin = bytes.NewReader(stdin)
	}
	err := cmd.Run()
	output := strings.TrimSpace(out.String())
	if err != nil {
		return output, fmt.Errorf("git %s: %w: %s", args[0], err, output)
	}
	return output, nil
}

// Init runs git init and applies the repository settings, unless Dir already
// holds a repository. A concurrent git process holding index.lock is retried.
func (g *GitCLI) Init(ctx context.Context) error {
	if _, err := os.Stat(filepath.Join(g.Dir, ".git")); err == nil {
		g.Log.Debug("repository already initialized", "dir", g.Dir)
		return nil
	}

	backoff := retry.WithMaxRetries(3, retry.NewExponential(100*time.Millisecond))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		if _, err := g.run(ctx, nil, "init", "--quiet"); err != nil {
			return lockRetryable(err)
		}
		for _, kv := range repoSettings {
			if _, err := g.run(ctx, nil, "config", kv[0], kv[1]); err != nil {
				return lockRetryable(err)
			}
		}
		g.Log.Info("initialized repository", "dir", g.Dir)
		return nil
	})
}

func lockRetryable(err error) error {
	if strings.Contains(err.Error(), ".lock") {
		return retry.RetryableError(err)
	}
	return err
}

// Add stages paths in one git invocation, feeding them through stdin so the
// argument list never exceeds the OS limit.
func (g *GitCLI) Add(ctx context.Context, paths []string) error {
	if len(paths) == 0 {
		return nil
	}
	var list bytes.Buffer
	for _, p := range paths {
		list.WriteString(p)
		list.WriteByte(0)
	}
	_, err := g.run(ctx, list.Bytes(), "add", "--pathspec-from-file=-", "--pathspec-file-nul")
	return err
}

func (g *GitCLI) Commit(ctx context.Context, message string) (string, error) {
	out, err := g.run(ctx, nil, "commit", "-m", message)
	if err != nil {
		if isNothingToCommit(out) {
			return "", ErrNothingToCommit
		}
		return "", err
	}
	id, err := g.run(ctx, nil, "rev-parse", "HEAD")
	if err != nil {
		return "", err
	}
	return id, nil
}

func isNothingToCommit(output string) bool {
	return strings.Contains(output, "nothing to commit") ||
		strings.Contains(output, "nothing added to commit") ||
		strings.Contains(output, "no changes added to commit")
}
