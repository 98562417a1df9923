package checkpoint

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/dendrascience/fastgen/internal/logger"
)

// GoGit checkpoints through an in-process go-git repository, for hosts
// without a git binary.
type GoGit struct {
	Dir string
	Log logger.Logger

	mu   sync.Mutex
	repo *git.Repository
}

func NewGoGit(dir string, log logger.Logger) *GoGit {
	if log == nil {
		log = logger.Nop()
	}
	return &GoGit{Dir: dir, Log: log}
}

func (g *GoGit) Init(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}

	repo, err := git.PlainOpen(g.Dir)
	if err == nil {
		g.repo = repo
		g.Log.Debug("repository already initialized", "dir", g.Dir)
		return nil
	}
	if !errors.Is(err, git.ErrRepositoryNotExists) {
		return fmt.Errorf("open repository %s: %w", g.Dir, err)
	}

	repo, err = git.PlainInit(g.Dir, false)
	if err != nil {
		return fmt.Errorf("init repository %s: %w", g.Dir, err)
	}
	cfg, err := repo.Config()
	if err != nil {
		return fmt.Errorf("read repository config: %w", err)
	}
	cfg.User.Name = AuthorName
	cfg.User.Email = AuthorEmail
	core := cfg.Raw.Section("core")
	core.SetOption("autocrlf", "false")
	core.SetOption("compression", "0")
	core.SetOption("bigFileThreshold", "1m")
	if err := repo.SetConfig(cfg); err != nil {
		return fmt.Errorf("write repository config: %w", err)
	}

	g.repo = repo
	g.Log.Info("initialized repository", "dir", g.Dir, "backend", "go-git")
	return nil
}

func (g *GoGit) worktree() (*git.Worktree, error) {
	if g.repo == nil {
		return nil, errors.New("repository not initialized")
	}
	return g.repo.Worktree()
}

func (g *GoGit) Add(ctx context.Context, paths []string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	wt, err := g.worktree()
	if err != nil {
		return err
	}
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return err
		}
		rel, err := g.relative(p)
		if err != nil {
			return err
		}
		if _, err := wt.Add(rel); err != nil {
			return fmt.Errorf("add %s: %w", rel, err)
		}
	}
	return nil
}

func (g *GoGit) relative(p string) (string, error) {
	if !filepath.IsAbs(p) {
		return filepath.ToSlash(filepath.Clean(p)), nil
	}
	root, err := filepath.Abs(g.Dir)
	if err != nil {
		return "", err
	}
	rel, err := filepath.Rel(root, p)
	if err != nil {
		return "", fmt.Errorf("path %s outside %s: %w", p, g.Dir, err)
	}
	return filepath.ToSlash(rel), nil
}

func (g *GoGit) Commit(ctx context.Context, message string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return "", err
	}
	wt, err := g.worktree()
	if err != nil {
		return "", err
	}
	hash, err := wt.Commit(message, &git.CommitOptions{
		Author: &object.Signature{
			Name:  AuthorName,
			Email: AuthorEmail,
			When:  time.Now(),
		},
	})
	if errors.Is(err, git.ErrEmptyCommit) {
		return "", ErrNothingToCommit
	}
	if err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}
	return hash.String(), nil
}
