package source

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

// GitSource synchronises a prompt repository from a remote Git URL
// (§4.2).
type GitSource struct {
	url           string
	defaultBranch string
	branch        string
	maxRetries    int
	pollInterval  time.Duration
	log           *slog.Logger

	mu       sync.Mutex
	repo     *git.Repository
	lastHash string
}

// NewGit constructs a GitSource. branch overrides defaultBranch when
// non-empty; maxRetries <= 0 means a single attempt.
func NewGit(url, defaultBranch, branch string, maxRetries int, pollInterval time.Duration, log *slog.Logger) *GitSource {
	if log == nil {
		log = slog.Default()
	}
	if branch == "" {
		branch = defaultBranch
	}
	if maxRetries <= 0 {
		maxRetries = 1
	}
	if pollInterval <= 0 {
		pollInterval = 30 * time.Second
	}
	return &GitSource{url: url, defaultBranch: defaultBranch, branch: branch, maxRetries: maxRetries, pollInterval: pollInterval, log: log}
}

func (s *GitSource) Kind() Kind   { return KindGit }
func (s *GitSource) URL() string  { return s.url }

// Validate reports whether url looks like a Git remote (§4.2: begins
// with http://, https://, or git@).
func (s *GitSource) Validate() bool {
	return strings.HasPrefix(s.url, "http://") ||
		strings.HasPrefix(s.url, "https://") ||
		strings.HasPrefix(s.url, "git@")
}

// Sync implements the clone-or-fetch-pull-or-reset algorithm with
// 1s·attempt backoff retries (§4.2).
func (s *GitSource) Sync(targetDir string) error {
	var lastErr error
	for attempt := 1; attempt <= s.maxRetries; attempt++ {
		if attempt > 1 {
			time.Sleep(time.Duration(attempt-1) * time.Second)
		}
		if err := s.syncOnce(targetDir); err != nil {
			lastErr = err
			s.log.Warn("git sync attempt failed", "url", s.url, "attempt", attempt, "err", err)
			continue
		}
		return nil
	}
	return &SyncError{URL: s.url, Err: lastErr}
}

func (s *GitSource) syncOnce(targetDir string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx := context.Background()
	repo, err := git.PlainOpen(targetDir)
	if err != nil {
		repo, err = git.PlainCloneContext(ctx, targetDir, false, &git.CloneOptions{
			URL:           s.url,
			ReferenceName: plumbing.NewBranchReferenceName(s.branch),
			SingleBranch:  true,
		})
		if err != nil {
			return fmt.Errorf("clone: %w", err)
		}
		s.repo = repo
		return nil
	}
	s.repo = repo

	wt, err := repo.Worktree()
	if err != nil {
		return fmt.Errorf("worktree: %w", err)
	}
	if err := repo.FetchContext(ctx, &git.FetchOptions{}); err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return fmt.Errorf("fetch: %w", err)
	}
	if err := wt.PullContext(ctx, &git.PullOptions{}); err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		s.log.Warn("pull --rebase diverged, resetting to remote", "branch", s.branch, "err", err)
		remoteRef, rerr := repo.Reference(plumbing.NewRemoteReferenceName("origin", s.branch), true)
		if rerr != nil {
			return fmt.Errorf("resolve origin/%s: %w", s.branch, rerr)
		}
		if err := wt.Reset(&git.ResetOptions{Commit: remoteRef.Hash(), Mode: git.HardReset}); err != nil {
			return fmt.Errorf("reset --hard: %w", err)
		}
	}
	return nil
}

// Watch polls the remote for updates to the configured branch. Each
// tick fetches, resolves origin/<branch>, and compares against the
// remembered hash; the first tick only records the hash. A changed hash
// triggers Sync and then onChange(""), signalling a bulk reload. stop
// releases the ticker and waits for the goroutine to exit.
func (s *GitSource) Watch(targetDir string, onChange func(path string)) (func(), error) {
	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)

	go func() {
		defer wg.Done()
		ticker := time.NewTicker(s.pollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				s.poll(targetDir, onChange)
			}
		}
	}()

	stop := func() {
		close(done)
		wg.Wait()
	}
	return stop, nil
}

func (s *GitSource) poll(targetDir string, onChange func(path string)) {
	s.mu.Lock()
	repo := s.repo
	s.mu.Unlock()
	if repo == nil {
		return
	}
	if err := repo.FetchContext(context.Background(), &git.FetchOptions{}); err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		s.log.Warn("git poll fetch failed", "err", err)
		return
	}
	ref, err := repo.Reference(plumbing.NewRemoteReferenceName("origin", s.branch), true)
	if err != nil {
		s.log.Warn("git poll resolve remote ref failed", "err", err)
		return
	}
	hash := ref.Hash().String()

	s.mu.Lock()
	first := s.lastHash == ""
	changed := s.lastHash != "" && s.lastHash != hash
	s.lastHash = hash
	s.mu.Unlock()

	if first || !changed {
		return
	}
	if err := s.Sync(targetDir); err != nil {
		s.log.Warn("git poll sync failed", "err", err)
		return
	}
	onChange("")
}
