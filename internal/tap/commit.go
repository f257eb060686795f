package tap

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"path/filepath"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/k4kratik/homebrew-smart-rds-viewer/internal/logger"
)

var (
	// ErrNothingToCommit is returned when the formula matches the committed version.
	ErrNothingToCommit = errors.New("formula has no changes to commit")
	// ErrInvalidAuthor is returned when the author is not in "Name <email>" form.
	ErrInvalidAuthor = errors.New("author must be in \"Name <email>\" form")
)

// Commit stages the formula at formulaPath and commits it with message.
// The repository is found by walking up from the formula's directory.
// It returns the new commit hash.
func Commit(ctx context.Context, formulaPath, message, author string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	signature, err := parseAuthor(author)
	if err != nil {
		return "", err
	}

	absolutePath, err := filepath.Abs(formulaPath)
	if err != nil {
		return "", fmt.Errorf("resolve formula path: %w", err)
	}

	repo, err := git.PlainOpenWithOptions(filepath.Dir(absolutePath), &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return "", fmt.Errorf("open tap repository: %w", err)
	}

	worktree, err := repo.Worktree()
	if err != nil {
		return "", fmt.Errorf("get worktree: %w", err)
	}

	root, err := filepath.EvalSymlinks(worktree.Filesystem.Root())
	if err != nil {
		return "", fmt.Errorf("resolve worktree root: %w", err)
	}

	resolvedPath, err := filepath.EvalSymlinks(absolutePath)
	if err != nil {
		return "", fmt.Errorf("resolve formula path: %w", err)
	}

	relativePath, err := filepath.Rel(root, resolvedPath)
	if err != nil {
		return "", fmt.Errorf("formula outside worktree: %w", err)
	}

	relativePath = filepath.ToSlash(relativePath)

	status, err := worktree.Status()
	if err != nil {
		return "", fmt.Errorf("get status: %w", err)
	}

	if _, changed := status[relativePath]; !changed {
		return "", fmt.Errorf("%s: %w", relativePath, ErrNothingToCommit)
	}

	if _, err = worktree.Add(relativePath); err != nil {
		return "", fmt.Errorf("stage formula: %w", err)
	}

	signature.When = time.Now()

	hash, err := worktree.Commit(message, &git.CommitOptions{Author: signature})
	if err != nil {
		return "", fmt.Errorf("commit formula: %w", err)
	}

	logger.InfoKV(ctx, "Committed formula", "path", relativePath, "commit", hash.String())

	return hash.String(), nil
}

// parseAuthor converts "Name <email>" into a commit signature.
func parseAuthor(author string) (*object.Signature, error) {
	address, err := mail.ParseAddress(author)
	if err != nil || address.Name == "" {
		return nil, fmt.Errorf("%q: %w", author, ErrInvalidAuthor)
	}

	return &object.Signature{
		Name:  address.Name,
		Email: address.Address,
	}, nil
}
