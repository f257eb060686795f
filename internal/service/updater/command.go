package updater

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/k4kratik/homebrew-smart-rds-viewer/internal/checksum"
	"github.com/k4kratik/homebrew-smart-rds-viewer/internal/config"
	"github.com/k4kratik/homebrew-smart-rds-viewer/internal/download"
	"github.com/k4kratik/homebrew-smart-rds-viewer/internal/formula"
	"github.com/k4kratik/homebrew-smart-rds-viewer/internal/logger"
	"github.com/k4kratik/homebrew-smart-rds-viewer/internal/network"
	"github.com/k4kratik/homebrew-smart-rds-viewer/internal/release"
	"github.com/k4kratik/homebrew-smart-rds-viewer/internal/tap"
	"github.com/k4kratik/homebrew-smart-rds-viewer/internal/version"
)

// Options are inputs accepted by the updater entry point.
type Options struct {
	// ConfigPath is the optional path to the settings YAML file.
	ConfigPath string
	// Version is the release to package, with or without the "v" prefix.
	// The configured default version is used when empty.
	Version string
	// FormulaPath overrides the configured formula path.
	FormulaPath string
	// DryRun reports the changes without writing the formula.
	DryRun bool
	// Commit commits the updated formula to the tap repository.
	Commit bool
	// Progress receives download progress bars; nil disables them.
	Progress io.Writer
}

// runner holds the state of a single update execution.
// Callers go through Run.
type runner struct {
	cfg        *config.Config       // Settings with defaults applied.
	opts       *Options             // Caller options.
	version    string               // Normalized version without the "v" prefix.
	repo       release.Repository   // Repository whose release is packaged.
	releases   *release.Client      // GitHub releases API client.
	downloader *download.Downloader // Asset downloader.
}

// Run executes the update and is the public entry point for the CLI.
func Run(ctx context.Context, opts *Options) error {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "formula-updater")

	up, err := newRunner(opts)
	if err != nil {
		return err
	}

	ctx = logger.WithKV(ctx, "version", up.version)

	if err = up.Run(ctx); err != nil {
		logger.ErrorKV(ctx, "Formula update failed", "error", err)
		return err
	}

	return nil
}

// newRunner loads settings and prepares the API client and downloader.
func newRunner(opts *Options) (*runner, error) {
	if opts == nil {
		opts = new(Options)
	}

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, err
	}

	if opts.FormulaPath != "" {
		cfg.FormulaPath = opts.FormulaPath
	}

	rawVersion := opts.Version
	if strings.TrimSpace(rawVersion) == "" {
		rawVersion = cfg.DefaultVersion
	}

	normalized, err := release.NormalizeVersion(rawVersion)
	if err != nil {
		return nil, err
	}

	repo, err := release.ParseRepository(cfg.Repository)
	if err != nil {
		return nil, err
	}

	httpClient := network.NewClient(network.Options{
		Timeout:           cfg.Timeout,
		RequestsPerSecond: cfg.RequestsPerSecond,
		UserAgent:         version.UserAgent(),
	})

	return &runner{
		cfg:     cfg,
		opts:    opts,
		version: normalized,
		repo:    repo,
		releases: release.NewClient(cfg.APIBaseURL,
			release.WithHTTPClient(httpClient),
			release.WithToken(cfg.Token),
		),
		downloader: download.New(
			download.WithHTTPClient(httpClient),
			download.WithMaxRedirects(cfg.MaxRedirects),
			download.WithProgress(opts.Progress),
		),
	}, nil
}

// Run performs the linear update sequence:
// 1) Load the formula.
// 2) Guard against a concurrent run.
// 3) Fetch the release assets.
// 4) Download and hash each asset.
// 5) Patch and save the formula.
// 6) Optionally commit it.
func (u *runner) Run(ctx context.Context) error {
	logger.InfoKV(ctx, "Updating Homebrew formula",
		"repository", u.repo.String(), "tag", release.Tag(u.version), "formula", u.cfg.FormulaPath)

	current, err := formula.Load(u.cfg.FormulaPath)
	if err != nil {
		return err
	}

	if !u.opts.DryRun {
		releaseMarker, err := acquireMarker(ctx, u.cfg.FormulaPath, updaterExecutable)
		if err != nil {
			return err
		}

		defer releaseMarker()
	}

	logger.Info(ctx, "Fetching release metadata")

	assets, err := u.releases.FetchAssets(ctx, u.repo, u.version)
	if err != nil {
		return fmt.Errorf("get release assets: %w", err)
	}

	digests, err := u.hashAssets(ctx, assets)
	if err != nil {
		return err
	}

	updated := current.Clone()

	result, err := updated.Patch(u.version, digests)
	if err != nil {
		return fmt.Errorf("patch formula: %w", err)
	}

	u.reportPatch(ctx, updated, result)

	changes := formula.Diff(current, updated)

	if u.opts.DryRun {
		u.reportChanges(ctx, changes)
		logger.Info(ctx, "Dry run, formula left unchanged")

		return nil
	}

	if len(changes) == 0 {
		logger.Info(ctx, "Formula is already up to date")
	} else {
		if err = formula.Save(u.cfg.FormulaPath, updated); err != nil {
			return err
		}

		logger.InfoKV(ctx, "Formula updated with SHA256 hashes", "changed_lines", len(changes))
	}

	if u.opts.Commit {
		if err = u.commit(ctx); err != nil {
			return err
		}
	}

	logger.Info(ctx, "Formula updated successfully")

	return nil
}

// hashAssets downloads every asset in order and returns their digests.
// The first failure aborts the remaining downloads.
func (u *runner) hashAssets(ctx context.Context, assets []release.Asset) ([]formula.Digest, error) {
	digests := make([]formula.Digest, 0, len(assets))

	for _, asset := range assets {
		logger.InfoKV(ctx, "Downloading asset", "asset", asset.Name, "url", asset.DownloadURL)

		body, err := u.downloader.Fetch(ctx, asset.DownloadURL)
		if err != nil {
			return nil, fmt.Errorf("download %s: %w", asset.Name, err)
		}

		if asset.Size > 0 && int64(len(body)) != asset.Size {
			logger.WarnKV(ctx, "Downloaded size differs from release metadata",
				"asset", asset.Name, "expected", asset.Size, "actual", len(body))
		}

		sum := checksum.SHA256Hex(body)
		logger.InfoKV(ctx, "Checksum computed", "asset", asset.Name, "sha256", sum)

		digests = append(digests, formula.Digest{Asset: asset.Name, SHA256: sum})
	}

	return digests, nil
}

// reportPatch warns about assets and checksum lines that did not pair up.
func (u *runner) reportPatch(ctx context.Context, updated *formula.Formula, result *formula.Result) {
	for _, asset := range result.Unmatched {
		logger.WarnKV(ctx, "No checksum line for asset", "asset", asset)
	}

	for _, entry := range updated.Entries() {
		if !checksum.IsSHA256Hex(entry.SHA256) {
			logger.WarnKV(ctx, "Checksum line left without a digest",
				"line", entry.Line, "asset", entry.Asset, "value", entry.SHA256)
		}
	}
}

// reportChanges logs every changed line for a dry run.
func (u *runner) reportChanges(ctx context.Context, changes []formula.Change) {
	if len(changes) == 0 {
		logger.Info(ctx, "No changes")
		return
	}

	for _, change := range changes {
		logger.InfoKV(ctx, "Would change line",
			"line", change.Line,
			"old", strings.TrimSpace(change.Old),
			"new", strings.TrimSpace(change.New))
	}
}

// commit records the formula in the tap repository.
func (u *runner) commit(ctx context.Context) error {
	name := strings.TrimSuffix(filepath.Base(u.cfg.FormulaPath), filepath.Ext(u.cfg.FormulaPath))
	message := name + " " + u.version

	_, err := tap.Commit(ctx, u.cfg.FormulaPath, message, u.cfg.CommitAuthor)
	if errors.Is(err, tap.ErrNothingToCommit) {
		logger.Info(ctx, "Nothing to commit")
		return nil
	}

	if err != nil {
		return fmt.Errorf("commit formula: %w", err)
	}

	return nil
}
