package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/k4kratik/homebrew-smart-rds-viewer/internal/release"
)

// Config holds the settings of a formula update run.
type Config struct {
	// Repository is the GitHub repository in "owner/name" form whose releases are packaged.
	Repository string `yaml:"repository"`
	// FormulaPath is the Homebrew formula rewritten in place.
	FormulaPath string `yaml:"formula_path"`
	// APIBaseURL is the root of the GitHub REST API.
	APIBaseURL string `yaml:"api_base_url"`
	// DefaultVersion is used when no version argument is given.
	DefaultVersion string `yaml:"default_version"`
	// Timeout bounds every HTTP request, including the body transfer.
	Timeout time.Duration `yaml:"timeout"`
	// MaxRedirects is the number of redirect hops followed per asset download.
	MaxRedirects int `yaml:"max_redirects"`
	// RequestsPerSecond limits outgoing HTTP requests.
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	// LogFile is an optional rotating log file.
	LogFile string `yaml:"log_file,omitempty"`
	// CommitAuthor is the "Name <email>" identity used for tap commits.
	CommitAuthor string `yaml:"commit_author,omitempty"`
	// Token authenticates API calls. It is read from GITHUB_TOKEN and never persisted.
	Token string `yaml:"-"`
}

const (
	// DefaultConfigFilename is the default filename for updater settings.
	DefaultConfigFilename = "formula-updater.yaml"

	// DefaultRepository is the repository whose releases the formula packages.
	DefaultRepository = "k4kratik/smart-rds-viewer"

	// DefaultFormulaPath is the formula shipped in this repository.
	DefaultFormulaPath = "deployment/Formula/smart-rds-viewer.rb"

	// DefaultAPIBaseURL is the public GitHub API endpoint.
	DefaultAPIBaseURL = "https://api.github.com"

	// DefaultVersion is used when neither the CLI nor the config names a version.
	DefaultVersion = "1.0.0"

	// DefaultTimeout is the default duration for a single HTTP request.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxRedirects is the redirect bound for asset downloads.
	DefaultMaxRedirects = 10

	// DefaultRequestsPerSecond keeps the run well below GitHub's abuse limits.
	DefaultRequestsPerSecond = 5

	// DefaultCommitAuthor is used for tap commits when none is configured.
	DefaultCommitAuthor = "formula-updater <formula-updater@users.noreply.github.com>"

	// DefaultFilePermissions is the default file permission for config files.
	DefaultFilePermissions = 0o600

	// TokenEnv names the environment variable holding the GitHub token.
	TokenEnv = "GITHUB_TOKEN"
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errNegativeValue is returned when a numeric limit is negative.
	errNegativeValue = errors.New("value must not be negative")
)

// Default returns a validated configuration with every default applied.
func Default() *Config {
	cfg := new(Config)

	// Defaults always validate.
	_ = Validate(cfg)

	return cfg
}

// Load reads configuration from the provided path and validates essential fields.
// A missing file at the default location yields the defaults.
func Load(path string) (*Config, error) {
	explicit := path != "" && path != DefaultConfigFilename
	if path == "" {
		path = DefaultConfigFilename
	}

	var cfg Config

	contents, err := os.ReadFile(filepath.Clean(path))

	switch {
	case err == nil:
		if err = yaml.Unmarshal(contents, &cfg); err != nil {
			return nil, fmt.Errorf("unmarshal settings: %w", err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return nil, fmt.Errorf("read settings: %w", err)
	}

	if cfg.Token == "" {
		cfg.Token = strings.TrimSpace(os.Getenv(TokenEnv))
	}

	if err = Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes Config to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	// Restrict permissions.
	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate applies defaults and checks the provided settings for formatting.
func Validate(settings *Config) error {
	if settings == nil {
		return errConfigIsNotSet
	}

	if settings.Repository == "" {
		settings.Repository = DefaultRepository
	}

	if _, err := release.ParseRepository(settings.Repository); err != nil {
		return err
	}

	if settings.FormulaPath == "" {
		settings.FormulaPath = DefaultFormulaPath
	}

	if settings.APIBaseURL == "" {
		settings.APIBaseURL = DefaultAPIBaseURL
	}

	if _, err := url.ParseRequestURI(settings.APIBaseURL); err != nil {
		return fmt.Errorf("invalid API base URL: %w", err)
	}

	if settings.DefaultVersion == "" {
		settings.DefaultVersion = DefaultVersion
	}

	// Set default timeout if not specified
	if settings.Timeout <= 0 {
		settings.Timeout = DefaultTimeout
	}

	switch {
	case settings.MaxRedirects < 0:
		return fmt.Errorf("max_redirects: %w", errNegativeValue)
	case settings.MaxRedirects == 0:
		settings.MaxRedirects = DefaultMaxRedirects
	}

	switch {
	case settings.RequestsPerSecond < 0:
		return fmt.Errorf("requests_per_second: %w", errNegativeValue)
	case settings.RequestsPerSecond == 0:
		settings.RequestsPerSecond = DefaultRequestsPerSecond
	}

	if settings.CommitAuthor == "" {
		settings.CommitAuthor = DefaultCommitAuthor
	}

	return nil
}
