package release

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/k4kratik/homebrew-smart-rds-viewer/internal/logger"
)

var (
	// ErrBadHTTPStatus is returned when the API answers with a non-200 status.
	ErrBadHTTPStatus = errors.New("unexpected http status")
	// ErrMalformedRelease is returned when the payload is not a valid release document.
	ErrMalformedRelease = errors.New("malformed release payload")
	// ErrNoAssets is returned when the release has no assets attached.
	ErrNoAssets = errors.New("no assets found in release")
)

// maxPayloadSize bounds the release document read into memory.
const maxPayloadSize = 8 << 20

//go:embed release.schema.json
var releaseSchemaSource string

//nolint:gochecknoglobals // Compiled once, the schema is immutable.
var releaseSchema = jsonschema.MustCompileString("release.schema.json", releaseSchemaSource)

// Asset is a downloadable file attached to a release.
type Asset struct {
	// Name is the file name, e.g. smart-rds-viewer-linux-amd64.
	Name string `json:"name"`
	// DownloadURL is the browser download URL, usually redirecting to a CDN.
	DownloadURL string `json:"browser_download_url"`
	// Size is the size in bytes reported by the API.
	Size int64 `json:"size"`
}

// payload is the subset of the GitHub release document the updater needs.
type payload struct {
	TagName string  `json:"tag_name"`
	Assets  []Asset `json:"assets"`
}

// Client fetches release metadata from the GitHub REST API.
type Client struct {
	// baseURL is the API root, e.g. https://api.github.com.
	baseURL string
	// httpClient performs the requests.
	httpClient *http.Client
	// token is an optional bearer token.
	token string
}

// Option configures the client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// WithToken authenticates requests with a bearer token.
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = strings.TrimSpace(token)
	}
}

// NewClient creates a client for the API rooted at baseURL.
func NewClient(baseURL string, opts ...Option) *Client {
	client := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: http.DefaultClient,
	}

	for _, opt := range opts {
		opt(client)
	}

	return client
}

// TagURL returns the release-by-tag endpoint for repo and a normalized version.
func (c *Client) TagURL(repo Repository, version string) (string, error) {
	endpoint, err := url.Parse(c.baseURL)
	if err != nil {
		return "", fmt.Errorf("parse API base URL: %w", err)
	}

	endpoint.Path = path.Join(endpoint.Path, "repos", repo.Owner, repo.Name, "releases", "tags", Tag(version))

	return endpoint.String(), nil
}

// FetchAssets returns the assets of the release tagged v<version>.
// An empty asset list is reported as ErrNoAssets.
func (c *Client) FetchAssets(ctx context.Context, repo Repository, version string) ([]Asset, error) {
	endpoint, err := c.TagURL(repo, version)
	if err != nil {
		return nil, err
	}

	logger.DebugKV(ctx, "Fetching release metadata", "url", endpoint)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")

	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	response, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get release %s: %w", Tag(version), err)
	}

	defer func() {
		_ = response.Body.Close()
	}()

	if response.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s, %s: %w", endpoint, response.Status, ErrBadHTTPStatus)
	}

	data, err := io.ReadAll(io.LimitReader(response.Body, maxPayloadSize))
	if err != nil {
		return nil, fmt.Errorf("read release %s: %w", Tag(version), err)
	}

	release, err := decode(data)
	if err != nil {
		return nil, err
	}

	if len(release.Assets) == 0 {
		return nil, fmt.Errorf("release %s: %w", Tag(version), ErrNoAssets)
	}

	logger.DebugKV(ctx, "Release metadata fetched", "tag", release.TagName, "assets", len(release.Assets))

	return release.Assets, nil
}

// decode validates data against the release schema and decodes it.
func decode(data []byte) (*payload, error) {
	var document any

	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()

	if err := decoder.Decode(&document); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedRelease, err)
	}

	if err := releaseSchema.Validate(document); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedRelease, err)
	}

	var release payload
	if err := json.Unmarshal(data, &release); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedRelease, err)
	}

	return &release, nil
}
