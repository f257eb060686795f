package download

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/k4kratik/homebrew-smart-rds-viewer/internal/logger"
)

var (
	// ErrTooManyRedirects is returned when a download exceeds the redirect bound.
	ErrTooManyRedirects = errors.New("too many HTTP redirects")
	// ErrBadHTTPStatus is returned for any non-success, non-redirect response.
	ErrBadHTTPStatus = errors.New("unexpected http status")
	// ErrMissingLocation is returned for a redirect without a Location header.
	ErrMissingLocation = errors.New("redirect without location")
)

// DefaultMaxRedirects is the number of redirects followed when none is configured.
const DefaultMaxRedirects = 10

// progressThrottle limits how often the progress bar is redrawn.
const progressThrottle = 100 * time.Millisecond

// Downloader fetches URLs, following redirects up to a fixed bound.
type Downloader struct {
	// httpClient performs single hops; its own redirect following is disabled.
	httpClient *http.Client
	// maxRedirects is the number of redirects allowed per download.
	maxRedirects int
	// progress receives a progress bar per download when set.
	progress io.Writer
}

// Option configures the downloader.
type Option func(*Downloader)

// WithHTTPClient sets the client used for each hop.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(d *Downloader) {
		if httpClient != nil {
			d.httpClient = httpClient
		}
	}
}

// WithMaxRedirects sets the redirect bound. Negative values are ignored.
func WithMaxRedirects(n int) Option {
	return func(d *Downloader) {
		if n >= 0 {
			d.maxRedirects = n
		}
	}
}

// WithProgress renders a progress bar to w while bodies are read.
func WithProgress(w io.Writer) Option {
	return func(d *Downloader) {
		d.progress = w
	}
}

// New creates a Downloader.
func New(opts ...Option) *Downloader {
	d := &Downloader{
		httpClient:   http.DefaultClient,
		maxRedirects: DefaultMaxRedirects,
	}

	for _, opt := range opts {
		opt(d)
	}

	// Work on a copy so the caller's client keeps its redirect policy.
	client := *d.httpClient
	client.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}

	d.httpClient = &client

	return d
}

// Fetch downloads rawURL and returns the body of the final response.
func (d *Downloader) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	current, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse download URL: %w", err)
	}

	for hop := 0; ; hop++ {
		response, err := d.get(ctx, current)
		if err != nil {
			return nil, err
		}

		switch {
		case response.StatusCode >= http.StatusOK && response.StatusCode < http.StatusMultipleChoices:
			return d.readBody(ctx, current, response)
		case response.StatusCode >= http.StatusMultipleChoices && response.StatusCode < http.StatusBadRequest:
			location := response.Header.Get("Location")
			_ = response.Body.Close()

			if hop >= d.maxRedirects {
				return nil, fmt.Errorf("%s after %d hops: %w", rawURL, hop, ErrTooManyRedirects)
			}

			if location == "" {
				return nil, fmt.Errorf("%s, %s: %w", current, response.Status, ErrMissingLocation)
			}

			next, err := current.Parse(location)
			if err != nil {
				return nil, fmt.Errorf("parse redirect location: %w", err)
			}

			logger.DebugKV(ctx, "Redirected", "from", current.String(), "to", next.String())

			current = next
		default:
			_ = response.Body.Close()

			return nil, fmt.Errorf("HTTP error %d for %s: %w", response.StatusCode, current, ErrBadHTTPStatus)
		}
	}
}

// get performs a single hop without following redirects.
func (d *Downloader) get(ctx context.Context, target *url.URL) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), http.NoBody)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Accept", "application/octet-stream")

	response, err := d.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", target, err)
	}

	return response, nil
}

// readBody drains the response, drawing a progress bar when configured.
func (d *Downloader) readBody(ctx context.Context, source *url.URL, response *http.Response) ([]byte, error) {
	defer func() {
		_ = response.Body.Close()
	}()

	var buffer bytes.Buffer

	if response.ContentLength > 0 {
		buffer.Grow(int(response.ContentLength))
	}

	var sink io.Writer = &buffer

	var bar *progressbar.ProgressBar

	if d.progress != nil && response.ContentLength > 0 {
		bar = progressbar.NewOptions64(response.ContentLength,
			progressbar.OptionSetWriter(d.progress),
			progressbar.OptionSetDescription(path.Base(source.Path)),
			progressbar.OptionShowBytes(true),
			progressbar.OptionSetWidth(40),
			progressbar.OptionThrottle(progressThrottle),
		)
		sink = io.MultiWriter(&buffer, bar)
	}

	written, err := io.Copy(sink, response.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", source, err)
	}

	if bar != nil {
		_ = bar.Finish()
		_, _ = fmt.Fprintln(d.progress)
	}

	logger.DebugKV(ctx, "Downloaded", "url", source.String(), "bytes", written)

	return buffer.Bytes(), nil
}
