package network

import (
	"crypto/tls"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// Options configures NewClient.
type Options struct {
	// Timeout bounds each request including reading the body.
	Timeout time.Duration
	// RequestsPerSecond is the limiter refill rate. Zero or less disables limiting.
	RequestsPerSecond float64
	// UserAgent is set on requests that do not carry one.
	UserAgent string
}

// limitBurst lets the first couple of requests through without waiting.
const limitBurst = 2

// NewClient returns an http.Client with a TLS 1.2+ transport and optional rate limiting.
func NewClient(opts Options) *http.Client {
	//nolint:forcetypeassert // http.DefaultTransport is always *http.Transport.
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.TLSClientConfig = &tls.Config{
		MinVersion: tls.VersionTLS12,
	}
	transport.ForceAttemptHTTP2 = true

	var roundTripper http.RoundTripper = transport

	if opts.RequestsPerSecond > 0 || opts.UserAgent != "" {
		limited := &limitedTransport{
			next:      transport,
			userAgent: opts.UserAgent,
		}

		if opts.RequestsPerSecond > 0 {
			limited.limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), limitBurst)
		}

		roundTripper = limited
	}

	return &http.Client{
		Transport: roundTripper,
		Timeout:   opts.Timeout,
	}
}

// limitedTransport waits on a token bucket before delegating the request.
type limitedTransport struct {
	// next performs the actual round trip.
	next http.RoundTripper
	// limiter is nil when rate limiting is disabled.
	limiter *rate.Limiter
	// userAgent is the default User-Agent header.
	userAgent string
}

// RoundTrip implements http.RoundTripper.
func (t *limitedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.limiter != nil {
		if err := t.limiter.Wait(req.Context()); err != nil {
			return nil, err
		}
	}

	if t.userAgent != "" && req.Header.Get("User-Agent") == "" {
		// RoundTrippers must not modify the caller's request.
		req = req.Clone(req.Context())
		req.Header.Set("User-Agent", t.userAgent)
	}

	return t.next.RoundTrip(req)
}
