// Package network builds the HTTP client shared by the release API client
// and the asset downloader: explicit timeout, modern TLS, a User-Agent and a
// token-bucket limiter on every round trip.
package network
