// Package download fetches release assets into memory.
//
// Redirects are resolved by the downloader itself rather than by net/http so
// that every hop is logged and the hop count is bounded explicitly.
package download
