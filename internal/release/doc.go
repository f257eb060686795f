// Package release talks to the GitHub releases API.
//
// It normalizes version arguments into tags, fetches the release published
// for a tag and returns its assets after validating the payload against an
// embedded JSON schema.
package release
