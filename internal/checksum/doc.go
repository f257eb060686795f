// Package checksum computes the SHA-256 digests recorded in the formula.
package checksum
