// Package formula models a Homebrew formula as an ordered list of lines and
// rewrites its version and sha256 declarations.
//
// Only the declarations the updater owns are recognized; every other line is
// carried through verbatim, so an unchanged formula re-serializes to the same
// bytes, line endings included. A sha256 line belongs to the asset named by its
// trailing comment, or, for placeholder lines, to the file the nearest
// preceding url points at. A one-word comment counts as an asset name only
// when it matches that url or contains "-", "_" or ".", so tags like "TODO"
// fall back to the url.
package formula
