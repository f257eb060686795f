// Package tap commits an updated formula to the git repository (the Homebrew
// tap) that contains it.
package tap
