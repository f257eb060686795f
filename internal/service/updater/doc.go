// Package updater updates the Homebrew formula for a published release.
//
// It fetches the release metadata, downloads and hashes every asset in
// order, patches the formula's version and sha256 declarations and writes it
// back atomically, optionally committing the result to the tap repository.
// A marker file next to the formula prevents two runs from racing.
package updater
