// Package config defines the settings of a formula update run and provides
// helpers to load, validate and save them in YAML format.
//
// Every field has a default, so running without a settings file updates the
// smart-rds-viewer formula shipped in this repository.
package config
