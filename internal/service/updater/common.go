package updater

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/mitchellh/go-ps"

	"github.com/k4kratik/homebrew-smart-rds-viewer/internal/logger"
)

const (
	// markerSuffix is appended to the hidden formula name to form the marker file.
	markerSuffix = ".update-marker"

	// markerLifetime is the period after which a marker is ignored even if its process lives.
	markerLifetime = 15 * time.Minute

	// markerFileMode restricts the marker to the current user.
	markerFileMode os.FileMode = 0o600

	// commNameLimit is the length at which process tables truncate executable names.
	commNameLimit = 15
)

// errUpdaterRunning indicates that another run holds the marker for the same formula.
var errUpdaterRunning = errors.New("another formula update is running")

// updaterExecutable is the executable name a marker holder must run under.
var updaterExecutable = executableName()

// executableName returns the base name of the running binary.
func executableName() string {
	path, err := os.Executable()
	if err != nil {
		path = os.Args[0]
	}

	return filepath.Base(path)
}

// sameExecutable compares a process table name with the updater's own name.
// Process tables may truncate long names, so a truncated prefix also matches.
func sameExecutable(name, own string) bool {
	if name == "" {
		return false
	}

	if name == own {
		return true
	}

	return len(name) >= commNameLimit && strings.HasPrefix(own, name)
}

// MarkerPath returns the marker file guarding formulaPath.
func MarkerPath(formulaPath string) string {
	dir, name := filepath.Split(filepath.Clean(formulaPath))

	return filepath.Join(dir, "."+name+markerSuffix)
}

// acquireMarker creates the marker for formulaPath, recovering stale ones.
// Only a marker held by a live process named executable blocks the run.
// The returned function removes it.
func acquireMarker(ctx context.Context, formulaPath, executable string) (func(), error) {
	path := MarkerPath(formulaPath)

	for attempt := 0; attempt < 2; attempt++ {
		file, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, markerFileMode)
		if err == nil {
			_, err = file.WriteString(strconv.Itoa(os.Getpid()))
			if closeErr := file.Close(); err == nil {
				err = closeErr
			}

			if err != nil {
				_ = os.Remove(path)
				return nil, fmt.Errorf("write update marker: %w", err)
			}

			return func() {
				_ = os.Remove(path)
			}, nil
		}

		if !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create update marker: %w", err)
		}

		if isMarkerHeld(ctx, formulaPath, executable) {
			return nil, fmt.Errorf("%s: %w", path, errUpdaterRunning)
		}

		logger.InfoKV(ctx, "Removing stale update marker", "path", path)

		if err = os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("remove stale update marker: %w", err)
		}
	}

	return nil, fmt.Errorf("%s: %w", path, errUpdaterRunning)
}

// IsUpdaterRunningNow reports whether a fresh marker for formulaPath names a live updater process.
func IsUpdaterRunningNow(ctx context.Context, formulaPath string) bool {
	return isMarkerHeld(ctx, formulaPath, updaterExecutable)
}

// isMarkerHeld reports whether a fresh marker for formulaPath names a live process running executable.
func isMarkerHeld(ctx context.Context, formulaPath, executable string) bool {
	path := MarkerPath(formulaPath)

	fileInfo, err := os.Stat(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			logger.Warnf(ctx, "Unable to read update marker: %v", err)
		}

		return false
	}

	if time.Since(fileInfo.ModTime()) > markerLifetime {
		logger.Info(ctx, "The update marker is too old")
		return false
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		return false
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(contents)))
	if err != nil || pid <= 0 || pid == os.Getpid() {
		return false
	}

	process, err := ps.FindProcess(pid)
	if err != nil || process == nil {
		return false
	}

	if !sameExecutable(process.Executable(), executable) {
		logger.InfoKV(ctx, "Update marker names an unrelated process",
			"pid", pid, "executable", process.Executable())

		return false
	}

	logger.InfoKV(ctx, "Update marker is held by a running process",
		"pid", pid, "executable", process.Executable())

	return true
}
