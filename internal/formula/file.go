package formula

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	goupdate "github.com/doitdistributed/go-update"

	"github.com/k4kratik/homebrew-smart-rds-viewer/internal/checksum"
)

// Load reads and parses the formula at path.
func Load(path string) (*Formula, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read formula: %w", err)
	}

	return Parse(data), nil
}

// Save replaces the formula at path atomically: the new content is written
// next to it, verified against its SHA-256 and renamed over the old file.
// The existing file mode is kept.
func Save(path string, f *Formula) error {
	path = filepath.Clean(path)

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat formula: %w", err)
	}

	data := f.Bytes()

	options := goupdate.Options{
		TargetPath: path,
		TargetMode: info.Mode().Perm(),
		Checksum:   checksum.SHA256(data),
		Hash:       checksum.Function,
	}

	if err = goupdate.Apply(bytes.NewReader(data), options); err != nil {
		return fmt.Errorf("write formula: %w", err)
	}

	return nil
}

// Change is a line that differs between two versions of a formula.
type Change struct {
	// Line is the 1-based line number.
	Line int
	// Old is the previous text, empty for added lines.
	Old string
	// New is the replacement text, empty for removed lines.
	New string
}

// Diff compares two formulas line by line.
func Diff(before, after *Formula) []Change {
	var changes []Change

	total := max(len(before.lines), len(after.lines))

	for i := 0; i < total; i++ {
		var oldText, newText string

		if i < len(before.lines) {
			oldText = before.lines[i].text
		}

		if i < len(after.lines) {
			newText = after.lines[i].text
		}

		if oldText != newText {
			changes = append(changes, Change{Line: i + 1, Old: oldText, New: newText})
		}
	}

	return changes
}
