package formula

import (
	"bytes"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/k4kratik/homebrew-smart-rds-viewer/internal/checksum"
	"github.com/k4kratik/homebrew-smart-rds-viewer/internal/release"
)

var (
	// ErrVersionNotFound is returned when the formula has no version declaration.
	ErrVersionNotFound = errors.New("version declaration not found")
	// ErrInvalidChecksum is returned for digests that are not lowercase hex SHA-256.
	ErrInvalidChecksum = errors.New("checksum must be a lowercase hex sha256")
	// ErrInvalidAssetName is returned for names that cannot be used as a comment tag.
	ErrInvalidAssetName = errors.New("asset name must be a single non-empty token")
)

var (
	versionPattern = regexp.MustCompile(`^(\s*)version\s+(?:"([0-9.]*)"|'([0-9.]*)')(.*)$`)
	urlPattern     = regexp.MustCompile(`^\s*url\s+["']([^"']+)["']`)
	sha256Pattern  = regexp.MustCompile(`^(\s*)sha256\s+["']([^"']*)["']\s*(?:#\s*(.*?))?\s*$`)
)

// Kind classifies a formula line.
type Kind int

const (
	// KindOther is any line the updater does not rewrite.
	KindOther Kind = iota
	// KindVersion is a top-level version "x.y.z" declaration.
	KindVersion
	// KindURL is a url declaration.
	KindURL
	// KindSHA256 is a sha256 declaration.
	KindSHA256
)

// line is one line of the formula without its line ending.
type line struct {
	text string
	kind Kind
	// anchor is the asset a sha256 line belongs to; empty when unknown.
	anchor string
	// cr records a "\r" stripped before the "\n".
	cr bool
}

// Formula is a parsed Homebrew formula.
type Formula struct {
	lines []line
	// trailingEOL records whether the source ended with a line ending.
	trailingEOL bool
}

// Entry is a checksum declaration found in the formula.
type Entry struct {
	// Asset is the asset the declaration is anchored to.
	Asset string
	// SHA256 is the declared value, possibly a placeholder.
	SHA256 string
	// Line is the 1-based line number.
	Line int
}

// Parse splits data into classified lines. Each line keeps its own ending,
// so files mixing "\n" and "\r\n" re-serialize unchanged.
func Parse(data []byte) *Formula {
	f := new(Formula)

	text := string(data)
	if text == "" {
		return f
	}

	if strings.HasSuffix(text, "\n") {
		f.trailingEOL = true
		text = strings.TrimSuffix(text, "\n")
	}

	var lastURLAsset string

	for _, raw := range strings.Split(text, "\n") {
		l := line{text: raw}
		if strings.HasSuffix(raw, "\r") {
			l.text = strings.TrimSuffix(raw, "\r")
			l.cr = true
		}

		switch {
		case versionPattern.MatchString(l.text):
			l.kind = KindVersion
		case urlPattern.MatchString(l.text):
			l.kind = KindURL
			lastURLAsset = urlAsset(urlPattern.FindStringSubmatch(l.text)[1])
		case sha256Pattern.MatchString(l.text):
			l.kind = KindSHA256
			l.anchor = anchorOf(sha256Pattern.FindStringSubmatch(l.text)[3], lastURLAsset)
		}

		f.lines = append(f.lines, l)
	}

	return f
}

// Bytes serializes the formula with its original line endings.
func (f *Formula) Bytes() []byte {
	var buffer bytes.Buffer

	for i, l := range f.lines {
		buffer.WriteString(l.text)

		if l.cr {
			buffer.WriteByte('\r')
		}

		if i < len(f.lines)-1 || f.trailingEOL {
			buffer.WriteByte('\n')
		}
	}

	return buffer.Bytes()
}

// Clone returns an independent copy of the formula.
func (f *Formula) Clone() *Formula {
	clone := *f
	clone.lines = append([]line(nil), f.lines...)

	return &clone
}

// Version returns the value of the first version declaration.
func (f *Formula) Version() (string, bool) {
	for _, l := range f.lines {
		if l.kind != KindVersion {
			continue
		}

		groups := versionPattern.FindStringSubmatch(l.text)

		return groups[2] + groups[3], true
	}

	return "", false
}

// SetVersion rewrites the first version declaration, keeping indentation and any trailing comment.
func (f *Formula) SetVersion(version string) error {
	if err := release.ValidateVersion(version); err != nil {
		return err
	}

	for i, l := range f.lines {
		if l.kind != KindVersion {
			continue
		}

		groups := versionPattern.FindStringSubmatch(l.text)
		f.lines[i].text = groups[1] + `version "` + version + `"` + groups[4]

		return nil
	}

	return ErrVersionNotFound
}

// SetChecksum rewrites every sha256 line anchored to asset and returns how many were rewritten.
// Rewritten lines carry the asset name as trailing comment, which anchors them on later runs.
func (f *Formula) SetChecksum(asset, sum string) (int, error) {
	if !isAssetTag(asset) {
		return 0, fmt.Errorf("%q: %w", asset, ErrInvalidAssetName)
	}

	if !checksum.IsSHA256Hex(sum) {
		return 0, fmt.Errorf("%s: %q: %w", asset, sum, ErrInvalidChecksum)
	}

	replaced := 0

	for i, l := range f.lines {
		if l.kind != KindSHA256 || l.anchor != asset {
			continue
		}

		indent := sha256Pattern.FindStringSubmatch(l.text)[1]
		f.lines[i].text = indent + `sha256 "` + sum + `" # ` + asset
		replaced++
	}

	return replaced, nil
}

// Entries lists the sha256 declarations in file order.
func (f *Formula) Entries() []Entry {
	var entries []Entry

	for i, l := range f.lines {
		if l.kind != KindSHA256 {
			continue
		}

		entries = append(entries, Entry{
			Asset:  l.anchor,
			SHA256: sha256Pattern.FindStringSubmatch(l.text)[2],
			Line:   i + 1,
		})
	}

	return entries
}

// anchorOf picks the asset a sha256 line belongs to. A single-token comment
// names the asset when it looks like a file name: it matches the url, or it
// carries a "-", "_" or "." as release asset names do. Anything else, such as
// "TODO" or a free-text placeholder, defers to the url.
func anchorOf(comment, lastURLAsset string) string {
	comment = strings.TrimSpace(comment)
	if !isAssetTag(comment) {
		return lastURLAsset
	}

	if comment == lastURLAsset || lastURLAsset == "" || strings.ContainsAny(comment, "-_.") {
		return comment
	}

	return lastURLAsset
}

// isAssetTag reports whether comment is a single token usable as an asset name.
func isAssetTag(comment string) bool {
	return comment != "" && !strings.ContainsAny(comment, " \t\"'#")
}

// urlAsset returns the file name a url declaration points at.
func urlAsset(rawURL string) string {
	rawURL = strings.TrimRight(rawURL, "/")

	return rawURL[strings.LastIndex(rawURL, "/")+1:]
}
