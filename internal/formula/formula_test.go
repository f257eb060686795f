package formula

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/k4kratik/homebrew-smart-rds-viewer/internal/checksum"
	"github.com/k4kratik/homebrew-smart-rds-viewer/internal/release"
)

var (
	sumMacOS = checksum.SHA256Hex([]byte("macos"))
	sumArm64 = checksum.SHA256Hex([]byte("linux-arm64"))
	sumAmd64 = checksum.SHA256Hex([]byte("linux-amd64"))
)

// loadTemplate parses the formula template shipped with the tap.
func loadTemplate(t *testing.T) (*Formula, []byte) {
	t.Helper()

	data, err := os.ReadFile(filepath.Join("testdata", "smart-rds-viewer.rb"))
	require.NoError(t, err)

	return Parse(data), data
}

// releaseDigests returns digests for the three assets of a smart-rds-viewer release.
func releaseDigests() []Digest {
	return []Digest{
		{Asset: "smart-rds-viewer-macos", SHA256: sumMacOS},
		{Asset: "smart-rds-viewer-linux-arm64", SHA256: sumArm64},
		{Asset: "smart-rds-viewer-linux-amd64", SHA256: sumAmd64},
	}
}

// TestParse_RoundTrip ensures unchanged formulas serialize byte-identically.
func TestParse_RoundTrip(t *testing.T) {
	t.Parallel()

	f, data := loadTemplate(t)
	require.Equal(t, data, f.Bytes())

	for _, raw := range []string{
		"",
		"\n",
		"class A < Formula\nend",
		"class A < Formula\r\n  version \"1.0\"\r\nend\r\n",
		"class A < Formula\r\n  version \"1.0\"\nend\r",
		"a\n\n\nb\n\n",
	} {
		require.Equal(t, raw, string(Parse([]byte(raw)).Bytes()), raw)
	}
}

// TestParse_Anchors resolves placeholder lines through the preceding url.
func TestParse_Anchors(t *testing.T) {
	t.Parallel()

	f, _ := loadTemplate(t)

	version, ok := f.Version()
	require.True(t, ok)
	require.Equal(t, "0.0.18", version)

	entries := f.Entries()
	require.Len(t, entries, 4)

	assets := make([]string, 0, len(entries))
	for _, entry := range entries {
		require.Equal(t, "PLACEHOLDER_SHA256", entry.SHA256)

		assets = append(assets, entry.Asset)
	}

	require.Equal(t, []string{
		"smart-rds-viewer-macos",
		"smart-rds-viewer-macos",
		"smart-rds-viewer-linux-arm64",
		"smart-rds-viewer-linux-amd64",
	}, assets)
}

// TestParse_MixedLineEndings finds declarations on LF lines of a file that also uses CRLF.
func TestParse_MixedLineEndings(t *testing.T) {
	t.Parallel()

	source := "class Tool < Formula\r\n" +
		"  version \"0.1\"\n" +
		"  url \"https://example.com/v0.1/tool-linux-amd64\"\r\n" +
		"  sha256 \"PLACEHOLDER_SHA256\" # This will be updated by the workflow\n" +
		"end\r\n"

	f := Parse([]byte(source))
	require.Equal(t, source, string(f.Bytes()))

	result, err := f.Patch("0.2", []Digest{{Asset: "tool-linux-amd64", SHA256: sumAmd64}})
	require.NoError(t, err)
	require.Empty(t, result.Unmatched)

	require.Equal(t, "class Tool < Formula\r\n"+
		"  version \"0.2\"\n"+
		"  url \"https://example.com/v0.1/tool-linux-amd64\"\r\n"+
		"  sha256 \""+sumAmd64+"\" # tool-linux-amd64\n"+
		"end\r\n", string(f.Bytes()))
}

// TestParse_AnchorFallsBackForNonAssetComments anchors placeholder tags such as TODO to the url.
func TestParse_AnchorFallsBackForNonAssetComments(t *testing.T) {
	t.Parallel()

	f := Parse([]byte(strings.Join([]string{
		`  url "https://example.com/v1/tool-linux-amd64"`,
		`  sha256 "PLACEHOLDER_SHA256" # TODO`,
		`  url "https://example.com/v1/tool"`,
		`  sha256 "PLACEHOLDER_SHA256" # tool`,
		`  url "https://example.com/v1/tool-linux-arm64"`,
		`  sha256 "PLACEHOLDER_SHA256" # tool-linux-arm64.zip`,
		`  sha256 "PLACEHOLDER_SHA256" # FIXME`,
	}, "\n")))

	assets := make([]string, 0, 4)
	for _, entry := range f.Entries() {
		assets = append(assets, entry.Asset)
	}

	require.Equal(t, []string{"tool-linux-amd64", "tool", "tool-linux-arm64.zip", "tool-linux-arm64"}, assets)

	replaced, err := f.SetChecksum("tool-linux-amd64", sumAmd64)
	require.NoError(t, err)
	require.Equal(t, 1, replaced)
	require.Contains(t, string(f.Bytes()), `  sha256 "`+sumAmd64+`" # tool-linux-amd64`)
}

// TestPatch_Template rewrites exactly one version and the anchored sha256 lines.
func TestPatch_Template(t *testing.T) {
	t.Parallel()

	f, _ := loadTemplate(t)
	before := f.Clone()

	result, err := f.Patch("1.2.3", releaseDigests())
	require.NoError(t, err)
	require.Empty(t, result.Unmatched)
	require.Equal(t, map[string]int{
		"smart-rds-viewer-macos":       2,
		"smart-rds-viewer-linux-arm64": 1,
		"smart-rds-viewer-linux-amd64": 1,
	}, result.Replaced)

	changes := Diff(before, f)
	require.Len(t, changes, 5)
	require.Equal(t, `  version "1.2.3"`, changes[0].New)

	out := string(f.Bytes())
	require.Contains(t, out, `      sha256 "`+sumMacOS+`" # smart-rds-viewer-macos`)
	require.Contains(t, out, `      sha256 "`+sumArm64+`" # smart-rds-viewer-linux-arm64`)
	require.Contains(t, out, `      sha256 "`+sumAmd64+`" # smart-rds-viewer-linux-amd64`)
	require.Contains(t, out, `releases/download/v#{version}/smart-rds-viewer-macos"`)
	require.NotContains(t, out, "PLACEHOLDER_SHA256")
}

// TestPatch_Idempotent re-applies the same update and expects identical bytes.
func TestPatch_Idempotent(t *testing.T) {
	t.Parallel()

	f, _ := loadTemplate(t)

	_, err := f.Patch("1.2.3", releaseDigests())
	require.NoError(t, err)

	first := f.Bytes()

	again := Parse(first)

	result, err := again.Patch("1.2.3", releaseDigests())
	require.NoError(t, err)
	require.Empty(t, result.Unmatched)
	require.Equal(t, first, again.Bytes())
}

// TestSetChecksum_ExactAnchors keeps similarly named assets apart.
func TestSetChecksum_ExactAnchors(t *testing.T) {
	t.Parallel()

	f := Parse([]byte(strings.Join([]string{
		`  version '0.1'`,
		`  sha256 "` + sumArm64 + `" # tool-linux-arm64.zip`,
		`  sha256 "` + sumArm64 + `" # tool-linux-arm64`,
		``,
	}, "\n")))

	replaced, err := f.SetChecksum("tool-linux-arm64", sumAmd64)
	require.NoError(t, err)
	require.Equal(t, 1, replaced)

	entries := f.Entries()
	require.Equal(t, Entry{Asset: "tool-linux-arm64.zip", SHA256: sumArm64, Line: 2}, entries[0])
	require.Equal(t, Entry{Asset: "tool-linux-arm64", SHA256: sumAmd64, Line: 3}, entries[1])

	require.NoError(t, f.SetVersion("0.2"))
	require.True(t, strings.HasPrefix(string(f.Bytes()), `  version "0.2"`+"\n"))
}

// TestPatch_Failures leaves the formula untouched on error.
func TestPatch_Failures(t *testing.T) {
	t.Parallel()

	f, data := loadTemplate(t)

	_, err := f.Patch("1.2.3", []Digest{{Asset: "smart-rds-viewer-macos", SHA256: "nope"}})
	require.ErrorIs(t, err, ErrInvalidChecksum)
	require.Equal(t, data, f.Bytes())

	_, err = f.Patch("1.2.3", []Digest{{Asset: "smart rds", SHA256: sumMacOS}})
	require.ErrorIs(t, err, ErrInvalidAssetName)

	_, err = f.Patch(`1.2.3" evil`, releaseDigests())
	require.ErrorIs(t, err, release.ErrInvalidVersion)
	require.Equal(t, data, f.Bytes())

	_, err = Parse([]byte("class A < Formula\nend\n")).Patch("1.0", nil)
	require.ErrorIs(t, err, ErrVersionNotFound)
}

// TestPatch_ReportsUnmatched lists assets without a checksum line.
func TestPatch_ReportsUnmatched(t *testing.T) {
	t.Parallel()

	f, _ := loadTemplate(t)

	digests := append(releaseDigests(), Digest{Asset: "checksums.txt", SHA256: sumMacOS})

	result, err := f.Patch("1.2.3", digests)
	require.NoError(t, err)
	require.Equal(t, []string{"checksums.txt"}, result.Unmatched)
}

// TestSave_ReplacesFile writes atomically and keeps the file mode.
func TestSave_ReplacesFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "smart-rds-viewer.rb")

	_, data := loadTemplate(t)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	f, err := Load(path)
	require.NoError(t, err)

	_, err = f.Patch("2.0.0", releaseDigests())
	require.NoError(t, err)
	require.NoError(t, Save(path, f))

	written, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, f.Bytes(), written)

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o644), info.Mode().Perm())

	leftovers, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, leftovers, 1)

	require.ErrorIs(t, Save(filepath.Join(dir, "missing.rb"), f), os.ErrNotExist)

	_, err = Load(filepath.Join(dir, "missing.rb"))
	require.ErrorIs(t, err, os.ErrNotExist)
}
