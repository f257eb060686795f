package formula

import "fmt"

// Digest is the checksum computed for one release asset.
type Digest struct {
	// Asset is the asset file name.
	Asset string
	// SHA256 is the lowercase hex digest of the asset bytes.
	SHA256 string
}

// Result summarizes a Patch call.
type Result struct {
	// Replaced maps each asset to the number of sha256 lines rewritten for it.
	Replaced map[string]int
	// Unmatched lists assets no sha256 line is anchored to, in input order.
	Unmatched []string
}

// Patch sets the version and the checksum of every digest. The formula is
// left untouched when an error is returned.
func (f *Formula) Patch(version string, digests []Digest) (*Result, error) {
	work := f.Clone()

	if err := work.SetVersion(version); err != nil {
		return nil, err
	}

	result := &Result{
		Replaced: make(map[string]int, len(digests)),
	}

	for _, digest := range digests {
		replaced, err := work.SetChecksum(digest.Asset, digest.SHA256)
		if err != nil {
			return nil, fmt.Errorf("set checksum: %w", err)
		}

		if replaced == 0 {
			result.Unmatched = append(result.Unmatched, digest.Asset)
			continue
		}

		result.Replaced[digest.Asset] += replaced
	}

	*f = *work

	return result, nil
}
