package vault

import (
	"errors"
	"fmt"
	"path/filepath"
	"slices"

	"github.com/peerdata/yyy/archive"
)

// ErrConfiguration is returned for missing or malformed required setup,
// such as a vault directory without its archive.
var ErrConfiguration = errors.New("configuration error")

// DiscoverVenues lists the escaped venue ids stored in arc, sorted. The
// single-venue prefix is reported as "". password must open the data group.
func DiscoverVenues(arc *archive.Archive, password []byte) ([]string, error) {
	names, err := arc.List(password)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{})
	for _, name := range names {
		if venue, _, ok := SplitEntryName(name); ok {
			seen[venue] = struct{}{}
		}
	}
	venues := make([]string, 0, len(seen))
	for v := range seen {
		venues = append(venues, v)
	}
	slices.Sort(venues)
	return venues, nil
}

// LoadAcrossVenues loads several venues from the default archive in dir.
// A nil venues discovers them from the entry names. The result is keyed by
// the venue ids as given (or as discovered).
func LoadAcrossVenues(dir string, venues []string, pw Passwords, withLicenses bool, optFns ...func(*archive.Options)) (map[string]*Bundle, error) {
	path := filepath.Join(dir, DefaultArchiveName)
	arc := archive.Open(path, optFns...)

	if _, err := arc.Entries(); err != nil {
		if errors.Is(err, archive.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s does not contain %s", ErrConfiguration, dir, DefaultArchiveName)
		}
		return nil, err
	}

	if venues == nil {
		var err error
		if venues, err = DiscoverVenues(arc, pw.Data); err != nil {
			return nil, err
		}
	}

	out := make(map[string]*Bundle, len(venues))
	for _, v := range venues {
		b, err := Load(arc, Prefix(v), pw, withLicenses)
		if err != nil {
			return nil, fmt.Errorf("venue %q: %w", v, err)
		}
		out[v] = b
	}
	return out, nil
}
