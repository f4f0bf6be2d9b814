package vault

import (
	"fmt"

	"github.com/peerdata/yyy/archive"
	"github.com/peerdata/yyy/codec"
	"github.com/peerdata/yyy/dataset"
)

// Bundle is everything one collection run stores for a venue.
type Bundle struct {
	RevData dataset.RevData
	SubData dataset.SubData
	Params  Params
	Stats   Stats

	// License records; nil when the license group was not loaded.
	RevLicenses []License
	SubLicenses []License
}

// Store appends a bundle to arc. With withLicenses the license group is
// written first under pw.Licenses; the data group follows under pw.Data.
func Store(arc *archive.Archive, prefix string, b *Bundle, pw Passwords, withLicenses bool) error {
	if withLicenses {
		sub, err := EncodeLicenses(b.SubLicenses)
		if err != nil {
			return err
		}
		rev, err := EncodeLicenses(b.RevLicenses)
		if err != nil {
			return err
		}
		if err := arc.Write(EntryNames(prefix, licenseGroup), [][]byte{sub, rev}, pw.Licenses); err != nil {
			return fmt.Errorf("store licenses: %w", err)
		}
	}

	revData := b.RevData
	if revData == nil {
		revData = dataset.RevData{}
	}
	subData := b.SubData
	if subData == nil {
		subData = dataset.SubData{}
	}

	blobs := make([][]byte, 0, len(dataGroup))
	for _, v := range []any{revData, b.Params, b.Stats, subData} {
		blob, err := codec.Default.Marshal(v)
		if err != nil {
			return err
		}
		blobs = append(blobs, blob)
	}
	if err := arc.Write(EntryNames(prefix, dataGroup), blobs, pw.Data); err != nil {
		return fmt.Errorf("store data: %w", err)
	}
	return nil
}

// Load reads a venue's bundle from arc. The license group is read only with
// withLicenses.
func Load(arc *archive.Archive, prefix string, pw Passwords, withLicenses bool) (*Bundle, error) {
	b := &Bundle{}

	if withLicenses {
		blobs, err := arc.Read(EntryNames(prefix, licenseGroup), pw.Licenses)
		if err != nil {
			return nil, fmt.Errorf("load licenses: %w", err)
		}
		if b.SubLicenses, err = DecodeLicenses(blobs[0]); err != nil {
			return nil, err
		}
		if b.RevLicenses, err = DecodeLicenses(blobs[1]); err != nil {
			return nil, err
		}
	}

	blobs, err := arc.Read(EntryNames(prefix, dataGroup), pw.Data)
	if err != nil {
		return nil, fmt.Errorf("load data: %w", err)
	}
	for i, dst := range []any{&b.RevData, &b.Params, &b.Stats, &b.SubData} {
		if err := codec.Default.Unmarshal(blobs[i], dst); err != nil {
			return nil, fmt.Errorf("decode %s%s: %w", prefix, dataGroup[i], err)
		}
	}
	return b, nil
}
