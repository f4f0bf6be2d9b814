package vault

import (
	"slices"
	"strings"
)

// Logical entry names.
const (
	RevDataName     = "rev_data.json"
	SubDataName     = "sub_data.json"
	ParamsName      = "params.json"
	StatsName       = "stats.json"
	RevLicensesName = "rev_licenses.csv"
	SubLicensesName = "sub_licenses.csv"
)

// DefaultArchiveName is the archive file looked up in a vault directory.
const DefaultArchiveName = "data.vault"

var (
	dataGroup    = []string{RevDataName, ParamsName, StatsName, SubDataName}
	licenseGroup = []string{SubLicensesName, RevLicensesName}
)

// DataGroup returns the logical names encrypted under the data password.
func DataGroup() []string { return slices.Clone(dataGroup) }

// LicenseGroup returns the logical names encrypted under the license password.
func LicenseGroup() []string { return slices.Clone(licenseGroup) }

// EscapeVenueID keeps only the ASCII letters and digits of a venue id.
// It is deterministic and idempotent.
func EscapeVenueID(venue string) string {
	var b strings.Builder
	b.Grow(len(venue))
	for i := 0; i < len(venue); i++ {
		c := venue[i]
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') {
			b.WriteByte(c)
		}
	}
	return b.String()
}

// Prefix returns the entry name prefix of a venue: the escaped id and "_".
// An empty venue selects single-venue mode and an empty prefix.
func Prefix(venue string) string {
	if venue == "" {
		return ""
	}
	return EscapeVenueID(venue) + "_"
}

// EntryNames prefixes every logical name.
func EntryNames(prefix string, logical []string) []string {
	out := make([]string, len(logical))
	for i, l := range logical {
		out[i] = prefix + l
	}
	return out
}

// SplitEntryName splits an entry name into its escaped venue and logical
// name. ok is false for names that are not vault entries.
func SplitEntryName(name string) (venue, logical string, ok bool) {
	for _, l := range slices.Concat(dataGroup, licenseGroup) {
		if name == l {
			return "", l, true
		}
		if v, found := strings.CutSuffix(name, "_"+l); found && v != "" {
			return v, l, true
		}
	}
	return "", "", false
}
