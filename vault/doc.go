// Package vault lays out a collection inside a secure archive.
//
// One archive file holds any number of venues. Each venue contributes six
// entries named {prefix}{logical name}, where prefix is the escaped venue id
// followed by "_" (empty in single-venue mode):
//
//	data group (data password):       rev_data.json params.json stats.json sub_data.json
//	license group (license password): sub_licenses.csv rev_licenses.csv
//
// The license group carries real identities and is encrypted under its own
// password so the de-identified data can be shared without exposing consent
// records.
package vault
