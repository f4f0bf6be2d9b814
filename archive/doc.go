// Package archive implements the secure archive: a single append-only file
// holding named, individually compressed and password-encrypted entries.
//
// # File Layout
//
//	[Header: magic "YYYA" | version uint16 | reserved uint16]
//	[Record]*
//
// Each record is self-contained:
//
//	magic uint32 | nameLen uint16 | name | compression uint8 | flags uint8 |
//	kdfIterations uint32 | saltLen uint8 | salt | nonceLen uint8 | nonce |
//	verifier [4]byte | rawSize uint64 | payloadLen uint64 | payload | crc32
//
// Entry names are stored in clear so [Archive.Entries] works without a
// password. Payloads are compressed (zstd or lz4) and then sealed with
// AES-256-GCM under a key derived by PBKDF2-HMAC-SHA256 from the entry's own
// random salt. The entry name is bound as additional authenticated data.
//
// Because every record carries its own salt, entries written under different
// passwords coexist in one file, and appending never touches existing records.
//
// # Duplicates
//
// Writing a name twice appends a second record. [Archive.Read] returns the
// last record with that name (last one wins); [Archive.List] reports every
// record, duplicates included, in file order.
//
// # Crash Tolerance
//
// A crash during [Archive.Write] can leave a torn record at the end of the
// file. Readers stop at the tear and keep every complete record readable;
// the next Write truncates the tear before appending. Concurrent writers to
// one path are not supported and must be serialized by the caller.
package archive
