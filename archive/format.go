package archive

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"hash"
	"hash/crc32"
	"io"
)

const (
	// fileMagic is "YYYA" in little-endian byte order.
	fileMagic uint32 = 0x41595959
	// recordMagic is "YENT" in little-endian byte order.
	recordMagic uint32 = 0x544E4559

	// FormatVersion is the current on-disk format version.
	FormatVersion uint16 = 1

	fileHeaderSize = 8

	flagEncrypted uint8 = 1 << 0

	maxNameLen = 1<<16 - 1

	// MaxEntrySize bounds the uncompressed size of one entry.
	MaxEntrySize = 1 << 30
)

// record is one entry as stored on disk.
type record struct {
	offset int64 // file offset of the record magic
	size   int64 // total encoded size including CRC

	name          string
	compression   Compression
	flags         uint8
	kdfIterations uint32
	salt          []byte
	nonce         []byte
	verifier      [verifierSize]byte
	rawSize       uint64
	payloadLen    uint64
	payload       []byte // nil when scanned without payloads
}

func (r *record) encrypted() bool { return r.flags&flagEncrypted != 0 }

// validate rejects header fields that would make opening the record
// unbounded in time or memory.
func (r *record) validate() error {
	if r.encrypted() && (r.kdfIterations < MinKDFIterations || r.kdfIterations > MaxKDFIterations) {
		return &CorruptError{Offset: r.offset, Reason: fmt.Sprintf("kdf iterations %d out of range in entry %q", r.kdfIterations, r.name)}
	}
	if r.rawSize > MaxEntrySize {
		return &CorruptError{Offset: r.offset, Reason: fmt.Sprintf("entry %q claims %d bytes", r.name, r.rawSize)}
	}
	if r.compression == CompressionNone && r.rawSize != r.payloadLen && !r.encrypted() {
		return &CorruptError{Offset: r.offset, Reason: fmt.Sprintf("stored size mismatch in entry %q", r.name)}
	}
	return nil
}

func (r *record) info() EntryInfo {
	return EntryInfo{
		Name:        r.name,
		Offset:      r.offset,
		Size:        r.rawSize,
		StoredSize:  r.payloadLen,
		Encrypted:   r.encrypted(),
		Compression: r.compression,
	}
}

func encodeFileHeader() []byte {
	buf := make([]byte, 0, fileHeaderSize)
	buf = binary.LittleEndian.AppendUint32(buf, fileMagic)
	buf = binary.LittleEndian.AppendUint16(buf, FormatVersion)
	buf = binary.LittleEndian.AppendUint16(buf, 0)
	return buf
}

func decodeFileHeader(buf []byte) error {
	if binary.LittleEndian.Uint32(buf[0:4]) != fileMagic {
		return &CorruptError{Offset: 0, Reason: "invalid file magic"}
	}
	if v := binary.LittleEndian.Uint16(buf[4:6]); v != FormatVersion {
		return &CorruptError{Offset: 4, Reason: fmt.Sprintf("unsupported format version %d", v)}
	}
	return nil
}

// marshal encodes the record including its trailing CRC.
func (r *record) marshal() []byte {
	n := 4 + 2 + len(r.name) + 1 + 1 + 4 + 1 + len(r.salt) + 1 + len(r.nonce) +
		verifierSize + 8 + 8 + len(r.payload) + 4
	buf := make([]byte, 0, n)

	buf = binary.LittleEndian.AppendUint32(buf, recordMagic)
	buf = binary.LittleEndian.AppendUint16(buf, uint16(len(r.name))) //nolint:gosec // checked by Write
	buf = append(buf, r.name...)
	buf = append(buf, byte(r.compression), r.flags)
	buf = binary.LittleEndian.AppendUint32(buf, r.kdfIterations)
	buf = append(buf, byte(len(r.salt)))
	buf = append(buf, r.salt...)
	buf = append(buf, byte(len(r.nonce)))
	buf = append(buf, r.nonce...)
	buf = append(buf, r.verifier[:]...)
	buf = binary.LittleEndian.AppendUint64(buf, r.rawSize)
	buf = binary.LittleEndian.AppendUint64(buf, uint64(len(r.payload)))
	buf = append(buf, r.payload...)
	buf = binary.LittleEndian.AppendUint32(buf, crc32.ChecksumIEEE(buf))
	return buf
}

// errTorn marks a record cut short by the end of the file.
var errTorn = errors.New("torn record")

// recordReader decodes consecutive records while hashing every byte read.
type recordReader struct {
	r      *bufio.Reader
	crc    hash.Hash32
	offset int64
	limit  int64 // file size
}

func newRecordReader(r io.Reader, offset, limit int64) *recordReader {
	return &recordReader{
		r:      bufio.NewReaderSize(r, 64*1024),
		crc:    crc32.NewIEEE(),
		offset: offset,
		limit:  limit,
	}
}

func (rr *recordReader) readFull(buf []byte) error {
	n, err := io.ReadFull(rr.r, buf)
	rr.crc.Write(buf[:n])
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return errTorn
		}
		return err
	}
	return nil
}

func (rr *recordReader) readUint8() (uint8, error) {
	var b [1]byte
	err := rr.readFull(b[:])
	return b[0], err
}

func (rr *recordReader) readUint16() (uint16, error) {
	var b [2]byte
	err := rr.readFull(b[:])
	return binary.LittleEndian.Uint16(b[:]), err
}

func (rr *recordReader) readUint32() (uint32, error) {
	var b [4]byte
	err := rr.readFull(b[:])
	return binary.LittleEndian.Uint32(b[:]), err
}

func (rr *recordReader) readUint64() (uint64, error) {
	var b [8]byte
	err := rr.readFull(b[:])
	return binary.LittleEndian.Uint64(b[:]), err
}

// next decodes the next record. It returns io.EOF at a clean end of file
// and errTorn when the file ends inside a record.
func (rr *recordReader) next(withPayload bool) (*record, error) {
	rr.crc.Reset()
	start := rr.offset

	if _, err := rr.r.Peek(1); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, err
	}

	rec := &record{offset: start}
	read := int64(0)
	track := func(n int) { read += int64(n) }

	magic, err := rr.readUint32()
	if err != nil {
		return nil, err
	}
	track(4)
	if magic != recordMagic {
		return nil, &CorruptError{Offset: start, Reason: "invalid record magic"}
	}

	nameLen, err := rr.readUint16()
	if err != nil {
		return nil, err
	}
	track(2)
	name := make([]byte, nameLen)
	if err := rr.readFull(name); err != nil {
		return nil, err
	}
	track(len(name))
	rec.name = string(name)

	comp, err := rr.readUint8()
	if err != nil {
		return nil, err
	}
	flags, err := rr.readUint8()
	if err != nil {
		return nil, err
	}
	track(2)
	rec.compression = Compression(comp)
	rec.flags = flags

	if rec.kdfIterations, err = rr.readUint32(); err != nil {
		return nil, err
	}
	track(4)

	saltLen, err := rr.readUint8()
	if err != nil {
		return nil, err
	}
	rec.salt = make([]byte, saltLen)
	if err := rr.readFull(rec.salt); err != nil {
		return nil, err
	}
	track(1 + int(saltLen))

	nonceLen, err := rr.readUint8()
	if err != nil {
		return nil, err
	}
	rec.nonce = make([]byte, nonceLen)
	if err := rr.readFull(rec.nonce); err != nil {
		return nil, err
	}
	track(1 + int(nonceLen))

	if err := rr.readFull(rec.verifier[:]); err != nil {
		return nil, err
	}
	track(verifierSize)

	if rec.rawSize, err = rr.readUint64(); err != nil {
		return nil, err
	}
	if rec.payloadLen, err = rr.readUint64(); err != nil {
		return nil, err
	}
	track(16)

	// A length running past the end of the file can only be a tear.
	if rec.payloadLen > uint64(rr.limit-start-read) { //nolint:gosec // non-negative
		return nil, errTorn
	}

	if withPayload {
		rec.payload = make([]byte, rec.payloadLen)
		if err := rr.readFull(rec.payload); err != nil {
			return nil, err
		}
	} else {
		if _, err := io.CopyN(rr.crc, rr.r, int64(rec.payloadLen)); err != nil { //nolint:gosec // bounded above
			if errors.Is(err, io.EOF) {
				return nil, errTorn
			}
			return nil, err
		}
	}
	track(int(rec.payloadLen)) //nolint:gosec // bounded above

	sum := rr.crc.Sum32()
	var b [4]byte
	if _, err := io.ReadFull(rr.r, b[:]); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, errTorn
		}
		return nil, err
	}
	track(4)

	if binary.LittleEndian.Uint32(b[:]) != sum {
		return nil, &CorruptError{Offset: start, Reason: fmt.Sprintf("checksum mismatch in entry %q", rec.name)}
	}

	if err := rec.validate(); err != nil {
		return nil, err
	}

	rec.size = read
	rr.offset += read
	return rec, nil
}

func leUint32(b []byte) uint32 { return binary.LittleEndian.Uint32(b) }
