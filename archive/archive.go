package archive

import (
	"bufio"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"os"
	"path/filepath"

	"github.com/peerdata/yyy/internal/fs"
)

// EntryInfo describes one stored entry without decrypting it.
type EntryInfo struct {
	Name        string
	Offset      int64
	Size        uint64 // uncompressed plaintext size
	StoredSize  uint64 // payload bytes on disk
	Encrypted   bool
	Compression Compression
}

// Archive is a handle to an archive file. It holds no open file between
// calls; every operation opens, scans and closes the file.
type Archive struct {
	path string
	opts Options
}

// Open returns a handle for the archive at path. No I/O is performed.
func Open(path string, optFns ...func(*Options)) *Archive {
	return &Archive{path: path, opts: applyOptions(optFns)}
}

// Path returns the archive file path.
func (a *Archive) Path() string { return a.path }

// layout is the result of scanning an archive file.
type layout struct {
	records   []*record
	hasHeader bool
	end       int64 // offset just past the last complete record
	torn      bool
}

func (a *Archive) openRead() (fs.File, int64, error) {
	st, err := a.opts.FileSystem.Stat(a.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, 0, fmt.Errorf("%w: %s", ErrNotFound, a.path)
		}
		return nil, 0, err
	}
	f, err := a.opts.FileSystem.OpenFile(a.path, os.O_RDONLY, 0)
	if err != nil {
		return nil, 0, err
	}
	return f, st.Size(), nil
}

func (a *Archive) scan(f fs.File, size int64) (*layout, error) {
	l := &layout{}
	if size == 0 {
		return l, nil
	}
	if size < fileHeaderSize {
		a.warn("archive header torn", "path", a.path, "size", size)
		l.torn = true
		return l, nil
	}

	hdr := make([]byte, fileHeaderSize)
	if _, err := f.ReadAt(hdr, 0); err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if err := decodeFileHeader(hdr); err != nil {
		return nil, err
	}
	l.hasHeader = true
	l.end = fileHeaderSize

	rr := newRecordReader(io.NewSectionReader(f, fileHeaderSize, size-fileHeaderSize), fileHeaderSize, size)
	for {
		rec, err := rr.next(false)
		if errors.Is(err, io.EOF) {
			break
		}
		if errors.Is(err, errTorn) {
			a.warn("archive has torn trailing record", "path", a.path, "offset", rr.offset, "dropped_bytes", size-rr.offset)
			l.torn = true
			break
		}
		if err != nil {
			return nil, err
		}
		l.records = append(l.records, rec)
	}
	l.end = rr.offset
	return l, nil
}

func (a *Archive) load() (*layout, error) {
	f, size, err := a.openRead()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return a.scan(f, size)
}

// Entries returns every record in file order, duplicates included.
// It needs no password.
func (a *Archive) Entries() ([]EntryInfo, error) {
	l, err := a.load()
	if err != nil {
		return nil, err
	}
	out := make([]EntryInfo, len(l.records))
	for i, rec := range l.records {
		out[i] = rec.info()
	}
	return out, nil
}

// Verify scans the whole archive and fails with a CorruptError when it ends
// in a torn record or header. It needs no password.
func (a *Archive) Verify() error {
	l, err := a.load()
	if err != nil {
		return err
	}
	if l.torn {
		return &CorruptError{Offset: l.end, Reason: "torn tail"}
	}
	return nil
}

// List returns entry names in file order, duplicates included.
//
// When the archive holds encrypted entries, password must open at least one
// of them; otherwise List fails with ErrAuthFailure. Entries under a second
// password do not make List fail, and an empty password is accepted when
// the archive also holds unencrypted entries.
func (a *Archive) List(password []byte) ([]string, error) {
	l, err := a.load()
	if err != nil {
		return nil, err
	}

	names := make([]string, len(l.records))
	checked := false
	accepted := false
	for i, rec := range l.records {
		names[i] = rec.name
		if accepted {
			continue
		}
		if !rec.encrypted() {
			accepted = len(password) == 0
			continue
		}
		checked = true
		accepted = checkPassword(rec, password)
	}
	if checked && !accepted {
		return nil, ErrAuthFailure
	}
	return names, nil
}

// Write appends one entry per name. The file and its header are created when
// absent. Existing records are never rewritten. An empty password stores
// the entries unencrypted.
func (a *Archive) Write(names []string, blobs [][]byte, password []byte) error {
	if len(names) != len(blobs) {
		return fmt.Errorf("%w: %d names for %d blobs", ErrInvalidArgument, len(names), len(blobs))
	}
	for i, name := range names {
		if name == "" || len(name) > maxNameLen {
			return fmt.Errorf("%w: invalid entry name %q", ErrInvalidArgument, name)
		}
		if len(blobs[i]) > MaxEntrySize {
			return fmt.Errorf("%w: entry %q exceeds %d bytes", ErrInvalidArgument, name, MaxEntrySize)
		}
	}

	l, err := a.load()
	if errors.Is(err, ErrNotFound) {
		l = &layout{}
	} else if err != nil {
		return err
	}

	// Encode before touching the file so a failure leaves it unchanged.
	encoded := make([][]byte, len(names))
	for i, name := range names {
		rec, err := a.newRecord(name, blobs[i], password)
		if err != nil {
			return &EntryError{Name: name, Err: err}
		}
		encoded[i] = rec.marshal()
	}

	if dir := filepath.Dir(a.path); dir != "." {
		if err := a.opts.FileSystem.MkdirAll(dir, 0o750); err != nil {
			return err
		}
	}
	f, err := a.opts.FileSystem.OpenFile(a.path, os.O_CREATE|os.O_RDWR, a.opts.Perm)
	if err != nil {
		return err
	}

	if err := a.append(f, l, encoded); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func (a *Archive) append(f fs.File, l *layout, encoded [][]byte) error {
	start := l.end
	if l.torn {
		a.warn("truncating torn tail before append", "path", a.path, "offset", start)
	}
	if l.torn || !l.hasHeader {
		if err := f.Truncate(start); err != nil {
			return fmt.Errorf("truncate: %w", err)
		}
	}
	if _, err := f.Seek(start, io.SeekStart); err != nil {
		return err
	}

	w := bufio.NewWriterSize(f, 64*1024)
	err := func() error {
		if !l.hasHeader {
			if _, err := w.Write(encodeFileHeader()); err != nil {
				return err
			}
		}
		for _, buf := range encoded {
			if _, err := w.Write(buf); err != nil {
				return err
			}
		}
		if err := w.Flush(); err != nil {
			return err
		}
		return f.Sync()
	}()
	if err != nil {
		// Roll back the partial tail; readers tolerate it if this fails too.
		_ = f.Truncate(start)
		return fmt.Errorf("append: %w", err)
	}
	return nil
}

func (a *Archive) newRecord(name string, blob []byte, password []byte) (*record, error) {
	payload, c, err := compress(blob, a.opts.Compression, a.opts.CompressionLevel)
	if err != nil {
		return nil, fmt.Errorf("compress: %w", err)
	}
	rec := &record{
		name:        name,
		compression: c,
		rawSize:     uint64(len(blob)),
		payload:     payload,
	}
	if len(password) > 0 {
		if err := sealRecord(rec, password, a.opts.KDFIterations); err != nil {
			return nil, err
		}
	}
	return rec, nil
}

// Read returns the contents of the named entries in the order requested.
//
// When a name was written more than once the last record wins. A name absent
// from the file yields ErrEntryMissing; a password that does not open an
// entry yields ErrAuthFailure. Both are wrapped in an *EntryError.
func (a *Archive) Read(names []string, password []byte) ([][]byte, error) {
	f, size, err := a.openRead()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	l, err := a.scan(f, size)
	if err != nil {
		return nil, err
	}

	latest := make(map[string]*record, len(l.records))
	for _, rec := range l.records {
		latest[rec.name] = rec
	}
	for _, name := range names {
		if _, ok := latest[name]; !ok {
			return nil, &EntryError{Name: name, Err: ErrEntryMissing}
		}
	}

	out := make([][]byte, len(names))
	for i, name := range names {
		data, err := a.readRecord(f, latest[name], password)
		if err != nil {
			return nil, &EntryError{Name: name, Err: err}
		}
		out[i] = data
	}
	return out, nil
}

func (a *Archive) readRecord(f fs.File, rec *record, password []byte) ([]byte, error) {
	// The record was checksummed during the scan; re-verify against this read.
	buf := make([]byte, rec.size)
	if _, err := f.ReadAt(buf, rec.offset); err != nil {
		return nil, fmt.Errorf("read record: %w", err)
	}
	body := buf[:len(buf)-4]
	if crc32.ChecksumIEEE(body) != leUint32(buf[len(buf)-4:]) {
		return nil, &CorruptError{Offset: rec.offset, Reason: "checksum mismatch"}
	}
	rec.payload = body[len(body)-int(rec.payloadLen):] //nolint:gosec // bounded by scan

	plain, err := openRecord(rec, password)
	if err != nil {
		return nil, err
	}
	data, err := decompress(plain, rec.compression, rec.rawSize)
	if err != nil {
		return nil, &CorruptError{Offset: rec.offset, Reason: err.Error()}
	}
	return data, nil
}

func (a *Archive) warn(msg string, args ...any) {
	if a.opts.Logger != nil {
		a.opts.Logger.Warn(msg, args...)
	}
}

// ListEntries lists the entry names of the archive at path.
func ListEntries(path string, password []byte, optFns ...func(*Options)) ([]string, error) {
	return Open(path, optFns...).List(password)
}

// WriteEntries appends entries to the archive at path.
func WriteEntries(path string, names []string, blobs [][]byte, password []byte, optFns ...func(*Options)) error {
	return Open(path, optFns...).Write(names, blobs, password)
}

// ReadEntries reads entries from the archive at path.
func ReadEntries(path string, names []string, password []byte, optFns ...func(*Options)) ([][]byte, error) {
	return Open(path, optFns...).Read(names, password)
}
