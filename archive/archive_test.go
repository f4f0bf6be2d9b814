package archive

import (
	"bytes"
	"crypto/rand"
	"encoding/binary"
	"hash/crc32"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/peerdata/yyy/internal/fs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastKDF() func(*Options) { return WithKDFIterations(MinKDFIterations) }

func newTestArchive(t *testing.T, optFns ...func(*Options)) *Archive {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.vault")
	return Open(path, append([]func(*Options){fastKDF()}, optFns...)...)
}

func TestArchive_RoundTrip(t *testing.T) {
	a := newTestArchive(t)
	pw := []byte("secret")

	err := a.Write([]string{"rev_data.json", "params.json"}, [][]byte{[]byte(`{"s1":[]}`), []byte(`{"user":"~u"}`)}, pw)
	require.NoError(t, err)

	names, err := a.List(pw)
	require.NoError(t, err)
	assert.Equal(t, []string{"rev_data.json", "params.json"}, names)

	blobs, err := a.Read([]string{"params.json", "rev_data.json"}, pw)
	require.NoError(t, err)
	assert.Equal(t, `{"user":"~u"}`, string(blobs[0]))
	assert.Equal(t, `{"s1":[]}`, string(blobs[1]))

	infos, err := a.Entries()
	require.NoError(t, err)
	require.Len(t, infos, 2)
	for _, info := range infos {
		assert.True(t, info.Encrypted)
	}
	assert.Equal(t, uint64(len(`{"s1":[]}`)), infos[0].Size)
}

func TestArchive_WrongPassword(t *testing.T) {
	a := newTestArchive(t)
	require.NoError(t, a.Write([]string{"stats.json"}, [][]byte{[]byte(`{"num_subs":3}`)}, []byte("right")))

	_, err := a.Read([]string{"stats.json"}, []byte("wrong"))
	require.ErrorIs(t, err, ErrAuthFailure)
	var entryErr *EntryError
	require.ErrorAs(t, err, &entryErr)
	assert.Equal(t, "stats.json", entryErr.Name)

	_, err = a.Read([]string{"stats.json"}, nil)
	assert.ErrorIs(t, err, ErrAuthFailure)

	_, err = a.List([]byte("wrong"))
	assert.ErrorIs(t, err, ErrAuthFailure)

	_, err = a.List(nil)
	assert.ErrorIs(t, err, ErrAuthFailure)

	// Entry names stay visible without a password.
	infos, err := a.Entries()
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, "stats.json", infos[0].Name)
}

func TestArchive_DualPasswords(t *testing.T) {
	a := newTestArchive(t)
	dataPW := []byte("data-pw")
	licPW := []byte("license-pw")

	require.NoError(t, a.Write([]string{"v_rev_licenses.csv"}, [][]byte{[]byte("rid,signature\n")}, licPW))
	require.NoError(t, a.Write([]string{"v_rev_data.json"}, [][]byte{[]byte("{}")}, dataPW))

	got, err := a.Read([]string{"v_rev_data.json"}, dataPW)
	require.NoError(t, err)
	assert.Equal(t, "{}", string(got[0]))

	got, err = a.Read([]string{"v_rev_licenses.csv"}, licPW)
	require.NoError(t, err)
	assert.Equal(t, "rid,signature\n", string(got[0]))

	_, err = a.Read([]string{"v_rev_licenses.csv"}, dataPW)
	assert.ErrorIs(t, err, ErrAuthFailure)
	_, err = a.Read([]string{"v_rev_data.json"}, licPW)
	assert.ErrorIs(t, err, ErrAuthFailure)

	for _, pw := range [][]byte{dataPW, licPW} {
		names, err := a.List(pw)
		require.NoError(t, err)
		assert.Equal(t, []string{"v_rev_licenses.csv", "v_rev_data.json"}, names)
	}
}

func TestArchive_DuplicatesLastWins(t *testing.T) {
	a := newTestArchive(t)
	pw := []byte("pw")

	require.NoError(t, a.Write([]string{"stats.json"}, [][]byte{[]byte("v1")}, pw))
	require.NoError(t, a.Write([]string{"stats.json"}, [][]byte{[]byte("v2")}, pw))

	names, err := a.List(pw)
	require.NoError(t, err)
	assert.Equal(t, []string{"stats.json", "stats.json"}, names)

	got, err := a.Read([]string{"stats.json"}, pw)
	require.NoError(t, err)
	assert.Equal(t, "v2", string(got[0]))
}

func TestArchive_NotFound(t *testing.T) {
	a := Open(filepath.Join(t.TempDir(), "missing.vault"))

	_, err := a.List([]byte("pw"))
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = a.Read([]string{"x"}, []byte("pw"))
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = a.Entries()
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestArchive_EntryMissing(t *testing.T) {
	a := newTestArchive(t)
	pw := []byte("pw")
	require.NoError(t, a.Write([]string{"a"}, [][]byte{[]byte("1")}, pw))

	_, err := a.Read([]string{"a", "b"}, pw)
	require.ErrorIs(t, err, ErrEntryMissing)
	var entryErr *EntryError
	require.ErrorAs(t, err, &entryErr)
	assert.Equal(t, "b", entryErr.Name)
}

func TestArchive_Unencrypted(t *testing.T) {
	a := newTestArchive(t)
	require.NoError(t, a.Write([]string{"params.json"}, [][]byte{[]byte("{}")}, nil))

	names, err := a.List(nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"params.json"}, names)

	got, err := a.Read([]string{"params.json"}, []byte("anything"))
	require.NoError(t, err)
	assert.Equal(t, "{}", string(got[0]))

	infos, err := a.Entries()
	require.NoError(t, err)
	assert.False(t, infos[0].Encrypted)
}

func TestArchive_ListMixedWithEmptyPassword(t *testing.T) {
	a := newTestArchive(t)
	require.NoError(t, a.Write([]string{"v_rev_licenses.csv"}, [][]byte{[]byte("rid\n")}, []byte("lic-secret")))
	require.NoError(t, a.Write([]string{"v_rev_data.json"}, [][]byte{[]byte("{}")}, nil))

	names, err := a.List(nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"v_rev_licenses.csv", "v_rev_data.json"}, names)

	names, err = a.List([]byte("lic-secret"))
	require.NoError(t, err)
	assert.Len(t, names, 2)

	// A non-empty password must still open an encrypted entry.
	_, err = a.List([]byte("wrong"))
	assert.ErrorIs(t, err, ErrAuthFailure)
}

func TestArchive_Compression(t *testing.T) {
	compressible := bytes.Repeat([]byte(`{"rating":"8: accept","confidence":"4"}`), 200)
	random := make([]byte, 4096)
	_, err := rand.Read(random)
	require.NoError(t, err)

	tests := []struct {
		name     string
		c        Compression
		data     []byte
		expected Compression
	}{
		{"zstd", CompressionZSTD, compressible, CompressionZSTD},
		{"lz4", CompressionLZ4, compressible, CompressionLZ4},
		{"none", CompressionNone, compressible, CompressionNone},
		{"incompressible", CompressionZSTD, random, CompressionNone},
		{"empty", CompressionZSTD, []byte{}, CompressionNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newTestArchive(t, WithCompression(tt.c))
			pw := []byte("pw")
			require.NoError(t, a.Write([]string{"blob"}, [][]byte{tt.data}, pw))

			infos, err := a.Entries()
			require.NoError(t, err)
			assert.Equal(t, tt.expected, infos[0].Compression)

			got, err := a.Read([]string{"blob"}, pw)
			require.NoError(t, err)
			assert.Equal(t, len(tt.data), len(got[0]))
			assert.True(t, bytes.Equal(tt.data, got[0]))
		})
	}
}

func TestArchive_TornTail(t *testing.T) {
	a := newTestArchive(t)
	pw := []byte("pw")
	require.NoError(t, a.Write([]string{"a", "b"}, [][]byte{[]byte("1"), []byte("2")}, pw))

	st, err := os.Stat(a.Path())
	require.NoError(t, err)
	intact := st.Size()

	require.NoError(t, a.Write([]string{"c"}, [][]byte{[]byte("3")}, pw))
	// Simulate a crash in the middle of the second write.
	require.NoError(t, os.Truncate(a.Path(), intact+10))

	var ce *CorruptError
	require.ErrorAs(t, a.Verify(), &ce)
	assert.Equal(t, intact, ce.Offset)

	names, err := a.List(pw)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, names)

	_, err = a.Read([]string{"c"}, pw)
	assert.ErrorIs(t, err, ErrEntryMissing)

	got, err := a.Read([]string{"a", "b"}, pw)
	require.NoError(t, err)
	assert.Equal(t, "1", string(got[0]))
	assert.Equal(t, "2", string(got[1]))

	// The next append truncates the tear.
	require.NoError(t, a.Write([]string{"d"}, [][]byte{[]byte("4")}, pw))
	require.NoError(t, a.Verify())
	names, err = a.List(pw)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "d"}, names)
}

func TestArchive_TornHeader(t *testing.T) {
	a := newTestArchive(t)
	require.NoError(t, os.WriteFile(a.Path(), []byte("YYY"), 0o600))

	names, err := a.List(nil)
	require.NoError(t, err)
	assert.Empty(t, names)

	require.NoError(t, a.Write([]string{"a"}, [][]byte{[]byte("1")}, nil))
	got, err := a.Read([]string{"a"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "1", string(got[0]))
}

func TestArchive_FailedWriteRollsBack(t *testing.T) {
	ffs := fs.NewFaultyFS(nil)
	a := newTestArchive(t, WithFileSystem(ffs))
	pw := []byte("pw")
	require.NoError(t, a.Write([]string{"a"}, [][]byte{[]byte("1")}, pw))

	st, err := os.Stat(a.Path())
	require.NoError(t, err)

	ffs.AddRule("data.vault", fs.Fault{FailAfterBytes: 20, Torn: true})
	err = a.Write([]string{"b"}, [][]byte{[]byte("2")}, pw)
	require.ErrorIs(t, err, fs.ErrInjected)

	after, err := os.Stat(a.Path())
	require.NoError(t, err)
	assert.Equal(t, st.Size(), after.Size())

	ffs.ClearRules()
	got, err := a.Read([]string{"a"}, pw)
	require.NoError(t, err)
	assert.Equal(t, "1", string(got[0]))
}

func TestArchive_SyncFailure(t *testing.T) {
	ffs := fs.NewFaultyFS(nil)
	ffs.AddRule("data.vault", fs.Fault{FailAfterBytes: -1, FailOnSync: true})
	a := newTestArchive(t, WithFileSystem(ffs))

	err := a.Write([]string{"a"}, [][]byte{[]byte("1")}, nil)
	assert.ErrorIs(t, err, fs.ErrInjected)
}

func TestArchive_Corruption(t *testing.T) {
	t.Run("payload", func(t *testing.T) {
		a := newTestArchive(t)
		pw := []byte("pw")
		require.NoError(t, a.Write([]string{"a"}, [][]byte{bytes.Repeat([]byte("x"), 64)}, pw))

		raw, err := os.ReadFile(a.Path())
		require.NoError(t, err)
		raw[len(raw)-8] ^= 0xFF
		require.NoError(t, os.WriteFile(a.Path(), raw, 0o600))

		_, err = a.Read([]string{"a"}, pw)
		assert.ErrorIs(t, err, ErrCorrupt)
	})

	t.Run("magic", func(t *testing.T) {
		a := newTestArchive(t)
		require.NoError(t, os.WriteFile(a.Path(), []byte("NOTANARCHIVE"), 0o600))

		_, err := a.Entries()
		assert.ErrorIs(t, err, ErrCorrupt)

		err = a.Write([]string{"a"}, [][]byte{[]byte("1")}, nil)
		assert.ErrorIs(t, err, ErrCorrupt)
	})
}

// rewriteField overwrites bytes of the single record in the archive at path
// and fixes up its checksum, so only the header validation can reject it.
func rewriteField(t *testing.T, path string, off int, val []byte) {
	t.Helper()
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	copy(raw[off:], val)
	binary.LittleEndian.PutUint32(raw[len(raw)-4:], crc32.ChecksumIEEE(raw[fileHeaderSize:len(raw)-4]))
	require.NoError(t, os.WriteFile(path, raw, 0o600))
}

func TestArchive_HeaderFieldsBounded(t *testing.T) {
	// Offset of the kdf iteration count in a record named "a".
	kdfOff := fileHeaderSize + 4 + 2 + len("a") + 2

	for name, iterations := range map[string]uint32{
		"too many iterations": math.MaxUint32,
		"just above max":      MaxKDFIterations + 1,
		"zero iterations":     0,
	} {
		t.Run(name, func(t *testing.T) {
			a := newTestArchive(t)
			pw := []byte("pw")
			require.NoError(t, a.Write([]string{"a"}, [][]byte{[]byte("1")}, pw))
			rewriteField(t, a.Path(), kdfOff, binary.LittleEndian.AppendUint32(nil, iterations))

			_, err := a.Entries()
			assert.ErrorIs(t, err, ErrCorrupt)
			_, err = a.List(pw)
			assert.ErrorIs(t, err, ErrCorrupt)
			_, err = a.Read([]string{"a"}, pw)
			assert.ErrorIs(t, err, ErrCorrupt)
		})
	}

	t.Run("raw size", func(t *testing.T) {
		a := newTestArchive(t)
		require.NoError(t, a.Write([]string{"a"}, [][]byte{[]byte("1")}, nil))
		// Unencrypted: empty salt and nonce, then the verifier.
		rawOff := kdfOff + 4 + 1 + 1 + verifierSize
		rewriteField(t, a.Path(), rawOff, binary.LittleEndian.AppendUint64(nil, 1<<62))

		_, err := a.Entries()
		require.ErrorIs(t, err, ErrCorrupt)
		var corrupt *CorruptError
		require.ErrorAs(t, err, &corrupt)
		assert.Equal(t, int64(fileHeaderSize), corrupt.Offset)

		_, err = a.Read([]string{"a"}, nil)
		assert.ErrorIs(t, err, ErrCorrupt)
	})

	t.Run("options clamp", func(t *testing.T) {
		assert.Equal(t, MaxKDFIterations, applyOptions([]func(*Options){WithKDFIterations(math.MaxInt)}).KDFIterations)
		assert.Equal(t, MinKDFIterations, applyOptions([]func(*Options){WithKDFIterations(1)}).KDFIterations)
	})
}

func TestArchive_InvalidArguments(t *testing.T) {
	a := newTestArchive(t)

	err := a.Write([]string{"a", "b"}, [][]byte{[]byte("1")}, nil)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	err = a.Write([]string{""}, [][]byte{[]byte("1")}, nil)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = os.Stat(a.Path())
	assert.True(t, os.IsNotExist(err))
}

func TestPackageHelpers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "data.vault")
	pw := []byte("pw")

	require.NoError(t, WriteEntries(path, []string{"a"}, [][]byte{[]byte("1")}, pw, fastKDF()))

	names, err := ListEntries(path, pw)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, names)

	got, err := ReadEntries(path, []string{"a"}, pw)
	require.NoError(t, err)
	assert.Equal(t, "1", string(got[0]))
}
