package archive

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompressRoundTrip(t *testing.T) {
	data := bytes.Repeat([]byte("anonymized-reviewer-"), 512)

	for _, c := range []Compression{CompressionLZ4, CompressionZSTD} {
		t.Run(c.String(), func(t *testing.T) {
			out, used, err := compress(data, c, DefaultOptions.CompressionLevel)
			require.NoError(t, err)
			assert.Equal(t, c, used)
			assert.Less(t, len(out), len(data))

			back, err := decompress(out, used, uint64(len(data)))
			require.NoError(t, err)
			assert.Equal(t, data, back)
		})
	}
}

func TestCompressNonDefaultLevel(t *testing.T) {
	data := bytes.Repeat([]byte("abc"), 1000)
	out, used, err := compress(data, CompressionZSTD, 9)
	require.NoError(t, err)
	assert.Equal(t, CompressionZSTD, used)

	back, err := decompress(out, used, uint64(len(data)))
	require.NoError(t, err)
	assert.Equal(t, data, back)
}

func TestDecompressSizeMismatch(t *testing.T) {
	_, err := decompress([]byte("abc"), CompressionNone, 4)
	assert.Error(t, err)
}

func TestParseCompression(t *testing.T) {
	for name, want := range map[string]Compression{"none": CompressionNone, "lz4": CompressionLZ4, "zstd": CompressionZSTD} {
		got, err := ParseCompression(name)
		require.NoError(t, err)
		assert.Equal(t, want, got)
		assert.Equal(t, name, got.String())
	}

	_, err := ParseCompression("brotli")
	assert.ErrorIs(t, err, ErrInvalidArgument)
}
