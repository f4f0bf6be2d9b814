package anon

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHasher_KnownDigests(t *testing.T) {
	tests := []struct {
		name string
		alg  Algorithm
		salt string
		id   string
		reps int
		want string
	}{
		{"sha512-once", SHA512, "SALT", "~Reviewer1", 1, "2f8c43c57102e9e122c8731fa5f34612370b7dbf9c0e9c475f031bef202e5c350b442fffc24deadc2e1cd7b2f4ecc14e2c701685b067910b594200f48676ac8e"},
		{"sha512-thrice", SHA512, "SALT", "~Reviewer1", 3, "886aa776b931f1dd9bfd8ef35270e6fb63329ffbd134321627fc450b60afd6a772981a43a3ee916962f488c23982df7da28f97e16495fb6aa69c111a355effee"},
		{"sha256-twice", SHA256, "SALT", "~Reviewer1", 2, "03326c0879e4df26cbe89371eeb15ee3652572f91376bc8a148a80952d8d7f59"},
		{"sha3-512", SHA3_512, "S", "x", 1, "bcc2640a1c3c86b05e3fe256d05bded6fd661a095666eeacfde8ebe3b157d078b9930eb7103ca4c825f922231f6457dea71d768f33bdf5ea7ce060acf6c0870b"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := New(tt.alg, []byte(tt.salt), tt.reps)
			assert.Equal(t, tt.want, h.Hash(tt.id))
		})
	}
}

func TestHasher_Deterministic(t *testing.T) {
	h := New(SHA512, []byte("SALT"), 50)
	assert.Equal(t, h.Hash("~A"), h.Hash("~A"))
	assert.NotEqual(t, h.Hash("~A"), h.Hash("~B"))

	other := New(SHA512, []byte("OTHER"), 50)
	assert.NotEqual(t, h.Hash("~A"), other.Hash("~A"))
}

func TestHasher_RepetitionsFloor(t *testing.T) {
	assert.Equal(t, New(SHA256, []byte("s"), 1).Hash("x"), New(SHA256, []byte("s"), 0).Hash("x"))
	assert.Equal(t, 1, New(nil, nil, -3).Repetitions)
	assert.Equal(t, SHA512, New(nil, nil, 1).Algorithm)
}

func TestRandomSalt(t *testing.T) {
	salt, err := RandomSalt(DefaultSaltLength)
	require.NoError(t, err)
	assert.Len(t, salt, DefaultSaltLength)
	for _, c := range salt {
		assert.True(t, strings.ContainsRune(saltAlphabet, rune(c)), "unexpected salt char %q", c)
	}

	other, err := RandomSalt(DefaultSaltLength)
	require.NoError(t, err)
	assert.NotEqual(t, salt, other)

	_, err = RandomSalt(0)
	assert.Error(t, err)
}

func TestDescriptor(t *testing.T) {
	h := New(SHA512, []byte("SALT"), 10000)
	assert.Equal(t, "ALGO:SHA-512;REPETITIONS:10000;SALT:sha256:dcad275fd8586549", h.String())
	assert.NotContains(t, h.String(), "SALT:SALT")

	d, err := ParseDescriptor(h.String())
	require.NoError(t, err)
	assert.Equal(t, h.Descriptor(), d)
	assert.True(t, d.MatchesSalt([]byte("SALT")))
	assert.False(t, d.MatchesSalt([]byte("WRONG")))

	rebuilt, err := d.Hasher([]byte("SALT"))
	require.NoError(t, err)
	assert.Equal(t, h.Hash("~A"), rebuilt.Hash("~A"))

	_, err = d.Hasher([]byte("WRONG"))
	assert.Error(t, err)
}

func TestParseDescriptor_Invalid(t *testing.T) {
	for _, s := range []string{
		"",
		"ALGO:SHA-512",
		"ALGO:SHA-512;REPETITIONS:x;SALT:sha256:00",
		"ALGO:SHA-512;REPETITIONS:0;SALT:sha256:00",
		"ALGO:SHA-512;REPS:1;SALT:sha256:00",
		"ALGO:SHA-512;REPETITIONS:1;SALT",
	} {
		_, err := ParseDescriptor(s)
		assert.Error(t, err, s)
	}
}

func TestAlgorithmByName(t *testing.T) {
	for _, name := range []string{"SHA-512", "sha512", "Sha-256", "SHA3-512"} {
		_, err := AlgorithmByName(name)
		assert.NoError(t, err, name)
	}
	_, err := AlgorithmByName("md5")
	assert.Error(t, err)
}

func TestIdentityAndWipe(t *testing.T) {
	assert.Equal(t, "~Reviewer1", Identity.Hash("~Reviewer1"))
	assert.Equal(t, "IDENTITY", Identity.String())

	salt := []byte("SECRET")
	h := New(SHA256, salt, 1)
	h.Wipe()
	assert.Nil(t, h.Salt)
	assert.Equal(t, make([]byte, 6), salt)
}
