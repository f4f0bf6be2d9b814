package cliutil

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peerdata/yyy/blobstore"
	"github.com/peerdata/yyy/publish"
	"github.com/peerdata/yyy/vault"
)

func env(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func prompts(answers ...string) (PromptFunc, *[]string) {
	var labels []string
	return func(label string) ([]byte, error) {
		labels = append(labels, label)
		if len(answers) == 0 {
			return nil, errors.New("no more answers")
		}
		a := answers[0]
		answers = answers[1:]
		return []byte(a), nil
	}, &labels
}

func TestReadPasswords_Env(t *testing.T) {
	pw, err := ReadPasswords(PasswordRequest{
		Licenses: true,
		Getenv:   env(map[string]string{EnvDataPassword: "data-pw", EnvLicensePassword: "lic-pw"}),
	})
	require.NoError(t, err)
	assert.Equal(t, "data-pw", string(pw.Data))
	assert.Equal(t, "lic-pw", string(pw.Licenses))
	assert.False(t, pw.Shared())
}

func TestReadPasswords_Prompt(t *testing.T) {
	prompt, labels := prompts("secret1", "secret1", "other22", "other22")
	pw, err := ReadPasswords(PasswordRequest{
		Licenses: true,
		Confirm:  true,
		Getenv:   env(nil),
		Prompt:   prompt,
	})
	require.NoError(t, err)
	assert.Equal(t, "secret1", string(pw.Data))
	assert.Equal(t, "other22", string(pw.Licenses))
	assert.Equal(t, []string{"Data password", "Data password (again)", "License password", "License password (again)"}, *labels)
}

func TestReadPasswords_Errors(t *testing.T) {
	_, err := ReadPasswords(PasswordRequest{Getenv: env(map[string]string{EnvDataPassword: "short"})})
	assert.ErrorIs(t, err, vault.ErrConfiguration)

	prompt, _ := prompts("secret1", "secret2")
	_, err = ReadPasswords(PasswordRequest{Confirm: true, Getenv: env(nil), Prompt: prompt})
	assert.ErrorContains(t, err, "do not match")

	_, err = ReadPasswords(PasswordRequest{Getenv: env(nil)})
	assert.ErrorIs(t, err, ErrNoTerminal)
}

func TestReadPasswords_MinLengthBoundary(t *testing.T) {
	exact := strings.Repeat("p", vault.MinPasswordLength)
	pw, err := ReadPasswords(PasswordRequest{Getenv: env(map[string]string{EnvDataPassword: exact})})
	require.NoError(t, err)
	assert.Equal(t, exact, string(pw.Data))

	prompt, _ := prompts(exact[1:])
	_, err = ReadPasswords(PasswordRequest{Getenv: env(nil), Prompt: prompt})
	require.ErrorIs(t, err, vault.ErrConfiguration)
	assert.ErrorContains(t, err, fmt.Sprintf("at least %d characters", vault.MinPasswordLength))
}

func TestParseTarget(t *testing.T) {
	tests := []struct {
		raw  string
		want Target
	}{
		{"/srv/vaults", Target{Scheme: "file", Path: "/srv/vaults"}},
		{"file:///srv/vaults", Target{Scheme: "file", Path: "/srv/vaults"}},
		{"s3://bucket/a/b", Target{Scheme: "s3", Bucket: "bucket", Prefix: "a/b"}},
		{"s3://bucket", Target{Scheme: "s3", Bucket: "bucket"}},
		{"minio://localhost:9000/vaults/iclr?insecure=1", Target{Scheme: "minio", Host: "localhost:9000", Bucket: "vaults", Prefix: "iclr", Insecure: true}},
	}
	for _, tt := range tests {
		got, err := ParseTarget(tt.raw)
		require.NoError(t, err, tt.raw)
		assert.Equal(t, tt.want, got, tt.raw)
	}

	for _, raw := range []string{"", "s3://", "minio://host", "gs://bucket"} {
		_, err := ParseTarget(raw)
		assert.ErrorIs(t, err, vault.ErrConfiguration, raw)
	}
}

func TestOpenStoreAndLedger(t *testing.T) {
	ctx := context.Background()
	store, err := OpenStore(ctx, Target{Scheme: "file", Path: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &blobstore.LocalStore{}, store)

	l, err := OpenLedger(ctx, "", store)
	require.NoError(t, err)
	assert.IsType(t, &publish.StoreLedger{}, l)

	_, err = OpenLedger(ctx, "etcd:x", store)
	assert.ErrorIs(t, err, vault.ErrConfiguration)
}

func TestNewLogger(t *testing.T) {
	_, err := NewLogger("debug", true)
	require.NoError(t, err)
	_, err = NewLogger("chatty", false)
	assert.Error(t, err)
}
