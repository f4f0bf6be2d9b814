package publish

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peerdata/yyy/archive"
	"github.com/peerdata/yyy/blobstore"
)

// mockDDBClient is an in-memory DynamoDB mock for testing.
type mockDDBClient struct {
	mu    sync.RWMutex
	items map[string]map[string]types.AttributeValue
}

func newMockDDBClient() *mockDDBClient {
	return &mockDDBClient{items: make(map[string]map[string]types.AttributeValue)}
}

func (m *mockDDBClient) PutItem(_ context.Context, params *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	baseURI := params.Item["base_uri"].(*types.AttributeValueMemberS).Value
	version := params.Item["version"].(*types.AttributeValueMemberN).Value
	key := baseURI + ":" + version

	if params.ConditionExpression != nil && *params.ConditionExpression == "attribute_not_exists(version)" {
		if _, exists := m.items[key]; exists {
			return nil, &types.ConditionalCheckFailedException{Message: aws.String("condition failed")}
		}
	}
	m.items[key] = params.Item
	return &dynamodb.PutItemOutput{}, nil
}

func (m *mockDDBClient) Query(_ context.Context, params *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	baseURI := params.ExpressionAttributeValues[":uri"].(*types.AttributeValueMemberS).Value
	var items []map[string]types.AttributeValue
	for _, item := range m.items {
		if item["base_uri"].(*types.AttributeValueMemberS).Value == baseURI {
			items = append(items, item)
		}
	}
	version := func(item map[string]types.AttributeValue) uint64 {
		n, _ := strconv.ParseUint(item["version"].(*types.AttributeValueMemberN).Value, 10, 64)
		return n
	}
	slices.SortFunc(items, func(a, b map[string]types.AttributeValue) int {
		return int(version(b)) - int(version(a))
	})
	if params.Limit != nil && int(*params.Limit) < len(items) {
		items = items[:*params.Limit]
	}
	return &dynamodb.QueryOutput{Items: items}, nil
}

func writeArchive(t *testing.T, dir string, payload string) string {
	t.Helper()
	path := filepath.Join(dir, "data.vault")
	a := archive.Open(path, archive.WithKDFIterations(archive.MinKDFIterations))
	require.NoError(t, a.Write([]string{"x_rev_data.json"}, [][]byte{[]byte(payload)}, []byte("secret")))
	return path
}

func fixedClock() func() time.Time {
	return func() time.Time { return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC) }
}

func ledgers() map[string]func() Ledger {
	return map[string]func() Ledger{
		"memory": func() Ledger { return NewMemoryLedger() },
		"dynamo": func() Ledger { return NewDynamoLedger(newMockDDBClient(), "yyy-versions") },
		"store":  func() Ledger { return NewStoreLedger(blobstore.NewMemoryStore()) },
	}
}

func TestPublishAndFetch(t *testing.T) {
	ctx := context.Background()
	for name, newLedger := range ledgers() {
		t.Run(name, func(t *testing.T) {
			store := blobstore.NewMemoryStore()
			p := New(store, newLedger(), "iclr2024", WithClock(fixedClock()))

			_, err := p.Latest(ctx)
			require.ErrorIs(t, err, ErrNoVersion)

			dir := t.TempDir()
			path := writeArchive(t, dir, `{"s1":[]}`)

			v1, err := p.Publish(ctx, path)
			require.NoError(t, err)
			assert.Equal(t, uint64(1), v1.Number)
			assert.Regexp(t, `^iclr2024/v000001-[0-9a-f]{12}\.vault$`, v1.Name)

			// Unchanged archives are not published twice.
			again, err := p.Publish(ctx, path)
			require.NoError(t, err)
			assert.Equal(t, v1.Number, again.Number)

			writeArchive(t, dir, `{"s2":[]}`)
			v2, err := p.Publish(ctx, path)
			require.NoError(t, err)
			assert.Equal(t, uint64(2), v2.Number)

			latest, err := p.Latest(ctx)
			require.NoError(t, err)
			assert.Equal(t, v2.Name, latest.Name)
			assert.Equal(t, v2.SHA256, latest.SHA256)
			assert.True(t, v2.Time.Equal(latest.Time))

			dst := filepath.Join(t.TempDir(), "copy", "data.vault")
			got, err := p.Fetch(ctx, dst)
			require.NoError(t, err)
			assert.Equal(t, v2.Number, got.Number)

			want, err := os.ReadFile(path)
			require.NoError(t, err)
			have, err := os.ReadFile(dst)
			require.NoError(t, err)
			assert.Equal(t, want, have)

			names, err := archive.Open(dst).List([]byte("secret"))
			require.NoError(t, err)
			assert.Equal(t, []string{"x_rev_data.json", "x_rev_data.json"}, names)
		})
	}
}

func TestPublish_RefusesTornArchive(t *testing.T) {
	ctx := context.Background()
	path := writeArchive(t, t.TempDir(), `{}`)
	st, err := os.Stat(path)
	require.NoError(t, err)
	require.NoError(t, os.Truncate(path, st.Size()-3))

	p := New(blobstore.NewMemoryStore(), NewMemoryLedger(), "b")
	_, err = p.Publish(ctx, path)
	assert.ErrorIs(t, err, archive.ErrCorrupt)

	_, err = p.Publish(ctx, filepath.Join(t.TempDir(), "missing.vault"))
	assert.ErrorIs(t, err, archive.ErrNotFound)
}

// racingLedger lets another publisher win between Latest and Commit.
type racingLedger struct {
	Ledger
}

func (r racingLedger) Commit(ctx context.Context, base string, v Version) error {
	if err := r.Ledger.Commit(ctx, base, Version{Number: v.Number, Name: "other", SHA256: "other", Time: v.Time}); err != nil {
		return err
	}
	return r.Ledger.Commit(ctx, base, v)
}

func TestPublish_ConcurrentModification(t *testing.T) {
	ctx := context.Background()
	for name, newLedger := range ledgers() {
		t.Run(name, func(t *testing.T) {
			store := blobstore.NewMemoryStore()
			p := New(store, racingLedger{newLedger()}, "b", WithClock(fixedClock()))

			_, err := p.Publish(ctx, writeArchive(t, t.TempDir(), `{}`))
			require.ErrorIs(t, err, ErrConcurrentModification)

			names, err := store.List(ctx, "")
			require.NoError(t, err)
			assert.Empty(t, names, "orphaned upload is removed")
		})
	}
}

func TestFetch_DigestMismatch(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()
	p := New(store, NewMemoryLedger(), "b")

	v, err := p.Publish(ctx, writeArchive(t, t.TempDir(), `{}`))
	require.NoError(t, err)
	require.NoError(t, store.Put(ctx, v.Name, strings.NewReader("tampered"), -1))

	dst := filepath.Join(t.TempDir(), "data.vault")
	_, err = p.Fetch(ctx, dst)
	require.ErrorIs(t, err, archive.ErrCorrupt)
	_, statErr := os.Stat(dst)
	assert.True(t, os.IsNotExist(statErr))
}

func TestFetch_NothingPublished(t *testing.T) {
	p := New(blobstore.NewMemoryStore(), NewMemoryLedger(), "b")
	_, err := p.Fetch(context.Background(), filepath.Join(t.TempDir(), "x"))
	assert.ErrorIs(t, err, ErrNoVersion)
}

func TestDynamoLedger_InvalidItem(t *testing.T) {
	client := newMockDDBClient()
	client.items["b:1"] = map[string]types.AttributeValue{
		"base_uri": &types.AttributeValueMemberS{Value: "b"},
		"version":  &types.AttributeValueMemberN{Value: "1"},
	}
	_, _, err := NewDynamoLedger(client, "t").Latest(context.Background(), "b")
	assert.Error(t, err)
}

func TestBlobName(t *testing.T) {
	assert.Equal(t, "base/v000042-0123456789ab.vault", BlobName("base", 42, "0123456789abcdef"))
	assert.Equal(t, "v000001-abc.vault", BlobName("", 1, "abc"))
}

func TestStoreLedger_SharedStore(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewLocalStore(t.TempDir())
	p := New(store, NewStoreLedger(store), "iclr2024", WithClock(fixedClock()))

	dir := t.TempDir()
	path := writeArchive(t, dir, `{"s1":[]}`)
	v1, err := p.Publish(ctx, path)
	require.NoError(t, err)
	writeArchive(t, dir, `{"s2":[]}`)
	v2, err := p.Publish(ctx, path)
	require.NoError(t, err)

	names, err := store.List(ctx, "iclr2024/")
	require.NoError(t, err)
	assert.Equal(t, []string{
		v1.Name,
		v2.Name,
		"iclr2024/versions/000001.json",
		"iclr2024/versions/000002.json",
	}, names)

	// A second ledger over the same store sees the committed versions.
	latest, ok, err := NewStoreLedger(store).Latest(ctx, "iclr2024")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, v2.SHA256, latest.SHA256)

	err = NewStoreLedger(store).Commit(ctx, "iclr2024", Version{Number: 2})
	assert.ErrorIs(t, err, ErrConcurrentModification)
}
