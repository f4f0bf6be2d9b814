package cliutil

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/peerdata/yyy/blobstore"
	"github.com/peerdata/yyy/blobstore/s3"
	yyyminio "github.com/peerdata/yyy/blobstore/minio"
	"github.com/peerdata/yyy/publish"
	"github.com/peerdata/yyy/vault"
)

// Target is a parsed publish destination.
//
//	/srv/vaults or file:///srv/vaults   local directory
//	s3://bucket/prefix                  AWS S3 (default credential chain)
//	minio://host:9000/bucket/prefix     MinIO; ?insecure=1 disables TLS
type Target struct {
	Scheme   string
	Path     string // local directory
	Host     string
	Bucket   string
	Prefix   string
	Insecure bool
}

// ParseTarget parses a publish destination.
func ParseTarget(raw string) (Target, error) {
	if raw == "" {
		return Target{}, fmt.Errorf("%w: empty publish target", vault.ErrConfiguration)
	}
	if !strings.Contains(raw, "://") {
		return Target{Scheme: "file", Path: raw}, nil
	}

	u, err := url.Parse(raw)
	if err != nil {
		return Target{}, fmt.Errorf("%w: publish target: %v", vault.ErrConfiguration, err)
	}
	switch u.Scheme {
	case "file":
		return Target{Scheme: "file", Path: u.Path}, nil
	case "s3":
		if u.Host == "" {
			return Target{}, fmt.Errorf("%w: %s: missing bucket", vault.ErrConfiguration, raw)
		}
		return Target{Scheme: "s3", Bucket: u.Host, Prefix: strings.TrimPrefix(u.Path, "/")}, nil
	case "minio":
		bucket, prefix, _ := strings.Cut(strings.TrimPrefix(u.Path, "/"), "/")
		if u.Host == "" || bucket == "" {
			return Target{}, fmt.Errorf("%w: %s: want minio://host/bucket[/prefix]", vault.ErrConfiguration, raw)
		}
		return Target{
			Scheme:   "minio",
			Host:     u.Host,
			Bucket:   bucket,
			Prefix:   prefix,
			Insecure: u.Query().Get("insecure") == "1",
		}, nil
	}
	return Target{}, fmt.Errorf("%w: unsupported publish scheme %q", vault.ErrConfiguration, u.Scheme)
}

// OpenStore connects to the target's blob store. MinIO credentials come
// from MINIO_ROOT_USER/MINIO_ROOT_PASSWORD or MINIO_ACCESS_KEY/MINIO_SECRET_KEY.
func OpenStore(ctx context.Context, t Target) (blobstore.BlobStore, error) {
	switch t.Scheme {
	case "file":
		return blobstore.NewLocalStore(t.Path), nil
	case "s3":
		return s3.New(ctx, t.Bucket, s3.WithPrefix(t.Prefix))
	case "minio":
		client, err := minio.New(t.Host, &minio.Options{
			Creds:  credentials.NewEnvMinio(),
			Secure: !t.Insecure,
		})
		if err != nil {
			return nil, err
		}
		return yyyminio.NewStore(client, t.Bucket, t.Prefix), nil
	}
	return nil, fmt.Errorf("%w: unsupported publish scheme %q", vault.ErrConfiguration, t.Scheme)
}

// OpenLedger opens the version ledger given by name: empty keeps the
// ledger in store, "dynamodb:<table>" uses a DynamoDB table.
func OpenLedger(ctx context.Context, name string, store blobstore.BlobStore) (publish.Ledger, error) {
	if name == "" {
		return publish.NewStoreLedger(store), nil
	}
	table, ok := strings.CutPrefix(name, "dynamodb:")
	if !ok || table == "" {
		return nil, fmt.Errorf("%w: ledger %q: want dynamodb:<table>", vault.ErrConfiguration, name)
	}
	awsCfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("ledger: load aws config: %w", err)
	}
	return publish.NewDynamoLedger(dynamodb.NewFromConfig(awsCfg), table), nil
}
