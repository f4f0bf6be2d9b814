// Package blobstore abstracts the storage that finished archives are
// published to.
//
// # Built-in Implementations
//
//   - LocalStore: a directory on the local file system
//   - MemoryStore: in-memory, for tests
//   - s3.Store: Amazon S3 with range reads and multipart uploads
//   - minio.Store: MinIO and other S3-compatible storage
//
// Blobs are immutable: Put replaces a blob as a whole and readers never
// observe a partial write.
package blobstore
