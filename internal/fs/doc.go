// Package fs provides filesystem abstractions for testability and fault injection.
//
//   - [File]: an open file with read/write/seek/sync/truncate capabilities
//   - [FileSystem]: the operations the archive uses (open, stat, mkdir, remove)
//
// Production code uses fs.Default ([LocalFS]). Tests inject [FaultyFS] to
// simulate torn writes and failing fsyncs:
//
//	ffs := fs.NewFaultyFS(nil)
//	ffs.AddRule("data.vault", fs.Fault{FailAfterBytes: 512, Torn: true})
//
// Operations take no context.Context: local file I/O is not interruptible at
// the syscall level. Remote storage goes through package blobstore instead.
package fs
