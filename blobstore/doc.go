// Package blobstore abstracts the object storage haystack reads from and
// where finished runs are exported to.
//
// # Built-in Implementations
//
//   - LocalStore: local filesystem, reads are memory mapped
//   - MemoryStore: in-memory, for tests
//   - s3.Store: Amazon S3 with range reads and multipart uploads
//   - minio.Store: MinIO and other S3-compatible servers
//
// A remote haystack is read front to back:
//
//	blob, err := store.Open(ctx, "images/disk.img.zst")
//	r, err := blobstore.NewReader(ctx, blob)
//
// URIs of the form s3://bucket/key and minio://bucket/key are split with
// ParseURI.
package blobstore
