// Package s3 provides an S3 implementation of the blobstore.BlobStore interface.
//
// # Usage
//
//	store, err := s3.New(ctx, "forensics",
//	    s3.WithPrefix("images/"),
//	    s3.WithRegion("eu-central-1"),
//	)
//
//	blob, err := store.Open(ctx, "disk.img.zst")
//
// # Features
//
//   - Range reads for streaming haystacks
//   - Multipart uploads for exported runs
//   - Automatic pagination for listing
package s3
