// Package minio provides a BlobStore implementation using the MinIO client.
//
// It works with MinIO and other S3-compatible servers (Ceph, Garage,
// SeaweedFS) and needs no AWS configuration.
//
// # Basic Usage
//
//	store, err := minioblob.New(minioblob.Config{
//	    Endpoint:  "localhost:9000",
//	    AccessKey: "minioadmin",
//	    SecretKey: "minioadmin",
//	}, "forensics", "images/")
//
//	blob, err := store.Open(ctx, "disk.img")
//	r, err := blobstore.NewReader(ctx, blob)
package minio
