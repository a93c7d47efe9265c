package cli

import (
	"context"
	"fmt"

	"github.com/hupe1980/haystack/blobstore"
	"github.com/hupe1980/haystack/blobstore/minio"
	"github.com/hupe1980/haystack/blobstore/s3"
)

// openStore connects to the bucket of uri. S3 uses the shared AWS
// configuration, MinIO the MINIO_* environment variables.
func openStore(ctx context.Context, uri blobstore.URI) (blobstore.BlobStore, error) {
	switch uri.Scheme {
	case "s3":
		store, err := s3.New(ctx, uri.Bucket)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to s3: %w", err)
		}
		return store, nil
	case "minio":
		store, err := minio.New(minio.ConfigFromEnv(), uri.Bucket, "")
		if err != nil {
			return nil, fmt.Errorf("failed to connect to minio: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("%w: unsupported scheme %q", blobstore.ErrInvalidURI, uri.Scheme)
	}
}
