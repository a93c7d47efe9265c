package blobstore

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidURI is returned for a malformed object URI.
var ErrInvalidURI = errors.New("blobstore: invalid object uri")

// URI addresses an object or prefix in a remote store, e.g. s3://bucket/key.
type URI struct {
	Scheme string
	Bucket string
	Key    string
}

// IsRemote reports whether s looks like an s3:// or minio:// URI.
func IsRemote(s string) bool {
	return strings.HasPrefix(s, "s3://") || strings.HasPrefix(s, "minio://")
}

// ParseURI splits an s3:// or minio:// URI into its parts. The key may be
// empty when the URI names a bucket or a prefix.
func ParseURI(s string) (URI, error) {
	scheme, rest, ok := strings.Cut(s, "://")
	if !ok {
		return URI{}, fmt.Errorf("%w: %q", ErrInvalidURI, s)
	}
	switch scheme {
	case "s3", "minio":
	default:
		return URI{}, fmt.Errorf("%w: unsupported scheme %q", ErrInvalidURI, scheme)
	}

	bucket, key, _ := strings.Cut(rest, "/")
	if bucket == "" {
		return URI{}, fmt.Errorf("%w: missing bucket in %q", ErrInvalidURI, s)
	}
	return URI{Scheme: scheme, Bucket: bucket, Key: key}, nil
}

// String renders the URI.
func (u URI) String() string {
	return u.Scheme + "://" + u.Bucket + "/" + u.Key
}

// Base returns the last path element of the key.
func (u URI) Base() string {
	k := strings.TrimSuffix(u.Key, "/")
	if i := strings.LastIndexByte(k, '/'); i >= 0 {
		return k[i+1:]
	}
	return k
}
