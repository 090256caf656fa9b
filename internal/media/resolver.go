package media

import (
	"context"
	"fmt"
	"strings"

	"gocloud.dev/blob"
	"gocloud.dev/gcerrors"

	_ "gocloud.dev/blob/azureblob"
	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/gcsblob"
	_ "gocloud.dev/blob/memblob"
	_ "gocloud.dev/blob/s3blob"
)

// Resolver turns media input values into payloads. Values may be data
// URLs, bare base64, http(s) URLs, or "blob:<key>" references into the
// configured bucket (S3, GCS, Azure Blob Storage, file or mem)
type Resolver struct {
	bucket *blob.Bucket
}

// NewResolver opens the bucket at bucketURL. An empty URL yields a
// Resolver that rejects blob references
func NewResolver(ctx context.Context, bucketURL string) (*Resolver, error) {
	if bucketURL == "" {
		return &Resolver{}, nil
	}
	bucket, err := blob.OpenBucket(ctx, bucketURL)
	if err != nil {
		return nil, err
	}
	return &Resolver{bucket: bucket}, nil
}

// Resolve loads the payload a value refers to
func (r *Resolver) Resolve(
	ctx context.Context, value string,
) (*Payload, error) {
	value = strings.TrimSpace(value)
	switch {
	case value == "":
		return nil, ErrEmptyMedia
	case strings.HasPrefix(value, dataURLPrefix):
		return decodeDataURL(value)
	case strings.HasPrefix(value, blobPrefix):
		return r.read(ctx, strings.TrimPrefix(value, blobPrefix))
	case strings.HasPrefix(value, "http://"),
		strings.HasPrefix(value, "https://"):
		return &Payload{URL: value}, nil
	default:
		data, err := decodeBase64(value)
		if err != nil {
			return nil, err
		}
		return fromBytes(data), nil
	}
}

// Put stores data under key and returns the reference that resolves it
func (r *Resolver) Put(
	ctx context.Context, key string, data []byte,
) (string, error) {
	if r.bucket == nil {
		return "", ErrNoBucket
	}
	if err := r.bucket.WriteAll(ctx, key, data, nil); err != nil {
		return "", err
	}
	return blobPrefix + key, nil
}

// Close releases the bucket
func (r *Resolver) Close() error {
	if r.bucket == nil {
		return nil
	}
	return r.bucket.Close()
}

func (r *Resolver) read(ctx context.Context, key string) (*Payload, error) {
	if r.bucket == nil {
		return nil, ErrNoBucket
	}
	data, err := r.bucket.ReadAll(ctx, key)
	if err != nil {
		if gcerrors.Code(err) == gcerrors.NotFound {
			return nil, fmt.Errorf("%w: %s", ErrMediaNotFound, key)
		}
		return nil, err
	}
	if len(data) == 0 {
		return nil, ErrEmptyMedia
	}
	return fromBytes(data), nil
}
