package storage

import (
	"context"
	"strings"

	"mixer-report/core/errors"

	"github.com/minio/minio-go/v7"
)

// EnsureBucket creates the bucket when it does not exist yet.
func EnsureBucket(ctx context.Context, c Client, bucket string) error {
	exists, err := c.BucketExists(ctx, bucket)
	if err != nil {
		return errors.Mark(errors.Wrapf(err, "check bucket %s", bucket), errors.ErrSourceUnavailable)
	}
	if exists {
		return nil
	}
	if err := c.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
		return errors.Wrapf(err, "create bucket %s", bucket)
	}
	return nil
}

// LatestObject returns the most recently modified object under prefix.
// Directory markers are skipped. When nothing matches, the error is marked
// with errors.ErrNotFound.
func LatestObject(ctx context.Context, c Client, bucket, prefix string) (minio.ObjectInfo, error) {
	// Cancelling stops the lister when the loop returns early.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var latest minio.ObjectInfo
	found := false

	for obj := range c.ListObjects(ctx, bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if obj.Err != nil {
			return minio.ObjectInfo{}, errors.Mark(
				errors.Wrapf(obj.Err, "list %s/%s", bucket, prefix), errors.ErrSourceUnavailable)
		}
		if strings.HasSuffix(obj.Key, "/") {
			continue
		}
		if !found || obj.LastModified.After(latest.LastModified) ||
			(obj.LastModified.Equal(latest.LastModified) && obj.Key > latest.Key) {
			latest = obj
			found = true
		}
	}

	if !found {
		return minio.ObjectInfo{}, errors.Mark(
			errors.Newf("no objects under %s/%s", bucket, prefix), errors.ErrNotFound)
	}
	return latest, nil
}
