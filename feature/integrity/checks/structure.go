package checks

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strings"

	"mixer-report/core/storage"

	"github.com/minio/minio-go/v7"
	"go.uber.org/zap"
)

// CheckExports returns the streams whose export prefix holds no object.
// prefixes maps stream name to its prefix in the bucket.
func CheckExports(ctx context.Context, client storage.Client, bucket string, prefixes map[string]string) ([]string, error) {
	var missing []string

	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("bucket %s does not exist", bucket)
	}

	streams := make([]string, 0, len(prefixes))
	for stream := range prefixes {
		streams = append(streams, stream)
	}
	sort.Strings(streams)

	for _, stream := range streams {
		found, err := hasExport(ctx, client, bucket, prefixes[stream])
		if err != nil {
			return nil, err
		}
		if !found {
			missing = append(missing, stream)
		}
	}

	return missing, nil
}

// hasExport reports whether prefix holds at least one object that is not a folder marker.
func hasExport(ctx context.Context, client storage.Client, bucket, prefix string) (bool, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	opts := minio.ListObjectsOptions{Prefix: prefix, Recursive: true}
	for obj := range client.ListObjects(ctx, bucket, opts) {
		if obj.Err != nil {
			return false, fmt.Errorf("failed to list %s: %w", prefix, obj.Err)
		}
		if !strings.HasSuffix(obj.Key, "/") {
			return true, nil
		}
	}
	return false, nil
}

// FixExports creates folder markers for the prefixes of the missing streams,
// so operators see where exports are expected.
func FixExports(ctx context.Context, client storage.Client, bucket string, logger *zap.Logger, prefixes map[string]string, missing []string) error {
	for _, stream := range missing {
		marker := folderPath(prefixes[stream])

		_, err := client.PutObject(ctx, bucket, marker, bytes.NewReader([]byte{}), 0, minio.PutObjectOptions{})
		if err != nil {
			logger.Error("Failed to create export folder", zap.String("stream", stream), zap.Error(err))
			return err
		}
		logger.Info("Created export folder", zap.String("stream", stream), zap.String("prefix", marker))
	}
	return nil
}

func folderPath(prefix string) string {
	if !strings.HasSuffix(prefix, "/") {
		return prefix + "/"
	}
	return prefix
}
