package mixer

import (
	"context"

	"mixer-report/core/errors"
	"mixer-report/core/storage"

	"github.com/minio/minio-go/v7"
	"go.uber.org/zap"
)

// StorageSource reads each stream from the newest export under its prefix.
type StorageSource struct {
	client storage.Client
	bucket string
	logger *zap.Logger
}

// NewStorageSource creates a source over bucket.
func NewStorageSource(client storage.Client, bucket string, logger *zap.Logger) *StorageSource {
	return &StorageSource{client: client, bucket: bucket, logger: logger}
}

func (s *StorageSource) Load(ctx context.Context, stream string, src StreamSource) (Table, error) {
	if src.Prefix == "" {
		return Table{}, errors.Mark(errors.Newf("%s stream has no prefix", stream), errors.ErrInvalidConfig)
	}

	obj, err := storage.LatestObject(ctx, s.client, s.bucket, src.Prefix)
	if err != nil {
		return Table{}, errors.Mark(errors.Wrapf(err, "find %s export", stream), errors.ErrSourceUnavailable)
	}

	reader, err := s.client.GetObject(ctx, s.bucket, obj.Key, minio.GetObjectOptions{})
	if err != nil {
		return Table{}, errors.Mark(errors.Wrapf(err, "get %s", obj.Key), errors.ErrSourceUnavailable)
	}
	defer reader.Close()

	table, err := ParseExport(obj.Key, reader, src.Sheet, src.SkipRows)
	if err != nil {
		return Table{}, errors.Mark(errors.Wrapf(err, "parse %s", obj.Key), errors.ErrSourceUnavailable)
	}

	s.logger.Debug("Loaded export",
		zap.String("stream", stream),
		zap.String("object", obj.Key),
		zap.Int("rows", len(table.Rows)))
	return table, nil
}
