// Package storage provides an abstraction layer for object storage services.
//
// It wraps the MinIO Go client behind the small Client interface the mixer
// pipeline needs: spreadsheet exports are read from a bucket, and delivered
// batches can be archived back to one. Both AWS S3 and self-hosted MinIO work.
//
// The Client interface is mocked in core/storage/mocks for unit tests.
//
// # Helpers
//
//   - LatestObject: newest object under a prefix (the current export of a stream).
//   - EnsureBucket: creates the archive bucket on first use.
//
// # Usage
//
//	client, err := storage.NewClient(cfg.Storage)
//	obj, err := storage.LatestObject(ctx, client, cfg.Storage.Bucket, "batch/")
package storage
