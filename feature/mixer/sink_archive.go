package mixer

import (
	"bytes"
	"context"
	"fmt"

	"mixer-report/core/errors"
	"mixer-report/core/storage"
	"mixer-report/core/utils"

	"github.com/minio/minio-go/v7"
)

const archiveTimeLayout = "20060102T150405"

// ArchiveSink stores every delivery as a CSV object in the bucket.
type ArchiveSink struct {
	client storage.Client
	bucket string
	prefix string
	site   string
}

// NewArchiveSink creates a sink writing under prefix/site/.
func NewArchiveSink(client storage.Client, bucket, prefix, site string) *ArchiveSink {
	return &ArchiveSink{client: client, bucket: bucket, prefix: prefix, site: site}
}

func (s *ArchiveSink) Name() string {
	return "archive:" + s.bucket
}

// ObjectName returns the key a delivery is archived under.
func (s *ArchiveSink) ObjectName(d Delivery) string {
	return fmt.Sprintf("%s/%s/%s_%s.csv", s.prefix, s.site,
		d.First().Format(archiveTimeLayout), d.Last().Format(archiveTimeLayout))
}

func (s *ArchiveSink) Write(ctx context.Context, d Delivery) error {
	if len(d.Records) == 0 {
		return nil
	}
	if err := storage.EnsureBucket(ctx, s.client, s.bucket); err != nil {
		return err
	}

	rows := make([][]string, 0, len(d.Records))
	for _, r := range d.Records {
		line := make([]string, len(d.Columns))
		for i, c := range d.Columns {
			line[i] = utils.ToString(r.Values[c])
		}
		rows = append(rows, line)
	}
	body, err := WriteCSV(d.Columns, rows)
	if err != nil {
		return errors.Wrap(err, "render archive csv")
	}

	name := s.ObjectName(d)
	_, err = s.client.PutObject(ctx, s.bucket, name, bytes.NewReader(body), int64(len(body)),
		minio.PutObjectOptions{ContentType: "text/csv"})
	if err != nil {
		return errors.Mark(errors.Wrapf(err, "put %s", name), errors.ErrSinkWrite)
	}
	return nil
}
