package usecase

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/cockroachdb/errors"
	"github.com/sss-network/sss-indexer/common/errs"
	"github.com/sss-network/sss-indexer/pkg/logger"
	"github.com/sss-network/sss-indexer/pkg/logger/slogx"
	"github.com/sss-network/sss-indexer/pkg/parquetutils"
	"github.com/xitongsys/parquet-go/parquet"
)

const archiveTimeLayout = "20060102T150405Z"

// AuditParquetRow is the parquet layout of an AuditRow.
type AuditParquetRow struct {
	Timestamp int64  `parquet:"name=timestamp, type=INT64, convertedtype=TIMESTAMP_MILLIS"`
	Action    string `parquet:"name=action, type=BYTE_ARRAY, convertedtype=UTF8"`
	Actor     string `parquet:"name=actor, type=BYTE_ARRAY, convertedtype=UTF8"`
	Target    string `parquet:"name=target, type=BYTE_ARRAY, convertedtype=UTF8"`
	Amount    string `parquet:"name=amount, type=BYTE_ARRAY, convertedtype=UTF8"`
	Details   string `parquet:"name=details, type=BYTE_ARRAY, convertedtype=UTF8"`
	Signature string `parquet:"name=signature, type=BYTE_ARRAY, convertedtype=UTF8"`
}

// EncodeAuditParquet encodes rows as a snappy compressed parquet file.
func EncodeAuditParquet(rows []AuditRow) ([]byte, error) {
	records := make([]AuditParquetRow, 0, len(rows))
	for _, row := range rows {
		records = append(records, AuditParquetRow{
			Timestamp: row.Timestamp.UnixMilli(),
			Action:    row.Action,
			Actor:     row.Actor,
			Target:    row.Target,
			Amount:    row.Amount,
			Details:   row.Details,
			Signature: row.Signature,
		})
	}
	data, err := parquetutils.WriteAll(records, parquet.CompressionCodec_SNAPPY)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode audit rows")
	}
	return data, nil
}

type Uploader interface {
	Upload(ctx context.Context, key string, body []byte) error
}

type ArchiveResult struct {
	Key  string
	Rows int
}

// ArchiveAuditTrail uploads the audit trail within [from, to] as a parquet file under prefix.
func (u *Usecase) ArchiveAuditTrail(ctx context.Context, from, to *time.Time, prefix string, uploader Uploader) (ArchiveResult, error) {
	rows, err := u.GetAuditTrail(ctx, from, to)
	if err != nil {
		return ArchiveResult{}, errors.WithStack(err)
	}
	data, err := EncodeAuditParquet(rows)
	if err != nil {
		return ArchiveResult{}, errors.WithStack(err)
	}

	key := archiveKey(prefix, from, to, u.Now())
	if err := uploader.Upload(ctx, key, data); err != nil {
		return ArchiveResult{}, errors.Wrap(err, "failed to upload audit archive")
	}
	logger.InfoContext(ctx, "audit trail archived",
		slogx.String("package", "usecase"),
		slogx.String("key", key),
		slogx.Int("rows", len(rows)),
		slogx.Int("bytes", len(data)),
	)
	return ArchiveResult{Key: key, Rows: len(rows)}, nil
}

func archiveKey(prefix string, from, to *time.Time, now time.Time) string {
	label := func(t *time.Time, fallback string) string {
		if t == nil {
			return fallback
		}
		return t.UTC().Format(archiveTimeLayout)
	}
	name := fmt.Sprintf("audit_%s_%s_%s.parquet", label(from, "begin"), label(to, "end"), now.UTC().Format(archiveTimeLayout))
	return path.Join(prefix, name)
}

type S3Config struct {
	Bucket   string
	Region   string
	Endpoint string
}

// S3Uploader uploads archives to an S3 bucket.
type S3Uploader struct {
	bucket   string
	uploader *manager.Uploader
}

func NewS3Uploader(ctx context.Context, conf S3Config) (*S3Uploader, error) {
	if conf.Bucket == "" {
		return nil, errors.Wrap(errs.InvalidArgument, "archive bucket is required")
	}
	sdkConfig, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "can't load aws user config")
	}
	client := s3.NewFromConfig(sdkConfig, func(o *s3.Options) {
		if conf.Region != "" {
			o.Region = conf.Region
		}
		if conf.Endpoint != "" {
			o.EndpointResolver = s3.EndpointResolverFromURL(conf.Endpoint)
			o.UsePathStyle = true
		}
	})
	return &S3Uploader{
		bucket: conf.Bucket,
		uploader: manager.NewUploader(client, func(u *manager.Uploader) {
			u.PartSize = 10 * 1024 * 1024
		}),
	}, nil
}

func (s *S3Uploader) Upload(ctx context.Context, key string, body []byte) error {
	_, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/vnd.apache.parquet"),
	})
	if err != nil {
		return errors.Wrapf(err, "failed to upload file for bucket %q and key %q", s.bucket, key)
	}
	return nil
}
