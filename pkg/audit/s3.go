package audit

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// s3API is the slice of the S3 client the archiver uses.
type s3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Config configures the archive destination.
type S3Config struct {
	Bucket    string
	Prefix    string
	Region    string
	Endpoint  string // non-empty for MinIO / custom endpoints
	AccessKey string
	SecretKey string
}

// S3Archiver uploads audit exports to object storage before retention
// purges them.
type S3Archiver struct {
	client s3API
	bucket string
	prefix string
}

// NewS3Archiver creates an archiver from config. Static credentials are used
// when provided (MinIO, explicit keys); otherwise the default chain applies
// (IAM roles, env vars).
func NewS3Archiver(ctx context.Context, cfg S3Config) (*S3Archiver, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("archive bucket is required")
	}

	var awsConfig aws.Config
	var err error

	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		awsConfig, err = config.LoadDefaultConfig(ctx,
			config.WithRegion(cfg.Region),
			config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
				cfg.AccessKey,
				cfg.SecretKey,
				"",
			)),
		)
	} else {
		awsConfig, err = config.LoadDefaultConfig(ctx,
			config.WithRegion(cfg.Region),
		)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsConfig, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Archiver{client: client, bucket: cfg.Bucket, prefix: cfg.Prefix}, nil
}

// NewS3ArchiverWithClient wires an existing client; tests use this.
func NewS3ArchiverWithClient(client s3API, bucket, prefix string) *S3Archiver {
	return &S3Archiver{client: client, bucket: bucket, prefix: prefix}
}

// Archive exports the events and uploads them under a date-partitioned key.
// Returns the object key written.
func (a *S3Archiver) Archive(ctx context.Context, events []*Event, format ExportFormat, asOf time.Time) (string, error) {
	data, err := Export(events, format)
	if err != nil {
		return "", fmt.Errorf("failed to export events: %w", err)
	}

	key := fmt.Sprintf("%04d/%02d/%02d/audit-%s.%s",
		asOf.Year(), asOf.Month(), asOf.Day(),
		asOf.UTC().Format("20060102T150405Z"), format)
	if a.prefix != "" {
		key = a.prefix + "/" + key
	}

	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentTypeFor(format)),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload audit archive: %w", err)
	}
	return key, nil
}

func contentTypeFor(format ExportFormat) string {
	switch format {
	case FormatCSV:
		return "text/csv"
	case FormatNDJSON:
		return "application/x-ndjson"
	default:
		return "application/json"
	}
}
