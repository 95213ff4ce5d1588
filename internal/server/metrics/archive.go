package metrics

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/goccy/go-json"
)

// S3Config points the archiver at an S3-compatible bucket.
type S3Config struct {
	Bucket       string
	Region       string
	User         string
	Password     string
	BaseEndpoint string
	Prefix       string
}

type putObjectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

var loadDefaultAWSConfig = config.LoadDefaultConfig

// S3Archiver writes each captured snapshot as a JSON object. Objects are
// never read back by the server.
type S3Archiver struct {
	client putObjectAPI
	bucket string
	prefix string
}

// NewS3Archiver builds a client from static credentials.
func NewS3Archiver(ctx context.Context, c S3Config) (*S3Archiver, error) {
	cfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(c.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(c.User, c.Password, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("aws config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if c.BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(c.BaseEndpoint)
			o.UsePathStyle = true
		}
	})

	return newS3Archiver(client, c.Bucket, c.Prefix), nil
}

func newS3Archiver(client putObjectAPI, bucket, prefix string) *S3Archiver {
	if prefix == "" {
		prefix = "metrics"
	}
	return &S3Archiver{client: client, bucket: bucket, prefix: prefix}
}

// Key returns the object key for a snapshot: <prefix>/YYYY/MM/DD/HH.json (UTC).
func (a *S3Archiver) Key(snap Snapshot) string {
	t := snap.Timestamp.UTC()
	return fmt.Sprintf("%s/%04d/%02d/%02d/%02d.json", a.prefix, t.Year(), t.Month(), t.Day(), t.Hour())
}

// Archive uploads snap.
func (a *S3Archiver) Archive(ctx context.Context, snap Snapshot) error {
	body, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(a.Key(snap)),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("put snapshot: %w", err)
	}
	return nil
}
