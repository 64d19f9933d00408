package sources

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
)

const s3Scheme = "s3://"

// Static errors for S3 locations
var (
	ErrS3URLInvalid       = errors.New("S3 URL must look like s3://bucket/key")
	ErrS3EndpointRequired = errors.New("S3 endpoint is required for s3:// inputs")
)

// S3Config holds the connection settings used for s3:// inputs.
type S3Config struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
}

// IsS3 reports whether location is an s3:// URL.
func IsS3(location string) bool {
	return strings.HasPrefix(location, s3Scheme)
}

// ParseS3URL splits s3://bucket/key into bucket and key.
func ParseS3URL(location string) (bucket, key string, err error) {
	if !IsS3(location) {
		return "", "", fmt.Errorf("%w: %s", ErrS3URLInvalid, location)
	}
	rest := strings.TrimPrefix(location, s3Scheme)
	bucket, key, found := strings.Cut(rest, "/")
	if !found || bucket == "" || key == "" {
		return "", "", fmt.Errorf("%w: %s", ErrS3URLInvalid, location)
	}
	return bucket, key, nil
}

// newDownloader creates an s3manager downloader for cfg.
func newDownloader(cfg S3Config) (*s3manager.Downloader, error) {
	if cfg.Endpoint == "" {
		return nil, ErrS3EndpointRequired
	}

	awsCfg := &aws.Config{
		Endpoint:         aws.String(cfg.Endpoint),
		Region:           aws.String(cfg.Region),
		S3ForcePathStyle: aws.Bool(true),
	}
	if cfg.AccessKey != "" || cfg.SecretKey != "" {
		awsCfg.Credentials = credentials.NewStaticCredentials(cfg.AccessKey, cfg.SecretKey, "")
	}

	sess, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 session: %w", err)
	}

	return s3manager.NewDownloader(sess, func(d *s3manager.Downloader) {
		d.Concurrency = 1
	}), nil
}

// downloadS3 fetches an object fully into memory.
func downloadS3(ctx context.Context, cfg S3Config, location string) ([]byte, error) {
	bucket, key, err := ParseS3URL(location)
	if err != nil {
		return nil, err
	}

	downloader, err := newDownloader(cfg)
	if err != nil {
		return nil, err
	}

	buf := aws.NewWriteAtBuffer(nil)
	_, err = downloader.DownloadWithContext(ctx, buf, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to download %s: %w", location, err)
	}

	return buf.Bytes(), nil
}
