package s3

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
)

const (
	emptyAWSSessionToken = ""
	defaultRegion        = "us-east-1"
	defaultPresignTTL    = 15 * time.Minute
	defaultTimeout       = 30 * time.Second
	keyPrefix            = "feedback/"
)

// Config captures the bucket and credentials used for feedback images.
// Endpoint is optional and selects path-style addressing (MinIO, LocalStack).
type Config struct {
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	PresignTTL      time.Duration
}

// ImageStore implements ports.ImageStore on an S3 bucket.
type ImageStore struct {
	svc        *s3.S3
	bucket     string
	presignTTL time.Duration
}

func NewImageStore(cfg Config) (*ImageStore, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3: bucket is required")
	}
	region := cfg.Region
	if region == "" {
		region = defaultRegion
	}

	awsCfg := &aws.Config{
		Region:     aws.String(region),
		MaxRetries: aws.Int(2),
	}
	if cfg.AccessKeyID != "" {
		awsCfg.Credentials = credentials.NewStaticCredentials(cfg.AccessKeyID, cfg.SecretAccessKey, emptyAWSSessionToken)
	}
	if cfg.Endpoint != "" {
		awsCfg.Endpoint = aws.String(cfg.Endpoint)
		awsCfg.S3ForcePathStyle = aws.Bool(true)
	}

	sess, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}

	ttl := cfg.PresignTTL
	if ttl <= 0 {
		ttl = defaultPresignTTL
	}

	return &ImageStore{svc: s3.New(sess), bucket: cfg.Bucket, presignTTL: ttl}, nil
}

func (s *ImageStore) Put(ctx context.Context, key, contentType string, body io.ReadSeeker) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := s.svc.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(objectKey(key)),
		ContentType: aws.String(contentType),
		Body:        body,
	})
	if err != nil {
		return fmt.Errorf("failed to upload image: %w", err)
	}
	return nil
}

// URL presigns a GET for key; no request leaves the process.
func (s *ImageStore) URL(ctx context.Context, key string) (string, error) {
	req, _ := s.svc.GetObjectRequest(&s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey(key)),
	})
	req.SetContext(ctx)

	url, err := req.Presign(s.presignTTL)
	if err != nil {
		return "", fmt.Errorf("failed to generate presigned download URL: %w", err)
	}
	return url, nil
}

func (s *ImageStore) Delete(ctx context.Context, key string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := s.svc.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey(key)),
	})
	if err != nil {
		return fmt.Errorf("failed to delete image: %w", err)
	}
	return nil
}

// Ping checks that the bucket exists and is reachable. Used by readiness.
func (s *ImageStore) Ping(ctx context.Context) error {
	_, err := s.svc.HeadBucketWithContext(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)})
	return err
}

func objectKey(key string) string {
	return keyPrefix + key
}
