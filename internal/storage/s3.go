package storage

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/praxis/backend/internal/config"
)

const avatarPrefix = "avatars/"

// objectAPI is the slice of the S3 client used here
type objectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

type S3Storage struct {
	client    objectAPI
	bucket    string
	publicURL string
}

// NewS3Storage creates a new S3/R2 storage provider
func NewS3Storage(ctx context.Context, cfg config.StorageConfig) (*S3Storage, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config: %w", err)
	}

	// R2 and other S3-compatible stores need a custom endpoint
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Storage{
		client:    client,
		bucket:    cfg.Bucket,
		publicURL: cfg.PublicURL,
	}, nil
}

// SaveFile uploads a file to R2/S3
func (s *S3Storage) SaveFile(ctx context.Context, file io.Reader, filename string, contentType string) (string, error) {
	key := objectName(avatarPrefix, filename, contentType)

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        file,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload file to S3: %w", err)
	}

	// Construct public URL
	if s.publicURL != "" {
		return s.publicURL + "/" + key, nil
	}
	// Without a public URL the key is all we can hand back
	return key, nil
}

// DeleteFile deletes a file from S3
func (s *S3Storage) DeleteFile(ctx context.Context, fileURL string) error {
	key, ok := s.keyFor(fileURL)
	if !ok {
		return nil
	}

	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete file from S3: %w", err)
	}
	return nil
}

// keyFor recovers the object key from a URL returned by SaveFile
func (s *S3Storage) keyFor(fileURL string) (string, bool) {
	key := fileURL
	if s.publicURL != "" {
		var ok bool
		if key, ok = strings.CutPrefix(fileURL, s.publicURL+"/"); !ok {
			return "", false
		}
	}
	if !strings.HasPrefix(key, avatarPrefix) || len(key) == len(avatarPrefix) {
		return "", false
	}
	return key, true
}
