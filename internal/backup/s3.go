// Package backup uploads snapshots of the data directory to S3-compatible
// object storage.
package backup

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/incomiq/incomiq/internal/config"
	"github.com/incomiq/incomiq/internal/logging"
)

var (
	loadDefaultAWSConfig = awsconfig.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	putObject = func(client *s3.Client, ctx context.Context, in *s3.PutObjectInput) (*s3.PutObjectOutput, error) {
		return client.PutObject(ctx, in)
	}
)

// Service uploads data directory snapshots.
type Service struct {
	config *config.Config
	logger logging.Logger
}

// NewService constructs a backup Service.
func NewService(cfg *config.Config, logger logging.Logger) *Service {
	return &Service{config: cfg, logger: logger}
}

func (s *Service) getClient() (*s3.Client, error) {
	cfg, err := loadDefaultAWSConfig(context.Background(),
		awsconfig.WithRegion(s.config.S3Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			s.config.S3RootUser,
			s.config.S3RootPassword,
			"",
		)))
	if err != nil {
		return nil, err
	}

	return newS3ClientFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(s.config.S3BaseEndpoint)
		o.UsePathStyle = true
	}), nil
}

// Snapshot uploads every regular file in dir under a timestamped prefix and
// returns that prefix plus the number of files uploaded. Subdirectories are
// skipped; the store keeps everything flat.
func (s *Service) Snapshot(ctx context.Context, dir string) (string, int, error) {
	client, err := s.getClient()
	if err != nil {
		return "", 0, fmt.Errorf("s3 client error: %w", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", 0, fmt.Errorf("read data dir: %w", err)
	}

	prefix := "snapshots/" + time.Now().UTC().Format(time.RFC3339) + "/"

	uploaded := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		f, err := os.Open(path)
		if err != nil {
			return prefix, uploaded, fmt.Errorf("open %s: %w", path, err)
		}

		key := prefix + entry.Name()
		_, err = putObject(client, ctx, &s3.PutObjectInput{
			Bucket: aws.String(s.config.S3Bucket),
			Key:    aws.String(key),
			Body:   f,
		})
		f.Close()
		if err != nil {
			return prefix, uploaded, fmt.Errorf("upload %s: %w", key, err)
		}
		uploaded++
	}

	s.logger.Info(ctx, "snapshot uploaded", "prefix", prefix, "files", uploaded)
	return prefix, uploaded, nil
}
