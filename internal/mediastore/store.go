package mediastore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// ErrUnavailable wraps any failure of the blob-store collaborator so
// handlers can map it to a 502 without inspecting SDK error types.
var ErrUnavailable = errors.New("media storage unavailable")

type Config struct {
	Region    string
	AccessKey string
	SecretKey string
	Endpoint  string // MinIO or other S3-compatible endpoint
	Bucket    string
	PublicURL string // base under which stored objects are reachable
}

type Store struct {
	client    *s3.Client
	bucket    string
	publicURL string
}

func New(ctx context.Context, cfg Config) (*Store, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey,
			cfg.SecretKey,
			"",
		)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = true
	})

	return &Store{
		client:    client,
		bucket:    cfg.Bucket,
		publicURL: strings.TrimSuffix(cfg.PublicURL, "/"),
	}, nil
}

func storageKey(kind, filename string) string {
	d := time.Now()
	return fmt.Sprintf("%s/%d/%d/%d/%s%s", kind, d.Year(), d.Month(), d.Day(), uuid.New(), path.Ext(filename))
}

// Upload stores the object and returns its public URL. kind groups
// keys by media type ("videos", "thumbnails", "images").
func (s *Store) Upload(ctx context.Context, kind, filename, contentType string, body io.Reader) (string, error) {
	key := storageKey(kind, filename)

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	return s.publicURL + "/" + key, nil
}

// Delete removes a previously uploaded object by its public URL.
// URLs outside our namespace are ignored, mirroring how seeded or
// external media must not be touched.
func (s *Store) Delete(ctx context.Context, fileURL string) error {
	if fileURL == "" {
		return nil
	}
	key, ok := strings.CutPrefix(fileURL, s.publicURL+"/")
	if !ok {
		return nil
	}

	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}
