// Package objstore wraps the S3 bucket holding product files and preview images.
package objstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/kodamarket/koda/internal/errs"
)

// Config selects the bucket and credentials. Endpoint is set for S3-compatible stores.
type Config struct {
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
	Endpoint  string
}

// S3 is an object store backed by one bucket.
type S3 struct {
	client  *s3.Client
	presign *s3.PresignClient
	cfg     Config
}

// New builds the S3 client. Without static keys the default AWS credential chain is used.
func New(ctx context.Context, cfg Config) (*S3, error) {
	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return &S3{client: client, presign: s3.NewPresignClient(client), cfg: cfg}, nil
}

// PresignPut returns a URL allowing one upload of key with the given content type.
func (s *S3) PresignPut(ctx context.Context, key, contentType, filename string, ttl time.Duration) (string, error) {
	req, err := s.presign.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:             aws.String(s.cfg.Bucket),
		Key:                aws.String(key),
		ContentType:        aws.String(contentType),
		ContentDisposition: aws.String(fmt.Sprintf(`inline; filename="%s"`, filename)),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", fmt.Errorf("%w: presign put: %v", errs.ErrUpstream, err)
	}
	return req.URL, nil
}

// PresignGet returns a short-lived download URL for key.
func (s *S3) PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error) {
	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", fmt.Errorf("%w: presign get: %v", errs.ErrUpstream, err)
	}
	return req.URL, nil
}

// Open streams an object. The caller closes the body.
func (s *S3) Open(ctx context.Context, key string) (io.ReadCloser, string, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, "", errs.ErrNotFound
		}
		return nil, "", fmt.Errorf("%w: get object: %v", errs.ErrUpstream, err)
	}
	return out.Body, aws.ToString(out.ContentType), nil
}

// URL returns the canonical object URL stored in product records.
func (s *S3) URL(key string) string {
	if s.cfg.Endpoint != "" {
		return strings.TrimRight(s.cfg.Endpoint, "/") + "/" + s.cfg.Bucket + "/" + key
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.cfg.Bucket, s.cfg.Region, key)
}

// KeyFromURL extracts the object key from an object URL.
func (s *S3) KeyFromURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil || u.Path == "" || u.Path == "/" {
		return "", errs.Validation("invalid object url")
	}
	key := strings.TrimPrefix(u.Path, "/")
	if s.cfg.Endpoint != "" {
		key = strings.TrimPrefix(key, s.cfg.Bucket+"/")
	}
	if key == "" {
		return "", errs.Validation("invalid object url")
	}
	return key, nil
}
