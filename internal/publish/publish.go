// Package publish uploads finished reports to an S3-compatible bucket under
// <prefix>/<environment>/<job>/<file>.
package publish

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ErrNoBucket is returned by New when no bucket is configured.
var ErrNoBucket = errors.New("publish: no bucket configured")

// Options configure the target bucket. Empty credentials fall back to the
// SDK's default chain.
type Options struct {
	Bucket          string
	Prefix          string
	Region          string
	Endpoint        string // non-AWS endpoints use path-style addressing
	AccessKeyID     string
	SecretAccessKey string
}

// Publisher puts report files into the bucket.
type Publisher struct {
	client *s3.Client
	bucket string
	prefix string
	logger *slog.Logger
}

// New builds a publisher from opts.
func New(ctx context.Context, opts Options, logger *slog.Logger) (*Publisher, error) {
	if opts.Bucket == "" {
		return nil, ErrNoBucket
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(opts.Region)}
	if opts.AccessKeyID != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, "")))
	}

	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("publish: loading AWS config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &Publisher{
		client: client,
		bucket: opts.Bucket,
		prefix: strings.Trim(opts.Prefix, "/"),
		logger: logger,
	}, nil
}

// Key returns the object key a file of a run is stored under.
func (p *Publisher) Key(environment, job, name string) string {
	return path.Join(p.prefix, environment, job, name)
}

// Publish uploads body and returns its key.
func (p *Publisher) Publish(ctx context.Context, environment, job, name, contentType string, body []byte) (string, error) {
	key := p.Key(environment, job, name)

	_, err := p.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(p.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(body),
		ContentLength: aws.Int64(int64(len(body))),
		ContentType:   aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("put object %s: %w", key, err)
	}

	p.logger.Info("report published", "bucket", p.bucket, "key", key, "bytes", len(body))

	return key, nil
}
